package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

type fileData struct {
	Domains []string           `yaml:"domains"`
	Watches []model.WatchQuery `yaml:"watches"`
}

// FileStore 基于 YAML 文件的存储，每次写入整体重写文件
type FileStore struct {
	path string
	mu   sync.Mutex
	mem  *MemoryStore
}

var _ Store = (*FileStore)(nil)

// NewFileStore 打开 (或创建) path 指向的文件；文件不存在时以 seed 作为初始域名
func NewFileStore(path string, seed []string) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.mem = NewMemoryStore(seed)
		if err := s.flush(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, err
	}

	var fd fileData
	if err := yaml.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s.mem = NewMemoryStore(fd.Domains)
	for _, w := range fd.Watches {
		if err := s.mem.SaveWatch(context.Background(), w); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return s, nil
}

func (s *FileStore) ListDomains(ctx context.Context) ([]string, error) {
	return s.mem.ListDomains(ctx)
}

func (s *FileStore) AddDomain(ctx context.Context, domain string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.mem.AddDomain(ctx, domain)
	if err != nil {
		return "", err
	}
	return d, s.flush()
}

func (s *FileStore) RemoveDomain(ctx context.Context, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mem.RemoveDomain(ctx, domain); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStore) ListWatches(ctx context.Context) ([]model.WatchQuery, error) {
	return s.mem.ListWatches(ctx)
}

func (s *FileStore) GetWatch(ctx context.Context, name string) (*model.WatchQuery, error) {
	return s.mem.GetWatch(ctx, name)
}

func (s *FileStore) SaveWatch(ctx context.Context, w model.WatchQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mem.SaveWatch(ctx, w); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStore) DeleteWatch(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mem.DeleteWatch(ctx, name); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStore) Close() error { return nil }

// flush 先写临时文件再重命名，读方不会看到写了一半的文件
func (s *FileStore) flush() error {
	ctx := context.Background()
	domains, _ := s.mem.ListDomains(ctx)
	watches, _ := s.mem.ListWatches(ctx)
	out, err := yaml.Marshal(fileData{Domains: domains, Watches: watches})
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
