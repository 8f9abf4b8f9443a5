package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

// MemoryStore 进程内存储，用于测试与未配置数据库的场景
type MemoryStore struct {
	mu      sync.RWMutex
	domains []string
	watches map[string]model.WatchQuery
}

// NewMemoryStore 以初始域名创建，非法域名被跳过
func NewMemoryStore(domains []string) *MemoryStore {
	s := &MemoryStore{watches: make(map[string]model.WatchQuery)}
	for _, d := range domains {
		_, _ = s.AddDomain(context.Background(), d)
	}
	return s
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) ListDomains(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.domains), nil
}

func (s *MemoryStore) AddDomain(_ context.Context, domain string) (string, error) {
	d, err := NormalizeDomain(domain)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.domains, d) {
		s.domains = append(s.domains, d)
	}
	return d, nil
}

func (s *MemoryStore) RemoveDomain(_ context.Context, domain string) error {
	d, err := NormalizeDomain(domain)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.domains, d)
	if i < 0 {
		return fmt.Errorf("domain %s: %w", d, ErrNotFound)
	}
	s.domains = slices.Delete(s.domains, i, i+1)
	return nil
}

func (s *MemoryStore) ListWatches(context.Context) ([]model.WatchQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.WatchQuery, 0, len(s.watches))
	for _, w := range s.watches {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetWatch(_ context.Context, name string) (*model.WatchQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.watches[name]
	if !ok {
		return nil, fmt.Errorf("watch %s: %w", name, ErrNotFound)
	}
	w.Markets = slices.Clone(w.Markets)
	return &w, nil
}

func (s *MemoryStore) SaveWatch(_ context.Context, w model.WatchQuery) error {
	w, err := ValidateWatch(w)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watches[w.Name] = w
	return nil
}

func (s *MemoryStore) DeleteWatch(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watches[name]; !ok {
		return fmt.Errorf("watch %s: %w", name, ErrNotFound)
	}
	delete(s.watches, name)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
