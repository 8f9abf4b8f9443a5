package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidDomain = errors.New("invalid domain")
	ErrInvalidWatch  = errors.New("invalid watch")
)

// Store 域名白名单与监控定义的持久化
type Store interface {
	ListDomains(ctx context.Context) ([]string, error)
	AddDomain(ctx context.Context, domain string) (string, error)
	RemoveDomain(ctx context.Context, domain string) error

	ListWatches(ctx context.Context) ([]model.WatchQuery, error)
	GetWatch(ctx context.Context, name string) (*model.WatchQuery, error)
	SaveWatch(ctx context.Context, w model.WatchQuery) error
	DeleteWatch(ctx context.Context, name string) error

	Close() error
}

// NormalizeDomain 小写并去掉协议、路径、端口与 www. 前缀，例如 "https://www.FDA.gov/x" -> "fda.gov"
func NormalizeDomain(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDomain)
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomain, raw)
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	host = strings.TrimSuffix(host, ".")
	if host == "" || strings.ContainsAny(host, " /") || !strings.Contains(host, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomain, raw)
	}
	return host, nil
}

// ValidateWatch 校验并清理监控定义
func ValidateWatch(w model.WatchQuery) (model.WatchQuery, error) {
	w.Name = strings.TrimSpace(w.Name)
	w.Topic = strings.TrimSpace(w.Topic)
	if w.Name == "" {
		return w, fmt.Errorf("%w: name is empty", ErrInvalidWatch)
	}
	if w.Topic == "" {
		return w, fmt.Errorf("%w: topic is empty", ErrInvalidWatch)
	}
	if !w.Timeframe.Valid() {
		return w, fmt.Errorf("%w: timeframe %q", ErrInvalidWatch, w.Timeframe)
	}
	markets := make([]string, 0, len(w.Markets))
	for _, m := range w.Markets {
		if m = strings.TrimSpace(m); m != "" {
			markets = append(markets, m)
		}
	}
	w.Markets = markets
	return w, nil
}
