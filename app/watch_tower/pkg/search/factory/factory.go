package factory

import (
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/config"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/google"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/search"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/searxng"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/tavily"
)

// NewDiscoverer 根据配置创建发现实例。
// 凭据缺失不在这里报错，由 Discoverer 在开关检查之后返回 MISCONFIGURED。
func NewDiscoverer(cfg *config.Config, limiter *rate.Limiter) (search.Discoverer, error) {
	switch strings.ToLower(cfg.Search.Provider) {
	case "", "google":
		g := cfg.Search.Google
		return google.NewClient(g.APIKey, g.CX,
			google.WithLimiter(limiter),
			google.WithBatching(g.BatchSize, g.PageSize),
		), nil

	case "searxng":
		s := cfg.Search.SearXNG
		return searxng.NewClient(s.BaseURL, s.Timeout,
			searxng.WithLimiter(limiter),
			searxng.WithBatchSize(cfg.Search.Google.BatchSize),
		), nil

	case "tavily":
		return tavily.NewClient(cfg.Search.Tavily.APIKey, tavily.WithLimiter(limiter)), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", cfg.Search.Provider)
	}
}
