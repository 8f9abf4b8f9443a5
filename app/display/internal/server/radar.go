package server

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/iWorld-y/watch_tower/app/display/internal/conf"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/config"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/engine"
	wtLogger "github.com/iWorld-y/watch_tower/app/watch_tower/pkg/logger"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/storage"
)

// NewWatchConfig 将 conf.Radar / conf.Data 转换为 pkg/config.Config，填充默认值并校验
func NewWatchConfig(c *conf.Radar, d *conf.Data, logger log.Logger) (*config.Config, error) {
	cfg := ToConfig(c, d)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := wtLogger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.NewHelper(logger).Errorf("Failed to init watch_tower logger: %v", err)
		_ = wtLogger.InitLogger("info", "") // 降级处理
	}
	return cfg, nil
}

// ToConfig 字段映射，缺失的小节保持零值交给 ApplyDefaults
func ToConfig(c *conf.Radar, d *conf.Data) *config.Config {
	cfg := &config.Config{}
	if d != nil {
		cfg.Watch.SourcesFile = d.SourcesFile
		if db := d.Database; db != nil {
			cfg.DB = config.DBConfig{
				Host:     db.Host,
				Port:     int(db.Port),
				User:     db.User,
				Password: db.Password,
				Name:     db.Name,
			}
		}
	}
	if c == nil {
		return cfg
	}

	cfg.Domains = c.Domains
	if l := c.Llm; l != nil {
		cfg.LLM = config.LLMConfig{
			BaseURL:     l.BaseUrl,
			APIKey:      l.ApiKey,
			Model:       l.Model,
			Temperature: l.Temperature,
		}
	}
	if s := c.Search; s != nil {
		cfg.Search.Provider = s.Provider
		if g := s.Google; g != nil {
			cfg.Search.Google = config.GoogleConfig{
				APIKey:    g.ApiKey,
				CX:        g.Cx,
				Enabled:   g.Enabled,
				BatchSize: int(g.BatchSize),
				PageSize:  int(g.PageSize),
			}
		}
		if t := s.Tavily; t != nil {
			cfg.Search.Tavily = config.TavilyConfig{APIKey: t.ApiKey, Enabled: t.Enabled}
		}
		if x := s.Searxng; x != nil {
			cfg.Search.SearXNG = config.SearXNGConfig{
				BaseURL: x.BaseUrl,
				Timeout: int(x.Timeout),
				Enabled: x.Enabled,
			}
		}
		if r := s.Readability; r != nil {
			cfg.Search.Readability = config.ReadabilityConfig{Enabled: r.Enabled, Timeout: int(r.Timeout)}
		}
	}
	if w := c.Watch; w != nil {
		cfg.Watch.MaxResults = int(w.MaxResults)
		cfg.Watch.CacheTTLHours = w.CacheTtlHours
		cfg.Watch.CacheSize = int(w.CacheSize)
		cfg.Watch.WindowWords = int(w.WindowWords)
		cfg.Watch.StrideWords = int(w.StrideWords)
		cfg.Watch.PDFChars = int(w.PdfChars)
		cfg.Watch.WebChars = int(w.WebChars)
		cfg.Watch.FetchTimeout = int(w.FetchTimeout)
		cfg.Watch.Concurrency = int(w.Concurrency)
		cfg.Watch.Markets = w.Markets
	}
	if l := c.Log; l != nil {
		cfg.Log = config.LogConfig{Level: l.Level, File: l.File}
	}
	if cc := c.Concurrency; cc != nil {
		cfg.Concurrency = config.ConcurrencyConfig{QPS: int(cc.Qps), RPM: int(cc.Rpm)}
	}
	return cfg
}

// NewFlagStore 以启动配置作为开关初始值
func NewFlagStore(cfg *config.Config) *config.FlagStore {
	return config.NewFlagStore(cfg.Flags())
}

// NewWatchEngine 初始化 watch_tower 引擎
func NewWatchEngine(cfg *config.Config, store storage.Store, flags *config.FlagStore, logger log.Logger) (*engine.Engine, error) {
	eng, err := engine.NewEngine(cfg, store, flags)
	if err != nil {
		log.NewHelper(logger).Errorf("Failed to init engine: %v", err)
		return nil, err
	}
	return eng, nil
}
