package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/cache"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/config"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/density"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/fetcher"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/logger"
	dm "github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/search/factory"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/synth"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/tavily"
)

var (
	ErrEmptyTopic       = errors.New("watch topic is empty")
	ErrInvalidTimeframe = errors.New("invalid timeframe")
	ErrInvalidBudget    = errors.New("max results out of range")
)

// Synthesizer 最终的 LLM 合成步骤
type Synthesizer interface {
	Synthesize(ctx context.Context, in synth.Input) (*dm.Report, error)
}

// Engine 核心处理引擎：编排 (带缓存) + 合成
type Engine struct {
	flags        config.FlagSource
	orchestrator *Orchestrator
	synth        Synthesizer
	cache        *cache.Cache[*Result]
}

// NewEngine 根据配置创建引擎实例
func NewEngine(cfg *config.Config, domains DomainSource, flags config.FlagSource) (*Engine, error) {
	ctx := context.Background()

	// 初始化 LLM
	var temperature *float32
	if cfg.LLM.Temperature > 0 {
		t := cfg.LLM.Temperature
		temperature = &t
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}

	// 发现与正文抽取共用一个限流器，LLM 单独限流
	searchLimiter := cfg.Concurrency.NewLimiter()
	llmLimiter := cfg.Concurrency.NewLimiter()

	discoverer, err := factory.NewDiscoverer(cfg, searchLimiter)
	if err != nil {
		return nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
	}

	var retriever fetcher.ContentRetriever
	if cfg.Search.Tavily.APIKey != "" {
		retriever = tavily.NewClient(cfg.Search.Tavily.APIKey, tavily.WithLimiter(searchLimiter))
	}
	w := cfg.Watch
	x := fetcher.New(retriever, fetcher.Options{
		Timeout:     w.FetchTimeoutDuration(),
		ReadTimeout: cfg.Search.Readability.TimeoutDuration(),
		PDFChars:    w.PDFChars,
		WebChars:    w.WebChars,
		Density:     density.Options{WindowWords: w.WindowWords, StrideWords: w.StrideWords},
	})

	orch := NewOrchestrator(discoverer, x, domains, flags, w.Concurrency)
	return newEngine(orch, synth.New(chatModel, llmLimiter), flags, w.CacheSize)
}

func newEngine(orch *Orchestrator, s Synthesizer, flags config.FlagSource, cacheSize int) (*Engine, error) {
	c, err := cache.New[*Result](cacheSize,
		func() time.Duration { return flags.Flags().CacheTTL },
		// 离线结果不占用缓存，开关恢复后立即生效
		cache.WithCacheable(func(r *Result) bool { return !r.Offline }),
	)
	if err != nil {
		return nil, err
	}
	return &Engine{flags: flags, orchestrator: orch, synth: s, cache: c}, nil
}

// RunOptions 运行选项
type RunOptions struct {
	Query            dm.WatchQuery
	MaxResults       int // 0 表示使用当前配置
	ProgressCallback func(status string, progress int)
}

// RunStats 透明度指标
type RunStats struct {
	Raw       int     `json:"raw_count"`
	Processed int     `json:"processed_count"`
	Kept      int     `json:"kept_count"`
	Mode      dm.Mode `json:"mode"`
	CacheHit  bool    `json:"cache_hit"`
}

// Caption 展示给用户的统计说明
func (s RunStats) Caption() string {
	if s.Mode == dm.ModeOffline {
		return fmt.Sprintf("No external sources → %d AI-knowledge updates", s.Kept)
	}
	return fmt.Sprintf("Analyzed %d sources → Kept %d relevant updates", s.Raw, s.Kept)
}

// Outcome 一次运行的产出
type Outcome struct {
	Report *dm.Report `json:"report"`
	Stats  RunStats   `json:"stats"`
}

// Run 执行一次监控：编排 (命中缓存时跳过) 后调用 LLM 合成报告
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*Outcome, error) {
	q := opts.Query
	if q.Topic == "" {
		return nil, ErrEmptyTopic
	}
	if !q.Timeframe.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeframe, q.Timeframe)
	}

	// 开关在本次运行开始时读取一次
	flags := e.flags.Flags()
	maxResults := opts.MaxResults
	if maxResults == 0 {
		maxResults = flags.MaxResults
	}
	if maxResults < config.MinMaxResults || maxResults > config.MaxMaxResults {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBudget, maxResults)
	}

	logger.Log.Infof("开始监控 [%s]，市场 %v，时间窗口 %s", q.Topic, q.Markets, q.Timeframe.Label())
	progress(opts, "discovering", 0)

	key := cache.Key(q.Topic, q.Timeframe, maxResults)
	result, hit, err := e.cache.Get(ctx, key, func(ctx context.Context) (*Result, error) {
		return e.orchestrator.RunWithFlags(ctx, flags, q.Topic, q.Timeframe, maxResults)
	})
	if err != nil {
		logger.Log.Errorf("编排失败 [%s]: %v", q.Topic, err)
		return nil, err
	}
	hits, misses := e.cache.Stats()
	if hit {
		logger.Log.Infof("命中结果缓存 [%s]，累计命中 %d 次 / 未命中 %d 次", key, hits, misses)
	} else {
		logger.Log.Debugf("结果缓存未命中 [%s]，累计命中 %d 次 / 未命中 %d 次", key, hits, misses)
	}

	progress(opts, "synthesizing", 60)
	report, err := e.synth.Synthesize(ctx, synth.Input{
		Topic:       q.Topic,
		Markets:     q.Markets,
		Digest:      result.Digest,
		Timeframe:   q.Timeframe,
		SourceCount: result.ProcessedCount,
	})
	if err != nil {
		logger.Log.Errorf("合成失败 [%s]: %v", q.Topic, err)
		return nil, err
	}

	stats := RunStats{
		Raw:       result.RawCount,
		Processed: result.ProcessedCount,
		Kept:      len(report.Items),
		Mode:      dm.ModeOnline,
		CacheHit:  hit,
	}
	if result.Offline {
		stats.Mode = dm.ModeOffline
	}
	progress(opts, "completed", 100)
	logger.Log.Infof("监控完成 [%s]: %s", q.Topic, stats.Caption())
	return &Outcome{Report: report, Stats: stats}, nil
}

// PurgeCache 配置变更后清空结果缓存
func (e *Engine) PurgeCache() {
	e.cache.Purge()
}

func progress(opts RunOptions, status string, pct int) {
	if opts.ProgressCallback != nil {
		opts.ProgressCallback(status, pct)
	}
}
