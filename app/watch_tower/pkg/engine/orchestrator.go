package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/config"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/density"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/fetcher"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/logger"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/search"
)

var (
	// ErrNoResults 发现阶段成功但没有候选，与配额类失败区分
	ErrNoResults = errors.New("no results found")
	// ErrNoDomains 域名白名单为空或无法读取
	ErrNoDomains = errors.New("domain allow-list unavailable")
)

const defaultExtractConcurrency = 20

// DomainSource 提供域名白名单
type DomainSource interface {
	ListDomains(ctx context.Context) ([]string, error)
}

// StaticDomains 固定的域名列表
type StaticDomains []string

// ListDomains 实现 DomainSource
func (d StaticDomains) ListDomains(context.Context) ([]string, error) {
	return append([]string(nil), d...), nil
}

// Extractor 单个候选的正文抽取，失败返回 nil
type Extractor interface {
	Process(ctx context.Context, cand model.SearchCandidate, keywords []string, t fetcher.Toggles) *model.ExtractedSource
}

// Result 一次编排的输出，作为缓存值后不再修改
type Result struct {
	Digest         string
	Offline        bool
	RawCount       int
	ProcessedCount int
	Sources        []model.ExtractedSource
}

// Orchestrator 组合发现与抽取两个阶段
type Orchestrator struct {
	discoverer  search.Discoverer
	extractor   Extractor
	domains     DomainSource
	flags       config.FlagSource
	concurrency int
}

// NewOrchestrator 创建编排器，concurrency <= 0 时使用默认值
func NewOrchestrator(d search.Discoverer, x Extractor, domains DomainSource, flags config.FlagSource, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = defaultExtractConcurrency
	}
	return &Orchestrator{
		discoverer:  d,
		extractor:   x,
		domains:     domains,
		flags:       flags,
		concurrency: concurrency,
	}
}

// Run 读取当前开关后执行一次编排
func (o *Orchestrator) Run(ctx context.Context, query string, tf model.Timeframe, maxResults int) (*Result, error) {
	return o.RunWithFlags(ctx, o.flags.Flags(), query, tf, maxResults)
}

// RunWithFlags 使用调用方给定的开关快照执行编排。
// 发现被关闭时返回离线结果；配额、权限、配置类失败原样返回；零候选返回 ErrNoResults。
func (o *Orchestrator) RunWithFlags(ctx context.Context, flags config.Flags, query string, tf model.Timeframe, maxResults int) (*Result, error) {
	if maxResults <= 0 {
		maxResults = flags.MaxResults
	}

	var domains []string
	if flags.DiscoveryEnabled {
		var err error
		domains, err = o.domains.ListDomains(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoDomains, err)
		}
	}

	resp, err := o.discoverer.Search(ctx, &search.Request{
		Query:      query,
		Domains:    domains,
		MaxResults: maxResults,
		Timeframe:  tf,
		Disabled:   !flags.DiscoveryEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}

	switch {
	case resp.Status == search.StatusDisabled:
		logger.Log.Info("发现已关闭，进入离线模式")
		return &Result{Digest: model.OfflineDigest, Offline: true}, nil
	case resp.Status.Fatal():
		return nil, fmt.Errorf("discovery: status %s", resp.Status)
	case len(resp.Candidates) == 0:
		return nil, ErrNoResults
	}

	keywords := density.Keywords(query)
	toggles := fetcher.Toggles{Retriever: flags.ContentEnabled, Readability: flags.ReadabilityEnabled}
	sources := o.extract(ctx, resp.Candidates, keywords, toggles)

	logger.Log.Infof("编排完成: 发现 %d 个来源, 成功抽取 %d 个", len(resp.Candidates), len(sources))
	return &Result{
		Digest:         BuildDigest(sources, len(resp.Candidates)),
		RawCount:       len(resp.Candidates),
		ProcessedCount: len(sources),
		Sources:        sources,
	}, nil
}

// extract 并发抽取全部候选，结果按候选原始顺序排列
func (o *Orchestrator) extract(ctx context.Context, cands []model.SearchCandidate, keywords []string, t fetcher.Toggles) []model.ExtractedSource {
	slots := make([]*model.ExtractedSource, len(cands))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, cand := range cands {
		g.Go(func() error {
			slots[i] = o.extractor.Process(ctx, cand, keywords, t)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.ExtractedSource, 0, len(cands))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}
