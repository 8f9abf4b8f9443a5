package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/config"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/engine"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/storage"
)

// ErrInvalidFlags 开关修改越界
var ErrInvalidFlags = errors.New("invalid flags")

// WatchRunner 执行一次监控 (由 engine.Engine 实现)
type WatchRunner interface {
	Run(ctx context.Context, opts engine.RunOptions) (*engine.Outcome, error)
	PurgeCache()
}

// SourceRepo 域名白名单与监控定义仓库
type SourceRepo interface {
	ListDomains(ctx context.Context) ([]string, error)
	AddDomain(ctx context.Context, domain string) (string, error)
	RemoveDomain(ctx context.Context, domain string) error
	ListWatches(ctx context.Context) ([]model.WatchQuery, error)
	GetWatch(ctx context.Context, name string) (*model.WatchQuery, error)
	SaveWatch(ctx context.Context, w model.WatchQuery) error
	DeleteWatch(ctx context.Context, name string) error
}

// RunRequest 一次监控请求，Filter 只影响返回的 Items
type RunRequest struct {
	Query      model.WatchQuery
	MaxResults int
	Filter     model.ItemFilter
}

// RunResult 监控结果
type RunResult struct {
	Report  *model.Report      `json:"report"`
	Items   []model.ReportItem `json:"items"`
	Stats   engine.RunStats    `json:"stats"`
	Caption string             `json:"caption"`
}

// FlagsPatch 部分更新开关，nil 字段保持不变
type FlagsPatch struct {
	DiscoveryEnabled   *bool    `json:"discovery_enabled"`
	ContentEnabled     *bool    `json:"content_enabled"`
	ReadabilityEnabled *bool    `json:"readability_enabled"`
	MaxResults         *int     `json:"max_results"`
	CacheTTLHours      *float64 `json:"cache_ttl_hours"`
}

// WatchUseCase 监控业务逻辑
type WatchUseCase struct {
	runner  WatchRunner
	repo    SourceRepo
	flags   *config.FlagStore
	markets []string
	log     *log.Helper
}

// NewWatchUseCase 创建监控业务逻辑实例
func NewWatchUseCase(runner WatchRunner, repo SourceRepo, flags *config.FlagStore, cfg *config.Config, logger log.Logger) *WatchUseCase {
	return &WatchUseCase{
		runner:  runner,
		repo:    repo,
		flags:   flags,
		markets: cfg.Watch.Markets,
		log:     log.NewHelper(logger),
	}
}

// Markets 可选市场列表
func (uc *WatchUseCase) Markets() []string {
	return append([]string(nil), uc.markets...)
}

// Run 执行一次临时监控，未指定市场时使用全部可选市场
func (uc *WatchUseCase) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	q := req.Query
	if len(q.Markets) == 0 {
		q.Markets = uc.Markets()
	}

	out, err := uc.runner.Run(ctx, engine.RunOptions{Query: q, MaxResults: req.MaxResults})
	if err != nil {
		uc.log.WithContext(ctx).Errorf("watch %q failed: %v", q.Topic, err)
		return nil, err
	}
	return &RunResult{
		Report:  out.Report,
		Items:   out.Report.Filter(req.Filter),
		Stats:   out.Stats,
		Caption: out.Stats.Caption(),
	}, nil
}

// RunSaved 按名称执行已保存的监控
func (uc *WatchUseCase) RunSaved(ctx context.Context, name string, maxResults int, filter model.ItemFilter) (*RunResult, error) {
	w, err := uc.repo.GetWatch(ctx, name)
	if err != nil {
		return nil, err
	}
	return uc.Run(ctx, RunRequest{Query: *w, MaxResults: maxResults, Filter: filter})
}

func (uc *WatchUseCase) ListWatches(ctx context.Context) ([]model.WatchQuery, error) {
	return uc.repo.ListWatches(ctx)
}

func (uc *WatchUseCase) GetWatch(ctx context.Context, name string) (*model.WatchQuery, error) {
	return uc.repo.GetWatch(ctx, name)
}

// SaveWatch 校验后保存 (同名覆盖)
func (uc *WatchUseCase) SaveWatch(ctx context.Context, w model.WatchQuery) (model.WatchQuery, error) {
	w, err := storage.ValidateWatch(w)
	if err != nil {
		return w, err
	}
	return w, uc.repo.SaveWatch(ctx, w)
}

func (uc *WatchUseCase) DeleteWatch(ctx context.Context, name string) error {
	return uc.repo.DeleteWatch(ctx, name)
}

func (uc *WatchUseCase) ListDomains(ctx context.Context) ([]string, error) {
	return uc.repo.ListDomains(ctx)
}

// AddDomain 白名单变化会改变发现结果，缓存随之失效
func (uc *WatchUseCase) AddDomain(ctx context.Context, domain string) (string, error) {
	d, err := uc.repo.AddDomain(ctx, domain)
	if err != nil {
		return "", err
	}
	uc.runner.PurgeCache()
	return d, nil
}

func (uc *WatchUseCase) RemoveDomain(ctx context.Context, domain string) error {
	if err := uc.repo.RemoveDomain(ctx, domain); err != nil {
		return err
	}
	uc.runner.PurgeCache()
	return nil
}

// Flags 当前生效的开关
func (uc *WatchUseCase) Flags() config.Flags {
	return uc.flags.Flags()
}

// UpdateFlags 在运行期修改开关，下一次运行开始时生效
func (uc *WatchUseCase) UpdateFlags(ctx context.Context, p FlagsPatch) (config.Flags, error) {
	if p.MaxResults != nil && (*p.MaxResults < config.MinMaxResults || *p.MaxResults > config.MaxMaxResults) {
		return uc.Flags(), fmt.Errorf("%w: max_results must be within [%d,%d], got %d",
			ErrInvalidFlags, config.MinMaxResults, config.MaxMaxResults, *p.MaxResults)
	}
	if p.CacheTTLHours != nil && *p.CacheTTLHours < 0 {
		return uc.Flags(), fmt.Errorf("%w: cache_ttl_hours must not be negative", ErrInvalidFlags)
	}

	f := uc.flags.Update(func(f *config.Flags) {
		if p.DiscoveryEnabled != nil {
			f.DiscoveryEnabled = *p.DiscoveryEnabled
		}
		if p.ContentEnabled != nil {
			f.ContentEnabled = *p.ContentEnabled
		}
		if p.ReadabilityEnabled != nil {
			f.ReadabilityEnabled = *p.ReadabilityEnabled
		}
		if p.MaxResults != nil {
			f.MaxResults = *p.MaxResults
		}
		if p.CacheTTLHours != nil {
			f.CacheTTL = time.Duration(*p.CacheTTLHours * float64(time.Hour))
		}
	})
	uc.runner.PurgeCache()
	uc.log.WithContext(ctx).Infof("flags updated: %+v", f)
	return f, nil
}
