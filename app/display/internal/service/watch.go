package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/iWorld-y/watch_tower/app/display/internal/biz"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/config"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

type WatchService struct {
	uc  *biz.WatchUseCase
	log *log.Helper
}

func NewWatchService(uc *biz.WatchUseCase, logger log.Logger) *WatchService {
	return &WatchService{
		uc:  uc,
		log: log.NewHelper(logger),
	}
}

// RunReq 临时监控请求
type RunReq struct {
	Topic      string   `json:"topic"`
	Markets    []string `json:"markets"`
	Timeframe  string   `json:"timeframe"`
	MaxResults int      `json:"max_results"`
	Impacts    []string `json:"impacts"`
	Categories []string `json:"categories"`
	Text       string   `json:"q"`
}

// RunSavedReq 执行已保存的监控，过滤条件来自查询参数
type RunSavedReq struct {
	Name       string
	MaxResults int
	Filter     model.ItemFilter
}

type WatchReq struct {
	Name      string   `json:"name"`
	Topic     string   `json:"topic"`
	Markets   []string `json:"markets"`
	Timeframe string   `json:"timeframe"`
}

type DomainReq struct {
	Domain string `json:"domain"`
}

type DomainsReply struct {
	Domains []string `json:"domains"`
}

type WatchesReply struct {
	Watches []model.WatchQuery `json:"watches"`
}

type MarketsReply struct {
	Markets []string `json:"markets"`
}

// FlagsReply 开关的 JSON 表示
type FlagsReply struct {
	DiscoveryEnabled   bool    `json:"discovery_enabled"`
	ContentEnabled     bool    `json:"content_enabled"`
	ReadabilityEnabled bool    `json:"readability_enabled"`
	MaxResults         int     `json:"max_results"`
	CacheTTLHours      float64 `json:"cache_ttl_hours"`
}

func (s *WatchService) Run(ctx context.Context, req *RunReq) (*biz.RunResult, error) {
	tf, err := model.ParseTimeframe(req.Timeframe)
	if err != nil {
		return nil, errors.BadRequest(ReasonBadRequest, err.Error())
	}
	res, err := s.uc.Run(ctx, biz.RunRequest{
		Query: model.WatchQuery{
			Topic:     strings.TrimSpace(req.Topic),
			Markets:   req.Markets,
			Timeframe: tf,
		},
		MaxResults: req.MaxResults,
		Filter:     newFilter(req.Impacts, req.Categories, req.Text),
	})
	if err != nil {
		return nil, toError(err)
	}
	return res, nil
}

func (s *WatchService) RunSaved(ctx context.Context, req *RunSavedReq) (*biz.RunResult, error) {
	res, err := s.uc.RunSaved(ctx, req.Name, req.MaxResults, req.Filter)
	if err != nil {
		return nil, notFound(err, ReasonWatchNotFound)
	}
	return res, nil
}

func (s *WatchService) ListWatches(ctx context.Context) (*WatchesReply, error) {
	list, err := s.uc.ListWatches(ctx)
	if err != nil {
		return nil, toError(err)
	}
	return &WatchesReply{Watches: list}, nil
}

func (s *WatchService) GetWatch(ctx context.Context, name string) (*model.WatchQuery, error) {
	w, err := s.uc.GetWatch(ctx, name)
	if err != nil {
		return nil, notFound(err, ReasonWatchNotFound)
	}
	return w, nil
}

func (s *WatchService) SaveWatch(ctx context.Context, req *WatchReq) (*model.WatchQuery, error) {
	tf, err := model.ParseTimeframe(req.Timeframe)
	if err != nil {
		return nil, errors.BadRequest(ReasonBadRequest, err.Error())
	}
	w, err := s.uc.SaveWatch(ctx, model.WatchQuery{
		Name:      req.Name,
		Topic:     req.Topic,
		Markets:   req.Markets,
		Timeframe: tf,
	})
	if err != nil {
		return nil, toError(err)
	}
	return &w, nil
}

func (s *WatchService) DeleteWatch(ctx context.Context, name string) error {
	return notFound(s.uc.DeleteWatch(ctx, name), ReasonWatchNotFound)
}

func (s *WatchService) ListDomains(ctx context.Context) (*DomainsReply, error) {
	list, err := s.uc.ListDomains(ctx)
	if err != nil {
		return nil, toError(err)
	}
	return &DomainsReply{Domains: list}, nil
}

func (s *WatchService) AddDomain(ctx context.Context, req *DomainReq) (*DomainReq, error) {
	d, err := s.uc.AddDomain(ctx, req.Domain)
	if err != nil {
		return nil, toError(err)
	}
	return &DomainReq{Domain: d}, nil
}

func (s *WatchService) RemoveDomain(ctx context.Context, domain string) error {
	return notFound(s.uc.RemoveDomain(ctx, domain), ReasonDomainNotFound)
}

func (s *WatchService) Markets(context.Context) *MarketsReply {
	return &MarketsReply{Markets: s.uc.Markets()}
}

func (s *WatchService) Flags(context.Context) *FlagsReply {
	return flagsReply(s.uc.Flags())
}

func (s *WatchService) UpdateFlags(ctx context.Context, req *biz.FlagsPatch) (*FlagsReply, error) {
	f, err := s.uc.UpdateFlags(ctx, *req)
	if err != nil {
		return nil, toError(err)
	}
	return flagsReply(f), nil
}

func flagsReply(f config.Flags) *FlagsReply {
	return &FlagsReply{
		DiscoveryEnabled:   f.DiscoveryEnabled,
		ContentEnabled:     f.ContentEnabled,
		ReadabilityEnabled: f.ReadabilityEnabled,
		MaxResults:         f.MaxResults,
		CacheTTLHours:      f.CacheTTL.Hours(),
	}
}

// newFilter 影响等级与分类大小写不敏感，空串忽略
func newFilter(impacts, categories []string, text string) model.ItemFilter {
	f := model.ItemFilter{Text: text}
	for _, v := range impacts {
		if v = strings.TrimSpace(v); v != "" {
			f.Impacts = append(f.Impacts, model.Impact(strings.ToUpper(v[:1])+strings.ToLower(v[1:])))
		}
	}
	for _, v := range categories {
		if v = strings.TrimSpace(v); v != "" {
			f.Categories = append(f.Categories, model.Category(strings.ToUpper(v[:1])+strings.ToLower(v[1:])))
		}
	}
	return f
}

// parseMax 查询参数中的 max，缺省为 0 (使用当前开关)
func parseMax(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.BadRequest(ReasonBadRequest, "max must be an integer")
	}
	return n, nil
}
