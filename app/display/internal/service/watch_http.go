package service

import (
	"context"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/iWorld-y/watch_tower/app/display/internal/biz"
)

// RegisterWatchHTTPServer 注册 /v1 下的全部路由
func RegisterWatchHTTPServer(srv *http.Server, s *WatchService) {
	r := srv.Route("/v1")
	r.POST("/run", runHandler(s))
	r.GET("/markets", marketsHandler(s))
	r.GET("/flags", flagsHandler(s))
	r.PATCH("/flags", updateFlagsHandler(s))
	r.GET("/domains", listDomainsHandler(s))
	r.POST("/domains", addDomainHandler(s))
	r.DELETE("/domains/{domain}", removeDomainHandler(s))
	r.GET("/watches", listWatchesHandler(s))
	r.GET("/watches/{name}", getWatchHandler(s))
	r.PUT("/watches/{name}", saveWatchHandler(s))
	r.DELETE("/watches/{name}", deleteWatchHandler(s))
	r.POST("/watches/{name}/run", runSavedHandler(s))
}

// invoke 经过服务端中间件 (recovery 等) 执行 fn 并写回结果
func invoke(ctx http.Context, req interface{}, fn func(context.Context, interface{}) (interface{}, error)) error {
	h := ctx.Middleware(fn)
	out, err := h(ctx, req)
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}

func runHandler(s *WatchService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in RunReq
		if err := ctx.Bind(&in); err != nil {
			return errors.BadRequest(ReasonBadRequest, err.Error())
		}
		return invoke(ctx, &in, func(c context.Context, req interface{}) (interface{}, error) {
			return s.Run(c, req.(*RunReq))
		})
	}
}

func runSavedHandler(s *WatchService) http.HandlerFunc {
	return func(ctx http.Context) error {
		q := ctx.Query()
		n, err := parseMax(q.Get("max"))
		if err != nil {
			return err
		}
		in := &RunSavedReq{
			Name:       ctx.Vars().Get("name"),
			MaxResults: n,
			Filter:     newFilter(splitList(q["impact"]), splitList(q["category"]), q.Get("q")),
		}
		return invoke(ctx, in, func(c context.Context, req interface{}) (interface{}, error) {
			return s.RunSaved(c, req.(*RunSavedReq))
		})
	}
}

func marketsHandler(s *WatchService) http.HandlerFunc {
	return func(ctx http.Context) error {
		return ctx.Result(200, s.Markets(ctx))
	}
}

func flagsHandler(s *WatchService) http.HandlerFunc {
	return func(ctx http.Context) error {
		return ctx.Result(200, s.Flags(ctx))
	}
}

func updateFlagsHandler(s *WatchService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in biz.FlagsPatch
		if err := ctx.Bind(&in); err != nil {
			return errors.BadRequest(ReasonBadRequest, err.Error())
		}
		return invoke(ctx, &in, func(c context.Context, req interface{}) (interface{}, error) {
			return s.UpdateFlags(c, req.(*biz.FlagsPatch))
		})
	}
}

func listDomainsHandler(s *WatchService) http.HandlerFunc {
	return func(ctx http.Context) error {
		return invoke(ctx, nil, func(c context.Context, _ interface{}) (interface{}, error) {
			return s.ListDomains(c)
		})
	}
}

func addDomainHandler(s *WatchService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in DomainReq
		if err := ctx.Bind(&in); err != nil {
			return errors.BadRequest(ReasonBadRequest, err.Error())
		}
		return invoke(ctx, &in, func(c context.Context, req interface{}) (interface{}, error) {
			return s.AddDomain(c, req.(*DomainReq))
		})
	}
}

func removeDomainHandler(s *WatchService) http.HandlerFunc {
	return func(ctx http.Context) error {
		domain := ctx.Vars().Get("domain")
		return invoke(ctx, domain, func(c context.Context, _ interface{}) (interface{}, error) {
			if err := s.RemoveDomain(c, domain); err != nil {
				return nil, err
			}
			return &DomainReq{Domain: domain}, nil
		})
	}
}

func listWatchesHandler(s *WatchService) http.HandlerFunc {
	return func(ctx http.Context) error {
		return invoke(ctx, nil, func(c context.Context, _ interface{}) (interface{}, error) {
			return s.ListWatches(c)
		})
	}
}

func getWatchHandler(s *WatchService) http.HandlerFunc {
	return func(ctx http.Context) error {
		name := ctx.Vars().Get("name")
		return invoke(ctx, name, func(c context.Context, _ interface{}) (interface{}, error) {
			return s.GetWatch(c, name)
		})
	}
}

func saveWatchHandler(s *WatchService) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in WatchReq
		if err := ctx.Bind(&in); err != nil {
			return errors.BadRequest(ReasonBadRequest, err.Error())
		}
		in.Name = ctx.Vars().Get("name")
		return invoke(ctx, &in, func(c context.Context, req interface{}) (interface{}, error) {
			return s.SaveWatch(c, req.(*WatchReq))
		})
	}
}

func deleteWatchHandler(s *WatchService) http.HandlerFunc {
	return func(ctx http.Context) error {
		name := ctx.Vars().Get("name")
		return invoke(ctx, name, func(c context.Context, _ interface{}) (interface{}, error) {
			if err := s.DeleteWatch(c, name); err != nil {
				return nil, err
			}
			return &WatchReq{Name: name}, nil
		})
	}
}

// splitList 同时支持 ?impact=High&impact=Low 与 ?impact=High,Low
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}
