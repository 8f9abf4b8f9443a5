package server

import (
	"embed"
	nethttp "net/http"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/iWorld-y/watch_tower/app/display/internal/conf"
	"github.com/iWorld-y/watch_tower/app/display/internal/service"
)

//go:embed assets/*
var assets embed.FS

func NewHTTPServer(c *conf.Server, s *service.WatchService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c != nil && c.Http != nil {
		if c.Http.Addr != "" {
			opts = append(opts, http.Address(c.Http.Addr))
		}
		if c.Http.Timeout != "" {
			if d, err := time.ParseDuration(c.Http.Timeout); err == nil {
				opts = append(opts, http.Timeout(d))
			} else {
				log.NewHelper(logger).Warnf("ignore invalid http timeout %q: %v", c.Http.Timeout, err)
			}
		}
	}

	srv := http.NewServer(opts...)
	service.RegisterWatchHTTPServer(srv, s)

	// 单页界面
	srv.HandleFunc("/", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/" {
			nethttp.NotFound(w, r)
			return
		}
		content, _ := assets.ReadFile("assets/index.html")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(content)
	})

	return srv
}
