package main

import (
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/iWorld-y/watch_tower/app/display/internal/server"
)

// newApp 依赖 Reloader 以确保配置监听随应用一起注册
func newApp(logger log.Logger, hs *http.Server, _ *server.Reloader) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(hs),
	)
}
