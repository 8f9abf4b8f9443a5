package server

import (
	"github.com/google/wire"
	"github.com/iWorld-y/watch_tower/app/display/internal/biz"
	"github.com/iWorld-y/watch_tower/app/display/internal/data"
	"github.com/iWorld-y/watch_tower/app/display/internal/service"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/engine"
)

// ProviderSet 是展示服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	// Server providers
	NewHTTPServer,
	NewWatchConfig,
	NewFlagStore,
	NewWatchEngine,
	NewReloader,
	wire.Bind(new(Purger), new(*engine.Engine)),

	// Data providers
	data.NewData,
	data.NewStore,
	data.NewSourceRepo,

	// UseCase providers
	biz.NewWatchUseCase,
	wire.Bind(new(biz.WatchRunner), new(*engine.Engine)),

	// Service providers
	service.NewWatchService,
)
