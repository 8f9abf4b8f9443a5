package main

import (
	"flag"
	"os"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/iWorld-y/watch_tower/app/display/internal/conf"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 是服务的名称
	Name string = "display"
	// Version 是服务的版本号
	Version string
	// flagconf 是配置文件的路径命令行参数
	flagconf string
	// envPrefix 参与配置占位符解析的环境变量前缀
	envPrefix = "WATCH_"

	id, _ = os.Hostname()
)

func init() {
	// 初始化命令行参数，默认指向 display 项目的配置文件
	flag.StringVar(&flagconf, "conf", "app/display/configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()
	// 初始化日志记录器，包含时间戳、调用者信息、服务ID等上下文
	logger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)

	// 初始化配置加载器，密钥通过 WATCH_ 前缀的环境变量以 ${KEY:} 占位符注入；
	// 文件变更时由 Reloader 刷新功能开关
	c := config.New(
		config.WithSource(
			env.NewSource(envPrefix),
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	// 扫描配置到 Bootstrap 结构体
	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}
	if bc.Radar == nil {
		log.NewHelper(logger).Warn("config has no radar section, running with defaults")
	}

	app, cleanup, err := initApp(c, bc.Server, bc.Data, bc.Radar, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		panic(err)
	}
}
