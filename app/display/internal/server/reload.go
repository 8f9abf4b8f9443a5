package server

import (
	kconfig "github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/iWorld-y/watch_tower/app/display/internal/conf"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/config"
)

// 变更后需要刷新开关的配置键
var reloadKeys = []string{"radar.search", "radar.watch"}

// Purger 配置变更后需要丢弃的缓存
type Purger interface {
	PurgeCache()
}

// Reloader 监听配置文件，开关变化时原子替换 FlagStore 并清空结果缓存
type Reloader struct {
	source kconfig.Config
	flags  *config.FlagStore
	purger Purger
	log    *log.Helper
}

// NewReloader 注册配置监听
func NewReloader(source kconfig.Config, flags *config.FlagStore, purger Purger, logger log.Logger) (*Reloader, error) {
	r := &Reloader{source: source, flags: flags, purger: purger, log: log.NewHelper(logger)}
	for _, key := range reloadKeys {
		if err := source.Watch(key, r.observe); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Reloader) observe(key string, _ kconfig.Value) {
	var bc conf.Bootstrap
	if err := r.source.Scan(&bc); err != nil {
		r.log.Errorf("配置 %s 变更后解析失败: %v", key, err)
		return
	}
	if err := r.Apply(&bc); err != nil {
		r.log.Errorf("配置 %s 变更被拒绝，保留原开关: %v", key, err)
	}
}

// Apply 以新配置刷新开关，非法配置不生效
func (r *Reloader) Apply(bc *conf.Bootstrap) error {
	cfg := ToConfig(bc.Radar, bc.Data)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	f := cfg.Flags()
	r.flags.Store(f)
	r.purger.PurgeCache()
	r.log.Infof("功能开关已刷新: discovery=%t content=%t readability=%t max_results=%d ttl=%s",
		f.DiscoveryEnabled, f.ContentEnabled, f.ReadabilityEnabled, f.MaxResults, f.CacheTTL)
	return nil
}
