package data

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/config"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/storage"
)

type Data struct {
	store storage.Store
}

// NewData 按配置打开存储 (PostgreSQL / YAML 文件 / 内存)
func NewData(cfg *config.Config, logger log.Logger) (*Data, func(), error) {
	store, err := storage.Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
		if err := store.Close(); err != nil {
			log.NewHelper(logger).Errorf("close store: %v", err)
		}
	}
	return &Data{store: store}, cleanup, nil
}

// NewStore 暴露底层存储供引擎读取域名白名单
func NewStore(d *Data) storage.Store {
	return d.store
}
