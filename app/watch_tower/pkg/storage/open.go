package storage

import (
	"context"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/config"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/logger"
)

// Open 按配置选择存储：配置了数据库用 PostgreSQL，其次 YAML 文件，否则内存。
// 新建的文件与内存存储以 cfg.Domains 作为初始白名单。
func Open(cfg *config.Config) (Store, error) {
	switch {
	case cfg.DB.Host != "":
		s, err := NewPostgresStore(cfg.DB)
		if err != nil {
			return nil, err
		}
		logger.Log.Info("已成功连接到数据库")
		if err := seed(s, cfg.Domains); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case cfg.Watch.SourcesFile != "":
		logger.Log.Infof("使用文件存储: %s", cfg.Watch.SourcesFile)
		return NewFileStore(cfg.Watch.SourcesFile, cfg.Domains)
	default:
		logger.Log.Info("未配置数据库信息，使用内存存储")
		return NewMemoryStore(cfg.Domains), nil
	}
}

// seed 白名单为空时写入初始域名
func seed(s Store, domains []string) error {
	ctx := context.Background()
	existing, err := s.ListDomains(ctx)
	if err != nil || len(existing) > 0 {
		return err
	}
	for _, d := range domains {
		if _, err := s.AddDomain(ctx, d); err != nil {
			logger.Log.Warnf("跳过非法域名 %q: %v", d, err)
		}
	}
	return nil
}
