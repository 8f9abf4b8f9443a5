package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/iWorld-y/watch_tower/app/display/internal/biz"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

type sourceRepo struct {
	data *Data
	log  *log.Helper
}

func NewSourceRepo(data *Data, logger log.Logger) biz.SourceRepo {
	return &sourceRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *sourceRepo) ListDomains(ctx context.Context) ([]string, error) {
	return r.data.store.ListDomains(ctx)
}

func (r *sourceRepo) AddDomain(ctx context.Context, domain string) (string, error) {
	d, err := r.data.store.AddDomain(ctx, domain)
	if err != nil {
		return "", err
	}
	r.log.WithContext(ctx).Infof("domain added: %s", d)
	return d, nil
}

func (r *sourceRepo) RemoveDomain(ctx context.Context, domain string) error {
	if err := r.data.store.RemoveDomain(ctx, domain); err != nil {
		return err
	}
	r.log.WithContext(ctx).Infof("domain removed: %s", domain)
	return nil
}

func (r *sourceRepo) ListWatches(ctx context.Context) ([]model.WatchQuery, error) {
	return r.data.store.ListWatches(ctx)
}

func (r *sourceRepo) GetWatch(ctx context.Context, name string) (*model.WatchQuery, error) {
	return r.data.store.GetWatch(ctx, name)
}

func (r *sourceRepo) SaveWatch(ctx context.Context, w model.WatchQuery) error {
	if err := r.data.store.SaveWatch(ctx, w); err != nil {
		return err
	}
	r.log.WithContext(ctx).Infof("watch saved: %s", w.Name)
	return nil
}

func (r *sourceRepo) DeleteWatch(ctx context.Context, name string) error {
	return r.data.store.DeleteWatch(ctx, name)
}
