package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/config"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/engine"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/storage"
)

// mockRunner 模拟引擎
type mockRunner struct {
	last   engine.RunOptions
	err    error
	purged int
}

func (m *mockRunner) Run(ctx context.Context, opts engine.RunOptions) (*engine.Outcome, error) {
	m.last = opts
	if m.err != nil {
		return nil, m.err
	}
	return &engine.Outcome{
		Report: &model.Report{Items: []model.ReportItem{
			{Title: "MDR transition extended", Impact: model.ImpactHigh, Category: model.CategoryRegulation},
			{Title: "Webinar recap", Impact: model.ImpactLow, Category: model.CategoryNews},
		}},
		Stats: engine.RunStats{Raw: 10, Processed: 8, Kept: 2, Mode: model.ModeOnline},
	}, nil
}

func (m *mockRunner) PurgeCache() { m.purged++ }

func newTestUseCase(t *testing.T) (*WatchUseCase, *mockRunner, *config.FlagStore) {
	t.Helper()
	runner := &mockRunner{}
	flags := config.NewFlagStore(config.Flags{DiscoveryEnabled: true, MaxResults: 10, CacheTTL: time.Hour})
	cfg := &config.Config{Watch: config.WatchConfig{Markets: []string{"EU (CE)", "USA (FDA)"}}}
	uc := NewWatchUseCase(runner, storage.NewMemoryStore([]string{"fda.gov"}), flags, cfg, log.DefaultLogger)
	return uc, runner, flags
}

func TestWatchUseCase_RunDefaults(t *testing.T) {
	uc, runner, _ := newTestUseCase(t)

	res, err := uc.Run(context.Background(), RunRequest{Query: model.WatchQuery{Topic: "MDR"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"EU (CE)", "USA (FDA)"}, runner.last.Query.Markets)
	assert.Equal(t, model.Timeframe(""), runner.last.Query.Timeframe)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, "Analyzed 10 sources → Kept 2 relevant updates", res.Caption)
}

func TestWatchUseCase_RunFilter(t *testing.T) {
	uc, _, _ := newTestUseCase(t)

	res, err := uc.Run(context.Background(), RunRequest{
		Query:  model.WatchQuery{Topic: "MDR", Markets: []string{"EU (CE)"}},
		Filter: model.ItemFilter{Impacts: []model.Impact{model.ImpactHigh}},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "MDR transition extended", res.Items[0].Title)
	assert.Len(t, res.Report.Items, 2)
}

func TestWatchUseCase_RunError(t *testing.T) {
	uc, runner, _ := newTestUseCase(t)
	runner.err = engine.ErrNoResults

	_, err := uc.Run(context.Background(), RunRequest{Query: model.WatchQuery{Topic: "MDR"}})
	assert.True(t, errors.Is(err, engine.ErrNoResults))
}

func TestWatchUseCase_SavedWatches(t *testing.T) {
	uc, runner, _ := newTestUseCase(t)
	ctx := context.Background()

	saved, err := uc.SaveWatch(ctx, model.WatchQuery{Name: " mdr ", Topic: "MDR", Markets: []string{"EU (CE)"}, Timeframe: model.Timeframe30Days})
	require.NoError(t, err)
	assert.Equal(t, "mdr", saved.Name)

	_, err = uc.SaveWatch(ctx, model.WatchQuery{Name: "empty"})
	assert.True(t, errors.Is(err, storage.ErrInvalidWatch))

	_, err = uc.RunSaved(ctx, "mdr", 5, model.ItemFilter{})
	require.NoError(t, err)
	assert.Equal(t, "MDR", runner.last.Query.Topic)
	assert.Equal(t, 5, runner.last.MaxResults)

	_, err = uc.RunSaved(ctx, "missing", 0, model.ItemFilter{})
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	require.NoError(t, uc.DeleteWatch(ctx, "mdr"))
	list, err := uc.ListWatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWatchUseCase_DomainsPurgeCache(t *testing.T) {
	uc, runner, _ := newTestUseCase(t)
	ctx := context.Background()

	d, err := uc.AddDomain(ctx, "https://www.EMA.europa.eu/en")
	require.NoError(t, err)
	assert.Equal(t, "ema.europa.eu", d)
	assert.Equal(t, 1, runner.purged)

	require.NoError(t, uc.RemoveDomain(ctx, "fda.gov"))
	assert.Equal(t, 2, runner.purged)

	domains, err := uc.ListDomains(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ema.europa.eu"}, domains)

	_, err = uc.AddDomain(ctx, "   ")
	assert.Error(t, err)
	assert.Equal(t, 2, runner.purged)
}

func TestWatchUseCase_UpdateFlags(t *testing.T) {
	uc, runner, flags := newTestUseCase(t)
	ctx := context.Background()

	off := false
	n := 25
	f, err := uc.UpdateFlags(ctx, FlagsPatch{DiscoveryEnabled: &off, MaxResults: &n})
	require.NoError(t, err)
	assert.False(t, f.DiscoveryEnabled)
	assert.Equal(t, 25, f.MaxResults)
	assert.Equal(t, time.Hour, f.CacheTTL)
	assert.Equal(t, f, flags.Flags())
	assert.Equal(t, 1, runner.purged)

	bad := 101
	_, err = uc.UpdateFlags(ctx, FlagsPatch{MaxResults: &bad})
	assert.True(t, errors.Is(err, ErrInvalidFlags))
	assert.Equal(t, 25, flags.Flags().MaxResults)

	neg := -1.0
	_, err = uc.UpdateFlags(ctx, FlagsPatch{CacheTTLHours: &neg})
	assert.True(t, errors.Is(err, ErrInvalidFlags))
}
