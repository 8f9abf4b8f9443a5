package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/config"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/google"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/searxng"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/tavily"
)

func TestNewDiscoverer(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()

	d, err := NewDiscoverer(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &google.Client{}, d)

	cfg.Search.Provider = "SearXNG"
	d, err = NewDiscoverer(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &searxng.Client{}, d)

	cfg.Search.Provider = "tavily"
	d, err = NewDiscoverer(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &tavily.Client{}, d)

	cfg.Search.Provider = "bing"
	_, err = NewDiscoverer(cfg, nil)
	assert.Error(t, err)
}
