package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

func TestNormalizeDomain(t *testing.T) {
	cases := map[string]string{
		"fda.gov":                       "fda.gov",
		"  FDA.gov ":                    "fda.gov",
		"https://www.iso.org/standard/": "iso.org",
		"http://ec.europa.eu:8080/x?y":  "ec.europa.eu",
		"www.tga.gov.au.":               "tga.gov.au",
	}
	for in, want := range cases {
		got, err := NormalizeDomain(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "   ", "localhost", "http://"} {
		_, err := NormalizeDomain(bad)
		assert.ErrorIs(t, err, ErrInvalidDomain, bad)
	}
}

func TestValidateWatch(t *testing.T) {
	w, err := ValidateWatch(model.WatchQuery{Name: " batteries ", Topic: " lithium ", Markets: []string{"EU (CE)", " "}})
	require.NoError(t, err)
	assert.Equal(t, "batteries", w.Name)
	assert.Equal(t, "lithium", w.Topic)
	assert.Equal(t, []string{"EU (CE)"}, w.Markets)

	_, err = ValidateWatch(model.WatchQuery{Topic: "t"})
	assert.ErrorIs(t, err, ErrInvalidWatch)
	_, err = ValidateWatch(model.WatchQuery{Name: "n"})
	assert.ErrorIs(t, err, ErrInvalidWatch)
	_, err = ValidateWatch(model.WatchQuery{Name: "n", Topic: "t", Timeframe: "1w"})
	assert.ErrorIs(t, err, ErrInvalidWatch)
}

// exerciseStore 所有 Store 实现共用的行为检查
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	d, err := s.AddDomain(ctx, "https://www.FDA.gov/")
	require.NoError(t, err)
	assert.Equal(t, "fda.gov", d)
	_, err = s.AddDomain(ctx, "fda.gov")
	require.NoError(t, err)
	_, err = s.AddDomain(ctx, "iso.org")
	require.NoError(t, err)

	domains, err := s.ListDomains(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fda.gov", "iso.org"}, domains)

	require.NoError(t, s.RemoveDomain(ctx, "FDA.gov"))
	assert.ErrorIs(t, s.RemoveDomain(ctx, "fda.gov"), ErrNotFound)

	w := model.WatchQuery{Name: "batteries", Topic: "lithium battery", Markets: []string{"EU (CE)"}, Timeframe: model.Timeframe12Months}
	require.NoError(t, s.SaveWatch(ctx, w))
	w.Timeframe = model.Timeframe30Days
	require.NoError(t, s.SaveWatch(ctx, w))
	require.NoError(t, s.SaveWatch(ctx, model.WatchQuery{Name: "a-first", Topic: "sterilization"}))

	got, err := s.GetWatch(ctx, "batteries")
	require.NoError(t, err)
	assert.Equal(t, w, *got)

	list, err := s.ListWatches(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a-first", list[0].Name)

	require.NoError(t, s.DeleteWatch(ctx, "batteries"))
	_, err = s.GetWatch(ctx, "batteries")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteWatch(ctx, "batteries"), ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(nil))
}

func TestMemoryStoreSeed(t *testing.T) {
	s := NewMemoryStore([]string{"fda.gov", "bad", "FDA.GOV", "iso.org"})
	domains, err := s.ListDomains(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"fda.gov", "iso.org"}, domains)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sources.yaml")
	s, err := NewFileStore(path, nil)
	require.NoError(t, err)
	exerciseStore(t, s)

	// 重新打开后数据仍在
	reopened, err := NewFileStore(path, []string{"ignored.org"})
	require.NoError(t, err)
	domains, err := reopened.ListDomains(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"iso.org"}, domains)
	list, err := reopened.ListWatches(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sterilization", list[0].Topic)
}

func TestFileStoreSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	s, err := NewFileStore(path, []string{"tga.gov.au"})
	require.NoError(t, err)
	domains, err := s.ListDomains(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"tga.gov.au"}, domains)
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	s := NewMemoryStore(nil)
	require.NoError(t, seed(s, []string{"fda.gov", "bad"}))
	require.NoError(t, seed(s, []string{"iso.org"}))
	domains, err := s.ListDomains(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"fda.gov"}, domains)
}
