package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/search"
)

func newServer(t *testing.T, handle func(req SearchRequest) (int, SearchResponse)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var req SearchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		status, resp := handle(req)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestContentUsesFirstResult(t *testing.T) {
	srv, calls := newServer(t, func(req SearchRequest) (int, SearchResponse) {
		assert.Equal(t, "https://fda.gov/news/recall", req.Query)
		assert.Equal(t, 1, req.MaxResults)
		return http.StatusOK, SearchResponse{Results: []SearchResult{{Content: " recall notice "}, {Content: "other"}}}
	})

	c := NewClient("key", WithBaseURL(srv.URL))
	content, err := c.Content(context.Background(), "https://fda.gov/news/recall")
	require.NoError(t, err)
	assert.Equal(t, "recall notice", content)
	assert.Equal(t, int32(1), calls.Load())
}

func TestContentEmpty(t *testing.T) {
	srv, _ := newServer(t, func(req SearchRequest) (int, SearchResponse) {
		return http.StatusOK, SearchResponse{}
	})

	_, err := NewClient("key", WithBaseURL(srv.URL)).Content(context.Background(), "https://x.org")
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestSearchIncludeDomains(t *testing.T) {
	srv, calls := newServer(t, func(req SearchRequest) (int, SearchResponse) {
		assert.Equal(t, "year", req.TimeRange)
		assert.Equal(t, []string{"fda.gov", "iso.org"}, req.IncludeDomains)
		assert.Equal(t, 4, req.MaxResults)
		return http.StatusOK, SearchResponse{Results: []SearchResult{
			{Title: "a", URL: "https://fda.gov/a"},
			{Title: "dup", URL: "https://fda.gov/a"},
			{Title: "b", URL: "https://iso.org/b"},
		}}
	})

	c := NewClient("key", WithBaseURL(srv.URL))
	resp, err := c.Search(context.Background(), &search.Request{
		Query: "q", Domains: []string{"fda.gov", "iso.org"}, MaxResults: 4, Timeframe: model.Timeframe12Months,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Candidates, 2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearchStatusMapping(t *testing.T) {
	for code, want := range map[int]error{
		http.StatusTooManyRequests: search.ErrQuotaExceeded,
		432:                        search.ErrQuotaExceeded,
		http.StatusUnauthorized:    search.ErrPermissionDenied,
	} {
		srv, _ := newServer(t, func(req SearchRequest) (int, SearchResponse) { return code, SearchResponse{} })
		_, err := NewClient("key", WithBaseURL(srv.URL)).Search(context.Background(), &search.Request{
			Query: "q", Domains: []string{"fda.gov"}, MaxResults: 3,
		})
		assert.ErrorIs(t, err, want, "status %d", code)
	}
}

func TestSearchDisabledBeforeCredentials(t *testing.T) {
	resp, err := NewClient("").Search(context.Background(), &search.Request{Disabled: true})
	require.NoError(t, err)
	assert.Equal(t, search.StatusDisabled, resp.Status)

	resp, err = NewClient("").Search(context.Background(), &search.Request{Domains: []string{"fda.gov"}})
	assert.ErrorIs(t, err, search.ErrMisconfigured)
	assert.Equal(t, search.StatusMisconfigured, resp.Status)
}
