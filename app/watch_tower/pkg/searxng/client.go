package searxng

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/logger"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/search"
)

const (
	defaultBatchSize = 8
	// SearXNG 不支持指定每页条数，按常见的 10 条估算页数
	defaultPageSize = 10
	userAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client SearXNG API 客户端
type Client struct {
	baseURL   string
	timeout   time.Duration
	batchSize int
	client    *http.Client
	limiter   *rate.Limiter
}

// Option 客户端选项
type Option func(*Client)

// WithLimiter 请求限流
func WithLimiter(l *rate.Limiter) Option { return func(c *Client) { c.limiter = l } }

// WithBatchSize 每批域名数
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// NewClient 创建一个新的 SearXNG 客户端
func NewClient(baseURL string, timeout int, opts ...Option) *Client {
	t := time.Duration(timeout) * time.Second
	if t == 0 {
		t = 30 * time.Second
	}
	c := &Client{
		baseURL:   baseURL,
		timeout:   t,
		batchSize: defaultBatchSize,
		client: &http.Client{
			Timeout: t,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ensure Client implements search.Discoverer
var _ search.Discoverer = (*Client)(nil)

// SearchResponse SearXNG 响应结构
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// SearchResult SearXNG 单条结果
type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	PublishedDate string  `json:"publishedDate"`
	Score         float64 `json:"score"`
}

// Search 执行搜索
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	if req.Disabled {
		return search.Disabled(), nil
	}
	if c.baseURL == "" {
		return search.Misconfigured("searxng base url is missing")
	}
	if len(req.Domains) == 0 {
		return search.Misconfigured("domain allow-list is empty")
	}

	batches := search.BatchDomains(req.Domains, c.batchSize)
	pages := search.PlanPages(req.MaxResults, len(batches), defaultPageSize)

	found, err := search.FanOut(ctx, batches, pages, func(ctx context.Context, batch []string, page search.Page) ([]model.SearchCandidate, error) {
		items, err := c.fetchPage(ctx, search.ScopedQuery(req.Query, batch), page.Index+1, req.Timeframe)
		if err != nil {
			return nil, err
		}
		// 服务端不接受条数参数，本地裁剪到该页配额
		if len(items) > page.Num {
			items = items[:page.Num]
		}
		return items, nil
	})
	return search.Finish(found, req.MaxResults, err)
}

func (c *Client) fetchPage(ctx context.Context, query string, pageno int, tf model.Timeframe) ([]model.SearchCandidate, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = "/search"

	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("categories", "general")
	q.Set("pageno", strconv.Itoa(pageno))
	if r := TimeRange(tf); r != "" {
		q.Set("time_range", r)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	// 添加 User-Agent 避免被简单的反爬虫策略拦截
	httpReq.Header.Set("User-Agent", userAgent)

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w (searxng status 429)", search.ErrQuotaExceeded)
	case http.StatusForbidden:
		return nil, fmt.Errorf("%w (searxng status 403)", search.ErrPermissionDenied)
	default:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return nil, fmt.Errorf("searxng api error (status %d): %s", res.StatusCode, string(body))
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	out := make([]model.SearchCandidate, 0, len(searchResp.Results))
	for _, r := range searchResp.Results {
		out = append(out, model.SearchCandidate{Title: r.Title, URL: r.URL})
	}
	logger.Log.Debugf("SearXNG 第 %d 页返回 %d 条", pageno, len(out))
	return out, nil
}

// TimeRange 时间窗口映射为 time_range 参数。SearXNG 最大只支持 year，3 年窗口不做过滤
func TimeRange(tf model.Timeframe) string {
	switch tf {
	case model.Timeframe30Days:
		return "month"
	case model.Timeframe12Months:
		return "year"
	}
	return ""
}
