package google

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

const baseURL = "https://www.googleapis.com/customsearch/v1"

const (
	defaultBatchSize = 8
	defaultPageSize  = 10
)

// Client Google Programmable Search (Custom Search JSON API) 客户端
type Client struct {
	apiKey    string
	cx        string
	baseURL   string
	batchSize int
	pageSize  int
	client    *http.Client
	limiter   *rate.Limiter
}

// Option 客户端选项
type Option func(*Client)

// WithBaseURL 覆盖接口地址 (测试使用)
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient 自定义 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.client = hc } }

// WithLimiter 请求限流
func WithLimiter(l *rate.Limiter) Option { return func(c *Client) { c.limiter = l } }

// WithBatching 覆盖每批域名数与分页大小
func WithBatching(batchSize, pageSize int) Option {
	return func(c *Client) {
		if batchSize > 0 {
			c.batchSize = batchSize
		}
		if pageSize > 0 && pageSize <= defaultPageSize {
			c.pageSize = pageSize
		}
	}
}

// NewClient 创建一个新的 Google 搜索客户端
func NewClient(apiKey, cx string, opts ...Option) *Client {
	c := &Client{
		apiKey:    apiKey,
		cx:        cx,
		baseURL:   baseURL,
		batchSize: defaultBatchSize,
		pageSize:  defaultPageSize,
		client:    &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ensure Client implements search.Discoverer
var _ search.Discoverer = (*Client)(nil)

// searchResponse Custom Search 响应 (只取用到的字段)
type searchResponse struct {
	Items []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"items"`
}

// Search 实现 search.Discoverer
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	// 开关优先于凭据检查
	if req.Disabled {
		return search.Disabled(), nil
	}
	if c.apiKey == "" || c.cx == "" {
		return search.Misconfigured("google api key or search engine id is missing")
	}
	if len(req.Domains) == 0 {
		return search.Misconfigured("domain allow-list is empty")
	}

	batches := search.BatchDomains(req.Domains, c.batchSize)
	pages := search.PlanPages(req.MaxResults, len(batches), c.pageSize)
	logger.Log.Debugf("Google 发现: %d 个批次, 每批 %d 页", len(batches), len(pages))

	found, err := search.FanOut(ctx, batches, pages, func(ctx context.Context, batch []string, page search.Page) ([]model.SearchCandidate, error) {
		return c.fetchPage(ctx, search.ScopedQuery(req.Query, batch), page, req.Timeframe)
	})
	return search.Finish(found, req.MaxResults, err)
}

func (c *Client) fetchPage(ctx context.Context, query string, page search.Page, tf model.Timeframe) ([]model.SearchCandidate, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("cx", c.cx)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(page.Num))
	q.Set("start", strconv.Itoa(page.Start))
	if restrict := DateRestrict(tf); restrict != "" {
		q.Set("dateRestrict", restrict)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w (google status 429)", search.ErrQuotaExceeded)
	case http.StatusForbidden:
		return nil, fmt.Errorf("%w (google status 403)", search.ErrPermissionDenied)
	default:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return nil, fmt.Errorf("google api error (status %d): %s", res.StatusCode, string(body))
	}

	var resp searchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	out := make([]model.SearchCandidate, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, model.SearchCandidate{Title: it.Title, URL: it.Link})
	}
	return out, nil
}

// DateRestrict 时间窗口映射为 dateRestrict 参数
func DateRestrict(tf model.Timeframe) string {
	switch tf {
	case model.Timeframe30Days:
		return "d30"
	case model.Timeframe12Months:
		return "m12"
	case model.Timeframe3Years:
		return "y3"
	}
	return ""
}
