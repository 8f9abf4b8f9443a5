package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/search"
)

const baseURL = "https://api.tavily.com/search"

// 单次请求最多返回的结果数
const maxResultsPerRequest = 20

const defaultBatchSize = 8

// ErrNoContent 没有可用的正文
var ErrNoContent = errors.New("tavily returned no content")

// Client Tavily API 客户端
type Client struct {
	apiKey    string
	baseURL   string
	batchSize int
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

// NewClient 创建一个新的 Tavily 客户端
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:    apiKey,
		baseURL:   baseURL,
		batchSize: defaultBatchSize,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ensure Client implements search.Discoverer
var _ search.Discoverer = (*Client)(nil)

// Search implements search.Discoverer，域名白名单通过 include_domains 传递
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	if req.Disabled {
		return search.Disabled(), nil
	}
	if c.apiKey == "" {
		return search.Misconfigured("tavily api key is missing")
	}
	if len(req.Domains) == 0 {
		return search.Misconfigured("domain allow-list is empty")
	}

	batches := search.BatchDomains(req.Domains, c.batchSize)
	// Tavily 没有分页，每个批次只发一次请求
	pages := search.PlanPages(req.MaxResults, len(batches), maxResultsPerRequest)
	if len(pages) > 1 {
		pages = pages[:1]
	}

	found, err := search.FanOut(ctx, batches, pages, func(ctx context.Context, batch []string, page search.Page) ([]model.SearchCandidate, error) {
		resp, err := c.doSearch(ctx, SearchRequest{
			Query:          req.Query,
			MaxResults:     page.Num,
			IncludeDomains: batch,
			TimeRange:      TimeRange(req.Timeframe),
		})
		if err != nil {
			return nil, err
		}
		out := make([]model.SearchCandidate, 0, len(resp.Results))
		for _, r := range resp.Results {
			out = append(out, model.SearchCandidate{Title: r.Title, URL: r.URL})
		}
		return out, nil
	})
	return search.Finish(found, req.MaxResults, err)
}

// Content 把 URL 作为伪查询，返回排名第一的结果正文
func (c *Client) Content(ctx context.Context, pageURL string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: tavily api key is missing", search.ErrMisconfigured)
	}
	resp, err := c.doSearch(ctx, SearchRequest{Query: pageURL, MaxResults: 1})
	if err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", ErrNoContent
	}
	content := strings.TrimSpace(resp.Results[0].Content)
	if content == "" {
		return "", ErrNoContent
	}
	return content, nil
}

// SearchRequest Tavily 搜索请求参数
type SearchRequest struct {
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth,omitempty"` // basic or advanced
	Topic             string   `json:"topic,omitempty"`        // general or news
	MaxResults        int      `json:"max_results,omitempty"`
	TimeRange         string   `json:"time_range,omitempty"` // month or year
	IncludeRawContent bool     `json:"include_raw_content,omitempty"`
	IncludeAnswer     bool     `json:"include_answer,omitempty"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	ExcludeDomains    []string `json:"exclude_domains,omitempty"`
}

// SearchResponse Tavily 搜索响应
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Answer  string         `json:"answer"`
}

// SearchResult 单个搜索结果
type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	RawContent    string  `json:"raw_content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

// doSearch 执行搜索 (Internal)
func (c *Client) doSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	// 设置默认值
	if req.SearchDepth == "" {
		req.SearchDepth = "basic"
	}
	if req.MaxResults == 0 {
		req.MaxResults = 5
	}
	if req.Topic == "" {
		req.Topic = "general"
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}

	httpReq.Header.Add("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Add("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests, 432:
		// 432: 套餐额度用尽
		return nil, fmt.Errorf("%w (tavily status %d)", search.ErrQuotaExceeded, res.StatusCode)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w (tavily status %d)", search.ErrPermissionDenied, res.StatusCode)
	default:
		return nil, fmt.Errorf("tavily api error (status %d): %s", res.StatusCode, string(body))
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}

	return &searchResp, nil
}

// TimeRange 时间窗口映射为 time_range 参数
func TimeRange(tf model.Timeframe) string {
	switch tf {
	case model.Timeframe30Days:
		return "month"
	case model.Timeframe12Months:
		return "year"
	}
	return ""
}
