package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/density"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/logger"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultTimeout  = 15 * time.Second
	defaultPDFChars = 4000
	defaultWebChars = 8000
	maxDocumentSize = 50 << 20
	maxPageSize     = 10 << 20
)

var (
	errContentType = errors.New("unexpected content type")
	errUnreadable  = errors.New("document has no extractable text")
)

// ContentRetriever 二级正文提供方：给定 URL 返回尽力而为的纯文本
type ContentRetriever interface {
	Content(ctx context.Context, url string) (string, error)
}

// Options 抽取参数，零值字段使用默认值
type Options struct {
	Timeout     time.Duration // 文档下载与二级提供方的单次超时
	ReadTimeout time.Duration // 直接抓取网页正文的单次超时，零值沿用 Timeout
	PDFChars    int
	WebChars    int
	Density     density.Options
}

// Toggles 本次运行生效的抽取路径开关
type Toggles struct {
	Retriever   bool
	Readability bool
}

// Fetcher 按内容类型选择抽取路径。除只读配置外不持有可变状态，可并发调用
type Fetcher struct {
	client    *http.Client
	retriever ContentRetriever
	opts      Options
}

// Option Fetcher 选项
type Option func(*Fetcher)

// WithHTTPClient 自定义 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option { return func(f *Fetcher) { f.client = hc } }

// New 创建 Fetcher，retriever 可以为 nil
func New(retriever ContentRetriever, opts Options, fopts ...Option) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = opts.Timeout
	}
	if opts.PDFChars <= 0 {
		opts.PDFChars = defaultPDFChars
	}
	if opts.WebChars <= 0 {
		opts.WebChars = defaultWebChars
	}
	opts.Density.MaxChars = opts.PDFChars

	f := &Fetcher{
		client:    &http.Client{},
		retriever: retriever,
		opts:      opts,
	}
	for _, o := range fopts {
		o(f)
	}
	return f
}

// Process 抽取单个候选。任何失败都表现为返回 nil，不会向调用方报错
func (f *Fetcher) Process(ctx context.Context, cand model.SearchCandidate, keywords []string, t Toggles) *model.ExtractedSource {
	title := strings.TrimSpace(cand.Title)
	if title == "" {
		title = cand.URL
	}

	if IsDocumentURL(cand.URL) {
		text, err := f.fetchPDF(ctx, cand.URL, keywords)
		if err == nil {
			return &model.ExtractedSource{Source: cand.URL, Type: model.SourcePDF, Title: title, Content: text}
		}
		logger.Log.Debugf("PDF 抽取失败，转网页路径 [%s]: %v", cand.URL, err)
	}

	text, err := f.fetchWeb(ctx, cand.URL, t)
	if err != nil {
		logger.Log.Debugf("网页抽取失败 [%s]: %v", cand.URL, err)
		return nil
	}
	return &model.ExtractedSource{Source: cand.URL, Type: model.SourceWeb, Title: title, Content: text}
}

// IsDocumentURL 根据路径后缀判断是否为 PDF 文档
func IsDocumentURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.HasSuffix(strings.ToLower(raw), ".pdf")
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

func (f *Fetcher) fetchPDF(ctx context.Context, docURL string, keywords []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	body, err := f.get(ctx, docURL, "application/pdf", maxDocumentSize)
	if err != nil {
		return "", err
	}

	text, err := PDFText(body)
	if err != nil {
		return "", err
	}

	// 打分在字节全部收到之后进行
	out := density.Extract(text, keywords, f.opts.Density)
	if out == density.UnreadableMarker {
		return "", errUnreadable
	}
	return out, nil
}

func (f *Fetcher) fetchWeb(ctx context.Context, pageURL string, t Toggles) (string, error) {
	var errs []error

	if t.Retriever && f.retriever != nil {
		rctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
		text, err := f.retriever.Content(rctx, pageURL)
		cancel()
		if err == nil && strings.TrimSpace(text) != "" {
			return density.Truncate(strings.TrimSpace(text), f.opts.WebChars), nil
		}
		if err == nil {
			err = errors.New("empty content")
		}
		errs = append(errs, fmt.Errorf("retriever: %w", err))
	}

	if t.Readability {
		text, err := f.readPage(ctx, pageURL)
		if err == nil {
			return density.Truncate(text, f.opts.WebChars), nil
		}
		errs = append(errs, fmt.Errorf("readability: %w", err))
	}

	if len(errs) == 0 {
		return "", errors.New("no web extraction path enabled")
	}
	return "", errors.Join(errs...)
}

func (f *Fetcher) readPage(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.ReadTimeout)
	defer cancel()

	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	body, err := f.get(ctx, pageURL, "html", maxPageSize)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", errors.New("empty article")
	}
	return text, nil
}

// get 下载并校验状态码与 Content-Type
func (f *Fetcher) get(ctx context.Context, target, wantType string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	res, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	if ct := strings.ToLower(res.Header.Get("Content-Type")); !strings.Contains(ct, wantType) {
		return nil, fmt.Errorf("%w: %q", errContentType, ct)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	return body, nil
}

// PDFText 提取 PDF 全部页面的文本。解析库遇到损坏文件可能 panic，这里转为错误
func PDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	var content strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// 跳过无法解析的页面
			continue
		}
		if content.Len() > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(strings.TrimSpace(pageText))
	}
	return content.String(), nil
}
