package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

// Discoverer 定义通用的发现接口：查询 + 域名白名单 -> 候选链接
type Discoverer interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 通用搜索请求
type Request struct {
	Query      string
	Domains    []string
	MaxResults int
	Timeframe  model.Timeframe // 空值表示不限制时间
	Disabled   bool            // 功能开关关闭时为 true，不产生任何网络请求
}

// Response 通用搜索响应
type Response struct {
	Candidates []model.SearchCandidate
	Status     Status
}

// Status 发现结果状态
type Status string

const (
	StatusOK               Status = "OK"
	StatusDisabled         Status = "DISABLED"
	StatusMisconfigured    Status = "MISCONFIGURED"
	StatusQuotaExceeded    Status = "QUOTA_EXCEEDED"
	StatusPermissionDenied Status = "PERMISSION_DENIED"
)

var (
	ErrMisconfigured    = errors.New("search provider misconfigured")
	ErrQuotaExceeded    = errors.New("search quota exceeded")
	ErrPermissionDenied = errors.New("search permission denied")
)

// Fatal 致命状态会中止整个发现阶段
func (s Status) Fatal() bool {
	switch s {
	case StatusMisconfigured, StatusQuotaExceeded, StatusPermissionDenied:
		return true
	}
	return false
}

// StatusOf 把错误映射为状态，非致命错误返回 StatusOK
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrQuotaExceeded):
		return StatusQuotaExceeded
	case errors.Is(err, ErrPermissionDenied):
		return StatusPermissionDenied
	case errors.Is(err, ErrMisconfigured):
		return StatusMisconfigured
	}
	return StatusOK
}

// Disabled 功能关闭时的标准响应
func Disabled() *Response {
	return &Response{Status: StatusDisabled}
}

// Misconfigured 配置缺失时的标准响应
func Misconfigured(reason string) (*Response, error) {
	return &Response{Status: StatusMisconfigured}, fmt.Errorf("%w: %s", ErrMisconfigured, reason)
}

// Dedup 按 URL 去重，保留第一次出现的标题
func Dedup(in []model.SearchCandidate) []model.SearchCandidate {
	seen := make(map[string]struct{}, len(in))
	out := make([]model.SearchCandidate, 0, len(in))
	for _, c := range in {
		key := strings.TrimSpace(c.URL)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// BatchDomains 把白名单按固定大小切分
func BatchDomains(domains []string, size int) [][]string {
	if size <= 0 {
		size = len(domains)
	}
	var batches [][]string
	for start := 0; start < len(domains); start += size {
		end := min(start+size, len(domains))
		batches = append(batches, domains[start:end])
	}
	return batches
}

// SiteClause 生成 site: 析取子句，例如 (site:fda.gov OR site:iso.org)
func SiteClause(domains []string) string {
	parts := make([]string, 0, len(domains))
	for _, d := range domains {
		parts = append(parts, "site:"+d)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// ScopedQuery 查询文本追加 site: 子句
func ScopedQuery(query string, domains []string) string {
	if len(domains) == 0 {
		return query
	}
	return strings.TrimSpace(query) + " " + SiteClause(domains)
}
