package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/logger"
	dm "github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

// ErrAnalysisFailed LLM 输出无法解析为报告
var ErrAnalysisFailed = errors.New("analysis failed")

// errReportShape 合法 JSON 但既没有 executive_summary 也没有 items
var errReportShape = errors.New("response is not a report: missing executive_summary and items")

// Input 一次合成的输入
type Input struct {
	Topic       string
	Markets     []string
	Digest      string
	Timeframe   dm.Timeframe
	SourceCount int
	Today       time.Time
}

// Offline 摘要是否为离线哨兵
func (in Input) Offline() bool {
	return strings.TrimSpace(in.Digest) == "" || in.Digest == dm.OfflineDigest
}

// Synthesizer 调用 LLM 生成结构化报告
type Synthesizer struct {
	cm         model.BaseChatModel
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
}

// Option 合成器选项
type Option func(*Synthesizer)

// WithRetry 覆盖重试次数与退避基数
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(s *Synthesizer) {
		s.maxRetries = maxRetries
		s.baseDelay = baseDelay
	}
}

// New 创建合成器，limiter 为 nil 时不限流
func New(cm model.BaseChatModel, limiter *rate.Limiter, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		cm:         cm,
		limiter:    limiter,
		maxRetries: 3,
		baseDelay:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize 生成报告。429 按指数退避重试；JSON 解析失败重试后返回 ErrAnalysisFailed
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) (*dm.Report, error) {
	if in.Today.IsZero() {
		in.Today = time.Now()
	}
	prompt := BuildPrompt(in)

	var lastErr error
	for i := 0; i <= s.maxRetries; i++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		messages := []*schema.Message{
			{Role: schema.System, Content: "You are a JSON generator. Output a single JSON object only."},
			{Role: schema.User, Content: prompt},
		}

		resp, err := s.cm.Generate(ctx, messages)
		if err != nil {
			if isRateLimited(err) {
				lastErr = err
				if i < s.maxRetries {
					logger.Log.Warnf("LLM 限流，第 %d 次重试", i+1)
					if err := sleep(ctx, s.baseDelay*time.Duration(1<<i)); err != nil {
						return nil, err
					}
					continue
				}
			}
			return nil, fmt.Errorf("llm generate: %w", err)
		}

		report, err := Parse(resp.Content)
		if err != nil {
			lastErr = err
			logger.Log.Warnf("LLM 输出解析失败 (第 %d 次): %v", i+1, err)
			continue
		}
		report.SourceCount = in.SourceCount
		return report, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, lastErr)
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Parse 去掉代码块标记后解析 JSON 并做规范化
func Parse(content string) (*dm.Report, error) {
	clean := []byte(stripFence(content))
	var shape struct {
		ExecutiveSummary *string          `json:"executive_summary"`
		Items            *json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(clean, &shape); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if shape.ExecutiveSummary == nil && shape.Items == nil {
		return nil, errReportShape
	}
	var raw rawReport
	if err := json.Unmarshal(clean, &raw); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return Normalize(raw), nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	// 模型偶尔在 JSON 前后夹带说明文字
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}
