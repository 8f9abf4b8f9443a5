package synth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dm "github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

// fakeChatModel 按顺序返回预设的回复
type fakeChatModel struct {
	mu      sync.Mutex
	replies []reply
	prompts []string
}

type reply struct {
	content string
	err     error
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, input[len(input)-1].Content)
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return &schema.Message{Role: schema.Assistant, Content: r.content}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

const validJSON = "```json\n" + `{
  "executive_summary": " New UN38.3 guidance. ",
  "items": [
    {"title": "UN38.3 update", "date": "March 5, 2026", "source_name": "ICAO", "url": "https://icao.int/a",
     "summary": "Revised test summary.", "tags": "battery, transport , ", "impact": "HIGH", "category": "regulations",
     "timeline": [{"date": "2026/07/01", "label": "Effective", "desc": "Mandatory"}]},
    {"title": "Recall", "category": "Enforcement"}
  ]
}` + "\n```"

func TestSynthesizeParsesAndNormalizes(t *testing.T) {
	cm := &fakeChatModel{replies: []reply{{content: validJSON}}}
	s := New(cm, nil)

	report, err := s.Synthesize(context.Background(), Input{
		Topic:       "lithium battery transport rules",
		Markets:     []string{"EU (CE)"},
		Digest:      "--- SOURCE 1 ---",
		Timeframe:   dm.Timeframe12Months,
		SourceCount: 8,
	})
	require.NoError(t, err)

	assert.Equal(t, "New UN38.3 guidance.", report.ExecutiveSummary)
	assert.Equal(t, 8, report.SourceCount)
	require.Len(t, report.Items, 2)

	first := report.Items[0]
	assert.Equal(t, dm.ImpactHigh, first.Impact)
	assert.Equal(t, dm.CategoryRegulation, first.Category)
	assert.Equal(t, "2026-03-05", first.Date)
	assert.Equal(t, []string{"battery", "transport"}, first.Tags)
	assert.Equal(t, "2026-07-01", first.Timeline[0].Date)

	second := report.Items[1]
	assert.Equal(t, dm.ImpactLow, second.Impact, "missing impact defaults to Low")
	assert.Equal(t, dm.CategoryEnforcement, second.Category)
	assert.NotNil(t, second.Tags)
}

func TestSynthesizeRetriesMalformedThenFails(t *testing.T) {
	cm := &fakeChatModel{replies: []reply{{content: "not json"}}}
	s := New(cm, nil, WithRetry(2, time.Millisecond))

	_, err := s.Synthesize(context.Background(), Input{Topic: "t", Digest: dm.OfflineDigest})
	require.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Len(t, cm.prompts, 3)
}

func TestSynthesizeRetriesRateLimit(t *testing.T) {
	cm := &fakeChatModel{replies: []reply{
		{err: errors.New("error, status code: 429, message: rate limited")},
		{content: `{"executive_summary":"ok","items":[]}`},
	}}
	s := New(cm, nil, WithRetry(3, time.Millisecond))

	report, err := s.Synthesize(context.Background(), Input{Topic: "t", Digest: dm.OfflineDigest})
	require.NoError(t, err)
	assert.Equal(t, "ok", report.ExecutiveSummary)
	assert.Len(t, cm.prompts, 2)
}

func TestSynthesizeOtherErrorNotRetried(t *testing.T) {
	cm := &fakeChatModel{replies: []reply{{err: errors.New("connection refused")}}}
	s := New(cm, nil, WithRetry(3, time.Millisecond))

	_, err := s.Synthesize(context.Background(), Input{Topic: "t"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAnalysisFailed)
	assert.Len(t, cm.prompts, 1)
}

func TestBuildPromptOffline(t *testing.T) {
	p := BuildPrompt(Input{Topic: "sterilization", Digest: dm.OfflineDigest, Timeframe: dm.Timeframe30Days})
	assert.Contains(t, p, "NO EXTERNAL SOURCES")
	assert.Contains(t, p, "own knowledge")
	assert.NotContains(t, p, "RAW SOURCES")
	assert.Contains(t, p, "Last 30 days")
}

func TestBuildPromptOnline(t *testing.T) {
	p := BuildPrompt(Input{
		Topic:       "sterilization",
		Markets:     []string{"USA (FDA)", "Japan (PMDA)"},
		Digest:      "--- SOURCE 1 ---\nTITLE: x",
		SourceCount: 1,
		Today:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.NotContains(t, p, "NO EXTERNAL SOURCES")
	assert.Contains(t, p, "PUBLICATION date")
	assert.Contains(t, p, "Enforcement > Regulation > Guidance > Standard > News")
	assert.Contains(t, p, "USA (FDA), Japan (PMDA)")
	assert.Contains(t, p, "today is 2026-03-01")
	assert.True(t, strings.HasSuffix(p, "--- SOURCE 1 ---\nTITLE: x"))
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]dm.Category{
		"regulations": dm.CategoryRegulation,
		"STANDARD":    dm.CategoryStandard,
		"Guidances":   dm.CategoryGuidance,
		"enforcement": dm.CategoryEnforcement,
		"news":        dm.CategoryNews,
		"":            dm.CategoryNews,
		"rumour":      dm.CategoryNews,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeCategory(in), in)
	}
}

func TestNormalizeImpact(t *testing.T) {
	assert.Equal(t, dm.ImpactMedium, NormalizeImpact(" medium "))
	assert.Equal(t, dm.ImpactLow, NormalizeImpact(""))
	assert.Equal(t, dm.ImpactLow, NormalizeImpact("unknown"))
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2026-01-15", NormalizeDate("2026-01-15T10:00:00Z"))
	assert.Equal(t, "2025-11", NormalizeDate("November 2025"))
	assert.Equal(t, "TBD", NormalizeDate(" TBD "))
	assert.Equal(t, "2026-03-05", NormalizeDate("March 5, 2026"))
	assert.Equal(t, "", NormalizeDate(""))
}

func TestParseWithSurroundingText(t *testing.T) {
	report, err := Parse("Here is the report:\n{\"executive_summary\":\"s\",\"items\":[]}\nThanks")
	require.NoError(t, err)
	assert.Equal(t, "s", report.ExecutiveSummary)
	assert.Empty(t, report.Items)
}

func TestParseRejectsNonReportJSON(t *testing.T) {
	for _, content := range []string{`{"unrelated": 1}`, `{}`, `null`, `{"items": null}`} {
		_, err := Parse(content)
		assert.Error(t, err, content)
	}

	report, err := Parse(`{"items": []}`)
	require.NoError(t, err)
	assert.Empty(t, report.Items)
}

func TestParseTrailingTextAfterObject(t *testing.T) {
	report, err := Parse("{\"executive_summary\":\"s\",\"items\":[{\"title\":\"t\"}]}\nHope this helps!")
	require.NoError(t, err)
	assert.Equal(t, "s", report.ExecutiveSummary)
	require.Len(t, report.Items, 1)
	assert.Equal(t, "t", report.Items[0].Title)
}

func TestSynthesizeNonReportJSONFails(t *testing.T) {
	cm := &fakeChatModel{replies: []reply{{content: `{"unrelated": 1}`}}}
	s := New(cm, nil, WithRetry(1, time.Millisecond))

	_, err := s.Synthesize(context.Background(), Input{Topic: "MDR", Digest: "digest"})
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Len(t, cm.prompts, 2)
}
