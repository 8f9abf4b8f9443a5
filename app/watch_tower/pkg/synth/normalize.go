package synth

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	dm "github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

type rawReport struct {
	ExecutiveSummary string    `json:"executive_summary"`
	Items            []rawItem `json:"items"`
}

type rawItem struct {
	Title      string        `json:"title"`
	Date       string        `json:"date"`
	SourceName string        `json:"source_name"`
	URL        string        `json:"url"`
	Summary    string        `json:"summary"`
	Tags       stringList    `json:"tags"`
	Impact     string        `json:"impact"`
	Category   string        `json:"category"`
	Timeline   []rawTimeline `json:"timeline"`
}

type rawTimeline struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Desc  string `json:"desc"`
}

// stringList 兼容 "a, b" 与 ["a","b"] 两种写法
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// 其它类型直接忽略
		*l = nil
		return nil
	}
	*l = strings.Split(s, ",")
	return nil
}

// Normalize 补全并规范化报告字段，保证 impact 与 category 落在封闭取值内
func Normalize(raw rawReport) *dm.Report {
	report := &dm.Report{
		ExecutiveSummary: strings.TrimSpace(raw.ExecutiveSummary),
		Items:            make([]dm.ReportItem, 0, len(raw.Items)),
	}
	for _, it := range raw.Items {
		item := dm.ReportItem{
			Title:      strings.TrimSpace(it.Title),
			Date:       NormalizeDate(it.Date),
			SourceName: strings.TrimSpace(it.SourceName),
			URL:        strings.TrimSpace(it.URL),
			Summary:    strings.TrimSpace(it.Summary),
			Tags:       normalizeTags(it.Tags),
			Impact:     NormalizeImpact(it.Impact),
			Category:   NormalizeCategory(it.Category),
			Timeline:   make([]dm.TimelineEvent, 0, len(it.Timeline)),
		}
		for _, ev := range it.Timeline {
			item.Timeline = append(item.Timeline, dm.TimelineEvent{
				Date:  NormalizeDate(ev.Date),
				Label: strings.TrimSpace(ev.Label),
				Desc:  strings.TrimSpace(ev.Desc),
			})
		}
		report.Items = append(report.Items, item)
	}
	return report
}

// NormalizeImpact 大小写不敏感，缺失或未知值为 Low
func NormalizeImpact(s string) dm.Impact {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical":
		return dm.ImpactHigh
	case "medium", "moderate":
		return dm.ImpactMedium
	}
	return dm.ImpactLow
}

// NormalizeCategory 大小写与单复数不敏感，缺失或未知值为 News
func NormalizeCategory(s string) dm.Category {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimSuffix(key, "s")
	for _, c := range dm.Categories {
		if strings.TrimSuffix(strings.ToLower(string(c)), "s") == key {
			return c
		}
	}
	return dm.CategoryNews
}

var monthLayouts = []string{
	"2006-01",
	"January 2006",
	"Jan 2006",
}

// NormalizeDate 尽力转为 ISO 日期；只有年月时输出 YYYY-MM，无法识别时原样返回
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01")
		}
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		return t.Format(time.DateOnly)
	}
	return s
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(t)]; ok {
			continue
		}
		seen[strings.ToLower(t)] = struct{}{}
		out = append(out, t)
	}
	return out
}
