package model

import (
	"fmt"
	"strings"
)

// Timeframe 监控时间窗口
type Timeframe string

const (
	Timeframe30Days   Timeframe = "30d"
	Timeframe12Months Timeframe = "12mo"
	Timeframe3Years   Timeframe = "3y"
)

// ParseTimeframe 解析时间窗口，空字符串表示不限制
func ParseTimeframe(s string) (Timeframe, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "30d", "30days", "d30":
		return Timeframe30Days, nil
	case "12mo", "12m", "1y", "m12":
		return Timeframe12Months, nil
	case "3y", "36mo", "y3":
		return Timeframe3Years, nil
	}
	return "", fmt.Errorf("unknown timeframe %q", s)
}

// Valid 是否为合法的时间窗口 (空值合法，表示不限制)
func (t Timeframe) Valid() bool {
	switch t {
	case "", Timeframe30Days, Timeframe12Months, Timeframe3Years:
		return true
	}
	return false
}

// Label 提示词与界面使用的可读标签
func (t Timeframe) Label() string {
	switch t {
	case Timeframe30Days:
		return "Last 30 days"
	case Timeframe12Months:
		return "Last 12 months"
	case Timeframe3Years:
		return "Last 3 years"
	}
	return "Any time"
}

// SearchCandidate 发现阶段产出的候选链接
type SearchCandidate struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SourceType 抽取来源类型
type SourceType string

const (
	SourcePDF SourceType = "pdf"
	SourceWeb SourceType = "web"
)

// ExtractedSource 单个候选链接抽取得到的正文
type ExtractedSource struct {
	Source  string     `json:"source"`
	Type    SourceType `json:"type"`
	Title   string     `json:"title"`
	Content string     `json:"content"`
}

// WatchQuery 一次监控查询 (也是持久化的监控定义)
type WatchQuery struct {
	Name      string    `json:"name,omitempty" yaml:"name"`
	Topic     string    `json:"topic" yaml:"topic"`
	Markets   []string  `json:"markets" yaml:"markets"`
	Timeframe Timeframe `json:"timeframe" yaml:"timeframe"`
}

// Impact 影响等级
type Impact string

const (
	ImpactHigh   Impact = "High"
	ImpactMedium Impact = "Medium"
	ImpactLow    Impact = "Low"
)

// Category 条目分类
type Category string

const (
	CategoryRegulation  Category = "Regulation"
	CategoryStandard    Category = "Standard"
	CategoryGuidance    Category = "Guidance"
	CategoryEnforcement Category = "Enforcement"
	CategoryNews        Category = "News"
)

// Categories 按优先级排列的全部分类 (Enforcement > Regulation > Guidance > Standard > News)
var Categories = []Category{
	CategoryEnforcement,
	CategoryRegulation,
	CategoryGuidance,
	CategoryStandard,
	CategoryNews,
}

// TimelineEvent 条目时间线节点
type TimelineEvent struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Desc  string `json:"desc"`
}

// ReportItem 报告中的单条情报
type ReportItem struct {
	Title      string          `json:"title"`
	Date       string          `json:"date"`
	SourceName string          `json:"source_name"`
	URL        string          `json:"url"`
	Summary    string          `json:"summary"`
	Tags       []string        `json:"tags"`
	Impact     Impact          `json:"impact"`
	Category   Category        `json:"category"`
	Timeline   []TimelineEvent `json:"timeline"`
}

// Report 一次监控执行的结构化报告
type Report struct {
	ExecutiveSummary string       `json:"executive_summary"`
	Items            []ReportItem `json:"items"`
	SourceCount      int          `json:"source_count"`
}

// OfflineDigest 没有任何外部来源时的摘要哨兵值，合成阶段据此切换为纯知识模式
const OfflineDigest = "NO_EXTERNAL_SOURCES"

// Mode 报告生成模式
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)
