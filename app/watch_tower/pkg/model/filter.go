package model

import "strings"

// ItemFilter 界面侧对报告条目的只读过滤条件，零值表示不过滤
type ItemFilter struct {
	Impacts    []Impact
	Categories []Category
	Text       string
}

// Filter 返回满足条件的条目副本，不修改原报告
func (r *Report) Filter(f ItemFilter) []ReportItem {
	if r == nil {
		return nil
	}
	text := strings.ToLower(strings.TrimSpace(f.Text))
	out := make([]ReportItem, 0, len(r.Items))
	for _, item := range r.Items {
		if len(f.Impacts) > 0 && !containsImpact(f.Impacts, item.Impact) {
			continue
		}
		if len(f.Categories) > 0 && !containsCategory(f.Categories, item.Category) {
			continue
		}
		if text != "" && !itemMatches(item, text) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func itemMatches(item ReportItem, text string) bool {
	if strings.Contains(strings.ToLower(item.Title), text) ||
		strings.Contains(strings.ToLower(item.Summary), text) ||
		strings.Contains(strings.ToLower(item.SourceName), text) {
		return true
	}
	for _, tag := range item.Tags {
		if strings.Contains(strings.ToLower(tag), text) {
			return true
		}
	}
	return false
}

func containsImpact(list []Impact, v Impact) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsCategory(list []Category, v Category) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
