package engine

import (
	"fmt"
	"strings"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

// BuildDigest 把抽取结果拼成交给 LLM 的摘要文本，相同输入总是得到相同输出
func BuildDigest(sources []model.ExtractedSource, rawCount int) string {
	var sb strings.Builder
	sb.WriteString("INTELLIGENCE DIGEST\n")
	fmt.Fprintf(&sb, "Sources discovered: %d\n", rawCount)
	fmt.Fprintf(&sb, "Sources processed: %d\n", len(sources))
	for i, s := range sources {
		fmt.Fprintf(&sb, "\n--- SOURCE %d ---\n", i+1)
		fmt.Fprintf(&sb, "TITLE: %s\n", s.Title)
		fmt.Fprintf(&sb, "URL: %s\n", s.Source)
		fmt.Fprintf(&sb, "TYPE: %s\n", s.Type)
		fmt.Fprintf(&sb, "CONTENT:\n%s\n", strings.TrimSpace(s.Content))
	}
	return sb.String()
}
