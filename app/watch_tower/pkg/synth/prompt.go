package synth

import (
	"fmt"
	"strings"
	"time"

	dm "github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

const schemaHint = `{
  "executive_summary": "3-5 sentence overview of the most important developments",
  "items": [
    {
      "title": "short headline",
      "date": "YYYY-MM-DD publication date",
      "source_name": "issuing body or publication",
      "url": "source url",
      "summary": "2-3 sentences on what changed and who is affected",
      "tags": ["tag1", "tag2"],
      "impact": "High | Medium | Low",
      "category": "Regulation | Standard | Guidance | Enforcement | News",
      "timeline": [{"date": "YYYY-MM-DD", "label": "milestone", "desc": "what happens"}]
    }
  ]
}`

// BuildPrompt 组装合成提示词
func BuildPrompt(in Input) string {
	today := in.Today
	if today.IsZero() {
		today = time.Now()
	}
	markets := "all major markets"
	if len(in.Markets) > 0 {
		markets = strings.Join(in.Markets, ", ")
	}

	var sb strings.Builder
	sb.WriteString("Role: senior regulatory intelligence analyst.\n")
	fmt.Fprintf(&sb, "Topic: %s\n", in.Topic)
	fmt.Fprintf(&sb, "Target markets: %s\n", markets)
	fmt.Fprintf(&sb, "Timeframe: %s (today is %s)\n\n", in.Timeframe.Label(), today.Format(time.DateOnly))

	if in.Offline() {
		sb.WriteString("MODE: NO EXTERNAL SOURCES.\n")
		sb.WriteString("No web sources were collected for this run. Generate findings from your own knowledge only. ")
		sb.WriteString("Do not invent URLs; leave \"url\" empty unless you are certain of an official address. ")
		sb.WriteString("Begin the executive_summary with \"[AI knowledge only]\".\n\n")
	} else {
		fmt.Fprintf(&sb, "MODE: SOURCE ANALYSIS (%d sources).\n", in.SourceCount)
		sb.WriteString("Keep only sources whose PUBLICATION date falls inside the timeframe, ")
		sb.WriteString("even if they discuss older underlying regulations. Drop sources unrelated to the topic. ")
		sb.WriteString("Use the source URL and title exactly as given.\n\n")
	}

	sb.WriteString("Classify each item into exactly one category. When several apply, use this priority: ")
	names := make([]string, 0, len(dm.Categories))
	for _, c := range dm.Categories {
		names = append(names, string(c))
	}
	sb.WriteString(strings.Join(names, " > "))
	sb.WriteString(".\n")
	fmt.Fprintf(&sb, "Assign impact (High, Medium, Low) relative to the topic %q.\n\n", in.Topic)

	sb.WriteString("Respond with strict JSON only, no markdown, matching:\n")
	sb.WriteString(schemaHint)
	sb.WriteString("\n")

	if !in.Offline() {
		sb.WriteString("\nRAW SOURCES:\n")
		sb.WriteString(in.Digest)
	}
	return sb.String()
}
