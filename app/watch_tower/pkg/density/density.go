// Package density 在长文档中定位关键词最密集的文本窗口。
package density

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultWindowWords = 500
	DefaultStrideWords = 100
	DefaultMaxChars    = 4000
)

// UnreadableMarker 文档没有可抽取文本时的返回值 (例如未做 OCR 的扫描件)
const UnreadableMarker = "[UNREADABLE DOCUMENT: no extractable text layer]"

// Options 窗口参数，零值字段使用默认值
type Options struct {
	WindowWords int
	StrideWords int
	MaxChars    int
}

func (o Options) withDefaults() Options {
	if o.WindowWords <= 0 {
		o.WindowWords = DefaultWindowWords
	}
	if o.StrideWords <= 0 {
		o.StrideWords = DefaultStrideWords
	}
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	return o
}

type token struct {
	start int
	word  string
}

// Extract 返回关键词命中数最高的窗口对应的原文片段 (最多 MaxChars 字节)。
// 未提供关键词时直接返回文档前缀；命中数相同时保留最靠前的窗口。
func Extract(text string, keywords []string, opts Options) string {
	opts = opts.withDefaults()

	if strings.TrimSpace(text) == "" {
		return UnreadableMarker
	}
	if len(keywords) == 0 {
		return Truncate(text, opts.MaxChars)
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return UnreadableMarker
	}

	set := keywordSet(keywords)
	if len(set) == 0 {
		return Truncate(text, opts.MaxChars)
	}

	// hits[i] 为前 i 个词中的命中数
	hits := make([]int, len(tokens)+1)
	for i, tk := range tokens {
		hits[i+1] = hits[i]
		if _, ok := set[tk.word]; ok {
			hits[i+1]++
		}
	}

	bestStart, bestCount := 0, -1
	for start := 0; start < len(tokens); start += opts.StrideWords {
		end := min(start+opts.WindowWords, len(tokens))
		if count := hits[end] - hits[start]; count > bestCount {
			bestStart, bestCount = start, count
		}
		if end == len(tokens) {
			break
		}
	}

	return Truncate(text[tokens[bestStart].start:], opts.MaxChars)
}

// Keywords 从查询文本派生关键词：小写、去停用词、去重并保持出现顺序
func Keywords(query string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tk := range tokenize(query) {
		if len(tk.word) <= 2 {
			continue
		}
		if _, stop := stopWords[tk.word]; stop {
			continue
		}
		if _, dup := seen[tk.word]; dup {
			continue
		}
		seen[tk.word] = struct{}{}
		out = append(out, tk.word)
	}
	return out
}

// Truncate 按字节上限截断，且不会切断多字节字符
func Truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func keywordSet(keywords []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		// 多词关键词拆成单词，与文档使用同一套切分规则
		for _, tk := range tokenize(kw) {
			set[tk.word] = struct{}{}
		}
	}
	return set
}

func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case isWord && start < 0:
			start = i
		case !isWord && start >= 0:
			tokens = append(tokens, token{start: start, word: strings.ToLower(text[start:i])})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{start: start, word: strings.ToLower(text[start:])})
	}
	return tokens
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "are": {}, "was": {}, "were": {},
	"that": {}, "this": {}, "into": {}, "over": {}, "new": {}, "about": {}, "what": {}, "which": {},
	"les": {}, "des": {}, "pour": {}, "dans": {}, "sur": {}, "avec": {}, "der": {}, "die": {}, "und": {},
}
