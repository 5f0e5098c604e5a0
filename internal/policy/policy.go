// Package policy filters generated copy against a denylist of hyperbolic
// and guarantee claims and normalizes hashtag output.
package policy

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

const HashtagMarker = "#"

// DefaultDenylist holds absolute-certainty and guarantee claims that must
// never appear in published copy.
var DefaultDenylist = []string{
	"絶対", "必ず", "100%", "完全", "永久", "最高", "最強", "最安",
	"効果保証", "保証", "確実", "間違いなし", "失敗なし", "リスクゼロ",
	"誰でも", "簡単に", "楽して", "何もしなくても", "奇跡",
}

// ContentPolicy is immutable after construction and safe for concurrent use.
type ContentPolicy struct {
	denylist []string
}

func New(denylist []string) *ContentPolicy {
	terms := make([]string, 0, len(denylist))
	for _, term := range denylist {
		// Terms are matched after width folding, so fold them too.
		if term = width.Fold.String(strings.TrimSpace(term)); term != "" {
			terms = append(terms, term)
		}
	}
	return &ContentPolicy{denylist: terms}
}

func NewDefault() *ContentPolicy {
	return New(DefaultDenylist)
}

// IsClean reports whether text contains none of the denylisted terms.
// Full-width variants such as "１００％" are caught as well.
func (p *ContentPolicy) IsClean(text string) bool {
	folded := width.Fold.String(text)
	for _, term := range p.denylist {
		if strings.Contains(folded, term) {
			return false
		}
	}
	return true
}

// Normalize folds full-width characters to half-width, strips whitespace
// and ensures the leading marker. Tags that are empty after stripping are
// dropped.
func (p *ContentPolicy) Normalize(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = NormalizeHashtag(tag); tag != "" {
			normalized = append(normalized, tag)
		}
	}
	return normalized
}

func NormalizeHashtag(tag string) string {
	tag = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, width.Fold.String(tag))

	if tag == "" || tag == HashtagMarker {
		return ""
	}
	if !strings.HasPrefix(tag, HashtagMarker) {
		tag = HashtagMarker + tag
	}
	return tag
}

// Dedupe removes exact duplicates, keeping the first occurrence.
func Dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
