// Package rules builds the compiled rule set used by the message classifier:
// profanity words, severe-violation words, doxing keywords, and a network
// address pattern. A Set is immutable once built; reloading produces a fresh
// Set that callers swap in atomically.
package rules

import (
	"regexp"
	"strings"

	"github.com/chatguard/moderation/internal/config"
)

// addressPattern detects an IPv4-style dotted-quad token anywhere in a
// message. Compiled once at package init and shared by every Set.
var addressPattern = regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)

// WordRule is a single word-list entry with its compiled whole-word,
// case-insensitive matcher. Word-boundary anchoring prevents partial-token
// hits ("classic" must not match "ass").
type WordRule struct {
	Word    string
	pattern *regexp.Regexp
}

// Match reports whether the word occurs as a whole token in text.
func (w WordRule) Match(text string) bool {
	return w.pattern.MatchString(text)
}

// Redact replaces every whole-token occurrence of the word in text with the
// replacement character repeated to the matched span's length. Returns the
// rewritten text and whether anything was replaced.
func (w WordRule) Redact(text, replacement string) (string, bool) {
	if !w.pattern.MatchString(text) {
		return text, false
	}
	out := w.pattern.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat(replacement, len([]rune(m)))
	})
	return out, true
}

// Set is one immutable generation of the rule data.
type Set struct {
	Profanity   []WordRule
	Severe      []WordRule
	Doxing      []string // lowercased, matched as substrings
	Replacement string
}

// Load builds a Set from configuration. Loading never fails: absent lists are
// treated as empty and invalid entries (empty or whitespace-only words, which
// would match everywhere) are dropped.
func Load(cfg *config.Config) *Set {
	replacement := cfg.ReplacementChar
	if replacement == "" {
		replacement = config.DefaultReplacementChar
	}
	// A multi-character replacement would change message length; keep the
	// first rune only.
	if r := []rune(replacement); len(r) > 1 {
		replacement = string(r[0])
	}

	return &Set{
		Profanity:   compileWords(cfg.ProfanityWords),
		Severe:      compileWords(cfg.SevereWords),
		Doxing:      normalizeKeywords(cfg.DoxingKeywords),
		Replacement: replacement,
	}
}

// MatchAddress reports whether text contains a dotted-quad address token.
func (s *Set) MatchAddress(text string) bool {
	return addressPattern.MatchString(text)
}

// MatchDoxing returns the first doxing keyword contained in text
// (case-insensitive substring match, list order), or "" if none match.
func (s *Set) MatchDoxing(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range s.Doxing {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

// compileWords builds whole-word case-insensitive matchers, preserving list
// order. Empty entries are skipped.
func compileWords(words []string) []WordRule {
	out := make([]WordRule, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.ToLower(w)) + `\b`)
		out = append(out, WordRule{Word: w, pattern: re})
	}
	return out
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		out = append(out, kw)
	}
	return out
}
