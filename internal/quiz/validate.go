package quiz

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minQuestionLen = 3
	maxQuestionLen = 500
	minOptions     = 2
)

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|pretend\s+|forget\s+(everything|all)|` +
		`new\s+instructions)`,
)

// Valid reports whether a normalized candidate is usable: a question of
// sensible length with no instruction-like text, and at least two options.
func Valid(c Candidate) bool {
	n := utf8.RuneCountInString(c.Question)
	if n < minQuestionLen || n > maxQuestionLen {
		return false
	}
	if injectionPattern.MatchString(c.Question) {
		return false
	}
	filled := 0
	for _, o := range c.Options() {
		if strings.TrimSpace(o) != "" {
			filled++
		}
	}
	return filled >= minOptions
}
