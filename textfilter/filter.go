// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

// Package textfilter classifies free text submitted in conversations
// as clean or profane. The filter is a pure predicate: deterministic,
// no mutation of the checked text, no external calls. Which words
// and patterns it carries is configuration, not logic.
package textfilter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Filter rejects text in two layers: configured literal substrings
// matched after lowercasing, and optional patterns matched after
// stripping non-letter/digit runes (catching words obfuscated with
// inserted punctuation or spacing).
type Filter struct {
	words    []string
	patterns []*regexp.Regexp
}

// New compiles a filter from literal words and regular expression
// patterns. Words are lowercased once at construction so every Match
// comparison is case-insensitive.
func New(words []string, patterns []string) (*Filter, error) {
	filter := &Filter{}
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word != "" {
			filter.words = append(filter.words, word)
		}
	}
	for _, pattern := range patterns {
		compiled, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("textfilter: pattern %q: %w", pattern, err)
		}
		filter.patterns = append(filter.patterns, compiled)
	}
	return filter, nil
}

// Match reports whether text contains a configured word or pattern.
func (f *Filter) Match(text string) bool {
	lowered := strings.ToLower(text)
	for _, word := range f.words {
		if strings.Contains(lowered, word) {
			return true
		}
	}

	if len(f.patterns) == 0 {
		return false
	}

	// Second layer: collapse the text to letters and digits only, so
	// "х.у-й" reduces to "хуй" before the patterns run.
	collapsed := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, lowered)

	for _, pattern := range f.patterns {
		if pattern.MatchString(collapsed) {
			return true
		}
	}
	return false
}
