// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package textfilter

import "testing"

func newFilter(t *testing.T, words, patterns []string) *Filter {
	t.Helper()
	filter, err := New(words, patterns)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return filter
}

func TestMatchLiteralSubstring(t *testing.T) {
	filter := newFilter(t, []string{"хуй", "бля"}, nil)

	tests := []struct {
		text string
		want bool
	}{
		{"хуй", true},
		{"ХУЙ", true},
		{"ну и хуйня получилась", true},
		{"бля буду", true},
		{"обычное сообщение про снег", false},
		{"", false},
	}
	for _, test := range tests {
		if got := filter.Match(test.text); got != test.want {
			t.Errorf("Match(%q) = %v, want %v", test.text, got, test.want)
		}
	}
}

func TestMatchIsDeterministic(t *testing.T) {
	filter := newFilter(t, []string{"хуй"}, nil)
	for i := 0; i < 3; i++ {
		if !filter.Match("ХУЙ") {
			t.Fatal("Match(\"ХУЙ\") flapped to false")
		}
		if filter.Match("снег") {
			t.Fatal("Match(\"снег\") flapped to true")
		}
	}
}

func TestMatchObfuscationLayer(t *testing.T) {
	filter := newFilter(t, []string{"хуй"}, []string{"хуй"})

	// Literal layer misses the punctuated form; the pattern layer
	// catches it after stripping.
	tests := []struct {
		text string
		want bool
	}{
		{"х.у.й", true},
		{"х у й", true},
		{"Х-У-Й!!!", true},
		{"художник", false},
	}
	for _, test := range tests {
		if got := filter.Match(test.text); got != test.want {
			t.Errorf("Match(%q) = %v, want %v", test.text, got, test.want)
		}
	}
}

func TestMatchWithoutPatternsSkipsCollapse(t *testing.T) {
	filter := newFilter(t, []string{"хуй"}, nil)
	if filter.Match("х.у.й") {
		t.Error("literal-only filter matched an obfuscated form")
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	if _, err := New(nil, []string{"["}); err == nil {
		t.Fatal("New with invalid pattern = nil, want error")
	}
}

func TestNewIgnoresBlankWords(t *testing.T) {
	filter := newFilter(t, []string{"", "  ", "лох"}, nil)
	if filter.Match("просто текст") {
		t.Error("blank configured word matched everything")
	}
	if !filter.Match("ну ты и ЛОХ") {
		t.Error("configured word did not match")
	}
}
