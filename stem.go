package main

import (
	"strings"

	"github.com/kljensen/snowball/english"
)

// stem reduces a word to a comparison-stable root form: lower-cased,
// trimmed, then run through the Porter2 English stemmer. The result is
// only ever used for equality checks, never shown to players.
func stem(word string) string {
	normalized := strings.ToLower(strings.TrimSpace(word))

	return english.Stem(normalized, true)
}
