package main

import (
	_ "embed"
	"fmt"
	"math/rand"
	"strings"
)

//go:embed static/adjectives.txt
var adjectivesRaw string

//go:embed static/nouns.txt
var nounsRaw string

// Chooser allocates human-readable session identifiers like
// "brave-walrus". Uniqueness is checked against the caller's
// currently-live identifiers only.
type Chooser struct {
	lists [][]string
}

func newChooser() *Chooser {
	return &Chooser{
		lists: [][]string{
			splitWords(adjectivesRaw),
			splitWords(nounsRaw),
		},
	}
}

func splitWords(raw string) []string {
	var words []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.ToLower(line))
		if line != "" {
			words = append(words, line)
		}
	}
	return words
}

func (c *Chooser) choose(isDuplicate func(string) bool) string {
	for tries := 0; ; tries++ {
		parts := make([]string, 0, len(c.lists))
		for _, list := range c.lists {
			parts = append(parts, randomFrom(list))
		}
		name := strings.Join(parts, "-")

		// Small word lists can exhaust; salt with a number rather
		// than spinning forever.
		if tries >= 100 {
			name = fmt.Sprintf("%s-%d", name, rand.Intn(10000))
		}

		if !isDuplicate(name) {
			return name
		}
	}
}
