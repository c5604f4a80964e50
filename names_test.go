package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWords(t *testing.T) {
	got := splitWords("Alpha\n\n  beta \ngamma\n")
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, got)
}

func TestChooser(t *testing.T) {
	chooser := newChooser()

	t.Run("embedded lists are populated", func(t *testing.T) {
		require.Len(t, chooser.lists, 2)
		assert.NotEmpty(t, chooser.lists[0])
		assert.NotEmpty(t, chooser.lists[1])
	})

	t.Run("produces adjective-noun pairs", func(t *testing.T) {
		name := chooser.choose(func(string) bool { return false })

		parts := strings.Split(name, "-")
		require.Len(t, parts, 2)
		assert.Contains(t, chooser.lists[0], parts[0])
		assert.Contains(t, chooser.lists[1], parts[1])
	})

	t.Run("salts with a number when the pair space exhausts", func(t *testing.T) {
		name := chooser.choose(func(candidate string) bool {
			return strings.Count(candidate, "-") < 2
		})

		assert.Equal(t, 2, strings.Count(name, "-"))
	})
}
