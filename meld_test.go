package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterPromptRepetitions(t *testing.T) {
	t.Run("removes guesses sharing the prompt stem", func(t *testing.T) {
		guesses := map[string]string{
			"p1": "blue",
			"p2": "Blues",
			"p3": "ocean",
		}

		got := filterPromptRepetitions(guesses, "blue")

		assert.Equal(t, map[string]string{"p3": "ocean"}, got)
	})

	t.Run("keeps everything when nobody echoes", func(t *testing.T) {
		guesses := map[string]string{
			"p1": "river",
			"p2": "stone",
		}

		got := filterPromptRepetitions(guesses, "cloud")

		assert.Equal(t, guesses, got)
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		got := filterPromptRepetitions(map[string]string{}, "blue")
		assert.Empty(t, got)
	})
}

func TestDetectMeld(t *testing.T) {
	t.Run("two matching stems meld", func(t *testing.T) {
		assert.True(t, detectMeld(map[string]string{
			"p1": "run",
			"p2": "running",
		}))
	})

	t.Run("three inflections meld", func(t *testing.T) {
		assert.True(t, detectMeld(map[string]string{
			"p1": "run",
			"p2": "runs",
			"p3": "Running",
		}))
	})

	t.Run("one divergent guess breaks the meld", func(t *testing.T) {
		assert.False(t, detectMeld(map[string]string{
			"p1": "run",
			"p2": "runs",
			"p3": "walk",
		}))
	})

	t.Run("a single guess never melds", func(t *testing.T) {
		assert.False(t, detectMeld(map[string]string{"p1": "run"}))
	})

	t.Run("no guesses never meld", func(t *testing.T) {
		assert.False(t, detectMeld(map[string]string{}))
	})
}
