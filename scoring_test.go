package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder maps each input text to a fixed vector, standing in for
// the embedding service.
type stubEmbedder struct {
	vecs  map[string][]float64
	err   error
	calls int
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}

	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, ok := e.vecs[text]
		if !ok {
			return nil, fmt.Errorf("no stub vector for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

func TestSimilarityToScore(t *testing.T) {
	assert.Equal(t, 1, similarityToScore(0.5), "floor similarity earns the minimum")
	assert.Equal(t, 1, similarityToScore(0.0))
	assert.Equal(t, 1, similarityToScore(-1.0))
	assert.Equal(t, 10, similarityToScore(1.0), "perfect similarity earns the maximum")

	// Halfway above the floor, squared: 1 + 0.25*9 = 3.25.
	assert.Equal(t, 3, similarityToScore(0.75))
}

func TestScoreGuesses(t *testing.T) {
	vocab := testVocab()

	t.Run("no valid submissions yields empty result", func(t *testing.T) {
		embedder := &stubEmbedder{}

		result, err := scoreGuesses(context.Background(), embedder, vocab, map[string]string{})
		require.NoError(t, err)
		assert.Empty(t, result.scores)
		assert.Zero(t, embedder.calls)
	})

	t.Run("lone submitter gets the maximum at the center", func(t *testing.T) {
		embedder := &stubEmbedder{}

		result, err := scoreGuesses(context.Background(), embedder, vocab, map[string]string{
			"p1": "  River ",
		})
		require.NoError(t, err)

		assert.Equal(t, baseMaxScore, result.scores["p1"])
		assert.Equal(t, position{}, result.positions["p1"])
		assert.Equal(t, "river", result.centroidLabel)
		assert.Zero(t, embedder.calls, "a single guess needs no embedding call")
	})

	t.Run("blank submissions score zero with no position", func(t *testing.T) {
		result, err := scoreGuesses(context.Background(), &stubEmbedder{}, vocab, map[string]string{
			"p1": "river",
			"p2": "   ",
		})
		require.NoError(t, err)

		assert.Equal(t, baseMaxScore, result.scores["p1"])
		assert.Equal(t, 0, result.scores["p2"])
		_, hasPosition := result.positions["p2"]
		assert.False(t, hasPosition)
	})

	t.Run("identical guesses score the maximum", func(t *testing.T) {
		embedder := &stubEmbedder{vecs: map[string][]float64{
			"river": {1, 0, 0},
		}}

		result, err := scoreGuesses(context.Background(), embedder, vocab, map[string]string{
			"p1": "river",
			"p2": "River",
		})
		require.NoError(t, err)

		assert.Equal(t, baseMaxScore, result.scores["p1"])
		assert.Equal(t, baseMaxScore, result.scores["p2"])
		for _, pos := range result.positions {
			assert.InDelta(t, 0, pos.X, 1e-9)
			assert.InDelta(t, 0, pos.Y, 1e-9)
		}
		assert.NotEqual(t, "river", result.centroidLabel, "label never echoes a guess")
	})

	t.Run("divergent guesses share distance from their centroid", func(t *testing.T) {
		embedder := &stubEmbedder{vecs: map[string][]float64{
			"river": {1, 0, 0},
			"stone": {0, 1, 0},
		}}

		result, err := scoreGuesses(context.Background(), embedder, vocab, map[string]string{
			"p1": "river",
			"p2": "stone",
		})
		require.NoError(t, err)

		// Both sit at cosine 1/sqrt(2) from the midpoint.
		sim := 1 / math.Sqrt2
		want := similarityToScore(sim)
		assert.Equal(t, want, result.scores["p1"])
		assert.Equal(t, want, result.scores["p2"])

		// Sorted by player id: p1 takes the top slot, p2 the bottom.
		dist := 1 - sim
		assert.InDelta(t, 0, result.positions["p1"].X, 1e-9)
		assert.InDelta(t, -dist, result.positions["p1"].Y, 1e-9)
		assert.InDelta(t, 0, result.positions["p2"].X, 1e-9)
		assert.InDelta(t, dist, result.positions["p2"].Y, 1e-9)

		assert.Equal(t, "cloud", result.centroidLabel, "both guesses are excluded from labeling")
	})

	t.Run("the semantic outlier scores below the cluster", func(t *testing.T) {
		// Three animals near one axis and one vehicle far from it.
		embedder := &stubEmbedder{vecs: map[string][]float64{
			"cat":      {1, 0.1, 0},
			"dog":      {1, 0, 0.1},
			"fish":     {0.9, 0.1, 0.1},
			"airplane": {0, 0, 1},
		}}

		result, err := scoreGuesses(context.Background(), embedder, vocab, map[string]string{
			"p1": "cat",
			"p2": "dog",
			"p3": "fish",
			"p4": "airplane",
		})
		require.NoError(t, err)

		clusterAvg := float64(result.scores["p1"]+result.scores["p2"]+result.scores["p3"]) / 3
		assert.Less(t, float64(result.scores["p4"]), clusterAvg)
	})

	t.Run("positions stay on the unit disc", func(t *testing.T) {
		embedder := &stubEmbedder{vecs: map[string][]float64{
			"river": {1, 0, 0},
			"stone": {0, 1, 0},
			"cloud": {0, 0, 1},
		}}

		result, err := scoreGuesses(context.Background(), embedder, vocab, map[string]string{
			"p1": "river",
			"p2": "stone",
			"p3": "cloud",
		})
		require.NoError(t, err)

		for id, pos := range result.positions {
			radius := math.Hypot(pos.X, pos.Y)
			assert.LessOrEqual(t, radius, 1.0+1e-9, "player %s off the disc", id)
		}
	})

	t.Run("output is deterministic", func(t *testing.T) {
		guesses := map[string]string{
			"p1": "river",
			"p2": "stone",
			"p3": "cloud",
		}
		embedder := &stubEmbedder{vecs: map[string][]float64{
			"river": {1, 0, 0},
			"stone": {0, 1, 0},
			"cloud": {0, 0, 1},
		}}

		first, err := scoreGuesses(context.Background(), embedder, vocab, guesses)
		require.NoError(t, err)
		second, err := scoreGuesses(context.Background(), embedder, vocab, guesses)
		require.NoError(t, err)

		assert.Equal(t, first.scores, second.scores)
		assert.Equal(t, first.positions, second.positions)
		assert.Equal(t, first.centroidLabel, second.centroidLabel)
	})

	t.Run("embedding failure propagates", func(t *testing.T) {
		embedder := &stubEmbedder{err: errors.New("service down")}

		_, err := scoreGuesses(context.Background(), embedder, vocab, map[string]string{
			"p1": "river",
			"p2": "stone",
		})
		assert.Error(t, err)
	})
}
