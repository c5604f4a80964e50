package main

import (
	"context"
	"math"
	"sort"
	"strings"
)

const (
	baseMaxScore    = 10
	similarityFloor = 0.5
	scoreCurvePower = 2.0
)

// position is a display-only 2-D point on the unit disc.
type position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// roundResult is the ephemeral output of scoring one round. The label is
// retained in the session's centroid history and the score/guess pairs
// in player history; the rest is consumed by the reveal broadcast.
type roundResult struct {
	scores        map[string]int
	positions     map[string]position
	centroidLabel string
}

// similarityToScore maps cosine similarity into [1, baseMaxScore].
// Similarity at or below the floor earns the minimum; the curve exponent
// rewards near-exact convergence disproportionately over "somewhat
// similar".
func similarityToScore(sim float64) int {
	normalized := math.Max(0, (sim-similarityFloor)/(1-similarityFloor))
	curved := math.Pow(normalized, scoreCurvePower)

	return int(math.Round(1 + curved*(baseMaxScore-1)))
}

// scoreGuesses turns one round's guesses into per-player scores, display
// positions, and a centroid label. Blank submissions are dropped;
// non-submitters score 0 with no position. With zero valid submissions
// the result is empty and the caller treats the round as failed. A lone
// submitter gets the maximum score at the center, with their own
// normalized guess as the label.
func scoreGuesses(ctx context.Context, embedder Embedder, vocab *Vocab, guesses map[string]string) (*roundResult, error) {
	result := &roundResult{
		scores:    make(map[string]int),
		positions: make(map[string]position),
	}

	type entry struct {
		playerID string
		guess    string
	}

	var entries []entry
	for id, guess := range guesses {
		if strings.TrimSpace(guess) == "" {
			continue
		}
		entries = append(entries, entry{playerID: id, guess: strings.ToLower(strings.TrimSpace(guess))})
	}

	// Guess maps have no useful iteration order; sort so layout and
	// labeling are reproducible.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].playerID < entries[j].playerID
	})

	if len(entries) == 0 {
		return result, nil
	}

	if len(entries) == 1 {
		result.scores[entries[0].playerID] = baseMaxScore
		result.positions[entries[0].playerID] = position{}
		result.centroidLabel = entries[0].guess
		fillNonSubmitters(result, guesses)

		return result, nil
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.guess
	}

	embeddings, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	cent := centroid(embeddings)

	for i, e := range entries {
		sim := cosineSimilarity(embeddings[i], cent)
		result.scores[e.playerID] = similarityToScore(sim)

		// Equal angular spacing on the unit disc, starting at the
		// top; radial distance shrinks as similarity grows.
		angle := 2*math.Pi*float64(i)/float64(len(entries)) - math.Pi/2
		dist := 1 - sim
		result.positions[e.playerID] = position{
			X: dist * math.Cos(angle),
			Y: dist * math.Sin(angle),
		}
	}

	result.centroidLabel = nearestWord(cent, vocab, texts)
	fillNonSubmitters(result, guesses)

	return result, nil
}

func fillNonSubmitters(result *roundResult, guesses map[string]string) {
	for id := range guesses {
		if _, ok := result.scores[id]; !ok {
			result.scores[id] = 0
		}
	}
}
