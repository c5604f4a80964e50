package main

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	// Penalty weights for nearestWord. A naive nearest-neighbor search
	// keeps landing on generic hub words ("thing", "object") that sit
	// near the geometric center of the embedding space, and on very
	// common words; both penalties bias the label toward something
	// specific.
	globalCenterPenalty = 0.5
	frequencyPenalty    = 0.3
)

// Vocab is a rank-ordered list of words with precomputed embeddings,
// loaded once at startup and shared read-only across all sessions.
// Words earlier in the list are more common; rank is used as a
// frequency proxy.
type Vocab struct {
	Words          []string
	Vectors        [][]float64
	GlobalCentroid []float64
}

type vocabFile struct {
	Model   string      `json:"model"`
	Words   []string    `json:"words"`
	Vectors [][]float64 `json:"vectors"`
}

// loadVocab reads prebuilt vocabulary embeddings from path and
// precomputes the centroid of the whole list.
func loadVocab(path string) (*Vocab, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vocab embeddings not found at %s (build them first): %w", path, err)
	}

	var data vocabFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse vocab %s: %w", path, err)
	}

	if len(data.Words) == 0 || len(data.Words) != len(data.Vectors) {
		return nil, fmt.Errorf("vocab %s: %d words but %d vectors", path, len(data.Words), len(data.Vectors))
	}

	return &Vocab{
		Words:          data.Words,
		Vectors:        data.Vectors,
		GlobalCentroid: centroid(data.Vectors),
	}, nil
}

// nearestWord selects a human-readable label for a centroid vector.
// Vocabulary entries whose stem matches any input word are excluded so a
// player's own guess is never echoed back as the "discovered" consensus.
// Remaining candidates are scored by similarity to the centroid, minus
// penalties for proximity to the global center and for high frequency.
// Ties break toward the earlier vocabulary entry.
func nearestWord(centroidVec []float64, vocab *Vocab, inputWords []string) string {
	inputStems := make(map[string]bool, len(inputWords))
	for _, w := range inputWords {
		inputStems[stem(w)] = true
	}

	bestWord := ""
	bestScore := -1.0

	for i, word := range vocab.Words {
		if inputStems[stem(word)] {
			continue
		}

		simToCentroid := cosineSimilarity(centroidVec, vocab.Vectors[i])
		simToGlobal := cosineSimilarity(vocab.GlobalCentroid, vocab.Vectors[i])

		normalizedRank := 0.0
		if len(vocab.Words) > 1 {
			normalizedRank = float64(i) / float64(len(vocab.Words)-1)
		}

		score := simToCentroid -
			globalCenterPenalty*simToGlobal -
			frequencyPenalty*(1-normalizedRank)

		if bestWord == "" || score > bestScore {
			bestScore = score
			bestWord = word
		}
	}

	// Degenerate safeguard: everything was excluded.
	if bestWord == "" {
		return vocab.Words[0]
	}

	return bestWord
}
