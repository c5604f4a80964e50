package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	embeddingTimeout = 10 * time.Second
	embeddingRetries = 2
	backoffUnit      = 500 * time.Millisecond
)

// Embedder converts a batch of texts into embedding vectors. The returned
// slice always has the same length and order as the input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// backoffDelay returns the delay before retry number attempt (0-based):
// 500ms, 1s, 2s, ...
func backoffDelay(attempt int) time.Duration {
	return backoffUnit << attempt
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// ollamaEmbedder fetches embeddings from an Ollama-compatible /api/embed
// endpoint. Each attempt is bounded by its own timeout; transport errors
// and non-2xx responses are retried with exponential backoff up to a
// fixed budget, after which the last error is surfaced to the caller.
type ollamaEmbedder struct {
	baseURL string
	model   string
	client  *http.Client
	timeout time.Duration
	retries int
}

func newOllamaEmbedder(baseURL, model string) *ollamaEmbedder {
	return &ollamaEmbedder{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
		timeout: embeddingTimeout,
		retries: embeddingRetries,
	}
}

func (e *ollamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(embedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, err
	}

	var lastErr error

	for attempt := 0; attempt <= e.retries; attempt++ {
		embeddings, err := e.attempt(ctx, body, len(texts))
		if err == nil {
			return embeddings, nil
		}
		lastErr = err

		if attempt == e.retries {
			break
		}

		select {
		case <-time.After(backoffDelay(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("embed %d texts: %w", len(texts), lastErr)
}

func (e *ollamaEmbedder) attempt(ctx context.Context, body []byte, want int) ([][]float64, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service: %s", res.Status)
	}

	var decoded embedResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("embedding service: malformed payload: %w", err)
	}

	// A partial batch is as useless as no batch at all.
	if len(decoded.Embeddings) != want {
		return nil, fmt.Errorf("embedding service: got %d embeddings for %d inputs", len(decoded.Embeddings), want)
	}

	// Jagged or empty vectors are another malformed-payload shape.
	if want > 0 {
		dim := len(decoded.Embeddings[0])
		if dim == 0 {
			return nil, fmt.Errorf("embedding service: empty embedding vectors")
		}
		for i, vec := range decoded.Embeddings[1:] {
			if len(vec) != dim {
				return nil, fmt.Errorf("embedding service: vector %d has %d dimensions, want %d", i+1, len(vec), dim)
			}
		}
	}

	return decoded.Embeddings, nil
}
