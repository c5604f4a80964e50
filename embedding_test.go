package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, backoffDelay(0))
	assert.Equal(t, 1*time.Second, backoffDelay(1))
	assert.Equal(t, 2*time.Second, backoffDelay(2))
}

func testEmbedder(baseURL string, retries int) *ollamaEmbedder {
	return &ollamaEmbedder{
		baseURL: baseURL,
		model:   "nomic-embed-text",
		client:  &http.Client{},
		timeout: time.Second,
		retries: retries,
	}
}

func TestOllamaEmbedder(t *testing.T) {
	t.Run("successful batch", func(t *testing.T) {
		var gotReq embedRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/embed", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			_ = json.NewEncoder(w).Encode(embedResponse{
				Embeddings: [][]float64{{1, 0}, {0, 1}},
			})
		}))
		defer srv.Close()

		embeddings, err := testEmbedder(srv.URL, 0).Embed(context.Background(), []string{"river", "stone"})
		require.NoError(t, err)
		assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, embeddings)
		assert.Equal(t, "nomic-embed-text", gotReq.Model)
		assert.Equal(t, []string{"river", "stone"}, gotReq.Input)
	})

	t.Run("retries after a server error", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(embedResponse{
				Embeddings: [][]float64{{1, 0}},
			})
		}))
		defer srv.Close()

		embeddings, err := testEmbedder(srv.URL, 1).Embed(context.Background(), []string{"river"})
		require.NoError(t, err)
		assert.Len(t, embeddings, 1)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := testEmbedder(srv.URL, 1).Embed(context.Background(), []string{"river"})
		assert.Error(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("rejects a partial batch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(embedResponse{
				Embeddings: [][]float64{{1, 0}},
			})
		}))
		defer srv.Close()

		_, err := testEmbedder(srv.URL, 0).Embed(context.Background(), []string{"river", "stone"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "1 embeddings for 2 inputs")
	})

	t.Run("rejects jagged vector dimensions", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings":[[1,0],[1]]}`))
		}))
		defer srv.Close()

		_, err := testEmbedder(srv.URL, 0).Embed(context.Background(), []string{"river", "stone"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimensions")
	})

	t.Run("rejects empty vectors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings":[[],[]]}`))
		}))
		defer srv.Close()

		_, err := testEmbedder(srv.URL, 0).Embed(context.Background(), []string{"river", "stone"})
		assert.Error(t, err)
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))
		defer srv.Close()

		_, err := testEmbedder(srv.URL, 0).Embed(context.Background(), []string{"river"})
		assert.Error(t, err)
	})

	t.Run("cancellation interrupts the backoff wait", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := testEmbedder(srv.URL, 2).Embed(ctx, []string{"river"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
