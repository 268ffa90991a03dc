package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc, batch int) *Client {
	t.Helper()
	return newTestEmbedderWith(t, handler, Config{BatchSize: batch, Workers: 2})
}

func newTestEmbedderWith(t *testing.T, handler http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("TEST_EMBED_KEY", "k")
	cfg.BaseURL, cfg.APIKeyEnv = srv.URL, "TEST_EMBED_KEY"
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func TestEmbed_OpenAIShape(t *testing.T) {
	c := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req["model"])
		assert.Equal(t, "hola", req["input"])
		assert.NotContains(t, req, "prompt")
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}, 0)

	assert.Equal(t, 0, c.Dimension())
	v, err := c.Embed(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, v)
	assert.Equal(t, 3, c.Dimension())
	assert.Equal(t, "openai", c.Name())
}

func TestEmbed_OllamaShape(t *testing.T) {
	c := newTestEmbedderWith(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "x", req["prompt"])
		_, _ = w.Write([]byte(`{"embedding":[1,2]}`))
	}, Config{Ollama: true})
	v, err := c.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, v)
}

func TestLooksLikeOllama(t *testing.T) {
	assert.True(t, looksLikeOllama("http://localhost:11434/api"))
	assert.True(t, looksLikeOllama("http://Ollama.internal/v1"))
	assert.False(t, looksLikeOllama("https://api.openai.com/v1"))
	assert.False(t, looksLikeOllama(""))
}

func TestEmbed_EmptyResponse(t *testing.T) {
	c := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}, 0)
	_, err := c.Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestEmbedAll_BatchesAndKeepsOrder(t *testing.T) {
	var requests atomic.Int32
	c := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req struct {
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		type item struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		resp := struct {
			Data []item `json:"data"`
		}{}
		// reply out of order to exercise index handling
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, item{Index: i, Embedding: []float64{float64(len(req.Input[i]))}})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}, 2)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := c.EmbedAll(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	for i, v := range vecs {
		assert.Equal(t, []float64{float64(len(texts[i]))}, v)
	}
	assert.Equal(t, int32(3), requests.Load())
}
