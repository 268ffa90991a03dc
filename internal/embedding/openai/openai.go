package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"abchat/internal/openaiapi"
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
type Client struct {
	api       *openaiapi.Client
	model     string
	batchSize int
	workers   int
	ollama    bool

	mu        sync.Mutex
	dimension int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL           string
	APIKeyEnv         string
	Model             string
	Timeout           time.Duration
	BatchSize         int
	Workers           int
	RequestsPerMinute int
	// Ollama adds the "prompt" field of Ollama's native endpoint to single embeds.
	// It is switched on for base URLs that look like an Ollama server.
	Ollama bool
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	api, err := openaiapi.NewClient(openaiapi.Config{
		BaseURL:           cfg.BaseURL,
		APIKeyEnv:         cfg.APIKeyEnv,
		Timeout:           cfg.Timeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})
	if err != nil {
		return nil, err
	}
	return newClient(api, cfg), nil
}

func newClient(api *openaiapi.Client, cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Client{
		api:       api,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
		ollama:    cfg.Ollama || looksLikeOllama(cfg.BaseURL),
	}
}

func looksLikeOllama(baseURL string) bool {
	u := strings.ToLower(baseURL)
	return strings.Contains(u, ":11434") || strings.Contains(u, "ollama")
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Prepare is not required for remote embedding. Dimension is set lazily on first embed.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors, 0 before the first call.
func (c *Client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimension
}

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.embed(ctx, []string{text}, true)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedAll embeds texts in batches, running up to Workers requests at once.
// The result is aligned with texts.
func (c *Client) EmbedAll(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := c.embed(ctx, texts[start:end], false)
			if err != nil {
				return err
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) embed(ctx context.Context, inputs []string, scalar bool) ([][]float64, error) {
	type reqBody struct {
		Input  any    `json:"input"`
		Prompt string `json:"prompt,omitempty"`
		Model  string `json:"model"`
	}
	body := reqBody{Input: inputs, Model: c.model}
	if scalar {
		body.Input = inputs[0]
		// OpenAI rejects unknown fields; Ollama's native endpoint reads "prompt"
		if c.ollama {
			body.Prompt = inputs[0]
		}
	}
	payload, err := c.api.PostJSON(ctx, "/embeddings", body)
	if err != nil {
		return nil, err
	}
	vecs, err := decodeEmbeddings(payload, len(inputs))
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.dimension == 0 {
		c.dimension = len(vecs[0])
	}
	c.mu.Unlock()
	return vecs, nil
}

func decodeEmbeddings(payload []byte, want int) ([][]float64, error) {
	// OpenAI-compatible response first
	var openaiOut struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil && len(openaiOut.Data) == want {
		out := make([][]float64, want)
		for i, d := range openaiOut.Data {
			idx := d.Index
			if idx < 0 || idx >= want || out[idx] != nil {
				idx = i
			}
			if len(d.Embedding) == 0 {
				return nil, errors.New("empty embedding")
			}
			out[idx] = d.Embedding
		}
		return out, nil
	}
	// Fallback to Ollama-native shape: { "embedding": [...] }
	if want == 1 {
		var ollamaOut struct {
			Embedding []float64 `json:"embedding"`
		}
		if err := json.Unmarshal(payload, &ollamaOut); err == nil && len(ollamaOut.Embedding) > 0 {
			return [][]float64{ollamaOut.Embedding}, nil
		}
	}
	return nil, errors.New("no embedding returned")
}
