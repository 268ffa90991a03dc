package domain

import "context"

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Index retrieves row ids matching attribute constraints, ranked by similarity to text.
// An empty text ranks nothing and returns matches in row order; limit <= 0 returns all matches.
type Index interface {
	Query(ctx context.Context, filters FilterSet, text string, limit int) ([]Hit, error)
}

// Prompt is a single request to a language model.
type Prompt struct {
	System string
	User   string
}

// Generator produces natural-language text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}
