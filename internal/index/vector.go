package index

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"abchat/internal/domain"
	"abchat/internal/vectorstore"
)

// BatchEmbedder is implemented by embedders that can embed many texts per call.
type BatchEmbedder interface {
	EmbedAll(ctx context.Context, texts []string) ([][]float64, error)
}

// Vector ranks rows by weighted similarity across categorical, numeric and text spaces.
// Filters are applied by the store as hard constraints.
type Vector struct {
	embedder domain.Embedder
	store    vectorstore.Storage
	weights  Weights
	ranges   map[Field]Range
	textDim  int
	dim      int
}

// VectorConfig wires the Vector index.
type VectorConfig struct {
	Embedder domain.Embedder
	Store    vectorstore.Storage
	Weights  Weights
	// Workers bounds concurrent Embed calls when the embedder has no batch API.
	Workers int
}

// categorical spaces in vector order
var spaces = []domain.Dimension{domain.DimArm, domain.DimRegion, domain.DimStoreType}

// BuildVector embeds every description and loads the store. descriptions must align with rows.
func BuildVector(ctx context.Context, rows []domain.ExperimentRow, descriptions []string, cfg VectorConfig) (*Vector, error) {
	if len(rows) != len(descriptions) {
		return nil, fmt.Errorf("rows and descriptions length mismatch: %d != %d", len(rows), len(descriptions))
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	log := zerolog.Ctx(ctx)
	start := time.Now()

	if err := cfg.Embedder.Prepare(descriptions); err != nil {
		return nil, fmt.Errorf("prepare embedder: %w", err)
	}
	texts, err := embedAll(ctx, cfg.Embedder, descriptions, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("embed descriptions: %w", err)
	}

	scan := NewScan(rows)
	v := &Vector{
		embedder: cfg.Embedder,
		store:    cfg.Store,
		weights:  cfg.Weights,
		ranges:   make(map[Field]Range, len(Fields)),
		textDim:  cfg.Embedder.Dimension(),
	}
	for _, f := range Fields {
		v.ranges[f] = scan.Range(f)
	}
	v.dim = v.categoricalDim() + len(Fields) + v.textDim

	if err := cfg.Store.Init(ctx, v.dim); err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	points := make([]vectorstore.Point, len(rows))
	for i, r := range rows {
		points[i] = vectorstore.NewPoint(r, v.rowVector(r, texts[i]))
	}
	if err := cfg.Store.Upsert(ctx, points); err != nil {
		return nil, fmt.Errorf("upsert vectors: %w", err)
	}
	log.Debug().
		Str("embedder", cfg.Embedder.Name()).
		Int("rows", len(rows)).
		Int("dimension", v.dim).
		Dur("took", time.Since(start)).
		Msg("vector index built")
	return v, nil
}

// Dimension is the length of row and query vectors.
func (v *Vector) Dimension() int { return v.dim }

// Query returns rows satisfying filters, ranked by similarity to text.
// Empty text, or text sharing nothing with the corpus, returns matches in row order.
func (v *Vector) Query(ctx context.Context, filters domain.FilterSet, text string, limit int) ([]domain.Hit, error) {
	var qv []float64
	if strings.TrimSpace(text) != "" {
		emb, err := v.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		qv = v.queryVector(filters, emb)
	}
	return v.store.Search(ctx, qv, filters, limit)
}

func (v *Vector) categoricalDim() int {
	n := 0
	for _, d := range spaces {
		n += len(d.Values())
	}
	return n
}

func (v *Vector) spaceWeight(d domain.Dimension) float64 {
	switch d {
	case domain.DimArm:
		return v.weights.Arm
	case domain.DimRegion:
		return v.weights.Region
	case domain.DimStoreType:
		return v.weights.StoreType
	}
	return 0
}

func (v *Vector) rowVector(r domain.ExperimentRow, text []float64) []float64 {
	out := make([]float64, 0, v.dim)
	for _, d := range spaces {
		out = appendOneHot(out, d, r.Value(d), v.spaceWeight(d))
	}
	for _, f := range Fields {
		out = append(out, v.ranges[f].Normalize(f.Value(r))*v.weights.numeric(f))
	}
	out = appendScaled(out, text, v.textDim, v.weights.Description)
	return normalize(out)
}

// queryVector encodes requested categorical values and the text embedding; numeric spaces stay zero.
// A zero vector is returned as nil so the store falls back to row order.
func (v *Vector) queryVector(filters domain.FilterSet, text []float64) []float64 {
	out := make([]float64, 0, v.dim)
	for _, d := range spaces {
		out = appendOneHot(out, d, filters.Get(d), v.spaceWeight(d))
	}
	out = append(out, make([]float64, len(Fields))...)
	out = appendScaled(out, text, v.textDim, v.weights.Description)
	if norm(out) == 0 {
		return nil
	}
	return normalize(out)
}

func appendOneHot(out []float64, d domain.Dimension, value string, weight float64) []float64 {
	for _, c := range d.Values() {
		if c == value {
			out = append(out, weight)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

// appendScaled pads or truncates vec to n entries.
func appendScaled(out, vec []float64, n int, weight float64) []float64 {
	for i := 0; i < n; i++ {
		x := 0.0
		if i < len(vec) {
			x = vec[i] * weight
		}
		out = append(out, x)
	}
	return out
}

func norm(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func normalize(v []float64) []float64 {
	n := norm(v)
	if n == 0 {
		return v
	}
	for i := range v {
		v[i] /= n
	}
	return v
}

func embedAll(ctx context.Context, e domain.Embedder, texts []string, workers int) ([][]float64, error) {
	if b, ok := e.(BatchEmbedder); ok {
		return b.EmbedAll(ctx, texts)
	}
	out := make([][]float64, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t := range texts {
		g.Go(func() error {
			vec, err := e.Embed(ctx, t)
			if err != nil {
				return err
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
