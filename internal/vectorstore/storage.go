package vectorstore

import (
	"context"

	"abchat/internal/domain"
)

// Point is one indexed row: its vector plus the categorical payload used for filtering.
type Point struct {
	RowID   int
	Vector  []float64
	Payload map[domain.Dimension]string
}

// NewPoint builds a point carrying the row's categorical attributes as payload.
func NewPoint(r domain.ExperimentRow, vector []float64) Point {
	payload := make(map[domain.Dimension]string, len(domain.Dimensions))
	for _, d := range domain.Dimensions {
		payload[d] = r.Value(d)
	}
	return Point{RowID: r.ID, Vector: vector, Payload: payload}
}

// Storage persists row vectors and supports filtered similarity search.
// Search with topK <= 0 returns every point that satisfies the filter.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float64, filter domain.FilterSet, topK int) ([]domain.Hit, error)
	Clear(ctx context.Context) error
}

// Matches reports whether a payload satisfies every set constraint of f.
func Matches(f domain.FilterSet, payload map[domain.Dimension]string) bool {
	for _, d := range domain.Dimensions {
		if v := f.Get(d); v != "" && payload[d] != v {
			return false
		}
	}
	return true
}
