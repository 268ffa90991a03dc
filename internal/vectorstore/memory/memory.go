package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"abchat/internal/domain"
	"abchat/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force dot product over
// L2-normalised vectors.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	points    []vectorstore.Point
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.points = nil
	return nil
}

func (s *Storage) Upsert(_ context.Context, points []vectorstore.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return errors.New("storage not initialised")
	}
	for _, p := range points {
		if len(p.Vector) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	byID := make(map[int]int, len(s.points))
	for i, p := range s.points {
		byID[p.RowID] = i
	}
	for _, p := range points {
		if i, ok := byID[p.RowID]; ok {
			s.points[i] = p
			continue
		}
		byID[p.RowID] = len(s.points)
		s.points = append(s.points, p)
	}
	return nil
}

// Search scores every point passing the filter. Equal scores keep ascending row order.
func (s *Storage) Search(ctx context.Context, vector []float64, filter domain.FilterSet, topK int) ([]domain.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if vector != nil && len(vector) != s.dimension {
		return nil, errors.New("query vector dimension mismatch")
	}
	hits := make([]domain.Hit, 0, len(s.points))
	for _, p := range s.points {
		if !vectorstore.Matches(filter, p.Payload) {
			continue
		}
		hits = append(hits, domain.Hit{RowID: p.RowID, Score: dot(p.Vector, vector)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].RowID < hits[j].RowID
	})
	if topK > 0 && topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = nil
	return nil
}

func (s *Storage) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

func dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
