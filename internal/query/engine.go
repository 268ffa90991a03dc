package query

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"abchat/internal/apperr"
	"abchat/internal/domain"
	"abchat/internal/index"
)

// Order is the direction of a ranking.
type Order string

const (
	Desc Order = "desc"
	Asc  Order = "asc"
)

// Ranked is a row with its similarity score.
type Ranked struct {
	Row   domain.ExperimentRow `json:"row"`
	Score float64              `json:"score"`
}

// Engine applies filters to the dataset through an attribute index.
type Engine struct {
	rows     []domain.ExperimentRow
	idx      domain.Index
	fallback *index.Scan
}

// New builds an engine over rows. Row ids must equal positions. A nil idx uses the local scan.
func New(rows []domain.ExperimentRow, idx domain.Index) *Engine {
	scan := index.NewScan(rows)
	if idx == nil {
		idx = scan
	}
	return &Engine{rows: rows, idx: idx, fallback: scan}
}

// Select returns every row satisfying all set constraints, in original order.
// An index failure is logged and answered by the local scan; only context errors are returned.
func (e *Engine) Select(ctx context.Context, f domain.FilterSet) ([]domain.ExperimentRow, error) {
	hits, err := e.idx.Query(ctx, f, "", 0)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logFallback(ctx, err, "select")
		hits, err = e.fallback.Query(ctx, f, "", 0)
		if err != nil {
			return nil, err
		}
	}
	ids := make([]int, 0, len(hits))
	for _, h := range hits {
		if h.RowID < 0 || h.RowID >= len(e.rows) || !f.Matches(e.rows[h.RowID]) {
			continue
		}
		ids = append(ids, h.RowID)
	}
	sort.Ints(ids)
	out := make([]domain.ExperimentRow, 0, len(ids))
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		out = append(out, e.rows[id])
	}
	return out, nil
}

// Related returns up to k rows satisfying f, ranked by similarity to text.
func (e *Engine) Related(ctx context.Context, f domain.FilterSet, text string, k int) ([]Ranked, error) {
	if k <= 0 {
		return nil, nil
	}
	hits, err := e.idx.Query(ctx, f, text, k)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logFallback(ctx, err, "related")
		hits, err = e.fallback.Query(ctx, f, text, k)
		if err != nil {
			return nil, err
		}
	}
	out := make([]Ranked, 0, len(hits))
	for _, h := range hits {
		if h.RowID < 0 || h.RowID >= len(e.rows) || !f.Matches(e.rows[h.RowID]) {
			continue
		}
		out = append(out, Ranked{Row: e.rows[h.RowID], Score: h.Score})
	}
	return out, nil
}

func (e *Engine) logFallback(ctx context.Context, err error, op string) {
	zerolog.Ctx(ctx).Warn().
		Err(apperr.External(err, "index")).
		Str("op", op).
		Msg("index unavailable, using local scan")
}

// Top ranks rows by metric and returns the first k. Ties keep original order.
func Top(rows []domain.ExperimentRow, metric index.Field, order Order, k int) []domain.ExperimentRow {
	out := make([]domain.ExperimentRow, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := metric.Value(out[i]), metric.Value(out[j])
		if order == Asc {
			return a < b
		}
		return a > b
	})
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}
