package index

import (
	"context"
	"math"
	"regexp"
	"sort"

	"abchat/internal/dataset"
	"abchat/internal/domain"
	"abchat/internal/extract"
)

// Field names a numeric column of the dataset.
type Field string

const (
	FieldUsers          Field = "users"
	FieldConversions    Field = "conversions"
	FieldRevenue        Field = "revenue"
	FieldConversionRate Field = "conversion_rate"
)

// Fields lists the numeric fields in vector order.
var Fields = []Field{FieldUsers, FieldConversions, FieldRevenue, FieldConversionRate}

// Value returns the numeric field of a row.
func (f Field) Value(r domain.ExperimentRow) float64 {
	switch f {
	case FieldUsers:
		return float64(r.Users)
	case FieldConversions:
		return float64(r.Conversions)
	case FieldRevenue:
		return r.Revenue
	case FieldConversionRate:
		return r.ConversionRate
	}
	return 0
}

// Range is the observed [Min, Max] of a numeric field.
type Range struct {
	Min float64
	Max float64
}

// Normalize maps v onto [0,1]. A degenerate range maps everything to 0.
func (r Range) Normalize(v float64) float64 {
	span := r.Max - r.Min
	if span <= 0 {
		return 0
	}
	n := (v - r.Min) / span
	switch {
	case n < 0:
		return 0
	case n > 1:
		return 1
	}
	return n
}

// Scan answers attribute queries from per-value posting lists and ranks by lexical
// overlap with the row descriptions.
type Scan struct {
	rows     []domain.ExperimentRow
	postings map[domain.Dimension]map[string][]int
	ranges   map[Field]Range
	tokens   []map[string]struct{}
}

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// NewScan builds posting lists and numeric ranges over rows. Row ids must equal positions.
func NewScan(rows []domain.ExperimentRow) *Scan {
	s := &Scan{
		rows:     rows,
		postings: make(map[domain.Dimension]map[string][]int, len(domain.Dimensions)),
		ranges:   make(map[Field]Range, len(Fields)),
		tokens:   make([]map[string]struct{}, len(rows)),
	}
	for _, d := range domain.Dimensions {
		s.postings[d] = make(map[string][]int)
	}
	for i, r := range rows {
		s.tokens[i] = tokenSet(dataset.Describe(r))
		for _, d := range domain.Dimensions {
			v := r.Value(d)
			s.postings[d][v] = append(s.postings[d][v], i)
		}
		for _, f := range Fields {
			v := f.Value(r)
			rg, ok := s.ranges[f]
			if !ok {
				s.ranges[f] = Range{Min: v, Max: v}
				continue
			}
			rg.Min = min(rg.Min, v)
			rg.Max = max(rg.Max, v)
			s.ranges[f] = rg
		}
	}
	return s
}

// Range returns the observed range of a numeric field.
func (s *Scan) Range(f Field) Range { return s.ranges[f] }

// posting returns the ascending row ids holding value on dimension d.
func (s *Scan) posting(d domain.Dimension, value string) []int {
	return s.postings[d][value]
}

// Query intersects the posting lists of every set constraint. With text, hits are ranked by
// Ochiai overlap between text and the row description; otherwise they keep row order.
func (s *Scan) Query(ctx context.Context, filters domain.FilterSet, text string, limit int) ([]domain.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []int
	constrained := false
	for _, d := range domain.Dimensions {
		v := filters.Get(d)
		if v == "" {
			continue
		}
		list := s.posting(d, v)
		if !constrained {
			ids = list
			constrained = true
			continue
		}
		ids = intersect(ids, list)
	}
	if !constrained {
		ids = make([]int, len(s.rows))
		for i := range ids {
			ids[i] = i
		}
	}
	hits := make([]domain.Hit, len(ids))
	q := tokenSet(text)
	for i, id := range ids {
		hits[i] = domain.Hit{RowID: id}
		if len(q) > 0 {
			hits[i].Score = ochiai(q, s.tokens[id])
		}
	}
	if len(q) > 0 {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	}
	if limit > 0 && limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

func tokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(extract.Fold(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// ochiai is |A∩B| / sqrt(|A||B|).
func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}

// intersect merges two ascending id lists.
func intersect(a, b []int) []int {
	out := make([]int, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

