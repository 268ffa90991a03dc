package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abchat/internal/domain"
)

func fixtureRows() []domain.ExperimentRow {
	return []domain.ExperimentRow{
		{ID: 0, Arm: domain.ArmControl, StoreID: "T_Control_001", Region: domain.RegionNorte, StoreType: domain.StoreMall, Users: 100, Conversions: 10, Revenue: 500, ConversionRate: 0.10},
		{ID: 1, Arm: domain.ArmControl, StoreID: "T_Control_002", Region: domain.RegionSur, StoreType: domain.StoreStreet, Users: 200, Conversions: 20, Revenue: 900, ConversionRate: 0.10},
		{ID: 2, Arm: domain.ArmTreatment, StoreID: "T_Experimento_A_001", Region: domain.RegionNorte, StoreType: domain.StoreMall, Users: 100, Conversions: 12, Revenue: 610, ConversionRate: 0.12},
		{ID: 3, Arm: domain.ArmTreatment, StoreID: "T_Experimento_A_002", Region: domain.RegionEste, StoreType: domain.StoreOutlet, Users: 150, Conversions: 18, Revenue: 700, ConversionRate: 0.12},
		{ID: 4, Arm: domain.ArmTreatment, StoreID: "T_Experimento_A_003", Region: domain.RegionNorte, StoreType: domain.StoreStreet, Users: 50, Conversions: 7, Revenue: 300, ConversionRate: 0.14},
	}
}

func hitIDs(hits []domain.Hit) []int {
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.RowID
	}
	return out
}

func TestScan_QueryIntersectsPostings(t *testing.T) {
	s := NewScan(fixtureRows())
	ctx := context.Background()

	hits, err := s.Query(ctx, domain.FilterSet{}, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, hitIDs(hits))

	hits, err = s.Query(ctx, domain.FilterSet{Region: domain.RegionNorte}, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, hitIDs(hits))

	hits, err = s.Query(ctx, domain.FilterSet{Arm: domain.ArmTreatment, Region: domain.RegionNorte, StoreType: domain.StoreMall}, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, hitIDs(hits))

	hits, err = s.Query(ctx, domain.FilterSet{Region: domain.RegionOeste}, "", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.Query(ctx, domain.FilterSet{Arm: domain.ArmTreatment}, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, hitIDs(hits))
}

func TestScan_QueryRanksByLexicalOverlap(t *testing.T) {
	s := NewScan(fixtureRows())
	hits, err := s.Query(context.Background(), domain.FilterSet{}, "tiendas outlet del este", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 3, hits[0].RowID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	// zero overlap keeps row order
	hits, err = s.Query(context.Background(), domain.FilterSet{Region: domain.RegionNorte}, "zzz", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, hitIDs(hits))
}

func TestScan_RangesAndPostings(t *testing.T) {
	s := NewScan(fixtureRows())
	assert.Equal(t, Range{Min: 50, Max: 200}, s.Range(FieldUsers))
	assert.Equal(t, Range{Min: 0.10, Max: 0.14}, s.Range(FieldConversionRate))
	assert.Equal(t, []int{0, 2, 4}, s.posting(domain.DimRegion, "Norte"))
	assert.Empty(t, s.posting(domain.DimRegion, "Atlantis"))
}

func TestRange_Normalize(t *testing.T) {
	r := Range{Min: 10, Max: 20}
	assert.InDelta(t, 0.5, r.Normalize(15), 1e-9)
	assert.Equal(t, 0.0, r.Normalize(5))
	assert.Equal(t, 1.0, r.Normalize(25))
	assert.Equal(t, 0.0, Range{Min: 3, Max: 3}.Normalize(3))
}

func TestIntersect(t *testing.T) {
	assert.Equal(t, []int{2, 5}, intersect([]int{1, 2, 5, 7}, []int{2, 3, 5}))
	assert.Empty(t, intersect(nil, []int{1}))
}
