package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abchat/internal/domain"
	"abchat/internal/vectorstore"
)

func point(id int, arm domain.Arm, region domain.Region, vec ...float64) vectorstore.Point {
	return vectorstore.NewPoint(domain.ExperimentRow{ID: id, Arm: arm, Region: region, StoreType: domain.StoreMall}, vec)
}

func TestStorage_SearchRanksAndFilters(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []vectorstore.Point{
		point(0, domain.ArmControl, domain.RegionNorte, 1, 0),
		point(1, domain.ArmTreatment, domain.RegionNorte, 0, 1),
		point(2, domain.ArmTreatment, domain.RegionSur, 0.6, 0.8),
	}))

	hits, err := s.Search(ctx, []float64{0, 1}, domain.FilterSet{}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].RowID)
	assert.Equal(t, 2, hits[1].RowID)

	hits, err = s.Search(ctx, []float64{0, 1}, domain.FilterSet{Region: domain.RegionNorte}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, []int{1, 0}, []int{hits[0].RowID, hits[1].RowID})
}

func TestStorage_NilVectorKeepsRowOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 1))
	require.NoError(t, s.Upsert(ctx, []vectorstore.Point{
		point(2, domain.ArmTreatment, domain.RegionSur, 1),
		point(0, domain.ArmTreatment, domain.RegionSur, 1),
		point(1, domain.ArmControl, domain.RegionSur, 1),
	}))
	hits, err := s.Search(ctx, nil, domain.FilterSet{Arm: domain.ArmTreatment}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].RowID)
	assert.Equal(t, 2, hits[1].RowID)
}

func TestStorage_UpsertReplacesAndValidates(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	assert.Error(t, s.Upsert(ctx, []vectorstore.Point{point(0, domain.ArmControl, domain.RegionSur, 1)}))
	assert.Error(t, s.Init(ctx, 0))

	require.NoError(t, s.Init(ctx, 1))
	require.NoError(t, s.Upsert(ctx, []vectorstore.Point{point(0, domain.ArmControl, domain.RegionSur, 1)}))
	require.NoError(t, s.Upsert(ctx, []vectorstore.Point{point(0, domain.ArmControl, domain.RegionSur, 0.5)}))
	assert.Equal(t, 1, s.count())
	assert.Error(t, s.Upsert(ctx, []vectorstore.Point{point(1, domain.ArmControl, domain.RegionSur, 1, 2)}))

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.count())
}

func TestStorage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewStorage()
	_, err := s.Search(ctx, nil, domain.FilterSet{}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
