package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abchat/internal/domain"
)

func TestSummarize(t *testing.T) {
	rows, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	s := New("mem", rows).Summarize()

	assert.Equal(t, 4, s.Records)
	assert.Equal(t, []string{"Control", "Experimento_A"}, s.Arms)
	assert.Equal(t, []string{"Este", "Norte", "Sur"}, s.Regions)
	assert.Equal(t, []string{"Mall", "Street", "Outlet"}, s.StoreTypes)
	assert.Equal(t, 550, s.Users)
	assert.Equal(t, 60, s.Conversions)
	assert.InDelta(t, 2710.75, s.Revenue, 1e-9)
	assert.InDelta(t, 0.11, s.AvgConversionRate, 1e-9)
	assert.Equal(t, 2, s.RowsPerArm[domain.ArmControl])
	assert.Contains(t, s.String(), "4 tiendas")
}

func TestFindStore_CaseInsensitive(t *testing.T) {
	rows, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	ds := New("mem", rows)

	r, ok := ds.FindStore("t_control_002")
	require.True(t, ok)
	assert.Equal(t, 1, r.ID)

	_, ok = ds.FindStore("T_Control_999")
	assert.False(t, ok)
}

func TestDescribe(t *testing.T) {
	r := domain.ExperimentRow{Arm: domain.ArmTreatment, StoreID: "T9", Region: domain.RegionSur,
		StoreType: domain.StoreOutlet, Users: 10, Conversions: 2, Revenue: 12.5, ConversionRate: 0.2}
	d := Describe(r)
	assert.Contains(t, d, "Experimento_A")
	assert.Contains(t, d, "región Sur")
	assert.Contains(t, d, "tipo Outlet")
	assert.Contains(t, d, "20.00%")
}
