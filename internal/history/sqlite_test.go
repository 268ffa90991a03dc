package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abchat/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := s.Record(ctx, Entry{AskedAt: base, Question: "¿lift?", Answer: "20%", Source: "llm"})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	_, err = s.Record(ctx, Entry{
		AskedAt:  base.Add(time.Minute),
		Question: "región norte",
		Answer:   "raw",
		Source:   "fallback",
		Degraded: true,
		Filters:  domain.FilterSet{Region: domain.RegionNorte},
	})
	require.NoError(t, err)

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "región norte", got[0].Question)
	assert.True(t, got[0].Degraded)
	assert.Equal(t, domain.RegionNorte, got[0].Filters.Region)
	assert.True(t, base.Add(time.Minute).Equal(got[0].AskedAt))
	assert.Equal(t, "¿lift?", got[1].Question)
	assert.True(t, got[1].Filters.IsEmpty())

	limited, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecord_StampsTime(t *testing.T) {
	s := openTestStore(t)
	e, err := s.Record(context.Background(), Entry{Question: "q", Answer: "a", Source: "router"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), e.AskedAt, time.Minute)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Record(context.Background(), Entry{Question: "q", Answer: "a", Source: "router"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
