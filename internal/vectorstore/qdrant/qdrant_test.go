package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abchat/internal/domain"
	"abchat/internal/vectorstore"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
}

func newFakeQdrant(t *testing.T, calls *[]recorded) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		*calls = append(*calls, rec)
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		switch {
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/collections/rows/points/search":
			_, _ = w.Write([]byte(`{"result":[{"id":3,"score":0.5,"payload":{"row_id":3}},{"id":1,"score":0.9,"payload":{"row_id":1}}]}`))
		case r.URL.Path == "/collections/rows/points/scroll":
			_, _ = w.Write([]byte(`{"result":{"points":[{"id":1,"payload":{"row_id":1}},{"id":3,"payload":{}}]}}`))
		default:
			_, _ = w.Write([]byte(`{"result":true}`))
		}
	}))
}

func TestStorage_RoundTripAgainstFakeServer(t *testing.T) {
	var calls []recorded
	srv := newFakeQdrant(t, &calls)
	defer srv.Close()
	ctx := context.Background()

	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "rows"})
	require.NoError(t, s.Init(ctx, 2))
	row := domain.ExperimentRow{ID: 1, Arm: domain.ArmControl, Region: domain.RegionNorte, StoreType: domain.StoreMall}
	require.NoError(t, s.Upsert(ctx, []vectorstore.Point{vectorstore.NewPoint(row, []float64{1, 0})}))
	assert.Error(t, s.Upsert(ctx, []vectorstore.Point{vectorstore.NewPoint(row, []float64{1})}))

	hits, err := s.Search(ctx, []float64{1, 0}, domain.FilterSet{Region: domain.RegionNorte}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].RowID)
	assert.Equal(t, 3, hits[1].RowID)

	search := calls[len(calls)-1]
	assert.Equal(t, "/collections/rows/points/search", search.path)
	filter := search.body["filter"].(map[string]any)
	must := filter["must"].([]any)
	require.Len(t, must, 1)
	cond := must[0].(map[string]any)
	assert.Equal(t, "region", cond["key"])
	assert.Equal(t, "Norte", cond["match"].(map[string]any)["value"])

	hits, err = s.Search(ctx, nil, domain.FilterSet{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.Hit{{RowID: 1}, {RowID: 3}}, hits)
	scroll := calls[len(calls)-1]
	assert.Equal(t, "/collections/rows/points/scroll", scroll.path)
	assert.NotContains(t, scroll.body, "filter")
	assert.EqualValues(t, 1, scroll.body["limit"])
}

func TestStorage_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	s := NewStorage(Config{URL: srv.URL, Collection: "rows"})
	err := s.Init(context.Background(), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestBuildFilter_Empty(t *testing.T) {
	assert.Nil(t, buildFilter(domain.FilterSet{}))
	f := buildFilter(domain.FilterSet{Arm: domain.ArmControl, StoreType: domain.StoreOutlet})
	assert.Len(t, f["must"], 2)
}
