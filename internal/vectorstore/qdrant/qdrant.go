package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"abchat/internal/domain"
	"abchat/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and recreates the collection on Init.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu        sync.RWMutex
	dimension int
	count     int
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.Collection == "" {
		cfg.Collection = "abchat_rows"
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	// Rows are re-indexed on every start, so a stale collection is dropped first.
	if err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil, http.StatusNotFound); err != nil {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil, http.StatusConflict); err != nil {
		return err
	}
	s.mu.Lock()
	s.dimension = dimension
	s.count = 0
	s.mu.Unlock()
	return nil
}

func (s *Storage) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.RLock()
	dim := s.dimension
	s.mu.RUnlock()
	out := make([]map[string]any, len(points))
	for i, p := range points {
		if len(p.Vector) != dim {
			return errors.New("vector dimension mismatch")
		}
		payload := map[string]any{"row_id": p.RowID}
		for d, v := range p.Payload {
			payload[string(d)] = v
		}
		out[i] = map[string]any{
			"id":      p.RowID,
			"vector":  p.Vector,
			"payload": payload,
		}
	}
	body := map[string]any{"points": out}
	if err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil); err != nil {
		return err
	}
	s.mu.Lock()
	s.count += len(points)
	s.mu.Unlock()
	return nil
}

type scoredPoint struct {
	ID      int     `json:"id"`
	Score   float64 `json:"score"`
	Payload struct {
		RowID *int `json:"row_id"`
	} `json:"payload"`
}

func (p scoredPoint) rowID() int {
	if p.Payload.RowID != nil {
		return *p.Payload.RowID
	}
	return p.ID
}

// Search runs a filtered similarity search. A nil vector scrolls the filtered points in id order.
func (s *Storage) Search(ctx context.Context, vector []float64, filter domain.FilterSet, topK int) ([]domain.Hit, error) {
	s.mu.RLock()
	limit := s.count
	s.mu.RUnlock()
	if topK > 0 {
		limit = topK
	}
	if limit <= 0 {
		return []domain.Hit{}, nil
	}
	req := map[string]any{
		"limit":        limit,
		"with_payload": []string{"row_id"},
	}
	if f := buildFilter(filter); f != nil {
		req["filter"] = f
	}

	var points []scoredPoint
	if vector == nil {
		var resp struct {
			Result struct {
				Points []scoredPoint `json:"points"`
			} `json:"result"`
		}
		if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/scroll"), req, &resp); err != nil {
			return nil, err
		}
		points = resp.Result.Points
	} else {
		req["vector"] = vector
		var resp struct {
			Result []scoredPoint `json:"result"`
		}
		if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
			return nil, err
		}
		points = resp.Result
	}

	hits := make([]domain.Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, domain.Hit{RowID: p.rowID(), Score: p.Score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].RowID < hits[j].RowID
	})
	return hits, nil
}

func (s *Storage) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.count = 0
	s.mu.Unlock()
	return s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil, http.StatusNotFound)
}

// buildFilter turns set constraints into a Qdrant "must" clause list.
func buildFilter(f domain.FilterSet) map[string]any {
	var must []map[string]any
	for _, d := range domain.Dimensions {
		if v := f.Get(d); v != "" {
			must = append(must, map[string]any{
				"key":   string(d),
				"match": map[string]any{"value": v},
			})
		}
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

// do sends body as JSON and decodes the response into out when non-nil.
// Status codes listed in tolerated are treated as success.
func (s *Storage) do(ctx context.Context, method, url string, body, out any, tolerated ...int) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	for _, code := range tolerated {
		if resp.StatusCode == code {
			return nil
		}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
