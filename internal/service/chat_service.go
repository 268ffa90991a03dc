package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"abchat/internal/analytics"
	"abchat/internal/apperr"
	"abchat/internal/composer"
	"abchat/internal/dataset"
	"abchat/internal/domain"
	"abchat/internal/extract"
	"abchat/internal/history"
	"abchat/internal/query"
	"abchat/internal/router"
)

// Source names what produced an answer.
type Source string

const (
	SourceRouter     Source = "router"
	SourceLLM        Source = "llm"
	SourceStatistics Source = "statistics"
	// SourceFallback marks a statistics answer given because the model failed.
	SourceFallback Source = "fallback"
)

// Answer is the reply to one question.
type Answer struct {
	Question   string                 `json:"question"`
	Text       string                 `json:"answer"`
	Source     Source                 `json:"source"`
	Intent     router.Intent          `json:"intent"`
	Degraded   bool                   `json:"degraded"`
	Extraction *extract.Extraction    `json:"extraction,omitempty"`
	Rows       int                    `json:"rows"`
	Analysis   *analytics.Result      `json:"analysis,omitempty"`
	Related    []query.Ranked         `json:"related,omitempty"`
	Top        []domain.ExperimentRow `json:"top,omitempty"`
}

// HistoryStore persists answered questions.
type HistoryStore interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Deps are the collaborators of a ChatService. Dataset is required; a nil Generator answers
// with statistics only and a nil History disables recording.
type Deps struct {
	Dataset   *dataset.Dataset
	Index     domain.Index
	Generator domain.Generator
	History   HistoryStore
	// Threshold is the significance threshold for the analysis.
	Threshold float64
	// RelatedLimit bounds the related and top-performer rows given as context.
	RelatedLimit int
}

// ChatService answers questions about the experiment.
type ChatService struct {
	ds        *dataset.Dataset
	router    *router.Router
	extractor *extract.Extractor
	engine    *query.Engine
	analyzer  *analytics.Analyzer
	composer  *composer.Composer
	history   HistoryStore
	limit     int
	now       func() time.Time
}

func New(deps Deps) *ChatService {
	x := extract.New()
	limit := deps.RelatedLimit
	if limit <= 0 {
		limit = 5
	}
	return &ChatService{
		ds:        deps.Dataset,
		router:    router.New(deps.Dataset, x),
		extractor: x,
		engine:    query.New(deps.Dataset.Rows(), deps.Index),
		analyzer:  analytics.New(deps.Threshold),
		composer:  composer.New(deps.Generator),
		history:   deps.History,
		limit:     limit,
		now:       time.Now,
	}
}

// Summary describes the loaded dataset.
func (s *ChatService) Summary() dataset.Summary {
	return s.ds.Summarize()
}

// Ask answers question. Only an empty question and context cancellation are returned as errors;
// every other failure degrades the answer.
func (s *ChatService) Ask(ctx context.Context, question string) (*Answer, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return nil, apperr.Validation("question is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := zerolog.Ctx(ctx)

	route := s.router.Route(q)
	if route.Handled {
		ans := &Answer{Question: q, Text: route.Text, Source: SourceRouter, Intent: route.Intent, Rows: s.ds.Len()}
		s.record(ctx, ans)
		return ans, nil
	}

	ext := s.extractor.Extract(q)
	if err := ext.Ambiguity(); err != nil {
		log.Debug().Err(err).Str("question", q).Msg("no filters recognised")
	}
	rows, err := s.engine.Select(ctx, ext.Filters)
	if err != nil {
		return nil, err
	}
	res := s.analyzer.Analyze(rows, ext.Comparisons)
	for _, issue := range res.Issues {
		log.Debug().Err(issue).Msg("analysis issue")
	}

	related, err := s.engine.Related(ctx, ext.Filters, q, s.limit)
	if err != nil {
		return nil, err
	}
	req := composer.Request{Question: q, Extraction: ext, Analysis: res, Related: related}
	var top []domain.ExperimentRow
	if perf, ok := router.DetectPerformance(q); ok {
		top = query.Top(rows, perf.Metric, perf.Order, s.limit)
		req.Top = top
		req.TopMetric = perf.Metric
	}

	comp := s.composer.Compose(ctx, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ans := &Answer{
		Question:   q,
		Text:       comp.Text,
		Source:     SourceStatistics,
		Intent:     route.Intent,
		Degraded:   comp.Degraded,
		Extraction: &ext,
		Rows:       len(rows),
		Analysis:   res,
		Related:    related,
		Top:        top,
	}
	switch {
	case comp.Generated:
		ans.Source = SourceLLM
	case comp.Degraded:
		ans.Source = SourceFallback
	}
	log.Info().
		Str("source", string(ans.Source)).
		Str("filters", ext.Filters.String()).
		Int("rows", len(rows)).
		Bool("significant", res.Significant).
		Bool("degenerate", res.HasIssue(apperr.KindDegenerate)).
		Msg("question answered")
	s.record(ctx, ans)
	return ans, nil
}

// Recent returns the latest recorded questions, newest first.
func (s *ChatService) Recent(ctx context.Context, limit int) ([]history.Entry, error) {
	if s.history == nil {
		return nil, apperr.Validation("history is disabled; set history.path in the config")
	}
	return s.history.Recent(ctx, limit)
}

// record stores the answer; a failure only logs.
func (s *ChatService) record(ctx context.Context, ans *Answer) {
	if s.history == nil {
		return
	}
	e := history.Entry{
		AskedAt:  s.now(),
		Question: ans.Question,
		Answer:   ans.Text,
		Source:   string(ans.Source),
		Degraded: ans.Degraded,
	}
	if ans.Extraction != nil {
		e.Filters = ans.Extraction.Filters
	}
	if _, err := s.history.Record(ctx, e); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to record question")
	}
}
