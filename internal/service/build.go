package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"abchat/internal/apperr"
	"abchat/internal/config"
	"abchat/internal/dataset"
	"abchat/internal/domain"
	embedopenai "abchat/internal/embedding/openai"
	"abchat/internal/embedding/tfidf"
	"abchat/internal/history"
	"abchat/internal/index"
	llmopenai "abchat/internal/llm/openai"
	"abchat/internal/vectorstore"
	"abchat/internal/vectorstore/memory"
	"abchat/internal/vectorstore/qdrant"
)

// Build loads the dataset and assembles the service described by cfg. The returned
// close function releases the history database.
func Build(ctx context.Context, cfg *config.AppConfig) (*ChatService, func() error, error) {
	log := zerolog.Ctx(ctx)
	noop := func() error { return nil }

	ds, err := dataset.Load(cfg.Dataset.Path)
	if err != nil {
		return nil, noop, err
	}
	log.Info().Str("path", ds.Path()).Int("rows", ds.Len()).Msg("dataset loaded")

	embedder, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, noop, apperr.Wrap(err, apperr.KindValidation, "configure embedder")
	}
	workers := 4
	if cfg.Embedder.OpenAI != nil && cfg.Embedder.OpenAI.Workers > 0 {
		workers = cfg.Embedder.OpenAI.Workers
	}
	var idx domain.Index
	vec, err := index.BuildVector(ctx, ds.Rows(), ds.Descriptions(), index.VectorConfig{
		Embedder: embedder,
		Store:    newStore(cfg.VectorStore),
		Weights:  cfg.Weights,
		Workers:  workers,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, noop, ctx.Err()
		}
		log.Warn().Err(apperr.External(err, "index")).Msg("vector index unavailable, using local scan")
	} else {
		idx = vec
	}

	gen, err := newGenerator(cfg.LLM)
	if err != nil {
		log.Warn().Err(err).Msg("language model disabled, answers will carry raw statistics")
	}

	deps := Deps{
		Dataset:      ds,
		Index:        idx,
		Generator:    gen,
		Threshold:    cfg.Analysis.SignificanceThreshold,
		RelatedLimit: cfg.Query.DefaultLimit,
	}
	closeFn := noop
	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, noop, fmt.Errorf("open history: %w", err)
		}
		deps.History = store
		closeFn = store.Close
	}
	return New(deps), closeFn, nil
}

func newEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "openai":
		oc := cfg.OpenAI
		if oc == nil {
			oc = &config.OpenAIEmbedderConfig{}
		}
		return embedopenai.NewClient(embedopenai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
			BatchSize: oc.BatchSize,
			Workers:   oc.Workers,
		})
	default:
		return tfidf.NewEmbedder(), nil
	}
}

func newStore(cfg config.VectorStoreConfig) vectorstore.Storage {
	if cfg.Type == "qdrant" && cfg.Qdrant != nil {
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		})
	}
	return memory.NewStorage()
}

// newGenerator returns a nil generator for llm.type none.
func newGenerator(cfg config.LLMConfig) (domain.Generator, error) {
	if cfg.Type != "openai" {
		return nil, nil
	}
	client, err := llmopenai.NewClient(llmopenai.Config{
		BaseURL:           cfg.BaseURL,
		APIKeyEnv:         cfg.APIKeyEnv,
		Model:             cfg.ModelID,
		Timeout:           cfg.Timeout(),
		Temperature:       cfg.Temperature,
		MaxTokens:         cfg.MaxTokens,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
