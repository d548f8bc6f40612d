package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"document-chat/internal/config"
)

// New creates the embedder described by cfg, throttled when
// requests_per_minute is set.
func New(cfg *config.LLMConfig) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	var (
		embedder embeddings.Embedder
		err      error
	)
	switch cfg.Provider {
	case "openai":
		embedder, err = NewEmbedder(cfg.Key, cfg.BaseURL, cfg.Model)
	case "ollama":
		embedder, err = NewOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerMinute > 0 {
		embedder = WithRateLimit(embedder, cfg.RequestsPerMinute)
	}
	return embedder, nil
}

// NewEmbedder creates an embedder for an OpenAI-compatible endpoint.
func NewEmbedder(apiKey, baseURL, embeddingModel string) (*embeddings.EmbedderImpl, error) {
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithEmbeddingModel(embeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("init openai embedding client: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

// new ollama embedder
func NewOllamaEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init ollama embedding client: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

type limitedEmbedder struct {
	next    embeddings.Embedder
	limiter *rate.Limiter
}

// WithRateLimit spaces calls to next so that at most perMinute requests start
// in any minute.
func WithRateLimit(next embeddings.Embedder, perMinute int) embeddings.Embedder {
	return &limitedEmbedder{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (e *limitedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.next.EmbedDocuments(ctx, texts)
}

func (e *limitedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.next.EmbedQuery(ctx, text)
}
