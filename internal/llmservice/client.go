package llmservice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"document-chat/internal/config"
	"document-chat/internal/models"
)

var ErrEmptyResponse = errors.New("model returned no content")

var thinkRe = regexp.MustCompile(models.ThinkTag)

// Generator is the part of llms.Model the client needs.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Client sends role-tagged conversations to a chat-completion endpoint and
// blocks until the answer arrives. Calls are not retried; repeated failures
// open a circuit breaker that fails fast until breaker_timeout passes.
type Client struct {
	model       Generator
	temperature float64
	maxTokens   int
	breaker     *gobreaker.CircuitBreaker
	limiter     *rate.Limiter
}

// NewClient builds a client for the OpenAI-compatible endpoint in cfg.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init chat client: %w", err)
	}
	return NewClientWithModel(llm, cfg), nil
}

func NewClientWithModel(model Generator, cfg *config.LLMConfig) *Client {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 3
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chat-completion",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})

	c := &Client{
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		breaker:     breaker,
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c
}

// Complete returns the text of the first choice with reasoning blocks removed.
func (c *Client) Complete(ctx context.Context, messages []llms.MessageContent) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.model.GenerateContent(ctx, messages, opts...)
	})
	if err != nil {
		return "", err
	}

	res, _ := result.(*llms.ContentResponse)
	if res == nil || len(res.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	answer := strings.TrimSpace(thinkRe.ReplaceAllString(res.Choices[0].Content, ""))
	if answer == "" {
		return "", ErrEmptyResponse
	}

	log.Debug().Int("messages", len(messages)).Dur("took", time.Since(start)).Msg("Generated content")
	return answer, nil
}
