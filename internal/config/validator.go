package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate reports every problem found rather than stopping at the first.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("unknown log level: %s", c.LogLevel),
		})
	}

	errors = append(errors, validateEndpoint("llm", &c.LLM)...)
	errors = append(errors, validateEndpoint("embed_llm", &c.EmbedLLM)...)

	if c.LLM.Provider != "openai" {
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: "chat model must use an openai-compatible endpoint",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.MaxTokens < 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens cannot be negative",
		})
	}

	if c.RAG.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "rag.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "rag.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.RAG.Splitter != "window" && c.RAG.Splitter != "recursive" {
		errors = append(errors, ValidationError{
			Field:   "rag.splitter",
			Message: fmt.Sprintf("unknown splitter: %s", c.RAG.Splitter),
		})
	}

	if c.RAG.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "rag.top_k",
			Message: "top_k must be positive",
		})
	}

	switch c.VectorStore.Type {
	case "chromem":
	case "pgvector":
		if c.Database.DSN == "" {
			errors = append(errors, ValidationError{
				Field:   "database.dsn",
				Message: "dsn is required for the pgvector store",
			})
		} else if _, err := url.Parse(c.Database.DSN); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.dsn",
				Message: "invalid database URL",
			})
		}
		if c.Database.Driver != "pgdriver" && c.Database.Driver != "pq" {
			errors = append(errors, ValidationError{
				Field:   "database.driver",
				Message: fmt.Sprintf("unknown driver: %s", c.Database.Driver),
			})
		}
		if c.Database.VectorDim < 1 {
			errors = append(errors, ValidationError{
				Field:   "database.vector_dim",
				Message: "vector_dim must be positive",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "vector_store.type",
			Message: fmt.Sprintf("unknown vector store: %s", c.VectorStore.Type),
		})
	}

	return errors
}

func validateEndpoint(prefix string, c *LLMConfig) []ValidationError {
	var errors []ValidationError

	if c.Provider != "openai" && c.Provider != "ollama" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".provider",
			Message: fmt.Sprintf("unknown provider: %s", c.Provider),
		})
	}

	if c.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".base_url",
			Message: "base URL is required",
		})
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".base_url",
			Message: "invalid base URL",
		})
	}

	if c.Model == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".model",
			Message: "model is required",
		})
	}

	if c.RequestsPerMinute < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".requests_per_minute",
			Message: "requests_per_minute cannot be negative",
		})
	}

	return errors
}
