package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultTopK         = 3
	DefaultVectorDim    = 768
	DefaultTemperature  = 0.7
)

type Config struct {
	LogLevel    string            `yaml:"log_level"`
	LLM         LLMConfig         `yaml:"llm"`
	EmbedLLM    LLMConfig         `yaml:"embed_llm"`
	RAG         RAGConfig         `yaml:"rag"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Database    DatabaseConfig    `yaml:"database"`
}

// LLMConfig describes an OpenAI-compatible or Ollama endpoint. It is used both
// for the chat model and for the embedding model.
type LLMConfig struct {
	Provider          string        `yaml:"provider"`
	BaseURL           string        `yaml:"base_url"`
	Key               string        `yaml:"key"`
	Model             string        `yaml:"model"`
	Temperature       float64       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	BreakerFailures   uint32        `yaml:"breaker_failures"`
	BreakerTimeout    time.Duration `yaml:"breaker_timeout"`
}

type RAGConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	Splitter     string `yaml:"splitter"`
	TopK         int    `yaml:"top_k"`
	DefaultInfo  string `yaml:"default_info"`
}

type VectorStoreConfig struct {
	Type     string `yaml:"type"`
	Path     string `yaml:"path"` // empty keeps the index in memory
	Compress bool   `yaml:"compress"`
}

type DatabaseConfig struct {
	DSN       string `yaml:"dsn"`
	Driver    string `yaml:"driver"`
	Debug     bool   `yaml:"debug"`
	VectorDim int    `yaml:"vector_dim"`
}

// LoadConfig reads the YAML file at path over the defaults, so keys left out
// keep their default and explicit zeros are honoured. A missing file yields the
// defaults so the app can start with environment variables alone.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("error reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	mergeWithEnv(&cfg)
	return &cfg, nil
}

func Default() Config {
	return Config{
		LogLevel: "info",
		LLM: LLMConfig{
			Provider:        "openai",
			BaseURL:         "https://api.groq.com/openai/v1",
			Model:           "llama-3.1-8b-instant",
			Temperature:     DefaultTemperature,
			BreakerFailures: 3,
			BreakerTimeout:  30 * time.Second,
		},
		EmbedLLM: LLMConfig{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
			Model:    "nomic-embed-text",
		},
		RAG: RAGConfig{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
			Splitter:     "window",
			TopK:         DefaultTopK,
		},
		VectorStore: VectorStoreConfig{Type: "chromem"},
		Database: DatabaseConfig{
			Driver:    "pgdriver",
			VectorDim: DefaultVectorDim,
		},
	}
}

func mergeWithEnv(cfg *Config) {
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		cfg.LLM.Key = key
	} else if key := os.Getenv("GROQ_API_KEY"); key != "" && cfg.LLM.Key == "" {
		cfg.LLM.Key = key
	}
	if baseURL := os.Getenv("LLM_BASE_URL"); baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.EmbedLLM.Provider != "openai" {
		cfg.EmbedLLM.BaseURL = baseURL
	}
	if key := os.Getenv("EMBED_API_KEY"); key != "" {
		cfg.EmbedLLM.Key = key
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.DSN = dsn
	}
}
