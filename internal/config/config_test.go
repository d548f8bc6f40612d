package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
log_level: debug
llm:
  base_url: "https://api.example.com/v1"
  model: "chat-model"
  temperature: 0.2
  max_tokens: 512
  breaker_timeout: 5s
embed_llm:
  provider: openai
  base_url: "https://embed.example.com/v1"
  model: "embed-model"
rag:
  chunk_size: 500
  chunk_overlap: 100
  top_k: 4
  default_info: "Acme support desk"
vector_store:
  type: chromem
  path: ./index
`
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://api.example.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "chat-model", cfg.LLM.Model)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, 512, cfg.LLM.MaxTokens)
	assert.Equal(t, 5*time.Second, cfg.LLM.BreakerTimeout)
	assert.Equal(t, "openai", cfg.EmbedLLM.Provider)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 100, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 4, cfg.RAG.TopK)
	assert.Equal(t, "window", cfg.RAG.Splitter)
	assert.Equal(t, "Acme support desk", cfg.RAG.DefaultInfo)
	assert.Equal(t, "./index", cfg.VectorStore.Path)
	assert.Empty(t, cfg.Validate())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultChunkSize, cfg.RAG.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.RAG.ChunkOverlap)
	assert.Equal(t, DefaultTopK, cfg.RAG.TopK)
	assert.Equal(t, DefaultTemperature, cfg.LLM.Temperature)
	assert.Equal(t, "chromem", cfg.VectorStore.Type)
	assert.Equal(t, "ollama", cfg.EmbedLLM.Provider)
	assert.Empty(t, cfg.Validate())
}

func TestLoadConfigKeepsExplicitZeros(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configData := `
llm:
  temperature: 0
rag:
  chunk_overlap: 0
`
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 0.0, cfg.LLM.Temperature)
	assert.Equal(t, 0, cfg.RAG.ChunkOverlap)
	assert.Equal(t, DefaultChunkSize, cfg.RAG.ChunkSize)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	assert.Empty(t, cfg.Validate())
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("rag: [unclosed"), 0644))

	_, err := LoadConfig(configPath)
	assert.ErrorContains(t, err, "error parsing config file")
}

func TestConfigValidation(t *testing.T) {
	valid := Default

	tests := []struct {
		name     string
		mutate   func(*Config)
		expected []string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name: "overlap not smaller than size",
			mutate: func(c *Config) {
				c.RAG.ChunkSize = 100
				c.RAG.ChunkOverlap = 100
			},
			expected: []string{"rag.chunk_overlap: chunk_overlap must be non-negative and less than chunk_size"},
		},
		{
			name: "bad endpoints",
			mutate: func(c *Config) {
				c.LLM.BaseURL = "not a url"
				c.LLM.Temperature = 3
				c.EmbedLLM.Provider = "huggingface"
			},
			expected: []string{
				"llm.base_url: invalid base URL",
				"embed_llm.provider: unknown provider: huggingface",
				"llm.temperature: temperature must be between 0 and 2",
			},
		},
		{
			name: "pgvector without dsn",
			mutate: func(c *Config) {
				c.VectorStore.Type = "pgvector"
				c.Database.Driver = "sqlite"
			},
			expected: []string{
				"database.dsn: dsn is required for the pgvector store",
				"database.driver: unknown driver: sqlite",
			},
		},
		{
			name: "unknown store and splitter",
			mutate: func(c *Config) {
				c.RAG.Splitter = "semantic"
				c.VectorStore.Type = "faiss"
			},
			expected: []string{
				"rag.splitter: unknown splitter: semantic",
				"vector_store.type: unknown vector store: faiss",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			errors := cfg.Validate()
			require.Len(t, errors, len(tt.expected))
			for i, msg := range tt.expected {
				assert.Equal(t, msg, errors[i].Error())
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")

	cfg := &Config{}
	mergeWithEnv(cfg)

	assert.Equal(t, "groq-key", cfg.LLM.Key)
	assert.Equal(t, "http://env-ollama:11434", cfg.EmbedLLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", cfg.Database.DSN)

	t.Setenv("LLM_API_KEY", "primary-key")
	mergeWithEnv(cfg)
	assert.Equal(t, "primary-key", cfg.LLM.Key)
}
