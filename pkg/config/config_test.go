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
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("DATABASE_URL", "")

	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  provider: "openai"
  model: "gpt-4o-mini"
  max_tokens: 1000
  temperature: 0.5

index:
  backend: "pgvector"
  database_url: "postgres://localhost:5432/test"
  table_name: "test_segments"
  vector_dim: 768

scraper:
  renderer: "chromedp"
  timeout: 10s
  max_chars: 20000

chat:
  history_window: 5

log:
  level: "debug"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", config.LLM.Model)
	assert.Equal(t, "text-embedding-ada-002", config.LLM.EmbeddingModel)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "pgvector", config.Index.Backend)
	assert.Equal(t, "postgres://localhost:5432/test", config.Index.DatabaseURL)
	assert.Equal(t, 768, config.Index.VectorDim)
	assert.Equal(t, "chromedp", config.Scraper.Renderer)
	assert.Equal(t, 10*time.Second, config.Scraper.Timeout)
	assert.Equal(t, 5, config.Chat.HistoryWindow)
	assert.Equal(t, 1, config.Chat.TopK)
	assert.Equal(t, "debug", config.Log.Level)
	assert.Empty(t, config.Validate())
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SITECHAT_LOG_LEVEL", "")

	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "gpt-4o", config.LLM.Model)
	assert.Equal(t, 0.7, config.LLM.Temperature)
	assert.Equal(t, "memory", config.Index.Backend)
	assert.Equal(t, 1536, config.Index.VectorDim)
	assert.Equal(t, "http", config.Scraper.Renderer)
	assert.Equal(t, 10, config.Chat.HistoryWindow)
	assert.Equal(t, 1, config.Chat.TopK)
	assert.Equal(t, "Hello there, I am your Website chatbot.", config.Chat.Greeting)
	assert.Equal(t, ":8080", config.Server.Address)
	assert.Empty(t, config.Validate())
}

func TestOllamaDefaults(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")

	config := &Config{LLM: LLMConfig{Provider: "ollama"}}
	applyDefaults(config)

	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, "nomic-embed-text:latest", config.LLM.EmbeddingModel)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, 768, config.Index.VectorDim)
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		c := Config{}
		applyDefaults(&c)
		return c
	}

	tests := []struct {
		name          string
		mutate        func(c *Config)
		errorMessages []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "invalid llm",
			mutate: func(c *Config) {
				c.LLM.Provider = "bard"
				c.LLM.BaseURL = "invalid-url"
				c.LLM.MaxTokens = -1
				c.LLM.Temperature = 3.0
			},
			errorMessages: []string{
				"llm.provider: unknown provider: bard",
				"llm.base_url: invalid base URL",
				"llm.max_tokens: max_tokens must be between 0 and 16384",
				"llm.temperature: temperature must be between 0 and 2",
			},
		},
		{
			name: "pgvector without database",
			mutate: func(c *Config) {
				c.Index.Backend = "pgvector"
				c.Index.VectorDim = -1
			},
			errorMessages: []string{
				"index.database_url: database URL is required for the pgvector backend",
				"index.vector_dim: vector_dim must be positive",
			},
		},
		{
			name: "invalid scraper and chat",
			mutate: func(c *Config) {
				c.Scraper.Renderer = "lynx"
				c.Chat.HistoryWindow = -2
				c.Chat.TopK = 0
			},
			errorMessages: []string{
				"scraper.renderer: unknown renderer: lynx",
				"chat.history_window: history_window must be positive",
				"chat.top_k: top_k must be positive",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)

			errors := config.Validate()
			require.Len(t, errors, len(tt.errorMessages))
			for i, msg := range tt.errorMessages {
				assert.Contains(t, errors[i].Error(), msg)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_BASE_URL", "http://env-openai:8080/v1")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("SITECHAT_LOG_LEVEL", "warn")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "sk-env", config.LLM.APIKey)
	assert.Equal(t, "http://env-openai:8080/v1", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Index.DatabaseURL)
	assert.Equal(t, "warn", config.Log.Level)
}
