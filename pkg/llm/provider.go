package llm

import (
	"fmt"

	"github.com/xhad/sitechat/internal/types"
	"github.com/xhad/sitechat/pkg/config"
)

// NewProvider builds the provider named in the LLM section of the config.
func NewProvider(cfg config.LLMConfig) (types.Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(OpenAIConfig{
			BaseURL:        cfg.BaseURL,
			ChatModel:      cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
			MaxTokens:      cfg.MaxTokens,
			Temperature:    cfg.Temperature,
		}), nil
	case "ollama":
		return NewOllamaProvider(OllamaConfig{
			BaseURL:        cfg.BaseURL,
			ChatModel:      cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
			MaxTokens:      cfg.MaxTokens,
			Temperature:    cfg.Temperature,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
