package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/sitechat/internal/models"
	"github.com/xhad/sitechat/internal/types"
)

// OllamaConfig configures a local Ollama server reached through langchaingo.
type OllamaConfig struct {
	BaseURL        string // Ollama server URL
	ChatModel      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float64
}

// OllamaProvider serves chat and embeddings from Ollama. The credential is not used.
type OllamaProvider struct {
	config OllamaConfig
}

func NewOllamaProvider(config OllamaConfig) *OllamaProvider {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.ChatModel == "" {
		config.ChatModel = "mistral"
	}
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = "nomic-embed-text:latest"
	}
	return &OllamaProvider{config: config}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Embedder(string) (types.Embedder, error) {
	emb, err := ollama.New(ollama.WithModel(p.config.EmbeddingModel), ollama.WithServerURL(p.config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return emb, nil
}

func (p *OllamaProvider) Completer(string) (types.Completer, error) {
	llm, err := ollama.New(ollama.WithModel(p.config.ChatModel), ollama.WithServerURL(p.config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	return &ollamaCompleter{llm: llm, config: p.config}, nil
}

type ollamaCompleter struct {
	llm    llms.Model
	config OllamaConfig
}

func (c *ollamaCompleter) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	content := make([]llms.MessageContent, 0, len(req.History)+2)
	if req.System != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	for _, m := range req.History {
		role := llms.ChatMessageTypeHuman
		if m.Role == models.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, m.Content))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	opts := []llms.CallOption{llms.WithTemperature(c.config.Temperature)}
	if c.config.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.config.MaxTokens))
	}

	resp, err := c.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}
