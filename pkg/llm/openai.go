package llm

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	openai "github.com/sashabaranov/go-openai"
	"github.com/xhad/sitechat/internal/models"
	"github.com/xhad/sitechat/internal/types"
)

const (
	DefaultChatModel      = openai.GPT4o
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
)

// OpenAIConfig configures the hosted OpenAI (or API-compatible) provider.
type OpenAIConfig struct {
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float64
	HTTPClient     *http.Client
}

// OpenAIProvider builds credential-bound OpenAI clients.
type OpenAIProvider struct {
	config OpenAIConfig
}

func NewOpenAIProvider(config OpenAIConfig) *OpenAIProvider {
	if config.ChatModel == "" {
		config.ChatModel = DefaultChatModel
	}
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = string(DefaultEmbeddingModel)
	}
	return &OpenAIProvider{config: config}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) client(credential string) (*openai.Client, error) {
	if credential == "" {
		return nil, ErrMissingCredential
	}
	cfg := openai.DefaultConfig(credential)
	if p.config.BaseURL != "" {
		cfg.BaseURL = p.config.BaseURL
	}
	if p.config.HTTPClient != nil {
		cfg.HTTPClient = p.config.HTTPClient
	}
	return openai.NewClientWithConfig(cfg), nil
}

func (p *OpenAIProvider) Embedder(credential string) (types.Embedder, error) {
	client, err := p.client(credential)
	if err != nil {
		return nil, err
	}
	return &openAIEmbedder{client: client, model: openai.EmbeddingModel(p.config.EmbeddingModel)}, nil
}

func (p *OpenAIProvider) Completer(credential string) (types.Completer, error) {
	client, err := p.client(credential)
	if err != nil {
		return nil, err
	}
	return &openAICompleter{client: client, config: p.config}, nil
}

type openAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func (e *openAIEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, classify("failed to create embeddings", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("failed to create embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

type openAICompleter struct {
	client *openai.Client
	config OpenAIConfig
}

func (c *openAICompleter) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.History {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.ChatModel,
		Messages:    messages,
		MaxTokens:   c.config.MaxTokens,
		Temperature: float32(c.config.Temperature),
	})
	if err != nil {
		return "", classify("chat error", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
