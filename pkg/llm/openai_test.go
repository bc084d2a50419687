package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/sitechat/internal/models"
	"github.com/xhad/sitechat/internal/types"
)

type fakeOpenAI struct {
	status   int
	lastChat openai.ChatCompletionRequest
	reply    string
}

func (f *fakeOpenAI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if f.status != 0 {
			writeAPIError(w, f.status)
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastChat))
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.reply},
			}},
		})
	})

	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		if f.status != 0 {
			writeAPIError(w, f.status)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Reply out of order so callers must sort by index.
		data := make([]openai.Embedding, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, openai.Embedding{
				Object:    "embedding",
				Index:     i,
				Embedding: []float32{float32(i), 1},
			})
		}
		json.NewEncoder(w).Encode(openai.EmbeddingResponse{Object: "list", Data: data})
	})

	return mux
}

func writeAPIError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
}

func newTestProvider(t *testing.T, fake *fakeOpenAI) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)
	return NewOpenAIProvider(OpenAIConfig{BaseURL: server.URL + "/v1", Temperature: 0.7})
}

func TestOpenAIProviderDefaults(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{})
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, openai.GPT4o, p.config.ChatModel)
	assert.Equal(t, string(openai.AdaEmbeddingV2), p.config.EmbeddingModel)
}

func TestOpenAIMissingCredential(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{})

	_, err := p.Embedder("")
	assert.ErrorIs(t, err, ErrMissingCredential)

	_, err = p.Completer("")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestOpenAICompleter(t *testing.T) {
	fake := &fakeOpenAI{reply: "The sky is blue."}
	completer, err := newTestProvider(t, fake).Completer("sk-test")
	require.NoError(t, err)

	reply, err := completer.Complete(context.Background(), types.CompletionRequest{
		System: Persona,
		History: []models.Message{
			{Role: models.RoleUser, Content: "Hi"},
			{Role: models.RoleAssistant, Content: "Hello!"},
		},
		Prompt: "The sky is blue.\n\nWhat color is the sky?",
	})
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", reply)

	msgs := fake.lastChat.Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, openai.GPT4o, fake.lastChat.Model)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[3].Role)
	assert.Equal(t, "The sky is blue.\n\nWhat color is the sky?", msgs[3].Content)
}

func TestOpenAIEmbedder(t *testing.T) {
	embedder, err := newTestProvider(t, &fakeOpenAI{}).Embedder("sk-test")
	require.NoError(t, err)

	vectors, err := embedder.CreateEmbedding(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, v := range vectors {
		assert.Equal(t, float32(i), v[0])
	}
}

func TestOpenAIRejectedKey(t *testing.T) {
	p := newTestProvider(t, &fakeOpenAI{status: http.StatusUnauthorized})

	completer, err := p.Completer("sk-bad")
	require.NoError(t, err)
	_, err = completer.Complete(context.Background(), types.CompletionRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrAuthentication)

	embedder, err := p.Embedder("sk-bad")
	require.NoError(t, err)
	_, err = embedder.CreateEmbedding(context.Background(), []string{"hi"})
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestOpenAIQuota(t *testing.T) {
	completer, err := newTestProvider(t, &fakeOpenAI{status: http.StatusTooManyRequests}).Completer("sk-test")
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), types.CompletionRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrQuota)
	assert.NotErrorIs(t, err, ErrAuthentication)
}
