package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/sitechat/internal/models"
	"github.com/xhad/sitechat/internal/types"
	"github.com/xhad/sitechat/pkg/llm"
)

type recordingCompleter struct {
	requests []types.CompletionRequest
	reply    string
	err      error
}

func (c *recordingCompleter) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	c.requests = append(c.requests, req)
	return c.reply, c.err
}

func TestNewWithConfig(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{}, &recordingCompleter{})
	assert.NoError(t, err)
	assert.NotNil(t, engine)

	_, err = llm.NewWithConfig(llm.ChatConfig{}, nil)
	assert.Error(t, err)
}

func TestCombinePrompt(t *testing.T) {
	assert.Equal(t, "The sky is blue.\n\nWhat color is the sky?",
		llm.CombinePrompt("The sky is blue.", "What color is the sky?"))
}

func TestRespond(t *testing.T) {
	completer := &recordingCompleter{reply: "Blue!"}
	engine, err := llm.NewWithConfig(llm.ChatConfig{}, completer)
	require.NoError(t, err)

	history := []models.Message{
		{Role: models.RoleUser, Content: "Hi"},
		{Role: models.RoleAssistant, Content: "Hello!"},
	}

	reply, err := engine.Respond(context.Background(), history,
		models.ScoredSegment{Text: "The sky is blue.", Score: 0.9}, "What color is the sky?")
	require.NoError(t, err)
	assert.Equal(t, "Blue!", reply)

	require.Len(t, completer.requests, 1)
	req := completer.requests[0]
	assert.Equal(t, llm.Persona, req.System)
	assert.Equal(t, history, req.History)
	assert.Equal(t, "The sky is blue.\n\nWhat color is the sky?", req.Prompt)
}

func TestRespondCustomSystem(t *testing.T) {
	completer := &recordingCompleter{reply: "ok"}
	engine, err := llm.NewWithConfig(llm.ChatConfig{SystemTemplate: "Be terse."}, completer)
	require.NoError(t, err)

	_, err = engine.Respond(context.Background(), nil, models.ScoredSegment{Text: "x"}, "y")
	require.NoError(t, err)
	assert.Equal(t, "Be terse.", completer.requests[0].System)
}

func TestRespondPropagatesErrors(t *testing.T) {
	boom := errors.New("network down")
	engine, err := llm.NewWithConfig(llm.ChatConfig{}, &recordingCompleter{err: boom})
	require.NoError(t, err)

	_, err = engine.Respond(context.Background(), nil, models.ScoredSegment{Text: "x"}, "y")
	assert.ErrorIs(t, err, boom)
}
