package llm

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/xhad/sitechat/internal/models"
	"github.com/xhad/sitechat/internal/types"
)

// Persona is the fixed system instruction sent with every completion.
const Persona = "You are a very kind and friendly AI assistant. You are currently having a conversation " +
	"with a human. Answer the questions in a kind and friendly tone but in a professional manner."

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	SystemTemplate string
}

// ChatEngine answers questions from a retrieved segment and the recent conversation.
type ChatEngine struct {
	config    ChatConfig
	completer types.Completer
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig, completer types.Completer) (*ChatEngine, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = Persona
	}

	return &ChatEngine{
		config:    config,
		completer: completer,
	}, nil
}

// CombinePrompt joins the retrieved text and the question with a blank line.
func CombinePrompt(segment, question string) string {
	return segment + "\n\n" + question
}

// Respond issues a single completion for question, grounded on segment, after history.
func (ce *ChatEngine) Respond(ctx context.Context, history []models.Message, segment models.ScoredSegment, question string) (string, error) {
	req := types.CompletionRequest{
		System:  ce.config.SystemTemplate,
		History: history,
		Prompt:  CombinePrompt(segment.Text, question),
	}

	log.Debug("requesting completion", "history", len(history), "prompt_chars", len(req.Prompt), "score", segment.Score)

	return ce.completer.Complete(ctx, req)
}
