package session

import (
	"errors"

	"github.com/xhad/sitechat/pkg/llm"
)

var (
	ErrMissingInput  = errors.New("website URL and API key are required")
	ErrNoIndex       = errors.New("no website has been indexed")
	ErrEmptyQuestion = errors.New("question is empty")
)

const (
	MsgMissingInput = "Please provide a valid Website URL and API Key first."
	MsgAuth         = "The API key was rejected by the provider. Check the key and try again."
	MsgQuota        = "The provider's quota or rate limit was exceeded. Try again later."
	MsgEmpty        = "Please type a question."
	MsgGeneric      = "Something went wrong while talking to the website or the model."
)

// UserMessage maps an error returned by a Session to the text shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingInput), errors.Is(err, ErrNoIndex):
		return MsgMissingInput
	case errors.Is(err, ErrEmptyQuestion):
		return MsgEmpty
	case errors.Is(err, llm.ErrAuthentication):
		return MsgAuth
	case errors.Is(err, llm.ErrQuota):
		return MsgQuota
	default:
		return MsgGeneric
	}
}
