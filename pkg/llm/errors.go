package llm

import (
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

var (
	ErrMissingCredential = errors.New("API key is required")
	ErrAuthentication    = errors.New("API key was rejected")
	ErrQuota             = errors.New("API quota or rate limit exceeded")
	ErrEmptyResponse     = errors.New("no completion choices returned")
)

// classify tags provider errors with the sentinel that best describes them.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w: %w", op, ErrAuthentication, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w: %w", op, ErrQuota, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
