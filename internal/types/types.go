package types

import (
	"context"

	"github.com/xhad/sitechat/internal/models"
)

// Core interfaces
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is a queryable similarity index over embedded segments.
type Index interface {
	ID() string
	Len() int
	Search(ctx context.Context, query string, k int) ([]models.ScoredSegment, error)
	Close() error
}

type IndexBuilder interface {
	Build(ctx context.Context, segments []models.Segment, embedder Embedder) (Index, error)
}

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	System  string
	History []models.Message
	Prompt  string
}

type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Provider creates the credential-bound clients of one LLM vendor.
type Provider interface {
	Name() string
	Embedder(credential string) (Embedder, error)
	Completer(credential string) (Completer, error)
}

// Segmenter splits page text into index segments.
type Segmenter interface {
	Segments(text string) ([]models.Segment, error)
}
