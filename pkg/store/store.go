package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/xhad/sitechat/internal/models"
	"github.com/xhad/sitechat/internal/types"
	"github.com/xhad/sitechat/pkg/config"
)

var (
	ErrNilIndex      = errors.New("index is nil")
	ErrInvalidK      = errors.New("k must be at least 1")
	ErrNoSegments    = errors.New("no segments to index")
	ErrEmbeddingSize = errors.New("embedding count does not match segment count")
)

// Retrieve returns the k segments of idx most similar to query, best first.
func Retrieve(ctx context.Context, idx types.Index, query string, k int) ([]models.ScoredSegment, error) {
	if idx == nil {
		return nil, ErrNilIndex
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	return idx.Search(ctx, query, k)
}

// NewBuilder returns the index builder for the configured backend.
func NewBuilder(ctx context.Context, cfg config.IndexConfig) (types.IndexBuilder, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryBuilder(), nil
	case "pgvector":
		vs, err := NewWithConfig(ctx, VectorStoreConfig{
			ConnString: cfg.DatabaseURL,
			TableName:  cfg.TableName,
			VectorDim:  cfg.VectorDim,
		})
		if err != nil {
			return nil, err
		}
		return vs, nil
	default:
		return nil, fmt.Errorf("unknown index backend: %s", cfg.Backend)
	}
}

func embedSegments(ctx context.Context, segments []models.Segment, embedder types.Embedder) ([][]float32, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}

	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}

	vectors, err := embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vectors) != len(segments) {
		return nil, fmt.Errorf("%w: %d vectors for %d segments", ErrEmbeddingSize, len(vectors), len(segments))
	}
	return vectors, nil
}

func embedQuery(ctx context.Context, embedder types.Embedder, query string) ([]float32, error) {
	vectors, err := embedder.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: %d vectors for query", ErrEmbeddingSize, len(vectors))
	}
	return vectors[0], nil
}
