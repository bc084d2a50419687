package store

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/xhad/sitechat/internal/models"
	"github.com/xhad/sitechat/internal/types"
)

var ErrClosed = errors.New("index is closed")

// MemoryBuilder builds in-process indexes searched by brute-force cosine similarity.
type MemoryBuilder struct{}

func NewMemoryBuilder() *MemoryBuilder {
	return &MemoryBuilder{}
}

func (b *MemoryBuilder) Build(ctx context.Context, segments []models.Segment, embedder types.Embedder) (types.Index, error) {
	vectors, err := embedSegments(ctx, segments, embedder)
	if err != nil {
		return nil, err
	}

	idx := &MemoryIndex{
		id:       uuid.NewString(),
		embedder: embedder,
		segments: append([]models.Segment(nil), segments...),
		vectors:  vectors,
	}
	log.Debug("memory index built", "id", idx.id, "segments", len(segments))
	return idx, nil
}

type MemoryIndex struct {
	id       string
	embedder types.Embedder
	segments []models.Segment
	vectors  [][]float32
	closed   bool
}

func (m *MemoryIndex) ID() string { return m.id }

func (m *MemoryIndex) Len() int { return len(m.segments) }

func (m *MemoryIndex) Search(ctx context.Context, query string, k int) ([]models.ScoredSegment, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if k < 1 {
		return nil, ErrInvalidK
	}

	q, err := embedQuery(ctx, m.embedder, query)
	if err != nil {
		return nil, err
	}

	results := make([]models.ScoredSegment, len(m.segments))
	for i, s := range m.segments {
		results[i] = models.ScoredSegment{Text: s.Text, Score: cosine(q, m.vectors[i])}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (m *MemoryIndex) Close() error {
	m.closed = true
	m.segments = nil
	m.vectors = nil
	return nil
}

// cosine returns 0 when either vector has zero magnitude or the lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
