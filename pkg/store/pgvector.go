package store

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/sitechat/internal/models"
	"github.com/xhad/sitechat/internal/types"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// VectorStore builds indexes whose segments live in a PostgreSQL table with the pgvector extension.
// Rows are scoped by index ID and removed when the index is closed.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "segments"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // Default for OpenAI embeddings
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			index_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d),
			PRIMARY KEY (index_id, position)
		)`, vs.config.TableName, vs.config.VectorDim)

	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (vs *VectorStore) Build(ctx context.Context, segments []models.Segment, embedder types.Embedder) (types.Index, error) {
	vectors, err := embedSegments(ctx, segments, embedder)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`INSERT INTO %s (index_id, position, content, embedding) VALUES ($1, $2, $3, $4)`,
		vs.config.TableName)

	for i, s := range segments {
		if len(vectors[i]) != vs.config.VectorDim {
			return nil, fmt.Errorf("%w: vector has %d dimensions, table expects %d",
				ErrEmbeddingSize, len(vectors[i]), vs.config.VectorDim)
		}
		if _, err := tx.Exec(ctx, stmt, id, i, s.Text, pgvector.NewVector(vectors[i])); err != nil {
			return nil, fmt.Errorf("failed to insert segment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug("pgvector index built", "id", id, "segments", len(segments), "table", vs.config.TableName)

	return &pgIndex{store: vs, id: id, n: len(segments), embedder: embedder}, nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

type pgIndex struct {
	store    *VectorStore
	id       string
	n        int
	embedder types.Embedder
	closed   bool
}

func (p *pgIndex) ID() string { return p.id }

func (p *pgIndex) Len() int { return p.n }

func (p *pgIndex) Search(ctx context.Context, query string, k int) ([]models.ScoredSegment, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if k < 1 {
		return nil, ErrInvalidK
	}

	q, err := embedQuery(ctx, p.embedder, query)
	if err != nil {
		return nil, err
	}

	// <=> is cosine distance; similarity is 1 - distance.
	sql := fmt.Sprintf(`
		SELECT content, 1 - (embedding <=> $2)
		FROM %s
		WHERE index_id = $1
		ORDER BY embedding <=> $2
		LIMIT $3`,
		p.store.config.TableName)

	rows, err := p.store.pool.Query(ctx, sql, p.id, pgvector.NewVector(q), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var results []models.ScoredSegment
	for rows.Next() {
		var s models.ScoredSegment
		if err := rows.Scan(&s.Text, &s.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return results, nil
}

func (p *pgIndex) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	_, err := p.store.pool.Exec(context.Background(),
		fmt.Sprintf("DELETE FROM %s WHERE index_id = $1", p.store.config.TableName), p.id)
	if err != nil {
		return fmt.Errorf("failed to delete index rows: %w", err)
	}
	return nil
}
