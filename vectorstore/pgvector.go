package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGStore keeps every namespace in one pgvector table, partitioned by the
// namespace column.
type PGStore struct {
	db         *pgxpool.Pool
	embedder   Embedder
	dimensions int
}

// NewPGStore wraps an existing pool. Call EnsureSchema once before use.
func NewPGStore(db *pgxpool.Pool, embedder Embedder, dimensions int) (*PGStore, error) {
	if db == nil {
		return nil, errors.New("vectorstore: pool is required")
	}
	if embedder == nil {
		return nil, errors.New("vectorstore: embedder is required")
	}
	if dimensions <= 0 {
		dimensions = 768
	}
	return &PGStore{db: db, embedder: embedder, dimensions: dimensions}, nil
}

// EnsureSchema creates the extension, table and HNSW index.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS vector_chunks (
			namespace  TEXT NOT NULL,
			id         TEXT NOT NULL,
			content    TEXT NOT NULL,
			source     TEXT NOT NULL DEFAULT '',
			page       INTEGER NOT NULL DEFAULT 0,
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (namespace, id)
		)`, s.dimensions),
		`CREATE INDEX IF NOT EXISTS idx_vector_chunks_embedding
			ON vector_chunks USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create vector schema: %w", err)
		}
	}
	return nil
}

func (s *PGStore) Open(ctx context.Context, namespace string) (Collection, error) {
	ns, err := SanitizeNamespace(namespace)
	if err != nil {
		return nil, err
	}
	return &pgCollection{store: s, namespace: ns}, nil
}

func (s *PGStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM vector_chunks`); err != nil {
		return fmt.Errorf("failed to clear vector chunks: %w", err)
	}
	return nil
}

// Close is a no-op; the pool belongs to the caller.
func (s *PGStore) Close() error { return nil }

type pgCollection struct {
	store     *PGStore
	namespace string
}

func (c *pgCollection) Namespace() string { return c.namespace }

func (c *pgCollection) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := c.store.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return ErrEmbeddingMismatch
	}

	tx, err := c.store.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i, d := range docs {
		batch.Queue(`
			INSERT INTO vector_chunks (namespace, id, content, source, page, embedding)
			VALUES ($1, $2, $3, $4, $5, $6::vector)
			ON CONFLICT (namespace, id) DO UPDATE
			SET content = EXCLUDED.content, source = EXCLUDED.source,
				page = EXCLUDED.page, embedding = EXCLUDED.embedding`,
			c.namespace, d.ID, d.Content, d.Source, d.Page, pgvector.NewVector(vectors[i]))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	return tx.Commit(ctx)
}

func (c *pgCollection) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := c.store.db.Query(ctx, `SELECT id FROM vector_chunks WHERE namespace = $1`, c.namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunk ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (c *pgCollection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.store.db.Exec(ctx,
		`DELETE FROM vector_chunks WHERE namespace = $1 AND id = ANY($2)`, c.namespace, ids)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

func (c *pgCollection) SimilaritySearch(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		return []Result{}, nil
	}
	qvec, err := c.store.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// single sort key so the HNSW index serves the query; ties are unordered
	rows, err := c.store.db.Query(ctx, `
		SELECT id, content, source, page, embedding <=> $2::vector AS distance
		FROM vector_chunks
		WHERE namespace = $1
		ORDER BY embedding <=> $2::vector
		LIMIT $3`, c.namespace, pgvector.NewVector(qvec), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Content, &r.Source, &r.Page, &r.Distance); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (c *pgCollection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.store.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM vector_chunks WHERE namespace = $1`, c.namespace).Scan(&n)
	return n, err
}
