package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

const localDBFile = "chunks.sqlite3"

const localSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id        TEXT PRIMARY KEY,
	content   TEXT NOT NULL,
	source    TEXT NOT NULL DEFAULT '',
	page      INTEGER NOT NULL DEFAULT 0,
	embedding BLOB NOT NULL
)`

// LocalStore keeps each namespace in its own directory under root, holding a
// single SQLite file. Search is an exact cosine scan over the namespace.
type LocalStore struct {
	root     string
	embedder Embedder

	mu          sync.Mutex
	collections map[string]*localCollection
}

// NewLocalStore creates root if needed.
func NewLocalStore(root string, embedder Embedder) (*LocalStore, error) {
	if embedder == nil {
		return nil, errors.New("vectorstore: embedder is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create vector root: %w", err)
	}
	return &LocalStore{
		root:        root,
		embedder:    embedder,
		collections: make(map[string]*localCollection),
	}, nil
}

func (s *LocalStore) Open(ctx context.Context, namespace string) (Collection, error) {
	ns, err := SanitizeNamespace(namespace)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[ns]; ok {
		return c, nil
	}

	dir := filepath.Join(s.root, ns)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create namespace dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, localDBFile))
	if err != nil {
		return nil, fmt.Errorf("open namespace %s: %w", ns, err)
	}
	// one writer per file
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, localSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init namespace %s: %w", ns, err)
	}

	c := &localCollection{namespace: ns, db: db, embedder: s.embedder}
	s.collections[ns] = c
	return c, nil
}

// ClearAll closes every open collection and removes every namespace
// directory under root.
func (s *LocalStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ns, c := range s.collections {
		c.db.Close()
		delete(s.collections, ns)
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("list vector root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			return fmt.Errorf("remove namespace %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Namespaces lists the namespace directories present on disk.
func (s *LocalStore) Namespaces() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for ns, c := range s.collections {
		errs = append(errs, c.db.Close())
		delete(s.collections, ns)
	}
	return errors.Join(errs...)
}

type localCollection struct {
	namespace string
	db        *sql.DB
	embedder  Embedder
}

func (c *localCollection) Namespace() string { return c.namespace }

func (c *localCollection) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return ErrEmbeddingMismatch
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, content, source, page, embedding) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content, source = excluded.source,
			page = excluded.page, embedding = excluded.embedding`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range docs {
		if _, err := stmt.ExecContext(ctx, d.ID, d.Content, d.Source, d.Page, encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("insert chunk %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

func (c *localCollection) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id FROM chunks`)
	if err != nil {
		return nil, err
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

func (c *localCollection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// SQLite caps bound parameters per statement
	const batch = 500
	for start := 0; start < len(ids); start += batch {
		end := min(start+batch, len(ids))
		part := ids[start:end]
		args := make([]any, len(part))
		for i, id := range part {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(part)), ",")
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE id IN (`+placeholders+`)`, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (c *localCollection) SimilaritySearch(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		return []Result{}, nil
	}
	qvec, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `SELECT id, content, source, page, embedding FROM chunks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r    Result
			blob []byte
		)
		if err := rows.Scan(&r.ID, &r.Content, &r.Source, &r.Page, &blob); err != nil {
			return nil, err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		if r.Distance, err = cosineDistance(qvec, vec); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance == results[j].Distance {
			return results[i].ID < results[j].ID
		}
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	if results == nil {
		results = []Result{}
	}
	return results, nil
}

func (c *localCollection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}
