// Package vectorstore keeps embedded chunks in one isolated collection per
// namespace and answers nearest-neighbour queries over them.
package vectorstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmptyNamespace      = errors.New("vectorstore: empty namespace")
	ErrNamespaceNotCleared = errors.New("vectorstore: namespace still holds chunks after clear")
	ErrEmbeddingMismatch   = errors.New("vectorstore: embedding count does not match documents")
)

// Embedder turns text into vectors. Document and query embeddings may use
// different task types on some providers.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Document is a chunk ready to be stored under an explicit id.
type Document struct {
	ID      string
	Content string
	Source  string
	Page    int
}

// Result is one search hit. Smaller Distance means closer.
type Result struct {
	ID       string
	Content  string
	Source   string
	Page     int
	Distance float64
}

// Collection is the per-namespace view of a store.
type Collection interface {
	Namespace() string
	// Add stores documents; an id that already exists is overwritten.
	Add(ctx context.Context, docs []Document) error
	// ExistingIDs lists stored ids without loading content or vectors.
	ExistingIDs(ctx context.Context) (map[string]struct{}, error)
	Delete(ctx context.Context, ids []string) error
	// SimilaritySearch returns at most k hits ordered by ascending distance.
	SimilaritySearch(ctx context.Context, query string, k int) ([]Result, error)
	Count(ctx context.Context) (int, error)
}

// Store opens collections. Opening an existing namespace returns the same
// logical collection with its data intact.
type Store interface {
	Open(ctx context.Context, namespace string) (Collection, error)
	// ClearAll drops every namespace.
	ClearAll(ctx context.Context) error
	Close() error
}

var unsafeNamespaceChars = regexp.MustCompile(`[^a-z0-9._-]`)

// SanitizeNamespace lowercases the key and replaces anything outside
// [a-z0-9._-] with an underscore.
func SanitizeNamespace(namespace string) (string, error) {
	ns := strings.ToLower(strings.TrimSpace(namespace))
	if ns == "" {
		return "", ErrEmptyNamespace
	}
	ns = unsafeNamespaceChars.ReplaceAllString(ns, "_")
	if ns == "." || ns == ".." {
		ns = strings.Repeat("_", len(ns))
	}
	return ns, nil
}
