package service

import (
	"context"
	"fmt"

	"icarus-backend/logger"
	"icarus-backend/vectorstore"
)

// Retriever finds context passages for a query within one namespace.
type Retriever struct {
	store     vectorstore.Store
	topK      int
	threshold *float64
	log       *logger.Logger
}

// NewRetriever uses topK and threshold for Retrieve. A nil threshold keeps
// every hit.
func NewRetriever(store vectorstore.Store, topK int, threshold *float64, log *logger.Logger) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Retriever{store: store, topK: topK, threshold: threshold, log: log.With("service", "Retriever")}
}

func (r *Retriever) TopK() int { return r.topK }

// Threshold returns the configured distance threshold, nil when disabled.
func (r *Retriever) Threshold() *float64 { return r.threshold }

// Retrieve returns the accepted passages, best match first.
func (r *Retriever) Retrieve(ctx context.Context, namespace, query string) ([]string, error) {
	hits, err := r.Search(ctx, namespace, query, r.topK, r.threshold)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Content
	}
	return out, nil
}

// Search runs the similarity query and applies the distance filter.
func (r *Retriever) Search(ctx context.Context, namespace, query string, topK int, threshold *float64) ([]vectorstore.Result, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: vector store", ErrDependencyMissing)
	}
	col, err := r.store.Open(ctx, namespace)
	if err != nil {
		return nil, err
	}
	hits, err := col.SimilaritySearch(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if len(hits) > 0 {
		r.log.Info("retrieval",
			"namespace", col.Namespace(),
			"top_distance", hits[0].Distance,
			"threshold", thresholdString(threshold),
			"hits", len(hits))
	}
	return FilterByDistance(hits, threshold), nil
}

// FilterByDistance keeps hits with Distance <= threshold, in order. A nil
// threshold keeps all of them.
func FilterByDistance(hits []vectorstore.Result, threshold *float64) []vectorstore.Result {
	if threshold == nil {
		return hits
	}
	out := make([]vectorstore.Result, 0, len(hits))
	for _, h := range hits {
		if h.Distance <= *threshold {
			out = append(out, h)
		}
	}
	return out
}

func thresholdString(t *float64) string {
	if t == nil {
		return "none"
	}
	return fmt.Sprintf("%.4f", *t)
}
