package service

import (
	"context"
	"testing"

	"icarus-backend/logger"
	"icarus-backend/vectorstore"
)

func threshold(v float64) *float64 { return &v }

func TestFilterByDistance(t *testing.T) {
	hits := []vectorstore.Result{{ID: "a", Distance: 0.1}, {ID: "b", Distance: 0.3}, {ID: "c", Distance: 0.6}}
	cases := []struct {
		name      string
		threshold *float64
		want      []string
	}{
		{"keeps at or below", threshold(0.3), []string{"a", "b"}},
		{"keeps none", threshold(0.05), nil},
		{"nil keeps all", nil, []string{"a", "b", "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterByDistance(hits, tc.threshold)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d hits, want %d", len(got), len(tc.want))
			}
			for i := range got {
				if got[i].ID != tc.want[i] {
					t.Fatalf("hit %d = %s, want %s", i, got[i].ID, tc.want[i])
				}
			}
		})
	}
}

func TestRetrieverRanksRelevantPassageFirst(t *testing.T) {
	ctx := context.Background()
	store, err := vectorstore.NewLocalStore(t.TempDir(), vectorstore.HashEmbedder{Dimensions: 256})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer store.Close()

	ingest := NewIngestService(IngestWithStore(store))
	if _, err := ingest.IngestText(ctx, "12", "upload:hw.pdf", "The mitochondria is the powerhouse of the cell."); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := ingest.Ingest(ctx, "12", nil); err != nil {
		t.Fatalf("ingest nothing: %v", err)
	}
	col, _ := store.Open(ctx, "12")
	if err := col.Add(ctx, []vectorstore.Document{{ID: "upload:hw.pdf:1:0", Content: "Integrate x squared from zero to one.", Page: 1}}); err != nil {
		t.Fatalf("add: %v", err)
	}

	r := NewRetriever(store, 10, nil, logger.Nop())
	got, err := r.Retrieve(ctx, "12", "how do I integrate x squared")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 2 || got[0] != "Integrate x squared from zero to one." {
		t.Fatalf("passages = %q", got)
	}

	strict := NewRetriever(store, 10, threshold(0), logger.Nop())
	got, err = strict.Retrieve(ctx, "12", "unrelated words entirely")
	if err != nil {
		t.Fatalf("retrieve strict: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("strict threshold kept %q", got)
	}
}

func TestRetrieverEmptyNamespace(t *testing.T) {
	store, err := vectorstore.NewLocalStore(t.TempDir(), vectorstore.HashEmbedder{})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer store.Close()
	got, err := NewRetriever(store, 5, threshold(0.9), nil).Retrieve(context.Background(), "nothing-here", "q")
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}
