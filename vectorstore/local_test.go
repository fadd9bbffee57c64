package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeNamespace(t *testing.T) {
	cases := map[string]string{
		"42":              "42",
		"Assignment 7/B":  "assignment_7_b",
		"calc.v2-final_x": "calc.v2-final_x",
		"..":              "__",
	}
	for in, want := range cases {
		got, err := SanitizeNamespace(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Errorf("SanitizeNamespace(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := SanitizeNamespace("  "); err != ErrEmptyNamespace {
		t.Fatalf("expected ErrEmptyNamespace, got %v", err)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3e-7}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("index %d: %v != %v", i, in[i], out[i])
		}
	}
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated blob")
	}
}

func newLocal(t *testing.T, root string) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(root, HashEmbedder{Dimensions: 128})
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLocalCollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := newLocal(t, root)

	c, err := s.Open(ctx, "Assignment 1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.Namespace() != "assignment_1" {
		t.Fatalf("namespace = %q", c.Namespace())
	}
	if _, err := os.Stat(filepath.Join(root, "assignment_1", localDBFile)); err != nil {
		t.Fatalf("namespace file missing: %v", err)
	}

	docs := []Document{
		{ID: "hw:0:0", Content: "the derivative of x squared", Source: "hw", Page: 0},
		{ID: "hw:1:0", Content: "integrate the area under a curve", Source: "hw", Page: 1},
		{ID: "hw:1:1", Content: "limits of sequences converge", Source: "hw", Page: 1},
	}
	if err := c.Add(ctx, docs); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ids, err := c.ExistingIDs(ctx)
	if err != nil {
		t.Fatalf("ExistingIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("ids = %v", ids)
	}

	res, err := c.SimilaritySearch(ctx, "area under the curve", 10)
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("k larger than collection should return all, got %d", len(res))
	}
	if res[0].ID != "hw:1:0" {
		t.Fatalf("best hit = %s", res[0].ID)
	}
	for i := 1; i < len(res); i++ {
		if res[i].Distance < res[i-1].Distance {
			t.Fatalf("results not ordered by distance: %+v", res)
		}
	}

	if err := c.Delete(ctx, []string{"hw:0:0", "hw:1:0", "hw:1:1"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	n, err := c.Count(ctx)
	if err != nil || n != 0 {
		t.Fatalf("count after delete = %d, %v", n, err)
	}
	if res, err := c.SimilaritySearch(ctx, "anything", 3); err != nil || len(res) != 0 {
		t.Fatalf("empty collection search = %v, %v", res, err)
	}
}

func TestLocalReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	first := newLocal(t, root)
	c, err := first.Open(ctx, "7")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.Add(ctx, []Document{{ID: "a:0:0", Content: "chain rule"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	same, _ := first.Open(ctx, "7")
	if same != c {
		t.Fatal("reopening in the same store should return the cached collection")
	}
	first.Close()

	second := newLocal(t, root)
	c2, err := second.Open(ctx, "7")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	n, err := c2.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("count after reopen = %d, %v", n, err)
	}
}

func TestLocalClearAll(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := newLocal(t, root)
	for _, ns := range []string{"1", "2"} {
		c, err := s.Open(ctx, ns)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if err := c.Add(ctx, []Document{{ID: ns + ":0:0", Content: "text " + ns}}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	names, err := s.Namespaces()
	if err != nil {
		t.Fatalf("Namespaces: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("namespaces left: %v", names)
	}

	c, err := s.Open(ctx, "1")
	if err != nil {
		t.Fatalf("Open after clear: %v", err)
	}
	if n, _ := c.Count(ctx); n != 0 {
		t.Fatalf("count after ClearAll = %d", n)
	}
}
