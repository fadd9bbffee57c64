package chunker

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestAssignIDsResetsPerPage(t *testing.T) {
	chunks := []Chunk{
		{Source: "hw.pdf", Page: 0},
		{Source: "hw.pdf", Page: 0},
		{Source: "hw.pdf", Page: 1},
		{Source: "hw.pdf", Page: 1},
	}
	got := IDs(AssignIDs(chunks))
	want := []string{"hw.pdf:0:0", "hw.pdf:0:1", "hw.pdf:1:0", "hw.pdf:1:1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
}

func TestAssignIDsUniqueWhenPageRepeats(t *testing.T) {
	chunks := AssignIDs([]Chunk{
		{Source: "a", Page: 0},
		{Source: "b", Page: 0},
		{Source: "a", Page: 0},
	})
	seen := map[string]bool{}
	for _, c := range chunks {
		if seen[c.ID] {
			t.Fatalf("duplicate id %s", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestSplitRespectsSizeAndOverlap(t *testing.T) {
	words := make([]string, 0, 400)
	for i := 0; i < 400; i++ {
		words = append(words, "limit")
	}
	text := strings.Join(words, " ")

	s := NewSplitter(100, 20)
	parts := s.SplitText(text)
	if len(parts) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(parts))
	}
	for i, p := range parts {
		if n := utf8.RuneCountInString(p); n > 100 {
			t.Fatalf("chunk %d has %d runes", i, n)
		}
	}
	// consecutive chunks share a tail/head
	if !strings.HasPrefix(parts[1], "limit") || !strings.HasSuffix(parts[0], "limit") {
		t.Fatalf("unexpected boundaries: %q | %q", parts[0], parts[1])
	}
}

func TestSplitPrefersParagraphs(t *testing.T) {
	text := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60)
	parts := NewSplitter(100, 0).SplitText(text)
	want := []string{strings.Repeat("a", 60), strings.Repeat("b", 60)}
	if !reflect.DeepEqual(parts, want) {
		t.Fatalf("parts = %q", parts)
	}
}

func TestSplitFallsBackToCharacters(t *testing.T) {
	text := strings.Repeat("x", 250)
	parts := NewSplitter(100, 10).SplitText(text)
	if len(parts) != 3 {
		t.Fatalf("got %d parts", len(parts))
	}
	for _, p := range parts {
		if len(p) > 100 {
			t.Fatalf("part too long: %d", len(p))
		}
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	pages := []Page{
		{Source: "upload:hw.pdf", Page: 0, Text: strings.Repeat("Find the derivative. ", 80)},
		{Source: "upload:hw.pdf", Page: 1, Text: strings.Repeat("Evaluate the integral. ", 80)},
		{Source: "upload:hw.pdf", Page: 2, Text: "   "},
	}
	s := NewSplitter(200, 20)
	a := s.Split(pages)
	b := s.Split(pages)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("split is not deterministic")
	}
	for _, c := range a {
		if c.Page == 2 {
			t.Fatalf("blank page produced chunk %s", c.ID)
		}
	}
	if a[0].ID != "upload:hw.pdf:0:0" {
		t.Fatalf("first id = %s", a[0].ID)
	}
}
