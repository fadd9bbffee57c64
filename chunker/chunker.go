// Package chunker splits extracted document text into overlapping chunks and
// assigns each chunk a stable identity derived from its source, page and
// position.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried in order: paragraph, line, sentence, word, and
// finally a raw character split.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Page is one unit of extracted text with its origin.
type Page struct {
	Source string
	Page   int
	Text   string
}

// Chunk is a bounded span of page text.
type Chunk struct {
	ID      string
	Source  string
	Page    int
	Index   int
	Content string
}

// Splitter is a recursive character splitter. Lengths are measured in runes.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewSplitter returns a splitter with the default separators.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = 800
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Splitter{ChunkSize: size, ChunkOverlap: overlap, Separators: DefaultSeparators}
}

// SplitText splits text into pieces of at most ChunkSize runes, preferring
// the earliest separator that occurs in the text.
func (s *Splitter) SplitText(text string) []string {
	seps := s.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	return s.split(text, seps)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var splits []string
	if separator == "" {
		splits = splitRunes(text)
	} else {
		splits = strings.Split(text, separator)
	}

	var final, good []string
	for _, piece := range splits {
		if piece == "" {
			continue
		}
		if runeLen(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, separator)...)
	}
	return final
}

// merge packs small splits into chunks, carrying up to ChunkOverlap runes of
// trailing splits into the next chunk.
func (s *Splitter) merge(splits []string, separator string) []string {
	sepLen := runeLen(separator)
	var docs, current []string
	total := 0
	for _, d := range splits {
		l := runeLen(d)
		extra := 0
		if len(current) > 0 {
			extra = sepLen
		}
		if total+l+extra > s.ChunkSize && len(current) > 0 {
			if doc := joinTrim(current, separator); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.ChunkOverlap || (total > 0 && total+l+sepIf(len(current) > 0, sepLen) > s.ChunkSize) {
				total -= runeLen(current[0]) + sepIf(len(current) > 1, sepLen)
				current = current[1:]
			}
		}
		current = append(current, d)
		total += l + sepIf(len(current) > 1, sepLen)
	}
	if doc := joinTrim(current, separator); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// Split chunks every page and assigns ids. Pages with no text yield nothing.
func (s *Splitter) Split(pages []Page) []Chunk {
	var chunks []Chunk
	for _, p := range pages {
		for _, text := range s.SplitText(p.Text) {
			chunks = append(chunks, Chunk{Source: p.Source, Page: p.Page, Content: text})
		}
	}
	return AssignIDs(chunks)
}

// AssignIDs sets ID to "source:page:n" where n counts up within a run of
// chunks sharing the same source and page and restarts at zero when the page
// changes. A page key that shows up again later in the sequence continues its
// own count so ids stay unique within one run.
func AssignIDs(chunks []Chunk) []Chunk {
	next := make(map[string]int)
	for i := range chunks {
		key := fmt.Sprintf("%s:%d", chunks[i].Source, chunks[i].Page)
		idx := next[key]
		next[key] = idx + 1
		chunks[i].Index = idx
		chunks[i].ID = fmt.Sprintf("%s:%d", key, idx)
	}
	return chunks
}

// IDs returns the ids of chunks in order.
func IDs(chunks []Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

func splitRunes(text string) []string {
	out := make([]string, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}

func joinTrim(parts []string, sep string) string {
	return strings.TrimSpace(strings.Join(parts, sep))
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func sepIf(cond bool, n int) int {
	if cond {
		return n
	}
	return 0
}
