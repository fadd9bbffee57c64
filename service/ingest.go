package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"icarus-backend/chunker"
	"icarus-backend/lock"
	"icarus-backend/logger"
	"icarus-backend/vectorstore"
)

// IngestService chunks documents into per-namespace collections, writing
// only chunks whose id is not stored yet.
type IngestService struct {
	store    vectorstore.Store
	splitter *chunker.Splitter
	locker   lock.Locker
	log      *logger.Logger
}

// IngestOption is a functional option for IngestService
type IngestOption func(*IngestService)

func IngestWithStore(store vectorstore.Store) IngestOption {
	return func(s *IngestService) { s.store = store }
}

func IngestWithSplitter(sp *chunker.Splitter) IngestOption {
	return func(s *IngestService) { s.splitter = sp }
}

// IngestWithLocker serializes ingestion per namespace.
func IngestWithLocker(l lock.Locker) IngestOption {
	return func(s *IngestService) { s.locker = l }
}

func IngestWithLogger(log *logger.Logger) IngestOption {
	return func(s *IngestService) { s.log = log }
}

func NewIngestService(opts ...IngestOption) *IngestService {
	s := &IngestService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.splitter == nil {
		s.splitter = chunker.NewSplitter(800, 80)
	}
	if s.locker == nil {
		s.locker = lock.NewMemoryLocker()
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.With("service", "IngestService")
	return s
}

// Ingest chunks pages into namespace and returns how many new chunks were
// written. Re-ingesting unchanged pages writes nothing and returns 0.
func (s *IngestService) Ingest(ctx context.Context, namespace string, pages []chunker.Page) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("%w: vector store", ErrDependencyMissing)
	}
	col, err := s.store.Open(ctx, namespace)
	if err != nil {
		return 0, err
	}

	release, err := s.locker.Acquire(ctx, "namespace:"+col.Namespace())
	if err != nil {
		return 0, err
	}
	defer release()

	chunks := s.splitter.Split(pages)
	existing, err := col.ExistingIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list existing ids: %w", err)
	}

	var fresh []vectorstore.Document
	for _, c := range chunks {
		if _, ok := existing[c.ID]; ok {
			continue
		}
		fresh = append(fresh, vectorstore.Document{ID: c.ID, Content: c.Content, Source: c.Source, Page: c.Page})
	}
	if len(fresh) == 0 {
		s.log.Info("no new chunks", "namespace", col.Namespace(), "chunks", len(chunks))
		return 0, nil
	}
	if err := col.Add(ctx, fresh); err != nil {
		return 0, fmt.Errorf("add chunks: %w", err)
	}
	s.log.Info("added chunks", "namespace", col.Namespace(), "added", len(fresh), "chunks", len(chunks))
	return len(fresh), nil
}

// IngestPDF ingests every page of a PDF. Pages are numbered from 0.
func (s *IngestService) IngestPDF(ctx context.Context, namespace, source string, data []byte) (int, error) {
	pages, err := pdfPages(source, data)
	if err != nil {
		return 0, err
	}
	return s.Ingest(ctx, namespace, pages)
}

// IngestText ingests text as page 0 of source.
func (s *IngestService) IngestText(ctx context.Context, namespace, source, text string) (int, error) {
	return s.Ingest(ctx, namespace, []chunker.Page{{Source: source, Page: 0, Text: text}})
}

// IngestDirectory ingests every *.pdf directly under dir, using the file name
// as source.
func (s *IngestService) IngestDirectory(ctx context.Context, namespace, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	perFile := make([][]chunker.Page, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, name := range names {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			pages, err := pdfPages(name, data)
			if err != nil {
				return err
			}
			perFile[i] = pages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var pages []chunker.Page
	for _, p := range perFile {
		pages = append(pages, p...)
	}
	return s.Ingest(ctx, namespace, pages)
}

// Clear deletes every chunk in namespace. The collection stays usable.
func (s *IngestService) Clear(ctx context.Context, namespace string) error {
	if s.store == nil {
		return fmt.Errorf("%w: vector store", ErrDependencyMissing)
	}
	col, err := s.store.Open(ctx, namespace)
	if err != nil {
		return err
	}
	release, err := s.locker.Acquire(ctx, "namespace:"+col.Namespace())
	if err != nil {
		return err
	}
	defer release()

	ids, err := col.ExistingIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		list := make([]string, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		if err := col.Delete(ctx, list); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
	}

	left, err := col.ExistingIDs(ctx)
	if err != nil {
		return err
	}
	if len(left) > 0 {
		return fmt.Errorf("%w: %d remaining in %s", vectorstore.ErrNamespaceNotCleared, len(left), col.Namespace())
	}
	s.log.Info("namespace cleared", "namespace", col.Namespace(), "deleted", len(ids))
	return nil
}

// ClearAll drops every namespace.
func (s *IngestService) ClearAll(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("%w: vector store", ErrDependencyMissing)
	}
	if err := s.store.ClearAll(ctx); err != nil {
		return err
	}
	s.log.Warn("all namespaces cleared")
	return nil
}

// Stats returns the number of chunks stored in namespace.
func (s *IngestService) Stats(ctx context.Context, namespace string) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("%w: vector store", ErrDependencyMissing)
	}
	col, err := s.store.Open(ctx, namespace)
	if err != nil {
		return 0, err
	}
	return col.Count(ctx)
}

func pdfPages(source string, data []byte) ([]chunker.Page, error) {
	texts, err := extractPDFPages(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	pages := make([]chunker.Page, len(texts))
	for i, t := range texts {
		pages[i] = chunker.Page{Source: source, Page: i, Text: t}
	}
	return pages, nil
}
