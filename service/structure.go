package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"icarus-backend/llm"
	"icarus-backend/lock"
	"icarus-backend/logger"
	"icarus-backend/models"
	"icarus-backend/repository"
	"icarus-backend/storage"
)

// ExtractResult reports the structure after an extraction run. Changed is
// false when the model produced nothing usable and the stored structure was
// left untouched.
type ExtractResult struct {
	Review  *models.StructureReview
	Changed bool
}

// StructureService extracts, reviews and reads the concept/question graph of
// assignments.
type StructureService struct {
	db          *gorm.DB
	assignments repository.AssignmentRepo
	concepts    repository.ConceptRepo
	questions   repository.QuestionRepo
	storage     storage.Storage
	gen         llm.Generator
	locker      lock.Locker
	timeout     time.Duration
	log         *logger.Logger
}

// StructureOption is a functional option for StructureService
type StructureOption func(*StructureService)

// StructureWithDatabase sets the handle used to open write transactions.
func StructureWithDatabase(db *gorm.DB) StructureOption {
	return func(s *StructureService) { s.db = db }
}

func StructureWithRepositories(a repository.AssignmentRepo, c repository.ConceptRepo, q repository.QuestionRepo) StructureOption {
	return func(s *StructureService) {
		s.assignments = a
		s.concepts = c
		s.questions = q
	}
}

func StructureWithStorage(st storage.Storage) StructureOption {
	return func(s *StructureService) { s.storage = st }
}

func StructureWithGenerator(g llm.Generator) StructureOption {
	return func(s *StructureService) { s.gen = g }
}

func StructureWithLocker(l lock.Locker) StructureOption {
	return func(s *StructureService) { s.locker = l }
}

// StructureWithTimeout bounds each model call.
func StructureWithTimeout(d time.Duration) StructureOption {
	return func(s *StructureService) { s.timeout = d }
}

func StructureWithLogger(log *logger.Logger) StructureOption {
	return func(s *StructureService) { s.log = log }
}

func NewStructureService(opts ...StructureOption) *StructureService {
	s := &StructureService{timeout: 120 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = lock.NewMemoryLocker()
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.With("service", "StructureService")
	return s
}

func assignmentLockKey(id uint) string { return "assignment:" + strconv.FormatUint(uint64(id), 10) }

func (s *StructureService) ready() error {
	if s.db == nil || s.assignments == nil || s.concepts == nil || s.questions == nil {
		return fmt.Errorf("%w: database or repositories", ErrDependencyMissing)
	}
	return nil
}

// Extract asks the model for the assignment's structure and replaces the
// stored graph with it, leaving the structure unapproved. An empty or
// unparseable reply keeps the stored graph and returns it with Changed=false.
func (s *StructureService) Extract(ctx context.Context, assignmentID uint) (*ExtractResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.gen == nil || s.storage == nil {
		return nil, fmt.Errorf("%w: generator or storage", ErrDependencyMissing)
	}

	release, err := s.locker.Acquire(ctx, assignmentLockKey(assignmentID))
	if err != nil {
		return nil, err
	}
	defer release()

	a, err := s.assignments.GetByID(ctx, nil, assignmentID)
	if err != nil {
		return nil, err
	}
	if len(a.Files) == 0 {
		return nil, newAnalysisError(MsgNoFiles, nil)
	}

	contents, err := s.readFiles(ctx, a)
	if err != nil {
		return nil, err
	}

	var texts []string
	var attachments []llm.Attachment
	for _, c := range contents {
		if !c.ok {
			continue
		}
		if strings.TrimSpace(c.text) != "" {
			texts = append(texts, c.text)
		}
		if s.gen.SupportsAttachments() {
			attachments = append(attachments, llm.Attachment{MIMEType: c.mimeType, Data: c.data})
		}
	}
	combined := strings.Join(texts, "\n\n")
	s.log.Info("extracted assignment text", "assignment_id", a.ID, "length", len(combined), "attachments", len(attachments))
	if strings.TrimSpace(combined) == "" && len(attachments) == 0 {
		return nil, newAnalysisError(MsgEmptyContent, nil)
	}

	promptText := combined
	if len(attachments) > 0 {
		promptText = AttachedContentNotice
	}
	raw, err := s.generate(ctx, llm.Request{Prompt: buildExtractionPrompt(promptText), Attachments: attachments})
	if err != nil {
		s.log.Error("assignment analysis model failure", "assignment_id", a.ID, "error", err)
		return nil, err
	}
	s.log.Debug("assignment extraction raw output", "assignment_id", a.ID, "length", len(raw))

	ext := normalizeExtraction(parseLLMJSON(raw))
	if ext.empty() {
		s.log.Warn("extraction produced no structured data", "assignment_id", a.ID)
		review, err := s.current(ctx, nil, a)
		if err != nil {
			return nil, err
		}
		return &ExtractResult{Review: review, Changed: false}, nil
	}

	var review *models.StructureReview
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		review, err = s.replaceFromExtraction(ctx, tx, a.ID, ext)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("persist extracted structure: %w", err)
	}
	s.log.Info("assignment structure replaced",
		"assignment_id", a.ID, "concepts", len(review.Concepts), "questions", len(review.Questions))
	return &ExtractResult{Review: review, Changed: true}, nil
}

type fileContent struct {
	text     string
	data     []byte
	mimeType string
	ok       bool
}

// readFiles downloads and extracts every file in parallel. A file that fails
// is logged and left out.
func (s *StructureService) readFiles(ctx context.Context, a *models.Assignment) ([]fileContent, error) {
	out := make([]fileContent, len(a.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, f := range a.Files {
		g.Go(func() error {
			data, err := storage.ReadAll(gctx, s.storage, f.Path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.log.Error("failed to read assignment file", "assignment_id", a.ID, "file_id", f.ID, "error", err)
				return nil
			}
			text, skipped, err := extractFileText(data, f.Filename, f.MimeType)
			if err != nil {
				s.log.Error("failed to extract text from assignment file", "assignment_id", a.ID, "file_id", f.ID, "error", err)
				return nil
			}
			if skipped {
				s.log.Warn("skipping image file, OCR is not available", "file", f.Filename)
			}
			out[i] = fileContent{text: text, data: data, mimeType: mimeTypeOf(f), ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func mimeTypeOf(f models.File) string {
	if f.MimeType != "" {
		return f.MimeType
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Filename))); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (s *StructureService) generate(ctx context.Context, req llm.Request) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := s.gen.Generate(genCtx, req)
	if err != nil {
		return "", newAnalysisError(MsgServiceUnavailable, err)
	}
	return raw, nil
}

func (s *StructureService) replaceFromExtraction(ctx context.Context, tx *gorm.DB, assignmentID uint, ext extraction) (*models.StructureReview, error) {
	if err := s.questions.DeleteByAssignmentExcept(ctx, tx, assignmentID, nil); err != nil {
		return nil, fmt.Errorf("clear questions: %w", err)
	}

	conceptByKey := make(map[string]*models.Concept)
	var conceptOrder []string
	g := newGraph(assignmentID)
	for _, ec := range ext.Concepts {
		c, err := s.concepts.GetByName(ctx, tx, ec.Name)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c = &models.Concept{Name: ec.Name}
			if ec.Description != "" {
				c.Description = strPtr(ec.Description)
			}
			if err := s.concepts.Create(ctx, tx, c); err != nil {
				return nil, fmt.Errorf("create concept %q: %w", ec.Name, err)
			}
		case err != nil:
			return nil, err
		case ec.Description != "" && (c.Description == nil || *c.Description != ec.Description):
			c.Description = strPtr(ec.Description)
			if err := s.concepts.Save(ctx, tx, c); err != nil {
				return nil, fmt.Errorf("update concept %q: %w", ec.Name, err)
			}
		}
		if _, seen := conceptByKey[ec.Key]; !seen {
			conceptOrder = append(conceptOrder, ec.Key)
		}
		conceptByKey[ec.Key] = c
		g.addConcept(c)
	}

	questionByKey := make(map[string]*models.AssignmentQuestion)
	for _, eq := range ext.Questions {
		q := &models.AssignmentQuestion{AssignmentID: assignmentID, Prompt: eq.Prompt, Position: eq.Position}
		if err := s.questions.Create(ctx, tx, q); err != nil {
			return nil, fmt.Errorf("create question: %w", err)
		}
		questionByKey[eq.Key] = q
		g.addQuestion(q)
	}

	for _, l := range ext.QuestionConcepts {
		q, c := questionByKey[l.QuestionKey], conceptByKey[l.ConceptKey]
		if q == nil || c == nil {
			continue
		}
		g.link(q.ID, c.ID)
	}

	var assignmentConcepts []uint
	if len(ext.AssignmentConcepts) > 0 {
		for _, k := range ext.AssignmentConcepts {
			if c := conceptByKey[k]; c != nil {
				assignmentConcepts = append(assignmentConcepts, c.ID)
			}
		}
	} else {
		for _, k := range conceptOrder {
			assignmentConcepts = append(assignmentConcepts, conceptByKey[k].ID)
		}
	}
	g.setAssignmentConcepts(assignmentConcepts)

	if err := s.persistLinks(ctx, tx, g); err != nil {
		return nil, err
	}
	if err := s.assignments.SetStructureApproved(ctx, tx, assignmentID, false); err != nil {
		return nil, err
	}
	return g.review(false), nil
}

// Apply replaces the structure with a reviewed payload and marks it
// approved. Questions whose id belongs to the assignment are updated in
// place; other stored questions are removed.
func (s *StructureService) Apply(ctx context.Context, assignmentID uint, update models.StructureUpdate) (*models.StructureReview, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	for _, c := range update.Concepts {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("%w: concept name is required", ErrInvalidRequest)
		}
	}
	for _, q := range update.Questions {
		if strings.TrimSpace(q.Prompt) == "" {
			return nil, fmt.Errorf("%w: question prompt is required", ErrInvalidRequest)
		}
	}

	release, err := s.locker.Acquire(ctx, assignmentLockKey(assignmentID))
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := s.assignments.GetByID(ctx, nil, assignmentID); err != nil {
		return nil, err
	}

	var review *models.StructureReview
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		review, err = s.applyReview(ctx, tx, assignmentID, update)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("assignment structure approved",
		"assignment_id", assignmentID, "concepts", len(review.Concepts), "questions", len(review.Questions))
	return review, nil
}

func (s *StructureService) applyReview(ctx context.Context, tx *gorm.DB, assignmentID uint, update models.StructureUpdate) (*models.StructureReview, error) {
	g := newGraph(assignmentID)

	conceptByID := make(map[uint]*models.Concept)
	var conceptOrder []uint
	conceptByKey := make(map[string]*models.Concept)
	for _, p := range update.Concepts {
		c, err := s.resolveConcept(ctx, tx, p)
		if err != nil {
			return nil, err
		}
		if _, seen := conceptByID[c.ID]; !seen {
			conceptOrder = append(conceptOrder, c.ID)
		}
		conceptByID[c.ID] = c
		conceptByKey[payloadKey(p.ID, p.Name)] = c
		g.addConcept(c)
	}

	existing, err := s.questions.ListByAssignment(ctx, tx, assignmentID)
	if err != nil {
		return nil, err
	}
	owned := make(map[uint]models.AssignmentQuestion, len(existing))
	for _, q := range existing {
		owned[q.ID] = q
	}
	var keep []uint
	for _, p := range update.Questions {
		if p.ID != nil {
			if _, ok := owned[*p.ID]; ok {
				keep = append(keep, *p.ID)
			}
		}
	}
	if err := s.questions.DeleteByAssignmentExcept(ctx, tx, assignmentID, keep); err != nil {
		return nil, fmt.Errorf("remove questions: %w", err)
	}
	if err := s.questions.ClearConceptLinks(ctx, tx, keep); err != nil {
		return nil, fmt.Errorf("clear question links: %w", err)
	}

	questionByKey := make(map[string]*models.AssignmentQuestion)
	used := make(map[uint]bool)
	for _, p := range update.Questions {
		var q *models.AssignmentQuestion
		if p.ID != nil && !used[*p.ID] {
			if stored, ok := owned[*p.ID]; ok {
				stored.Prompt = p.Prompt
				stored.Position = p.Position
				if err := s.questions.Save(ctx, tx, &stored); err != nil {
					return nil, fmt.Errorf("update question %d: %w", stored.ID, err)
				}
				q = &stored
			}
		}
		if q == nil {
			q = &models.AssignmentQuestion{AssignmentID: assignmentID, Prompt: p.Prompt, Position: p.Position}
			if err := s.questions.Create(ctx, tx, q); err != nil {
				return nil, fmt.Errorf("create question: %w", err)
			}
		}
		used[q.ID] = true
		questionByKey[payloadKey(p.ID, p.Prompt)] = q
		g.addQuestion(q)
	}

	if len(update.QuestionConcepts) > 0 {
		for _, l := range update.QuestionConcepts {
			q := questionByKey[strconv.FormatUint(uint64(l.QuestionID), 10)]
			c := conceptByKey[strconv.FormatUint(uint64(l.ConceptID), 10)]
			if q == nil || c == nil {
				continue
			}
			g.link(q.ID, c.ID)
		}
	} else {
		for _, p := range update.Questions {
			q := questionByKey[payloadKey(p.ID, p.Prompt)]
			if q == nil {
				continue
			}
			for _, cid := range p.ConceptIDs {
				if c := conceptByID[cid]; c != nil {
					g.link(q.ID, c.ID)
				}
			}
		}
	}

	var assignmentConcepts []uint
	if len(update.AssignmentConcepts) > 0 {
		for _, l := range update.AssignmentConcepts {
			if c := conceptByID[l.ConceptID]; c != nil {
				assignmentConcepts = append(assignmentConcepts, c.ID)
			}
		}
	} else {
		assignmentConcepts = conceptOrder
	}
	g.setAssignmentConcepts(assignmentConcepts)

	if err := s.persistLinks(ctx, tx, g); err != nil {
		return nil, err
	}
	if err := s.assignments.SetStructureApproved(ctx, tx, assignmentID, true); err != nil {
		return nil, err
	}
	return g.review(true), nil
}

// resolveConcept finds the concept by id, then by exact name, else creates
// it. Name and description are taken from the payload.
func (s *StructureService) resolveConcept(ctx context.Context, tx *gorm.DB, p models.ConceptPayload) (*models.Concept, error) {
	var c *models.Concept
	if p.ID != nil {
		found, err := s.concepts.GetByID(ctx, tx, *p.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		c = found
	}
	if c == nil {
		found, err := s.concepts.GetByName(ctx, tx, p.Name)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		c = found
	}
	if c == nil {
		c = &models.Concept{Name: p.Name, Description: p.Description}
		if err := s.concepts.Create(ctx, tx, c); err != nil {
			return nil, fmt.Errorf("create concept %q: %w", p.Name, err)
		}
		return c, nil
	}
	c.Name = p.Name
	c.Description = p.Description
	if err := s.concepts.Save(ctx, tx, c); err != nil {
		return nil, fmt.Errorf("update concept %q: %w", p.Name, err)
	}
	return c, nil
}

func (s *StructureService) persistLinks(ctx context.Context, tx *gorm.DB, g *graph) error {
	links := make([]models.QuestionConcept, len(g.links))
	for i, l := range g.links {
		links[i] = models.QuestionConcept{QuestionID: l.QuestionID, ConceptID: l.ConceptID}
	}
	if err := s.questions.CreateConceptLinks(ctx, tx, links); err != nil {
		return fmt.Errorf("link questions: %w", err)
	}
	if err := s.concepts.ReplaceAssignmentConcepts(ctx, tx, g.assignmentID, g.assignmentConcepts); err != nil {
		return fmt.Errorf("link assignment concepts: %w", err)
	}
	return nil
}

// Current returns the stored structure of the assignment.
func (s *StructureService) Current(ctx context.Context, assignmentID uint) (*models.StructureReview, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	a, err := s.assignments.GetByID(ctx, nil, assignmentID)
	if err != nil {
		return nil, err
	}
	return s.current(ctx, nil, a)
}

func (s *StructureService) current(ctx context.Context, tx *gorm.DB, a *models.Assignment) (*models.StructureReview, error) {
	concepts, err := s.concepts.ListByAssignment(ctx, tx, a.ID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByAssignment(ctx, tx, a.ID)
	if err != nil {
		return nil, err
	}
	qids := make([]uint, len(questions))
	for i, q := range questions {
		qids[i] = q.ID
	}
	links, err := s.questions.ListConceptLinks(ctx, tx, qids)
	if err != nil {
		return nil, err
	}

	g := newGraph(a.ID)
	ids := make([]uint, len(concepts))
	for i := range concepts {
		g.addConcept(&concepts[i])
		ids[i] = concepts[i].ID
	}
	for i := range questions {
		g.addQuestion(&questions[i])
	}
	for _, l := range links {
		g.link(l.QuestionID, l.ConceptID)
	}
	g.setAssignmentConcepts(ids)
	return g.review(a.StructureApproved), nil
}

func payloadKey(id *uint, fallback string) string {
	if id != nil && *id != 0 {
		return strconv.FormatUint(uint64(*id), 10)
	}
	return fallback
}

func strPtr(s string) *string { return &s }
