package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm"

	"icarus-backend/llm"
	"icarus-backend/logger"
	"icarus-backend/models"
	"icarus-backend/repository"
	"icarus-backend/storage"
	"icarus-backend/testutil"
)

type fakeGenerator struct {
	mu          sync.Mutex
	reply       string
	err         error
	attachments bool
	requests    []llm.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGenerator) Name() string             { return "fake:model" }
func (f *fakeGenerator) SupportsAttachments() bool { return f.attachments }

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	return f.requests[len(f.requests)-1].Prompt
}

type fixture struct {
	db        *gorm.DB
	store     storage.Storage
	gen       *fakeGenerator
	structure *StructureService
	scoring   *ScoringService
	repos     struct {
		assignments repository.AssignmentRepo
		files       repository.FileRepo
		concepts    repository.ConceptRepo
		questions   repository.QuestionRepo
		chatLogs    repository.ChatLogRepo
		scores      repository.ScoreRepo
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: testutil.NewDB(t), gen: &fakeGenerator{}}
	st, err := storage.NewLocalStorage(t.TempDir(), "")
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}
	f.store = st

	log := logger.Nop()
	f.repos.assignments = repository.NewAssignmentRepo(f.db, log)
	f.repos.files = repository.NewFileRepo(f.db, log)
	f.repos.concepts = repository.NewConceptRepo(f.db, log)
	f.repos.questions = repository.NewQuestionRepo(f.db, log)
	f.repos.chatLogs = repository.NewChatLogRepo(f.db, log)
	f.repos.scores = repository.NewScoreRepo(f.db, log)

	f.structure = NewStructureService(
		StructureWithDatabase(f.db),
		StructureWithRepositories(f.repos.assignments, f.repos.concepts, f.repos.questions),
		StructureWithStorage(f.store),
		StructureWithGenerator(f.gen),
		StructureWithLogger(log),
	)
	f.scoring = NewScoringService(
		ScoringWithDatabase(f.db),
		ScoringWithRepositories(f.repos.assignments, f.repos.concepts, f.repos.questions, f.repos.chatLogs, f.repos.scores),
		ScoringWithGenerator(f.gen),
		ScoringWithLogger(log),
	)
	return f
}

// attach uploads content and records it as a file of the assignment.
func (f *fixture) attach(t *testing.T, assignmentID uint, name, mimeType, content string) {
	t.Helper()
	ctx := context.Background()
	stored, err := f.store.Upload(ctx, assignmentID, name, mimeType, strings.NewReader(content))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	file := &models.File{AssignmentID: assignmentID, Filename: name, Path: stored.Key, MimeType: mimeType, Size: stored.Size}
	if err := f.repos.files.Create(ctx, nil, file); err != nil {
		t.Fatalf("file row: %v", err)
	}
}

func (f *fixture) approved(t *testing.T, assignmentID uint) bool {
	t.Helper()
	a, err := f.repos.assignments.GetByID(context.Background(), nil, assignmentID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	return a.StructureApproved
}

func uintPtr(v uint) *uint { return &v }
