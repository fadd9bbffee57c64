package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"icarus-backend/llm"
	"icarus-backend/logger"
	"icarus-backend/models"
	"icarus-backend/repository"
)

// TutorAnswer is the cleaned reply to a tutoring turn.
type TutorAnswer struct {
	Answer       string `json:"answer"`
	ContextCount int    `json:"context_count"`
}

// TutorService answers student questions with retrieved assignment context.
type TutorService struct {
	retriever *Retriever
	gen       llm.Generator
	chatLogs  repository.ChatLogRepo
	timeout   time.Duration
	log       *logger.Logger
}

// TutorOption is a functional option for TutorService
type TutorOption func(*TutorService)

func TutorWithRetriever(r *Retriever) TutorOption {
	return func(s *TutorService) { s.retriever = r }
}

func TutorWithGenerator(g llm.Generator) TutorOption {
	return func(s *TutorService) { s.gen = g }
}

// TutorWithChatLogs records student questions for later scoring.
func TutorWithChatLogs(repo repository.ChatLogRepo) TutorOption {
	return func(s *TutorService) { s.chatLogs = repo }
}

func TutorWithTimeout(d time.Duration) TutorOption {
	return func(s *TutorService) { s.timeout = d }
}

func TutorWithLogger(log *logger.Logger) TutorOption {
	return func(s *TutorService) { s.log = log }
}

func NewTutorService(opts ...TutorOption) *TutorService {
	s := &TutorService{timeout: 120 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.With("service", "TutorService")
	return s
}

// Answer retrieves context for the message, prompts the model and cleans
// the reply. Missing context is not an error.
func (s *TutorService) Answer(ctx context.Context, req PromptRequest) (*TutorAnswer, error) {
	if s.retriever == nil || s.gen == nil {
		return nil, fmt.Errorf("%w: retriever or generator", ErrDependencyMissing)
	}
	if strings.TrimSpace(req.AssignmentID) == "" || strings.TrimSpace(req.UserMessage) == "" {
		return nil, fmt.Errorf("%w: assignment_id and user_message are required", ErrInvalidRequest)
	}

	blocks, err := s.retriever.Retrieve(ctx, req.AssignmentID, req.UserMessage)
	if err != nil {
		s.log.Error("retrieval failed", "assignment_id", req.AssignmentID, "error", err)
		return nil, newAnalysisError(MsgServiceUnavailable, err)
	}

	prompt := BuildTutorPrompt(req, blocks)
	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := s.gen.Generate(genCtx, llm.Request{Prompt: prompt, Stop: []string{TutorStop}})
	if err != nil {
		s.log.Error("tutor generation failed", "assignment_id", req.AssignmentID, "error", err)
		return nil, newAnalysisError(MsgServiceUnavailable, err)
	}

	s.recordQuestion(ctx, req)
	return &TutorAnswer{Answer: CleanQuotedOutput(raw), ContextCount: len(blocks)}, nil
}

func (s *TutorService) recordQuestion(ctx context.Context, req PromptRequest) {
	if s.chatLogs == nil || req.StudentID == nil {
		return
	}
	assignmentID, err := strconv.ParseUint(req.AssignmentID, 10, 64)
	if err != nil {
		return
	}
	entry := &models.ChatLog{
		StudentID:    *req.StudentID,
		AssignmentID: uint(assignmentID),
		Question:     req.UserMessage,
	}
	if err := s.chatLogs.Create(ctx, nil, entry); err != nil {
		s.log.Warn("failed to record chat log", "assignment_id", assignmentID, "error", err)
	}
}
