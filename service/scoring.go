package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"icarus-backend/llm"
	"icarus-backend/lock"
	"icarus-backend/logger"
	"icarus-backend/models"
	"icarus-backend/repository"
)

// ScoringService turns chat transcripts into per-student understanding
// scores.
type ScoringService struct {
	db          *gorm.DB
	assignments repository.AssignmentRepo
	concepts    repository.ConceptRepo
	questions   repository.QuestionRepo
	chatLogs    repository.ChatLogRepo
	scores      repository.ScoreRepo
	gen         llm.Generator
	locker      lock.Locker
	timeout     time.Duration
	log         *logger.Logger
}

// ScoringOption is a functional option for ScoringService
type ScoringOption func(*ScoringService)

func ScoringWithDatabase(db *gorm.DB) ScoringOption {
	return func(s *ScoringService) { s.db = db }
}

func ScoringWithRepositories(
	a repository.AssignmentRepo,
	c repository.ConceptRepo,
	q repository.QuestionRepo,
	logs repository.ChatLogRepo,
	scores repository.ScoreRepo,
) ScoringOption {
	return func(s *ScoringService) {
		s.assignments = a
		s.concepts = c
		s.questions = q
		s.chatLogs = logs
		s.scores = scores
	}
}

func ScoringWithGenerator(g llm.Generator) ScoringOption {
	return func(s *ScoringService) { s.gen = g }
}

// ScoringWithLocker shares the per-assignment lock with StructureService.
func ScoringWithLocker(l lock.Locker) ScoringOption {
	return func(s *ScoringService) { s.locker = l }
}

func ScoringWithTimeout(d time.Duration) ScoringOption {
	return func(s *ScoringService) { s.timeout = d }
}

func ScoringWithLogger(log *logger.Logger) ScoringOption {
	return func(s *ScoringService) { s.log = log }
}

func NewScoringService(opts ...ScoringOption) *ScoringService {
	s := &ScoringService{timeout: 120 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = lock.NewMemoryLocker()
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.With("service", "ScoringService")
	return s
}

// Score asks the model to score every student's chat history and replaces
// the assignment's scores with the valid entries. When no entry is valid the
// stored scores are kept and an empty slice is returned.
func (s *ScoringService) Score(ctx context.Context, assignmentID uint) ([]models.UnderstandingScore, error) {
	if s.db == nil || s.assignments == nil || s.concepts == nil || s.questions == nil || s.chatLogs == nil || s.scores == nil {
		return nil, fmt.Errorf("%w: database or repositories", ErrDependencyMissing)
	}
	if s.gen == nil {
		return nil, fmt.Errorf("%w: generator", ErrDependencyMissing)
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
	logs, err := s.chatLogs.ListByAssignment(ctx, nil, a.ID)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, newAnalysisError(MsgNoChatLogs, nil)
	}
	questions, err := s.questions.ListByAssignment(ctx, nil, a.ID)
	if err != nil {
		return nil, err
	}
	concepts, err := s.concepts.ListByAssignment(ctx, nil, a.ID)
	if err != nil {
		return nil, err
	}

	payload := scoringPayload{
		AssignmentID: a.ID,
		Questions:    make([]scoringQuestion, len(questions)),
		Concepts:     make([]scoringConcept, len(concepts)),
		ChatLogs:     make([]scoringChatLog, len(logs)),
	}
	validQuestions := make(map[uint]bool, len(questions))
	for i, q := range questions {
		payload.Questions[i] = scoringQuestion{ID: q.ID, Prompt: q.Prompt, Position: q.Position}
		validQuestions[q.ID] = true
	}
	validConcepts := make(map[uint]bool, len(concepts))
	for i, c := range concepts {
		payload.Concepts[i] = scoringConcept{ID: c.ID, Name: c.Name, Description: c.Description}
		validConcepts[c.ID] = true
	}
	for i, l := range logs {
		payload.ChatLogs[i] = scoringChatLog{
			StudentID: l.StudentID,
			Question:  l.Question,
			CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	prompt, err := buildScoringPrompt(payload)
	if err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := s.gen.Generate(genCtx, llm.Request{Prompt: prompt})
	if err != nil {
		s.log.Error("scoring model failure", "assignment_id", a.ID, "error", err)
		return nil, newAnalysisError(MsgServiceUnavailable, err)
	}
	s.log.Debug("assignment scoring raw output", "assignment_id", a.ID, "length", len(raw))

	scores := normalizeScores(parseLLMJSON(raw)["scores"], a.ID, validQuestions, validConcepts, s.gen.Name())
	if len(scores) == 0 {
		s.log.Warn("no valid scores produced", "assignment_id", a.ID)
		return []models.UnderstandingScore{}, nil
	}

	rows := make([]*models.UnderstandingScore, len(scores))
	for i := range scores {
		rows[i] = &scores[i]
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.scores.DeleteByAssignment(ctx, tx, a.ID); err != nil {
			return err
		}
		return s.scores.CreateBatch(ctx, tx, rows)
	})
	if err != nil {
		return nil, fmt.Errorf("persist scores: %w", err)
	}
	s.log.Info("assignment scored", "assignment_id", a.ID, "scores", len(scores))
	return scores, nil
}

const maxSourceLen = 64

// normalizeScores keeps entries with a positive integer student_id and a
// score in [0, 1]. Question and concept ids outside the assignment are
// dropped to null.
func normalizeScores(v any, assignmentID uint, questions, concepts map[uint]bool, defaultSource string) []models.UnderstandingScore {
	var out []models.UnderstandingScore
	for _, e := range normalizeList(v) {
		studentID, ok := asID(e["student_id"])
		if !ok {
			continue
		}
		score, ok := asFloat(e["score"])
		if !ok || !(score >= 0 && score <= 1) {
			continue
		}
		row := models.UnderstandingScore{
			StudentID:    studentID,
			AssignmentID: assignmentID,
			Score:        score,
		}
		if qid, ok := asID(e["question_id"]); ok && questions[qid] {
			row.QuestionID = &qid
		}
		if cid, ok := asID(e["concept_id"]); ok && concepts[cid] {
			row.ConceptID = &cid
		}
		if conf, ok := asFloat(e["confidence"]); ok {
			row.Confidence = &conf
		}
		source := asString(e["source"])
		if source == "" {
			source = defaultSource
		}
		if r := []rune(source); len(r) > maxSourceLen {
			source = string(r[:maxSourceLen])
		}
		if source != "" {
			row.Source = &source
		}
		out = append(out, row)
	}
	return out
}
