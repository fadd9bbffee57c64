package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"gorm.io/gorm"

	"icarus-backend/logger"
	"icarus-backend/models"
	"icarus-backend/repository"
	"icarus-backend/testutil"
)

type scoringSetup struct {
	assignment *models.Assignment
	student    uint
	questionID uint
	conceptID  uint
}

func seedScoring(t *testing.T, f *fixture) scoringSetup {
	t.Helper()
	ctx := context.Background()
	a := testutil.SeedAssignment(t, f.db, "HW1")
	student := testutil.SeedStudent(t, f.db, "ana", "Ana")
	review, err := f.structure.Apply(ctx, a.ID, models.StructureUpdate{
		Concepts:  []models.ConceptPayload{{Name: "Limits"}},
		Questions: []models.QuestionPayload{{Prompt: "Find the limit"}},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := f.repos.chatLogs.Create(ctx, nil, &models.ChatLog{StudentID: student, AssignmentID: a.ID, Question: "what is a limit?"}); err != nil {
		t.Fatalf("chat log: %v", err)
	}
	return scoringSetup{
		assignment: a,
		student:    student,
		questionID: *review.Questions[0].ID,
		conceptID:  *review.Concepts[0].ID,
	}
}

func TestScoreReplacesScores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := seedScoring(t, f)

	f.gen.reply = fmt.Sprintf(`{"scores": [{"student_id": %d, "question_id": %d, "concept_id": %d, "score": 0.7, "confidence": 0.9}]}`,
		s.student, s.questionID, s.conceptID)
	if _, err := f.scoring.Score(ctx, s.assignment.ID); err != nil {
		t.Fatalf("first score: %v", err)
	}

	f.gen.reply = fmt.Sprintf("```json\n{\"scores\": [{\"student_id\": %d, \"concept_id\": %d, \"score\": 0.4, \"source\": \"reviewer\"}]}\n```",
		s.student, s.conceptID)
	got, err := f.scoring.Score(ctx, s.assignment.ID)
	if err != nil {
		t.Fatalf("second score: %v", err)
	}
	if len(got) != 1 || got[0].Score != 0.4 || got[0].QuestionID != nil {
		t.Fatalf("scores = %+v", got)
	}
	if got[0].Source == nil || *got[0].Source != "reviewer" {
		t.Fatalf("source = %v", got[0].Source)
	}

	stored, err := f.repos.scores.ListByAssignment(ctx, nil, s.assignment.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 || stored[0].Score != 0.4 {
		t.Fatalf("stored = %+v", stored)
	}

	prompt := f.gen.lastPrompt()
	if !strings.Contains(prompt, "what is a limit?") || !strings.Contains(prompt, "Find the limit") {
		t.Fatal("scoring prompt is missing chat logs or questions")
	}
}

func TestScoreDropsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := seedScoring(t, f)

	f.gen.reply = fmt.Sprintf(`{"scores": [
		{"student_id": %d, "score": 1.5},
		{"score": 0.5},
		{"student_id": "abc", "score": 0.5},
		{"student_id": %d, "score": "0.25", "question_id": 9999, "concept_id": %d}
	]}`, s.student, s.student, s.conceptID)
	got, err := f.scoring.Score(ctx, s.assignment.ID)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("kept %d scores: %+v", len(got), got)
	}
	row := got[0]
	if row.Score != 0.25 || row.StudentID != s.student {
		t.Fatalf("row = %+v", row)
	}
	if row.QuestionID != nil {
		t.Fatalf("foreign question id kept: %d", *row.QuestionID)
	}
	if row.ConceptID == nil || *row.ConceptID != s.conceptID {
		t.Fatalf("concept id = %v", row.ConceptID)
	}
	if row.Source == nil || *row.Source != "fake:model" {
		t.Fatalf("source = %v", row.Source)
	}
}

func TestScoreKeepsStoredScoresWhenNothingValid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := seedScoring(t, f)

	f.gen.reply = fmt.Sprintf(`{"scores": [{"student_id": %d, "score": 0.9}]}`, s.student)
	if _, err := f.scoring.Score(ctx, s.assignment.ID); err != nil {
		t.Fatalf("seed score: %v", err)
	}

	for _, reply := range []string{`{"scores": [{"student_id": 0, "score": 2}]}`, "no scores today", `{"scores": {}}`} {
		f.gen.reply = reply
		got, err := f.scoring.Score(ctx, s.assignment.ID)
		if err != nil {
			t.Fatalf("score %q: %v", reply, err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("reply %q returned %+v", reply, got)
		}
	}
	stored, _ := f.repos.scores.ListByAssignment(ctx, nil, s.assignment.ID)
	if len(stored) != 1 || stored[0].Score != 0.9 {
		t.Fatalf("stored scores changed: %+v", stored)
	}
}

func TestScorePreconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := testutil.SeedAssignment(t, f.db, "HW1")

	var ae *AnalysisError
	if _, err := f.scoring.Score(ctx, a.ID); !errors.As(err, &ae) || ae.Message != MsgNoChatLogs {
		t.Fatalf("err = %v, want %q", err, MsgNoChatLogs)
	}

	s := seedScoring(t, f)
	f.gen.err = errors.New("timeout")
	if _, err := f.scoring.Score(ctx, s.assignment.ID); !IsUnavailable(err) {
		t.Fatalf("err = %v, want service unavailable", err)
	}
}

func TestNormalizeScoresTruncatesSource(t *testing.T) {
	long := strings.Repeat("é", 80)
	got := normalizeScores([]any{map[string]any{"student_id": 3.0, "score": 0.0, "source": long}}, 1, nil, nil, "fake")
	if len(got) != 1 {
		t.Fatalf("got %d scores", len(got))
	}
	if n := len([]rune(*got[0].Source)); n != maxSourceLen {
		t.Fatalf("source has %d runes", n)
	}
	if got[0].StudentID != 3 || got[0].AssignmentID != 1 {
		t.Fatalf("row = %+v", got[0])
	}
}

// failingBatch deletes through the real repo and then fails the insert.
type failingBatch struct {
	repository.ScoreRepo
}

func (failingBatch) CreateBatch(ctx context.Context, tx *gorm.DB, scores []*models.UnderstandingScore) error {
	return errors.New("constraint violation")
}

func TestScoreRollsBackOnInsertFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := seedScoring(t, f)

	f.gen.reply = fmt.Sprintf(`{"scores": [{"student_id": %d, "score": 0.9}]}`, s.student)
	if _, err := f.scoring.Score(ctx, s.assignment.ID); err != nil {
		t.Fatalf("seed score: %v", err)
	}

	svc := NewScoringService(
		ScoringWithDatabase(f.db),
		ScoringWithRepositories(f.repos.assignments, f.repos.concepts, f.repos.questions, f.repos.chatLogs, failingBatch{f.repos.scores}),
		ScoringWithGenerator(f.gen),
		ScoringWithLogger(logger.Nop()),
	)
	f.gen.reply = fmt.Sprintf(`{"scores": [{"student_id": %d, "score": 0.2}]}`, s.student)
	if _, err := svc.Score(ctx, s.assignment.ID); err == nil {
		t.Fatal("expected score to fail")
	}

	stored, err := f.repos.scores.ListByAssignment(ctx, nil, s.assignment.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 || stored[0].Score != 0.9 {
		t.Fatalf("stored scores = %+v", stored)
	}
}

func TestScoreRejectsNonFiniteNumbers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := seedScoring(t, f)

	f.gen.reply = fmt.Sprintf(`{"scores": [
		{"student_id": %d, "score": "NaN"},
		{"student_id": %d, "score": 0.6, "confidence": "NaN"},
		{"student_id": %d, "score": 0.3, "confidence": "-Inf"}
	]}`, s.student, s.student, s.student)
	got, err := f.scoring.Score(ctx, s.assignment.ID)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("kept %d scores: %+v", len(got), got)
	}
	for _, row := range got {
		if row.Confidence != nil {
			t.Fatalf("non-finite confidence kept: %v", *row.Confidence)
		}
	}
	if _, err := json.Marshal(got); err != nil {
		t.Fatalf("scores do not encode: %v", err)
	}
}
