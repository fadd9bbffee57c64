package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"icarus-backend/logger"
	"icarus-backend/models"
	"icarus-backend/repository"
	"icarus-backend/testutil"
)

func TestWeaknessGroupsOrdering(t *testing.T) {
	pairs := []repository.StudentConceptAverage{
		{ConceptID: 1, ConceptName: "Limits", StudentID: 10, StudentName: "Ana", AverageScore: 0.5},
		{ConceptID: 2, ConceptName: "Series", StudentID: 10, StudentName: "Ana", AverageScore: 0.3},
		{ConceptID: 2, ConceptName: "Series", StudentID: 11, StudentName: "Ben", AverageScore: 0.5},
		{ConceptID: 3, ConceptName: "Vectors", StudentID: 11, StudentName: "Ben", AverageScore: 0.2},
		{ConceptID: 4, ConceptName: "Sets", StudentID: 11, StudentName: "Ben", AverageScore: 0.6},
	}
	groups := weaknessGroups(pairs)
	if len(groups) != 3 {
		t.Fatalf("got %d groups: %+v", len(groups), groups)
	}
	want := []uint{2, 3, 1}
	for i, g := range groups {
		if g.ConceptID != want[i] {
			t.Fatalf("group %d = concept %d, want %d", i, g.ConceptID, want[i])
		}
	}
	if len(groups[0].Students) != 2 || math.Abs(groups[0].AverageScore-0.4) > 1e-9 {
		t.Fatalf("series group = %+v", groups[0])
	}
	if empty := weaknessGroups(nil); empty == nil || len(empty) != 0 {
		t.Fatalf("empty groups = %#v", empty)
	}
}

func TestAssignmentAnalytics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := testutil.SeedAssignment(t, f.db, "HW1")
	ana := testutil.SeedStudent(t, f.db, "ana", "Ana")
	ben := testutil.SeedStudent(t, f.db, "ben", "Ben")

	review, err := f.structure.Apply(ctx, a.ID, models.StructureUpdate{
		Concepts:  []models.ConceptPayload{{Name: "Limits"}, {Name: "Series"}},
		Questions: []models.QuestionPayload{{Prompt: "Q1"}, {Prompt: "Q2"}},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	limits, series := *review.Concepts[0].ID, *review.Concepts[1].ID
	q1, q2 := *review.Questions[0].ID, *review.Questions[1].ID

	rows := []*models.UnderstandingScore{
		{StudentID: ana, AssignmentID: a.ID, ConceptID: &limits, QuestionID: &q1, Score: 0.9},
		{StudentID: ana, AssignmentID: a.ID, ConceptID: &series, QuestionID: &q2, Score: 0.5},
		{StudentID: ben, AssignmentID: a.ID, ConceptID: &limits, QuestionID: &q1, Score: 0.7},
		{StudentID: ben, AssignmentID: a.ID, ConceptID: &series, QuestionID: &q2, Score: 0.1},
	}
	if err := f.repos.scores.CreateBatch(ctx, nil, rows); err != nil {
		t.Fatalf("scores: %v", err)
	}

	svc := NewAnalyticsService(f.repos.assignments, f.repos.scores, logger.Nop())
	got, err := svc.AssignmentAnalytics(ctx, a.ID)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if got.MostUnderstoodConcept == nil || got.MostUnderstoodConcept.ConceptID != limits {
		t.Fatalf("most understood concept = %+v", got.MostUnderstoodConcept)
	}
	if got.LeastUnderstoodConcept == nil || got.LeastUnderstoodConcept.ConceptID != series {
		t.Fatalf("least understood concept = %+v", got.LeastUnderstoodConcept)
	}
	if got.MostUnderstoodQuestion.QuestionID != q1 || got.LeastUnderstoodQuestion.QuestionID != q2 {
		t.Fatalf("question extremes = %+v / %+v", got.MostUnderstoodQuestion, got.LeastUnderstoodQuestion)
	}
	if len(got.StudentRankings) != 2 || got.StudentRankings[0].StudentID != ana || got.StudentRankings[0].StudentName != "Ana" {
		t.Fatalf("rankings = %+v", got.StudentRankings)
	}
	if len(got.WeaknessGroups) != 1 || got.WeaknessGroups[0].ConceptID != series || len(got.WeaknessGroups[0].Students) != 2 {
		t.Fatalf("weakness groups = %+v", got.WeaknessGroups)
	}
}

func TestAssignmentAnalyticsWithoutScores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := testutil.SeedAssignment(t, f.db, "HW1")
	svc := NewAnalyticsService(f.repos.assignments, f.repos.scores, nil)

	got, err := svc.AssignmentAnalytics(ctx, a.ID)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if got.MostUnderstoodConcept != nil || got.LeastUnderstoodQuestion != nil {
		t.Fatalf("expected no extremes: %+v", got)
	}
	if got.StudentRankings == nil || got.WeaknessGroups == nil {
		t.Fatal("lists must be empty, not null")
	}

	if _, err := svc.AssignmentAnalytics(ctx, a.ID+100); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing assignment err = %v", err)
	}
}
