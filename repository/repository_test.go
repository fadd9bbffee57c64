package repository_test

import (
	"context"
	"errors"
	"testing"

	"icarus-backend/logger"
	"icarus-backend/models"
	"icarus-backend/repository"
	"icarus-backend/testutil"
)

func uintPtr(v uint) *uint { return &v }

func TestAssignmentGetByIDNotFound(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewAssignmentRepo(db, logger.Nop())
	if _, err := repo.GetByID(context.Background(), nil, 42); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := repo.SetStructureApproved(context.Background(), nil, 42, true); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("approve err = %v, want ErrNotFound", err)
	}
}

func TestAssignmentPreloadsFilesInOrder(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	a := testutil.SeedAssignment(t, db, "HW1")
	files := repository.NewFileRepo(db, logger.Nop())
	for _, name := range []string{"b.pdf", "a.txt"} {
		if err := files.Create(ctx, nil, &models.File{AssignmentID: a.ID, Filename: name, Path: "k/" + name}); err != nil {
			t.Fatalf("create file: %v", err)
		}
	}
	got, err := repository.NewAssignmentRepo(db, logger.Nop()).GetByID(ctx, nil, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.Files) != 2 || got.Files[0].Filename != "b.pdf" {
		t.Fatalf("files = %+v", got.Files)
	}
}

func TestReplaceAssignmentConcepts(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	a := testutil.SeedAssignment(t, db, "HW1")
	concepts := repository.NewConceptRepo(db, logger.Nop())

	var ids []uint
	for _, name := range []string{"Limits", "Derivatives", "Integrals"} {
		c := &models.Concept{Name: name}
		if err := concepts.Create(ctx, nil, c); err != nil {
			t.Fatalf("create concept: %v", err)
		}
		ids = append(ids, c.ID)
	}

	if err := concepts.ReplaceAssignmentConcepts(ctx, nil, a.ID, ids); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := concepts.ReplaceAssignmentConcepts(ctx, nil, a.ID, []uint{ids[2], ids[2]}); err != nil {
		t.Fatalf("replace again: %v", err)
	}
	got, err := concepts.ListByAssignment(ctx, nil, a.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Integrals" {
		t.Fatalf("concepts = %+v", got)
	}

	byName, err := concepts.GetByName(ctx, nil, "Limits")
	if err != nil || byName.ID != ids[0] {
		t.Fatalf("GetByName = %+v, %v", byName, err)
	}
	if _, err := concepts.GetByName(ctx, nil, "limits"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("case-insensitive match: %v", err)
	}
}

func TestDeleteQuestionsKeepsScores(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	a := testutil.SeedAssignment(t, db, "HW1")
	student := testutil.SeedStudent(t, db, "ana", "Ana")
	questions := repository.NewQuestionRepo(db, logger.Nop())
	concepts := repository.NewConceptRepo(db, logger.Nop())
	scores := repository.NewScoreRepo(db, logger.Nop())

	c := &models.Concept{Name: "Limits"}
	if err := concepts.Create(ctx, nil, c); err != nil {
		t.Fatalf("create concept: %v", err)
	}
	q1 := &models.AssignmentQuestion{AssignmentID: a.ID, Prompt: "Q1"}
	q2 := &models.AssignmentQuestion{AssignmentID: a.ID, Prompt: "Q2"}
	for _, q := range []*models.AssignmentQuestion{q1, q2} {
		if err := questions.Create(ctx, nil, q); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
	links := []models.QuestionConcept{{QuestionID: q1.ID, ConceptID: c.ID}, {QuestionID: q2.ID, ConceptID: c.ID}}
	if err := questions.CreateConceptLinks(ctx, nil, links); err != nil {
		t.Fatalf("links: %v", err)
	}
	if err := scores.CreateBatch(ctx, nil, []*models.UnderstandingScore{
		{StudentID: student, AssignmentID: a.ID, QuestionID: uintPtr(q2.ID), Score: 0.5},
	}); err != nil {
		t.Fatalf("scores: %v", err)
	}

	if err := questions.DeleteByAssignmentExcept(ctx, nil, a.ID, []uint{q1.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	left, err := questions.ListByAssignment(ctx, nil, a.ID)
	if err != nil || len(left) != 1 || left[0].ID != q1.ID {
		t.Fatalf("questions = %+v, %v", left, err)
	}
	gotLinks, err := questions.ListConceptLinks(ctx, nil, []uint{q1.ID, q2.ID})
	if err != nil || len(gotLinks) != 1 || gotLinks[0].QuestionID != q1.ID {
		t.Fatalf("links = %+v, %v", gotLinks, err)
	}
	kept, err := scores.ListByAssignment(ctx, nil, a.ID)
	if err != nil || len(kept) != 1 || kept[0].QuestionID != nil {
		t.Fatalf("scores = %+v, %v", kept, err)
	}
}

func TestScoreAverages(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	a := testutil.SeedAssignment(t, db, "HW1")
	ana := testutil.SeedStudent(t, db, "ana", "Ana")
	ben := testutil.SeedStudent(t, db, "ben", "Ben")
	concepts := repository.NewConceptRepo(db, logger.Nop())
	questions := repository.NewQuestionRepo(db, logger.Nop())
	scores := repository.NewScoreRepo(db, logger.Nop())

	limits := &models.Concept{Name: "Limits"}
	if err := concepts.Create(ctx, nil, limits); err != nil {
		t.Fatalf("concept: %v", err)
	}
	q := &models.AssignmentQuestion{AssignmentID: a.ID, Prompt: "Q1"}
	if err := questions.Create(ctx, nil, q); err != nil {
		t.Fatalf("question: %v", err)
	}
	err := scores.CreateBatch(ctx, nil, []*models.UnderstandingScore{
		{StudentID: ana, AssignmentID: a.ID, ConceptID: uintPtr(limits.ID), QuestionID: uintPtr(q.ID), Score: 0.8},
		{StudentID: ana, AssignmentID: a.ID, ConceptID: uintPtr(limits.ID), Score: 1.0},
		{StudentID: ben, AssignmentID: a.ID, ConceptID: uintPtr(limits.ID), QuestionID: uintPtr(q.ID), Score: 0.2},
	})
	if err != nil {
		t.Fatalf("scores: %v", err)
	}

	students, err := scores.StudentAverages(ctx, nil, a.ID)
	if err != nil {
		t.Fatalf("students: %v", err)
	}
	if len(students) != 2 || students[0].StudentName != "Ana" || students[1].StudentID != ben {
		t.Fatalf("rankings = %+v", students)
	}

	byConcept, err := scores.ConceptAverages(ctx, nil, a.ID)
	if err != nil || len(byConcept) != 1 {
		t.Fatalf("concepts = %+v, %v", byConcept, err)
	}
	if avg := byConcept[0].AverageScore; avg < 0.66 || avg > 0.67 {
		t.Fatalf("concept average = %v", avg)
	}

	byQuestion, err := scores.QuestionAverages(ctx, nil, a.ID)
	if err != nil || len(byQuestion) != 1 || byQuestion[0].AverageScore != 0.5 {
		t.Fatalf("questions = %+v, %v", byQuestion, err)
	}

	pairs, err := scores.StudentConceptAverages(ctx, nil, a.ID)
	if err != nil || len(pairs) != 2 {
		t.Fatalf("pairs = %+v, %v", pairs, err)
	}
	if pairs[0].StudentID != ana || pairs[0].AverageScore != 0.9 {
		t.Fatalf("ana pair = %+v", pairs[0])
	}
}
