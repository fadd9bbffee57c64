package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"icarus-backend/logger"
	"icarus-backend/models"
)

type QuestionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, q *models.AssignmentQuestion) error
	Save(ctx context.Context, tx *gorm.DB, q *models.AssignmentQuestion) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssignmentQuestion, error)
	// ListByAssignment returns questions in creation order.
	ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.AssignmentQuestion, error)
	// DeleteByAssignmentExcept removes the assignment's questions other than
	// keep, along with their concept links. Scores pointing at a removed
	// question keep their row with the question cleared.
	DeleteByAssignmentExcept(ctx context.Context, tx *gorm.DB, assignmentID uint, keep []uint) error
	ClearConceptLinks(ctx context.Context, tx *gorm.DB, questionIDs []uint) error
	CreateConceptLinks(ctx context.Context, tx *gorm.DB, links []models.QuestionConcept) error
	ListConceptLinks(ctx context.Context, tx *gorm.DB, questionIDs []uint) ([]models.QuestionConcept, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (r *questionRepo) Create(ctx context.Context, tx *gorm.DB, q *models.AssignmentQuestion) error {
	return pick(r.db, tx).WithContext(ctx).Create(q).Error
}

func (r *questionRepo) Save(ctx context.Context, tx *gorm.DB, q *models.AssignmentQuestion) error {
	return pick(r.db, tx).WithContext(ctx).Save(q).Error
}

func (r *questionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssignmentQuestion, error) {
	var q models.AssignmentQuestion
	if err := pick(r.db, tx).WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

func (r *questionRepo) ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.AssignmentQuestion, error) {
	var qs []models.AssignmentQuestion
	err := pick(r.db, tx).WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("id ASC").
		Find(&qs).Error
	return qs, err
}

func (r *questionRepo) DeleteByAssignmentExcept(ctx context.Context, tx *gorm.DB, assignmentID uint, keep []uint) error {
	t := pick(r.db, tx).WithContext(ctx)

	var ids []uint
	q := t.Model(&models.AssignmentQuestion{}).Where("assignment_id = ?", assignmentID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if err := t.Where("question_id IN ?", ids).Delete(&models.QuestionConcept{}).Error; err != nil {
		return err
	}
	if err := t.Model(&models.UnderstandingScore{}).
		Where("question_id IN ?", ids).
		Update("question_id", nil).Error; err != nil {
		return err
	}
	return t.Where("id IN ?", ids).Delete(&models.AssignmentQuestion{}).Error
}

func (r *questionRepo) ClearConceptLinks(ctx context.Context, tx *gorm.DB, questionIDs []uint) error {
	if len(questionIDs) == 0 {
		return nil
	}
	return pick(r.db, tx).WithContext(ctx).
		Where("question_id IN ?", questionIDs).
		Delete(&models.QuestionConcept{}).Error
}

func (r *questionRepo) CreateConceptLinks(ctx context.Context, tx *gorm.DB, links []models.QuestionConcept) error {
	if len(links) == 0 {
		return nil
	}
	return pick(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&links).Error
}

func (r *questionRepo) ListConceptLinks(ctx context.Context, tx *gorm.DB, questionIDs []uint) ([]models.QuestionConcept, error) {
	var links []models.QuestionConcept
	if len(questionIDs) == 0 {
		return links, nil
	}
	err := pick(r.db, tx).WithContext(ctx).
		Where("question_id IN ?", questionIDs).
		Order("question_id ASC, concept_id ASC").
		Find(&links).Error
	return links, err
}
