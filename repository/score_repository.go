package repository

import (
	"context"

	"gorm.io/gorm"

	"icarus-backend/logger"
	"icarus-backend/models"
)

// StudentConceptAverage is one student's mean score on one concept.
type StudentConceptAverage struct {
	ConceptID    uint
	ConceptName  string
	StudentID    uint
	StudentName  string
	AverageScore float64
}

type ScoreRepo interface {
	DeleteByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) error
	CreateBatch(ctx context.Context, tx *gorm.DB, scores []*models.UnderstandingScore) error
	ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.UnderstandingScore, error)

	ConceptAverages(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.ConceptScoreSummary, error)
	QuestionAverages(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.QuestionScoreSummary, error)
	// StudentAverages is ordered best first.
	StudentAverages(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.StudentScoreSummary, error)
	StudentConceptAverages(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]StudentConceptAverage, error)
}

type scoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoreRepo(db *gorm.DB, baseLog *logger.Logger) ScoreRepo {
	return &scoreRepo{db: db, log: baseLog.With("repo", "ScoreRepo")}
}

func (r *scoreRepo) DeleteByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) error {
	return pick(r.db, tx).WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Delete(&models.UnderstandingScore{}).Error
}

func (r *scoreRepo) CreateBatch(ctx context.Context, tx *gorm.DB, scores []*models.UnderstandingScore) error {
	if len(scores) == 0 {
		return nil
	}
	return pick(r.db, tx).WithContext(ctx).Create(&scores).Error
}

func (r *scoreRepo) ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.UnderstandingScore, error) {
	var scores []models.UnderstandingScore
	err := pick(r.db, tx).WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("id ASC").
		Find(&scores).Error
	return scores, err
}

func (r *scoreRepo) ConceptAverages(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.ConceptScoreSummary, error) {
	var rows []models.ConceptScoreSummary
	err := pick(r.db, tx).WithContext(ctx).
		Table("understanding_scores us").
		Select("c.id AS concept_id, c.name AS concept_name, AVG(us.score) AS average_score").
		Joins("JOIN concepts c ON c.id = us.concept_id").
		Where("us.assignment_id = ?", assignmentID).
		Group("c.id, c.name").
		Order("c.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *scoreRepo) QuestionAverages(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.QuestionScoreSummary, error) {
	var rows []models.QuestionScoreSummary
	err := pick(r.db, tx).WithContext(ctx).
		Table("understanding_scores us").
		Select("q.id AS question_id, q.prompt AS question_prompt, AVG(us.score) AS average_score").
		Joins("JOIN assignment_questions q ON q.id = us.question_id").
		Where("us.assignment_id = ?", assignmentID).
		Group("q.id, q.prompt").
		Order("q.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *scoreRepo) StudentAverages(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.StudentScoreSummary, error) {
	var rows []models.StudentScoreSummary
	err := pick(r.db, tx).WithContext(ctx).
		Table("understanding_scores us").
		Select("us.student_id AS student_id, s.name AS student_name, AVG(us.score) AS average_score").
		Joins("JOIN students s ON s.user_id = us.student_id").
		Where("us.assignment_id = ?", assignmentID).
		Group("us.student_id, s.name").
		Order("average_score DESC, us.student_id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *scoreRepo) StudentConceptAverages(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]StudentConceptAverage, error) {
	var rows []StudentConceptAverage
	err := pick(r.db, tx).WithContext(ctx).
		Table("understanding_scores us").
		Select(`c.id AS concept_id, c.name AS concept_name, us.student_id AS student_id,
			s.name AS student_name, AVG(us.score) AS average_score`).
		Joins("JOIN concepts c ON c.id = us.concept_id").
		Joins("JOIN students s ON s.user_id = us.student_id").
		Where("us.assignment_id = ?", assignmentID).
		Group("c.id, c.name, us.student_id, s.name").
		Order("c.id ASC, us.student_id ASC").
		Scan(&rows).Error
	return rows, err
}
