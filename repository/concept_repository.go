package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"icarus-backend/logger"
	"icarus-backend/models"
)

type ConceptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, c *models.Concept) error
	Save(ctx context.Context, tx *gorm.DB, c *models.Concept) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Concept, error)
	// GetByName matches the name exactly, case included.
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*models.Concept, error)
	// ListByAssignment returns the assignment's linked concepts.
	ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.Concept, error)
	// ReplaceAssignmentConcepts makes conceptIDs the assignment's whole concept set.
	ReplaceAssignmentConcepts(ctx context.Context, tx *gorm.DB, assignmentID uint, conceptIDs []uint) error
}

type conceptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConceptRepo(db *gorm.DB, baseLog *logger.Logger) ConceptRepo {
	return &conceptRepo{db: db, log: baseLog.With("repo", "ConceptRepo")}
}

func (r *conceptRepo) Create(ctx context.Context, tx *gorm.DB, c *models.Concept) error {
	return pick(r.db, tx).WithContext(ctx).Create(c).Error
}

func (r *conceptRepo) Save(ctx context.Context, tx *gorm.DB, c *models.Concept) error {
	return pick(r.db, tx).WithContext(ctx).Save(c).Error
}

func (r *conceptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Concept, error) {
	var c models.Concept
	if err := pick(r.db, tx).WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *conceptRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*models.Concept, error) {
	var c models.Concept
	if err := pick(r.db, tx).WithContext(ctx).Where("name = ?", name).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *conceptRepo) ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.Concept, error) {
	var concepts []models.Concept
	err := pick(r.db, tx).WithContext(ctx).
		Joins("JOIN assignment_concepts ac ON ac.concept_id = concepts.id").
		Where("ac.assignment_id = ?", assignmentID).
		Order("concepts.id ASC").
		Find(&concepts).Error
	return concepts, err
}

func (r *conceptRepo) ReplaceAssignmentConcepts(ctx context.Context, tx *gorm.DB, assignmentID uint, conceptIDs []uint) error {
	t := pick(r.db, tx).WithContext(ctx)
	if err := t.Where("assignment_id = ?", assignmentID).Delete(&models.AssignmentConcept{}).Error; err != nil {
		return err
	}
	if len(conceptIDs) == 0 {
		return nil
	}
	links := make([]models.AssignmentConcept, 0, len(conceptIDs))
	for _, id := range conceptIDs {
		links = append(links, models.AssignmentConcept{AssignmentID: assignmentID, ConceptID: id})
	}
	return t.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}
