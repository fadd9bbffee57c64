package repository

import (
	"context"

	"gorm.io/gorm"

	"icarus-backend/logger"
	"icarus-backend/models"
)

type AssignmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, a *models.Assignment) error
	// GetByID loads the assignment with its files.
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error)
	SetStructureApproved(ctx context.Context, tx *gorm.DB, id uint, approved bool) error
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{db: db, log: baseLog.With("repo", "AssignmentRepo")}
}

func (r *assignmentRepo) Create(ctx context.Context, tx *gorm.DB, a *models.Assignment) error {
	return pick(r.db, tx).WithContext(ctx).Create(a).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) {
	var a models.Assignment
	err := pick(r.db, tx).WithContext(ctx).
		Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&a, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *assignmentRepo) SetStructureApproved(ctx context.Context, tx *gorm.DB, id uint, approved bool) error {
	res := pick(r.db, tx).WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", id).
		Update("structure_approved", approved)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
