package repository

import (
	"context"

	"gorm.io/gorm"

	"icarus-backend/logger"
	"icarus-backend/models"
)

type FileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, f *models.File) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.File, error)
	ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.File, error)
}

type fileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFileRepo(db *gorm.DB, baseLog *logger.Logger) FileRepo {
	return &fileRepo{db: db, log: baseLog.With("repo", "FileRepo")}
}

func (r *fileRepo) Create(ctx context.Context, tx *gorm.DB, f *models.File) error {
	return pick(r.db, tx).WithContext(ctx).Create(f).Error
}

func (r *fileRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.File, error) {
	var f models.File
	if err := pick(r.db, tx).WithContext(ctx).First(&f, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (r *fileRepo) ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.File, error) {
	var files []models.File
	err := pick(r.db, tx).WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("id ASC").
		Find(&files).Error
	return files, err
}
