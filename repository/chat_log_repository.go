package repository

import (
	"context"

	"gorm.io/gorm"

	"icarus-backend/logger"
	"icarus-backend/models"
)

type ChatLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, l *models.ChatLog) error
	// ListByAssignment returns logs oldest first.
	ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.ChatLog, error)
}

type chatLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatLogRepo(db *gorm.DB, baseLog *logger.Logger) ChatLogRepo {
	return &chatLogRepo{db: db, log: baseLog.With("repo", "ChatLogRepo")}
}

func (r *chatLogRepo) Create(ctx context.Context, tx *gorm.DB, l *models.ChatLog) error {
	return pick(r.db, tx).WithContext(ctx).Create(l).Error
}

func (r *chatLogRepo) ListByAssignment(ctx context.Context, tx *gorm.DB, assignmentID uint) ([]models.ChatLog, error) {
	var logs []models.ChatLog
	err := pick(r.db, tx).WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC, id ASC").
		Find(&logs).Error
	return logs, err
}
