package repository

import (
	"context"

	"gorm.io/gorm"

	"icarus-backend/logger"
	"icarus-backend/models"
)

type UserRepo interface {
	CreateUser(ctx context.Context, tx *gorm.DB, u *models.User) error
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error)
	CreateStudent(ctx context.Context, tx *gorm.DB, s *models.Student) error
	GetStudentByUserID(ctx context.Context, tx *gorm.DB, userID uint) (*models.Student, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) CreateUser(ctx context.Context, tx *gorm.DB, u *models.User) error {
	return pick(r.db, tx).WithContext(ctx).Create(u).Error
}

func (r *userRepo) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error) {
	var u models.User
	if err := pick(r.db, tx).WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *userRepo) CreateStudent(ctx context.Context, tx *gorm.DB, s *models.Student) error {
	return pick(r.db, tx).WithContext(ctx).Create(s).Error
}

func (r *userRepo) GetStudentByUserID(ctx context.Context, tx *gorm.DB, userID uint) (*models.Student, error) {
	var s models.Student
	if err := pick(r.db, tx).WithContext(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}
