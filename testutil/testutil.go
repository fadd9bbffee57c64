// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"icarus-backend/logger"
	"icarus-backend/models"
	"icarus-backend/repository"
)

// NewDB opens a migrated SQLite database in a temp dir.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedAssignment inserts an assignment with the given title.
func SeedAssignment(t *testing.T, db *gorm.DB, title string) *models.Assignment {
	t.Helper()
	a := &models.Assignment{Title: title}
	if err := repository.NewAssignmentRepo(db, logger.Nop()).Create(context.Background(), nil, a); err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	return a
}

// SeedStudent inserts a user and its student profile and returns the user id.
func SeedStudent(t *testing.T, db *gorm.DB, username, name string) uint {
	t.Helper()
	repo := repository.NewUserRepo(db, logger.Nop())
	u := &models.User{Username: username, Email: username + "@example.com", HashedPassword: "x"}
	if err := repo.CreateUser(context.Background(), nil, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	s := &models.Student{Name: name, Email: username + "@students.example.com", UserID: u.ID}
	if err := repo.CreateStudent(context.Background(), nil, s); err != nil {
		t.Fatalf("seed student: %v", err)
	}
	return u.ID
}
