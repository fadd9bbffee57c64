package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"icarus-backend/config"
	"icarus-backend/logger"
	"icarus-backend/models"
	"icarus-backend/repository"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: No .env file found, using environment variables: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	db, err := repository.Open(cfg.DatabaseURL, appLog)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx := context.Background()
	users := repository.NewUserRepo(db, appLog)
	assignments := repository.NewAssignmentRepo(db, appLog)
	chatLogs := repository.NewChatLogRepo(db, appLog)

	username := "student1"
	email := "student1@example.com"
	password := "testpassword123"
	name := "Test Student"

	// Check if user already exists
	if existing, err := users.GetByUsername(ctx, nil, username); err == nil {
		log.Printf("User %s already exists (ID: %d)", username, existing.ID)
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Fatalf("Failed to look up user: %v", err)
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	var (
		user       *models.User
		assignment *models.Assignment
	)
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user = &models.User{Username: username, Email: email, HashedPassword: string(hashedPassword)}
		if err := users.CreateUser(ctx, tx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		student := &models.Student{Name: name, Email: email, UserID: user.ID}
		if err := users.CreateStudent(ctx, tx, student); err != nil {
			return fmt.Errorf("create student: %w", err)
		}

		assignment = &models.Assignment{Title: "Limits and Continuity"}
		if err := assignments.Create(ctx, tx, assignment); err != nil {
			return fmt.Errorf("create assignment: %w", err)
		}
		for _, q := range []string{
			"What does it mean for a limit to exist?",
			"How do I find the limit of sin(x)/x as x approaches 0?",
			"Is a function continuous if its limit exists?",
		} {
			entry := &models.ChatLog{StudentID: user.ID, AssignmentID: assignment.ID, Question: q}
			if err := chatLogs.Create(ctx, tx, entry); err != nil {
				return fmt.Errorf("create chat log: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to seed test data: %v", err)
	}

	fmt.Printf("✅ Test user created successfully!\n")
	fmt.Printf("   ID: %d\n", user.ID)
	fmt.Printf("   Username: %s\n", username)
	fmt.Printf("   Password: %s\n", password)
	fmt.Printf("   Assignment ID: %d (3 chat logs)\n", assignment.ID)
}
