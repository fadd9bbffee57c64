package models

import "time"

// Assignment owns files, questions, a concept set and understanding scores.
type Assignment struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Title             string     `gorm:"size:255;not null" json:"title"`
	Description       *string    `gorm:"type:text" json:"description,omitempty"`
	DueAt             *time.Time `json:"due_at,omitempty"`
	ClassID           *uint      `gorm:"index" json:"class_id,omitempty"`
	TeacherID         *uint      `gorm:"index" json:"teacher_id,omitempty"`
	StructureApproved bool       `gorm:"not null;default:false" json:"structure_approved"`
	Files             []File     `gorm:"foreignKey:AssignmentID" json:"files,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ChatLog is one question a student asked while working on an assignment
type ChatLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StudentID    uint      `gorm:"index;not null" json:"student_id"`
	AssignmentID uint      `gorm:"index;not null" json:"assignment_id"`
	Question     string    `gorm:"type:text;not null" json:"question"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}
