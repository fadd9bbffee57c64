package models

import "time"

// Concept names are unique across all assignments.
type Concept struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AssignmentQuestion belongs to exactly one assignment
type AssignmentQuestion struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AssignmentID uint      `gorm:"index;not null" json:"assignment_id"`
	Prompt       string    `gorm:"type:text;not null" json:"prompt"`
	Position     *int      `json:"position,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// QuestionConcept links a question to a concept
type QuestionConcept struct {
	QuestionID uint `gorm:"primaryKey;autoIncrement:false" json:"question_id"`
	ConceptID  uint `gorm:"primaryKey;autoIncrement:false" json:"concept_id"`
}

// AssignmentConcept links an assignment to a concept
type AssignmentConcept struct {
	AssignmentID uint `gorm:"primaryKey;autoIncrement:false" json:"assignment_id"`
	ConceptID    uint `gorm:"primaryKey;autoIncrement:false" json:"concept_id"`
}

// UnderstandingScore is a per-student comprehension estimate in [0, 1]
type UnderstandingScore struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StudentID    uint      `gorm:"index:ix_understanding_scores_student_assignment;not null" json:"student_id"`
	AssignmentID uint      `gorm:"index:ix_understanding_scores_student_assignment;not null" json:"assignment_id"`
	QuestionID   *uint     `json:"question_id,omitempty"`
	ConceptID    *uint     `json:"concept_id,omitempty"`
	Score        float64   `gorm:"not null" json:"score"`
	Confidence   *float64  `json:"confidence,omitempty"`
	Source       *string   `gorm:"size:64" json:"source,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
