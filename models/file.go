package models

import "time"

// File is an uploaded assignment document
type File struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AssignmentID uint      `gorm:"index;not null" json:"assignment_id"`
	Filename     string    `gorm:"size:255;not null" json:"filename"`
	Path         string    `gorm:"size:1024;not null" json:"path"`
	URL          string    `gorm:"size:1024" json:"url,omitempty"`
	MimeType     string    `gorm:"size:255" json:"mime_type"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
