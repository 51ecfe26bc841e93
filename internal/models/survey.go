package models

import "time"

type Survey struct {
	ID           string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SubmissionID string    `gorm:"column:submission_id;type:uuid;uniqueIndex" json:"submission_id"`
	UserID       string    `gorm:"column:user_id;type:uuid" json:"user_id"`
	Rating       int       `gorm:"column:rating;type:integer" json:"rating"` // 1..5
	Reason       string    `gorm:"column:reason;type:text" json:"reason,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Survey) TableName() string { return "audition_surveys" }
