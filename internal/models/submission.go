package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SubmissionInProgress = "in_progress"
	SubmissionCompleted  = "completed"
	SubmissionExpired    = "expired"
)

// Submission is the durable record of one candidate's audition for one
// opportunity. Questions holds the ordered snapshot taken at bootstrap.
type Submission struct {
	ID            string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID     string `gorm:"column:session_id;type:uuid;uniqueIndex" json:"session_id"`
	UserID        string `gorm:"column:user_id;type:uuid;uniqueIndex:uniq_submission_user_opp,priority:1" json:"user_id"`
	OpportunityID string `gorm:"column:opportunity_id;type:uuid;uniqueIndex:uniq_submission_user_opp,priority:2;index" json:"opportunity_id"`
	Status        string `gorm:"column:status;type:text" json:"status"`

	Questions datatypes.JSON `gorm:"column:questions;type:jsonb" json:"questions"`

	AnsweredCount   int `gorm:"column:answered_count;type:integer" json:"answered_count"`
	SkippedCount    int `gorm:"column:skipped_count;type:integer" json:"skipped_count"`
	DurationSeconds int `gorm:"column:duration_seconds;type:integer" json:"duration_seconds"`

	StartedAt      time.Time  `gorm:"column:started_at" json:"started_at"`
	GlobalDeadline time.Time  `gorm:"column:global_deadline" json:"global_deadline"`
	EndedAt        *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`

	Answers []Answer `gorm:"foreignKey:SubmissionID" json:"answers,omitempty"`
}

func (Submission) TableName() string { return "audition_submissions" }

// QuestionSnapshot is one element of Submission.Questions.
type QuestionSnapshot struct {
	ID               string `json:"id"`
	Prompt           string `json:"prompt"`
	TimeLimitSeconds int    `json:"time_limit_seconds"`
	Position         int    `json:"position"`
}
