package models

import "time"

const (
	TranscriptPending    = "pending"
	TranscriptProcessing = "processing"
	TranscriptDone       = "done"
	TranscriptFailed     = "failed"
)

const (
	TranscriptUnavailable = "[Transcription unavailable]"
	TranscriptNoSpeech    = "[No speech detected]"
)

type Answer struct {
	ID            string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SubmissionID  string `gorm:"column:submission_id;type:uuid;index" json:"submission_id"`
	SessionID     string `gorm:"column:session_id;type:uuid;index" json:"session_id"`
	UserID        string `gorm:"column:user_id;type:uuid" json:"user_id"`
	OpportunityID string `gorm:"column:opportunity_id;type:uuid" json:"opportunity_id"`

	QuestionID    string `gorm:"column:question_id;type:text" json:"question_id"`
	QuestionText  string `gorm:"column:question_text;type:text" json:"question_text"`
	QuestionIndex int    `gorm:"column:question_index;type:integer" json:"question_index"`

	AudioPath       string  `gorm:"column:audio_path;type:text" json:"audio_path"` // object key
	ContentType     string  `gorm:"column:content_type;type:text" json:"content_type"`
	SizeBytes       int64   `gorm:"column:size_bytes;type:bigint" json:"size_bytes"`
	DurationSeconds float64 `gorm:"column:duration_seconds" json:"duration_seconds"`

	Transcript           string     `gorm:"column:transcript;type:text" json:"transcript"`
	TranscriptStatus     string     `gorm:"column:transcript_status;type:text" json:"transcript_status"`
	TranscriptConfidence float64    `gorm:"column:transcript_confidence" json:"transcript_confidence"`
	TranscribedAt        *time.Time `gorm:"column:transcribed_at" json:"transcribed_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Answer) TableName() string { return "audition_answers" }
