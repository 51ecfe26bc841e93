package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditionSession is the runtime record of an audition in progress. It
// expires from Mongo once the audition is long over; the durable record is
// the Submission row.
type AuditionSession struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID     string             `bson:"session_id" json:"session_id"` // uuid v4
	SubmissionID  string             `bson:"submission_id" json:"submission_id"`
	UserID        string             `bson:"user_id" json:"user_id"` // uuid from Supabase Auth
	OpportunityID string             `bson:"opportunity_id" json:"opportunity_id"`

	Status        string `bson:"status" json:"status"` // in_progress|completed|expired
	CurrentIndex  int    `bson:"current_index" json:"current_index"`
	QuestionCount int    `bson:"question_count" json:"question_count"`

	Answers []SessionAnswer `bson:"answers,omitempty" json:"answers,omitempty"`

	CreatedAt      time.Time  `bson:"created_at" json:"created_at"`
	GlobalDeadline time.Time  `bson:"global_deadline" json:"global_deadline"`
	EndedAt        *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`

	DurationSeconds int64 `bson:"duration_seconds" json:"duration_seconds"`

	ExpiresAt time.Time `bson:"expires_at" json:"-"` // for TTL index
}

type SessionAnswer struct {
	QuestionID    string    `bson:"question_id" json:"question_id"`
	QuestionIndex int       `bson:"question_index" json:"question_index"`
	AnswerID      string    `bson:"answer_id" json:"answer_id"`
	UploadedAt    time.Time `bson:"uploaded_at" json:"uploaded_at"`
}
