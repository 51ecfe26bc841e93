package session

import (
	"time"

	"github.com/yoockh/audition/internal/audition"
	"github.com/yoockh/audition/internal/audition/recorder"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusExpired    Status = "expired"
)

func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusExpired }

type Outcome string

const (
	OutcomeUnanswered Outcome = "unanswered"
	OutcomeSubmitted  Outcome = "submitted"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeFailed     Outcome = "failed"
	// OutcomePending marks an upload still in flight when the audition ended.
	// The backend may or may not have stored it.
	OutcomePending    Outcome = "pending"
)

type AnswerOutcome struct {
	QuestionID     string  `json:"question_id"`
	Index          int     `json:"index"`
	Outcome        Outcome `json:"outcome"`
	RemoteAnswerID string  `json:"remote_answer_id,omitempty"`
	Transcript     string  `json:"transcript,omitempty"`
}

// Result is what a finished audition reports back to the backend.
type Result struct {
	SessionID string          `json:"session_id"`
	Status    Status          `json:"status"`
	Answers   []AnswerOutcome `json:"answers"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
}

func (r Result) count(o Outcome) int {
	n := 0
	for _, a := range r.Answers {
		if a.Outcome == o {
			n++
		}
	}
	return n
}

func (r Result) Submitted() int { return r.count(OutcomeSubmitted) }

// NotSubmitted counts every question that ended without an accepted upload.
func (r Result) NotSubmitted() int { return len(r.Answers) - r.Submitted() }

func (r Result) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Snapshot is a consistent read of the controller state.
type Snapshot struct {
	Status            Status
	Index             int
	Total             int
	Question          audition.Question
	QuestionRemaining int
	QuestionLimit     int
	QuestionElapsed   int
	GlobalRemaining   int
	QuestionClock     string
	GlobalClock       string
	Overtime          bool
	Recording         recorder.State
	Uploading         bool
	HasCapture        bool
	LastError         string
	WithoutDevice     bool
}
