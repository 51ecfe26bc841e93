// Package audition holds the types shared by the candidate-side session
// components: the canonical question, the captured answer and the result of
// submitting it.
package audition

const (
	// DefaultHardLimitSeconds applies to questions that carry no time limit.
	DefaultHardLimitSeconds = 90
	// DefaultGlobalSeconds is the master clock for a whole audition.
	DefaultGlobalSeconds = 1800
	// DefaultWarningSeconds is the remaining time at which a question is flagged as overtime.
	DefaultWarningSeconds = 30
)

// Question is immutable once a session has started.
type Question struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	HardLimitSeconds int    `json:"hard_limit_seconds"`
	Position         int    `json:"position"`
}

// Limit returns the hard limit, falling back to DefaultHardLimitSeconds.
func (q Question) Limit() int {
	if q.HardLimitSeconds <= 0 {
		return DefaultHardLimitSeconds
	}
	return q.HardLimitSeconds
}

type CapturedAnswer struct {
	QuestionID      string
	Payload         []byte
	ContentType     string
	DurationSeconds float64
}

func (c CapturedAnswer) Empty() bool { return len(c.Payload) == 0 }

type UploadResult struct {
	Success        bool
	RemoteAnswerID string
	AudioURL       string
	Transcript     string
	Err            error
}
