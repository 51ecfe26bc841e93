package client

import (
	"sort"
	"strings"

	"github.com/yoockh/audition/internal/audition"
)

// WireQuestion accepts every field name the backend and older question banks
// have used for the same data.
type WireQuestion struct {
	ID               string `json:"id"`
	QuestionText     string `json:"question_text"`
	Prompt           string `json:"prompt"`
	Text             string `json:"text"`
	TimeLimitSeconds int    `json:"time_limit_seconds"`
	Duration         int    `json:"duration"`
	Position         *int   `json:"position"`
}

type questionsEnvelope struct {
	OpportunityID string         `json:"opportunity_id"`
	Questions     []WireQuestion `json:"questions"`
}

// ToQuestions maps wire questions into the canonical type, preserving order.
// Questions that carry an explicit position are sorted by it.
func ToQuestions(in []WireQuestion) []audition.Question {
	out := make([]audition.Question, 0, len(in))
	for i, w := range in {
		q := audition.Question{
			ID:               w.ID,
			Text:             firstNonEmpty(w.QuestionText, w.Prompt, w.Text),
			HardLimitSeconds: w.TimeLimitSeconds,
			Position:         i,
		}
		if q.HardLimitSeconds <= 0 {
			q.HardLimitSeconds = w.Duration
		}
		if q.HardLimitSeconds <= 0 {
			q.HardLimitSeconds = audition.DefaultHardLimitSeconds
		}
		if w.Position != nil {
			q.Position = *w.Position
		}
		out = append(out, q)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
