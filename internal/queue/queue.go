// Package queue carries transcription jobs and transcript status events
// over Redis streams and pub/sub.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type TranscriptionJob struct {
	AnswerID      string
	SessionID     string
	SubmissionID  string
	QuestionID    string
	QuestionIndex int
	ObjectPath    string
	ContentType   string
	Language      string
}

func (j TranscriptionJob) Values() map[string]any {
	return map[string]any{
		"answer_id":      j.AnswerID,
		"session_id":     j.SessionID,
		"submission_id":  j.SubmissionID,
		"question_id":    j.QuestionID,
		"question_index": strconv.Itoa(j.QuestionIndex),
		"object_path":    j.ObjectPath,
		"content_type":   j.ContentType,
		"language":       j.Language,
	}
}

var ErrMalformedJob = errors.New("malformed transcription job")

// ParseJob reads a job back from stream message values.
func ParseJob(values map[string]any) (TranscriptionJob, error) {
	get := func(k string) string {
		s, _ := values[k].(string)
		return s
	}
	j := TranscriptionJob{
		AnswerID:     get("answer_id"),
		SessionID:    get("session_id"),
		SubmissionID: get("submission_id"),
		QuestionID:   get("question_id"),
		ObjectPath:   get("object_path"),
		ContentType:  get("content_type"),
		Language:     get("language"),
	}
	if j.AnswerID == "" || j.SessionID == "" || j.ObjectPath == "" {
		return j, ErrMalformedJob
	}
	if raw := get("question_index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return j, fmt.Errorf("%w: question_index %q", ErrMalformedJob, raw)
		}
		j.QuestionIndex = n
	}
	return j, nil
}

type Publisher interface {
	Enqueue(ctx context.Context, job TranscriptionJob) error
}

type RedisStream struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewRedisStream(rdb *redis.Client, stream string) *RedisStream {
	return &RedisStream{rdb: rdb, stream: stream, maxLen: 10000}
}

func (q *RedisStream) Enqueue(ctx context.Context, job TranscriptionJob) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: job.Values(),
	}).Err()
}

// StatusEvent is published whenever an answer's transcript status changes.
type StatusEvent struct {
	Type          string  `json:"type"` // always "transcript_status"
	AnswerID      string  `json:"answer_id"`
	QuestionID    string  `json:"question_id"`
	QuestionIndex int     `json:"question_index"`
	Status        string  `json:"status"`
	Transcript    string  `json:"transcript,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
}

func StatusChannel(sessionID string) string {
	return "audition:" + sessionID + ":status"
}

func PublishStatus(ctx context.Context, rdb *redis.Client, sessionID string, ev StatusEvent) error {
	ev.Type = "transcript_status"
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, StatusChannel(sessionID), b).Err()
}
