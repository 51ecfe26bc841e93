package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/audition/internal/metrics"
	"github.com/yoockh/audition/internal/models"
	"github.com/yoockh/audition/internal/queue"
	mongorepo "github.com/yoockh/audition/internal/repositories/mongo"
	pgrepo "github.com/yoockh/audition/internal/repositories/postgres"
	"github.com/yoockh/audition/internal/storage"
	"github.com/yoockh/audition/internal/utils"
)

// deadlineGrace covers the final upload a client makes as the global clock
// runs out.
const deadlineGrace = 2 * time.Minute

type AnswerService interface {
	Submit(ctx context.Context, in SubmitAnswer) (*SubmittedAnswer, error)
	MarkTranscribing(ctx context.Context, answerID string) error
	RecordTranscript(ctx context.Context, answerID, status, transcript string, confidence float64) error
}

type SubmitAnswer struct {
	SessionID       string
	UserID          string
	OpportunityID   string
	QuestionID      string
	QuestionText    string
	QuestionIndex   int
	DurationSeconds float64
	ContentType     string
	Size            int64
	Audio           io.Reader
}

type SubmittedAnswer struct {
	Answer   *models.Answer
	AudioURL string
}

type AnswerConfig struct {
	MaxAudioBytes int64
	Language      string
	URLExpiry     time.Duration
}

type answerService struct {
	subs     pgrepo.SubmissionRepository
	answers  pgrepo.AnswerRepository
	sessions mongorepo.AuditionSessionRepository
	store    storage.Store
	jobs     queue.Publisher
	cfg      AnswerConfig
	now      func() time.Time
}

func NewAnswerService(subs pgrepo.SubmissionRepository, answers pgrepo.AnswerRepository, sessions mongorepo.AuditionSessionRepository, store storage.Store, jobs queue.Publisher, cfg AnswerConfig) AnswerService {
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = 25 << 20
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 15 * time.Minute
	}
	return &answerService{
		subs:     subs,
		answers:  answers,
		sessions: sessions,
		store:    store,
		jobs:     jobs,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *answerService) Submit(ctx context.Context, in SubmitAnswer) (out *SubmittedAnswer, err error) {
	const op = "AnswerService.Submit"

	defer func() {
		if err != nil {
			metrics.AnswerRejected()
			return
		}
		metrics.AnswerUploaded(out.Answer.SizeBytes)
	}()

	if in.SessionID == "" || in.UserID == "" || in.OpportunityID == "" || in.QuestionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id, user_id, opportunity_id and question_id are required", nil)
	}
	if in.Audio == nil || in.Size == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio file is required", nil)
	}
	if in.Size > s.cfg.MaxAudioBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("audio exceeds %d MB", s.cfg.MaxAudioBytes>>20), nil)
	}
	contentType, ok := audioContentType(in.ContentType)
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio must be an audio/* file", nil)
	}

	sub, err := s.subs.GetBySessionID(ctx, in.SessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get submission", err)
	}
	if sub.UserID != in.UserID || sub.OpportunityID != in.OpportunityID {
		return nil, utils.E(utils.CodeForbidden, op, "session does not belong to this user and opportunity", nil)
	}
	if sub.Status != models.SubmissionInProgress {
		return nil, utils.E(utils.CodeConflict, op, "audition has already ended", nil)
	}
	now := s.now().UTC()
	if now.After(sub.GlobalDeadline.Add(deadlineGrace)) {
		return nil, utils.E(utils.CodeConflict, op, "audition time is over", nil)
	}

	var snapshot []models.QuestionSnapshot
	if err := json.Unmarshal(sub.Questions, &snapshot); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "corrupt question snapshot", err)
	}
	q, ok := findQuestion(snapshot, in.QuestionID)
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, "question is not part of this audition", nil)
	}
	questionText := in.QuestionText
	if questionText == "" {
		questionText = q.Prompt
	}

	objectName := storage.AnswerObjectName(in.UserID, in.OpportunityID, in.QuestionID, now, contentType)
	storedPath, err := s.store.Upload(ctx, objectName, contentType, io.LimitReader(in.Audio, s.cfg.MaxAudioBytes))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to store audio", err)
	}

	row := &models.Answer{
		ID:               uuid.NewString(),
		SubmissionID:     sub.ID,
		SessionID:        sub.SessionID,
		UserID:           in.UserID,
		OpportunityID:    in.OpportunityID,
		QuestionID:       in.QuestionID,
		QuestionText:     questionText,
		QuestionIndex:    in.QuestionIndex,
		AudioPath:        storedPath,
		ContentType:      contentType,
		SizeBytes:        in.Size,
		DurationSeconds:  in.DurationSeconds,
		TranscriptStatus: models.TranscriptPending,
		CreatedAt:        now,
	}
	if err := s.answers.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save answer", err)
	}

	// runtime progress is advisory; the answer row is the record
	_ = s.sessions.RecordAnswer(ctx, sub.SessionID, models.SessionAnswer{
		QuestionID:    in.QuestionID,
		QuestionIndex: in.QuestionIndex,
		AnswerID:      row.ID,
		UploadedAt:    now,
	})

	err = s.jobs.Enqueue(ctx, queue.TranscriptionJob{
		AnswerID:      row.ID,
		SessionID:     sub.SessionID,
		SubmissionID:  sub.ID,
		QuestionID:    in.QuestionID,
		QuestionIndex: in.QuestionIndex,
		ObjectPath:    storedPath,
		ContentType:   contentType,
		Language:      s.cfg.Language,
	})
	if err != nil {
		// the audio is safe; only the transcript is lost
		row.Transcript = models.TranscriptUnavailable
		row.TranscriptStatus = models.TranscriptFailed
		_ = s.answers.SaveTranscript(ctx, row.ID, row.TranscriptStatus, row.Transcript, 0, now)
	}

	url, _ := s.store.SignedGetURL(ctx, storedPath, s.cfg.URLExpiry)
	return &SubmittedAnswer{Answer: row, AudioURL: url}, nil
}

func (s *answerService) MarkTranscribing(ctx context.Context, answerID string) error {
	const op = "AnswerService.MarkTranscribing"

	if err := s.answers.SetTranscriptStatus(ctx, answerID, models.TranscriptProcessing); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "answer not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to update answer", err)
	}
	return nil
}

func (s *answerService) RecordTranscript(ctx context.Context, answerID, status, transcript string, confidence float64) error {
	const op = "AnswerService.RecordTranscript"

	if status != models.TranscriptDone && status != models.TranscriptFailed {
		return utils.E(utils.CodeInvalidArgument, op, "status must be done or failed", nil)
	}
	if err := s.answers.SaveTranscript(ctx, answerID, status, transcript, confidence, s.now()); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "answer not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to save transcript", err)
	}
	return nil
}

func audioContentType(ct string) (string, bool) {
	mt, params, err := mime.ParseMediaType(ct)
	if err != nil || !strings.HasPrefix(mt, "audio/") {
		return "", false
	}
	return mime.FormatMediaType(mt, params), true
}

func findQuestion(qs []models.QuestionSnapshot, id string) (models.QuestionSnapshot, bool) {
	for _, q := range qs {
		if q.ID == id {
			return q, true
		}
	}
	return models.QuestionSnapshot{}, false
}
