package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yoockh/audition/internal/metrics"
	"github.com/yoockh/audition/internal/models"
	mongorepo "github.com/yoockh/audition/internal/repositories/mongo"
	pgrepo "github.com/yoockh/audition/internal/repositories/postgres"
	"github.com/yoockh/audition/internal/utils"
)

type AuditionService interface {
	Start(ctx context.Context, userID, opportunityID string) (*StartedAudition, error)
	Get(ctx context.Context, sessionID string) (*models.AuditionSession, error)
	End(ctx context.Context, in EndAudition) (*models.Submission, error)
}

type StartedAudition struct {
	Submission    *models.Submission
	Session       *models.AuditionSession
	Questions     []models.Question
	GlobalSeconds int
}

type EndAudition struct {
	SessionID       string
	UserID          string
	Status          string // completed|expired
	DurationSeconds int
}

type AuditionConfig struct {
	GlobalSeconds int
	SessionTTL    time.Duration // how long the runtime record outlives the deadline
}

type auditionService struct {
	opps     OpportunityService
	subs     pgrepo.SubmissionRepository
	answers  pgrepo.AnswerRepository
	sessions mongorepo.AuditionSessionRepository
	cfg      AuditionConfig
	now      func() time.Time
}

func NewAuditionService(opps OpportunityService, subs pgrepo.SubmissionRepository, answers pgrepo.AnswerRepository, sessions mongorepo.AuditionSessionRepository, cfg AuditionConfig) AuditionService {
	if cfg.GlobalSeconds <= 0 {
		cfg.GlobalSeconds = 1800
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	return &auditionService{
		opps:     opps,
		subs:     subs,
		answers:  answers,
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Start bootstraps one audition per (user, opportunity). A second start is
// rejected with CONFLICT, whatever state the first one is in.
func (s *auditionService) Start(ctx context.Context, userID, opportunityID string) (*StartedAudition, error) {
	const op = "AuditionService.Start"

	if userID == "" || opportunityID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and opportunity_id are required", nil)
	}

	opp, err := s.opps.Get(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if !opp.IsActive {
		return nil, utils.E(utils.CodeInvalidArgument, op, "opportunity is not accepting auditions", nil)
	}

	_, err = s.subs.GetByUserOpportunity(ctx, userID, opportunityID)
	switch {
	case err == nil:
		return nil, utils.E(utils.CodeConflict, op, "audition already started for this opportunity", utils.ErrConflict)
	case !errors.Is(err, utils.ErrNotFound):
		return nil, utils.E(utils.CodeInternal, op, "failed to check existing audition", err)
	}

	qs, err := s.opps.Questions(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, utils.E(utils.CodeNotFound, op, "opportunity has no audition questions", nil)
	}

	snapshot := make([]models.QuestionSnapshot, len(qs))
	for i, q := range qs {
		snapshot[i] = models.QuestionSnapshot{
			ID:               q.ID,
			Prompt:           q.Prompt,
			TimeLimitSeconds: q.TimeLimitSeconds,
			Position:         q.Position,
		}
	}
	rawQs, err := json.Marshal(snapshot)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to encode questions", err)
	}

	now := s.now().UTC()
	deadline := now.Add(time.Duration(s.cfg.GlobalSeconds) * time.Second)
	sessionID := uuid.NewString()
	submissionID := uuid.NewString()

	// the runtime record goes first: if the submission insert then loses a
	// race, the orphan simply expires
	sess := &models.AuditionSession{
		SessionID:      sessionID,
		SubmissionID:   submissionID,
		UserID:         userID,
		OpportunityID:  opportunityID,
		Status:         models.SubmissionInProgress,
		QuestionCount:  len(qs),
		CreatedAt:      now,
		GlobalDeadline: deadline,
		ExpiresAt:      deadline.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}

	sub := &models.Submission{
		ID:             submissionID,
		SessionID:      sessionID,
		UserID:         userID,
		OpportunityID:  opportunityID,
		Status:         models.SubmissionInProgress,
		Questions:      datatypes.JSON(rawQs),
		StartedAt:      now,
		GlobalDeadline: deadline,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			return nil, utils.E(utils.CodeConflict, op, "audition already started for this opportunity", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to create submission", err)
	}

	metrics.SessionEvent("started")
	return &StartedAudition{
		Submission:    sub,
		Session:       sess,
		Questions:     qs,
		GlobalSeconds: s.cfg.GlobalSeconds,
	}, nil
}

func (s *auditionService) Get(ctx context.Context, sessionID string) (*models.AuditionSession, error) {
	const op = "AuditionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	out, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return out, nil
}

// End closes the submission. Answered and skipped counts come from the
// stored answers rather than the client.
func (s *auditionService) End(ctx context.Context, in EndAudition) (*models.Submission, error) {
	const op = "AuditionService.End"

	if in.SessionID == "" || in.UserID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id and user_id are required", nil)
	}
	if in.Status != models.SubmissionCompleted && in.Status != models.SubmissionExpired {
		return nil, utils.E(utils.CodeInvalidArgument, op, "status must be completed or expired", nil)
	}

	sub, err := s.subs.GetBySessionID(ctx, in.SessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get submission", err)
	}
	if sub.UserID != in.UserID {
		return nil, utils.E(utils.CodeForbidden, op, "forbidden", nil)
	}

	answers, err := s.answers.ListBySubmission(ctx, sub.ID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to count answers", err)
	}
	answered := answeredQuestions(answers)

	var snapshot []models.QuestionSnapshot
	_ = json.Unmarshal(sub.Questions, &snapshot)
	skipped := len(snapshot) - answered
	if skipped < 0 {
		skipped = 0
	}

	ended := s.now().UTC()
	duration := in.DurationSeconds
	if duration <= 0 {
		duration = int(ended.Sub(sub.StartedAt) / time.Second)
	}

	err = s.subs.Finish(ctx, sub.ID, pgrepo.Finish{
		Status:          in.Status,
		AnsweredCount:   answered,
		SkippedCount:    skipped,
		DurationSeconds: duration,
		EndedAt:         ended,
	})
	if err != nil {
		if errors.Is(err, utils.ErrConflict) {
			return nil, utils.E(utils.CodeConflict, op, "audition already ended", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to end audition", err)
	}

	// the runtime record expires on its own; a failed update is not fatal
	_ = s.sessions.End(ctx, in.SessionID, in.Status, ended, int64(duration))
	metrics.SessionEvent(in.Status)

	sub.Status = in.Status
	sub.AnsweredCount = answered
	sub.SkippedCount = skipped
	sub.DurationSeconds = duration
	sub.EndedAt = &ended
	return sub, nil
}

// answeredQuestions counts distinct questions; a retried upload may store
// the same question twice.
func answeredQuestions(answers []models.Answer) int {
	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		seen[a.QuestionID] = struct{}{}
	}
	return len(seen)
}
