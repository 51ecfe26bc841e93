package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yoockh/audition/internal/models"
	pgrepo "github.com/yoockh/audition/internal/repositories/postgres"
	"github.com/yoockh/audition/internal/utils"
)

const maxReasonRunes = 2000

type SurveyService interface {
	Submit(ctx context.Context, in SubmitSurvey) (*models.Survey, error)
}

// SubmitSurvey identifies the audition by either id.
type SubmitSurvey struct {
	SessionID    string
	SubmissionID string
	UserID       string
	Rating       int
	Reason       string
}

type surveyService struct {
	subs    pgrepo.SubmissionRepository
	surveys pgrepo.SurveyRepository
}

func NewSurveyService(subs pgrepo.SubmissionRepository, surveys pgrepo.SurveyRepository) SurveyService {
	return &surveyService{subs: subs, surveys: surveys}
}

func (s *surveyService) Submit(ctx context.Context, in SubmitSurvey) (*models.Survey, error) {
	const op = "SurveyService.Submit"

	if in.UserID == "" || (in.SessionID == "" && in.SubmissionID == "") {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and session_id or submission_id are required", nil)
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "rating must be between 1 and 5", nil)
	}
	reason := strings.TrimSpace(in.Reason)
	if utf8.RuneCountInString(reason) > maxReasonRunes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "reason is too long", nil)
	}

	var (
		sub *models.Submission
		err error
	)
	if in.SubmissionID != "" {
		sub, err = s.subs.GetByID(ctx, in.SubmissionID)
	} else {
		sub, err = s.subs.GetBySessionID(ctx, in.SessionID)
	}
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "audition not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get submission", err)
	}
	if sub.UserID != in.UserID {
		return nil, utils.E(utils.CodeForbidden, op, "forbidden", nil)
	}

	row := &models.Survey{
		ID:           uuid.NewString(),
		SubmissionID: sub.ID,
		UserID:       in.UserID,
		Rating:       in.Rating,
		Reason:       reason,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.surveys.Insert(ctx, row); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			return nil, utils.E(utils.CodeConflict, op, "feedback already submitted", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to save feedback", err)
	}
	return row, nil
}
