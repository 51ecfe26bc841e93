package services

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/audition/internal/models"
	pgrepo "github.com/yoockh/audition/internal/repositories/postgres"
	"github.com/yoockh/audition/internal/storage"
	"github.com/yoockh/audition/internal/utils"
)

// ReviewService serves recruiters reading finished auditions.
type ReviewService interface {
	ListSubmissions(ctx context.Context, opportunityID string, limit int) ([]SubmissionReview, error)
}

type SubmissionReview struct {
	*models.Submission
	Answers []AnswerReview `json:"answers"`
	Survey  *models.Survey `json:"survey,omitempty"`
}

type AnswerReview struct {
	models.Answer
	AudioURL string `json:"audio_url,omitempty"`
}

type reviewService struct {
	subs      pgrepo.SubmissionRepository
	surveys   pgrepo.SurveyRepository
	signer    storage.Signer
	urlExpiry time.Duration
}

func NewReviewService(subs pgrepo.SubmissionRepository, surveys pgrepo.SurveyRepository, signer storage.Signer, urlExpiry time.Duration) ReviewService {
	if urlExpiry <= 0 {
		urlExpiry = 15 * time.Minute
	}
	return &reviewService{subs: subs, surveys: surveys, signer: signer, urlExpiry: urlExpiry}
}

func (s *reviewService) ListSubmissions(ctx context.Context, opportunityID string, limit int) ([]SubmissionReview, error) {
	const op = "ReviewService.ListSubmissions"

	if opportunityID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "opportunity_id is required", nil)
	}

	rows, err := s.subs.ListByOpportunity(ctx, opportunityID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list submissions", err)
	}

	out := make([]SubmissionReview, 0, len(rows))
	for i := range rows {
		sub := &rows[i]
		r := SubmissionReview{Submission: sub, Answers: make([]AnswerReview, 0, len(sub.Answers))}
		for _, a := range sub.Answers {
			// unsigned answers still list; the audio link is just missing
			url, _ := s.signer.SignedGetURL(ctx, a.AudioPath, s.urlExpiry)
			r.Answers = append(r.Answers, AnswerReview{Answer: a, AudioURL: url})
		}

		sv, err := s.surveys.GetBySubmission(ctx, sub.ID)
		switch {
		case err == nil:
			r.Survey = sv
		case !errors.Is(err, utils.ErrNotFound):
			return nil, utils.E(utils.CodeInternal, op, "failed to load feedback", err)
		}
		out = append(out, r)
	}
	return out, nil
}
