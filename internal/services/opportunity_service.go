package services

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/audition/internal/cache"
	"github.com/yoockh/audition/internal/models"
	pgrepo "github.com/yoockh/audition/internal/repositories/postgres"
	"github.com/yoockh/audition/internal/utils"
)

type OpportunityService interface {
	List(ctx context.Context) ([]models.Opportunity, error)
	Get(ctx context.Context, id string) (*models.Opportunity, error)
	Questions(ctx context.Context, opportunityID string) ([]models.Question, error)
	InvalidateQuestions(ctx context.Context, opportunityID string) error
}

type opportunityService struct {
	repo     pgrepo.OpportunityRepository
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewOpportunityService caches question lists for cacheTTL. c may be nil.
func NewOpportunityService(repo pgrepo.OpportunityRepository, c cache.Cache, cacheTTL time.Duration) OpportunityService {
	return &opportunityService{repo: repo, cache: c, cacheTTL: cacheTTL}
}

func (s *opportunityService) List(ctx context.Context) ([]models.Opportunity, error) {
	const op = "OpportunityService.List"

	rows, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list opportunities", err)
	}
	if rows == nil {
		rows = []models.Opportunity{}
	}
	return rows, nil
}

func (s *opportunityService) Get(ctx context.Context, id string) (*models.Opportunity, error) {
	const op = "OpportunityService.Get"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "opportunity id is required", nil)
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "opportunity not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get opportunity", err)
	}
	return o, nil
}

// Questions returns the ordered question list, read through the cache.
func (s *opportunityService) Questions(ctx context.Context, opportunityID string) ([]models.Question, error) {
	const op = "OpportunityService.Questions"

	if opportunityID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "opportunity id is required", nil)
	}

	key := cache.QuestionsKey(opportunityID)
	if s.cache != nil {
		var cached []models.Question
		if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	if _, err := s.Get(ctx, opportunityID); err != nil {
		return nil, err
	}
	qs, err := s.repo.Questions(ctx, opportunityID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load questions", err)
	}
	if qs == nil {
		qs = []models.Question{}
	}

	if s.cache != nil && len(qs) > 0 {
		_ = s.cache.SetJSON(ctx, key, qs, s.cacheTTL)
	}
	return qs, nil
}

func (s *opportunityService) InvalidateQuestions(ctx context.Context, opportunityID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, cache.QuestionsKey(opportunityID))
}
