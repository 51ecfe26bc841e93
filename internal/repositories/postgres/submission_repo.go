package postgres

import (
	"context"
	"time"

	"github.com/yoockh/audition/internal/models"
	"github.com/yoockh/audition/internal/utils"
	"gorm.io/gorm"
)

type SubmissionRepository interface {
	Create(ctx context.Context, s *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Submission, error)
	GetByUserOpportunity(ctx context.Context, userID, opportunityID string) (*models.Submission, error)
	Finish(ctx context.Context, id string, f Finish) error
	ListByOpportunity(ctx context.Context, opportunityID string, limit int) ([]models.Submission, error)
}

// Finish is the closing update of a submission.
type Finish struct {
	Status          string
	AnsweredCount   int
	SkippedCount    int
	DurationSeconds int
	EndedAt         time.Time
}

type submissionRepo struct {
	db *gorm.DB
}

func NewSubmissionRepo(db *gorm.DB) SubmissionRepository {
	return &submissionRepo{db: db}
}

// Create fails with utils.ErrConflict when the user already has a submission
// for the opportunity.
func (r *submissionRepo) Create(ctx context.Context, s *models.Submission) error {
	return translate(r.db.WithContext(ctx).Omit("Answers").Create(s).Error)
}

func (r *submissionRepo) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	return r.take(ctx, "id = ?", id)
}

func (r *submissionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.Submission, error) {
	return r.take(ctx, "session_id = ?", sessionID)
}

func (r *submissionRepo) GetByUserOpportunity(ctx context.Context, userID, opportunityID string) (*models.Submission, error) {
	return r.take(ctx, "user_id = ? AND opportunity_id = ?", userID, opportunityID)
}

func (r *submissionRepo) take(ctx context.Context, where string, args ...any) (*models.Submission, error) {
	var row models.Submission
	err := r.db.WithContext(ctx).Where(where, args...).Take(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

// Finish closes an in-progress submission. A submission that was already
// closed is left untouched and utils.ErrConflict is returned.
func (r *submissionRepo) Finish(ctx context.Context, id string, f Finish) error {
	res := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status = ?", id, models.SubmissionInProgress).
		Updates(map[string]any{
			"status":           f.Status,
			"answered_count":   f.AnsweredCount,
			"skipped_count":    f.SkippedCount,
			"duration_seconds": f.DurationSeconds,
			"ended_at":         f.EndedAt.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return utils.ErrConflict
	}
	return nil
}

func (r *submissionRepo) ListByOpportunity(ctx context.Context, opportunityID string, limit int) ([]models.Submission, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.Submission
	err := r.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_index ASC")
		}).
		Where("opportunity_id = ?", opportunityID).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
