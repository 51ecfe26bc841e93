package postgres

import (
	"context"

	"github.com/yoockh/audition/internal/models"
	"gorm.io/gorm"
)

type SurveyRepository interface {
	Insert(ctx context.Context, s *models.Survey) error
	GetBySubmission(ctx context.Context, submissionID string) (*models.Survey, error)
}

type surveyRepo struct {
	db *gorm.DB
}

func NewSurveyRepo(db *gorm.DB) SurveyRepository {
	return &surveyRepo{db: db}
}

// Insert fails with utils.ErrConflict when the submission already has feedback.
func (r *surveyRepo) Insert(ctx context.Context, s *models.Survey) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *surveyRepo) GetBySubmission(ctx context.Context, submissionID string) (*models.Survey, error) {
	var row models.Survey
	err := r.db.WithContext(ctx).Where("submission_id = ?", submissionID).Take(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}
