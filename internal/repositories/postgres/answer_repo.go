package postgres

import (
	"context"
	"time"

	"github.com/yoockh/audition/internal/models"
	"github.com/yoockh/audition/internal/utils"
	"gorm.io/gorm"
)

type AnswerRepository interface {
	Insert(ctx context.Context, a *models.Answer) error
	GetByID(ctx context.Context, id string) (*models.Answer, error)
	ListBySubmission(ctx context.Context, submissionID string) ([]models.Answer, error)
	SetTranscriptStatus(ctx context.Context, id, status string) error
	SaveTranscript(ctx context.Context, id, status, transcript string, confidence float64, at time.Time) error
}

type answerRepo struct {
	db *gorm.DB
}

func NewAnswerRepo(db *gorm.DB) AnswerRepository {
	return &answerRepo{db: db}
}

func (r *answerRepo) Insert(ctx context.Context, a *models.Answer) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *answerRepo) GetByID(ctx context.Context, id string) (*models.Answer, error) {
	var row models.Answer
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *answerRepo) ListBySubmission(ctx context.Context, submissionID string) ([]models.Answer, error) {
	var rows []models.Answer
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("question_index ASC").
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *answerRepo) SetTranscriptStatus(ctx context.Context, id, status string) error {
	return r.update(ctx, id, map[string]any{"transcript_status": status})
}

func (r *answerRepo) SaveTranscript(ctx context.Context, id, status, transcript string, confidence float64, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"transcript_status":     status,
		"transcript":            transcript,
		"transcript_confidence": confidence,
		"transcribed_at":        at.UTC(),
	})
}

func (r *answerRepo) update(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Answer{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}
