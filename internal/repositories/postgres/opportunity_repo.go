package postgres

import (
	"context"

	"github.com/yoockh/audition/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OpportunityRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.Opportunity, error)
	GetByID(ctx context.Context, id string) (*models.Opportunity, error)
	Questions(ctx context.Context, opportunityID string) ([]models.Question, error)
	Upsert(ctx context.Context, o *models.Opportunity) error
	ReplaceQuestions(ctx context.Context, opportunityID string, qs []models.Question) error
}

type opportunityRepo struct {
	db *gorm.DB
}

func NewOpportunityRepo(db *gorm.DB) OpportunityRepository {
	return &opportunityRepo{db: db}
}

func (r *opportunityRepo) List(ctx context.Context, activeOnly bool) ([]models.Opportunity, error) {
	var rows []models.Opportunity
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (r *opportunityRepo) GetByID(ctx context.Context, id string) (*models.Opportunity, error) {
	var row models.Opportunity
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

// Questions returns the opportunity's questions in presentation order.
func (r *opportunityRepo) Questions(ctx context.Context, opportunityID string) ([]models.Question, error) {
	var rows []models.Question
	err := r.db.WithContext(ctx).
		Where("opportunity_id = ?", opportunityID).
		Order("position ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *opportunityRepo) Upsert(ctx context.Context, o *models.Opportunity) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "company", "description", "skills", "is_active"}),
		}).
		Create(o).Error
}

func (r *opportunityRepo) ReplaceQuestions(ctx context.Context, opportunityID string, qs []models.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("opportunity_id = ?", opportunityID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		if len(qs) == 0 {
			return nil
		}
		for i := range qs {
			qs[i].OpportunityID = opportunityID
		}
		return translate(tx.Create(&qs).Error)
	})
}
