package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/audition/internal/models"
	"github.com/yoockh/audition/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const AuditionSessionsCollection = "audition_sessions"

type AuditionSessionRepository interface {
	Create(ctx context.Context, s *models.AuditionSession) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.AuditionSession, error)
	RecordAnswer(ctx context.Context, sessionID string, a models.SessionAnswer) error
	End(ctx context.Context, sessionID, status string, endedAt time.Time, durationSeconds int64) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.AuditionSession, error)
}

type auditionSessionRepo struct {
	col *mongo.Collection
}

func NewAuditionSessionRepo(db *mongo.Database) AuditionSessionRepository {
	return &auditionSessionRepo{col: db.Collection(AuditionSessionsCollection)}
}

func (r *auditionSessionRepo) Create(ctx context.Context, s *models.AuditionSession) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, s)
	if mongo.IsDuplicateKeyError(err) {
		return utils.ErrConflict
	}
	return err
}

func (r *auditionSessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.AuditionSession, error) {
	var s models.AuditionSession
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

// RecordAnswer appends an uploaded answer and moves current_index past it.
// current_index never moves backwards.
func (r *auditionSessionRepo) RecordAnswer(ctx context.Context, sessionID string, a models.SessionAnswer) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{
			"$push": bson.M{"answers": a},
			"$max":  bson.M{"current_index": a.QuestionIndex + 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *auditionSessionRepo) End(ctx context.Context, sessionID, status string, endedAt time.Time, durationSeconds int64) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			"status":           status,
			"ended_at":         endedAt.UTC(),
			"duration_seconds": durationSeconds,
		}},
	)
	return err
}

func (r *auditionSessionRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.AuditionSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.AuditionSession
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
