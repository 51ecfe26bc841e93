package cache

import (
	"context"
	"fmt"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

func QuestionsKey(opportunityID string) string {
	return fmt.Sprintf("opportunity:%s:questions", opportunityID)
}

func OpportunityKey(opportunityID string) string {
	return fmt.Sprintf("opportunity:%s", opportunityID)
}
