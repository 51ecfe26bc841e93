package models

import (
	"time"

	"github.com/lib/pq"
)

type Opportunity struct {
	ID          string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"column:title;type:text" json:"title"`
	Company     string         `gorm:"column:company;type:text" json:"company"`
	Description string         `gorm:"column:description;type:text" json:"description"`
	Skills      pq.StringArray `gorm:"column:skills;type:text[]" json:"skills"`
	IsActive    bool           `gorm:"column:is_active" json:"is_active"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Opportunity) TableName() string { return "opportunities" }

type Question struct {
	ID               string `gorm:"column:id;type:text;primaryKey" json:"id"`
	OpportunityID    string `gorm:"column:opportunity_id;type:uuid;index:idx_questions_opp_position,priority:1" json:"opportunity_id"`
	DimensionKey     string `gorm:"column:dimension_key;type:text" json:"dimension_key"`
	Type             string `gorm:"column:type;type:text" json:"type"` // behavioral|technical|reading
	Prompt           string `gorm:"column:prompt;type:text" json:"prompt"`
	TimeLimitSeconds int    `gorm:"column:time_limit_seconds;type:integer" json:"time_limit_seconds"`
	Position         int    `gorm:"column:position;type:integer;index:idx_questions_opp_position,priority:2" json:"position"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Question) TableName() string { return "audition_questions" }
