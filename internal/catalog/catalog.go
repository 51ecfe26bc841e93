// Package catalog loads the opportunity and question bank from YAML and
// writes it to the database.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lib/pq"
	"gopkg.in/yaml.v3"

	"github.com/yoockh/audition/internal/audition"
	"github.com/yoockh/audition/internal/models"
)

type Catalog struct {
	Opportunities []Opportunity `yaml:"opportunities"`
}

type Opportunity struct {
	ID          string     `yaml:"id"`
	Title       string     `yaml:"title"`
	Company     string     `yaml:"company"`
	Description string     `yaml:"description"`
	Skills      []string   `yaml:"skills"`
	Active      *bool      `yaml:"active"` // default true
	Questions   []Question `yaml:"questions"`
}

type Question struct {
	ID               string `yaml:"id"`
	DimensionKey     string `yaml:"dimension_key"`
	Type             string `yaml:"type"`
	Prompt           string `yaml:"prompt"`
	TimeLimitSeconds int    `yaml:"time_limit_seconds"`
	Position         int    `yaml:"position"`
}

var questionTypes = map[string]bool{"behavioral": true, "technical": true, "reading": true}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes, fills defaults and validates.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) applyDefaults() {
	for i := range c.Opportunities {
		o := &c.Opportunities[i]
		for j := range o.Questions {
			q := &o.Questions[j]
			if q.TimeLimitSeconds <= 0 {
				q.TimeLimitSeconds = audition.DefaultHardLimitSeconds
			}
			if q.Position == 0 {
				q.Position = j + 1
			}
			q.Type = strings.ToLower(strings.TrimSpace(q.Type))
			if q.Type == "" {
				q.Type = "behavioral"
			}
		}
	}
}

// Validate reports every problem at once. Question ids are global since
// they key the question table.
func (c *Catalog) Validate() error {
	var errs []error
	if len(c.Opportunities) == 0 {
		errs = append(errs, errors.New("no opportunities"))
	}
	oppIDs := map[string]bool{}
	qIDs := map[string]string{}
	for i, o := range c.Opportunities {
		if o.ID == "" {
			errs = append(errs, fmt.Errorf("opportunity %d: id is required", i))
			continue
		}
		if oppIDs[o.ID] {
			errs = append(errs, fmt.Errorf("opportunity %s: duplicate id", o.ID))
		}
		oppIDs[o.ID] = true
		if o.Title == "" {
			errs = append(errs, fmt.Errorf("opportunity %s: title is required", o.ID))
		}
		if len(o.Questions) == 0 {
			errs = append(errs, fmt.Errorf("opportunity %s: at least one question is required", o.ID))
		}
		for j, q := range o.Questions {
			switch {
			case q.ID == "":
				errs = append(errs, fmt.Errorf("opportunity %s question %d: id is required", o.ID, j))
			case qIDs[q.ID] != "":
				errs = append(errs, fmt.Errorf("question %s: also used by opportunity %s", q.ID, qIDs[q.ID]))
			default:
				qIDs[q.ID] = o.ID
			}
			if strings.TrimSpace(q.Prompt) == "" {
				errs = append(errs, fmt.Errorf("question %s: prompt is required", q.ID))
			}
			if !questionTypes[q.Type] {
				errs = append(errs, fmt.Errorf("question %s: unknown type %q", q.ID, q.Type))
			}
		}
	}
	return errors.Join(errs...)
}

// Store is what Apply writes through.
type Store interface {
	Upsert(ctx context.Context, o *models.Opportunity) error
	ReplaceQuestions(ctx context.Context, opportunityID string, qs []models.Question) error
}

type Invalidator interface {
	InvalidateQuestions(ctx context.Context, opportunityID string) error
}

type Stats struct {
	Opportunities int
	Questions     int
}

// Apply upserts every opportunity and replaces its question set. inv may be
// nil.
func Apply(ctx context.Context, c *Catalog, store Store, inv Invalidator) (Stats, error) {
	var st Stats
	now := time.Now().UTC()
	for _, o := range c.Opportunities {
		active := true
		if o.Active != nil {
			active = *o.Active
		}
		row := &models.Opportunity{
			ID:          o.ID,
			Title:       o.Title,
			Company:     o.Company,
			Description: strings.TrimSpace(o.Description),
			Skills:      pq.StringArray(o.Skills),
			IsActive:    active,
			CreatedAt:   now,
		}
		if err := store.Upsert(ctx, row); err != nil {
			return st, fmt.Errorf("upsert opportunity %s: %w", o.ID, err)
		}

		qs := make([]models.Question, len(o.Questions))
		for i, q := range o.Questions {
			qs[i] = models.Question{
				ID:               q.ID,
				OpportunityID:    o.ID,
				DimensionKey:     q.DimensionKey,
				Type:             q.Type,
				Prompt:           strings.TrimSpace(q.Prompt),
				TimeLimitSeconds: q.TimeLimitSeconds,
				Position:         q.Position,
				CreatedAt:        now,
			}
		}
		if err := store.ReplaceQuestions(ctx, o.ID, qs); err != nil {
			return st, fmt.Errorf("replace questions of %s: %w", o.ID, err)
		}
		if inv != nil {
			if err := inv.InvalidateQuestions(ctx, o.ID); err != nil {
				return st, fmt.Errorf("invalidate cache of %s: %w", o.ID, err)
			}
		}
		st.Opportunities++
		st.Questions += len(qs)
	}
	return st, nil
}
