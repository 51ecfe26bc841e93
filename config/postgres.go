package config

import (
	"time"

	"github.com/yoockh/audition/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewPostgres(uri string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(uri), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection Pooling settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// Migrate creates or updates the audition tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Opportunity{},
		&models.Question{},
		&models.Submission{},
		&models.Answer{},
		&models.Survey{},
	)
}
