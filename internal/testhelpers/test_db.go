package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/yoockh/audition/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLite has no array type, so the opportunities table is created by hand
// with skills stored as the Postgres array literal.
const opportunitiesDDL = `CREATE TABLE IF NOT EXISTS opportunities (
	id text PRIMARY KEY,
	title text,
	company text,
	description text,
	skills text,
	is_active numeric DEFAULT true,
	created_at datetime
)`

var (
	openSQLite    = func(dsn string) (*gorm.DB, error) { return gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true}) }
	migrateSchema = func(db *gorm.DB) error {
		if err := db.Exec(opportunitiesDDL).Error; err != nil {
			return err
		}
		return db.AutoMigrate(&models.Question{}, &models.Submission{}, &models.Answer{}, &models.Survey{})
	}
)

// SetupTestDB creates an isolated in-memory SQLite database for tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := openSQLite(dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := migrateSchema(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// DropTable removes a table to force repository errors.
func DropTable(t *testing.T, db *gorm.DB, model any) {
	t.Helper()
	if err := db.Migrator().DropTable(model); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}
}
