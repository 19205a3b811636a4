package database

import (
	"fmt"
	"strings"
	"telenotes/cmd/internal/domain/entity"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the database pointed by dsn and brings the schema up to date.
//
// URLs starting with postgres:// or postgresql:// (including the
// postgresql+asyncpg:// form) use the postgres driver, anything else is
// treated as a SQLite file path (":memory:" included).
func Open(dsn string, debug bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	pg := IsPostgres(dsn)
	var dialector gorm.Dialector
	if pg {
		dialector = postgres.Open(normalizePostgresURL(dsn))
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL DB: %w", err)
	}

	if pg {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	} else {
		// SQLite allows a single writer; in-memory databases also vanish
		// once their only connection is closed.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err = Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the users, notes, tags and note_tag tables.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&entity.Note{}, "Tags", &entity.NoteTag{}); err != nil {
		return fmt.Errorf("failed to set up note_tag join table: %w", err)
	}

	err := db.AutoMigrate(&entity.User{}, &entity.Tag{}, &entity.Note{}, &entity.NoteTag{})
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.HasPrefix(dsn, "postgresql+")
}

// normalizePostgresURL strips driver suffixes such as "+asyncpg" from the scheme.
func normalizePostgresURL(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	if base, _, found := strings.Cut(scheme, "+"); found {
		scheme = base
	}
	return scheme + "://" + rest
}
