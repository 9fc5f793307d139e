package database

import (
	stdlog "log"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kestrel/backend/internal/config"
	"kestrel/backend/internal/models"
)

// Connect opens the database for the configured engine and runs migrations.
func Connect(engine, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch engine {
	case config.EnginePostgres:
		dialector = postgres.Open(dsn)
	case config.EngineSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, config.ErrUnknownDBEngine
	}

	db, err := Open(dialector)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	log.Info().Str("engine", engine).Msg("database connection established")

	if err = Migrate(db); err != nil {
		return nil, err
	}

	log.Info().Msg("database migrated successfully")

	return db, nil
}

// Open opens a gorm session with duplicate-key translation and zerolog backed SQL logging.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	gormLogger := logger.New(
		stdlog.New(log.Logger.Level(zerolog.WarnLevel), "", 0),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	return gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	return nil
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()

	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
