package config

import "errors"

const (
	// EnginePostgres selects gorm's postgres driver.
	EnginePostgres = "postgres"
	// EngineSQLite selects the pure Go sqlite driver.
	EngineSQLite = "sqlite"
)

var (
	// ErrPortCanNotBeZero error if PORT is 0.
	ErrPortCanNotBeZero = errors.New("PORT can not be 0")

	// ErrEmptyDatabaseURL error if DATABASE_URL is empty.
	ErrEmptyDatabaseURL = errors.New("DATABASE_URL can not be empty")

	// ErrUnknownDBEngine error if DB_ENGINE is neither postgres nor sqlite.
	ErrUnknownDBEngine = errors.New("DB_ENGINE must be postgres or sqlite")

	// ErrNoTokenVerifier error if neither AUTH_ISSUER nor JWT_SECRET is set.
	ErrNoTokenVerifier = errors.New("either AUTH_ISSUER or JWT_SECRET must be set")
)
