package database

import (
	"fmt"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var memCounter atomic.Int64

// OpenMemory opens a fresh, migrated, shared-cache in-memory SQLite database.
// Each call gets its own database so tests never see each other's rows.
func OpenMemory() (*gorm.DB, error) {
	name := fmt.Sprintf("file:kestrel_mem_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", memCounter.Add(1))

	db, err := Open(sqlite.Open(name))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// one connection keeps the shared in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	if err = Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}
