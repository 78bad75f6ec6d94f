// Package store provides the durable gorm/SQLite persistence layer. All
// mutating operations participate in a caller-supplied transaction scope
// (one unit of work); none commit independently.
package store

import (
	"context"
	"strings"

	"statement-reconciliation-service/internal/models"
	"statement-reconciliation-service/pkg/errors"
	"statement-reconciliation-service/pkg/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store wraps the database handle and the per-account lock registry.
type Store struct {
	db    *gorm.DB
	locks *lockRegistry
	log   logger.Logger
}

// Open opens (or creates) the SQLite database at path, applies WAL mode
// and migrates the schema. Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") && dsn != ":memory:" {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.PersistenceError(errors.CodeTxBegin, "open database", err)
	}

	if err := db.AutoMigrate(
		&models.Client{},
		&models.AccountStatement{},
		&models.Transaction{},
		&models.Check{},
		&models.Summary{},
		&models.KnowledgeEntry{},
	); err != nil {
		return nil, errors.PersistenceError(errors.CodeWriteError, "migrate schema", err)
	}

	return &Store{
		db:    db,
		locks: newLockRegistry(),
		log:   logger.WithComponent("store"),
	}, nil
}

// DB exposes the underlying handle for read-only queries outside a unit
// of work.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithinTx runs fn inside a single unit of work. Any error (or context
// cancellation) rolls back every write made by fn; nothing is visible
// until commit.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// LockAccount acquires the mutation lock for one account statement,
// blocking up to the context deadline. The returned release function must
// be called after the unit of work commits or rolls back.
//
// SQLite has no SELECT ... FOR UPDATE; this registry is the row-lock
// equivalent that serializes concurrent edits to the same statement.
// Different accounts proceed fully in parallel.
func (s *Store) LockAccount(ctx context.Context, accountID uint) (func(), error) {
	release, err := s.locks.acquire(ctx, accountID)
	if err != nil {
		s.log.WithField("account_id", accountID).Warn("Account lock wait timed out")
		return nil, errors.LockTimeout(accountID, err)
	}
	return release, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
