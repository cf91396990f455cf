// Package store implements the durable flat store shared by all
// sessions: a handful of key-addressed JSON documents persisted in
// SQLite. Every read returns the whole document; every write replaces
// it. A per-document version counter turns the classic read-modify-
// write races between uncoordinated sessions into detectable conflicts
// instead of silent lost updates.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Document keys for the shared tables. The names match the layout the
// original browser clients wrote, so existing exports stay readable.
const (
	KeyUsers     = "spark_users_db"
	KeyMessages  = "spark_global_messages_v1"
	KeyAuthGuard = "spark_auth_guard"
)

// ErrConflict is returned by CompareAndSwap when the stored version no
// longer matches the version the caller read. Callers retry the whole
// read-modify-write cycle.
var ErrConflict = errors.New("store: version conflict")

// document is one key-addressed JSON value plus its CAS version.
type document struct {
	Key     string `gorm:"type:TEXT NOT NULL;primaryKey"`
	Value   string `gorm:"type:TEXT NOT NULL"`
	Version int64  `gorm:"type:INTEGER NOT NULL"`
}

func (document) TableName() string { return "documents" }

// Store is a key-value JSON document store. It is safe for concurrent
// use by multiple sessions sharing the same database file.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the backing SQLite database, applies the
// usual PRAGMAs, and migrates the documents and idempotency tables.
func Open(path string, extra ...any) (*Store, error) {
	// Fail early if the parent directory does not exist instead of a
	// cryptic driver error later.
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	models := append([]any{&document{}}, extra...)
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying GORM handle for tables that live beside
// the documents (idempotency records, tracing plugin installation).
func (s *Store) DB() *gorm.DB { return s.db }

// Close closes the underlying database connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get unmarshals the document at key into out and returns its version.
// An absent key leaves out untouched and returns version 0. A document
// that fails to parse is treated as absent: the store recovers by
// pretending the table is empty, which matches how earlier clients
// handled a corrupted localStorage entry.
func (s *Store) Get(key string, out any) (int64, error) {
	var doc document
	err := s.db.Where("key = ?", key).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal([]byte(doc.Value), out); err != nil {
		log.Warn().Str("key", key).Err(err).Msg("store: malformed document, treating as empty")
		return doc.Version, nil
	}
	return doc.Version, nil
}

// Put unconditionally replaces the document at key, bumping its
// version. Prefer CompareAndSwap for read-modify-write cycles.
func (s *Store) Put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var doc document
		err := tx.Where("key = ?", key).First(&doc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&document{Key: key, Value: string(raw), Version: 1}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&document{}).Where("key = ?", key).
			Updates(map[string]any{"value": string(raw), "version": doc.Version + 1}).Error
	})
}

// CompareAndSwap replaces the document at key only if its stored
// version still equals version (0 meaning "does not exist yet").
// On mismatch it returns ErrConflict and writes nothing.
func (s *Store) CompareAndSwap(key string, v any, version int64) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if version == 0 {
		err := s.db.Create(&document{Key: key, Value: string(raw), Version: 1}).Error
		if err != nil && isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	res := s.db.Model(&document{}).
		Where("key = ? AND version = ?", key, version).
		Updates(map[string]any{"value": string(raw), "version": version + 1})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// Delete removes the document at key. Removing an absent key is a
// no-op.
func (s *Store) Delete(key string) error {
	return s.db.Where("key = ?", key).Delete(&document{}).Error
}

// isUniqueViolation detects a primary-key collision across the error
// shapes the pure-Go sqlite driver produces.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
