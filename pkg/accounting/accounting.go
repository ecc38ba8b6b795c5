// Package accounting persists per-request routing metadata: which alias
// was asked for, where it was routed, and how the call went. Prompt and
// response content is never stored; the gateway keeps no conversation
// state.
package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Record is one accounted request.
type Record struct {
	ID        string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`

	Endpoint      string `gorm:"index"`
	Alias         string
	Provider      string `gorm:"index"`
	UpstreamModel string
	Fallback      bool
	Streamed      bool

	// Status is "ok" or the error kind of the failure.
	Status     string
	DurationMS int64

	PromptTokens     int
	CompletionTokens int
}

// TableName keeps the table name stable regardless of struct renames.
func (Record) TableName() string {
	return "requests"
}

// Recorder accepts finished-request records. The transport layer writes
// through this interface so accounting can be switched off entirely.
type Recorder interface {
	Record(ctx context.Context, rec *Record) error
}

// Store is a SQLite-backed Recorder.
type Store struct {
	db *gorm.DB
}

var _ Recorder = (*Store)(nil)

// Open opens (and migrates) the accounting database at path. The
// special path ":memory:" yields an ephemeral store, used in tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening accounting database %s: %w", path, err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrating accounting schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record inserts one finished request. ID and CreatedAt are filled in
// when absent.
func (s *Store) Record(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	var records []Record
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Nop is a Recorder that drops everything, used when accounting is
// disabled.
type Nop struct{}

func (Nop) Record(context.Context, *Record) error { return nil }
