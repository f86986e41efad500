package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options describes how to reach the embedded store file
type Options struct {
	Path        string
	BusyTimeout time.Duration
	Debug       bool
}

// DB wraps gorm.DB for one short-lived store handle
type DB struct {
	*gorm.DB
}

// DSN builds the driver connection string. Timestamps are written in the
// sqlite text format so range comparisons stay lexical.
func DSN(path string, busyTimeout time.Duration) string {
	return fmt.Sprintf(
		"%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_time_format=sqlite",
		path,
		busyTimeout.Milliseconds(),
	)
}

// Connect opens a handle on the store file, creating its directory if needed
func Connect(opts Options) (*DB, error) {
	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	logLevel := logger.Silent
	if opts.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(DSN(opts.Path, opts.BusyTimeout)), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access store handle: %w", err)
	}
	// One connection per handle; the handle itself is the unit of sharing.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return &DB{DB: db}, nil
}

// Close releases the underlying connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// QuickCheck runs the sqlite structural consistency check and returns the
// reported problems. An empty slice means the store is consistent.
func (db *DB) QuickCheck() ([]string, error) {
	rows, err := db.Raw("PRAGMA quick_check").Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	return problems, rows.Err()
}

// SnapshotTo writes a transactionally consistent copy of the store to dst
func (db *DB) SnapshotTo(dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	// VACUUM INTO refuses to overwrite an existing file
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return db.Exec("VACUUM INTO ?", dst).Error
}
