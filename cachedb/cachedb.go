// Package cachedb is a small SQLite-backed index that remembers which
// fingerprints this host has already verified as present in the local
// image store. It is never a source of truth: the engine confirms every
// entry it finds with a real `image inspect` before reporting a cache hit,
// and a miss, a stale entry, or a corrupt database all just fall through
// to that same check.
package cachedb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"
)

// DB wraps the accelerator's SQLite connection.
type DB struct {
	sql *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// migrates it to the current schema.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache index: %w", err)
	}

	if _, err := sqlDB.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if err := migrateSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &DB{sql: sqlDB}, nil
}

func migrateSchema(sqlDB *sql.DB) error {
	driver, err := sqlitemigrate.WithInstance(sqlDB, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("building migration driver: %w", err)
	}

	source, err := migrationSource()
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("building migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Entry is a single accelerator record.
type Entry struct {
	Fingerprint    string
	ImageRef       string
	LastVerifiedAt time.Time
}

// Get returns the entry for fingerprint, if one exists and it hasn't
// expired against maxAge.
func (d *DB) Get(ctx context.Context, fingerprint string, maxAge time.Duration) (Entry, bool, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT image_ref, last_verified_at FROM fingerprint_index WHERE fingerprint = ?`,
		fingerprint,
	)

	var e Entry
	var lastVerified int64
	switch err := row.Scan(&e.ImageRef, &lastVerified); err {
	case nil:
	case sql.ErrNoRows:
		return Entry{}, false, nil
	default:
		return Entry{}, false, fmt.Errorf("reading cache index: %w", err)
	}

	e.Fingerprint = fingerprint
	e.LastVerifiedAt = time.Unix(lastVerified, 0)
	if maxAge > 0 && time.Since(e.LastVerifiedAt) > maxAge {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Put upserts an entry, recording that fingerprint was just verified
// present as imageRef.
func (d *DB) Put(ctx context.Context, fingerprint, imageRef string, verifiedAt time.Time) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO fingerprint_index (fingerprint, image_ref, last_verified_at)
		VALUES (?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			image_ref = excluded.image_ref,
			last_verified_at = excluded.last_verified_at
	`, fingerprint, imageRef, verifiedAt.Unix())
	if err != nil {
		return fmt.Errorf("writing cache index: %w", err)
	}
	return nil
}

// Forget removes an entry, used when the engine learns a fingerprint the
// index believed present no longer is.
func (d *DB) Forget(ctx context.Context, fingerprint string) error {
	_, err := d.sql.ExecContext(ctx, `DELETE FROM fingerprint_index WHERE fingerprint = ?`, fingerprint)
	if err != nil {
		return fmt.Errorf("forgetting cache index entry: %w", err)
	}
	return nil
}
