// Package sqlite provides a key-value backend stored in a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync/atomic"

	"github.com/dekarrin/sms"

	_ "modernc.org/sqlite"
)

// DBFilename is the name of the database file created in the data directory.
const DBFilename = "sms.db"

// Store is a key-value store backed by a single SQLite table. It is safe for
// concurrent use.
//
// Its zero-value should not be used; call Open to get a Store ready for use.
type Store struct {
	DB *sql.DB

	closed atomic.Bool
}

// Open opens the SQLite database in storageDir, creating it and its table if
// they do not already exist.
func Open(storageDir string) (*Store, error) {
	fileName := filepath.Join(storageDir, DBFilename)

	db, err := sql.Open("sqlite", fileName)
	if err != nil {
		return nil, sms.WrapStorageError(err)
	}

	st := &Store{DB: db}
	if err := st.init(); err != nil {
		db.Close()
		return nil, err
	}

	return st, nil
}

func (s *Store) init() error {
	_, err := s.DB.Exec(`CREATE TABLE IF NOT EXISTS items (
		key TEXT NOT NULL PRIMARY KEY,
		value TEXT NOT NULL
	);`)
	if err != nil {
		return sms.WrapStorageError(err, "create table")
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, sms.WrapStorageError(sms.ErrClosed)
	}

	var value string
	row := s.DB.QueryRowContext(ctx, `SELECT value FROM items WHERE key = ?;`, key)
	err := row.Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, sms.WrapStorageErrorf(err, "get %q", key)
	}

	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if s.closed.Load() {
		return sms.WrapStorageError(sms.ErrClosed)
	}

	_, err := s.DB.ExecContext(ctx, `INSERT INTO items (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
		key,
		value,
	)
	if err != nil {
		return sms.WrapStorageErrorf(err, "set %q", key)
	}

	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if s.closed.Load() {
		return sms.WrapStorageError(sms.ErrClosed)
	}

	_, err := s.DB.ExecContext(ctx, `DELETE FROM items WHERE key = ?;`, key)
	if err != nil {
		return sms.WrapStorageErrorf(err, "remove %q", key)
	}

	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, sms.WrapStorageError(sms.ErrClosed)
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT key FROM items ORDER BY key;`)
	if err != nil {
		return nil, sms.WrapStorageError(err, "list keys")
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, sms.WrapStorageError(err, "list keys")
		}
		keys = append(keys, k)
	}

	if err := rows.Err(); err != nil {
		return keys, sms.WrapStorageError(err, "list keys")
	}

	return keys, nil
}

// Close closes the underlying database. Calling Close more than once has no
// effect.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	if err := s.DB.Close(); err != nil {
		return sms.WrapStorageError(err, DBFilename)
	}
	return nil
}
