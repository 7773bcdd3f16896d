package db

import (
	"database/sql"
	"errors"
	"fmt"

	"itsite/crypto"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a sqlite-backed key/value table standing in for the browser's
// persisted storage. When a key is configured, values are sealed with AES-GCM.
type Store struct {
	DB  *sql.DB
	key []byte
}

// ErrSealed is returned when a stored value cannot be opened with the configured key.
var ErrSealed = errors.New("stored value cannot be unsealed")

// Open creates or opens the database at dataSourceName. key may be nil to store values in clear.
func Open(dataSourceName string, key []byte) (*Store, error) {
	conn, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway; one connection keeps :memory: databases shared.
	conn.SetMaxOpenConns(1)

	createTables := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := conn.Exec(createTables); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &Store{DB: conn, key: key}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// querier is what Get and Set need from either the pool or a transaction.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

// Get returns the value stored under key; ok is false when there is none.
func (s *Store) Get(key string) (string, bool, error) {
	return s.get(s.DB, key)
}

func (s *Store) Set(key, value string) error {
	return s.set(s.DB, key, value)
}

// Update rewrites key inside one transaction, so concurrent updates of the same
// key never lose each other's changes. A value that cannot be unsealed is
// handed to fn as absent.
func (s *Store) Update(key string, fn func(current string, found bool) (string, error)) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("updating %s: %w", key, err)
	}
	defer tx.Rollback()

	current, found, err := s.get(tx, key)
	if errors.Is(err, ErrSealed) {
		current, found = "", false
	} else if err != nil {
		return err
	}

	next, err := fn(current, found)
	if err != nil {
		return err
	}
	if err := s.set(tx, key, next); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("updating %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(q querier, key string) (string, bool, error) {
	var value string
	err := q.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}

	if s.key != nil {
		plain, err := crypto.Decrypt(value, s.key)
		if err != nil {
			return "", false, fmt.Errorf("%w: %s: %v", ErrSealed, key, err)
		}
		value = plain
	}
	return value, true, nil
}

func (s *Store) set(q querier, key, value string) error {
	if s.key != nil {
		sealed, err := crypto.Encrypt(value, s.key)
		if err != nil {
			return fmt.Errorf("sealing %s: %w", key, err)
		}
		value = sealed
	}

	_, err := q.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, key, value)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(key string) error {
	if _, err := s.DB.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}
