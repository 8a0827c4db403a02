package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Keys under which the session is persisted.
const (
	TokenKey    = "token"
	IdentityKey = "user"
)

// IdentityStorage is durable storage for the session token and serialized
// identity. Both keys are always read, written and removed together.
// Load returns empty values when nothing is stored.
type IdentityStorage interface {
	Load(ctx context.Context) (token string, identity []byte, err error)
	Save(ctx context.Context, token string, identity []byte) error
	Clear(ctx context.Context) error
}

// MemoryStorage keeps the session in process memory only.
type MemoryStorage struct {
	mu    sync.Mutex
	items map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (m *MemoryStorage) Load(ctx context.Context) (string, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var identity []byte
	if v, ok := m.items[IdentityKey]; ok {
		identity = []byte(v)
	}
	return m.items[TokenKey], identity, nil
}

func (m *MemoryStorage) Save(ctx context.Context, token string, identity []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[TokenKey] = token
	m.items[IdentityKey] = string(identity)
	return nil
}

func (m *MemoryStorage) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, TokenKey)
	delete(m.items, IdentityKey)
	return nil
}

// SQLiteStorage persists the session in a small key-value table.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLiteStorage opens (or creates) session.db in dataDir.
// Pass ":memory:" for a throwaway database.
func OpenSQLiteStorage(dataDir string) (*SQLiteStorage, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "session.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: ":memory:" databases are per-connection.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode=WAL",
		`CREATE TABLE IF NOT EXISTS local_storage (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing session database: %w", err)
		}
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) Load(ctx context.Context) (string, []byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM local_storage WHERE key IN (?, ?)`, TokenKey, IdentityKey)
	if err != nil {
		return "", nil, fmt.Errorf("loading session: %w", err)
	}
	defer rows.Close()

	var token string
	var identity []byte
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return "", nil, fmt.Errorf("scanning session row: %w", err)
		}
		switch key {
		case TokenKey:
			token = value
		case IdentityKey:
			identity = []byte(value)
		}
	}
	if err := rows.Err(); err != nil {
		return "", nil, fmt.Errorf("loading session: %w", err)
	}
	return token, identity, nil
}

func (s *SQLiteStorage) Save(ctx context.Context, token string, identity []byte) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		const upsert = `INSERT INTO local_storage (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`
		if _, err := tx.ExecContext(ctx, upsert, TokenKey, token); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, upsert, IdentityKey, string(identity))
		return err
	})
}

func (s *SQLiteStorage) Clear(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM local_storage WHERE key IN (?, ?)`, TokenKey, IdentityKey)
		return err
	})
}

func (s *SQLiteStorage) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("writing session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing session: %w", err)
	}
	return nil
}
