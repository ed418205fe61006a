// Package store persists verified results durably. Rows are keyed by the
// normalized (citation, proposition) cache key and scoped by order ID:
// queries always filter on the caller's order scope, so one tenant can
// never read another tenant's cached verdict.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/citeguard/citeguard/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS verdicts (
	key        TEXT NOT NULL,
	order_id   TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL,
	PRIMARY KEY (key, order_id)
);
CREATE INDEX IF NOT EXISTS idx_verdicts_order ON verdicts(order_id);
CREATE INDEX IF NOT EXISTS idx_verdicts_expiry ON verdicts(expires_at);
`

// storeNow is injectable for tests.
var storeNow = time.Now

// Store is the sqlite-backed verified index.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the store. An empty dataDir defaults to
// ~/.citeguard/data.
func Open(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".citeguard", "data")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "verified.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the unexpired verdict for (key, orderID), if any. Expired
// rows are treated as absent and deleted lazily.
func (s *Store) Get(ctx context.Context, key, orderID string) (*model.VerificationVerdict, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM verdicts WHERE key = ? AND order_id = ?`,
		key, orderID)

	var payload string
	var expiresAt time.Time
	if err := row.Scan(&payload, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading verdict: %w", err)
	}

	if storeNow().After(expiresAt) {
		_, _ = s.db.ExecContext(ctx,
			`DELETE FROM verdicts WHERE key = ? AND order_id = ?`, key, orderID)
		return nil, false, nil
	}

	var v model.VerificationVerdict
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil, false, fmt.Errorf("decoding verdict: %w", err)
	}
	return &v, true, nil
}

// Put upserts a verdict with the given TTL.
func (s *Store) Put(ctx context.Context, key, orderID string, v *model.VerificationVerdict, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding verdict: %w", err)
	}
	now := storeNow()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verdicts (key, order_id, status, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key, order_id) DO UPDATE SET
			status = excluded.status,
			payload = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		key, orderID, string(v.Status), string(payload), now, now.Add(ttl))
	if err != nil {
		return fmt.Errorf("writing verdict: %w", err)
	}
	return nil
}

// Delete removes a verdict row.
func (s *Store) Delete(ctx context.Context, key, orderID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM verdicts WHERE key = ? AND order_id = ?`, key, orderID)
	return err
}

// ListByOrder returns all unexpired verdicts in one order's scope.
func (s *Store) ListByOrder(ctx context.Context, orderID string) ([]*model.VerificationVerdict, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM verdicts WHERE order_id = ? AND expires_at > ?`,
		orderID, storeNow())
	if err != nil {
		return nil, fmt.Errorf("listing verdicts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.VerificationVerdict
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning verdict: %w", err)
		}
		var v model.VerificationVerdict
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return nil, fmt.Errorf("decoding verdict: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// PurgeExpired deletes all expired rows and reports how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM verdicts WHERE expires_at <= ?`, storeNow())
	if err != nil {
		return 0, fmt.Errorf("purging expired: %w", err)
	}
	return res.RowsAffected()
}
