package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"caregate/internal/domain"
)

// SQLiteStore implements domain.SessionStore and domain.ProfileStore on a
// single SQLite database. Session metadata is stored as a JSON document;
// the message log is a separate append-only table carrying the per-session
// sequence.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs the
// schema migration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			user_id          TEXT NOT NULL,
			session_id       TEXT NOT NULL,
			data             TEXT NOT NULL,
			last_activity_at TEXT NOT NULL,
			PRIMARY KEY (user_id, session_id)
		);
		CREATE TABLE IF NOT EXISTS messages (
			user_id    TEXT NOT NULL,
			session_id TEXT NOT NULL,
			seq        INTEGER NOT NULL,
			id         TEXT NOT NULL,
			role       TEXT NOT NULL,
			agent_id   TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL,
			timestamp  TEXT NOT NULL,
			PRIMARY KEY (user_id, session_id, seq)
		);
		CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			data    TEXT NOT NULL
		);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Get implements domain.SessionStore.
func (s *SQLiteStore) Get(ctx context.Context, userID, sessionID string) (*domain.ConversationMemory, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT data FROM sessions WHERE user_id = ? AND session_id = ?", userID, sessionID)

	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewDomainError("SQLiteStore.Get", domain.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var mem domain.ConversationMemory
	if err := json.Unmarshal([]byte(data), &mem); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	if mem.HealthPatterns == nil {
		mem.HealthPatterns = make(map[string]domain.HealthPattern)
	}
	return &mem, nil
}

// Upsert implements domain.SessionStore.
func (s *SQLiteStore) Upsert(ctx context.Context, mem *domain.ConversationMemory) error {
	data, err := json.Marshal(mem)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", mem.SessionID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, session_id, data, last_activity_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, session_id)
		DO UPDATE SET data = excluded.data, last_activity_at = excluded.last_activity_at`,
		mem.UserID, mem.SessionID, string(data),
		mem.LastActivityAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// AppendMessage implements domain.SessionStore. Sequence assignment and
// insertion happen in one transaction so numbers are gap-free per session.
func (s *SQLiteStore) AppendMessage(ctx context.Context, userID, sessionID string, msg domain.Message) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE user_id = ? AND session_id = ?",
		userID, sessionID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (user_id, session_id, seq, id, role, agent_id, content, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, sessionID, seq, msg.ID, msg.Role, msg.AgentID, msg.Content,
		msg.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return seq, nil
}

// Messages returns the full append log for a session, in sequence order.
func (s *SQLiteStore) Messages(ctx context.Context, userID, sessionID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, role, agent_id, content, timestamp
		FROM messages WHERE user_id = ? AND session_id = ? ORDER BY seq`,
		userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		var ts string
		if err := rows.Scan(&msg.Seq, &msg.ID, &msg.Role, &msg.AgentID, &msg.Content, &ts); err != nil {
			return nil, err
		}
		msg.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse message timestamp: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// Delete implements domain.SessionStore.
func (s *SQLiteStore) Delete(ctx context.Context, userID, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM sessions WHERE user_id = ? AND session_id = ?", userID, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewDomainError("SQLiteStore.Delete", domain.ErrSessionNotFound, sessionID)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM messages WHERE user_id = ? AND session_id = ?", userID, sessionID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// SweepExpired implements domain.SessionStore.
func (s *SQLiteStore) SweepExpired(ctx context.Context, maxIdle time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxIdle).Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM messages WHERE (user_id, session_id) IN (
			SELECT user_id, session_id FROM sessions WHERE last_activity_at < ?
		)`, cutoff); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	res, err := tx.ExecContext(ctx,
		"DELETE FROM sessions WHERE last_activity_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// GetProfile implements domain.ProfileStore.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, "SELECT data FROM profiles WHERE user_id = ?", userID)

	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewDomainError("SQLiteStore.GetProfile", domain.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var profile domain.UserProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile %s: %w", userID, err)
	}
	return &profile, nil
}

// UpsertProfile implements domain.ProfileStore.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile *domain.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile %s: %w", profile.UserID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, data) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET data = excluded.data`,
		profile.UserID, string(data))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

var (
	_ domain.SessionStore = (*SQLiteStore)(nil)
	_ domain.ProfileStore = (*SQLiteStore)(nil)
)
