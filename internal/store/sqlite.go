// Package store persists user records in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	. "github.com/mvanwyk/relaybot/internal/logging"
	"github.com/mvanwyk/relaybot/internal/session"
)

// Schema version for migrations
const currentSchemaVersion = 1

// Store implements durable load/save of user records. Calls for the same
// user are serialized by the dispatcher; calls for different users may run
// concurrently.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		L_warn("sqlite: failed to enable foreign keys", "error", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	L_info("sqlite: store opened", "path", path)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist, start from scratch
		version = 0
	}

	if version >= currentSchemaVersion {
		L_debug("sqlite: schema up to date", "version", version)
		return nil
	}

	L_info("sqlite: migrating schema", "from", version, "to", currentSchemaVersion)

	migrations := []func(*sql.DB) error{
		migrateV1,
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](s.db); err != nil {
			return fmt.Errorf("migration v%d failed: %w", i+1, err)
		}
		L_debug("sqlite: applied migration", "version", i+1)
	}

	return nil
}

// migrateV1 creates the initial schema
func migrateV1(db *sql.DB) error {
	schema := `
	-- Schema version tracking
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	);
	INSERT INTO schema_version (version, applied_at) VALUES (1, ?);

	-- One row per chat identity
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		credential TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT 'en',
		params TEXT NOT NULL DEFAULT '{}',
		state TEXT NOT NULL DEFAULT 'idle',
		pending_param TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Conversation history, insertion order meaningful
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL,

		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id, seq);
	`

	_, err := db.Exec(schema, time.Now().Unix())
	return err
}

// Load returns the record for userID, creating a default one if absent.
func (s *Store) Load(ctx context.Context, userID string) (*session.Record, error) {
	rec := session.NewRecord(userID)

	var paramsJSON string
	var state, pending string
	err := s.db.QueryRowContext(ctx,
		"SELECT credential, language, params, state, pending_param FROM users WHERE user_id = ?",
		userID,
	).Scan(&rec.Credential, &rec.Language, &paramsJSON, &state, &pending)

	switch {
	case err == sql.ErrNoRows:
		now := time.Now().Unix()
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO users (user_id, language, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			userID, rec.Language, string(rec.State), now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", userID, err)
		}
		L_debug("store: created user record", "user", userID)
		return rec, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	rec.State = session.State(state)
	rec.Pending = pending
	if err := json.Unmarshal([]byte(paramsJSON), &rec.Params); err != nil {
		L_warn("store: discarding unreadable params", "user", userID, "error", err)
		rec.Params = session.Params{}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content, timestamp FROM messages WHERE user_id = ? ORDER BY seq",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var t session.Turn
		var ts int64
		if err := rows.Scan(&t.Role, &t.Content, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan message for %s: %w", userID, err)
		}
		t.Timestamp = time.UnixMilli(ts)
		rec.History = append(rec.History, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history for %s: %w", userID, err)
	}

	return rec, nil
}

// Save writes the whole record in one transaction, so a crash mid-save never
// leaves a partially written record visible to the next Load.
func (s *Store) Save(ctx context.Context, rec *session.Record) error {
	paramsJSON, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (user_id, credential, language, params, state, pending_param, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			credential = excluded.credential,
			language = excluded.language,
			params = excluded.params,
			state = excluded.state,
			pending_param = excluded.pending_param,
			updated_at = excluded.updated_at`,
		rec.UserID, rec.Credential, rec.Language, string(paramsJSON),
		string(rec.State), rec.Pending, time.Now().Unix(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", rec.UserID, err)
	}

	// History is small (bounded by the trim cap), so rewriting it keeps the
	// save a single atomic unit instead of tracking per-row diffs.
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE user_id = ?", rec.UserID); err != nil {
		return fmt.Errorf("failed to clear history for %s: %w", rec.UserID, err)
	}

	insert, err := tx.PrepareContext(ctx,
		"INSERT INTO messages (id, user_id, seq, role, content, timestamp) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer insert.Close()

	for i, t := range rec.History {
		if _, err := insert.ExecContext(ctx,
			uuid.NewString(), rec.UserID, i, t.Role, t.Content, t.Timestamp.UnixMilli(),
		); err != nil {
			return fmt.Errorf("failed to save message %d for %s: %w", i, rec.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save for %s: %w", rec.UserID, err)
	}
	return nil
}
