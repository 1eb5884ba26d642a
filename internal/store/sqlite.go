// Package store provides storage backends for Cora Onboarding.
//
// This file implements an SQLite-backed store for snapshots, user data, and
// conversation transcripts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/corahq/cora-onboarding/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given options.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveSnapshot stores or overwrites the progress snapshot for a participant.
func (s *SQLiteStore) SaveSnapshot(snapshot models.ProgressSnapshot) error {
	existing, err := s.GetSnapshot(snapshot.ParticipantID)
	if err != nil {
		return err
	}
	touch(&snapshot, existing)

	userDataJSON, err := json.Marshal(snapshot.UserData)
	if err != nil {
		slog.Error("SQLiteStore SaveSnapshot JSON marshal failed", "error", err, "participantID", snapshot.ParticipantID)
		return err
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO onboarding_snapshots (participant_id, phase, step_index, user_data, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snapshot.ParticipantID, string(snapshot.Phase), snapshot.StepIndex,
		string(userDataJSON), snapshot.Version, snapshot.CreatedAt, snapshot.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSnapshot failed", "error", err, "participantID", snapshot.ParticipantID)
		return fmt.Errorf("failed to save snapshot for %s: %w", snapshot.ParticipantID, err)
	}
	slog.Debug("SQLiteStore SaveSnapshot succeeded", "participantID", snapshot.ParticipantID, "phase", snapshot.Phase, "version", snapshot.Version)
	return nil
}

// GetSnapshot retrieves the progress snapshot for a participant.
// A snapshot whose user data fails to parse degrades to an empty record
// rather than failing, mirroring the "malformed resume data means fresh
// start" rule.
func (s *SQLiteStore) GetSnapshot(participantID string) (*models.ProgressSnapshot, error) {
	var snapshot models.ProgressSnapshot
	var userDataJSON string

	err := s.db.QueryRow(`
		SELECT participant_id, phase, step_index, user_data, version, created_at, updated_at
		FROM onboarding_snapshots WHERE participant_id = ?`, participantID).Scan(
		&snapshot.ParticipantID, &snapshot.Phase, &snapshot.StepIndex,
		&userDataJSON, &snapshot.Version, &snapshot.CreatedAt, &snapshot.UpdatedAt)

	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSnapshot not found", "participantID", participantID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSnapshot failed", "error", err, "participantID", participantID)
		return nil, err
	}

	if userDataJSON != "" {
		if err := json.Unmarshal([]byte(userDataJSON), &snapshot.UserData); err != nil {
			slog.Error("SQLiteStore GetSnapshot JSON unmarshal failed", "error", err, "participantID", participantID)
			snapshot.UserData = models.ExtractedData{}
		}
	}

	slog.Debug("SQLiteStore GetSnapshot found", "participantID", participantID, "phase", snapshot.Phase)
	return &snapshot, nil
}

// DeleteSnapshot removes the progress snapshot for a participant.
func (s *SQLiteStore) DeleteSnapshot(participantID string) error {
	_, err := s.db.Exec(`DELETE FROM onboarding_snapshots WHERE participant_id = ?`, participantID)
	if err != nil {
		slog.Error("SQLiteStore DeleteSnapshot failed", "error", err, "participantID", participantID)
		return err
	}
	slog.Debug("SQLiteStore DeleteSnapshot succeeded", "participantID", participantID)
	return nil
}

// SaveUserData stores the plain answer copy for dashboard consumption.
func (s *SQLiteStore) SaveUserData(participantID string, data models.ExtractedData) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		slog.Error("SQLiteStore SaveUserData JSON marshal failed", "error", err, "participantID", participantID)
		return err
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO onboarding_user_data (participant_id, data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)`, participantID, string(dataJSON))
	if err != nil {
		slog.Error("SQLiteStore SaveUserData failed", "error", err, "participantID", participantID)
		return fmt.Errorf("failed to save user data for %s: %w", participantID, err)
	}
	slog.Debug("SQLiteStore SaveUserData succeeded", "participantID", participantID)
	return nil
}

// GetUserData retrieves the stored answer copy.
func (s *SQLiteStore) GetUserData(participantID string) (*models.ExtractedData, error) {
	var dataJSON string
	err := s.db.QueryRow(`SELECT data FROM onboarding_user_data WHERE participant_id = ?`, participantID).Scan(&dataJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetUserData failed", "error", err, "participantID", participantID)
		return nil, err
	}
	var data models.ExtractedData
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		slog.Error("SQLiteStore GetUserData JSON unmarshal failed", "error", err, "participantID", participantID)
		return nil, err
	}
	return &data, nil
}

// AddConversationEntry appends one transcript entry.
func (s *SQLiteStore) AddConversationEntry(participantID string, entry models.ConversationEntry) error {
	_, err := s.db.Exec(`INSERT INTO conversation_entries (participant_id, role, content, time) VALUES (?, ?, ?, ?)`,
		participantID, string(entry.Role), entry.Content, entry.Time)
	if err != nil {
		slog.Error("SQLiteStore AddConversationEntry failed", "error", err, "participantID", participantID)
		return fmt.Errorf("failed to insert conversation entry for %s: %w", participantID, err)
	}
	slog.Debug("SQLiteStore AddConversationEntry succeeded", "participantID", participantID, "role", entry.Role)
	return nil
}

// GetConversation returns the transcript in append order.
func (s *SQLiteStore) GetConversation(participantID string) ([]models.ConversationEntry, error) {
	rows, err := s.db.Query(`SELECT role, content, time FROM conversation_entries WHERE participant_id = ? ORDER BY id`, participantID)
	if err != nil {
		slog.Error("SQLiteStore GetConversation query failed", "error", err, "participantID", participantID)
		return nil, fmt.Errorf("failed to query conversation entries: %w", err)
	}
	defer rows.Close()

	var entries []models.ConversationEntry
	for rows.Next() {
		var entry models.ConversationEntry
		if err := rows.Scan(&entry.Role, &entry.Content, &entry.Time); err != nil {
			slog.Error("SQLiteStore GetConversation scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan conversation entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetConversation rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate conversation entries: %w", err)
	}
	slog.Debug("SQLiteStore GetConversation succeeded", "participantID", participantID, "count", len(entries))
	return entries, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
