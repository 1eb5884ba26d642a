// Package store provides storage backends for Cora Onboarding.
//
// This file implements a PostgreSQL-backed store for snapshots, user data,
// and conversation transcripts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/corahq/cora-onboarding/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// SaveSnapshot stores or overwrites the progress snapshot for a participant.
func (s *PostgresStore) SaveSnapshot(snapshot models.ProgressSnapshot) error {
	existing, err := s.GetSnapshot(snapshot.ParticipantID)
	if err != nil {
		return err
	}
	touch(&snapshot, existing)

	userDataJSON, err := json.Marshal(snapshot.UserData)
	if err != nil {
		slog.Error("PostgresStore SaveSnapshot JSON marshal failed", "error", err, "participantID", snapshot.ParticipantID)
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO onboarding_snapshots (participant_id, phase, step_index, user_data, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (participant_id) DO UPDATE SET
			phase = EXCLUDED.phase,
			step_index = EXCLUDED.step_index,
			user_data = EXCLUDED.user_data,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at`,
		snapshot.ParticipantID, string(snapshot.Phase), snapshot.StepIndex,
		string(userDataJSON), snapshot.Version, snapshot.CreatedAt, snapshot.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSnapshot failed", "error", err, "participantID", snapshot.ParticipantID)
		return fmt.Errorf("failed to save snapshot for %s: %w", snapshot.ParticipantID, err)
	}
	slog.Debug("PostgresStore SaveSnapshot succeeded", "participantID", snapshot.ParticipantID, "phase", snapshot.Phase, "version", snapshot.Version)
	return nil
}

// GetSnapshot retrieves the progress snapshot for a participant.
func (s *PostgresStore) GetSnapshot(participantID string) (*models.ProgressSnapshot, error) {
	var snapshot models.ProgressSnapshot
	var userDataJSON string

	err := s.db.QueryRow(`
		SELECT participant_id, phase, step_index, user_data, version, created_at, updated_at
		FROM onboarding_snapshots WHERE participant_id = $1`, participantID).Scan(
		&snapshot.ParticipantID, &snapshot.Phase, &snapshot.StepIndex,
		&userDataJSON, &snapshot.Version, &snapshot.CreatedAt, &snapshot.UpdatedAt)

	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSnapshot not found", "participantID", participantID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSnapshot failed", "error", err, "participantID", participantID)
		return nil, err
	}

	if userDataJSON != "" {
		if err := json.Unmarshal([]byte(userDataJSON), &snapshot.UserData); err != nil {
			slog.Error("PostgresStore GetSnapshot JSON unmarshal failed", "error", err, "participantID", participantID)
			snapshot.UserData = models.ExtractedData{}
		}
	}
	return &snapshot, nil
}

// DeleteSnapshot removes the progress snapshot for a participant.
func (s *PostgresStore) DeleteSnapshot(participantID string) error {
	_, err := s.db.Exec(`DELETE FROM onboarding_snapshots WHERE participant_id = $1`, participantID)
	if err != nil {
		slog.Error("PostgresStore DeleteSnapshot failed", "error", err, "participantID", participantID)
		return err
	}
	slog.Debug("PostgresStore DeleteSnapshot succeeded", "participantID", participantID)
	return nil
}

// SaveUserData stores the plain answer copy for dashboard consumption.
func (s *PostgresStore) SaveUserData(participantID string, data models.ExtractedData) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		slog.Error("PostgresStore SaveUserData JSON marshal failed", "error", err, "participantID", participantID)
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO onboarding_user_data (participant_id, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (participant_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		participantID, string(dataJSON))
	if err != nil {
		slog.Error("PostgresStore SaveUserData failed", "error", err, "participantID", participantID)
		return fmt.Errorf("failed to save user data for %s: %w", participantID, err)
	}
	return nil
}

// GetUserData retrieves the stored answer copy.
func (s *PostgresStore) GetUserData(participantID string) (*models.ExtractedData, error) {
	var dataJSON string
	err := s.db.QueryRow(`SELECT data FROM onboarding_user_data WHERE participant_id = $1`, participantID).Scan(&dataJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetUserData failed", "error", err, "participantID", participantID)
		return nil, err
	}
	var data models.ExtractedData
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		slog.Error("PostgresStore GetUserData JSON unmarshal failed", "error", err, "participantID", participantID)
		return nil, err
	}
	return &data, nil
}

// AddConversationEntry appends one transcript entry.
func (s *PostgresStore) AddConversationEntry(participantID string, entry models.ConversationEntry) error {
	_, err := s.db.Exec(`INSERT INTO conversation_entries (participant_id, role, content, time) VALUES ($1, $2, $3, $4)`,
		participantID, string(entry.Role), entry.Content, entry.Time)
	if err != nil {
		slog.Error("PostgresStore AddConversationEntry failed", "error", err, "participantID", participantID)
		return fmt.Errorf("failed to insert conversation entry for %s: %w", participantID, err)
	}
	return nil
}

// GetConversation returns the transcript in append order.
func (s *PostgresStore) GetConversation(participantID string) ([]models.ConversationEntry, error) {
	rows, err := s.db.Query(`SELECT role, content, time FROM conversation_entries WHERE participant_id = $1 ORDER BY id`, participantID)
	if err != nil {
		slog.Error("PostgresStore GetConversation query failed", "error", err, "participantID", participantID)
		return nil, fmt.Errorf("failed to query conversation entries: %w", err)
	}
	defer rows.Close()

	var entries []models.ConversationEntry
	for rows.Next() {
		var entry models.ConversationEntry
		if err := rows.Scan(&entry.Role, &entry.Content, &entry.Time); err != nil {
			slog.Error("PostgresStore GetConversation scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan conversation entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetConversation rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate conversation entries: %w", err)
	}
	return entries, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
