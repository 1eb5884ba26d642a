// Package store provides storage backends for Cora Onboarding.
//
// It includes an in-memory store for tests and development, plus SQLite and
// PostgreSQL backends for durable progress snapshots, user data copies, and
// conversation transcripts.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/corahq/cora-onboarding/internal/models"
)

// Store defines the persistence operations the onboarding flow relies on.
// All implementations are best-effort from the engine's point of view:
// callers log and swallow errors rather than halting the flow.
type Store interface {
	// SaveSnapshot stores or overwrites the progress snapshot for a
	// participant. Last writer wins.
	SaveSnapshot(snapshot models.ProgressSnapshot) error

	// GetSnapshot retrieves the progress snapshot for a participant, or nil
	// when none exists.
	GetSnapshot(participantID string) (*models.ProgressSnapshot, error)

	// DeleteSnapshot removes the progress snapshot for a participant.
	// Deleting a missing snapshot is not an error.
	DeleteSnapshot(participantID string) error

	// SaveUserData stores the plain copy of the accumulated answers for
	// later dashboard consumption.
	SaveUserData(participantID string, data models.ExtractedData) error

	// GetUserData retrieves the stored answer copy, or nil when none exists.
	GetUserData(participantID string) (*models.ExtractedData, error)

	// AddConversationEntry appends one transcript entry for a participant.
	AddConversationEntry(participantID string, entry models.ConversationEntry) error

	// GetConversation returns the transcript for a participant in append
	// order.
	GetConversation(participantID string) ([]models.ConversationEntry, error)

	// Close releases any resources held by the store.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN configures the store to use an SQLite database at the given
// file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN configures the store to use a PostgreSQL database at the
// given connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". Anything that
// does not look like a PostgreSQL URL or key/value connection string is
// treated as an SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore is a mutex-guarded in-memory implementation of Store.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]models.ProgressSnapshot
	userData  map[string]models.ExtractedData
	entries   map[string][]models.ConversationEntry
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		snapshots: make(map[string]models.ProgressSnapshot),
		userData:  make(map[string]models.ExtractedData),
		entries:   make(map[string][]models.ConversationEntry),
	}
}

// SaveSnapshot stores the snapshot, overwriting any existing one.
func (s *InMemoryStore) SaveSnapshot(snapshot models.ProgressSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var existing *models.ProgressSnapshot
	if prev, ok := s.snapshots[snapshot.ParticipantID]; ok {
		existing = &prev
	}
	touch(&snapshot, existing)
	snapshot.UserData = snapshot.UserData.Clone()
	s.snapshots[snapshot.ParticipantID] = snapshot
	return nil
}

// GetSnapshot returns the stored snapshot or nil.
func (s *InMemoryStore) GetSnapshot(participantID string) (*models.ProgressSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[participantID]
	if !ok {
		return nil, nil
	}
	snapshot.UserData = snapshot.UserData.Clone()
	return &snapshot, nil
}

// DeleteSnapshot removes the stored snapshot, if any.
func (s *InMemoryStore) DeleteSnapshot(participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, participantID)
	return nil
}

// SaveUserData stores the answer copy for a participant.
func (s *InMemoryStore) SaveUserData(participantID string, data models.ExtractedData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userData[participantID] = data.Clone()
	return nil
}

// GetUserData returns the stored answer copy or nil.
func (s *InMemoryStore) GetUserData(participantID string) (*models.ExtractedData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.userData[participantID]
	if !ok {
		return nil, nil
	}
	data = data.Clone()
	return &data, nil
}

// AddConversationEntry appends a transcript entry.
func (s *InMemoryStore) AddConversationEntry(participantID string, entry models.ConversationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[participantID] = append(s.entries[participantID], entry)
	return nil
}

// GetConversation returns the transcript in append order.
func (s *InMemoryStore) GetConversation(participantID string) ([]models.ConversationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]models.ConversationEntry, len(s.entries[participantID]))
	copy(entries, s.entries[participantID])
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Time.Before(entries[j].Time) })
	return entries, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

// touch normalizes snapshot bookkeeping fields before a save. Shared by the
// SQL backends.
func touch(snapshot *models.ProgressSnapshot, existing *models.ProgressSnapshot) {
	now := time.Now().UTC()
	if existing != nil {
		snapshot.CreatedAt = existing.CreatedAt
		if snapshot.Version <= existing.Version {
			snapshot.Version = existing.Version + 1
		}
	} else if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}
	if snapshot.Version == 0 {
		snapshot.Version = 1
	}
	snapshot.UpdatedAt = now
}
