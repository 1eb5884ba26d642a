package flow

import (
	"log/slog"
	"time"

	"github.com/corahq/cora-onboarding/internal/models"
	"github.com/corahq/cora-onboarding/internal/store"
)

// ConversationLog is the append-only onboarding transcript. It is kept in
// memory for the session and mirrored to the store best-effort; persistence
// failures never interrupt the flow, and the transcript never drives control
// flow.
type ConversationLog struct {
	participantID string
	store         store.Store
	entries       []models.ConversationEntry
}

// NewConversationLog creates a transcript for one participant. The store may
// be nil, in which case entries live only in memory.
func NewConversationLog(participantID string, st store.Store) *ConversationLog {
	return &ConversationLog{participantID: participantID, store: st}
}

// Append records one entry with the current time.
func (l *ConversationLog) Append(role models.ConversationRole, content string) {
	entry := models.ConversationEntry{Role: role, Content: content, Time: time.Now().UTC()}
	l.entries = append(l.entries, entry)
	if l.store == nil {
		return
	}
	if err := l.store.AddConversationEntry(l.participantID, entry); err != nil {
		slog.Warn("ConversationLog mirror write failed", "error", err, "participantID", l.participantID)
	}
}

// Entries returns a copy of the transcript in append order.
func (l *ConversationLog) Entries() []models.ConversationEntry {
	out := make([]models.ConversationEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of transcript entries.
func (l *ConversationLog) Len() int {
	return len(l.entries)
}
