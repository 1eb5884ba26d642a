package flow

import (
	"testing"

	"github.com/corahq/cora-onboarding/internal/models"
	"github.com/corahq/cora-onboarding/internal/store"
)

func TestConversationLogMirrorsToStore(t *testing.T) {
	st := store.NewInMemoryStore()
	log := NewConversationLog("p1", st)

	log.Append(models.RoleAssistant, "What should I call you?")
	log.Append(models.RoleUser, "Mike")

	if log.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", log.Len())
	}
	entries := log.Entries()
	if entries[0].Role != models.RoleAssistant || entries[1].Content != "Mike" {
		t.Errorf("unexpected in-memory transcript: %+v", entries)
	}

	persisted, err := st.GetConversation("p1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if len(persisted) != 2 {
		t.Fatalf("expected 2 persisted entries, got %d", len(persisted))
	}
	if persisted[1].Role != models.RoleUser || persisted[1].Content != "Mike" {
		t.Errorf("unexpected persisted transcript: %+v", persisted)
	}
}

func TestConversationLogWithoutStore(t *testing.T) {
	log := NewConversationLog("p1", nil)
	log.Append(models.RoleAssistant, "hello")
	if log.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", log.Len())
	}
}

func TestConversationLogEntriesReturnsCopy(t *testing.T) {
	log := NewConversationLog("p1", nil)
	log.Append(models.RoleUser, "original")

	entries := log.Entries()
	entries[0].Content = "mutated"

	if log.Entries()[0].Content != "original" {
		t.Error("mutating the returned slice changed the transcript")
	}
}
