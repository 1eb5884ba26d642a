package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/corahq/cora-onboarding/internal/models"
)

// newTestSQLiteStore creates an SQLite store backed by a temp file.
func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "onboarding.db")
	st, err := NewSQLiteStore(WithSQLiteDSN(dsn))
	if err != nil {
		t.Fatalf("failed to create SQLite store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteStoreRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("expected error when DSN is not set")
	}
}

func TestSQLiteSnapshotRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)

	snapshot := models.ProgressSnapshot{
		ParticipantID: "p1",
		Phase:         models.PhaseServiceArea,
		StepIndex:     4,
		UserData: models.ExtractedData{
			Name:            "Dale",
			BusinessType:    []string{"roofing", "carpentry"},
			YearsInBusiness: "veteran",
		},
	}
	if err := st.SaveSnapshot(snapshot); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	got, err := st.GetSnapshot("p1")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if got.Phase != models.PhaseServiceArea || got.StepIndex != 4 {
		t.Errorf("unexpected snapshot position: phase=%s stepIndex=%d", got.Phase, got.StepIndex)
	}
	if got.UserData.Name != "Dale" || len(got.UserData.BusinessType) != 2 {
		t.Errorf("unexpected user data: %+v", got.UserData)
	}
	if got.Version != 1 {
		t.Errorf("expected version 1, got %d", got.Version)
	}
}

func TestSQLiteSnapshotOverwrite(t *testing.T) {
	st := newTestSQLiteStore(t)

	if err := st.SaveSnapshot(models.ProgressSnapshot{ParticipantID: "p1", Phase: models.PhaseGreeting}); err != nil {
		t.Fatalf("first SaveSnapshot failed: %v", err)
	}
	if err := st.SaveSnapshot(models.ProgressSnapshot{ParticipantID: "p1", Phase: models.PhaseBusySeason, StepIndex: 7}); err != nil {
		t.Fatalf("second SaveSnapshot failed: %v", err)
	}

	got, err := st.GetSnapshot("p1")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if got.Phase != models.PhaseBusySeason {
		t.Errorf("expected last write to win, got %s", got.Phase)
	}
	if got.Version != 2 {
		t.Errorf("expected version 2 after overwrite, got %d", got.Version)
	}
}

func TestSQLiteGetSnapshotMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetSnapshot("absent")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing snapshot, got %+v", got)
	}
}

func TestSQLiteDeleteSnapshot(t *testing.T) {
	st := newTestSQLiteStore(t)

	if err := st.SaveSnapshot(models.ProgressSnapshot{ParticipantID: "p1", Phase: models.PhaseGreeting}); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if err := st.DeleteSnapshot("p1"); err != nil {
		t.Fatalf("DeleteSnapshot failed: %v", err)
	}
	got, _ := st.GetSnapshot("p1")
	if got != nil {
		t.Error("expected snapshot to be gone after delete")
	}
	if err := st.DeleteSnapshot("absent"); err != nil {
		t.Errorf("DeleteSnapshot on missing participant failed: %v", err)
	}
}

func TestSQLiteUserDataRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)

	data := models.ExtractedData{Name: "Rosa", MainChallenge: []string{"cash_flow", "scheduling"}}
	if err := st.SaveUserData("p1", data); err != nil {
		t.Fatalf("SaveUserData failed: %v", err)
	}

	got, err := st.GetUserData("p1")
	if err != nil {
		t.Fatalf("GetUserData failed: %v", err)
	}
	if got == nil || got.Name != "Rosa" || len(got.MainChallenge) != 2 {
		t.Errorf("unexpected user data: %+v", got)
	}

	missing, err := st.GetUserData("absent")
	if err != nil {
		t.Fatalf("GetUserData for missing participant failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing user data, got %+v", missing)
	}
}

func TestSQLiteConversationRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)

	base := time.Now().UTC()
	entries := []models.ConversationEntry{
		{Role: models.RoleAssistant, Content: "What should I call you?", Time: base},
		{Role: models.RoleUser, Content: "Dale", Time: base.Add(time.Second)},
	}
	for _, e := range entries {
		if err := st.AddConversationEntry("p1", e); err != nil {
			t.Fatalf("AddConversationEntry failed: %v", err)
		}
	}

	got, err := st.GetConversation("p1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	for i, e := range entries {
		if got[i].Role != e.Role || got[i].Content != e.Content {
			t.Errorf("entry %d: expected %s %q, got %s %q", i, e.Role, e.Content, got[i].Role, got[i].Content)
		}
	}
}

func TestSQLiteMalformedUserDataDegrades(t *testing.T) {
	st := newTestSQLiteStore(t)

	if err := st.SaveSnapshot(models.ProgressSnapshot{ParticipantID: "p1", Phase: models.PhaseBusinessSize, StepIndex: 3}); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, err := st.db.Exec(`UPDATE onboarding_snapshots SET user_data = 'not json' WHERE participant_id = ?`, "p1"); err != nil {
		t.Fatalf("failed to corrupt user_data: %v", err)
	}

	got, err := st.GetSnapshot("p1")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected snapshot despite corrupt user data")
	}
	if got.UserData.Name != "" || len(got.UserData.BusinessType) != 0 {
		t.Errorf("expected empty user data after corruption, got %+v", got.UserData)
	}
}
