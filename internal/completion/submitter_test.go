package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/corahq/cora-onboarding/internal/models"
	"github.com/corahq/cora-onboarding/internal/notify"
	"github.com/corahq/cora-onboarding/internal/store"
)

func seededStore(t *testing.T, participantID string) *store.InMemoryStore {
	t.Helper()
	st := store.NewInMemoryStore()
	if err := st.SaveSnapshot(models.ProgressSnapshot{
		ParticipantID: participantID,
		Phase:         models.PhaseCompletion,
		StepIndex:     models.PhaseCount() - 1,
	}); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	return st
}

func completedData() models.ExtractedData {
	return models.ExtractedData{
		Name:            "Mike",
		BusinessType:    []string{"plumbing", "hvac"},
		YearsInBusiness: "experienced",
		BusinessSize:    "small_crew",
		ServiceArea:     "regional",
		CustomerType:    []string{"homeowners"},
		TrackingMethod:  []string{"spreadsheets"},
		BusySeason:      []string{"summer"},
		MainChallenge:   []string{"cash_flow"},
		BusinessGoal:    []string{"grow_revenue"},
	}
}

func TestCompleteSuccess(t *testing.T) {
	var received models.BusinessProfile
	var gotCookie *http.Cookie
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie, _ = r.Cookie("session")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode profile payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	st := seededStore(t, "p1")
	submitter := NewSubmitter(st,
		WithProfileEndpoint(srv.URL),
		WithSessionCookie("session", "abc123"),
	)

	result, err := submitter.Complete(context.Background(), "p1", completedData())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !result.ProfileCreated {
		t.Error("expected ProfileCreated true")
	}
	if result.RedirectURL != DefaultDashboardURL {
		t.Errorf("expected dashboard redirect, got %q", result.RedirectURL)
	}
	if result.RedirectDelaySeconds != DefaultRedirectDelaySeconds {
		t.Errorf("expected %ds delay, got %d", DefaultRedirectDelaySeconds, result.RedirectDelaySeconds)
	}
	if result.Message == "" {
		t.Error("expected a success message")
	}

	if received.BusinessName != "Mike's Plumbing Business" {
		t.Errorf("unexpected business name: %q", received.BusinessName)
	}
	if received.Industry != "plumbing" {
		t.Errorf("unexpected industry: %q", received.Industry)
	}
	if gotCookie == nil || gotCookie.Value != "abc123" {
		t.Errorf("expected session cookie on the profile POST, got %v", gotCookie)
	}

	snapshot, _ := st.GetSnapshot("p1")
	if snapshot != nil {
		t.Error("expected snapshot cleared after completion")
	}
	saved, _ := st.GetUserData("p1")
	if saved == nil || saved.Name != "Mike" {
		t.Errorf("expected answer copy saved, got %+v", saved)
	}
}

func TestCompleteEndpointFailureStillRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	st := seededStore(t, "p1")
	submitter := NewSubmitter(st, WithProfileEndpoint(srv.URL))

	result, err := submitter.Complete(context.Background(), "p1", completedData())
	if err == nil {
		t.Error("expected submission error to be reported")
	}
	if result.ProfileCreated {
		t.Error("expected ProfileCreated false on failure")
	}
	if result.RedirectURL != DefaultDashboardURL {
		t.Errorf("failure must still redirect to the dashboard, got %q", result.RedirectURL)
	}
	if result.RedirectDelaySeconds != DefaultFallbackDelaySeconds {
		t.Errorf("expected fallback delay %d, got %d", DefaultFallbackDelaySeconds, result.RedirectDelaySeconds)
	}
	if result.Message != failureMessage {
		t.Errorf("expected failure message, got %q", result.Message)
	}

	// Storage is cleaned regardless of the submission outcome.
	snapshot, _ := st.GetSnapshot("p1")
	if snapshot != nil {
		t.Error("expected snapshot cleared even on failure")
	}
	saved, _ := st.GetUserData("p1")
	if saved == nil {
		t.Error("expected answer copy saved even on failure")
	}
}

func TestCompleteTimeoutStillRedirects(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	st := seededStore(t, "p1")
	submitter := NewSubmitter(st,
		WithProfileEndpoint(srv.URL),
		WithRequestTimeout(50*time.Millisecond),
	)

	result, err := submitter.Complete(context.Background(), "p1", completedData())
	if err == nil {
		t.Error("expected a timeout error")
	}
	if result.RedirectURL != DefaultDashboardURL {
		t.Errorf("timeout must still redirect to the dashboard, got %q", result.RedirectURL)
	}
	if result.RedirectDelaySeconds != DefaultFallbackDelaySeconds {
		t.Errorf("expected fallback delay %d, got %d", DefaultFallbackDelaySeconds, result.RedirectDelaySeconds)
	}
}

func TestCompleteMissingEndpointFails(t *testing.T) {
	submitter := NewSubmitter(store.NewInMemoryStore())
	result, err := submitter.Complete(context.Background(), "p1", completedData())
	if err == nil {
		t.Error("expected error with no endpoint configured")
	}
	if result.RedirectURL != DefaultDashboardURL {
		t.Errorf("expected dashboard redirect, got %q", result.RedirectURL)
	}
}

func TestCompleteNotifiesOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	mock := notify.NewMockClient()
	submitter := NewSubmitter(store.NewInMemoryStore(),
		WithProfileEndpoint(srv.URL),
		WithNotifier(mock, "+15551234567"),
	)

	if _, err := submitter.Complete(context.Background(), "p1", completedData()); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if len(mock.SentMessages) != 1 {
		t.Fatalf("expected one notification, got %d", len(mock.SentMessages))
	}
	if mock.SentMessages[0].To != "+15551234567" {
		t.Errorf("unexpected recipient: %q", mock.SentMessages[0].To)
	}
}

func TestCompleteSkipsNotificationOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	mock := notify.NewMockClient()
	submitter := NewSubmitter(store.NewInMemoryStore(),
		WithProfileEndpoint(srv.URL),
		WithNotifier(mock, "+15551234567"),
	)

	if _, err := submitter.Complete(context.Background(), "p1", completedData()); err == nil {
		t.Error("expected submission error")
	}
	if len(mock.SentMessages) != 0 {
		t.Errorf("expected no notification on failure, got %d", len(mock.SentMessages))
	}
}

func TestBuildProfile(t *testing.T) {
	profile := BuildProfile(completedData())
	if profile.BusinessName != "Mike's Plumbing Business" {
		t.Errorf("unexpected business name: %q", profile.BusinessName)
	}
	if profile.BusinessType != "plumbing" {
		t.Errorf("unexpected business type: %q", profile.BusinessType)
	}
	if profile.Industry != "plumbing" {
		t.Errorf("unexpected industry: %q", profile.Industry)
	}
	if profile.MonthlyRevenueRange != "$30K-$75K" {
		t.Errorf("unexpected revenue range: %q", profile.MonthlyRevenueRange)
	}
	if profile.OnboardingData.Name != "Mike" {
		t.Error("expected raw answers embedded in the profile")
	}
}

func TestBuildProfileDefaults(t *testing.T) {
	profile := BuildProfile(models.ExtractedData{})
	if profile.BusinessName != "there's Construction Business" {
		t.Errorf("unexpected default business name: %q", profile.BusinessName)
	}
	if profile.Industry != DefaultIndustry {
		t.Errorf("expected default industry, got %q", profile.Industry)
	}
	if profile.MonthlyRevenueRange != DefaultRevenueRange {
		t.Errorf("expected default revenue range, got %q", profile.MonthlyRevenueRange)
	}
}

func TestRevenueRange(t *testing.T) {
	tests := []struct {
		size     string
		years    string
		expected string
	}{
		{"solo", "just_starting", "$0-$5K"},
		{"solo", "veteran", "$15K-$30K"},
		{"small_crew", "establishing", "$20K-$50K"},
		{"medium_crew", "experienced", "$100K-$250K"},
		{"large_crew", "veteran", "$400K-$1M"},
		{"", "", DefaultRevenueRange},
		{"solo", "unknown", DefaultRevenueRange},
		{"unknown", "veteran", DefaultRevenueRange},
	}
	for _, tt := range tests {
		if got := RevenueRange(tt.size, tt.years); got != tt.expected {
			t.Errorf("RevenueRange(%q, %q): expected %q, got %q", tt.size, tt.years, tt.expected, got)
		}
	}
}

func TestTradeTitle(t *testing.T) {
	tests := []struct {
		trade    string
		expected string
	}{
		{"plumbing", "Plumbing"},
		{"hvac", "HVAC"},
		{"general_contracting", "General Contracting"},
		{"", "Construction"},
	}
	for _, tt := range tests {
		if got := tradeTitle(tt.trade); got != tt.expected {
			t.Errorf("tradeTitle(%q): expected %q, got %q", tt.trade, tt.expected, got)
		}
	}
}
