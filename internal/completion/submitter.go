// Package completion builds the business profile from the accumulated
// onboarding answers and submits it to the profile-creation endpoint.
//
// Submission is best-effort: the participant is always redirected to the
// dashboard, whether the profile POST succeeds, fails, or times out.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/corahq/cora-onboarding/internal/models"
	"github.com/corahq/cora-onboarding/internal/store"
)

// Default configuration constants
const (
	// DefaultDashboardURL is where participants land after onboarding
	DefaultDashboardURL = "/dashboard"
	// DefaultRequestTimeout bounds the profile POST; it doubles as the
	// fallback timer racing the network call
	DefaultRequestTimeout = 10 * time.Second
	// DefaultRedirectDelaySeconds is the visible countdown before the
	// redirect on success
	DefaultRedirectDelaySeconds = 3
	// DefaultFallbackDelaySeconds is the redirect delay after a failed or
	// timed-out submission
	DefaultFallbackDelaySeconds = 5
	// DefaultIndustry is used when no trade was captured
	DefaultIndustry = "construction"
	// DefaultRevenueRange covers size/experience combinations missing from
	// the lookup table
	DefaultRevenueRange = "$10K-$50K"
)

// Completion messages shown in the transcript.
const (
	successMessageFormat = "All set, %s! Your business profile is ready. Taking you to your dashboard..."
	failureMessage       = "Sorry, we hit a snag saving your profile. No worries, let's get you to your dashboard anyway."
)

// revenueRanges maps (business size, years in business) to an estimated
// monthly revenue range.
var revenueRanges = map[string]map[string]string{
	"solo": {
		"just_starting": "$0-$5K",
		"establishing":  "$5K-$15K",
		"experienced":   "$10K-$25K",
		"veteran":       "$15K-$30K",
	},
	"small_crew": {
		"just_starting": "$10K-$30K",
		"establishing":  "$20K-$50K",
		"experienced":   "$30K-$75K",
		"veteran":       "$40K-$100K",
	},
	"medium_crew": {
		"just_starting": "$50K-$100K",
		"establishing":  "$75K-$150K",
		"experienced":   "$100K-$250K",
		"veteran":       "$150K-$300K",
	},
	"large_crew": {
		"just_starting": "$100K-$250K",
		"establishing":  "$150K-$400K",
		"experienced":   "$250K-$600K",
		"veteran":       "$400K-$1M",
	},
}

// Notifier sends a notification message. Satisfied by the notify package's
// Twilio client and its mock.
type Notifier interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// Opts holds configuration options for the Submitter.
type Opts struct {
	ProfileEndpoint string
	DashboardURL    string
	RequestTimeout  time.Duration
	HTTPClient      *http.Client
	CookieName      string
	CookieValue     string
	Notifier        Notifier
	NotifyTo        string
}

// Option defines a configuration option for the Submitter.
type Option func(*Opts)

// WithProfileEndpoint sets the profile-creation endpoint URL.
func WithProfileEndpoint(url string) Option {
	return func(o *Opts) { o.ProfileEndpoint = url }
}

// WithDashboardURL sets the post-onboarding redirect target.
func WithDashboardURL(url string) Option {
	return func(o *Opts) { o.DashboardURL = url }
}

// WithRequestTimeout bounds the profile POST.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Opts) { o.RequestTimeout = d }
}

// WithHTTPClient injects the HTTP client used for the profile POST.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = client }
}

// WithSessionCookie attaches the ambient session cookie to the profile POST.
func WithSessionCookie(name, value string) Option {
	return func(o *Opts) {
		o.CookieName = name
		o.CookieValue = value
	}
}

// WithNotifier sends a notification to the given number once a profile was
// created. Optional; failures are logged and never fatal.
func WithNotifier(n Notifier, to string) Option {
	return func(o *Opts) {
		o.Notifier = n
		o.NotifyTo = to
	}
}

// Submitter runs the completion sequence for finished onboarding sessions.
type Submitter struct {
	st           store.Store
	endpoint     string
	dashboardURL string
	client       *http.Client
	cookieName   string
	cookieValue  string
	notifier     Notifier
	notifyTo     string
}

// NewSubmitter creates a Submitter backed by the given store.
func NewSubmitter(st store.Store, opts ...Option) *Submitter {
	cfg := Opts{
		DashboardURL:   DefaultDashboardURL,
		RequestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}
	slog.Debug("Submitter created", "endpoint_set", cfg.ProfileEndpoint != "", "dashboard", cfg.DashboardURL, "notifier_set", cfg.Notifier != nil)
	return &Submitter{
		st:           st,
		endpoint:     cfg.ProfileEndpoint,
		dashboardURL: cfg.DashboardURL,
		client:       client,
		cookieName:   cfg.CookieName,
		cookieValue:  cfg.CookieValue,
		notifier:     cfg.Notifier,
		notifyTo:     cfg.NotifyTo,
	}
}

// Complete builds the business profile, submits it, and reports the redirect
// outcome. The HTTP client's timeout is the fallback timer: a request that
// never returns is abandoned and the failure path redirects anyway. The
// snapshot is cleared and the answer copy saved regardless of the submission
// outcome, so a reload never shows a stale "all set" state. The returned
// error reports the submission failure for logging; the result is always
// usable.
func (s *Submitter) Complete(ctx context.Context, participantID string, data models.ExtractedData) (models.CompletionResult, error) {
	profile := BuildProfile(data)
	submitErr := s.submitProfile(ctx, profile)

	if s.st != nil {
		if err := s.st.DeleteSnapshot(participantID); err != nil {
			slog.Warn("Submitter snapshot clear failed", "error", err, "participantID", participantID)
		}
		if err := s.st.SaveUserData(participantID, data); err != nil {
			slog.Warn("Submitter user data save failed", "error", err, "participantID", participantID)
		}
	}

	result := models.CompletionResult{RedirectURL: s.dashboardURL}
	if submitErr != nil {
		slog.Error("Submitter profile submission failed", "error", submitErr, "participantID", participantID)
		result.Message = failureMessage
		result.RedirectDelaySeconds = DefaultFallbackDelaySeconds
		return result, submitErr
	}

	slog.Info("Submitter profile created", "participantID", participantID, "businessName", profile.BusinessName)
	result.Message = fmt.Sprintf(successMessageFormat, firstName(data.Name))
	result.RedirectDelaySeconds = DefaultRedirectDelaySeconds
	result.ProfileCreated = true
	s.notify(ctx, profile)
	return result, nil
}

// submitProfile POSTs the profile to the external endpoint with the session
// cookie attached. A missing endpoint is a configuration-level failure and
// takes the same path as a network error.
func (s *Submitter) submitProfile(ctx context.Context, profile models.BusinessProfile) error {
	if s.endpoint == "" {
		return fmt.Errorf("profile endpoint not configured")
	}

	body, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build profile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cookieName != "" {
		req.AddCookie(&http.Cookie{Name: s.cookieName, Value: s.cookieValue})
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("profile endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// notify sends the optional new-profile notification, best-effort.
func (s *Submitter) notify(ctx context.Context, profile models.BusinessProfile) {
	if s.notifier == nil || s.notifyTo == "" {
		return
	}
	body := fmt.Sprintf("New business profile created: %s", profile.BusinessName)
	if err := s.notifier.SendMessage(ctx, s.notifyTo, body); err != nil {
		slog.Warn("Submitter notification failed", "error", err, "to", s.notifyTo)
	}
}

// BuildProfile derives the business profile from the raw answers: the
// business name from the participant's name and first trade, and the revenue
// range from the size/experience lookup.
func BuildProfile(data models.ExtractedData) models.BusinessProfile {
	trade := ""
	if len(data.BusinessType) > 0 {
		trade = data.BusinessType[0]
	}

	businessName := fmt.Sprintf("%s's %s Business", firstName(data.Name), tradeTitle(trade))
	industry := trade
	if industry == "" {
		industry = DefaultIndustry
	}

	return models.BusinessProfile{
		BusinessName:        businessName,
		BusinessType:        trade,
		Industry:            industry,
		MonthlyRevenueRange: RevenueRange(data.BusinessSize, data.YearsInBusiness),
		OnboardingData:      data,
	}
}

// RevenueRange looks up the estimated monthly revenue range for a size and
// experience tier, falling back to the default for untabulated combinations.
func RevenueRange(businessSize, yearsInBusiness string) string {
	if byYears, ok := revenueRanges[businessSize]; ok {
		if r, ok := byYears[yearsInBusiness]; ok {
			return r
		}
	}
	return DefaultRevenueRange
}

// tradeTitle renders a trade value like "general_contracting" as a display
// title like "General Contracting".
func tradeTitle(trade string) string {
	if trade == "" {
		return "Construction"
	}
	words := strings.Split(trade, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		if strings.EqualFold(w, "hvac") {
			words[i] = "HVAC"
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// firstName trims the captured name for display, defaulting for sessions
// that somehow reached completion without one.
func firstName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "there"
	}
	return name
}
