// Package models defines the core data structures for Cora Onboarding.
//
// It includes the onboarding phase enum, the per-phase answer record, and the
// request/response types shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Phase identifies one fixed step in the onboarding question sequence.
type Phase string

const (
	PhaseGreeting          Phase = "greeting"
	PhaseBusinessDiscovery Phase = "business_discovery"
	PhaseYearsExperience   Phase = "years_experience"
	PhaseBusinessSize      Phase = "business_size"
	PhaseServiceArea       Phase = "service_area"
	PhaseCustomerType      Phase = "customer_type"
	PhaseCurrentTracking   Phase = "current_tracking"
	PhaseBusySeason        Phase = "busy_season"
	PhaseMainChallenge     Phase = "main_challenge"
	PhaseBusinessGoal      Phase = "business_goal"
	PhaseCompletion        Phase = "completion"
)

// phaseOrder is the authoritative visit order. Phases are visited in exactly
// this order, no skipping, no branching.
var phaseOrder = []Phase{
	PhaseGreeting,
	PhaseBusinessDiscovery,
	PhaseYearsExperience,
	PhaseBusinessSize,
	PhaseServiceArea,
	PhaseCustomerType,
	PhaseCurrentTracking,
	PhaseBusySeason,
	PhaseMainChallenge,
	PhaseBusinessGoal,
	PhaseCompletion,
}

// PhaseOrder returns a copy of the fixed phase sequence.
func PhaseOrder() []Phase {
	order := make([]Phase, len(phaseOrder))
	copy(order, phaseOrder)
	return order
}

// PhaseCount returns the number of phases in the sequence.
func PhaseCount() int {
	return len(phaseOrder)
}

// PhaseAt returns the phase at the given step index, clamped to the terminal
// phase for out-of-range indices.
func PhaseAt(stepIndex int) Phase {
	if stepIndex < 0 {
		return phaseOrder[0]
	}
	if stepIndex >= len(phaseOrder) {
		return phaseOrder[len(phaseOrder)-1]
	}
	return phaseOrder[stepIndex]
}

// Index returns the position of p in the phase sequence, or -1 if p is not a
// known phase.
func (p Phase) Index() int {
	for i, candidate := range phaseOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Terminal reports whether p is the completion phase.
func (p Phase) Terminal() bool {
	return p == PhaseCompletion
}

// IsValidPhase checks if the given phase is part of the sequence.
func IsValidPhase(p Phase) bool {
	return p.Index() >= 0
}

// InputKind describes what input a phase prompt accepts.
type InputKind string

const (
	// InputFreeText accepts a typed answer.
	InputFreeText InputKind = "free_text"
	// InputSingleSelect accepts exactly one choice and advances immediately.
	InputSingleSelect InputKind = "single_select"
	// InputMultiSelect accepts one or more choices plus an explicit continue.
	InputMultiSelect InputKind = "multi_select"
	// InputCompletion marks the terminal phase; no input is collected.
	InputCompletion InputKind = "completion"
)

// ExtractedData accumulates the participant's answers, one field per phase.
// Single-select phases store a scalar; multi-select phases store a non-empty
// slice.
type ExtractedData struct {
	Name            string   `json:"name,omitempty"`
	BusinessType    []string `json:"businessType,omitempty"`
	YearsInBusiness string   `json:"yearsInBusiness,omitempty"`
	BusinessSize    string   `json:"businessSize,omitempty"`
	ServiceArea     string   `json:"serviceArea,omitempty"`
	CustomerType    []string `json:"customerType,omitempty"`
	TrackingMethod  []string `json:"trackingMethod,omitempty"`
	BusySeason      []string `json:"busySeason,omitempty"`
	MainChallenge   []string `json:"mainChallenge,omitempty"`
	BusinessGoal    []string `json:"businessGoal,omitempty"`
}

// Clone returns a deep copy of the record.
func (d ExtractedData) Clone() ExtractedData {
	out := d
	out.BusinessType = append([]string(nil), d.BusinessType...)
	out.CustomerType = append([]string(nil), d.CustomerType...)
	out.TrackingMethod = append([]string(nil), d.TrackingMethod...)
	out.BusySeason = append([]string(nil), d.BusySeason...)
	out.MainChallenge = append([]string(nil), d.MainChallenge...)
	out.BusinessGoal = append([]string(nil), d.BusinessGoal...)
	return out
}

// Merge overlays other onto d, with other's populated fields winning on
// collision. Used when restoring a persisted snapshot into an in-memory
// record.
func (d *ExtractedData) Merge(other ExtractedData) {
	if other.Name != "" {
		d.Name = other.Name
	}
	if len(other.BusinessType) > 0 {
		d.BusinessType = append([]string(nil), other.BusinessType...)
	}
	if other.YearsInBusiness != "" {
		d.YearsInBusiness = other.YearsInBusiness
	}
	if other.BusinessSize != "" {
		d.BusinessSize = other.BusinessSize
	}
	if other.ServiceArea != "" {
		d.ServiceArea = other.ServiceArea
	}
	if len(other.CustomerType) > 0 {
		d.CustomerType = append([]string(nil), other.CustomerType...)
	}
	if len(other.TrackingMethod) > 0 {
		d.TrackingMethod = append([]string(nil), other.TrackingMethod...)
	}
	if len(other.BusySeason) > 0 {
		d.BusySeason = append([]string(nil), other.BusySeason...)
	}
	if len(other.MainChallenge) > 0 {
		d.MainChallenge = append([]string(nil), other.MainChallenge...)
	}
	if len(other.BusinessGoal) > 0 {
		d.BusinessGoal = append([]string(nil), other.BusinessGoal...)
	}
}

// ConversationRole identifies the author of a transcript entry.
type ConversationRole string

const (
	// RoleUser marks entries authored by the participant.
	RoleUser ConversationRole = "user"
	// RoleAssistant marks entries authored by the wizard.
	RoleAssistant ConversationRole = "assistant"
)

// ConversationEntry is one exchanged message in the onboarding transcript.
// The transcript is append-only and display-only; it never drives control
// flow.
type ConversationEntry struct {
	Role    ConversationRole `json:"role"`
	Content string           `json:"content"`
	Time    time.Time        `json:"time"`
}

// ChoiceOption represents a selectable option presented for a phase.
type ChoiceOption struct {
	Value       string `json:"value"` // canonical value captured on selection
	Title       string `json:"title"` // label shown to the participant
	Description string `json:"description,omitempty"`
}

// PhasePrompt is what the wizard presents for one phase: the question plus
// the input affordance.
type PhasePrompt struct {
	Phase         Phase          `json:"phase"`
	Message       string         `json:"message"`
	InputKind     InputKind      `json:"input_kind"`
	Options       []ChoiceOption `json:"options,omitempty"`
	MinSelections int            `json:"min_selections,omitempty"`
}

// BusinessProfile is the payload submitted to the profile-creation endpoint
// when onboarding completes.
type BusinessProfile struct {
	BusinessName        string        `json:"businessName"`
	BusinessType        string        `json:"businessType"`
	Industry            string        `json:"industry"`
	MonthlyRevenueRange string        `json:"monthlyRevenueRange"`
	OnboardingData      ExtractedData `json:"onboardingData"`
}

// Validation constants for input validation
const (
	// MaxAnswerLength defines the maximum allowed length for a typed answer
	MaxAnswerLength = 512
	// MaxSelectionsCount defines the maximum number of selections accepted in
	// a single choice submission
	MaxSelectionsCount = 10
)

// Error variables for better error handling and testability
var (
	ErrEmptyParticipantID = errors.New("participant_id cannot be empty")
	ErrEmptyAnswer        = errors.New("answer cannot be empty")
	ErrAnswerTooLong      = errors.New("answer exceeds maximum length")
	ErrNoSelections       = errors.New("at least one selection is required")
	ErrTooManySelections  = errors.New("too many selections")
	ErrEmptySelection     = errors.New("selection value cannot be empty")
)

// StartRequest is the payload for starting or resuming an onboarding session.
type StartRequest struct {
	ParticipantID string `json:"participant_id"`
	Resume        bool   `json:"resume,omitempty"`
}

// Validate checks the start request fields.
func (r *StartRequest) Validate() error {
	if strings.TrimSpace(r.ParticipantID) == "" {
		return ErrEmptyParticipantID
	}
	return nil
}

// TextAnswerRequest is the payload for submitting a typed answer.
type TextAnswerRequest struct {
	ParticipantID string `json:"participant_id"`
	Answer        string `json:"answer"`
}

// Validate checks the text answer request fields. An answer that is empty
// after trimming is rejected here so the engine never sees it.
func (r *TextAnswerRequest) Validate() error {
	if strings.TrimSpace(r.ParticipantID) == "" {
		return ErrEmptyParticipantID
	}
	if strings.TrimSpace(r.Answer) == "" {
		return ErrEmptyAnswer
	}
	if len(r.Answer) > MaxAnswerLength {
		return ErrAnswerTooLong
	}
	return nil
}

// ChoiceAnswerRequest is the payload for submitting one or more selections.
type ChoiceAnswerRequest struct {
	ParticipantID string   `json:"participant_id"`
	Values        []string `json:"values"`
}

// Validate checks the choice answer request fields.
func (r *ChoiceAnswerRequest) Validate() error {
	if strings.TrimSpace(r.ParticipantID) == "" {
		return ErrEmptyParticipantID
	}
	if len(r.Values) == 0 {
		return ErrNoSelections
	}
	if len(r.Values) > MaxSelectionsCount {
		return ErrTooManySelections
	}
	for _, v := range r.Values {
		if strings.TrimSpace(v) == "" {
			return ErrEmptySelection
		}
	}
	return nil
}
