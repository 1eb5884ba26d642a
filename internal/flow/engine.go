// Package flow implements the onboarding phase-progression engine.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/corahq/cora-onboarding/internal/models"
	"github.com/corahq/cora-onboarding/internal/store"
)

// Engine error variables.
var (
	ErrFlowCompleted    = errors.New("onboarding flow already completed")
	ErrSingleSelection  = errors.New("single-select phase requires exactly one selection")
	ErrUnknownSelection = errors.New("selection does not match any known option")
)

// WelcomeBackMessage greets a participant resuming a saved session.
const WelcomeBackMessage = "Welcome back! Let's pick up right where we left off."

// CompletionSubmitter runs the completion sequence once the flow reaches the
// terminal phase. Implementations must never block the participant: the
// returned result always carries a redirect, whether or not the profile
// submission succeeded.
type CompletionSubmitter interface {
	Complete(ctx context.Context, participantID string, data models.ExtractedData) (models.CompletionResult, error)
}

// StepResult is what one engine operation hands back to the caller: the
// prompt to present next, any assistant messages emitted along the way, and
// the completion outcome once the terminal phase is reached.
type StepResult struct {
	Prompt     *models.PhasePrompt      `json:"prompt,omitempty"`
	Messages   []string                 `json:"messages,omitempty"`
	Completion *models.CompletionResult `json:"completion,omitempty"`
	Resumed    bool                     `json:"resumed,omitempty"`
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithStrategy selects the prompt strategy by name. The linear phase table is
// the default; anything else falls back to it on error.
func WithStrategy(name string) EngineOption {
	return func(e *Engine) { e.strategyName = name }
}

// Engine owns one participant's onboarding session: the current phase, the
// accumulated answers, and the transition rules. It is the single source of
// truth for the session; the store is a passive mirror seeded only at start.
// A mutex serializes operations, so transitions are strictly sequential.
type Engine struct {
	mu            sync.Mutex
	participantID string
	phase         models.Phase
	stepIndex     int
	data          models.ExtractedData
	st            store.Store
	log           *ConversationLog
	strategyName  string
	submitter     CompletionSubmitter
}

// NewEngine creates an engine for one participant. The store and submitter
// may be nil in tests; a nil store disables persistence and a nil submitter
// skips the completion sequence.
func NewEngine(participantID string, st store.Store, submitter CompletionSubmitter, opts ...EngineOption) *Engine {
	e := &Engine{
		participantID: participantID,
		phase:         models.PhaseAt(0),
		st:            st,
		log:           NewConversationLog(participantID, st),
		strategyName:  StrategyLinear,
		submitter:     submitter,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins or resumes the session. A fresh start clears any persisted
// snapshot and resets to the greeting phase even if progress existed. A
// resume with a valid non-terminal snapshot restores the phase and merges the
// persisted answers, persisted values winning on collision; anything else
// behaves as a fresh start. The result carries the prompt for the current
// phase.
func (e *Engine) Start(ctx context.Context, resume bool) (*StepResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.phase = models.PhaseAt(0)
	e.stepIndex = 0
	e.data = models.ExtractedData{}

	result := &StepResult{}
	if resume {
		if snapshot := e.loadSnapshotLocked(); snapshot != nil {
			e.phase = snapshot.Phase
			e.stepIndex = snapshot.Phase.Index()
			e.data.Merge(snapshot.UserData)
			e.log.Append(models.RoleAssistant, WelcomeBackMessage)
			result.Messages = append(result.Messages, WelcomeBackMessage)
			result.Resumed = true
			slog.Info("Engine resumed session", "participantID", e.participantID, "phase", e.phase, "stepIndex", e.stepIndex)
		}
	} else {
		if e.st != nil {
			if err := e.st.DeleteSnapshot(e.participantID); err != nil {
				slog.Warn("Engine fresh start snapshot clear failed", "error", err, "participantID", e.participantID)
			}
		}
		slog.Debug("Engine fresh start", "participantID", e.participantID)
	}

	prompt := e.presentLocked(ctx)
	result.Prompt = &prompt
	return result, nil
}

// SubmitText processes a typed answer. Whitespace-only input is rejected
// with no transition. Otherwise the answer is appended to the transcript,
// captured into the current phase's field if that field is still empty
// (first write wins; resubmitting an answered phase has no effect on the
// data, preserved as observed), and the flow advances unconditionally.
func (e *Engine) SubmitText(ctx context.Context, raw string) (*StepResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, models.ErrEmptyAnswer
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase.Terminal() {
		return nil, ErrFlowCompleted
	}

	e.log.Append(models.RoleUser, raw)
	e.captureTextLocked(raw)
	return e.advanceLocked(ctx)
}

// SubmitChoices processes one or more selections. The data field to write is
// inferred by matching the selected values against the known value sets
// rather than trusting the current phase — preserved from the original
// capture logic, including the misfiling hazard were two catalogs ever to
// share a value. Single-select catalogs require exactly one value;
// multi-select catalogs require at least one. Exactly one advance occurs per
// accepted submission.
func (e *Engine) SubmitChoices(ctx context.Context, values []string) (*StepResult, error) {
	if len(values) == 0 {
		return nil, models.ErrNoSelections
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase.Terminal() {
		return nil, ErrFlowCompleted
	}

	catalog := resolveCatalog(values)
	if catalog == nil {
		return nil, ErrUnknownSelection
	}
	for _, v := range values {
		if !catalog.contains(v) {
			return nil, ErrUnknownSelection
		}
	}
	if !catalog.multi && len(values) != 1 {
		return nil, ErrSingleSelection
	}

	e.captureChoicesLocked(catalog, values)
	e.log.Append(models.RoleUser, JoinTitles(catalog, values))
	return e.advanceLocked(ctx)
}

// Phase returns the current phase.
func (e *Engine) Phase() models.Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// StepIndex returns the index of the current phase in the fixed order.
func (e *Engine) StepIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepIndex
}

// Data returns a copy of the accumulated answers.
func (e *Engine) Data() models.ExtractedData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.Clone()
}

// Transcript returns a copy of the conversation log.
func (e *Engine) Transcript() []models.ConversationEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.Entries()
}

// loadSnapshotLocked fetches a resumable snapshot, treating store errors,
// malformed data, unknown phases, and terminal snapshots all as "no
// snapshot".
func (e *Engine) loadSnapshotLocked() *models.ProgressSnapshot {
	if e.st == nil {
		return nil
	}
	snapshot, err := e.st.GetSnapshot(e.participantID)
	if err != nil {
		slog.Warn("Engine snapshot load failed, starting fresh", "error", err, "participantID", e.participantID)
		return nil
	}
	if snapshot == nil {
		return nil
	}
	if !models.IsValidPhase(snapshot.Phase) || snapshot.Phase.Terminal() {
		slog.Debug("Engine snapshot not resumable", "participantID", e.participantID, "phase", snapshot.Phase)
		return nil
	}
	return snapshot
}

// captureTextLocked writes raw into the field associated with the current
// phase only when that field is empty.
func (e *Engine) captureTextLocked(raw string) {
	switch phaseField[e.phase] {
	case FieldName:
		if e.data.Name == "" {
			e.data.Name = raw
		}
	case FieldYearsInBusiness:
		if e.data.YearsInBusiness == "" {
			e.data.YearsInBusiness = raw
		}
	case FieldBusinessSize:
		if e.data.BusinessSize == "" {
			e.data.BusinessSize = raw
		}
	case FieldServiceArea:
		if e.data.ServiceArea == "" {
			e.data.ServiceArea = raw
		}
	case FieldBusinessType:
		if len(e.data.BusinessType) == 0 {
			e.data.BusinessType = []string{raw}
		}
	case FieldCustomerType:
		if len(e.data.CustomerType) == 0 {
			e.data.CustomerType = []string{raw}
		}
	case FieldTrackingMethod:
		if len(e.data.TrackingMethod) == 0 {
			e.data.TrackingMethod = []string{raw}
		}
	case FieldBusySeason:
		if len(e.data.BusySeason) == 0 {
			e.data.BusySeason = []string{raw}
		}
	case FieldMainChallenge:
		if len(e.data.MainChallenge) == 0 {
			e.data.MainChallenge = []string{raw}
		}
	case FieldBusinessGoal:
		if len(e.data.BusinessGoal) == 0 {
			e.data.BusinessGoal = []string{raw}
		}
	}
}

// captureChoicesLocked writes the selections into the field the catalog
// resolves to: a scalar for single-select catalogs, a slice for multi-select.
func (e *Engine) captureChoicesLocked(catalog *choiceCatalog, values []string) {
	switch catalog.field {
	case FieldBusinessType:
		e.data.BusinessType = append([]string(nil), values...)
	case FieldYearsInBusiness:
		e.data.YearsInBusiness = values[0]
	case FieldBusinessSize:
		e.data.BusinessSize = values[0]
	case FieldServiceArea:
		e.data.ServiceArea = values[0]
	case FieldCustomerType:
		e.data.CustomerType = append([]string(nil), values...)
	case FieldTrackingMethod:
		e.data.TrackingMethod = append([]string(nil), values...)
	case FieldBusySeason:
		e.data.BusySeason = append([]string(nil), values...)
	case FieldMainChallenge:
		e.data.MainChallenge = append([]string(nil), values...)
	case FieldBusinessGoal:
		e.data.BusinessGoal = append([]string(nil), values...)
	}
}

// advanceLocked moves to the next phase (clamped to the terminal phase),
// persists the snapshot, and either runs the completion sequence or presents
// the next prompt.
func (e *Engine) advanceLocked(ctx context.Context) (*StepResult, error) {
	if e.stepIndex < models.PhaseCount()-1 {
		e.stepIndex++
	}
	e.phase = models.PhaseAt(e.stepIndex)
	e.persistLocked()
	slog.Info("Engine advanced phase", "participantID", e.participantID, "phase", e.phase, "stepIndex", e.stepIndex)

	if e.phase.Terminal() {
		return e.completeLocked(ctx), nil
	}

	prompt := e.presentLocked(ctx)
	return &StepResult{Prompt: &prompt}, nil
}

// presentLocked asks the configured strategy for the current phase's prompt,
// falling back to the linear table when an alternate strategy fails, and
// mirrors the rendered prompt into the transcript.
func (e *Engine) presentLocked(ctx context.Context) models.PhasePrompt {
	prompt, err := NextPrompt(ctx, e.strategyName, e.participantID, e.phase, e.data.Clone())
	if err != nil && e.strategyName != StrategyLinear {
		slog.Warn("Engine strategy failed, falling back to linear", "strategy", e.strategyName, "error", err, "participantID", e.participantID)
		prompt, err = NextPrompt(ctx, StrategyLinear, e.participantID, e.phase, e.data.Clone())
	}
	if err != nil {
		// The linear table covers every phase; this is unreachable for known
		// phases but keeps the transcript coherent if it ever fires.
		prompt = models.PhasePrompt{Phase: e.phase, InputKind: models.InputFreeText}
	}
	if prompt.Message != "" {
		e.log.Append(models.RoleAssistant, RenderPrompt(prompt))
	}
	return prompt
}

// persistLocked mirrors the session to the store. Failures are logged and
// swallowed: persistence is best-effort caching, not a durability guarantee.
func (e *Engine) persistLocked() {
	if e.st == nil {
		return
	}
	snapshot := models.ProgressSnapshot{
		ParticipantID: e.participantID,
		Phase:         e.phase,
		StepIndex:     e.stepIndex,
		UserData:      e.data.Clone(),
	}
	if err := e.st.SaveSnapshot(snapshot); err != nil {
		slog.Warn("Engine snapshot save failed", "error", err, "participantID", e.participantID, "phase", e.phase)
	}
}

// completeLocked runs the completion sequence. The submitter owns clearing
// the snapshot and persisting the answer copy; its result always redirects,
// so a backend failure never traps the participant.
func (e *Engine) completeLocked(ctx context.Context) *StepResult {
	result := &StepResult{}
	if e.submitter == nil {
		slog.Warn("Engine reached completion with no submitter", "participantID", e.participantID)
		return result
	}
	outcome, err := e.submitter.Complete(ctx, e.participantID, e.data.Clone())
	if err != nil {
		slog.Error("Engine completion submission failed", "error", err, "participantID", e.participantID)
	}
	if outcome.Message != "" {
		e.log.Append(models.RoleAssistant, outcome.Message)
	}
	result.Completion = &outcome
	return result
}
