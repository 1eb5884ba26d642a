// Package flow defines the pluggable prompt-strategy registry.
package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corahq/cora-onboarding/internal/models"
)

// Strategy names.
const (
	// StrategyLinear walks the fixed phase table. The sole active strategy.
	StrategyLinear = "linear"
	// StrategyTags asks the chat-completion client for the next message and
	// parses control tags to pick the choice UI. Registered but never the
	// default.
	StrategyTags = "tags"
)

// PromptStrategy decides what to present for a phase. Strategies share the
// phase-advance interface so the tag-driven variant can be swapped in without
// touching the engine.
type PromptStrategy interface {
	NextPrompt(ctx context.Context, participantID string, phase models.Phase, data models.ExtractedData) (models.PhasePrompt, error)
}

var registry = make(map[string]PromptStrategy)

// Register associates a strategy name with an implementation.
func Register(name string, strategy PromptStrategy) {
	registry[name] = strategy
}

// Get retrieves the strategy for a given name.
func Get(name string) (PromptStrategy, bool) {
	strategy, ok := registry[name]
	return strategy, ok
}

// NextPrompt finds and runs the named strategy.
func NextPrompt(ctx context.Context, name, participantID string, phase models.Phase, data models.ExtractedData) (models.PhasePrompt, error) {
	if strategy, ok := Get(name); ok {
		prompt, err := strategy.NextPrompt(ctx, participantID, phase, data)
		if err != nil {
			slog.Error("Flow strategy error", "strategy", name, "phase", phase, "participantID", participantID, "error", err)
		}
		return prompt, err
	}
	slog.Error("No strategy registered", "strategy", name, "phase", phase)
	return models.PhasePrompt{}, fmt.Errorf("no strategy registered for name %s", name)
}

// Register default strategies
func init() {
	Register(StrategyLinear, &LinearStrategy{})
	Register(StrategyTags, &TagStrategy{})
}
