package flow

import (
	"context"
	"fmt"

	"github.com/corahq/cora-onboarding/internal/models"
)

// LinearStrategy serves the fixed phase table as-is.
type LinearStrategy struct{}

// NextPrompt returns the table prompt for the phase.
func (s *LinearStrategy) NextPrompt(ctx context.Context, participantID string, phase models.Phase, data models.ExtractedData) (models.PhasePrompt, error) {
	prompt, ok := PromptForPhase(phase)
	if !ok {
		return models.PhasePrompt{}, fmt.Errorf("no prompt defined for phase %s", phase)
	}
	return prompt, nil
}
