package flow

import (
	"fmt"
	"strings"

	"github.com/corahq/cora-onboarding/internal/models"
)

// Presenter formatting constants
const (
	// PromptOptionFormat is the format string for rendering one choice option
	PromptOptionFormat = "\n%d. %s"
	// MultiSelectHint is appended to multi-select prompts
	MultiSelectHint = "\n(Select all that apply, then continue)"
)

// RenderPrompt formats a phase prompt into a single message body with
// numbered options, for transcript display and text-only clients.
func RenderPrompt(prompt models.PhasePrompt) string {
	body := prompt.Message
	for i, opt := range prompt.Options {
		label := opt.Title
		if opt.Description != "" {
			label = fmt.Sprintf("%s: %s", opt.Title, opt.Description)
		}
		body += fmt.Sprintf(PromptOptionFormat, i+1, label)
	}
	if prompt.InputKind == models.InputMultiSelect && len(prompt.Options) > 0 {
		body += MultiSelectHint
	}
	return body
}

// JoinTitles renders the selected values as the participant would say them:
// titles joined with commas and a final "and".
func JoinTitles(catalog *choiceCatalog, values []string) string {
	titles := make([]string, 0, len(values))
	for _, v := range values {
		if catalog != nil {
			titles = append(titles, catalog.titleFor(v))
		} else {
			titles = append(titles, v)
		}
	}
	switch len(titles) {
	case 0:
		return ""
	case 1:
		return titles[0]
	case 2:
		return titles[0] + " and " + titles[1]
	default:
		return strings.Join(titles[:len(titles)-1], ", ") + " and " + titles[len(titles)-1]
	}
}
