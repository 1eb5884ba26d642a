// Package flow implements the tag-driven prompt strategy.
//
// This is the AI-branching path the product shipped disabled: the chat model
// writes the next message and embeds a control tag such as [business_types]
// that selects which choice catalog to render. It stays behind the same
// PromptStrategy interface as the linear table and is never the default.
package flow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/corahq/cora-onboarding/internal/genai"
	"github.com/corahq/cora-onboarding/internal/models"
	"github.com/openai/openai-go"
)

// tagPattern matches [tag_name] control markers in a model response.
var tagPattern = regexp.MustCompile(`\[([a-z_]+)\]`)

// tagFields maps control tags to the catalog field they select.
var tagFields = map[string]FieldKey{
	"business_types":   FieldBusinessType,
	"years_experience": FieldYearsInBusiness,
	"business_size":    FieldBusinessSize,
	"service_area":     FieldServiceArea,
	"customer_types":   FieldCustomerType,
	"tracking_methods": FieldTrackingMethod,
	"busy_seasons":     FieldBusySeason,
	"pain_points":      FieldMainChallenge,
	"business_goals":   FieldBusinessGoal,
}

const tagSystemPrompt = `You are Cora, a friendly onboarding assistant for construction trade businesses.
Ask exactly one question per message. When the question calls for a choice list,
append the matching control tag on its own: [business_types], [years_experience],
[business_size], [service_area], [customer_types], [tracking_methods],
[busy_seasons], [pain_points], or [business_goals]. A question answered by
typing carries no tag.`

// TagStrategy asks the chat client for the next message and parses its
// control tag to decide which choice UI to present.
type TagStrategy struct {
	Client genai.ClientInterface
}

// SetClient injects the chat-completion client. A strategy without a client
// reports an error from NextPrompt, and the engine falls back to the linear
// table.
func (s *TagStrategy) SetClient(client genai.ClientInterface) {
	s.Client = client
}

// NextPrompt generates the next message and derives the prompt's input kind
// and options from its control tag.
func (s *TagStrategy) NextPrompt(ctx context.Context, participantID string, phase models.Phase, data models.ExtractedData) (models.PhasePrompt, error) {
	if s.Client == nil {
		return models.PhasePrompt{}, fmt.Errorf("tag strategy has no chat client")
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(tagSystemPrompt),
		openai.SystemMessage(buildDataContext(phase, data)),
		openai.UserMessage(fmt.Sprintf("Produce the question for the %s step.", phase)),
	}
	response, err := s.Client.GenerateWithMessages(ctx, messages)
	if err != nil {
		return models.PhasePrompt{}, fmt.Errorf("failed to generate tagged prompt: %w", err)
	}

	message, field, tagged := ParseControlTag(response)
	prompt := models.PhasePrompt{
		Phase:     phase,
		Message:   message,
		InputKind: models.InputFreeText,
	}
	if !tagged {
		return prompt, nil
	}

	catalog := catalogForField(field)
	if catalog == nil {
		return prompt, nil
	}
	prompt.Options = append([]models.ChoiceOption(nil), catalog.options...)
	if catalog.multi {
		prompt.InputKind = models.InputMultiSelect
		prompt.MinSelections = 1
	} else {
		prompt.InputKind = models.InputSingleSelect
	}
	return prompt, nil
}

// ParseControlTag strips the first recognized control tag from a model
// response. It returns the cleaned message, the field the tag selects, and
// whether a known tag was present. Unrecognized tags are left in place.
func ParseControlTag(response string) (string, FieldKey, bool) {
	matches := tagPattern.FindAllStringSubmatch(response, -1)
	for _, match := range matches {
		field, ok := tagFields[match[1]]
		if !ok {
			continue
		}
		cleaned := strings.TrimSpace(strings.Replace(response, match[0], "", 1))
		return cleaned, field, true
	}
	return strings.TrimSpace(response), "", false
}

// buildDataContext summarizes what has already been captured so the model
// does not re-ask answered questions.
func buildDataContext(phase models.Phase, data models.ExtractedData) string {
	var sb strings.Builder
	sb.WriteString("CAPTURED SO FAR:\n")
	if data.Name != "" {
		fmt.Fprintf(&sb, "- name: %s\n", data.Name)
	}
	if len(data.BusinessType) > 0 {
		fmt.Fprintf(&sb, "- trades: %s\n", strings.Join(data.BusinessType, ", "))
	}
	if data.YearsInBusiness != "" {
		fmt.Fprintf(&sb, "- years in business: %s\n", data.YearsInBusiness)
	}
	if data.BusinessSize != "" {
		fmt.Fprintf(&sb, "- business size: %s\n", data.BusinessSize)
	}
	if data.ServiceArea != "" {
		fmt.Fprintf(&sb, "- service area: %s\n", data.ServiceArea)
	}
	if len(data.CustomerType) > 0 {
		fmt.Fprintf(&sb, "- customers: %s\n", strings.Join(data.CustomerType, ", "))
	}
	if len(data.TrackingMethod) > 0 {
		fmt.Fprintf(&sb, "- tracking: %s\n", strings.Join(data.TrackingMethod, ", "))
	}
	if len(data.BusySeason) > 0 {
		fmt.Fprintf(&sb, "- busy seasons: %s\n", strings.Join(data.BusySeason, ", "))
	}
	if len(data.MainChallenge) > 0 {
		fmt.Fprintf(&sb, "- challenges: %s\n", strings.Join(data.MainChallenge, ", "))
	}
	if len(data.BusinessGoal) > 0 {
		fmt.Fprintf(&sb, "- goals: %s\n", strings.Join(data.BusinessGoal, ", "))
	}
	fmt.Fprintf(&sb, "CURRENT STEP: %s\n", phase)
	return sb.String()
}
