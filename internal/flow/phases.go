// Package flow implements the onboarding phase-progression engine.
//
// This file defines the fixed phase table: the prompt, input kind, and choice
// catalog for every phase in the sequence.
package flow

import "github.com/corahq/cora-onboarding/internal/models"

// FieldKey identifies which ExtractedData field a catalog's values belong to.
type FieldKey string

const (
	FieldName            FieldKey = "name"
	FieldBusinessType    FieldKey = "businessType"
	FieldYearsInBusiness FieldKey = "yearsInBusiness"
	FieldBusinessSize    FieldKey = "businessSize"
	FieldServiceArea     FieldKey = "serviceArea"
	FieldCustomerType    FieldKey = "customerType"
	FieldTrackingMethod  FieldKey = "trackingMethod"
	FieldBusySeason      FieldKey = "busySeason"
	FieldMainChallenge   FieldKey = "mainChallenge"
	FieldBusinessGoal    FieldKey = "businessGoal"
)

// choiceCatalog binds a value vocabulary to the data field it fills.
type choiceCatalog struct {
	field   FieldKey
	multi   bool
	options []models.ChoiceOption
}

// catalogs lists every known value set in registration order. Field
// resolution for a choice submission scans this list and picks the first
// catalog containing the selected value, rather than trusting the current
// phase. Two catalogs sharing a value would misfile data; the vocabularies
// below are disjoint, so the observed behavior is preserved without the
// hazard firing.
var catalogs = []choiceCatalog{
	{
		field: FieldBusinessType,
		multi: true,
		options: []models.ChoiceOption{
			{Value: "plumbing", Title: "Plumbing"},
			{Value: "electrical", Title: "Electrical"},
			{Value: "hvac", Title: "HVAC"},
			{Value: "carpentry", Title: "Carpentry"},
			{Value: "roofing", Title: "Roofing"},
			{Value: "painting", Title: "Painting"},
			{Value: "landscaping", Title: "Landscaping"},
			{Value: "flooring", Title: "Flooring"},
			{Value: "general_contracting", Title: "General Contracting"},
		},
	},
	{
		field: FieldYearsInBusiness,
		options: []models.ChoiceOption{
			{Value: "just_starting", Title: "Less than 1 year"},
			{Value: "establishing", Title: "1-3 years"},
			{Value: "experienced", Title: "4-10 years"},
			{Value: "veteran", Title: "More than 10 years"},
		},
	},
	{
		field: FieldBusinessSize,
		options: []models.ChoiceOption{
			{Value: "solo", Title: "Just me"},
			{Value: "small_crew", Title: "2-5 people"},
			{Value: "medium_crew", Title: "6-15 people"},
			{Value: "large_crew", Title: "More than 15 people"},
		},
	},
	{
		field: FieldServiceArea,
		options: []models.ChoiceOption{
			{Value: "local", Title: "My town and nearby"},
			{Value: "regional", Title: "Within about an hour's drive"},
			{Value: "statewide", Title: "Across the state"},
			{Value: "multi_state", Title: "Multiple states"},
		},
	},
	{
		field: FieldCustomerType,
		multi: true,
		options: []models.ChoiceOption{
			{Value: "homeowners", Title: "Homeowners"},
			{Value: "businesses", Title: "Businesses"},
			{Value: "property_managers", Title: "Property managers"},
			{Value: "general_contractors", Title: "General contractors"},
		},
	},
	{
		field: FieldTrackingMethod,
		multi: true,
		options: []models.ChoiceOption{
			{Value: "pen_paper", Title: "Pen and paper"},
			{Value: "spreadsheets", Title: "Spreadsheets"},
			{Value: "software", Title: "Business software"},
			{Value: "memory", Title: "It's all in my head"},
		},
	},
	{
		field: FieldBusySeason,
		multi: true,
		options: []models.ChoiceOption{
			{Value: "spring", Title: "Spring"},
			{Value: "summer", Title: "Summer"},
			{Value: "fall", Title: "Fall"},
			{Value: "winter", Title: "Winter"},
		},
	},
	{
		field: FieldMainChallenge,
		multi: true,
		options: []models.ChoiceOption{
			{Value: "finding_customers", Title: "Finding new customers"},
			{Value: "cash_flow", Title: "Cash flow and getting paid"},
			{Value: "scheduling", Title: "Scheduling jobs and crews"},
			{Value: "paperwork", Title: "Paperwork and invoicing"},
			{Value: "hiring", Title: "Hiring good people"},
			{Value: "pricing", Title: "Pricing jobs right"},
		},
	},
	{
		field: FieldBusinessGoal,
		multi: true,
		options: []models.ChoiceOption{
			{Value: "grow_revenue", Title: "Grow my revenue"},
			{Value: "more_free_time", Title: "Get more free time"},
			{Value: "get_organized", Title: "Get organized"},
			{Value: "win_bigger_jobs", Title: "Win bigger jobs"},
		},
	},
}

// catalogForField returns the catalog filling the given field, or nil.
func catalogForField(field FieldKey) *choiceCatalog {
	for i := range catalogs {
		if catalogs[i].field == field {
			return &catalogs[i]
		}
	}
	return nil
}

// resolveCatalog infers which catalog (and therefore which data field) a set
// of selected values belongs to by matching the first value against every
// catalog's value set, in registration order. This mirrors the value-based
// inference of the original capture logic instead of trusting the current
// phase.
func resolveCatalog(values []string) *choiceCatalog {
	if len(values) == 0 {
		return nil
	}
	for i := range catalogs {
		for _, opt := range catalogs[i].options {
			if opt.Value == values[0] {
				return &catalogs[i]
			}
		}
	}
	return nil
}

// titleFor returns the display title for a value within a catalog, falling
// back to the raw value for anything unrecognized.
func (c *choiceCatalog) titleFor(value string) string {
	for _, opt := range c.options {
		if opt.Value == value {
			return opt.Title
		}
	}
	return value
}

// contains reports whether the catalog's vocabulary includes the value.
func (c *choiceCatalog) contains(value string) bool {
	for _, opt := range c.options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// phasePrompts is the fixed phase → prompt/UI table. No branching.
var phasePrompts = map[models.Phase]models.PhasePrompt{
	models.PhaseGreeting: {
		Phase:     models.PhaseGreeting,
		Message:   "Hi! I'm Cora, and I'll help you get set up. What should I call you?",
		InputKind: models.InputFreeText,
	},
	models.PhaseBusinessDiscovery: {
		Phase:         models.PhaseBusinessDiscovery,
		Message:       "What type of construction work do you do?",
		InputKind:     models.InputMultiSelect,
		MinSelections: 1,
	},
	models.PhaseYearsExperience: {
		Phase:     models.PhaseYearsExperience,
		Message:   "How many years have you been in business?",
		InputKind: models.InputSingleSelect,
	},
	models.PhaseBusinessSize: {
		Phase:     models.PhaseBusinessSize,
		Message:   "What is your business size?",
		InputKind: models.InputSingleSelect,
	},
	models.PhaseServiceArea: {
		Phase:     models.PhaseServiceArea,
		Message:   "Where do you typically work?",
		InputKind: models.InputSingleSelect,
	},
	models.PhaseCustomerType: {
		Phase:         models.PhaseCustomerType,
		Message:       "Who are your typical customers?",
		InputKind:     models.InputMultiSelect,
		MinSelections: 1,
	},
	models.PhaseCurrentTracking: {
		Phase:         models.PhaseCurrentTracking,
		Message:       "How do you currently track your business?",
		InputKind:     models.InputMultiSelect,
		MinSelections: 1,
	},
	models.PhaseBusySeason: {
		Phase:         models.PhaseBusySeason,
		Message:       "When are you the busiest?",
		InputKind:     models.InputMultiSelect,
		MinSelections: 1,
	},
	models.PhaseMainChallenge: {
		Phase:         models.PhaseMainChallenge,
		Message:       "What is your biggest challenge right now?",
		InputKind:     models.InputMultiSelect,
		MinSelections: 1,
	},
	models.PhaseBusinessGoal: {
		Phase:         models.PhaseBusinessGoal,
		Message:       "What is your primary business goal?",
		InputKind:     models.InputMultiSelect,
		MinSelections: 1,
	},
	models.PhaseCompletion: {
		Phase:     models.PhaseCompletion,
		InputKind: models.InputCompletion,
	},
}

// phaseField maps each phase to the data field its answer fills.
var phaseField = map[models.Phase]FieldKey{
	models.PhaseGreeting:          FieldName,
	models.PhaseBusinessDiscovery: FieldBusinessType,
	models.PhaseYearsExperience:   FieldYearsInBusiness,
	models.PhaseBusinessSize:      FieldBusinessSize,
	models.PhaseServiceArea:       FieldServiceArea,
	models.PhaseCustomerType:      FieldCustomerType,
	models.PhaseCurrentTracking:   FieldTrackingMethod,
	models.PhaseBusySeason:        FieldBusySeason,
	models.PhaseMainChallenge:     FieldMainChallenge,
	models.PhaseBusinessGoal:      FieldBusinessGoal,
}

// PromptForPhase returns the fixed prompt for a phase, with the catalog's
// options attached for choice phases.
func PromptForPhase(phase models.Phase) (models.PhasePrompt, bool) {
	prompt, ok := phasePrompts[phase]
	if !ok {
		return models.PhasePrompt{}, false
	}
	if prompt.InputKind == models.InputSingleSelect || prompt.InputKind == models.InputMultiSelect {
		if catalog := catalogForField(phaseField[phase]); catalog != nil {
			prompt.Options = append([]models.ChoiceOption(nil), catalog.options...)
		}
	}
	return prompt, true
}
