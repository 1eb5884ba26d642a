package models

import (
	"testing"
)

func TestPhaseOrderIsStable(t *testing.T) {
	order := PhaseOrder()
	expected := []Phase{
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
	if len(order) != len(expected) {
		t.Fatalf("expected %d phases, got %d", len(expected), len(order))
	}
	for i, p := range expected {
		if order[i] != p {
			t.Errorf("phase %d: expected %s, got %s", i, p, order[i])
		}
	}
	if PhaseCount() != len(expected) {
		t.Errorf("PhaseCount: expected %d, got %d", len(expected), PhaseCount())
	}
}

func TestPhaseOrderReturnsCopy(t *testing.T) {
	order := PhaseOrder()
	order[0] = Phase("mutated")
	if PhaseOrder()[0] != PhaseGreeting {
		t.Error("mutating the returned slice changed the canonical order")
	}
}

func TestPhaseAtClamping(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		expected Phase
	}{
		{"first", 0, PhaseGreeting},
		{"middle", 3, PhaseBusinessSize},
		{"last", PhaseCount() - 1, PhaseCompletion},
		{"negative clamps to first", -1, PhaseGreeting},
		{"past end clamps to terminal", PhaseCount() + 5, PhaseCompletion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PhaseAt(tt.index); got != tt.expected {
				t.Errorf("PhaseAt(%d): expected %s, got %s", tt.index, tt.expected, got)
			}
		})
	}
}

func TestPhaseIndex(t *testing.T) {
	if got := PhaseGreeting.Index(); got != 0 {
		t.Errorf("greeting index: expected 0, got %d", got)
	}
	if got := PhaseCompletion.Index(); got != PhaseCount()-1 {
		t.Errorf("completion index: expected %d, got %d", PhaseCount()-1, got)
	}
	if got := Phase("bogus").Index(); got != -1 {
		t.Errorf("unknown phase index: expected -1, got %d", got)
	}
}

func TestPhaseTerminal(t *testing.T) {
	if !PhaseCompletion.Terminal() {
		t.Error("completion should be terminal")
	}
	if PhaseGreeting.Terminal() {
		t.Error("greeting should not be terminal")
	}
}

func TestIsValidPhase(t *testing.T) {
	for _, p := range PhaseOrder() {
		if !IsValidPhase(p) {
			t.Errorf("expected %s to be valid", p)
		}
	}
	if IsValidPhase(Phase("bogus")) {
		t.Error("expected bogus phase to be invalid")
	}
}

func TestExtractedDataClone(t *testing.T) {
	original := ExtractedData{
		Name:         "Mike",
		BusinessType: []string{"plumbing", "hvac"},
	}
	clone := original.Clone()
	clone.BusinessType[0] = "roofing"
	if original.BusinessType[0] != "plumbing" {
		t.Error("mutating the clone changed the original slice")
	}
}

func TestExtractedDataMerge(t *testing.T) {
	base := ExtractedData{
		Name:            "Mike",
		YearsInBusiness: "establishing",
	}
	incoming := ExtractedData{
		Name:         "Michael",
		BusinessType: []string{"electrical"},
	}
	base.Merge(incoming)

	if base.Name != "Michael" {
		t.Errorf("expected incoming name to win, got %q", base.Name)
	}
	if base.YearsInBusiness != "establishing" {
		t.Errorf("expected unpopulated incoming field to leave base intact, got %q", base.YearsInBusiness)
	}
	if len(base.BusinessType) != 1 || base.BusinessType[0] != "electrical" {
		t.Errorf("expected incoming business type, got %v", base.BusinessType)
	}
}

func TestExtractedDataMergeEmptyIsNoop(t *testing.T) {
	base := ExtractedData{Name: "Mike", BusinessSize: "solo"}
	base.Merge(ExtractedData{})
	if base.Name != "Mike" || base.BusinessSize != "solo" {
		t.Errorf("merging empty data changed the base: %+v", base)
	}
}

func TestStartRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     StartRequest
		wantErr error
	}{
		{"valid", StartRequest{ParticipantID: "p1"}, nil},
		{"valid resume", StartRequest{ParticipantID: "p1", Resume: true}, nil},
		{"empty participant", StartRequest{}, ErrEmptyParticipantID},
		{"whitespace participant", StartRequest{ParticipantID: "   "}, ErrEmptyParticipantID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err != tt.wantErr {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTextAnswerRequestValidate(t *testing.T) {
	longAnswer := make([]byte, MaxAnswerLength+1)
	for i := range longAnswer {
		longAnswer[i] = 'a'
	}

	tests := []struct {
		name    string
		req     TextAnswerRequest
		wantErr error
	}{
		{"valid", TextAnswerRequest{ParticipantID: "p1", Answer: "Mike"}, nil},
		{"empty participant", TextAnswerRequest{Answer: "Mike"}, ErrEmptyParticipantID},
		{"empty answer", TextAnswerRequest{ParticipantID: "p1"}, ErrEmptyAnswer},
		{"whitespace answer", TextAnswerRequest{ParticipantID: "p1", Answer: "  \t "}, ErrEmptyAnswer},
		{"answer too long", TextAnswerRequest{ParticipantID: "p1", Answer: string(longAnswer)}, ErrAnswerTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err != tt.wantErr {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestChoiceAnswerRequestValidate(t *testing.T) {
	tooMany := make([]string, MaxSelectionsCount+1)
	for i := range tooMany {
		tooMany[i] = "v"
	}

	tests := []struct {
		name    string
		req     ChoiceAnswerRequest
		wantErr error
	}{
		{"valid single", ChoiceAnswerRequest{ParticipantID: "p1", Values: []string{"solo"}}, nil},
		{"valid multi", ChoiceAnswerRequest{ParticipantID: "p1", Values: []string{"plumbing", "hvac"}}, nil},
		{"empty participant", ChoiceAnswerRequest{Values: []string{"solo"}}, ErrEmptyParticipantID},
		{"no selections", ChoiceAnswerRequest{ParticipantID: "p1"}, ErrNoSelections},
		{"too many selections", ChoiceAnswerRequest{ParticipantID: "p1", Values: tooMany}, ErrTooManySelections},
		{"blank selection", ChoiceAnswerRequest{ParticipantID: "p1", Values: []string{"solo", " "}}, ErrEmptySelection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err != tt.wantErr {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
