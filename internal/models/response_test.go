package models

import "testing"

func TestAPIResponseBuilder(t *testing.T) {
	resp := NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage("done").
		WithResult(map[string]string{"key": "value"}).
		Build()

	if resp.Status != string(APIStatusOK) {
		t.Errorf("expected status %q, got %q", APIStatusOK, resp.Status)
	}
	if resp.Message != "done" {
		t.Errorf("expected message 'done', got %q", resp.Message)
	}
	if resp.Result == nil {
		t.Error("expected result to be set")
	}
}

func TestResponseHelpers(t *testing.T) {
	if resp := Success("data"); resp.Status != string(APIStatusOK) || resp.Result != "data" {
		t.Errorf("Success: unexpected response %+v", resp)
	}
	if resp := SuccessWithMessage("hi", nil); resp.Status != string(APIStatusOK) || resp.Message != "hi" {
		t.Errorf("SuccessWithMessage: unexpected response %+v", resp)
	}
	if resp := Error("boom"); resp.Status != string(APIStatusError) || resp.Message != "boom" {
		t.Errorf("Error: unexpected response %+v", resp)
	}
	if resp := Completed("all set", "r"); resp.Status != string(APIStatusCompleted) || resp.Message != "all set" || resp.Result != "r" {
		t.Errorf("Completed: unexpected response %+v", resp)
	}
}
