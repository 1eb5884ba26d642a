// Package models defines completion types for the onboarding flow.
package models

// CompletionResult reports the outcome of the completion sequence. The flow
// always redirects the participant; ProfileCreated records whether the
// profile POST actually succeeded.
type CompletionResult struct {
	Message              string `json:"message"`
	RedirectURL          string `json:"redirect_url"`
	RedirectDelaySeconds int    `json:"redirect_delay_seconds"`
	ProfileCreated       bool   `json:"profile_created"`
}
