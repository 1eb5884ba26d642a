// Package models defines persistence structures for onboarding progress.
package models

import "time"

// ProgressSnapshot captures a participant's position in the onboarding flow.
// It is written after every phase transition, deleted at the start of a fresh
// session, and deleted again after the completion submission.
//
// Version and UpdatedAt make the last-writer-wins semantics of concurrent
// sessions explicit: each save increments Version, and a reader can tell a
// stale snapshot from a fresh one. The store never rejects an older writer.
type ProgressSnapshot struct {
	ParticipantID string        `json:"participant_id"`
	Phase         Phase         `json:"phase"`
	StepIndex     int           `json:"step_index"`
	UserData      ExtractedData `json:"user_data"`
	Version       int           `json:"version"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
