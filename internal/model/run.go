package model

import "time"

// RunStatus is the lifecycle state of one interview run
type RunStatus string

const (
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
)

// ScreenSubmission records the answers a respondent submitted for one
// screen, keyed by entry id. The ordered list of submissions is enough to
// rebuild a run, because flow resolution is deterministic.
type ScreenSubmission struct {
	ScreenID  string                   `json:"screenId"`
	Responses map[string]ResponseValue `json:"responses"`
}

// SubmissionOutcome is the reportable result of one submission action
type SubmissionOutcome struct {
	ActionID string `json:"actionId"`
	Skipped  bool   `json:"skipped,omitempty"`
	RecordID string `json:"recordId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RunState is the cacheable snapshot of one in-flight or completed run
type RunState struct {
	ID              string              `json:"id"`
	InterviewID     string              `json:"interviewId"`
	Status          RunStatus           `json:"status"`
	CurrentScreenID string              `json:"currentScreenId,omitempty"`
	Submissions     []ScreenSubmission  `json:"submissions"`
	Outcomes        []SubmissionOutcome `json:"outcomes,omitempty"`
	StartedAt       time.Time           `json:"startedAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}
