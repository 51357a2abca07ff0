package session

import "github.com/mockmate/mockmate/pkg/analyze"

// Event is a notification the controller emits toward the UI layer.
type Event interface {
	eventType() string
}

// StateChangedEvent reports a lifecycle transition.
type StateChangedEvent struct {
	From State
	To   State
}

func (StateChangedEvent) eventType() string { return "state_changed" }

// MirrorEvent carries the in-progress turn text for live display.
type MirrorEvent struct {
	Candidate string
	Model     string
}

func (MirrorEvent) eventType() string { return "mirror" }

// ReportReadyEvent carries the finished feedback report.
type ReportReadyEvent struct {
	Report analyze.Report
}

func (ReportReadyEvent) eventType() string { return "report_ready" }

// SessionErrorEvent reports the failure that moved the session to the error
// state.
type SessionErrorEvent struct {
	Err error
}

func (SessionErrorEvent) eventType() string { return "session_error" }
