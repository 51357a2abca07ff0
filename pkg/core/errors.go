package core

import (
	"errors"
	"fmt"
)

// Kind classifies session failures. The controller uses the kind to decide
// whether a failure is fatal to the session and what the user should do next.
type Kind string

const (
	// KindDeviceDenied means the microphone or camera could not be acquired.
	// Fatal to the session; the user must grant access and retry.
	KindDeviceDenied Kind = "device_denied"

	// KindNetworkUnstable covers transient transport failures. Fatal to the
	// session, surfaced with a retry suggestion.
	KindNetworkUnstable Kind = "network_unstable"

	// KindRemoteRejected means the remote model refused the connection
	// (auth/permission). Surfaced as session-expired.
	KindRemoteRejected Kind = "remote_rejected"

	// KindServerClosed means the remote closed the channel when the local
	// side did not request it.
	KindServerClosed Kind = "server_closed"

	// KindRemoteError is a generic remote channel failure that matched no
	// more specific classification.
	KindRemoteError Kind = "remote_error"

	// KindDecodeFailure marks a single undecodable inbound audio buffer.
	// Logged and skipped, never escalated.
	KindDecodeFailure Kind = "decode_failure"

	// KindAnalysisParse marks an unrecoverable analyzer payload. Always
	// downgraded to a placeholder report.
	KindAnalysisParse Kind = "analysis_parse"

	// KindConfig marks a missing or invalid process configuration value,
	// such as an absent API credential.
	KindConfig Kind = "config"
)

// Error is the session error type. It carries a classification kind, a
// human-readable message, and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error wrapping.
func (e *Error) Unwrap() error { return e.Cause }

// Fatal reports whether an error of this kind must move the session to the
// Error state. Non-fatal kinds are logged and skipped where they occur.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case KindDecodeFailure, KindAnalysisParse:
		return false
	default:
		return true
	}
}

// New creates an Error with an explicit kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NewDeviceDenied creates a device acquisition error.
func NewDeviceDenied(message string, cause error) *Error {
	return &Error{Kind: KindDeviceDenied, Message: message, Cause: cause}
}

// NewNetworkUnstable creates a transient transport error.
func NewNetworkUnstable(message string, cause error) *Error {
	return &Error{Kind: KindNetworkUnstable, Message: message, Cause: cause}
}

// NewRemoteRejected creates an auth/permission rejection error.
func NewRemoteRejected(message string, cause error) *Error {
	return &Error{Kind: KindRemoteRejected, Message: message, Cause: cause}
}

// NewServerClosed creates an unexpected-close error.
func NewServerClosed(message string) *Error {
	return &Error{Kind: KindServerClosed, Message: message}
}

// NewConfig creates a configuration error.
func NewConfig(message string) *Error {
	return &Error{Kind: KindConfig, Message: message}
}

// KindOf extracts the classification kind from err, or an empty Kind when
// err is not a session Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Kind("")
}
