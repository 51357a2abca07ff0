package session

// State is the session lifecycle state.
type State string

const (
	// StateIdle means no session exists.
	StateIdle State = "idle"

	// StateConnecting means resources are being acquired and the remote
	// channel is being opened.
	StateConnecting State = "connecting"

	// StateActive means the conversation is live.
	StateActive State = "active"

	// StateAnalyzing means the session ended and the transcript is being
	// scored.
	StateAnalyzing State = "analyzing"

	// StateFeedback means the report is ready.
	StateFeedback State = "feedback"

	// StateError is reached from any state on unrecoverable failure. The
	// transcript collected so far is preserved.
	StateError State = "error"
)
