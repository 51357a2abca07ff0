package live

// Event is one decoded inbound event from the remote channel. A single wire
// message may fan out into several events; partial text always precedes the
// turn-complete or interrupted flag decoded from the same message.
type Event interface {
	eventType() string
}

// InputTextEvent carries partial input-transcript text (what the candidate
// is saying, as the remote model hears it).
type InputTextEvent struct{ Text string }

func (InputTextEvent) eventType() string { return "input_text" }

// OutputTextEvent carries partial output-transcript text (what the model is
// saying).
type OutputTextEvent struct{ Text string }

func (OutputTextEvent) eventType() string { return "output_text" }

// AudioEvent carries one decoded inbound audio block.
type AudioEvent struct {
	PCM        []byte
	SampleRate int
}

func (AudioEvent) eventType() string { return "audio" }

// TurnCompleteEvent signals the model finished its reply.
type TurnCompleteEvent struct{}

func (TurnCompleteEvent) eventType() string { return "turn_complete" }

// InterruptedEvent signals the user interrupted the model mid-reply.
type InterruptedEvent struct{}

func (InterruptedEvent) eventType() string { return "interrupted" }

// ClosedEvent signals the channel closed. Only a close the local side did
// not request is an error.
type ClosedEvent struct{ SelfInitiated bool }

func (ClosedEvent) eventType() string { return "closed" }

// ErrorEvent carries a classified channel failure.
type ErrorEvent struct{ Err error }

func (ErrorEvent) eventType() string { return "error" }
