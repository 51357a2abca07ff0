package turns

import (
	"fmt"
	"math"
	"strings"
)

// InterruptMarker is appended to the model text of a turn that was flushed
// early because playback was forcibly stopped.
const InterruptMarker = " [interrupted]"

// Turn is one committed exchange: what the candidate said and what the
// model replied. Turns are ordered, append-only, and immutable once
// committed.
type Turn struct {
	Candidate   string
	Model       string
	Interrupted bool
}

// Aggregator accumulates streamed partial transcript text into discrete
// turns. It is owned by the session controller and mutated only on the
// controller's event-loop turn, so it carries no lock.
type Aggregator struct {
	candidate strings.Builder
	model     strings.Builder

	turns      []Turn
	transcript strings.Builder
	tokensUsed int

	onMirror    func(candidate, model string)
	onInterrupt func()
}

// New creates an empty aggregator.
func New() *Aggregator { return &Aggregator{} }

// SetMirror registers the live transcript mirror, called on every text
// update and on commit so a display can track the in-progress turn.
func (a *Aggregator) SetMirror(fn func(candidate, model string)) { a.onMirror = fn }

// SetInterruptHook registers the hook invoked synchronously when a turn is
// flushed by an interruption, before the turn commits. The controller
// points this at the playback scheduler's InterruptAll.
func (a *Aggregator) SetInterruptHook(fn func()) { a.onInterrupt = fn }

// AddCandidateText appends partial input-transcript text.
func (a *Aggregator) AddCandidateText(text string) {
	a.candidate.WriteString(text)
	a.mirror()
}

// AddModelText appends partial output-transcript text.
func (a *Aggregator) AddModelText(text string) {
	a.model.WriteString(text)
	a.mirror()
}

// CompleteTurn commits the pending accumulators as a finished turn. A turn
// with nothing accumulated is a no-op.
func (a *Aggregator) CompleteTurn() { a.commit(false) }

// InterruptTurn stops playback via the interrupt hook and commits the
// pending turn with the interruption marker.
func (a *Aggregator) InterruptTurn() {
	if a.onInterrupt != nil {
		a.onInterrupt()
	}
	a.commit(true)
}

func (a *Aggregator) commit(interrupted bool) {
	candidate := strings.TrimSpace(a.candidate.String())
	model := strings.TrimSpace(a.model.String())
	if candidate == "" && model == "" {
		return
	}

	// Estimate before the marker so interruptions don't inflate usage.
	a.tokensUsed += int(math.Ceil(float64(len(candidate)+len(model)) / 3.5))

	if interrupted {
		model += InterruptMarker
	}
	a.turns = append(a.turns, Turn{Candidate: candidate, Model: model, Interrupted: interrupted})
	fmt.Fprintf(&a.transcript, "Candidate: %s\nInterviewer: %s\n", candidate, model)

	a.candidate.Reset()
	a.model.Reset()
	a.mirror()
}

func (a *Aggregator) mirror() {
	if a.onMirror != nil {
		a.onMirror(a.candidate.String(), a.model.String())
	}
}

// Turns returns the committed turns in commit order.
func (a *Aggregator) Turns() []Turn {
	out := make([]Turn, len(a.turns))
	copy(out, a.turns)
	return out
}

// Transcript returns the committed transcript document.
func (a *Aggregator) Transcript() string { return a.transcript.String() }

// TokensUsed returns the running token-usage estimate.
func (a *Aggregator) TokensUsed() int { return a.tokensUsed }
