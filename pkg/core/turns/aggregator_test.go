package turns

import (
	"strings"
	"testing"
)

func TestAggregator_CommitsInArrivalOrder(t *testing.T) {
	a := New()

	a.AddCandidateText("I built ")
	a.AddCandidateText("a cache.")
	a.AddModelText("Good ")
	a.AddModelText("job.")
	a.CompleteTurn()

	a.AddCandidateText("Thanks.")
	a.AddModelText("What next?")
	a.CompleteTurn()

	turns := a.Turns()
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(turns))
	}
	if turns[0].Candidate != "I built a cache." || turns[0].Model != "Good job." {
		t.Fatalf("turn 0 = %+v", turns[0])
	}
	if turns[1].Candidate != "Thanks." {
		t.Fatalf("turn 1 = %+v", turns[1])
	}

	doc := a.Transcript()
	first := strings.Index(doc, "Good job.")
	second := strings.Index(doc, "What next?")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("turn 1 text must appear in full before turn 2: %q", doc)
	}
}

func TestAggregator_TranscriptFormat(t *testing.T) {
	a := New()
	a.AddCandidateText("I built a cache.")
	a.AddModelText("Good job.")
	a.CompleteTurn()

	want := "Candidate: I built a cache.\nInterviewer: Good job.\n"
	if got := a.Transcript(); got != want {
		t.Fatalf("transcript = %q, want %q", got, want)
	}
}

func TestAggregator_EmptyCommitIsNoOp(t *testing.T) {
	a := New()
	a.CompleteTurn()
	a.InterruptTurn()
	if len(a.Turns()) != 0 || a.Transcript() != "" || a.TokensUsed() != 0 {
		t.Fatalf("empty commits mutated state")
	}
}

func TestAggregator_InterruptMarksTurnAndFiresHook(t *testing.T) {
	a := New()
	hooked := 0
	a.SetInterruptHook(func() {
		if len(a.Turns()) != 0 {
			t.Fatalf("hook must run before the turn commits")
		}
		hooked++
	})

	a.AddCandidateText("Wait, actually")
	a.AddModelText("Let me explain the")
	a.InterruptTurn()

	if hooked != 1 {
		t.Fatalf("hook fired %d times, want 1", hooked)
	}
	turns := a.Turns()
	if len(turns) != 1 || !turns[0].Interrupted {
		t.Fatalf("turn = %+v", turns)
	}
	if !strings.HasSuffix(turns[0].Model, InterruptMarker) {
		t.Fatalf("model text %q missing marker", turns[0].Model)
	}
}

func TestAggregator_TokenEstimate(t *testing.T) {
	a := New()
	// 7 + 7 = 14 chars; ceil(14/3.5) = 4.
	a.AddCandidateText("1234567")
	a.AddModelText("abcdefg")
	a.CompleteTurn()
	if got := a.TokensUsed(); got != 4 {
		t.Fatalf("tokens = %d, want 4", got)
	}

	// 1 char; ceil(1/3.5) = 1. Marker is excluded from the estimate.
	a.AddModelText("x")
	a.InterruptTurn()
	if got := a.TokensUsed(); got != 5 {
		t.Fatalf("tokens = %d, want 5", got)
	}
}

func TestAggregator_MirrorTracksPendingAndClearsOnCommit(t *testing.T) {
	a := New()
	var candidate, model string
	a.SetMirror(func(c, m string) { candidate, model = c, m })

	a.AddCandidateText("hello")
	if candidate != "hello" || model != "" {
		t.Fatalf("mirror = %q/%q", candidate, model)
	}
	a.AddModelText("hi")
	if model != "hi" {
		t.Fatalf("mirror model = %q", model)
	}
	a.CompleteTurn()
	if candidate != "" || model != "" {
		t.Fatalf("mirror not cleared after commit: %q/%q", candidate, model)
	}
}

func TestAggregator_PartialTextNeverInterleavesCommittedTurns(t *testing.T) {
	a := New()
	a.AddCandidateText("turn one q")
	a.AddModelText("turn one a")
	a.CompleteTurn()

	// Partial text for turn two arrives; the committed document must not
	// change until turn two commits.
	before := a.Transcript()
	a.AddCandidateText("turn two q")
	if a.Transcript() != before {
		t.Fatalf("uncommitted text leaked into the transcript")
	}
	a.CompleteTurn()
	if !strings.HasSuffix(a.Transcript(), "Candidate: turn two q\nInterviewer: \n") {
		t.Fatalf("transcript = %q", a.Transcript())
	}
}
