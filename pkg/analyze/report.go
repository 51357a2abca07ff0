package analyze

import "github.com/mockmate/mockmate/pkg/vision"

// SubMetrics are the five 0-10 rubric scores attached to every report.
type SubMetrics struct {
	Technical     int `json:"technical"`
	Communication int `json:"communication"`
	Structure     int `json:"structure"`
	Clarity       int `json:"clarity"`
	Confidence    int `json:"confidence"`
}

// Report is the scored feedback produced once per completed session.
// Immutable after creation.
type Report struct {
	Score        int             `json:"score"`
	Summary      string          `json:"summary"`
	Strengths    []string        `json:"strengths"`
	Improvements []string        `json:"improvements"`
	Metrics      SubMetrics      `json:"metrics"`
	Gestures     *vision.Metrics `json:"gestures,omitempty"`
}

const listPlaceholder = "Not enough material to evaluate"

// invalidFormatReport is returned when the model's payload cannot be
// recovered even after normalization.
func invalidFormatReport() Report {
	return Report{
		Summary:      "The analysis response could not be read. Please try again.",
		Strengths:    []string{listPlaceholder},
		Improvements: []string{listPlaceholder},
	}
}

// noConversationReport is returned without calling the remote model when
// the transcript is too short to mean a real conversation happened.
func noConversationReport() Report {
	return Report{
		Summary:      "No conversation was recorded. Start a session and speak with the interviewer to get feedback.",
		Strengths:    []string{listPlaceholder},
		Improvements: []string{"Complete a full practice session"},
	}
}
