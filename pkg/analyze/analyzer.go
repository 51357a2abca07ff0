package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/mockmate/mockmate/pkg/vision"
)

const (
	// minTranscriptLen is the shortest transcript considered a real
	// conversation.
	minTranscriptLen = 40

	// shortReportDelay keeps the analyzing state visible when the remote
	// call is skipped.
	shortReportDelay = 1200 * time.Millisecond

	defaultAnalyzerModel = "gemini-2.0-flash"
)

const promptTemplate = `You are an interview coach. Below is the transcript of a mock interview.
Score the candidate and reply with ONLY a JSON object, no prose, no markdown:
{
  "score": <0-100>,
  "summary": "<two or three sentences>",
  "strengths": ["<item>", ...],
  "improvements": ["<item>", ...],
  "metrics": {"technical": <0-10>, "communication": <0-10>, "structure": <0-10>, "clarity": <0-10>, "confidence": <0-10>}
}

Transcript:
%s`

// ModelClient makes one non-streaming text generation call.
type ModelClient interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GenaiClient is the google.golang.org/genai backed ModelClient.
type GenaiClient struct {
	client *genai.Client
	model  string
}

// NewGenaiClient creates a client for the given API key and model. An empty
// model selects the default.
func NewGenaiClient(ctx context.Context, apiKey, model string) (*GenaiClient, error) {
	if model == "" {
		model = defaultAnalyzerModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenaiClient{client: client, model: model}, nil
}

// GenerateText implements ModelClient.
func (g *GenaiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Analyzer converts a committed transcript into a feedback report. It fails
// soft: Analyze always returns a well-formed report and never propagates an
// error past its boundary.
type Analyzer struct {
	client ModelClient
	logger *slog.Logger

	// minLen and delay are overridable for tests.
	minLen int
	delay  time.Duration
}

// New creates an analyzer over the given model client.
func New(client ModelClient, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		client: client,
		logger: logger.With("component", "analyze"),
		minLen: minTranscriptLen,
		delay:  shortReportDelay,
	}
}

// Analyze scores the transcript. The gesture snapshot, when present, is
// attached to the report untouched.
func (a *Analyzer) Analyze(ctx context.Context, transcript string, gestures *vision.Metrics) Report {
	if len(strings.TrimSpace(transcript)) < a.minLen {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
		}
		report := noConversationReport()
		report.Gestures = gestures
		return report
	}

	raw, err := a.client.GenerateText(ctx, fmt.Sprintf(promptTemplate, transcript))
	if err != nil {
		a.logger.Warn("analysis call failed", "error", err)
		report := invalidFormatReport()
		report.Gestures = gestures
		return report
	}

	report, ok := recoverReport(raw)
	if !ok {
		a.logger.Warn("analysis payload unrecoverable", "bytes", len(raw))
		report = invalidFormatReport()
	}
	report.Gestures = gestures
	return report
}
