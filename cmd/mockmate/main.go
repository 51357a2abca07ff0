package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mockmate/mockmate/pkg/analyze"
	"github.com/mockmate/mockmate/pkg/config"
	"github.com/mockmate/mockmate/pkg/core/capture"
	"github.com/mockmate/mockmate/pkg/core/playback"
	"github.com/mockmate/mockmate/pkg/core/session"
	"github.com/mockmate/mockmate/pkg/extract"
	"github.com/mockmate/mockmate/pkg/live"
	"github.com/mockmate/mockmate/pkg/store"
	"github.com/mockmate/mockmate/pkg/vision"
)

const (
	version = "0.1.0"

	// inboundRate is the rate the remote model replies at; the speaker
	// device is opened once at this rate.
	inboundRate = 24000
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mockmate",
		Short:         "Voice-driven mock interview practice",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPracticeCmd(), newReportsCmd(), newVersionCmd())
	return root
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if os.Getenv("MOCKMATE_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newPracticeCmd() *cobra.Command {
	var (
		role       string
		persona    string
		background string
		resumePath string
		gestures   bool
		micRate    int
	)

	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Run a live interview session and get scored feedback",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DBPath, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			settings, err := st.LoadSettings(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("role") {
				settings.Role = role
			}
			if cmd.Flags().Changed("persona") {
				settings.Persona = persona
			}
			if cmd.Flags().Changed("context") {
				settings.Context = background
			}
			if cmd.Flags().Changed("gestures") {
				settings.GesturesEnabled = gestures
			}
			if err := st.SaveSettings(ctx, settings); err != nil {
				return err
			}

			// Resume text rides along for this session only; it is never
			// persisted.
			var resumeText string
			if resumePath != "" {
				resumeText, err = extract.ResumeText(resumePath)
				if err != nil {
					return err
				}
			}

			sink, err := playback.NewSpeakerSink(inboundRate, logger)
			if err != nil {
				return err
			}
			defer sink.Close()

			var detector vision.Detector
			if settings.GesturesEnabled && cfg.VisionURL != "" {
				detector = vision.NewSidecar(cfg.VisionURL, logger)
			}

			modelClient, err := analyze.NewGenaiClient(ctx, cfg.APIKey, cfg.AnalyzerModel)
			if err != nil {
				return err
			}

			controller := session.New(session.Deps{
				Dial: func(ctx context.Context, lc live.Config) (session.Channel, error) {
					return live.Dial(ctx, lc, logger)
				},
				NewDevice: func() (capture.Device, error) {
					return capture.NewMicDevice(micRate)
				},
				Sink:     sink,
				Detector: detector,
				Analyzer: analyze.New(modelClient, logger),
				Store:    st,
				Cooldown: cfg.SessionCooldown,
				Logger:   logger,
			})
			defer controller.Close()

			out := cmd.OutOrStdout()
			go func() {
				for ev := range controller.Events() {
					switch e := ev.(type) {
					case session.MirrorEvent:
						if e.Candidate != "" {
							fmt.Fprintf(out, "\r  you: %s\n", e.Candidate)
						}
						if e.Model != "" {
							fmt.Fprintf(out, "\r  interviewer: %s\n", e.Model)
						}
					case session.SessionErrorEvent:
						fmt.Fprintf(out, "session error: %v\n", e.Err)
					}
				}
			}()

			_, err = controller.StartSession(ctx, session.Config{
				APIKey:          cfg.APIKey,
				Model:           cfg.LiveModel,
				Role:            settings.Role,
				Persona:         settings.Persona,
				Context:         settings.Context,
				ResumeText:      resumeText,
				GesturesEnabled: settings.GesturesEnabled && detector != nil,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "Interview is live. Speak naturally; press Enter to finish.")
			waitForEnter(ctx)

			controller.EndSession()
			fmt.Fprintln(out, "Analyzing your interview...")
			report := controller.Finish(ctx)
			printReport(out, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "target role, e.g. \"Backend Engineer\"")
	cmd.Flags().StringVar(&persona, "persona", "", "interviewer persona")
	cmd.Flags().StringVar(&background, "context", "", "free-text company or role context")
	cmd.Flags().StringVar(&resumePath, "resume", "", "path to a resume PDF (read for this session only)")
	cmd.Flags().BoolVar(&gestures, "gestures", false, "enable body-language tracking via the vision sidecar")
	cmd.Flags().IntVar(&micRate, "mic-rate", 48000, "microphone native sample rate")
	return cmd
}

func newReportsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reports [id]",
		Short: "List past feedback reports, or show one in full",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			logger := newLogger()

			st, err := store.Open(config.DBPath(), logger)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				saved, err := st.GetReport(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %s\n", saved.ID, saved.CreatedAt.Local().Format("2006-01-02 15:04"))
				printReport(out, saved.Report)
				if saved.Transcript != "" {
					fmt.Fprintf(out, "\nTranscript:\n%s", saved.Transcript)
				}
				return nil
			}

			list, err := st.ListReports(ctx, limit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "no reports yet")
				return nil
			}
			for _, saved := range list {
				fmt.Fprintf(out, "%s  %s  score=%d  %s\n",
					saved.ID, saved.CreatedAt.Local().Format("2006-01-02 15:04"),
					saved.Report.Score, saved.Report.Summary)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum reports to list")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mockmate version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "mockmate", version)
		},
	}
}

// waitForEnter returns when the user presses Enter or the context is
// cancelled (ctrl-C).
func waitForEnter(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		reader := bufio.NewReader(os.Stdin)
		_, _ = reader.ReadString('\n')
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func printReport(out io.Writer, report analyze.Report) {
	fmt.Fprintf(out, "\nScore: %d/100\n\n%s\n", report.Score, report.Summary)
	fmt.Fprintln(out, "\nStrengths:")
	for _, s := range report.Strengths {
		fmt.Fprintf(out, "  + %s\n", s)
	}
	fmt.Fprintln(out, "\nImprovements:")
	for _, s := range report.Improvements {
		fmt.Fprintf(out, "  - %s\n", s)
	}
	m := report.Metrics
	fmt.Fprintf(out, "\nTechnical %d/10  Communication %d/10  Structure %d/10  Clarity %d/10  Confidence %d/10\n",
		m.Technical, m.Communication, m.Structure, m.Clarity, m.Confidence)
	if g := report.Gestures; g != nil {
		fmt.Fprintf(out, "Body language: %d smiles, %d eye touches, %d hand gestures\n",
			g.SmileCount, g.EyeTouchCount, g.HandGestureCount)
	}
}
