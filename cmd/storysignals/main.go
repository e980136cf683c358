// Command storysignals runs extraction from the command line without the
// HTTP service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/storysignals/internal/config"
	"github.com/dgallion1/storysignals/internal/defaults"
	"github.com/dgallion1/storysignals/internal/extract"
	"github.com/dgallion1/storysignals/internal/parser"
	"github.com/dgallion1/storysignals/internal/telemetry"
	"github.com/dgallion1/storysignals/internal/urgency"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	calibration string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	var rf rootFlags
	root := &cobra.Command{
		Use:           "storysignals",
		Short:         "Extract fundraising signals from narratives",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&rf.calibration, "calibration", os.Getenv("CALIBRATION_FILE"), "YAML calibration file")
	root.PersistentFlags().BoolVarP(&rf.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(newExtractCmd(&rf), newSuggestCmd(), newArchiveCmd())
	return root
}

func (rf *rootFlags) logger() *slog.Logger {
	if !rf.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newExtractCmd(rf *rootFlags) *cobra.Command {
	var in extract.Input
	var pdftotext, metrics bool
	cmd := &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Extract signals from a transcript file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cal, err := config.LoadCalibration(rf.calibration)
			if err != nil {
				return err
			}
			log := rf.logger()
			rec := telemetry.NewRecorder(cal.Telemetry, log)
			ex := extract.New(cal.ExtractOptions(0), rec, log)

			narrative, err := readNarrative(cmd, args, parser.Options{PDFFallbackPdftotext: pdftotext}, rec)
			if err != nil {
				return err
			}
			in.Narrative = narrative
			if err := printJSON(cmd.OutOrStdout(), ex.Extract(cmd.Context(), in)); err != nil {
				return err
			}
			if metrics {
				return rec.WriteExposition(cmd.ErrOrStderr())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Category, "category", "", "fundraiser category")
	cmd.Flags().StringVar(&in.UrgencyHint, "urgency-hint", "", "caller-supplied urgency level")
	cmd.Flags().BoolVar(&in.FillDefaults, "fill-defaults", false, "synthesize a goal, title and summary")
	cmd.Flags().BoolVar(&pdftotext, "pdftotext", false, "fall back to pdftotext for unreadable PDFs")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "write session metrics to stderr")
	return cmd
}

// readNarrative parses a file argument by extension; stdin is taken as
// plain text.
func readNarrative(cmd *cobra.Command, args []string, opts parser.Options, rec *telemetry.Recorder) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	path := args[0]
	if !parser.IsSupportedExtension(path) {
		return "", fmt.Errorf("unsupported file type: %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := parser.Read(f, path, opts, rec)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.Narrative, nil
}

func newSuggestCmd() *cobra.Command {
	var category, level, name string
	cmd := &cobra.Command{
		Use:   "suggest [narrative]",
		Short: "Synthesize a default goal, title and summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			lvl, _ := urgency.ParseLevel(level)
			goal := defaults.SuggestGoal(category, lvl, text)
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"goal":    goal,
				"title":   defaults.Title(name, category),
				"summary": defaults.Summary(name, category, goal.Amount),
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "fundraiser category")
	cmd.Flags().StringVar(&level, "urgency", "", "urgency level (LOW, MEDIUM, HIGH, CRITICAL)")
	cmd.Flags().StringVar(&name, "name", "", "beneficiary name")
	return cmd
}

func newArchiveCmd() *cobra.Command {
	var path string
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Print archived session records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return fmt.Errorf("--path is required")
			}
			a, err := telemetry.OpenArchive(path)
			if err != nil {
				return err
			}
			defer a.Close()

			recs, err := a.Load(cmd.Context(), time.Now().Add(-since))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), recs)
		},
	}
	cmd.Flags().StringVar(&path, "path", os.Getenv("TELEMETRY_ARCHIVE_PATH"), "SQLite archive path")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to read")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
