// Package main provides the CLI entry point for hukudok.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hukudok/internal/audit"
	"hukudok/internal/config"
	"hukudok/internal/entitycode"
	"hukudok/internal/metadata"
	"hukudok/internal/orchestrator"
	"hukudok/internal/output"
	"hukudok/internal/registry"
	"hukudok/internal/review"
	"hukudok/internal/watcher"
)

var version = "dev"

const usage = `Usage: hukudok <command> [arguments]

Commands:
  encode [-config file] <metadata.json>   print the encoded filename of one document
  run <config>                            encode and archive every pending document
  watch <config>                          keep encoding documents as they arrive
  status <config>                         preview pending documents without moving them
  history [-run id | -issued n] <config>  list audited runs, the events of one run
                                          or the last issued filenames
  code [-config file] <name>...           print the fixed-width code of each name
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	out := output.New(output.DefaultConfig())
	args := os.Args[2:]

	var code int
	switch os.Args[1] {
	case "encode":
		code = encodeCmd(out, args)
	case "run":
		code = runCmd(out, args)
	case "watch":
		code = watchCmd(out, args)
	case "status":
		code = statusCmd(out, args)
	case "history":
		code = historyCmd(out, args)
	case "code":
		code = codeCmd(out, args)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		code = 2
	}
	os.Exit(code)
}

// newFlags returns a flag set for a subcommand that adds -v.
func newFlags(name string) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	verbose := fs.Bool("v", false, "verbose output")
	return fs, verbose
}

func newLogger(cfg *config.Configuration, verbose bool) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads a configuration and reports validation findings. It
// returns nil when the configuration cannot be used.
func loadConfig(out *output.Output, path string) *config.Configuration {
	cfg, err := config.Load(path)
	if err != nil {
		out.Error("Error: %v", err)
		return nil
	}
	result := config.ValidateConfig(cfg)
	for _, w := range result.Warnings {
		out.Warn("%s: %s", w.Field, w.Message)
	}
	for _, e := range result.Errors {
		out.Error("Error: %s: %s", e.Field, e.Message)
	}
	if !result.Valid {
		return nil
	}
	return cfg
}

// optionalConfig loads path for its layout and name tables, or returns the
// defaults when path is empty.
func optionalConfig(path string) (*config.Configuration, error) {
	if path == "" {
		cfg := &config.Configuration{}
		cfg.ApplyDefaults()
		return cfg, nil
	}
	return config.LoadOrCreate(path)
}

func encodeCmd(out *output.Output, args []string) int {
	fs, _ := newFlags("encode")
	configPath := fs.String("config", "", "configuration file for layout and name tables")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	cfg, err := optionalConfig(*configPath)
	if err != nil {
		out.Error("Error: %v", err)
		return 1
	}
	doc, err := metadata.Load(fs.Arg(0))
	if err != nil {
		out.Error("Error: %v", err)
		return 1
	}

	session := review.New(doc, cfg.Codec()).ApproveAll()
	filename := session.Filename()

	out.Info("%s", filename.WithExtension(cfg.Layout.Extension))
	out.Breakdown(filename)
	out.Fields(
		[2]string{"length", fmt.Sprintf("%d (expected %d)", filename.Len(), cfg.Layout.ExpectedLength)},
		[2]string{"ready", fmt.Sprintf("%t", session.Ready())},
	)

	if err := session.Check(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			out.Error("rejected: %s", line)
		}
		return 1
	}
	return 0
}

// open loads the configuration named by the single positional argument and
// opens an orchestrator for it.
func open(ctx context.Context, out *output.Output, name string, args []string) (*orchestrator.Orchestrator, *config.Configuration, *slog.Logger, bool) {
	fs, verbose := newFlags(name)
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		return nil, nil, nil, false
	}
	cfg := loadConfig(out, fs.Arg(0))
	if cfg == nil {
		return nil, nil, nil, false
	}
	logger := newLogger(cfg, *verbose)
	o, err := orchestrator.Open(ctx, cfg, logger)
	if err != nil {
		out.Error("Error: %v", err)
		return nil, nil, nil, false
	}
	return o, cfg, logger, true
}

func runCmd(out *output.Output, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, _, _, ok := open(ctx, out, "run", args)
	if !ok {
		return 1
	}
	defer o.Close()

	summary, err := batch(ctx, out, o)
	if err != nil && !errors.Is(err, context.Canceled) {
		out.Error("Error: %v", err)
		return 1
	}
	if summary.HasErrors() {
		return 1
	}
	return 0
}

// batch runs one pass over the intake directories and reports the outcome.
func batch(ctx context.Context, out *output.Output, o *orchestrator.Orchestrator) (*orchestrator.Summary, error) {
	pending, _ := o.Scan()
	out.StartProgress(len(pending), "")
	o.SetProgress(out.UpdateProgress)
	summary, err := o.Run(ctx, version)
	out.EndProgress()
	o.SetProgress(nil)
	if summary != nil {
		report(out, summary)
	}
	return summary, err
}

func report(out *output.Output, summary *orchestrator.Summary) {
	for _, scanErr := range summary.ScanErrors {
		out.Warn("%v", scanErr)
	}
	for _, r := range summary.Results {
		switch r.Status {
		case orchestrator.StatusEncoded:
			out.Verbose("%s -> %s", r.DocumentPath, r.DestinationPath)
			for _, w := range r.Warnings {
				out.Verbose("  %s", w)
			}
		case orchestrator.StatusRejected:
			out.Error("Rejected %s: %v", r.SidecarPath, r.Err)
		case orchestrator.StatusDuplicate:
			out.Info("Already archived %s as %s", r.DocumentPath, r.DestinationPath)
		case orchestrator.StatusFailed:
			out.Error("Error processing %s: %v", r.SidecarPath, r.Err)
		}
	}
	out.Info("%s", summary)
}

func watchCmd(out *output.Output, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, cfg, logger, ok := open(ctx, out, "watch", args)
	if !ok {
		return 1
	}
	defer o.Close()

	// Documents that arrived while nobody was watching.
	if _, err := batch(ctx, out, o); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		out.Error("Error: %v", err)
		return 1
	}

	host, _ := os.Hostname()
	runID, err := o.Audit().StartRun(version, host)
	if err != nil {
		out.Error("Error: %v", err)
		return 1
	}

	w := watcher.New(cfg.Watch, cfg.Layout.Extension, o.Handle, logger)
	if err := w.Start(ctx, cfg.IntakeDirectories); err != nil {
		o.Audit().EndRun(runID, audit.RunStatusFailed, audit.RunSummary{})
		out.Error("Error: %v", err)
		return 1
	}
	out.Info("Watching %d intake directories, press Ctrl+C to stop", len(cfg.IntakeDirectories))

	<-ctx.Done()
	summary := w.Stop()

	status := audit.RunStatusCompleted
	if summary.Errors > 0 {
		status = audit.RunStatusFailed
	}
	runSummary := audit.RunSummary{
		TotalDocuments: summary.Encoded + summary.Rejected + summary.Duplicates + summary.Errors,
		Encoded:        summary.Encoded,
		Rejected:       summary.Rejected,
		Duplicates:     summary.Duplicates,
		Errors:         summary.Errors,
	}
	if err := o.Audit().EndRun(runID, status, runSummary); err != nil {
		logger.Error("failed to end audit run", "error", err)
	}

	out.Info("Watched for %s: %d encoded, %d rejected, %d duplicates, %d errors, %d temporary files ignored",
		summary.Duration.Round(time.Second), summary.Encoded, summary.Rejected, summary.Duplicates, summary.Errors, summary.Ignored)
	return 0
}

func statusCmd(out *output.Output, args []string) int {
	o, _, _, ok := open(context.Background(), out, "status", args)
	if !ok {
		return 1
	}
	defer o.Close()

	status, err := o.Status()
	if err != nil {
		out.Error("Error: %v", err)
		return 1
	}
	for _, intake := range status.ByIntake {
		out.Info("%s: %d pending, %d ready", intake.Directory, len(intake.Documents), intake.Ready)
		for _, p := range intake.Documents {
			if p.Problem != "" {
				out.Info("  %s\n    %s", p.SidecarPath, p.Problem)
				continue
			}
			out.Info("  %s\n    -> %s", p.SidecarPath, p.Destination)
			for _, w := range p.Warnings {
				out.Verbose("    %s", w)
			}
		}
	}
	out.Info("%d of %d pending documents are ready", status.GrandReady, status.GrandTotal)
	return 0
}

func historyCmd(out *output.Output, args []string) int {
	fs, _ := newFlags("history")
	runFlag := fs.String("run", "", "show the events of this run")
	issued := fs.Int("issued", 0, "list the last n issued filenames from the registry")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	cfg := loadConfig(out, fs.Arg(0))
	if cfg == nil {
		return 1
	}

	if *issued > 0 {
		return issuedCmd(out, cfg, *issued)
	}

	reader := audit.NewAuditReader(cfg.Audit.LogDirectory)

	if *runFlag != "" {
		events, err := reader.GetRun(audit.RunID(*runFlag))
		if err != nil {
			out.Error("Error: %v", err)
			return 1
		}
		for _, e := range events {
			line := fmt.Sprintf("%s %-9s %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.EventType, e.SourcePath)
			if e.EncodedName != "" {
				line += " -> " + e.EncodedName
			}
			if e.ReasonCode != "" {
				line += " (" + string(e.ReasonCode) + ")"
			}
			out.Info("%s", line)
		}
		return 0
	}

	runs, err := reader.ListRuns()
	if err != nil {
		out.Error("Error: %v", err)
		return 1
	}
	if len(runs) == 0 {
		out.Info("No runs recorded in %s", reader.LogPath())
		return 0
	}
	for _, run := range runs {
		s := run.Summary
		out.Info("%s  %s  %-11s %d documents: %d encoded, %d rejected, %d duplicates, %d errors",
			run.RunID, run.StartTime.Format("2006-01-02 15:04"), run.Status,
			s.TotalDocuments, s.Encoded, s.Rejected, s.Duplicates, s.Errors)
	}
	return 0
}

func issuedCmd(out *output.Output, cfg *config.Configuration, limit int) int {
	ctx := context.Background()
	reg, err := registry.Open(ctx, cfg.RegistryPath, newLogger(cfg, false))
	if err != nil {
		out.Error("Error: %v", err)
		return 1
	}
	defer reg.Close()

	entries, err := reg.Entries(ctx, limit)
	if err != nil {
		out.Error("Error: %v", err)
		return 1
	}
	next, err := reg.Current(ctx)
	if err != nil {
		out.Error("Error: %v", err)
		return 1
	}
	for _, e := range entries {
		out.Info("%s  %s  %s", e.RecordedAt.Local().Format("2006-01-02 15:04"), e.EncodedName, e.OriginalName)
	}
	out.Info("Next office file number: %s", next)
	return 0
}

func codeCmd(out *output.Output, args []string) int {
	fs, _ := newFlags("code")
	configPath := fs.String("config", "", "configuration file with extra name tables")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	cfg, err := optionalConfig(*configPath)
	if err != nil {
		out.Error("Error: %v", err)
		return 1
	}

	encoder := entitycode.NewEncoder(cfg.Codes.Tables())
	pairs := make([][2]string, 0, fs.NArg())
	for _, name := range fs.Args() {
		pairs = append(pairs, [2]string{name, fmt.Sprintf("%s  %s", encoder.Code(name), encoder.Classify(name))})
	}
	out.Fields(pairs...)
	return 0
}
