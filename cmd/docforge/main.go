// Command docforge runs a document generation workflow for a single brief,
// driving it through drafting, review, revision and human approval.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/viant/afs"

	"github.com/docforge/docforge"
	"github.com/docforge/docforge/policy"
	"github.com/docforge/docforge/progress"
	"github.com/docforge/docforge/runtime/engine"
	cfs "github.com/docforge/docforge/service/checkpoint/fs"
	"github.com/docforge/docforge/service/event"
)

// Exit codes reported to the shell.
const (
	exitCompleted = 0
	exitFailed    = 1
	exitCancelled = 2
	exitBadConfig = 3
)

type options struct {
	brief         string
	briefFile     string
	configFile    string
	maxRevisions  int
	timeout       time.Duration
	retryAttempts int
	retryBase     time.Duration
	retryMax      time.Duration
	checkpointDir string
	approve       string
	trace         bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if !policy.Valid(opts.approve) {
		logger.Error("unknown -approve mode", "mode", opts.approve)
		return exitBadConfig
	}

	ctx := context.Background()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	brief, err := loadBrief(ctx, opts)
	if err != nil {
		logger.Error("invalid invocation", "error", err)
		return exitBadConfig
	}

	srv, err := buildService(ctx, opts)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return exitBadConfig
	}

	tracker := progress.NewTracker()
	listener := event.NewListener(srv.Events(), tracker.Apply)
	defer listener.Stop()

	approver := &policy.Policy{Mode: opts.approve, Ask: askOnTerminal}

	runRec, err := srv.Start(ctx, brief)
	if err != nil && runRec == nil {
		logger.Error("could not start run", "error", err)
		return exitBadConfig
	}
	denials := 0
	for runRec.Outcome == engine.OutcomePaused {
		logger.Info("run paused for approval", "run", runRec.ID, "node", runRec.State.CurrentNode)
		approved, comment, decErr := approver.Decide(ctx, runRec.ID, runRec.State.FinalDocument)
		if decErr != nil {
			logger.Error("approval aborted", "error", decErr)
			return exitCancelled
		}
		if !approved && opts.approve == policy.ModeDeny {
			denials++
			if denials > 1 {
				logger.Error("run denied twice in deny mode, giving up", "run", runRec.ID)
				return exitFailed
			}
		}
		runRec, err = srv.Resume(ctx, runRec.ID, approved, comment)
		if err != nil && runRec == nil {
			logger.Error("could not resume run", "error", err)
			return exitFailed
		}
	}

	if snapshot, ok := tracker.Run(runRec.ID); ok {
		logger.Info("run progress",
			"stages", snapshot.StagesCompleted,
			"revisions", snapshot.Revisions,
			"pauses", snapshot.Pauses)
	}

	switch runRec.Outcome {
	case engine.OutcomeCompleted:
		fmt.Println(runRec.State.FinalDocument)
		logger.Info("run completed", "run", runRec.ID, "revisions", runRec.State.RevisionCount)
		return exitCompleted
	case engine.OutcomeCancelled:
		logger.Warn("run cancelled", "run", runRec.ID, "node", runRec.State.CurrentNode)
		return exitCancelled
	default:
		logger.Error("run failed", "run", runRec.ID, "node", runRec.State.CurrentNode, "error", runRec.Error)
		return exitFailed
	}
}

func parseFlags() *options {
	opts := &options{}
	flag.StringVar(&opts.brief, "brief", "", "project brief text")
	flag.StringVar(&opts.briefFile, "brief-file", "", "location of a file holding the brief (any afs URL)")
	flag.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	flag.IntVar(&opts.maxRevisions, "max-revisions", -1, "override the automated revision bound")
	flag.DurationVar(&opts.timeout, "timeout", 0, "overall run deadline, 0 for none")
	flag.IntVar(&opts.retryAttempts, "retry-attempts", 0, "override max attempts per stage")
	flag.DurationVar(&opts.retryBase, "retry-base-delay", 0, "override base retry delay")
	flag.DurationVar(&opts.retryMax, "retry-max-delay", 0, "override max retry delay")
	flag.StringVar(&opts.checkpointDir, "checkpoint-dir", "", "directory for persistent checkpoints")
	flag.StringVar(&opts.approve, "approve", policy.ModeAsk, "approval mode: auto, ask or deny")
	flag.BoolVar(&opts.trace, "trace", false, "emit OpenTelemetry spans to stdout")
	flag.Parse()
	return opts
}

func loadBrief(ctx context.Context, opts *options) (string, error) {
	if opts.brief != "" {
		return opts.brief, nil
	}
	if opts.briefFile == "" {
		return "", fmt.Errorf("either -brief or -brief-file is required")
	}
	data, err := afs.New().DownloadWithURL(ctx, opts.briefFile)
	if err != nil {
		return "", fmt.Errorf("failed to read brief %s: %w", opts.briefFile, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func buildService(ctx context.Context, opts *options) (*docforge.Service, error) {
	config := docforge.DefaultConfig()
	if opts.configFile != "" {
		loaded, err := docforge.LoadConfig(ctx, opts.configFile)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if opts.maxRevisions >= 0 {
		config.MaxRevisions = opts.maxRevisions
	}
	if opts.retryAttempts > 0 {
		config.Retry.MaxAttempts = opts.retryAttempts
	}
	if opts.retryBase > 0 {
		config.Retry.BaseDelay = opts.retryBase
	}
	if opts.retryMax > 0 {
		config.Retry.MaxDelay = opts.retryMax
	}

	srvOptions := []docforge.Option{docforge.WithConfig(config)}
	if opts.checkpointDir != "" {
		store, err := cfs.New(opts.checkpointDir)
		if err != nil {
			return nil, err
		}
		srvOptions = append(srvOptions, docforge.WithCheckpointStore(store))
	}
	if opts.trace {
		srvOptions = append(srvOptions, docforge.WithTracing("docforge", "dev", ""))
	}
	return docforge.New(srvOptions...)
}

// askOnTerminal prints the document and reads y/n plus an optional comment
// from stdin.
func askOnTerminal(_ context.Context, _ string, doc string) (bool, string, error) {
	fmt.Fprintln(os.Stderr, "---- document for review ----")
	fmt.Fprintln(os.Stderr, doc)
	fmt.Fprintln(os.Stderr, "-----------------------------")
	fmt.Fprint(os.Stderr, "approve? [y/N]: ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false, "", fmt.Errorf("failed to read approval answer: %w", err)
	}
	approved := strings.EqualFold(strings.TrimSpace(answer), "y")

	fmt.Fprint(os.Stderr, "comment (optional): ")
	comment, err := reader.ReadString('\n')
	if err != nil {
		comment = ""
	}
	return approved, strings.TrimSpace(comment), nil
}
