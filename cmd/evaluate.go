package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/huangsam/mergecheck/core"
	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/internal/gitlab"
	"github.com/huangsam/mergecheck/internal/iocache"
	"github.com/huangsam/mergecheck/internal/outwriter"
	"github.com/huangsam/mergecheck/internal/statefile"
	"github.com/huangsam/mergecheck/schema"
	"github.com/spf13/cobra"
)

// evaluateCmd runs the check pipeline for one or more merge requests.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [project iid...]",
	Short: "Evaluate whether merge requests may be merged (fails on blocked)",
	Long: `Run the mergeability checks for merge requests and print a verdict per merge request.

Merge request data comes from the GitLab API (--gitlab-url) or from a YAML state
file (--state-file). When both are set, GitLab provides merge request and approval
data and the state file provides security policies and violations. Without
positional arguments every merge request in the state file is evaluated.

Exit codes:
  0 - every merge request is mergeable
  1 - at least one merge request is blocked or could not be evaluated
  2 - none blocked, at least one pending

Examples:
  # Evaluate every merge request in a state file
  mergecheck evaluate --state-file mrs.yaml

  # Evaluate two merge requests against GitLab
  MERGECHECK_GITLAB_TOKEN=... mergecheck evaluate --gitlab-url https://gitlab.example.com group/app 42 43

  # JSON report for CI
  mergecheck evaluate --state-file mrs.yaml --output json --output-file verdicts.json`,
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		loader, state, err := buildLoader(cfg)
		if err != nil {
			return err
		}
		refs, err := parseRefs(args, state)
		if err != nil {
			return err
		}

		history := iocache.Manager.GetHistoryStore()
		cache := core.NewResultCache(iocache.Manager.GetResultStore(), cfg.CacheTTL, log)
		pipeline := core.NewPipeline(core.NewConfigFeatureGate(cfg), core.SettingsBypassEvaluator{}, cache, log)
		evaluator := core.NewEvaluator(loader, pipeline, history, log)

		start := time.Now()
		evals, evalErr := evaluator.EvaluateMany(ctx, refs, cfg.Skip, cfg.Workers)
		if evalErr != nil {
			contract.LogWarn("Some merge requests could not be evaluated", evalErr)
		}
		if err := outwriter.NewOutWriter().WriteEvaluations(evals, cfg, time.Since(start)); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return verdictExit(evals)
	},
}

// buildLoader composes the collaborators from configuration. The state file,
// when loaded, is returned so its merge requests can serve as defaults.
func buildLoader(cfg *contract.Config) (*core.SnapshotLoader, *statefile.Source, error) {
	loader := &core.SnapshotLoader{}

	var state *statefile.Source
	if cfg.StateFile != "" {
		var err error
		state, err = statefile.Load(cfg.StateFile)
		if err != nil {
			return nil, nil, err
		}
		loader.MergeRequests = state
		loader.Approvals = state
		loader.Policies = state
	}

	if cfg.GitLabURL != "" {
		client, err := gitlab.NewClient(cfg.GitLabToken, cfg.GitLabURL, cfg.GitLabInsecure)
		if err != nil {
			return nil, nil, err
		}
		loader.MergeRequests = client
		loader.Approvals = client
		if state == nil {
			log.Warn("no state file configured; security policy checks will be inactive")
		}
	}

	if loader.MergeRequests == nil {
		return nil, nil, errors.New("no merge request source: set --gitlab-url or --state-file")
	}
	return loader, state, nil
}

// parseRefs turns "project iid..." into refs. With no arguments it falls back
// to every merge request in the state file.
func parseRefs(args []string, state *statefile.Source) ([]schema.MergeRequestRef, error) {
	if len(args) == 0 {
		if state == nil {
			return nil, errors.New("a project and at least one merge request iid are required")
		}
		refs := state.MergeRequestRefs()
		if len(refs) == 0 {
			return nil, errors.New("the state file has no merge requests")
		}
		return refs, nil
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("at least one merge request iid is required for project %s", args[0])
	}

	project := strings.TrimSpace(args[0])
	refs := make([]schema.MergeRequestRef, 0, len(args)-1)
	for _, arg := range args[1:] {
		iid, err := strconv.Atoi(strings.TrimPrefix(arg, "!"))
		if err != nil || iid <= 0 {
			return nil, fmt.Errorf("invalid merge request iid %q", arg)
		}
		refs = append(refs, schema.MergeRequestRef{ProjectID: project, IID: iid})
	}
	return refs, nil
}

// verdictExit returns an ExitError when any merge request is not mergeable.
// A merge request that could not be evaluated counts as blocked.
func verdictExit(evals []*schema.Evaluation) error {
	code := 0
	for _, eval := range evals {
		switch {
		case eval == nil || eval.Verdict == schema.VerdictBlocked:
			return &ExitError{Code: ExitBlocked}
		case eval.Verdict == schema.VerdictPending:
			code = ExitPending
		}
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
