package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/internal/logger"
	"github.com/huangsam/mergecheck/schema"
	"golang.org/x/sync/errgroup"
)

// Evaluator answers "may this merge request be merged now?".
type Evaluator struct {
	loader   *SnapshotLoader
	pipeline *Pipeline
	history  contract.HistoryStore
	log      *logger.Logger
}

// NewEvaluator wires a loader and pipeline together. history may be nil.
func NewEvaluator(loader *SnapshotLoader, pipeline *Pipeline, history contract.HistoryStore, log *logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Discard()
	}
	return &Evaluator{loader: loader, pipeline: pipeline, history: history, log: log}
}

// Pipeline returns the pipeline used for evaluations.
func (e *Evaluator) Pipeline() *Pipeline {
	return e.pipeline
}

// Evaluate builds a snapshot for ref and runs the pipeline against it.
// A cancelled context yields a pending evaluation rather than an error.
func (e *Evaluator) Evaluate(ctx context.Context, ref schema.MergeRequestRef, skip schema.SkipParams) (*schema.Evaluation, error) {
	snap, err := e.loader.Load(ctx, ref)
	if err != nil {
		if ctx.Err() != nil {
			return cancelledEvaluation(ctx, ref), nil
		}
		return nil, err
	}

	eval, err := e.pipeline.Run(ctx, snap, skip)
	if err != nil {
		return nil, err
	}

	e.log.Info("merge request evaluated",
		"merge_request", ref.String(),
		"verdict", eval.Verdict,
		"cache_hits", len(eval.CacheHits),
		"duration_ms", eval.DurationMs,
	)
	if e.history != nil {
		if err := e.history.RecordEvaluation(eval); err != nil {
			e.log.Warn("failed to record evaluation", "merge_request", ref.String(), "error", err)
		}
	}
	return eval, nil
}

// EvaluateMany evaluates refs with at most workers concurrent evaluations.
// Results keep the order of refs; a ref that could not be evaluated has a nil
// entry and contributes to the joined error.
func (e *Evaluator) EvaluateMany(ctx context.Context, refs []schema.MergeRequestRef, skip schema.SkipParams, workers int) ([]*schema.Evaluation, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]*schema.Evaluation, len(refs))
	errs := make([]error, len(refs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, ref := range refs {
		g.Go(func() error {
			eval, err := e.Evaluate(ctx, ref, skip)
			if err != nil {
				errs[i] = fmt.Errorf("evaluate %s: %w", ref, err)
				return nil
			}
			results[i] = eval
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

func cancelledEvaluation(ctx context.Context, ref schema.MergeRequestRef) *schema.Evaluation {
	return &schema.Evaluation{
		ID:          uuid.NewString(),
		Ref:         ref,
		Verdict:     schema.VerdictPending,
		Reasons:     []schema.Reason{{CheckID: cancelledCheckID, Message: fmt.Sprintf("evaluation cancelled: %v", context.Cause(ctx))}},
		Results:     []schema.CheckResult{},
		EvaluatedAt: time.Now(),
	}
}
