package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/internal/logger"
	"github.com/huangsam/mergecheck/schema"
)

// cancelledCheckID labels the reason recorded for a cancelled run.
const cancelledCheckID = "pipeline"

// Pipeline runs an ordered set of checks against a snapshot and reduces their
// results to a verdict. A Pipeline is safe for concurrent use by different
// merge requests; the cache is its only shared mutable state.
type Pipeline struct {
	checks   []Check
	features contract.FeatureGate
	bypass   contract.BypassEvaluator
	cache    *ResultCache
	log      *logger.Logger
	now      func() time.Time
}

// NewPipeline registers checks in the order given. With no checks it uses
// DefaultChecks. A nil cache gets a memory-only one.
func NewPipeline(gate contract.FeatureGate, bypass contract.BypassEvaluator, cache *ResultCache, log *logger.Logger, checks ...Check) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}
	if cache == nil {
		cache = NewResultCache(nil, 0, log)
	}
	if len(checks) == 0 {
		checks = DefaultChecks()
	}
	return &Pipeline{
		checks:   checks,
		features: gate,
		bypass:   bypass,
		cache:    cache,
		log:      log,
		now:      time.Now,
	}
}

// Checks returns the registered checks in evaluation order.
func (p *Pipeline) Checks() []Check {
	out := make([]Check, len(p.checks))
	copy(out, p.checks)
	return out
}

// Run evaluates every non-skipped check in order. The only error it returns
// is *contract.InvariantViolation; check failures of any kind become results.
func (p *Pipeline) Run(ctx context.Context, snap *schema.MergeRequestSnapshot, skip schema.SkipParams) (*schema.Evaluation, error) {
	start := p.now()
	fp := Fingerprint(snap)
	eval := &schema.Evaluation{
		ID:          uuid.NewString(),
		Ref:         snap.Ref(),
		Fingerprint: fp,
		EvaluatedAt: start,
		Results:     make([]schema.CheckResult, 0, len(p.checks)),
	}
	log := p.log.With("merge_request", snap.Ref().String(), "evaluation", eval.ID)
	env := CheckEnv{Snapshot: snap, Features: p.features, Bypass: p.bypass}

	cancelled := false
	for _, check := range p.checks {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if check.Skip(skip) {
			continue
		}
		id := check.Identifier()

		if check.Cacheable() {
			if res, ok := p.cache.Lookup(fp, id); ok {
				log.Debug("check cache hit", "check", id, "status", res.Status)
				eval.Results = append(eval.Results, res)
				eval.CacheHits = append(eval.CacheHits, id)
				continue
			}
		}

		res, err := p.execute(ctx, check, env)
		if ctx.Err() != nil {
			// Anything computed while being cancelled is discarded.
			cancelled = true
			break
		}
		if err != nil {
			res = p.convertError(log, id, err)
		} else {
			res.CheckID = id
			if !res.Status.Valid() {
				return nil, &contract.InvariantViolation{CheckID: id, Status: res.Status}
			}
			if check.Cacheable() {
				p.cache.Store(fp, id, res)
			}
		}
		log.Debug("check evaluated", "check", id, "status", res.Status)
		eval.Results = append(eval.Results, res)
	}

	eval.Verdict, eval.Reasons, eval.Warnings = reduce(eval.Results)
	if cancelled {
		// A cancelled run is never BLOCKED, so its reasons carry no failures.
		eval.Verdict = schema.VerdictPending
		eval.Reasons = checkingReasons(eval.Results)
		eval.Reasons = append(eval.Reasons, schema.Reason{
			CheckID: cancelledCheckID,
			Message: fmt.Sprintf("evaluation cancelled: %v", context.Cause(ctx)),
		})
	}
	eval.DurationMs = p.now().Sub(start).Milliseconds()
	return eval, nil
}

// execute runs one check, turning a panic into an error.
func (p *Pipeline) execute(ctx context.Context, check Check, env CheckEnv) (res schema.CheckResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check panicked: %v", r)
		}
	}()
	return check.Execute(ctx, env)
}

// convertError fails closed, except for configuration errors which mean the
// check does not apply.
func (p *Pipeline) convertError(log *logger.Logger, id string, err error) schema.CheckResult {
	if contract.IsConfigurationError(err) {
		log.Debug("check not configured", "check", id, "error", err)
		return schema.CheckResult{CheckID: id, Status: schema.StatusInactive, Reason: err.Error()}
	}
	log.Error("check failed", "check", id, "error", err)
	return schema.CheckResult{
		CheckID: id,
		Status:  schema.StatusFailure,
		Reason:  "check could not be evaluated",
		Error:   err.Error(),
	}
}

// reduce maps results to a verdict: any failure blocks, else any checking is
// pending, else mergeable. Warnings are always surfaced.
func reduce(results []schema.CheckResult) (schema.Verdict, []schema.Reason, []schema.Reason) {
	var failures, checking, warnings []schema.Reason
	for _, res := range results {
		switch res.Status {
		case schema.StatusFailure:
			failures = append(failures, reasonOf(res))
		case schema.StatusChecking:
			checking = append(checking, reasonOf(res))
		case schema.StatusWarning:
			warnings = append(warnings, reasonOf(res))
		}
	}

	switch {
	case len(failures) > 0:
		return schema.VerdictBlocked, failures, warnings
	case len(checking) > 0:
		return schema.VerdictPending, checking, warnings
	default:
		return schema.VerdictMergeable, nil, warnings
	}
}

func checkingReasons(results []schema.CheckResult) []schema.Reason {
	var out []schema.Reason
	for _, res := range results {
		if res.Status == schema.StatusChecking {
			out = append(out, reasonOf(res))
		}
	}
	return out
}

func reasonOf(res schema.CheckResult) schema.Reason {
	msg := res.Reason
	if res.Error != "" {
		if msg == "" {
			msg = res.Error
		} else {
			msg = msg + ": " + res.Error
		}
	}
	return schema.Reason{CheckID: res.CheckID, Message: msg}
}
