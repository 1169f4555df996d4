package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteEvaluationResults outputs evaluations, dispatching based on the output format configured.
// Nil entries (merge requests that could not be loaded) are left out.
func WriteEvaluationResults(evals []*schema.Evaluation, cfg *contract.Config, duration time.Duration) error {
	evals = slices.DeleteFunc(slices.Clone(evals), func(e *schema.Evaluation) bool { return e == nil })

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, evals)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeEvaluationCSV(w, evals)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		// Default to human-readable table
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeEvaluationTable(w, evals, cfg, getMaxReasonWidth(), duration)
		}, "Wrote table"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	}
	return nil
}

// writeEvaluationTable prints one block per merge request: a verdict line,
// the per-check table and the reasons and warnings that drove the verdict.
func writeEvaluationTable(w io.Writer, evals []*schema.Evaluation, cfg *contract.Config, reasonWidth int, duration time.Duration) error {
	counts := make(map[schema.Verdict]int)
	for i, eval := range evals {
		counts[eval.Verdict]++
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintf(w, "%s  %s  (fingerprint %s, %dms)\n", eval.Ref,
			contract.GetVerdictLabel(eval.Verdict, cfg.UseColors), shortFingerprint(eval.Fingerprint), eval.DurationMs); err != nil {
			return err
		}

		if len(eval.Results) > 0 {
			table := tablewriter.NewWriter(w)
			table.Header([]string{"#", "Check", "Status", "Cached", "Reason"})
			table.Configure(func(c *tablewriter.Config) {
				c.Row.Alignment.Global = tw.AlignLeft
			})

			var data [][]string
			for pos, res := range eval.Results {
				data = append(data, []string{
					strconv.Itoa(pos + 1),
					res.CheckID,
					statusLabel(res.Status, cfg.UseColors),
					yesNo(slices.Contains(eval.CacheHits, res.CheckID)),
					contract.TruncateText(reasonText(res), reasonWidth),
				})
			}
			if err := table.Bulk(data); err != nil {
				return err
			}
			if err := table.Render(); err != nil {
				return err
			}
		}

		for _, r := range eval.Reasons {
			if _, err := fmt.Fprintf(w, "  ✗ %s: %s\n", r.CheckID, r.Message); err != nil {
				return err
			}
		}
		for _, r := range eval.Warnings {
			if _, err := fmt.Fprintf(w, "  ! %s: %s\n", r.CheckID, r.Message); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintf(w, "\nEvaluated %d merge requests (mergeable: %d, blocked: %d, pending: %d) in %v with %d workers. Cache backend: %s\n",
		len(evals), counts[schema.VerdictMergeable], counts[schema.VerdictBlocked], counts[schema.VerdictPending],
		duration, cfg.Workers, cfg.CacheBackend)
	return err
}

// writeEvaluationCSV writes one row per check result.
func writeEvaluationCSV(w io.Writer, evals []*schema.Evaluation) error {
	header := []string{
		"evaluation_id",
		"project",
		"iid",
		"verdict",
		"position",
		"check_id",
		"status",
		"cached",
		"reason",
		"error",
		"fingerprint",
		"evaluated_at",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, eval := range evals {
			for pos, res := range eval.Results {
				rec := []string{
					eval.ID,
					eval.Ref.ProjectID,
					strconv.Itoa(eval.Ref.IID),
					string(eval.Verdict),
					strconv.Itoa(pos + 1),
					res.CheckID,
					contract.GetPlainLabel(res.Status),
					strconv.FormatBool(slices.Contains(eval.CacheHits, res.CheckID)),
					res.Reason,
					res.Error,
					eval.Fingerprint,
					eval.EvaluatedAt.Format(contract.DateTimeFormat),
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func reasonText(res schema.CheckResult) string {
	switch {
	case res.Error == "":
		return res.Reason
	case res.Reason == "":
		return res.Error
	default:
		return res.Reason + ": " + res.Error
	}
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
