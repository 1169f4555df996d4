// Package outwriter has output and writer logic.
package outwriter

import (
	"os"
	"time"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteEvaluations prints evaluation results using the configured output format.
func (ow *OutWriter) WriteEvaluations(evals []*schema.Evaluation, cfg *contract.Config, duration time.Duration) error {
	return WriteEvaluationResults(evals, cfg, duration)
}

// WriteChecks prints the registered checks using the configured output format.
func (ow *OutWriter) WriteChecks(checks []schema.CheckInfo, cfg *contract.Config) error {
	return WriteCheckInfos(checks, cfg)
}

// getMaxReasonWidth calculates the width left for the reason column
// after the fixed columns of the result table.
func getMaxReasonWidth() int {
	termWidth := 80 // Conservative default for narrow terminals and CI
	if detected, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && detected > 0 {
		termWidth = detected
	}
	return clampReasonWidth(termWidth)
}

func clampReasonWidth(termWidth int) int {
	// Check + Status + Cached columns with borders and padding
	available := termWidth - 55
	if available < 20 {
		return 20
	}
	if available > 100 {
		return 100
	}
	return available
}
