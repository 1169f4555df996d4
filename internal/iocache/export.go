package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/internal/parquet"
)

// ExecuteHistoryExport writes the stored history to two Parquet files named
// after outputFile.
func ExecuteHistoryExport(store contract.HistoryStore, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history is disabled. Set --history-backend to export evaluations")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalEvaluations == 0 {
		return errors.New("no evaluation history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total evaluations: %d\n", status.TotalEvaluations)
	_, _ = fmt.Fprintf(w, "Total check results: %d\n", status.TableSizes[checkResultsTable])

	evaluations, err := store.GetAllEvaluations()
	if err != nil {
		return fmt.Errorf("failed to retrieve evaluations: %w", err)
	}
	results, err := store.GetAllCheckResults()
	if err != nil {
		return fmt.Errorf("failed to retrieve check results: %w", err)
	}

	evaluationRows := parquet.ConvertEvaluationRecords(evaluations)
	evaluationsFile := outputFile + ".evaluations.parquet"
	if err := parquet.WriteEvaluationsParquet(evaluationRows, evaluationsFile); err != nil {
		return fmt.Errorf("failed to write evaluations: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d evaluations to: %s\n", len(evaluationRows), evaluationsFile)

	resultRows := parquet.ConvertCheckResultRecords(results)
	resultsFile := outputFile + ".check_results.parquet"
	if err := parquet.WriteCheckResultsParquet(resultRows, resultsFile); err != nil {
		return fmt.Errorf("failed to write check results: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d check results to: %s\n", len(resultRows), resultsFile)

	return nil
}
