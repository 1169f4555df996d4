package iocache

import (
	"fmt"
	"io"
	"slices"

	"github.com/huangsam/mergecheck/schema"
)

const statusTimeFormat = "2006-01-02 15:04:05"

// PrintCacheStatus prints result cache status information.
func PrintCacheStatus(w io.Writer, status schema.CacheStatus) {
	_, _ = fmt.Fprintf(w, "Cache Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Entries: %d\n", status.TotalEntries)
	if status.TotalEntries > 0 {
		_, _ = fmt.Fprintf(w, "Last Entry: %s\n", status.LastEntryTime.Format(statusTimeFormat))
		_, _ = fmt.Fprintf(w, "Oldest Entry: %s\n", status.OldestEntryTime.Format(statusTimeFormat))
	}
	_, _ = fmt.Fprintf(w, "Table Size: %d bytes\n", status.TableSizeBytes)
}

// PrintHistoryStatus prints evaluation history status information.
func PrintHistoryStatus(w io.Writer, status schema.HistoryStatus) {
	_, _ = fmt.Fprintf(w, "History Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Evaluations: %d\n", status.TotalEvaluations)
	if status.TotalEvaluations > 0 {
		_, _ = fmt.Fprintf(w, "Last Evaluation ID: %s\n", status.LastEvaluationID)
		_, _ = fmt.Fprintf(w, "Last Evaluation: %s\n", status.LastEvaluationTime.Format(statusTimeFormat))
		_, _ = fmt.Fprintf(w, "Oldest Evaluation: %s\n", status.OldestEvalTime.Format(statusTimeFormat))
		_, _ = fmt.Fprintln(w, "Verdicts:")
		for _, verdict := range []schema.Verdict{schema.VerdictMergeable, schema.VerdictBlocked, schema.VerdictPending} {
			_, _ = fmt.Fprintf(w, "  %s: %d\n", verdict, status.VerdictCounts[verdict])
		}
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}
