package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/schema"
	"github.com/olekukonko/tablewriter"
)

// WriteCheckInfos lists the registered checks in evaluation order.
func WriteCheckInfos(checks []schema.CheckInfo, cfg *contract.Config) error {
	var write func(io.Writer) error
	switch cfg.Output {
	case schema.JSONOut:
		write = func(w io.Writer) error { return writeJSON(w, checks) }
	case schema.CSVOut:
		write = func(w io.Writer) error { return writeCheckCSV(w, checks) }
	default:
		write = func(w io.Writer) error { return writeCheckTable(w, checks) }
	}
	if err := writeWithFile(cfg.OutputFile, write, "Wrote checks"); err != nil {
		return fmt.Errorf("error writing %s output: %w", cfg.Output, err)
	}
	return nil
}

func writeCheckTable(w io.Writer, checks []schema.CheckInfo) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Check", "Cacheable", "Skipped"})

	var data [][]string
	for _, c := range checks {
		data = append(data, []string{strconv.Itoa(c.Position), c.ID, yesNo(c.Cacheable), yesNo(c.Skipped)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeCheckCSV(w io.Writer, checks []schema.CheckInfo) error {
	return writeCSVWithHeader(w, []string{"position", "check_id", "cacheable", "skipped"}, func(cw *csv.Writer) error {
		for _, c := range checks {
			rec := []string{strconv.Itoa(c.Position), c.ID, strconv.FormatBool(c.Cacheable), strconv.FormatBool(c.Skipped)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
