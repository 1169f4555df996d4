package cmd

import (
	"github.com/huangsam/mergecheck/core"
	"github.com/huangsam/mergecheck/internal/outwriter"
	"github.com/spf13/cobra"
)

// checksCmd lists the registered checks.
var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List the mergeability checks in evaluation order",
	Long: `Print the registered checks in the order they run, whether their results are
cached, and whether the current skip flags skip them.

Examples:
  mergecheck checks
  mergecheck checks --skip-security-policy-check --output json`,
	PreRunE: configSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		infos := core.DescribeChecks(core.DefaultChecks(), cfg.Skip)
		return outwriter.NewOutWriter().WriteChecks(infos, cfg)
	},
}
