package main

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/ScottN-PV/cc-launcher/internal/commands"
	"github.com/ScottN-PV/cc-launcher/internal/validation"
)

var validateForce bool

var validateCmd = &cobra.Command{
	Use:   "validate [id]...",
	Short: "Check servers against the npm registry",
	Long:  "Check every server, or the given ones, against the npm registry and the local npm install. Results are cached for 24 hours; --force checks again.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var s *spinner.Spinner
		if interactive() {
			s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			s.Suffix = " Validating servers..."
			s.Start()
		}
		report, err := commands.RunValidation(cmd.Context(), app, args, validateForce)
		if s != nil {
			s.Stop()
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if report.Offline {
			fmt.Fprintln(out, "Validation is skipped (skip_validation preference); showing cached results. Use --force to check now.")
		}
		t := newTable(out, "SERVER", "STATUS", "CHECKED", "MESSAGE")
		for _, r := range report.Results {
			checked := "-"
			if r.Freshness != validation.Absent {
				checked = r.Entry.CheckedAt.Local().Format(time.DateTime)
			}
			msg := r.Entry.Message
			switch {
			case r.Degraded:
				msg = "registry unreachable, showing previous result"
			case r.Superseded:
				msg += " (newer check running)"
			}
			t.AppendRow([]any{r.ServerID, statusText(r.Entry, r.Freshness), checked, msg})
		}
		t.Render()

		counts := report.Counts()
		fmt.Fprintf(out, "%d ok, %d warning, %d error, %d unknown\n",
			counts[validation.StatusOK], counts[validation.StatusWarning], counts[validation.StatusError], counts[validation.StatusUnknown])
		return nil
	},
}

var validateClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached validation results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := commands.ClearValidationCache(app); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Validation cache cleared.")
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVarP(&validateForce, "force", "f", false, "ignore cached results")
	validateCmd.AddCommand(validateClearCmd)
}
