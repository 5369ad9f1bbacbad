package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ScottN-PV/cc-launcher/internal/commands"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active profile, recent projects and validation problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := commands.Status(app)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Config: %s\n", res.ConfigPath)
		fmt.Fprintf(out, "Servers: %d (%d enabled), profiles: %d\n", len(res.Servers), res.Enabled, res.Profiles)
		if res.Active != nil {
			fmt.Fprintf(out, "Active profile: %s (%s)\n", res.Active.Name, joinOrDash(res.Active.EnabledServerIDs))
		} else {
			fmt.Fprintln(out, "Active profile: none")
		}
		if res.Offline {
			fmt.Fprintln(out, "Validation: offline (cached results only)")
		}
		fmt.Fprintln(out)

		if len(res.RecentProjects) > 0 {
			fmt.Fprintln(out, "RECENT PROJECTS")
			for _, p := range res.RecentProjects {
				marker := " "
				if p == res.LastProject {
					marker = "*"
				}
				fmt.Fprintf(out, "  %s %s\n", marker, p)
			}
			fmt.Fprintln(out)
		}

		if len(res.Problems) > 0 {
			fmt.Fprintln(out, "PROBLEMS (run 'cc-launcher validate --force' to recheck)")
			for _, st := range res.Problems {
				fmt.Fprintf(out, "  %s %s: %s\n", statusText(st.Entry, st.Freshness), st.Server.ID, st.Entry.Message)
			}
		} else {
			fmt.Fprintln(out, "No known problems.")
		}
		return nil
	},
}
