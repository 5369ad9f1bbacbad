package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ScottN-PV/cc-launcher/internal/commands"
	"github.com/ScottN-PV/cc-launcher/internal/project"
)

var (
	launchProfile string
	launchDir     string
	launchChoose  bool
)

var launchCmd = &cobra.Command{
	Use:   "launch [project-dir]",
	Short: "Print the command that starts claude with the profile's servers",
	Long: "Write a temporary MCP descriptor for the chosen profile and print the shell command that starts claude in the project directory. " +
		"The command is printed, never run. Descriptors older than 24 hours are removed on the next launch.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := launchDir
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			doc, err := app.Store.Load()
			if err != nil {
				return err
			}
			if doc.Preferences.LastProjectPath == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = project.RootOrSelf(wd)
			}
		}

		profile := launchProfile
		if launchChoose {
			if !interactive() {
				return fmt.Errorf("--choose needs a terminal")
			}
			id, err := chooseProfile()
			if err != nil {
				return err
			}
			profile = id
		}

		shell, _ := cmd.Flags().GetString("shell")
		res, err := commands.PrepareLaunch(app, commands.LaunchRequest{
			Profile:    profile,
			ProjectDir: dir,
			Shell:      shell,
		})
		if err != nil {
			return err
		}

		errOut := cmd.ErrOrStderr()
		if res.Profile != nil {
			fmt.Fprintf(errOut, "Profile %q: %s\n", res.Profile.Name, joinOrDash(res.Servers))
		} else {
			fmt.Fprintf(errOut, "Enabled servers: %s\n", joinOrDash(res.Servers))
		}
		if len(res.Unresolved) > 0 {
			fmt.Fprintf(errOut, "warning: unresolved variables left as written: %s\n", joinOrDash(res.Unresolved))
		}
		fmt.Fprintf(errOut, "Descriptor: %s\nRun in %s:\n\n", res.DescriptorPath, res.Shell)
		fmt.Fprintln(cmd.OutOrStdout(), res.Command)
		return nil
	},
}

func init() {
	launchCmd.Flags().StringVarP(&launchProfile, "profile", "p", "", "profile id or name (default the active profile)")
	launchCmd.Flags().StringVarP(&launchDir, "dir", "d", "", "project directory (default the last project, then the project around the current directory)")
	launchCmd.Flags().BoolVar(&launchChoose, "choose", false, "pick the profile interactively")
}
