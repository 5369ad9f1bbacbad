package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ScottN-PV/cc-launcher/internal/config"
	"github.com/ScottN-PV/cc-launcher/internal/profiles"
)

var (
	profileCategory string
	profileServers  []string
	profileName     string
	profilePick     bool
	profileYes      bool
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	Aliases: []string{"profiles"},
	Short:   "Manage profiles (named server sets)",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles, most recently modified first",
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := app.Profiles.List(profileCategory)
		if err != nil {
			return err
		}
		active, _, err := app.Profiles.Active()
		if err != nil {
			return err
		}

		now := time.Now()
		t := newTable(cmd.OutOrStdout(), "", "ID", "NAME", "SERVERS", "MODIFIED", "SUMMARY")
		n := 0
		for p := range seq {
			marker := ""
			if p.ID == active.ID {
				marker = "*"
			}
			t.AppendRow([]any{marker, shortID(p.ID), p.Name, joinOrDash(p.EnabledServerIDs), profiles.Ago(p.Modified, now), profiles.Summary(p, now)})
			n++
		}
		if n == 0 {
			if profileCategory != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "No profiles use a %q server.\n", profileCategory)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No profiles configured. Create one with 'cc-launcher profile create <name>'.")
			}
			return nil
		}
		t.Render()
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show [profile]",
	Short: "Show a profile, or the active one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var p config.Profile
		if len(args) == 1 {
			var err error
			if p, err = app.Profiles.Resolve(args[0]); err != nil {
				return err
			}
		} else {
			active, ok, err := app.Profiles.Active()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No active profile.")
				return nil
			}
			p = active
		}

		doc, err := app.Store.Load()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Profile: %s (%s)\n", p.Name, p.ID)
		fmt.Fprintf(out, "  %s\n", profiles.Summary(p, time.Now()))
		fmt.Fprintf(out, "  created %s, modified %s\n", p.Created.Local().Format(time.DateTime), p.Modified.Local().Format(time.DateTime))
		fmt.Fprintln(out)
		if len(p.EnabledServerIDs) == 0 {
			fmt.Fprintln(out, "Servers: (none)")
			return nil
		}
		fmt.Fprintln(out, "Servers:")
		for _, id := range p.EnabledServerIDs {
			s, _ := doc.Server(id)
			fmt.Fprintf(out, "  - %s [%s] %s\n", id, s.Category, s.Description)
		}
		return nil
	},
}

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := profileServers
		if len(ids) == 0 && interactive() {
			picked, err := pickServers("Select servers for "+args[0]+":", nil)
			if err != nil {
				return err
			}
			ids = picked
		}
		p, err := app.Profiles.Create(args[0], ids)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created profile %q (%s) with %d server(s).\n", p.Name, p.ID, len(p.EnabledServerIDs))
		return nil
	},
}

var profileEditCmd = &cobra.Command{
	Use:   "edit <profile>",
	Short: "Rename a profile or change its servers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := app.Profiles.Resolve(args[0])
		if err != nil {
			return err
		}

		var opts profiles.UpdateOptions
		if cmd.Flags().Changed("name") {
			opts.Name = &profileName
		}
		if cmd.Flags().Changed("servers") {
			opts.ServerIDs = append([]string{}, profileServers...)
		}
		if profilePick {
			if !interactive() {
				return fmt.Errorf("--pick needs a terminal")
			}
			picked, err := pickServers("Select servers for "+p.Name+":", p.EnabledServerIDs)
			if err != nil {
				return err
			}
			opts.ServerIDs = picked
		}
		if opts.Name == nil && opts.ServerIDs == nil {
			return fmt.Errorf("nothing to change: pass --name, --servers or --pick")
		}

		updated, err := app.Profiles.Update(p.ID, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated profile %q: %s\n", updated.Name, joinOrDash(updated.EnabledServerIDs))
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:     "delete <profile>",
	Aliases: []string{"rm"},
	Short:   "Delete a profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := app.Profiles.Resolve(args[0])
		if err != nil {
			return err
		}
		if !profileYes && interactive() {
			ok, err := confirm(fmt.Sprintf("Delete profile %q?", p.Name), "Its servers stay in the catalog.")
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		if err := app.Profiles.Delete(p.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %q.\n", p.Name)
		return nil
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use [profile]",
	Short: "Make a profile the active one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var ref string
		if len(args) == 1 {
			ref = args[0]
		} else {
			if !interactive() {
				return fmt.Errorf("profile name required")
			}
			chosen, err := chooseProfile()
			if err != nil {
				return err
			}
			ref = chosen
		}
		p, err := app.Profiles.Resolve(ref)
		if err != nil {
			return err
		}
		if _, err := app.Profiles.SetActive(p.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active profile: %s\n", p.Name)
		return nil
	},
}

var profileImportLegacyCmd = &cobra.Command{
	Use:   "import-legacy [project-dir]",
	Short: "Move a project's old .cc-launcher/profiles.json into the global profiles",
	Long:  "Older releases kept profiles inside the project. They are imported automatically on launch; this command does it on demand.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		n, err := app.Profiles.ImportLegacyProject(abs)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No legacy profiles in %s.\n", abs)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d profile(s) from %s.\n", n, profiles.LegacyProjectFile(abs))
		return nil
	},
}

// pickServers lets the user choose servers from the catalog.
func pickServers(title string, preselected []string) ([]string, error) {
	doc, err := app.Store.Load()
	if err != nil {
		return nil, err
	}
	list := doc.ServerList()
	if len(list) == 0 {
		return nil, fmt.Errorf("no servers in the catalog")
	}
	ids := make([]string, len(list))
	labels := make([]string, len(list))
	for i, s := range list {
		ids[i] = s.ID
		labels[i] = fmt.Sprintf("%-22s %s", s.ID, s.Description)
	}
	return runPicker(title, ids, labels, preselected)
}

// chooseProfile asks for a profile and returns its id. The active profile is
// preselected.
func chooseProfile() (string, error) {
	seq, err := app.Profiles.List("")
	if err != nil {
		return "", err
	}
	active, _, err := app.Profiles.Active()
	if err != nil {
		return "", err
	}
	var options []huh.Option[string]
	for p := range seq {
		label := fmt.Sprintf("%s (%s)", p.Name, profiles.Summary(p, time.Now()))
		options = append(options, huh.NewOption(label, p.ID))
	}
	if len(options) == 0 {
		return "", fmt.Errorf("no profiles configured")
	}
	choice := active.ID
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which profile?").
				Options(options...).
				Value(&choice),
		),
	).Run()
	return choice, err
}

func confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Value(&ok),
		),
	).Run()
	return ok, err
}

func init() {
	profileListCmd.Flags().StringVar(&profileCategory, "category", "", "only profiles with a server in this category")
	profileCreateCmd.Flags().StringSliceVar(&profileServers, "servers", nil, "comma-separated server ids")
	profileEditCmd.Flags().StringVar(&profileName, "name", "", "new name")
	profileEditCmd.Flags().StringSliceVar(&profileServers, "servers", nil, "replace the server set (comma-separated ids)")
	profileEditCmd.Flags().BoolVar(&profilePick, "pick", false, "choose servers interactively")
	profileDeleteCmd.Flags().BoolVarP(&profileYes, "yes", "y", false, "do not ask for confirmation")

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileEditCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	profileCmd.AddCommand(profileUseCmd)
	profileCmd.AddCommand(profileImportLegacyCmd)
}
