package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ScottN-PV/cc-launcher/internal/config"
)

var configYes bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage the configuration file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config:     %s\n", app.Store.Path())
		fmt.Fprintf(out, "backup:     %s\n", app.Store.BackupPath())
		fmt.Fprintf(out, "validation: %s\n", app.Cache.Path())
		fmt.Fprintf(out, "log:        %s\n", app.Settings.LogFile())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := app.Store.Load()
		if err != nil {
			return err
		}
		data, err := config.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace the configuration with the defaults",
	Long:  "Replace the configuration with the defaults. The current file is kept as the backup.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !configYes && interactive() {
			ok, err := confirm("Reset the configuration?", "All profiles and custom servers are removed.")
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		doc, err := app.Store.Reset()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration reset (%d template servers).\n", doc.Servers.Len())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <preference> <value>",
	Short: "Set a preference: theme, skip_validation, force_powershell, tray_enabled",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		_, err := app.Store.Update(func(doc *config.Document) error {
			return setPreference(&doc.Preferences, key, value)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
		return nil
	},
}

var configWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print a line whenever another process changes the configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := app.Store.Load(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", app.Store.Path())
		return app.Store.Watch(cmd.Context(), func(doc *config.Document, err error) {
			ts := time.Now().Format(time.TimeOnly)
			if err != nil {
				fmt.Fprintf(out, "%s reload failed: %s\n", ts, userMessage(err))
				return
			}
			fmt.Fprintf(out, "%s reloaded: %d servers, %d profiles\n", ts, doc.Servers.Len(), len(doc.Profiles))
		})
	},
}

func setPreference(p *config.Preferences, key, value string) error {
	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("%s: %q is not true or false", key, value)
		}
		return b, nil
	}
	var err error
	switch key {
	case "theme":
		t := config.Theme(value)
		if t != config.ThemeDark && t != config.ThemeLight {
			return fmt.Errorf("theme must be dark or light")
		}
		p.Theme = t
	case "skip_validation":
		p.SkipValidation, err = parseBool()
	case "force_powershell":
		p.ForcePowerShell, err = parseBool()
	case "tray_enabled":
		p.TrayEnabled, err = parseBool()
	default:
		return fmt.Errorf("unknown preference %q", key)
	}
	return err
}

func init() {
	configResetCmd.Flags().BoolVarP(&configYes, "yes", "y", false, "do not ask for confirmation")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configResetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configWatchCmd)
}
