package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ScottN-PV/cc-launcher/internal/commands"
	"github.com/ScottN-PV/cc-launcher/internal/config"
	"github.com/ScottN-PV/cc-launcher/internal/fsutil"
	"github.com/ScottN-PV/cc-launcher/internal/project"
	"github.com/ScottN-PV/cc-launcher/internal/servers"
)

var (
	serverType        string
	serverCommand     string
	serverURL         string
	serverArgs        []string
	serverEnv         []string
	serverHeaders     []string
	serverDescription string
	serverCategory    string
	serverEnabled     bool
	serverYes         bool
	serverFile        string
	serverReplace     bool
	serverProfile     string
	serverKeepSecrets bool
)

var serverCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"servers"},
	Short:   "Manage the MCP server catalog",
}

var serverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List servers with their cached validation status",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := commands.Status(app)
		if err != nil {
			return err
		}
		t := newTable(cmd.OutOrStdout(), "ID", "TYPE", "ENABLED", "CATEGORY", "COMMAND / URL", "STATUS")
		for _, st := range res.Servers {
			s := st.Server
			target := s.CommandOrURL
			if len(s.Args) > 0 {
				target += " " + strings.Join(s.Args, " ")
			}
			t.AppendRow([]any{s.ID, s.Type, yesNo(s.Enabled), s.Category, target, statusText(st.Entry, st.Freshness)})
		}
		t.Render()
		return nil
	},
}

var serverTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the built-in server templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := newTable(cmd.OutOrStdout(), "ID", "CATEGORY", "DESCRIPTION")
		for _, s := range servers.Templates() {
			t.AppendRow([]any{s.ID, s.Category, s.Description})
		}
		t.Render()
		return nil
	},
}

var serverAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add a server, or a template by id with --template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if fromTemplate, _ := cmd.Flags().GetBool("template"); fromTemplate {
			s, err := app.Servers.AddTemplate(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added template %s.\n", s.ID)
			return nil
		}

		s, err := descriptorFromFlags(args[0])
		if err != nil {
			return err
		}
		s.Enabled = serverEnabled
		added, err := app.Servers.Add(s)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added server %s (%s).\n", added.ID, added.Type)
		return nil
	},
}

var serverEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a server; unset flags keep their values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := app.Servers.Get(args[0])
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("type") {
			s.Type = config.Transport(serverType)
		}
		if flags.Changed("command") {
			s.CommandOrURL = serverCommand
		}
		if flags.Changed("url") {
			s.CommandOrURL = serverURL
		}
		if flags.Changed("arg") {
			s.Args = serverArgs
		}
		if flags.Changed("env") {
			if s.Env, err = parsePairs("env", serverEnv); err != nil {
				return err
			}
		}
		if flags.Changed("header") {
			if s.Headers, err = parsePairs("header", serverHeaders); err != nil {
				return err
			}
		}
		if flags.Changed("description") {
			s.Description = serverDescription
		}
		if flags.Changed("category") {
			s.Category = serverCategory
		}
		if flags.Changed("enabled") {
			s.Enabled = serverEnabled
		}

		edited, err := app.Servers.Edit(s.ID, s)
		if err != nil {
			return err
		}
		if err := app.Cache.Invalidate(edited.ID); err != nil {
			app.Logger.Warn("invalidating validation entry", "server", edited.ID, "error", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated server %s.\n", edited.ID)
		return nil
	},
}

var serverDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a server and remove it from every profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := app.Servers.Get(args[0]); err != nil {
			return err
		}
		if !serverYes && interactive() {
			ok, err := confirm(fmt.Sprintf("Delete server %q?", args[0]), "It is also removed from every profile that uses it.")
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		if err := app.Servers.Delete(args[0]); err != nil {
			return err
		}
		if err := app.Cache.Invalidate(args[0]); err != nil {
			app.Logger.Warn("invalidating validation entry", "server", args[0], "error", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted server %s.\n", args[0])
		return nil
	},
}

func toggleCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>...",
		Short: strings.ToUpper(use[:1]) + use[1:] + " servers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if _, err := app.Servers.SetEnabled(id, enabled); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: enabled=%t\n", id, enabled)
			}
			return nil
		},
	}
}

var serverExportCmd = &cobra.Command{
	Use:   "export [id]...",
	Short: "Write servers as YAML to stdout or --file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverFile == "" {
			return app.Servers.Export(cmd.OutOrStdout(), args)
		}
		var b strings.Builder
		if err := app.Servers.Export(&b, args); err != nil {
			return err
		}
		if err := fsutil.WriteFileAtomic(serverFile, []byte(b.String()), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", serverFile, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s.\n", serverFile)
		return nil
	},
}

var serverImportCmd = &cobra.Command{
	Use:   "import <file.yaml|->",
	Short: "Import servers from a YAML export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()
			r = f
		}
		res, err := app.Servers.Import(r, serverReplace)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Added: %s\n", joinOrDash(res.Added))
		fmt.Fprintf(out, "Replaced: %s\n", joinOrDash(res.Replaced))
		if len(res.Skipped) > 0 {
			fmt.Fprintf(out, "Skipped (already exist, use --replace): %s\n", joinOrDash(res.Skipped))
		}
		return nil
	},
}

var serverImportMCPCmd = &cobra.Command{
	Use:   "import-mcp [path]",
	Short: "Import servers from a project .mcp.json file",
	Long:  "Read a project's .mcp.json, detect secrets in env and header values, and add the servers to the catalog.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := project.MCPConfigFile(project.RootOrSelf("."))
		if len(args) == 1 {
			source = args[0]
		}
		scan, err := commands.MCPImportScan(source)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		ids := make([]string, len(scan.Servers))
		for i, s := range scan.Servers {
			ids[i] = s.ID
		}
		fmt.Fprintf(out, "Found %d MCP server(s) in %s:\n", len(ids), scan.SourcePath)
		for _, id := range ids {
			fmt.Fprintf(out, "  - %s\n", id)
		}
		fmt.Fprintln(out)

		list := scan.Servers
		if len(scan.Secrets) > 0 && !serverKeepSecrets {
			fmt.Fprintf(out, "Detected %d secret(s):\n", len(scan.Secrets))
			for _, s := range scan.Secrets {
				where := "env"
				if s.Header {
					where = "headers"
				}
				fmt.Fprintf(out, "  - %s.%s.%s = %s (%s)\n", s.ServerID, where, s.Key, maskSecret(s.Value), s.Reason)
			}
			fmt.Fprintln(out)

			replace := true
			if interactive() {
				if replace, err = confirm("Replace detected secrets with variable references?", "The values are then read from the environment or the project's .env file at launch."); err != nil {
					return err
				}
			}
			if replace {
				list = commands.ReplaceSecrets(list, scan.Secrets, app.Generator.Platform())
				fmt.Fprintf(out, "Replaced %d secret(s) with variable references.\n", len(scan.Secrets))
				for _, s := range scan.Secrets {
					name := s.Key
					if s.Header {
						name = commands.HeaderVariable(s.Key)
					}
					fmt.Fprintf(out, "  set %s\n", commands.VariableReference(app.Generator.Platform(), name))
				}
				fmt.Fprintln(out)
			}
		}

		if len(ids) > 1 && interactive() {
			picked, err := runPicker("Select servers to import:", ids, nil, ids)
			if err != nil {
				return err
			}
			list = filterServers(list, picked)
			if len(list) == 0 {
				fmt.Fprintln(out, "No servers selected. Nothing to import.")
				return nil
			}
		}

		res, err := commands.MCPImport(app, commands.MCPImportOptions{
			Servers: list,
			Profile: serverProfile,
			Replace: serverReplace,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Imported: %s\n", joinOrDash(res.Imported))
		if len(res.Skipped) > 0 {
			fmt.Fprintf(out, "Skipped (already exist, use --replace): %s\n", joinOrDash(res.Skipped))
		}
		if res.Profile != nil {
			fmt.Fprintf(out, "Added to profile %q.\n", res.Profile.Name)
		}
		return nil
	},
}

func descriptorFromFlags(id string) (config.ServerDescriptor, error) {
	s := config.ServerDescriptor{
		ID:          id,
		Type:        config.Transport(serverType),
		Args:        serverArgs,
		Description: serverDescription,
		Category:    serverCategory,
	}
	switch {
	case serverURL != "" && serverCommand != "":
		return s, fmt.Errorf("use either --command or --url")
	case serverURL != "":
		s.CommandOrURL = serverURL
		if s.Type == "" {
			s.Type = config.TransportHTTP
		}
	default:
		s.CommandOrURL = serverCommand
	}
	var err error
	if s.Env, err = parsePairs("env", serverEnv); err != nil {
		return s, err
	}
	if s.Headers, err = parsePairs("header", serverHeaders); err != nil {
		return s, err
	}
	return s, nil
}

// parsePairs parses KEY=VALUE flags.
func parsePairs(flag string, pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("--%s %q: expected KEY=VALUE", flag, p)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}

func filterServers(list []config.ServerDescriptor, ids []string) []config.ServerDescriptor {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	var out []config.ServerDescriptor
	for _, s := range list {
		if keep[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// maskSecret shows the first four characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", min(len(s)-4, 12))
}

func init() {
	for _, c := range []*cobra.Command{serverAddCmd, serverEditCmd} {
		f := c.Flags()
		f.StringVar(&serverType, "type", "", "stdio or http")
		f.StringVar(&serverCommand, "command", "", "executable for stdio servers")
		f.StringVar(&serverURL, "url", "", "endpoint for http servers")
		f.StringArrayVar(&serverArgs, "arg", nil, "argument, repeatable")
		f.StringArrayVar(&serverEnv, "env", nil, "KEY=VALUE environment variable, repeatable")
		f.StringArrayVar(&serverHeaders, "header", nil, "KEY=VALUE http header, repeatable")
		f.StringVar(&serverDescription, "description", "", "description")
		f.StringVar(&serverCategory, "category", "", "category (default general)")
		f.BoolVar(&serverEnabled, "enabled", false, "enable the server")
	}
	serverAddCmd.Flags().Bool("template", false, "add the built-in template with this id")
	serverDeleteCmd.Flags().BoolVarP(&serverYes, "yes", "y", false, "do not ask for confirmation")
	serverExportCmd.Flags().StringVarP(&serverFile, "file", "f", "", "write to this file instead of stdout")
	serverImportCmd.Flags().BoolVar(&serverReplace, "replace", false, "replace servers that already exist")
	serverImportMCPCmd.Flags().BoolVar(&serverReplace, "replace", false, "replace servers that already exist")
	serverImportMCPCmd.Flags().StringVar(&serverProfile, "profile", "", "also add the imported servers to this profile")
	serverImportMCPCmd.Flags().BoolVar(&serverKeepSecrets, "keep-secrets", false, "store detected secrets as they are")

	serverCmd.AddCommand(serverListCmd)
	serverCmd.AddCommand(serverTemplatesCmd)
	serverCmd.AddCommand(serverAddCmd)
	serverCmd.AddCommand(serverEditCmd)
	serverCmd.AddCommand(serverDeleteCmd)
	serverCmd.AddCommand(toggleCmd("enable", true))
	serverCmd.AddCommand(toggleCmd("disable", false))
	serverCmd.AddCommand(serverExportCmd)
	serverCmd.AddCommand(serverImportCmd)
	serverCmd.AddCommand(serverImportMCPCmd)
}
