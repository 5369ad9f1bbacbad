package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ScottN-PV/cc-launcher/internal/commands"
	"github.com/ScottN-PV/cc-launcher/internal/logging"
	"github.com/ScottN-PV/cc-launcher/internal/settings"
)

var version = "1.1.0"

var (
	settingsFile string
	app          *commands.App
	logCloser    io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "cc-launcher",
	Short:         "Launch Claude Code with a chosen set of MCP servers",
	Long:          "cc-launcher keeps a catalog of MCP servers and named profiles, validates them against npm, and prints the shell command that starts claude with a temporary --mcp-config file.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load(settingsFile, cmd.Root().PersistentFlags())
		if err != nil {
			return err
		}
		logger, err := openLogger(s)
		if err != nil {
			return err
		}
		app = commands.Open(s, logger, commands.Overrides{})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusCmd.RunE(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cc-launcher %s\n", version)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&settingsFile, "settings", "", "settings file (default <config-dir>/cc-launcher.yaml)")
	flags.String("config-dir", "", "directory holding cc-launch.json (default ~/.claude)")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.BoolP("verbose", "v", false, "log to stderr instead of the log file")
	flags.Bool("offline", false, "report cached validation results only")
	flags.String("shell", "", "shell to generate commands for (wt, pwsh, powershell, cmd, bash, zsh, sh)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(configCmd)
}

func openLogger(s *settings.Settings) (*slog.Logger, error) {
	level, err := logging.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, err
	}
	if s.Verbose {
		return logging.New(os.Stderr, level), nil
	}
	f, err := logging.OpenFile(s.LogFile())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (logging disabled)\n", err)
		return logging.Discard(), nil
	}
	logCloser = f
	return logging.New(f, level), nil
}

// interactive reports whether prompts can be shown.
func interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(stdoutFd())
}

func stdoutFd() uintptr { return os.Stdout.Fd() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if app != nil {
			app.Logger.Debug("command failed", "error", err, "cause", errors.Unwrap(err))
		}
		fmt.Fprintln(os.Stderr, "Error:", userMessage(err))
		stop()
		os.Exit(1)
	}
}
