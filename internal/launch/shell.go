package launch

import (
	"log/slog"
	"strings"
)

// ShellKind names a terminal or shell executable.
type ShellKind string

const (
	WindowsTerminal ShellKind = "wt"
	PowerShell7     ShellKind = "pwsh"
	PowerShell5     ShellKind = "powershell"
	Cmd             ShellKind = "cmd"
	Bash            ShellKind = "bash"
	Zsh             ShellKind = "zsh"
	Sh              ShellKind = "sh"
)

// Dialect is the command syntax a shell understands.
type Dialect interface {
	Name() string
	// Quote returns s as a double-quoted argument.
	Quote(s string) string
	// Command joins a directory change and the CLI invocation.
	Command(dir, descriptor, cli string) string
}

// Shell is a detected shell and the dialect used to write commands for it.
type Shell struct {
	Kind ShellKind
	// Path is the resolved executable, empty for a fallback.
	Path string
}

// Dialect returns the command syntax for the shell.
func (s Shell) Dialect() Dialect {
	switch s.Kind {
	case WindowsTerminal, PowerShell7, PowerShell5:
		return PowerShell
	case Cmd:
		return CmdExe
	default:
		return POSIX
	}
}

func (s Shell) String() string { return string(s.Kind) }

// The three dialects.
var (
	PowerShell Dialect = powershellDialect{}
	CmdExe     Dialect = cmdDialect{}
	POSIX      Dialect = posixDialect{}
)

type powershellDialect struct{}

func (powershellDialect) Name() string { return "powershell" }

var powershellEscaper = strings.NewReplacer("`", "``", `"`, "`\"", "$", "`$")

func (powershellDialect) Quote(s string) string {
	return `"` + powershellEscaper.Replace(s) + `"`
}

func (d powershellDialect) Command(dir, descriptor, cli string) string {
	return "Set-Location -LiteralPath " + d.Quote(dir) + "\n" + cli + " --mcp-config " + d.Quote(descriptor)
}

type cmdDialect struct{}

func (cmdDialect) Name() string { return "cmd" }

// Quote doubles embedded quotes; Windows paths cannot contain them anyway.
func (cmdDialect) Quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (d cmdDialect) Command(dir, descriptor, cli string) string {
	return "cd /d " + d.Quote(dir) + " && " + cli + " --mcp-config " + d.Quote(descriptor)
}

type posixDialect struct{}

func (posixDialect) Name() string { return "posix" }

var posixEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

func (posixDialect) Quote(s string) string {
	return `"` + posixEscaper.Replace(s) + `"`
}

func (d posixDialect) Command(dir, descriptor, cli string) string {
	return "cd " + d.Quote(dir) + " && " + cli + " --mcp-config " + d.Quote(descriptor)
}

// DetectOptions tunes DetectShell.
type DetectOptions struct {
	// ForcePowerShell skips Windows Terminal.
	ForcePowerShell bool
	Logger          *slog.Logger
}

// DetectShell returns the first shell of the platform's preference order
// that lookPath finds, or the platform fallback. It never fails.
func DetectShell(p Platform, lookPath func(string) (string, error), opts DetectOptions) Shell {
	for _, kind := range p.shells {
		if kind == WindowsTerminal && opts.ForcePowerShell {
			continue
		}
		if path, err := lookPath(string(kind)); err == nil {
			if opts.Logger != nil {
				opts.Logger.Debug("shell detected", "platform", p.name, "shell", kind, "path", path)
			}
			return Shell{Kind: kind, Path: path}
		}
	}
	if opts.Logger != nil {
		opts.Logger.Info("no preferred shell found, using fallback", "platform", p.name, "shell", p.fallback)
	}
	return Shell{Kind: p.fallback}
}

// ParseShell maps a shell name to a Shell, for explicit user choice.
func ParseShell(name string) (Shell, bool) {
	switch k := ShellKind(strings.ToLower(strings.TrimSpace(name))); k {
	case WindowsTerminal, PowerShell7, PowerShell5, Cmd, Bash, Zsh, Sh:
		return Shell{Kind: k}, true
	}
	return Shell{}, false
}
