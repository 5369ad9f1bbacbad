package main

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/ScottN-PV/cc-launcher/internal/validation"
)

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Options.SeparateRows = false
	t.AppendHeader(table.Row(header))
	return t
}

// colorize applies c only when stdout is a terminal.
func colorize(c text.Color, s string) string {
	if !isatty.IsTerminal(stdoutFd()) {
		return s
	}
	return c.Sprint(s)
}

func statusText(e validation.Entry, f validation.Freshness) string {
	if f == validation.Absent {
		return colorize(text.FgHiBlack, "unchecked")
	}
	s := string(e.Status)
	if f == validation.Stale {
		s += " (stale)"
	}
	switch e.Status {
	case validation.StatusOK:
		return colorize(text.FgGreen, s)
	case validation.StatusWarning:
		return colorize(text.FgYellow, s)
	case validation.StatusError:
		return colorize(text.FgRed, s)
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func joinOrDash(list []string) string {
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(list, ", ")
}
