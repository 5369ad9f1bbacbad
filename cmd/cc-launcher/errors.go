package main

import (
	"errors"

	"github.com/charmbracelet/huh"

	"github.com/ScottN-PV/cc-launcher/internal/store"
)

// userMessage turns an error into the line printed to the user. Causes go
// to the log only.
func userMessage(err error) string {
	var (
		corrupt *store.ConfigCorruptError
		write   *store.ConfigWriteError
	)
	switch {
	case errors.Is(err, huh.ErrUserAborted):
		return "aborted"
	case errors.As(err, &corrupt):
		if app != nil {
			app.Logger.Error("config corrupt", "detail", corrupt.Detail())
		}
		return corrupt.Error() + " (run 'cc-launcher config reset' to start over)"
	case errors.As(err, &write):
		if app != nil {
			app.Logger.Error("config write failed", "path", write.Path, "error", write.Err)
		}
		return write.Error()
	}
	return err.Error()
}
