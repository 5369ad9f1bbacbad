package commands

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/ScottN-PV/cc-launcher/internal/config"
	"github.com/ScottN-PV/cc-launcher/internal/launch"
)

// LaunchRequest selects what to launch.
type LaunchRequest struct {
	// Profile is a profile id or name. Empty uses the active profile, or the
	// servers enabled in the catalog when no profile is active.
	Profile string
	// ProjectDir defaults to the last project path.
	ProjectDir string
	// Shell overrides detection and the shell setting.
	Shell string
	// LookPath defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

// LaunchResult is a prepared launch plus the profile it came from.
type LaunchResult struct {
	launch.Launch
	Profile *config.Profile
}

// PrepareLaunch writes the descriptor file for the selected servers and
// returns the command to run. Profiles left in the project's legacy profile
// file are imported into the global set first. On success the project is
// recorded in the recent list and the profile becomes the active one.
func PrepareLaunch(a *App, req LaunchRequest) (*LaunchResult, error) {
	doc, err := a.Store.Load()
	if err != nil {
		return nil, err
	}

	dir := req.ProjectDir
	if dir == "" {
		dir = doc.Preferences.LastProjectPath
	}
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, &launch.InvalidProjectPathError{Path: dir, Reason: "cannot be resolved", Err: err}
		}
		dir = abs
	}

	if n, err := a.Profiles.ImportLegacyProject(dir); err != nil {
		a.Logger.Warn("legacy project profiles not imported", "project", dir, "error", err)
	} else if n > 0 {
		if doc, err = a.Store.Load(); err != nil {
			return nil, err
		}
	}

	var profile *config.Profile
	if req.Profile != "" {
		p, err := a.Profiles.Resolve(req.Profile)
		if err != nil {
			return nil, err
		}
		profile = &p
	} else if p, ok := doc.Profiles[doc.Preferences.LastProfile]; ok {
		profile = &p
	}

	list := doc.ServerList()
	if profile != nil {
		for i := range list {
			list[i].Enabled = profile.HasServer(list[i].ID)
		}
	}

	shell, err := chooseShell(a, doc, req)
	if err != nil {
		return nil, err
	}

	l, err := a.Generator.Prepare(list, dir, shell)
	if err != nil {
		return nil, err
	}

	if _, err := a.Store.Update(func(doc *config.Document) error {
		doc.Preferences.RecordProject(dir)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("recording project: %w", err)
	}
	if profile != nil {
		p, err := a.Profiles.SetActive(profile.ID)
		if err != nil {
			return nil, err
		}
		profile = &p
	}

	a.Logger.Info("launch prepared", "dir", dir, "shell", shell, "servers", len(l.Servers), "descriptor", l.DescriptorPath)
	if len(l.Unresolved) > 0 {
		a.Logger.Warn("unresolved variables left verbatim", "names", l.Unresolved)
	}
	return &LaunchResult{Launch: l, Profile: profile}, nil
}

func chooseShell(a *App, doc *config.Document, req LaunchRequest) (launch.Shell, error) {
	name := req.Shell
	if name == "" {
		name = a.Settings.Shell
	}
	if name != "" {
		s, ok := launch.ParseShell(name)
		if !ok {
			return launch.Shell{}, fmt.Errorf("unknown shell %q", name)
		}
		return s, nil
	}
	lookPath := req.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	return launch.DetectShell(a.Generator.Platform(), lookPath, launch.DetectOptions{
		ForcePowerShell: doc.Preferences.ForcePowerShell,
		Logger:          a.Logger,
	}), nil
}
