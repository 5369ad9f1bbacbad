package launch_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ScottN-PV/cc-launcher/internal/config"
	"github.com/ScottN-PV/cc-launcher/internal/launch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookPathFor(found ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, f := range found {
			if f == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestDetectShell(t *testing.T) {
	tests := []struct {
		name     string
		platform launch.Platform
		found    []string
		force    bool
		want     launch.ShellKind
	}{
		{"windows prefers terminal", launch.Windows, []string{"wt", "pwsh", "powershell"}, false, launch.WindowsTerminal},
		{"windows forced powershell", launch.Windows, []string{"wt", "pwsh"}, true, launch.PowerShell7},
		{"windows powershell 5", launch.Windows, []string{"powershell"}, false, launch.PowerShell5},
		{"windows fallback", launch.Windows, nil, false, launch.Cmd},
		{"darwin prefers zsh", launch.Darwin, []string{"bash", "zsh", "sh"}, false, launch.Zsh},
		{"darwin bash", launch.Darwin, []string{"bash", "sh"}, false, launch.Bash},
		{"linux prefers bash", launch.Linux, []string{"zsh", "bash"}, false, launch.Bash},
		{"linux zsh", launch.Linux, []string{"zsh", "sh"}, false, launch.Zsh},
		{"linux fallback", launch.Linux, nil, false, launch.Sh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := launch.DetectShell(tt.platform, lookPathFor(tt.found...), launch.DetectOptions{ForcePowerShell: tt.force})
			assert.Equal(t, tt.want, sh.Kind)
		})
	}
}

func TestShellDialects(t *testing.T) {
	assert.Equal(t, "powershell", launch.Shell{Kind: launch.WindowsTerminal}.Dialect().Name())
	assert.Equal(t, "powershell", launch.Shell{Kind: launch.PowerShell5}.Dialect().Name())
	assert.Equal(t, "cmd", launch.Shell{Kind: launch.Cmd}.Dialect().Name())
	assert.Equal(t, "posix", launch.Shell{Kind: launch.Zsh}.Dialect().Name())

	sh, ok := launch.ParseShell(" PWSH ")
	require.True(t, ok)
	assert.Equal(t, launch.PowerShell7, sh.Kind)
	_, ok = launch.ParseShell("fish")
	assert.False(t, ok)
}

func TestForGOOS(t *testing.T) {
	assert.Equal(t, "windows", launch.ForGOOS("windows").Name())
	assert.Equal(t, "darwin", launch.ForGOOS("darwin").Name())
	assert.Equal(t, "linux", launch.ForGOOS("freebsd").Name())
	assert.Equal(t, []launch.ShellKind{launch.Bash, launch.Zsh, launch.Sh}, launch.Linux.ShellOrder())
	assert.True(t, launch.Darwin.Posix())
	assert.False(t, launch.Windows.Posix())
}

func resolver(workDir string, env map[string]string) *launch.Resolver {
	return &launch.Resolver{
		WorkingDir: workDir,
		Home:       "/home/me",
		TempDir:    os.TempDir(),
		DotEnv:     map[string]string{},
		LookupEnv: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
	}
}

func TestExpandEnvironment(t *testing.T) {
	r := resolver("/work/proj", map[string]string{"API_KEY": "secret", "PATH": "/bin"})

	t.Run("temp on both syntaxes", func(t *testing.T) {
		got, missing := launch.ExpandEnvironment("%TEMP%/x", launch.Windows, r)
		assert.Equal(t, os.TempDir()+"/x", got)
		assert.Empty(t, missing)

		got, missing = launch.ExpandEnvironment("$TMPDIR/x", launch.Linux, r)
		assert.Equal(t, os.TempDir()+"/x", got)
		assert.Empty(t, missing)
	})

	t.Run("unresolved stays verbatim", func(t *testing.T) {
		got, missing := launch.ExpandEnvironment("a %UNSET% b %UNSET%", launch.Windows, r)
		assert.Equal(t, "a %UNSET% b %UNSET%", got)
		assert.Equal(t, []string{"UNSET"}, missing)

		got, missing = launch.ExpandEnvironment("${NOPE}/$ALSO_NOPE", launch.Darwin, r)
		assert.Equal(t, "${NOPE}/$ALSO_NOPE", got)
		assert.Equal(t, []string{"NOPE", "ALSO_NOPE"}, missing)
	})

	tests := []struct {
		name     string
		text     string
		platform launch.Platform
		want     string
	}{
		{"cd synonym", "%CD%/src", launch.Windows, "/work/proj/src"},
		{"cd lower case", "%cd%", launch.Windows, "/work/proj"},
		{"pwd on windows", "%PWD%", launch.Windows, "/work/proj"},
		{"pwd posix", "$PWD/src", launch.Linux, "/work/proj/src"},
		{"braced", "${HOME}/.config", launch.Linux, "/home/me/.config"},
		{"userprofile on posix", "$USERPROFILE", launch.Linux, "/home/me"},
		{"home on windows", "%HOME%", launch.Windows, "/home/me"},
		{"process env", "Bearer $API_KEY", launch.Linux, "Bearer secret"},
		{"process env folded", "%api_key%", launch.Windows, "secret"},
		{"posix is case sensitive", "$api_key", launch.Linux, "$api_key"},
		{"other syntax untouched", "%API_KEY%", launch.Linux, "%API_KEY%"},
		{"no references", "plain -y pkg", launch.Windows, "plain -y pkg"},
		{"lone percent", "100% sure", launch.Windows, "100% sure"},
		{"lone dollar", "costs $5", launch.Linux, "costs $5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := launch.ExpandEnvironment(tt.text, tt.platform, r)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolverReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PROJECT_TOKEN=abc\nHOME=/not/used\n"), 0o644))

	r, err := launch.NewResolver(dir)
	require.NoError(t, err)
	r.LookupEnv = func(k string) (string, bool) {
		if k == "PROJECT_TOKEN" {
			return "from-process", true
		}
		return "", false
	}

	got, missing := launch.ExpandEnvironment("$PROJECT_TOKEN", launch.Linux, r)
	assert.Equal(t, "abc", got, ".env wins over the process environment")
	assert.Empty(t, missing)

	got, _ = launch.ExpandEnvironment("$HOME", launch.Linux, r)
	assert.Equal(t, r.Home, got, "synonyms win over .env")

	got, _ = launch.ExpandEnvironment("%project_token%", launch.Windows, r)
	assert.Equal(t, "abc", got)

	noEnv, err := launch.NewResolver(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, noEnv.DotEnv)
}

func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	g := launch.NewGenerator(launch.Options{})
	file := "/tmp/cc-mcp-1234.json"

	cmd, err := g.BuildCommand(dir, file, launch.Shell{Kind: launch.Bash})
	require.NoError(t, err)
	assert.Equal(t, `cd "`+dir+`" && claude --mcp-config "/tmp/cc-mcp-1234.json"`, cmd)

	cmd, err = g.BuildCommand(dir, file, launch.Shell{Kind: launch.PowerShell7})
	require.NoError(t, err)
	assert.Equal(t, "Set-Location -LiteralPath \""+dir+"\"\nclaude --mcp-config \"/tmp/cc-mcp-1234.json\"", cmd)

	cmd, err = g.BuildCommand(dir, file, launch.Shell{Kind: launch.Cmd})
	require.NoError(t, err)
	assert.Equal(t, `cd /d "`+dir+`" && claude --mcp-config "/tmp/cc-mcp-1234.json"`, cmd)

	again, err := g.BuildCommand(dir, file, launch.Shell{Kind: launch.Cmd})
	require.NoError(t, err)
	assert.Equal(t, cmd, again, "deterministic")
}

func TestBuildCommand_Escaping(t *testing.T) {
	dir := filepath.Join(t.TempDir(), `we"ird $dir`+"`x`"+`\z`)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	cmd, err := launch.BuildCommand(dir, "/tmp/f.json", launch.Shell{Kind: launch.Sh})
	require.NoError(t, err)
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`").Replace(dir)
	assert.Equal(t, `cd "`+escaped+`" && claude --mcp-config "/tmp/f.json"`, cmd)

	assert.Equal(t, "\"a`\"b`$c``d\"", launch.PowerShell.Quote("a\"b$c`d"))
	assert.Equal(t, `"a""b"`, launch.CmdExe.Quote(`a"b`))
	assert.Equal(t, `"a\"b\$c\\d"`, launch.POSIX.Quote(`a"b$c\d`))
}

func TestBuildCommand_InvalidPath(t *testing.T) {
	g := launch.NewGenerator(launch.Options{})
	var perr *launch.InvalidProjectPathError

	_, err := g.BuildCommand(filepath.Join(t.TempDir(), "missing"), "/tmp/f.json", launch.Shell{Kind: launch.Bash})
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Error(), "does not exist")

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = g.BuildCommand(file, "/tmp/f.json", launch.Shell{Kind: launch.Bash})
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Error(), "not a directory")
}

func servers() []config.ServerDescriptor {
	return []config.ServerDescriptor{
		{ID: "files", Type: config.TransportStdio, CommandOrURL: "npx", Args: []string{"-y", "@mcp/fs", "$PWD"}, Env: map[string]string{"TOKEN": "$API_KEY"}, Enabled: true},
		{ID: "off", Type: config.TransportStdio, CommandOrURL: "npx", Args: []string{"x"}, Enabled: false},
		{ID: "remote", Type: config.TransportHTTP, CommandOrURL: "https://mcp.example.com/$MISSING", Headers: map[string]string{"Authorization": "Bearer $API_KEY"}, Enabled: true},
		{ID: "bare", Type: config.TransportStdio, CommandOrURL: "node", Enabled: true},
	}
}

func newGenerator(t *testing.T) (*launch.Generator, string) {
	t.Helper()
	tmp := t.TempDir()
	linux := launch.Linux
	return launch.NewGenerator(launch.Options{
		Platform: &linux,
		TempDir:  tmp,
		Resolver: resolver("", map[string]string{"API_KEY": "k"}),
	}), tmp
}

func TestBuildDescriptorFile(t *testing.T) {
	g, tmp := newGenerator(t)
	proj := t.TempDir()

	path, unresolved, err := g.BuildDescriptorFile(servers(), proj)
	require.NoError(t, err)
	assert.Equal(t, tmp, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "cc-mcp-"))
	assert.Equal(t, []string{"MISSING"}, unresolved)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got struct {
		MCPServers map[string]map[string]any `json:"mcpServers"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.MCPServers, 3)
	assert.NotContains(t, got.MCPServers, "off")

	files := got.MCPServers["files"]
	assert.Equal(t, "stdio", files["type"])
	assert.Equal(t, "npx", files["command"])
	assert.Equal(t, []any{"-y", "@mcp/fs", proj}, files["args"])
	assert.Equal(t, map[string]any{"TOKEN": "k"}, files["env"])

	remote := got.MCPServers["remote"]
	assert.Equal(t, "http", remote["type"])
	assert.Equal(t, "https://mcp.example.com/$MISSING", remote["url"])
	assert.Equal(t, map[string]any{"Authorization": "Bearer k"}, remote["headers"])

	bare := got.MCPServers["bare"]
	assert.Equal(t, []any{}, bare["args"])
	assert.NotContains(t, bare, "env")

	assert.Less(t, strings.Index(string(data), `"files"`), strings.Index(string(data), `"remote"`), "server order is kept")

	read, err := launch.ReadDescriptorFile(path)
	require.NoError(t, err)
	require.Len(t, read, 3)
	assert.Equal(t, "files", read[0].ID)
	assert.Equal(t, config.TransportHTTP, read[1].Type)
	assert.Equal(t, "https://mcp.example.com/$MISSING", read[1].CommandOrURL)
}

func TestPrepare_NoEnabledServersWritesNothing(t *testing.T) {
	g, tmp := newGenerator(t)
	proj := t.TempDir()

	off := servers()[1:2]
	_, err := g.Prepare(off, proj, launch.Shell{Kind: launch.Bash})
	var none *launch.NoEnabledServersError
	require.True(t, errors.As(err, &none))

	_, _, err = g.BuildDescriptorFile(nil, proj)
	require.True(t, errors.As(err, &none))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrepare_ChecksPathFirst(t *testing.T) {
	g, tmp := newGenerator(t)
	_, err := g.Prepare(nil, filepath.Join(tmp, "nope"), launch.Shell{Kind: launch.Bash})
	var perr *launch.InvalidProjectPathError
	require.True(t, errors.As(err, &perr), "path is checked before the server set")

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrepare_ReplacesPreviousDescriptor(t *testing.T) {
	g, _ := newGenerator(t)
	proj := t.TempDir()

	first, err := g.Prepare(servers(), proj, launch.Shell{Kind: launch.Zsh})
	require.NoError(t, err)
	assert.FileExists(t, first.DescriptorPath)
	assert.Equal(t, []string{"files", "remote", "bare"}, first.Servers)
	assert.Contains(t, first.Command, first.DescriptorPath)

	second, err := g.Prepare(servers(), proj, launch.Shell{Kind: launch.Zsh})
	require.NoError(t, err)
	assert.NoFileExists(t, first.DescriptorPath)
	assert.FileExists(t, second.DescriptorPath)

	require.NoError(t, g.Cleanup())
	assert.NoFileExists(t, second.DescriptorPath)
	require.NoError(t, g.Cleanup())
}

func TestSweepStale(t *testing.T) {
	g, tmp := newGenerator(t)
	old := filepath.Join(tmp, "cc-mcp-old.json")
	recent := filepath.Join(tmp, "cc-mcp-new.json")
	other := filepath.Join(tmp, "unrelated.json")
	for _, p := range []string{old, recent, other} {
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0o600))
	}
	past := time.Now().Add(-25 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Chtimes(other, past, past))

	n, err := g.SweepStale()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, old)
	assert.FileExists(t, recent)
	assert.FileExists(t, other)
}
