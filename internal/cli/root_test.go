package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "reorder", cmd.Use)
	assert.Contains(t, cmd.Long, "order key")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"move", "rebalance", "check", "list", "seed", "serve", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"db", "driver", "config"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue, "%s defaults come from config", name)
	}
}

func TestMoveCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	moveCmd, _, err := cmd.Find([]string{"move"})
	require.NoError(t, err)

	assert.Equal(t, "p", moveCmd.Flags().Lookup("position").Shorthand)
	assert.Equal(t, "t", moveCmd.Flags().Lookup("target").Shorthand)
	assert.NotNil(t, moveCmd.Flags().Lookup("scope-id"))
	assert.NotNil(t, moveCmd.Flags().Lookup("scope-field"))
}

func TestExecute_InvalidFormat(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := Execute(context.Background(), []string{"list", "menu", "--format", "yaml"}, stdout, stderr)

	assert.Equal(t, ExitCommandError, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), `invalid format "yaml"`)
}

func TestExecute_UnknownFlag(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := Execute(context.Background(), []string{"list", "menu", "--bogus"}, stdout, stderr)

	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr.String(), "Error [E_COMMAND]")
}

func TestSettings(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "reorder.cue")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
database: {
	path:   "from-config.db"
	driver: "sqlite"
}
`), 0o644))

	testCases := []struct {
		name       string
		args       []string
		wantPath   string
		wantDriver string
		wantLevel  string
	}{
		{"defaults", nil, "reorder.db", "sqlite3", "info"},
		{"config file", []string{"--config", cfgPath}, "from-config.db", "sqlite", "info"},
		{"flags override config", []string{"--config", cfgPath, "--db", "flag.db", "--driver", "memory", "-v"}, "flag.db", "memory", "debug"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			root, opts := newRootCommand()
			probe := &cobra.Command{Use: "probe", RunE: func(*cobra.Command, []string) error { return nil }}
			root.AddCommand(probe)
			root.SetArgs(append([]string{"probe"}, tc.args...))
			require.NoError(t, root.Execute())

			cfg, err := opts.settings(probe)
			require.NoError(t, err)
			assert.Equal(t, tc.wantPath, cfg.Database.Path)
			assert.Equal(t, tc.wantDriver, cfg.Database.Driver)
			assert.Equal(t, tc.wantLevel, cfg.Log.Level)
		})
	}
}

func TestSettings_BadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`database: driver: "postgres"`), 0o644))

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := Execute(context.Background(), []string{"list", "menu", "--config", cfgPath}, stdout, stderr)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr.String(), "failed to load config")
}

func TestParseFilters(t *testing.T) {
	got, err := parseFilters([]string{"isDeleted=false", "parentId=3", "title=Home=Page"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"isDeleted": false,
		"parentId":  int64(3),
		"title":     "Home=Page",
	}, got)

	none, err := parseFilters(nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = parseFilters([]string{"parentId"})
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
