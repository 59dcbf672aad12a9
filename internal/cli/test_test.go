package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: move-after
fixtures:
  navigation:
    - {id: 3, parentId: 0, orderKey: 10, isDeleted: false, createdTime: 1}
    - {id: 4, parentId: 0, orderKey: 20, isDeleted: false, createdTime: 2}
    - {id: 5, parentId: 0, orderKey: 5, isDeleted: false, createdTime: 3}
steps:
  - move: {table: navigation, sourceId: 5, targetId: 3, position: after, scopeId: 0}
    expect: {updatedCount: 1, key: 15}
assertions:
  - {type: order, table: navigation, ids: [3, 5, 4]}
`

const failingScenario = `name: wrong-order
fixtures:
  menu:
    - {id: 1, parentId: 0, orderKey: 10, isDeleted: false, createdTime: 1}
    - {id: 2, parentId: 0, orderKey: 20, isDeleted: false, createdTime: 2}
assertions:
  - {type: order, table: menu, ids: [2, 1]}
`

func writeScenario(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := Execute(context.Background(), args, stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func TestTestCommandMissingArgs(t *testing.T) {
	code, _, stderr := runCLI(t, "test")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	code, _, stderr := runCLI(t, "test", "/nonexistent/scenarios")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "scenarios directory not found")
}

func TestTestCommandInvalidBackend(t *testing.T) {
	code, _, stderr := runCLI(t, "test", t.TempDir(), "--backend", "postgres")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, `invalid backend "postgres"`)
}

func TestTestCommandEmptyDir(t *testing.T) {
	code, stdout, _ := runCLI(t, "test", t.TempDir())
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "No scenarios found")

	code, stdout, _ = runCLI(t, "test", t.TempDir(), "--format", "json")
	assert.Equal(t, ExitSuccess, code)
	resp := decodeResponse(t, []byte(stdout))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, float64(0), resp.Data["total"])
}

func TestTestCommandPassAndFail(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			writeScenario(t, dir, "move-after.yaml", passingScenario)
			writeScenario(t, dir, "wrong-order.yaml", failingScenario)

			code, stdout, stderr := runCLI(t, "test", dir, "--backend", backend)
			assert.Equal(t, ExitFailure, code)
			assert.Contains(t, stdout, "✓ move-after")
			assert.Contains(t, stdout, "✗ wrong-order")
			assert.Contains(t, stdout, "order = [1 2], want [2 1]")
			assert.Contains(t, stdout, "Test Summary: 1 passed, 1 failed, 2 total")
			assert.Empty(t, stderr, "failures are reported once, on stdout")
		})
	}
}

func TestTestCommandFilterJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "move-after.yaml", passingScenario)
	writeScenario(t, dir, "wrong-order.yaml", failingScenario)

	code, stdout, _ := runCLI(t, "test", dir, "--filter", "move-*", "--format", "json")
	assert.Equal(t, ExitSuccess, code)

	resp := decodeResponse(t, []byte(stdout))
	assert.Equal(t, float64(1), resp.Data["total"])
	assert.Equal(t, float64(1), resp.Data["passed"])
	scenarios := resp.Data["scenarios"].([]any)
	assert.Equal(t, "move-after", scenarios[0].(map[string]any)["name"])
}

func TestTestCommandGolden(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "move-after.yaml", passingScenario)

	code, stdout, _ := runCLI(t, "test", dir, "--update")
	require.Equal(t, ExitSuccess, code, stdout)

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "move-after.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"state":{"navigation":[{"id":3,"key":10},{"id":5,"key":15},{"id":4,"key":20}]}`)

	code, _, _ = runCLI(t, "test", dir)
	assert.Equal(t, ExitSuccess, code, "snapshot matches the file it just wrote")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "move-after.golden"), []byte(`{}`), 0o644))
	code, stdout, _ = runCLI(t, "test", dir)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "snapshot does not match golden file")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\nfixturez: {}\n")

	code, stdout, _ := runCLI(t, "test", dir)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "✗ broken")
	assert.Contains(t, stdout, "failed to load scenario")
}

func TestFindScenarioFiles(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "subdir")
	require.NoError(t, os.MkdirAll(subDir, 0o755))

	for _, name := range []string{"move-a.yaml", "move-b.yml", "rebalance.yaml", "ignore.txt", "subdir/nested.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), nil, 0o644))
	}

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 4)

	files, err = findScenarioFiles(tmpDir, "move-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findScenarioFiles(tmpDir, "[")
	assert.Error(t, err)
}

func TestGoldenFilePath(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"/path/to/scenario.yaml", "/path/to/golden/scenario.golden"},
		{"/path/to/scenario.yml", "/path/to/golden/scenario.golden"},
		{"scenarios/test.yaml", "scenarios/golden/test.golden"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, goldenFilePath(tc.input))
	}
}
