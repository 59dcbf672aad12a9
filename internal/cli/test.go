package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reorder/internal/collection"
	"github.com/roach88/reorder/internal/scenario"
	"github.com/roach88/reorder/internal/store"
	"github.com/roach88/reorder/internal/store/memstore"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update  bool   // regenerate golden files
	Filter  string // scenario filter (glob pattern)
	Backend string // "memory" | "sqlite"
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string
	Pass   bool
	Errors []string
}

func (r ScenarioResult) payload() map[string]any {
	m := map[string]any{"name": r.Name, "pass": r.Pass}
	if len(r.Errors) > 0 {
		errs := make([]any, len(r.Errors))
		for i, e := range r.Errors {
			errs[i] = e
		}
		m["errors"] = errs
	}
	return m
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult
	Passed    int
	Failed    int
	Total     int
}

func (r TestResult) payload() map[string]any {
	scenarios := make([]any, len(r.Scenarios))
	for i, s := range r.Scenarios {
		scenarios[i] = s.payload()
	}
	return map[string]any{
		"scenarios": scenarios,
		"passed":    r.Passed,
		"failed":    r.Failed,
		"total":     r.Total,
	}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run reorder scenarios",
		Long: `Run YAML scenarios against a fresh store each, checking step
expectations, final-state assertions and, when present, the golden
snapshot in <scenarios-dir>/golden/<name>.golden.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  reorder test ./scenarios
  reorder test ./scenarios --filter "move-*"
  reorder test ./scenarios --backend sqlite --update`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Backend, "backend", "memory", "store to run against (memory|sqlite)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	if opts.Backend != "memory" && opts.Backend != "sqlite" {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid backend %q: must be memory or sqlite", opts.Backend))
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	f := opts.formatter(cmd)
	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		r := runScenario(opts, file, cmd)
		result.Scenarios = append(result.Scenarios, r)
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		if f.Format != "json" {
			printScenario(cmd.OutOrStdout(), r)
		}
	}

	if err := f.Success(result.payload(), func(w io.Writer) {
		if result.Total == 0 {
			fmt.Fprintln(w, "No scenarios found.")
			return
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
		if result.Failed == 0 {
			fmt.Fprintln(w, "✓ All scenarios passed")
		}
	}); err != nil {
		return err
	}

	if result.Failed > 0 {
		e := NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
		e.Reported = true
		return e
	}
	return nil
}

func printScenario(w io.Writer, r ScenarioResult) {
	if r.Pass {
		fmt.Fprintf(w, "✓ %s\n", r.Name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", r.Name)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// findScenarioFiles finds all YAML scenario files in a directory.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario executes one scenario file against a fresh store.
func runScenario(opts *TestOptions, file string, cmd *cobra.Command) ScenarioResult {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	fail := func(format string, args ...any) ScenarioResult {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf(format, args...)}}
	}

	sc, err := scenario.Load(file)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	name = sc.Name

	st, cleanup, err := scenarioStore(opts.Backend)
	if err != nil {
		return fail("failed to open store: %v", err)
	}
	defer cleanup()

	res, err := scenario.Run(commandContext(cmd), sc, st, nil)
	if err != nil {
		return fail("execution failed: %v", err)
	}

	snapshot, err := scenario.Snapshot(sc.Name, res)
	if err != nil {
		return fail("snapshot failed: %v", err)
	}
	goldenPath := goldenFilePath(file)

	if opts.Update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			return fail("failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, snapshot, 0o644); err != nil {
			return fail("failed to write golden file: %v", err)
		}
	} else if golden, err := os.ReadFile(goldenPath); err == nil {
		if !bytes.Equal(golden, snapshot) {
			res.Errors = append(res.Errors, "snapshot does not match golden file (run with --update to regenerate)")
			res.Pass = false
		}
	} else if !os.IsNotExist(err) {
		return fail("failed to read golden file: %v", err)
	}

	return ScenarioResult{Name: sc.Name, Pass: res.Pass, Errors: res.Errors}
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// scenarioStore opens an empty store for one scenario.
func scenarioStore(backend string) (recordStore, func(), error) {
	if backend == "memory" {
		return memstore.New(collection.Default().Tables()...), func() {}, nil
	}

	dir, err := os.MkdirTemp("", "reorder-scenario-")
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(filepath.Join(dir, "scenario.db"))
	if err != nil {
		os.RemoveAll(dir)
		return nil, nil, err
	}
	return st, func() {
		st.Close()
		os.RemoveAll(dir)
	}, nil
}
