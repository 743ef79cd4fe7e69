package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/playbridge/playbridge/internal/discovery"
	"github.com/playbridge/playbridge/internal/logger"
	"github.com/playbridge/playbridge/internal/orchestrator"
	"github.com/playbridge/playbridge/internal/results"
	"github.com/playbridge/playbridge/internal/runspec"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "playbridge",
		Short: "Playwright adapter for editors and agents",
		Long: `playbridge discovers Playwright tests, builds runner invocations and
streams the JSON report back as structured per-test results.

Examples:
  playbridge discover tests/checkout.spec.ts   # Print the test tree
  playbridge discover ./tests                  # Scan a directory
  playbridge plan tests/checkout.spec.ts:12    # Show the invocation for the test at line 12
  playbridge run tests/checkout.spec.ts        # Run the whole file`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(discoverCmd(), planCmd(), runCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func discoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover <file-or-directory>",
		Short: "Print the discovered test tree as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return discoverTarget(args[0], cmd.OutOrStdout())
		},
	}
}

func planCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "plan <file[:line]> [-- extra args]",
		Short: "Print the runner invocation for a test without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := buildSpec(args[0], args[1:], debug, nil)
			if err != nil {
				return err
			}
			defer spec.StopStream()
			defer func() { _ = os.Remove(spec.ResultsPath) }()
			return printSpec(spec, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "emit a debug launch descriptor")
	return cmd
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file[:line]> [-- extra args]",
		Short: "Run a test file, group or single test",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exitCode, err := runCore(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			os.Exit(exitCode)
			return nil
		},
	}
}

func discoverTarget(target string, out io.Writer) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if info.IsDir() {
		result, err := discovery.Scan(context.Background(), target)
		if err != nil {
			return err
		}
		view := struct {
			Positions []*discovery.Position `json:"positions"`
			Errors    []string              `json:"errors,omitempty"`
		}{Positions: result.Positions}
		for _, scanErr := range result.Errors {
			view.Errors = append(view.Errors, scanErr.Error())
		}
		return enc.Encode(view)
	}

	pos, err := discovery.Discover(target)
	if err != nil {
		return err
	}
	if pos == nil {
		fmt.Fprintf(os.Stderr, "No tests found in %s\n", target)
		return nil
	}
	return enc.Encode(pos)
}

// buildSpec turns a file[:line] target into a RunSpec for the deepest
// position covering that line, or for the whole file when no line is
// given.
func buildSpec(target string, extraArgs []string, debug bool, log runspec.Logger) (*runspec.RunSpec, error) {
	path, line, err := splitTarget(target)
	if err != nil {
		return nil, err
	}

	root, err := discovery.Discover(path)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("no tests found in %s", path)
	}

	pos := root
	if line > 0 {
		if pos = positionAt(root, line-1); pos == nil {
			return nil, fmt.Errorf("no test at %s:%d", path, line)
		}
	}

	var opts []runspec.Option
	if log != nil {
		opts = append(opts, runspec.WithLogger(log))
	}
	runArgs := runspec.RunArgs{ExtraArgs: extraArgs}
	if debug {
		runArgs.Strategy = runspec.StrategyDAP
	}
	return runspec.New(opts...).Build(pos, runArgs)
}

// splitTarget parses "path" or "path:line" with a 1-based line number.
func splitTarget(target string) (string, int, error) {
	idx := strings.LastIndex(target, ":")
	if idx < 0 {
		return target, 0, nil
	}
	line, err := strconv.Atoi(target[idx+1:])
	if err != nil {
		// A colon that is not followed by a number is part of the path.
		return target, 0, nil
	}
	if line < 1 {
		return "", 0, fmt.Errorf("invalid line in %q", target)
	}
	return target[:idx], line, nil
}

// positionAt finds the deepest position whose range contains a 0-based
// line.
func positionAt(pos *discovery.Position, line int) *discovery.Position {
	if line < pos.Range.StartLine || line > pos.Range.EndLine {
		return nil
	}
	for _, child := range pos.Children {
		if deeper := positionAt(child, line); deeper != nil {
			return deeper
		}
	}
	return pos
}

func printSpec(spec *runspec.RunSpec, out io.Writer) error {
	view := struct {
		Command        []string                `json:"command"`
		Cwd            string                  `json:"cwd,omitempty"`
		Env            map[string]string       `json:"env"`
		ResultsPath    string                  `json:"resultsPath"`
		StrategyConfig *runspec.StrategyConfig `json:"strategyConfig,omitempty"`
	}{spec.Command, spec.Cwd, spec.Env, spec.ResultsPath, spec.StrategyConfig}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

// runCore builds and executes a run, printing per-test lines as they
// settle. It returns the runner's exit code.
func runCore(ctx context.Context, target string, extraArgs []string) (int, error) {
	path, _, err := splitTarget(target)
	if err != nil {
		return 1, err
	}

	fileLogger, err := logger.NewFileLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create debug logger: %v\n", err)
		return 1, err
	}
	defer func() {
		if err := fileLogger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close debug log: %v\n", err)
		}
	}()

	spec, err := buildSpec(target, extraArgs, false, fileLogger)
	if err != nil {
		return 1, err
	}
	defer func() { _ = os.Remove(spec.ResultsPath) }()

	seen := map[string]bool{}
	orch := orchestrator.New(orchestrator.Config{
		Logger: fileLogger,
		OnUpdate: func(batch map[string]results.TestResult) {
			printNew(batch, seen)
		},
	})

	final, err := orch.Run(ctx, spec, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		return orch.GetExitCode(), err
	}
	printNew(final, seen)

	passed, failed := 0, 0
	for _, r := range final {
		if r.Status == results.StatusPassed {
			passed++
		} else {
			failed++
		}
	}
	fmt.Printf("\n%d passed, %d failed\n", passed, failed)
	return orch.GetExitCode(), nil
}

func printNew(batch map[string]results.TestResult, seen map[string]bool) {
	for id, r := range batch {
		if seen[id] {
			continue
		}
		seen[id] = true
		fmt.Println(r.Summary)
	}
}
