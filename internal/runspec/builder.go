// Package runspec assembles the full invocation of the Playwright runner
// for a chosen position: argument vector, environment, working directory,
// a fresh results file, and a streaming reader over it.
package runspec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/playbridge/playbridge/internal/discovery"
	"github.com/playbridge/playbridge/internal/resolve"
	"github.com/playbridge/playbridge/internal/results"
)

// ResultsEnvVar is the environment variable the runner's JSON reporter
// reads the output path from.
const ResultsEnvVar = "PLAYWRIGHT_JSON_OUTPUT_NAME"

// jsonReporterFlag asks the runner for the machine-readable report.
const jsonReporterFlag = "--reporter=json"

// RunArgs carries the per-run inputs supplied by the host.
type RunArgs struct {
	// ExtraArgs are appended to the runner invocation after the `test`
	// subcommand.
	ExtraArgs []string
	// Env is the caller-supplied child environment, merged through the
	// adapter's merge function.
	Env map[string]string
	// Strategy selects the execution strategy; StrategyDAP requests a
	// debug launch descriptor.
	Strategy string
}

// RunSpec is the fully resolved description of one runner invocation. Each
// RunSpec owns its results file and stream handle for the lifetime of one
// run.
type RunSpec struct {
	Command        []string
	Cwd            string
	Env            map[string]string
	ResultsPath    string
	StrategyConfig *StrategyConfig

	// Stream produces the current interim result batch; StopStream
	// releases the stream. StopStream is idempotent.
	Stream     func() map[string]results.TestResult
	StopStream func()
}

// Build combines a chosen position with the adapter's resolvers into a
// RunSpec. The external process is not started here; the caller launches
// Command with Env and Cwd and lets the reporter write ResultsPath.
func (a *Adapter) Build(pos *discovery.Position, args RunArgs) (*RunSpec, error) {
	if pos == nil {
		return nil, fmt.Errorf("runspec: no position selected")
	}

	binTokens := strings.Fields(a.binary(pos.Path))
	if len(binTokens) == 0 {
		binTokens = []string{resolve.RunnerName}
	}

	command := make([]string, 0, len(binTokens)+len(args.ExtraArgs)+4)
	command = append(command, binTokens...)
	command = append(command, "test")
	command = append(command, args.ExtraArgs...)

	if cfg := a.configFile(pos.Path); cfg != "" {
		command = append(command, "--config="+cfg)
	}

	command = append(command, selector(pos), jsonReporterFlag)

	resultsPath, err := createResultsFile()
	if err != nil {
		return nil, err
	}

	env := a.mergeEnv(args.Env)
	env[ResultsEnvVar] = resultsPath

	cwd := a.cwd()

	streamer := results.NewStreamer(resultsPath, pos.Path, a.logger)

	spec := &RunSpec{
		Command:     command,
		Cwd:         cwd,
		Env:         env,
		ResultsPath: resultsPath,
		Stream:      streamer.Poll,
		StopStream:  streamer.Stop,
	}

	if args.Strategy == StrategyDAP {
		spec.StrategyConfig = a.strategy(command, cwd)
	}

	a.logger.Debug("runspec: command: %s", strings.Join(command, " "))

	return spec, nil
}

// selector scopes the run: exact-position filtering for tests and
// namespaces via the 1-based start line, the whole file otherwise.
func selector(pos *discovery.Position) string {
	switch pos.Kind {
	case discovery.KindTest, discovery.KindNamespace:
		return fmt.Sprintf("%s:%d", pos.Path, pos.Range.StartLine+1)
	default:
		return pos.Path
	}
}

// configFile returns the config path to pass on the command line, or ""
// when no flag should be added. The resolver's answer is used when the
// file exists; otherwise the assumed default names beside the
// version-control root are probed.
func (a *Adapter) configFile(path string) string {
	if cfg := a.config(path); cfg != "" && fileExists(cfg) {
		return cfg
	}

	root := resolve.FindVCSRoot(path)
	if root == "" {
		return ""
	}
	for _, name := range []string{"playwright.config.ts", "playwright.config.js"} {
		candidate := filepath.Join(root, name)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

// createResultsFile allocates a unique, initially empty results file so a
// streaming reader always has a readable target before the runner starts.
func createResultsFile() (string, error) {
	f, err := os.CreateTemp("", "playbridge-results-*.json")
	if err != nil {
		return "", fmt.Errorf("runspec: create results file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("runspec: close results file: %w", err)
	}
	return path, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
