// Package orchestrator launches a built run spec as an external process,
// polls the interim result stream while it runs, and collects the final
// report. The library core never starts processes; this package exists for
// the CLI front end and for hosts that want a ready-made run loop.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/playbridge/playbridge/internal/results"
	"github.com/playbridge/playbridge/internal/runspec"
)

// DefaultPollInterval is how often the interim stream is polled while the
// runner is alive.
const DefaultPollInterval = 500 * time.Millisecond

// Logger is the diagnostic sink for the orchestrator.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Config configures an Orchestrator.
type Config struct {
	Logger Logger
	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration
	// OnUpdate, when set, receives each interim result batch.
	OnUpdate func(map[string]results.TestResult)
}

// Orchestrator runs one spec at a time.
type Orchestrator struct {
	logger   Logger
	interval time.Duration
	onUpdate func(map[string]results.TestResult)
	exitCode int
}

type noopLogger struct{}

func (noopLogger) Debug(format string, args ...interface{}) {}
func (noopLogger) Info(format string, args ...interface{})  {}
func (noopLogger) Error(format string, args ...interface{}) {}

// New creates an orchestrator.
func New(config Config) *Orchestrator {
	logger := config.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	interval := config.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Orchestrator{
		logger:   logger,
		interval: interval,
		onUpdate: config.OnUpdate,
	}
}

// GetExitCode returns the exit code of the last run.
func (o *Orchestrator) GetExitCode() int {
	return o.exitCode
}

// Run executes the spec's command, streams interim results until the
// process exits, then collects the final report. sourceFile is the test
// file the run was scoped to. The returned map is empty, never nil, when
// the run produced nothing.
func (o *Orchestrator) Run(ctx context.Context, spec *runspec.RunSpec, sourceFile string) (map[string]results.TestResult, error) {
	if spec == nil || len(spec.Command) == 0 {
		return map[string]results.TestResult{}, fmt.Errorf("orchestrator: empty run spec")
	}
	defer spec.StopStream()

	outputPath, outputFile, err := createOutputFile()
	if err != nil {
		o.exitCode = 1
		return map[string]results.TestResult{}, err
	}
	defer func() {
		_ = outputFile.Sync()
		_ = outputFile.Close()
	}()

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	if spec.Cwd != "" {
		cmd.Dir = spec.Cwd
	}

	cmd.Env = os.Environ()
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	// All runner output lands in one file; the results channel is the
	// reporter file, not stdout.
	cmd.Stdout = outputFile
	cmd.Stderr = outputFile

	o.logger.Debug("orchestrator: starting: %v", cmd.Args)
	o.logger.Debug("orchestrator: results file: %s", spec.ResultsPath)

	if err := cmd.Start(); err != nil {
		o.exitCode = 1
		return map[string]results.TestResult{}, fmt.Errorf("orchestrator: start runner: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	var waitErr error
poll:
	for {
		select {
		case waitErr = <-done:
			break poll
		case <-ticker.C:
			if o.onUpdate != nil {
				o.onUpdate(spec.Stream())
			}
		case sig := <-sigChan:
			o.logger.Info("orchestrator: forwarding %v to runner", sig)
			_ = cmd.Process.Signal(sig)
		case <-ctx.Done():
			waitErr = <-done
			break poll
		}
	}

	o.exitCode = exitCodeOf(waitErr)
	o.logger.Debug("orchestrator: runner exited with code %d", o.exitCode)

	final := results.Collect(spec.ResultsPath, sourceFile, outputPath, o.logger)
	return final, nil
}

func createOutputFile() (string, *os.File, error) {
	dir := filepath.Join(".playbridge", "runs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, fmt.Errorf("orchestrator: create run directory: %w", err)
	}
	f, err := os.CreateTemp(dir, "output-*.log")
	if err != nil {
		return "", nil, fmt.Errorf("orchestrator: create output file: %w", err)
	}
	return f.Name(), f, nil
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}
