package runspec

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/playbridge/playbridge/internal/discovery"
)

// repoFixture builds a minimal repository with a local playwright install
// and returns (repo, specPath).
func repoFixture(t *testing.T) (string, string) {
	t.Helper()
	repo := t.TempDir()
	if err := os.MkdirAll(filepath.Join(repo, ".git"), 0755); err != nil {
		t.Fatalf("mkdir .git: %v", err)
	}
	bin := filepath.Join(repo, "node_modules", ".bin", "playwright")
	if err := os.MkdirAll(filepath.Dir(bin), 0755); err != nil {
		t.Fatalf("mkdir .bin: %v", err)
	}
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	spec := filepath.Join(repo, "e2e", "a.spec.ts")
	if err := os.MkdirAll(filepath.Dir(spec), 0755); err != nil {
		t.Fatalf("mkdir e2e: %v", err)
	}
	if err := os.WriteFile(spec, []byte("test('a', () => {});\n"), 0644); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	return repo, spec
}

func testPosition(path string, kind discovery.Kind, startLine int) *discovery.Position {
	return &discovery.Position{
		Kind:  kind,
		Name:  "a",
		Path:  path,
		Range: discovery.Range{StartLine: startLine, EndLine: startLine + 2},
	}
}

func TestBuild_CommandShape(t *testing.T) {
	repo, specPath := repoFixture(t)
	cfg := filepath.Join(repo, "playwright.config.ts")
	if err := os.WriteFile(cfg, []byte("export default {};\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	a := New()
	rs, err := a.Build(testPosition(specPath, discovery.KindTest, 4), RunArgs{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rs.StopStream()

	bin := filepath.Join(repo, "node_modules", ".bin", "playwright")
	expected := []string{bin, "test", "--config=" + cfg, specPath + ":5", "--reporter=json"}
	if !reflect.DeepEqual(rs.Command, expected) {
		t.Errorf("Command = %v, want %v", rs.Command, expected)
	}
}

func TestBuild_SelectorPerKind(t *testing.T) {
	_, specPath := repoFixture(t)

	tests := []struct {
		name      string
		kind      discovery.Kind
		startLine int
		want      string
	}{
		{"test uses 1-based line", discovery.KindTest, 7, specPath + ":8"},
		{"namespace uses 1-based line", discovery.KindNamespace, 2, specPath + ":3"},
		{"file uses plain path", discovery.KindFile, 0, specPath},
	}

	a := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := a.Build(testPosition(specPath, tt.kind, tt.startLine), RunArgs{})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			defer rs.StopStream()

			// Selector sits right before the reporter flag.
			got := rs.Command[len(rs.Command)-2]
			if got != tt.want {
				t.Errorf("selector = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuild_NoConfigFlagWithoutConfigFile(t *testing.T) {
	_, specPath := repoFixture(t)

	a := New()
	rs, err := a.Build(testPosition(specPath, discovery.KindFile, 0), RunArgs{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rs.StopStream()

	for _, arg := range rs.Command {
		if strings.HasPrefix(arg, "--config=") {
			t.Errorf("unexpected config flag %q with no config on disk", arg)
		}
	}
}

func TestBuild_ConfigFlagOnlyWhenOverrideExists(t *testing.T) {
	repo, specPath := repoFixture(t)

	// Override points at a file that does not exist: no flag.
	a := New(WithConfigPath(filepath.Join(repo, "missing.config.ts")))
	rs, err := a.Build(testPosition(specPath, discovery.KindFile, 0), RunArgs{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rs.StopStream()
	for _, arg := range rs.Command {
		if strings.HasPrefix(arg, "--config=") {
			t.Errorf("config flag %q for nonexistent override", arg)
		}
	}

	// Override resolving to nothing falls back to the default name beside
	// the repository root when that file exists.
	defaultCfg := filepath.Join(repo, "playwright.config.js")
	if err := os.WriteFile(defaultCfg, []byte("module.exports = {};\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	a = New(WithConfigPath(""))
	rs, err = a.Build(testPosition(specPath, discovery.KindFile, 0), RunArgs{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rs.StopStream()

	found := false
	for _, arg := range rs.Command {
		if arg == "--config="+defaultCfg {
			found = true
		}
	}
	if !found {
		t.Errorf("Command = %v, want default config flag for %s", rs.Command, defaultCfg)
	}
}

func TestBuild_ResultsFilePerRun(t *testing.T) {
	_, specPath := repoFixture(t)
	a := New()

	first, err := a.Build(testPosition(specPath, discovery.KindFile, 0), RunArgs{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer first.StopStream()
	second, err := a.Build(testPosition(specPath, discovery.KindFile, 0), RunArgs{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer second.StopStream()

	if first.ResultsPath == second.ResultsPath {
		t.Error("concurrent runs must not share a results file")
	}

	info, err := os.Stat(first.ResultsPath)
	if err != nil {
		t.Fatalf("results file not created: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("results file should start empty, has %d bytes", info.Size())
	}

	if first.Env[ResultsEnvVar] != first.ResultsPath {
		t.Errorf("env %s = %q, want %q", ResultsEnvVar, first.Env[ResultsEnvVar], first.ResultsPath)
	}
}

func TestBuild_EnvMergeAndExtraArgs(t *testing.T) {
	_, specPath := repoFixture(t)

	a := New(WithEnv(map[string]string{"CI": "1"}))
	rs, err := a.Build(testPosition(specPath, discovery.KindFile, 0), RunArgs{
		Env:       map[string]string{"BASE_URL": "http://localhost:3000"},
		ExtraArgs: []string{"--project=chromium"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rs.StopStream()

	if rs.Env["CI"] != "1" || rs.Env["BASE_URL"] != "http://localhost:3000" {
		t.Errorf("Env = %v, want caller vars merged with adapter vars", rs.Env)
	}
	if rs.Command[2] != "--project=chromium" {
		t.Errorf("Command = %v, want extra args after the test subcommand", rs.Command)
	}
}

func TestBuild_StreamReadsResults(t *testing.T) {
	_, specPath := repoFixture(t)
	a := New()

	rs, err := a.Build(testPosition(specPath, discovery.KindFile, 0), RunArgs{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rs.StopStream()

	if batch := rs.Stream(); len(batch) != 0 {
		t.Fatalf("Stream() before any data = %v, want empty", batch)
	}

	report := `{"suites":[{"name":"a.spec.ts","specs":[
		{"id":"1","title":"t1","status":true,"location":{"line":1,"column":1},"failureMessages":[]}
	]}]}`
	if err := os.WriteFile(rs.ResultsPath, []byte(report), 0644); err != nil {
		t.Fatalf("write results: %v", err)
	}

	batch := rs.Stream()
	if len(batch) != 1 {
		t.Fatalf("Stream() after write = %d results, want 1", len(batch))
	}

	// StopStream is idempotent.
	rs.StopStream()
	rs.StopStream()
}

func TestBuild_DebugStrategy(t *testing.T) {
	repo, specPath := repoFixture(t)

	a := New()
	rs, err := a.Build(testPosition(specPath, discovery.KindTest, 4), RunArgs{Strategy: StrategyDAP})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rs.StopStream()

	sc := rs.StrategyConfig
	if sc == nil {
		t.Fatal("StrategyConfig missing for dap strategy")
	}
	if sc.Type != "pwa-node" || sc.Request != "launch" || sc.Console != "integratedTerminal" {
		t.Errorf("descriptor = %+v, want pwa-node launch with integrated console", sc)
	}
	if sc.RuntimeExecutable != filepath.Join(repo, "node_modules", ".bin", "playwright") {
		t.Errorf("RuntimeExecutable = %q, want resolved binary", sc.RuntimeExecutable)
	}
	if len(sc.Args) != len(rs.Command)-1 {
		t.Errorf("Args = %v, want remaining command arguments", sc.Args)
	}
	if sc.Cwd != WorkspacePlaceholder {
		t.Errorf("Cwd = %q, want workspace placeholder default", sc.Cwd)
	}
}

func TestBuild_DebugStrategyHonorsCwd(t *testing.T) {
	repo, specPath := repoFixture(t)

	a := New(WithCwd(repo))
	rs, err := a.Build(testPosition(specPath, discovery.KindTest, 0), RunArgs{Strategy: StrategyDAP})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rs.StopStream()

	if rs.Cwd != repo {
		t.Errorf("Cwd = %q, want %q", rs.Cwd, repo)
	}
	if rs.StrategyConfig.Cwd != repo {
		t.Errorf("strategy Cwd = %q, want %q", rs.StrategyConfig.Cwd, repo)
	}
}

func TestBuild_NoStrategyForPlainRun(t *testing.T) {
	_, specPath := repoFixture(t)

	rs, err := New().Build(testPosition(specPath, discovery.KindTest, 0), RunArgs{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rs.StopStream()

	if rs.StrategyConfig != nil {
		t.Errorf("StrategyConfig = %+v, want nil without dap strategy", rs.StrategyConfig)
	}
}

func TestBuild_LiteralBinaryOverride(t *testing.T) {
	_, specPath := repoFixture(t)

	a := New(WithBinary("npx playwright"))
	rs, err := a.Build(testPosition(specPath, discovery.KindFile, 0), RunArgs{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rs.StopStream()

	if rs.Command[0] != "npx" || rs.Command[1] != "playwright" || rs.Command[2] != "test" {
		t.Errorf("Command = %v, want multi-token literal binary split", rs.Command)
	}
}

func TestBuild_ProducerBinaryOverride(t *testing.T) {
	_, specPath := repoFixture(t)

	calls := 0
	a := New(WithBinaryFunc(func() string {
		calls++
		return "pnpm exec playwright"
	}))

	for i := 0; i < 2; i++ {
		rs, err := a.Build(testPosition(specPath, discovery.KindFile, 0), RunArgs{})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		rs.StopStream()
		if rs.Command[0] != "pnpm" {
			t.Errorf("Command = %v, want producer output split into tokens", rs.Command)
		}
	}
	if calls != 2 {
		t.Errorf("producer called %d times, want once per build", calls)
	}
}

func TestBuild_NilPosition(t *testing.T) {
	if _, err := New().Build(nil, RunArgs{}); err == nil {
		t.Fatal("Build(nil) should fail")
	}
}
