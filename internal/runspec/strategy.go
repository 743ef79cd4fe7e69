package runspec

// WorkspacePlaceholder is the deferred working-directory token embedded in
// debug launch descriptors when no explicit cwd was configured. The host
// editor substitutes it at launch time.
const WorkspacePlaceholder = "${workspaceFolder}"

// StrategyDAP requests an interactive debugger launch instead of a plain
// process run.
const StrategyDAP = "dap"

// StrategyConfig is a debug-adapter launch descriptor for running the spec
// under an interactive debugger.
type StrategyConfig struct {
	Name              string   `json:"name"`
	Type              string   `json:"type"`
	Request           string   `json:"request"`
	RuntimeExecutable string   `json:"runtimeExecutable"`
	Args              []string `json:"args"`
	Console           string   `json:"console"`
	Cwd               string   `json:"cwd"`
}

// defaultStrategy embeds the resolved executable and remaining arguments
// into a pwa-node launch with an integrated console.
func (a *Adapter) defaultStrategy(cmd []string, cwd string) *StrategyConfig {
	if len(cmd) == 0 {
		return nil
	}
	if cwd == "" {
		cwd = WorkspacePlaceholder
	}
	return &StrategyConfig{
		Name:              "Playwright test",
		Type:              "pwa-node",
		Request:           "launch",
		RuntimeExecutable: cmd[0],
		Args:              cmd[1:],
		Console:           "integratedTerminal",
		Cwd:               cwd,
	}
}
