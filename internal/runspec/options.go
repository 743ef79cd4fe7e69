package runspec

import (
	"github.com/playbridge/playbridge/internal/resolve"
)

// Logger is the diagnostic sink for the builder.
type Logger interface {
	Debug(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(format string, args ...interface{}) {}
func (noopLogger) Error(format string, args ...interface{}) {}

// Adapter carries the resolution functions used to build run specs. It is
// constructed once and threaded explicitly through every Build call; there
// is no package-level mutable state. Every field accepts either a literal
// value, wrapped as a constant function by the With* options, or a
// producer function via the With*Func options.
type Adapter struct {
	binary   func(path string) string
	config   func(path string) string
	mergeEnv func(env map[string]string) map[string]string
	cwd      func() string
	strategy func(cmd []string, cwd string) *StrategyConfig
	logger   Logger
}

// Option configures an Adapter at construction time.
type Option func(*Adapter)

// New creates an Adapter with the default resolvers from internal/resolve,
// an additive environment merge, an inherited working directory, and the
// pwa-node debug strategy.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		binary:   resolve.Binary,
		config:   resolve.Config,
		mergeEnv: copyEnv,
		cwd:      func() string { return "" },
		logger:   noopLogger{},
	}
	a.strategy = a.defaultStrategy

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithBinary fixes the runner command to a literal value, e.g.
// "npx playwright".
func WithBinary(command string) Option {
	return func(a *Adapter) {
		a.binary = func(string) string { return command }
	}
}

// WithBinaryFunc defers the runner command to a producer.
func WithBinaryFunc(f func() string) Option {
	return func(a *Adapter) {
		a.binary = func(string) string { return f() }
	}
}

// WithConfigPath fixes the config file path to a literal value.
func WithConfigPath(path string) Option {
	return func(a *Adapter) {
		a.config = func(string) string { return path }
	}
}

// WithConfigPathFunc defers the config file path to a producer.
func WithConfigPathFunc(f func() string) Option {
	return func(a *Adapter) {
		a.config = func(string) string { return f() }
	}
}

// WithEnv merges a literal set of variables over the caller-supplied
// environment.
func WithEnv(env map[string]string) Option {
	return WithEnvFunc(func(base map[string]string) map[string]string {
		merged := copyEnv(base)
		for k, v := range env {
			merged[k] = v
		}
		return merged
	})
}

// WithEnvFunc replaces the environment-merge function.
func WithEnvFunc(f func(env map[string]string) map[string]string) Option {
	return func(a *Adapter) {
		a.mergeEnv = f
	}
}

// WithCwd fixes the child working directory to a literal value.
func WithCwd(dir string) Option {
	return func(a *Adapter) {
		a.cwd = func() string { return dir }
	}
}

// WithCwdFunc defers the child working directory to a producer.
func WithCwdFunc(f func() string) Option {
	return func(a *Adapter) {
		a.cwd = f
	}
}

// WithStrategyConfig fixes the debug launch descriptor to a literal value.
func WithStrategyConfig(sc *StrategyConfig) Option {
	return func(a *Adapter) {
		a.strategy = func([]string, string) *StrategyConfig { return sc }
	}
}

// WithStrategyConfigFunc replaces the debug launch descriptor builder.
func WithStrategyConfigFunc(f func(cmd []string, cwd string) *StrategyConfig) Option {
	return func(a *Adapter) {
		a.strategy = f
	}
}

// WithLogger sets the diagnostic sink.
func WithLogger(l Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

func copyEnv(env map[string]string) map[string]string {
	merged := make(map[string]string, len(env)+1)
	for k, v := range env {
		merged[k] = v
	}
	return merged
}
