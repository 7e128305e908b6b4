package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"bioviz/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Supervision timeouts are shortened, background heartbeats are off, and the
// protocol gate is cleared so each test opts in to the behavior it exercises.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CacheDir = ""
	cfgVal.Engine.StartupTimeout = 10
	cfgVal.Engine.StopTimeout = 2
	cfgVal.Engine.HeartbeatInterval = 0
	cfgVal.Engine.MinProtocolVersion = ""
	cfgVal.History.Enabled = true
	cfgVal.History.Path = filepath.Join(base, "data", "history.db")
	cfgVal.History.MaxEntries = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkerScript launches the worker as an inline sh script instead of a
// packaged binary, letting tests stand in for the analysis engine.
func WithWorkerScript(script string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.Binary = "sh"
		b.cfg.Engine.UseSource = false
		b.cfg.Engine.Args = []string{"-c", script}
	}
}

// WithHistoryDisabled turns the command journal off.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithStubbedWorker writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the packaged worker binary is
// stubbed.
func WithStubbedWorker(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"bio-engine"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
