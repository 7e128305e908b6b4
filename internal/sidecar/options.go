package sidecar

import (
	"log/slog"
	"path/filepath"
	"time"

	"bioviz/internal/config"
)

// Options describe the worker process to launch.
type Options struct {
	// Command is the executable to run.
	Command string
	// Args are passed to the executable verbatim.
	Args []string
	// Dir is the working directory. Empty inherits the parent's.
	Dir string
	// ExtraEnv holds KEY=VALUE pairs appended to the inherited environment.
	ExtraEnv []string
	// StopTimeout bounds each shutdown escalation step.
	StopTimeout time.Duration
	// Logger receives supervision events. Nil discards them.
	Logger *slog.Logger
}

// FromConfig resolves launch options: the packaged binary by default, the
// python interpreter plus worker script in source mode. Source mode runs with
// the script's directory as working directory so the worker finds its data
// files the same way a checkout run does.
func FromConfig(cfg *config.Config) Options {
	opts := Options{
		StopTimeout: cfg.EngineStopTimeout(),
		ExtraEnv:    WorkerEnv(cfg),
	}
	if cfg.Engine.UseSource && cfg.Engine.Script != "" {
		opts.Command = cfg.Engine.Python
		opts.Args = append([]string{cfg.Engine.Script}, cfg.Engine.Args...)
		opts.Dir = filepath.Dir(cfg.Engine.Script)
		return opts
	}
	opts.Command = cfg.Engine.Binary
	opts.Args = append([]string(nil), cfg.Engine.Args...)
	return opts
}

// WorkerEnv lists the provider credentials the worker reads from its
// environment, sourced from the resolved config so file-configured secrets
// reach a worker launched from a clean shell.
func WorkerEnv(cfg *config.Config) []string {
	var env []string
	if cfg.AI.Provider != "" {
		env = append(env, "AI_PROVIDER="+cfg.AI.Provider)
	}
	if cfg.AI.DashScopeAPIKey != "" {
		env = append(env, "DASHSCOPE_API_KEY="+cfg.AI.DashScopeAPIKey)
	}
	if cfg.AI.DeepSeekAPIKey != "" {
		env = append(env, "DEEPSEEK_API_KEY="+cfg.AI.DeepSeekAPIKey)
	}
	if cfg.AI.DeepSeekModel != "" {
		env = append(env, "DEEPSEEK_MODEL="+cfg.AI.DeepSeekModel)
	}
	return env
}
