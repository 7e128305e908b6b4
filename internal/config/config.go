package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// DataDir holds saved analyses and the history journal.
	DataDir string `toml:"data_dir"`
	// LogDir receives the JSON log file.
	LogDir string `toml:"log_dir"`
	// CacheDir stores downloaded pathway definitions for offline reuse.
	CacheDir string `toml:"cache_dir"`
}

// Engine describes how the analysis worker process is launched and supervised.
type Engine struct {
	// Binary is the packaged worker executable. Ignored when UseSource is set.
	Binary string `toml:"binary"`
	// Script is the worker entry point used in source mode.
	Script string `toml:"script"`
	// Python is the interpreter used to run Script.
	Python string `toml:"python"`
	// UseSource runs the worker from Script instead of Binary. The
	// BIOVIZ_USE_SOURCE=1 environment variable forces it on.
	UseSource bool `toml:"use_source"`
	// Args are appended to the worker command line.
	Args []string `toml:"args"`
	// StartupTimeout bounds the wait for the worker's ready announcement, in seconds.
	StartupTimeout int `toml:"startup_timeout"`
	// StopTimeout is how long a terminating worker gets before SIGKILL, in seconds.
	StopTimeout int `toml:"stop_timeout"`
	// HeartbeatInterval is the liveness probe cadence in seconds. Zero disables probing.
	HeartbeatInterval int `toml:"heartbeat_interval"`
	// MinProtocolVersion gates startup on the worker's reported protocol version.
	MinProtocolVersion string `toml:"min_protocol_version"`
}

// Timeouts control how long dispatched commands may stay unanswered.
type Timeouts struct {
	// DefaultSeconds applies to any command without a specific entry.
	DefaultSeconds int `toml:"default_seconds"`
	// Commands maps command names to their timeout in seconds.
	Commands map[string]int `toml:"commands"`
}

// AI configures the conversational analysis provider forwarded to the worker.
type AI struct {
	Provider        string `toml:"provider"`
	DashScopeAPIKey string `toml:"dashscope_api_key"`
	DeepSeekAPIKey  string `toml:"deepseek_api_key"`
	DeepSeekModel   string `toml:"deepseek_model"`
}

// History configures the local analysis journal.
type History struct {
	Enabled bool `toml:"enabled"`
	// Path is the SQLite database location. Defaults into DataDir.
	Path string `toml:"path"`
	// MaxEntries bounds the journal; older entries are pruned past it.
	MaxEntries int `toml:"max_entries"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// EchoWorkerStderr mirrors worker stderr lines into the log stream.
	EchoWorkerStderr bool `toml:"echo_worker_stderr"`
}

// Config encapsulates all configuration values for BioViz.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and pathway cache directories
//   - Engine: worker launch mode, supervision timeouts, protocol gate
//   - Timeouts: per-command response deadlines
//   - AI: chat provider selection and credentials
//   - History: local analysis journal
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Engine   Engine   `toml:"engine"`
	Timeouts Timeouts `toml:"timeouts"`
	AI       AI       `toml:"ai"`
	History  History  `toml:"history"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/bioviz/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()
	// TOML decoding merges into an existing map, so seeded default timeouts
	// would compete with the file's spelling of the same command. Decode into
	// an empty map; normalize restores defaults the file leaves out.
	cfg.Timeouts.Commands = nil

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("bioviz.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the tool writes into. CacheDir is
// created on a best-effort basis so the tool still runs when the cache volume
// is unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.CacheDir) != "" {
		_ = os.MkdirAll(c.Paths.CacheDir, 0o755)
	}
	return nil
}

// CommandTimeout returns the response deadline for the given command.
func (c *Config) CommandTimeout(cmd string) time.Duration {
	name := strings.ToUpper(strings.TrimSpace(cmd))
	if secs, ok := c.Timeouts.Commands[name]; ok && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	secs := c.Timeouts.DefaultSeconds
	if secs <= 0 {
		secs = defaultCommandTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

// EngineStartupTimeout returns the bound on waiting for the worker's ready announcement.
func (c *Config) EngineStartupTimeout() time.Duration {
	return time.Duration(c.Engine.StartupTimeout) * time.Second
}

// EngineStopTimeout returns how long a terminating worker gets before SIGKILL.
func (c *Config) EngineStopTimeout() time.Duration {
	return time.Duration(c.Engine.StopTimeout) * time.Second
}

// EngineHeartbeatInterval returns the liveness probe cadence. Zero disables probing.
func (c *Config) EngineHeartbeatInterval() time.Duration {
	if c.Engine.HeartbeatInterval <= 0 {
		return 0
	}
	return time.Duration(c.Engine.HeartbeatInterval) * time.Second
}

// HistoryPath returns the journal database location.
func (c *Config) HistoryPath() string {
	return c.History.Path
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultPathwayCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "bioviz", "pathways")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/bioviz/pathways"
	}
	return filepath.Join(home, ".cache", "bioviz", "pathways")
}
