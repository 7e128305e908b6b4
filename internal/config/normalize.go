package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// envOverrides are the environment variables that take precedence over file
// values. Pointer fields distinguish unset from explicitly false.
type envOverrides struct {
	UseSource       *bool  `envconfig:"BIOVIZ_USE_SOURCE"`
	Provider        string `envconfig:"AI_PROVIDER"`
	DashScopeAPIKey string `envconfig:"DASHSCOPE_API_KEY"`
	DeepSeekAPIKey  string `envconfig:"DEEPSEEK_API_KEY"`
	DeepSeekModel   string `envconfig:"DEEPSEEK_MODEL"`
}

func (c *Config) normalize() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}

	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEngine(env); err != nil {
		return err
	}
	c.normalizeTimeouts()
	c.normalizeAI(env)
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultPathwayCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEngine(env envOverrides) error {
	var err error
	c.Engine.Binary = strings.TrimSpace(c.Engine.Binary)
	if c.Engine.Binary == "" {
		c.Engine.Binary = defaultEngineBinary
	}
	c.Engine.Script = strings.TrimSpace(c.Engine.Script)
	if c.Engine.Script != "" {
		if c.Engine.Script, err = expandPath(c.Engine.Script); err != nil {
			return fmt.Errorf("engine.script: %w", err)
		}
	}
	c.Engine.Python = strings.TrimSpace(c.Engine.Python)
	if c.Engine.Python == "" {
		c.Engine.Python = defaultPython
	}
	if env.UseSource != nil {
		c.Engine.UseSource = *env.UseSource
	}
	if c.Engine.StartupTimeout <= 0 {
		c.Engine.StartupTimeout = defaultStartupTimeoutSeconds
	}
	if c.Engine.StopTimeout <= 0 {
		c.Engine.StopTimeout = defaultStopTimeoutSeconds
	}
	if c.Engine.HeartbeatInterval < 0 {
		c.Engine.HeartbeatInterval = 0
	}
	c.Engine.MinProtocolVersion = strings.TrimSpace(c.Engine.MinProtocolVersion)
	return nil
}

func (c *Config) normalizeTimeouts() {
	if c.Timeouts.DefaultSeconds <= 0 {
		c.Timeouts.DefaultSeconds = defaultCommandTimeoutSeconds
	}
	normalized := make(map[string]int, len(c.Timeouts.Commands))
	for name, secs := range c.Timeouts.Commands {
		key := strings.ToUpper(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		normalized[key] = secs
	}
	// Configured entries win; defaults only cover commands left unnamed.
	for name, secs := range defaultCommandTimeouts() {
		if _, ok := normalized[name]; !ok {
			normalized[name] = secs
		}
	}
	c.Timeouts.Commands = normalized
}

// Provider credentials come from the environment when set there, overriding
// file values so secrets can stay out of config files.
func (c *Config) normalizeAI(env envOverrides) {
	if strings.TrimSpace(env.Provider) != "" {
		c.AI.Provider = env.Provider
	}
	if strings.TrimSpace(env.DashScopeAPIKey) != "" {
		c.AI.DashScopeAPIKey = env.DashScopeAPIKey
	}
	if strings.TrimSpace(env.DeepSeekAPIKey) != "" {
		c.AI.DeepSeekAPIKey = env.DeepSeekAPIKey
	}
	if strings.TrimSpace(env.DeepSeekModel) != "" {
		c.AI.DeepSeekModel = env.DeepSeekModel
	}
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	c.AI.DashScopeAPIKey = strings.TrimSpace(c.AI.DashScopeAPIKey)
	c.AI.DeepSeekAPIKey = strings.TrimSpace(c.AI.DeepSeekAPIKey)
	c.AI.DeepSeekModel = strings.TrimSpace(c.AI.DeepSeekModel)
}

func (c *Config) normalizeHistory() error {
	var err error
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.DataDir, "history.db")
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	if c.History.MaxEntries <= 0 {
		c.History.MaxEntries = defaultHistoryMaxEntries
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
