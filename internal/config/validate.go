package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateAI(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.UseSource {
		if c.Engine.Script == "" {
			return errors.New("engine.script must be set when engine.use_source is true")
		}
		if c.Engine.Python == "" {
			return errors.New("engine.python must be set when engine.use_source is true")
		}
	} else if c.Engine.Binary == "" {
		return errors.New("engine.binary must be set")
	}
	if c.Engine.StartupTimeout <= 0 {
		return errors.New("engine.startup_timeout must be positive (seconds)")
	}
	if c.Engine.StopTimeout <= 0 {
		return errors.New("engine.stop_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	if c.Timeouts.DefaultSeconds <= 0 {
		return errors.New("timeouts.default_seconds must be positive")
	}
	for name, secs := range c.Timeouts.Commands {
		if secs <= 0 {
			return fmt.Errorf("timeouts.commands.%s must be positive", name)
		}
	}
	return nil
}

func (c *Config) validateAI() error {
	switch c.AI.Provider {
	case "":
	case "dashscope":
		if c.AI.DashScopeAPIKey == "" {
			return errors.New("ai.dashscope_api_key must be set when ai.provider is dashscope (or set DASHSCOPE_API_KEY)")
		}
	case "deepseek":
		if c.AI.DeepSeekAPIKey == "" {
			return errors.New("ai.deepseek_api_key must be set when ai.provider is deepseek (or set DEEPSEEK_API_KEY)")
		}
	default:
		return fmt.Errorf("ai.provider: unsupported value %q", c.AI.Provider)
	}
	return nil
}

func (c *Config) validateHistory() error {
	if !c.History.Enabled {
		return nil
	}
	if c.History.Path == "" {
		return errors.New("history.path must be set when history.enabled is true")
	}
	if c.History.MaxEntries < 1 {
		return errors.New("history.max_entries must be >= 1")
	}
	return nil
}
