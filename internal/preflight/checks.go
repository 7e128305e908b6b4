package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"bioviz/internal/config"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCommand verifies that the command resolves to an executable. Bare
// names go through PATH; anything with a separator is checked in place.
func CheckCommand(name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	if !strings.ContainsRune(command, os.PathSeparator) {
		resolved, err := exec.LookPath(command)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("binary %q not found in PATH", command)}
		}
		return Result{Name: name, Passed: true, Detail: resolved}
	}

	info, err := os.Stat(command)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", command)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", command, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", command)}
	}
	if err := unix.Access(command, unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not executable: %v)", command, err)}
	}
	return Result{Name: name, Passed: true, Detail: command}
}

// CheckScript verifies that the source-mode worker script is readable.
func CheckScript(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "engine.script not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckProviderCredentials verifies the configured AI provider has its key.
func CheckProviderCredentials(cfg *config.Config) Result {
	const name = "AI provider"
	switch cfg.AI.Provider {
	case "":
		return Result{Name: name, Passed: true, Detail: "not configured (CHAT commands will fail in the worker)"}
	case "dashscope":
		if cfg.AI.DashScopeAPIKey == "" {
			return Result{Name: name, Detail: "dashscope selected but DASHSCOPE_API_KEY missing"}
		}
		return Result{Name: name, Passed: true, Detail: "dashscope key configured"}
	case "deepseek":
		if cfg.AI.DeepSeekAPIKey == "" {
			return Result{Name: name, Detail: "deepseek selected but DEEPSEEK_API_KEY missing"}
		}
		return Result{Name: name, Passed: true, Detail: "deepseek key configured"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unknown provider %q", cfg.AI.Provider)}
	}
}
