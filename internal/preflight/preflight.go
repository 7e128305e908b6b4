package preflight

import (
	"context"

	"bioviz/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	if cfg.Paths.CacheDir != "" {
		results = append(results, CheckDirectoryAccess("Pathway cache", cfg.Paths.CacheDir))
	}

	if cfg.Engine.UseSource {
		results = append(results, CheckCommand("Python interpreter", cfg.Engine.Python))
		results = append(results, CheckScript("Worker script", cfg.Engine.Script))
	} else {
		results = append(results, CheckCommand("Worker binary", cfg.Engine.Binary))
		results = append(results, CheckWorkerVersion(ctx, cfg))
	}

	results = append(results, CheckProviderCredentials(cfg))

	return results
}

// Passed reports whether every mandatory check succeeded.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
