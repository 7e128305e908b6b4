package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"bioviz/internal/config"
	"bioviz/internal/history"
	"bioviz/internal/preflight"
)

func newStatusCommand(cliCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, preflight checks, and journal totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cliCtx.configValue()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range configLines(cfg, cliCtx.configPath, cliCtx.configExists, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(stdout, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, result := range results {
				fmt.Fprintln(stdout, renderStatusLine(result.Name, statusKindForResult(result), result.Detail, colorize))
			}
			if !preflight.Passed(results) {
				fmt.Fprintln(stdout, renderStatusLine("Summary", statusWarn, "one or more checks failed; the worker may not start", colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("History", colorize) {
				fmt.Fprintln(stdout, line)
			}
			return printHistorySummary(cmd, cfg, colorize)
		},
	}
}

func configLines(cfg *config.Config, path string, exists bool, colorize bool) []string {
	configDetail := path
	if !exists {
		configDetail = path + " (not found, defaults in effect)"
	}

	var worker string
	if cfg.Engine.UseSource {
		worker = fmt.Sprintf("source (%s %s)", cfg.Engine.Python, cfg.Engine.Script)
	} else {
		worker = fmt.Sprintf("binary (%s)", cfg.Engine.Binary)
	}

	heartbeat := "disabled"
	if cfg.Engine.HeartbeatInterval > 0 {
		heartbeat = fmt.Sprintf("every %ds", cfg.Engine.HeartbeatInterval)
	}

	journal := "disabled"
	if cfg.History.Enabled {
		journal = cfg.HistoryPath()
	}

	cache := cfg.Paths.CacheDir
	if cache == "" {
		cache = "disabled"
	}

	return []string{
		renderStatusLine("Config file", statusInfo, configDetail, colorize),
		renderStatusLine("Worker", statusInfo, worker, colorize),
		renderStatusLine("Data directory", statusInfo, cfg.Paths.DataDir, colorize),
		renderStatusLine("Log directory", statusInfo, cfg.Paths.LogDir, colorize),
		renderStatusLine("Pathway cache", statusInfo, cache, colorize),
		renderStatusLine("Heartbeat", statusInfo, heartbeat, colorize),
		renderStatusLine("History journal", statusInfo, journal, colorize),
		renderStatusLine("AI provider", statusInfo, orUnknown(cfg.AI.Provider), colorize),
	}
}

func statusKindForResult(result preflight.Result) statusKind {
	if result.Passed {
		return statusOK
	}
	return statusError
}

func printHistorySummary(cmd *cobra.Command, cfg *config.Config, colorize bool) error {
	stdout := cmd.OutOrStdout()
	if !cfg.History.Enabled {
		fmt.Fprintln(stdout, renderStatusLine("Journal", statusInfo, "disabled in config", colorize))
		return nil
	}
	if _, err := os.Stat(cfg.HistoryPath()); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(stdout, renderStatusLine("Journal", statusInfo, "no commands recorded yet", colorize))
		return nil
	}

	store, err := history.Open(cfg.HistoryPath(), history.WithMaxEntries(cfg.History.MaxEntries))
	if err != nil {
		return fmt.Errorf("open history journal: %w", err)
	}
	defer store.Close()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	rows := buildOutcomeRows(stats)
	if len(rows) == 0 {
		fmt.Fprintln(stdout, renderStatusLine("Journal", statusInfo, "no commands recorded yet", colorize))
		return nil
	}
	fmt.Fprintln(stdout, renderTable([]string{"Outcome", "Count"}, rows, 1))
	return nil
}

// buildOutcomeRows orders journal outcome counts with the common verdicts
// first and anything unexpected after them.
func buildOutcomeRows(stats map[string]int) [][]string {
	order := []string{
		history.OutcomeOK,
		history.OutcomeError,
		history.OutcomeTimeout,
		history.OutcomeTerminated,
		history.OutcomeCancelled,
	}

	seen := make(map[string]struct{}, len(order))
	rows := make([][]string, 0, len(stats))
	for _, outcome := range order {
		seen[outcome] = struct{}{}
		if count, ok := stats[outcome]; ok && count > 0 {
			rows = append(rows, []string{outcome, strconv.Itoa(count)})
		}
	}

	var extra []string
	for outcome, count := range stats {
		if _, ok := seen[outcome]; ok || count <= 0 {
			continue
		}
		extra = append(extra, outcome)
	}
	sort.Strings(extra)
	for _, outcome := range extra {
		rows = append(rows, []string{outcome, strconv.Itoa(stats[outcome])})
	}
	return rows
}
