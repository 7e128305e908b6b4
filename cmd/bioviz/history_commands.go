package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bioviz/internal/history"
)

func newHistoryCommand(cliCtx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the local command journal",
	}

	historyCmd.AddCommand(newHistoryListCommand(cliCtx))
	historyCmd.AddCommand(newHistoryShowCommand(cliCtx))
	historyCmd.AddCommand(newHistoryClearCommand(cliCtx))

	return historyCmd
}

// withJournal opens the configured journal, runs fn, and closes it again.
func (c *commandContext) withJournal(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("history is disabled in config (set [history] enabled = true)")
	}
	store, err := history.Open(cfg.HistoryPath(), history.WithMaxEntries(cfg.History.MaxEntries))
	if err != nil {
		return fmt.Errorf("open history journal: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(cliCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded commands, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cliCtx.withJournal(func(store *history.Store) error {
				entries, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Journal is empty")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						strconv.FormatInt(entry.ID, 10),
						displayCommand(entry.Command),
						entry.Status,
						formatElapsed(entry.Elapsed),
						entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						shortRequestID(entry.RequestID),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Command", "Outcome", "Elapsed", "When", "Request"},
					rows, 0, 3,
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show (0 shows all)")
	return cmd
}

func newHistoryShowCommand(cliCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one journal entry as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id %q", args[0])
			}
			return cliCtx.withJournal(func(store *history.Store) error {
				entry, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if entry == nil {
					return fmt.Errorf("entry %d not found", id)
				}
				return writeJSON(cmd, entryView{
					ID:           entry.ID,
					RequestID:    entry.RequestID,
					Command:      entry.Command,
					Outcome:      entry.Status,
					ErrorMessage: entry.ErrorMessage,
					ElapsedMS:    entry.Elapsed.Milliseconds(),
					CreatedAt:    entry.CreatedAt.UTC().Format(time.RFC3339),
				})
			})
		},
	}
}

func newHistoryClearCommand(cliCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every journal entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cliCtx.withJournal(func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d history entries\n", removed)
				return nil
			})
		},
	}
}

// entryView is the stable JSON shape for `history show`.
type entryView struct {
	ID           int64  `json:"id"`
	RequestID    string `json:"request_id,omitempty"`
	Command      string `json:"command"`
	Outcome      string `json:"outcome"`
	ErrorMessage string `json:"error_message,omitempty"`
	ElapsedMS    int64  `json:"elapsed_ms"`
	CreatedAt    string `json:"created_at"`
}

// displayCommand renders LOAD_PATHWAY as "Load Pathway" for table output.
func displayCommand(name string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if cleaned == "" {
		return "(unknown)"
	}
	return cases.Title(language.Und).String(strings.ToLower(cleaned))
}

func formatElapsed(d time.Duration) string {
	if d >= time.Second {
		return d.Round(10 * time.Millisecond).String()
	}
	return d.Round(time.Millisecond).String()
}

func shortRequestID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
