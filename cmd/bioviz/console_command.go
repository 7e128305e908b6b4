package main

import (
	"github.com/spf13/cobra"

	"bioviz/internal/console"
	"bioviz/internal/session"
)

func newConsoleCommand(cliCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Open the interactive worker console",
		Long: "console starts a worker and drops into a full-screen prompt. Typed\n" +
			"commands dispatch through the correlation layer while the raw wire\n" +
			"traffic streams into the transcript, stray envelopes included.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cliCtx.ensureConfig()
			if err != nil {
				return err
			}
			// Quiet logger: the TUI owns the terminal, so log output goes
			// to the file sink only.
			logger, err := newCLILogger(cfg, true)
			if err != nil {
				return err
			}

			feed := console.NewEnvelopeFeed()
			sess, err := session.Start(cmd.Context(), cfg,
				session.WithLogger(logger),
				session.WithEnvelopeObserver(feed.Hook()),
			)
			if err != nil {
				return wrapStartError(err, cfg)
			}
			defer sess.Close()

			return console.Run(console.SessionBackend(sess), feed)
		},
	}
}
