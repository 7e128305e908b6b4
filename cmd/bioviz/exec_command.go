package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bioviz/internal/engine"
	"bioviz/internal/session"
)

func newExecCommand(cliCtx *commandContext) *cobra.Command {
	var payloadFlag string
	var noWait bool
	var timeoutSecs int

	cmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Send one command to the worker and print its reply",
		Long: "exec launches the worker, dispatches a single command, and prints the\n" +
			"terminal reply envelope as JSON. Unknown command names are sent verbatim\n" +
			"so new worker verbs work without a CLI update.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToUpper(strings.TrimSpace(args[0]))
			if name == "" {
				return errors.New("command name is required")
			}
			payload, err := parsePayload(payloadFlag)
			if err != nil {
				return err
			}
			if !engine.KnownCommand(name) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is not a published worker command; sending it anyway\n", name)
			}

			var opts []session.Option
			if timeoutSecs > 0 {
				opts = append(opts, session.WithTimeoutPolicy(engine.StaticTimeout(time.Duration(timeoutSecs)*time.Second)))
			}
			return cliCtx.withSession(cmd, opts, func(ctx context.Context, sess *session.Session) error {
				if noWait {
					if err := sess.Notify(ctx, name, payload); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Sent %s (no reply expected)\n", name)
					return nil
				}
				resp, err := sess.Call(ctx, name, payload)
				if err != nil {
					return err
				}
				return writeEnvelope(cmd, resp)
			})
		},
	}

	cmd.Flags().StringVarP(&payloadFlag, "payload", "p", "", "JSON payload to attach to the command")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Dispatch without a request id and do not wait for a reply")
	cmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "Response deadline in seconds (overrides the configured timeout)")
	return cmd
}

// parsePayload decodes the --payload flag. An empty flag means the outbound
// envelope carries no payload key at all.
func parsePayload(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	return payload, nil
}
