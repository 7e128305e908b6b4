package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bioviz/internal/session"
)

func newHeartbeatCommand(cliCtx *commandContext) *cobra.Command {
	var waitSecs int

	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Launch the worker and verify it answers a liveness probe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cliCtx.withSession(cmd, nil, func(ctx context.Context, sess *session.Session) error {
				client := sess.Client()
				sent := time.Now()
				if err := sess.Heartbeat(ctx); err != nil {
					return err
				}

				// The alive reply is a bare envelope, not a correlated
				// result, so poll the client's liveness clock for it.
				deadline := sent.Add(time.Duration(waitSecs) * time.Second)
				for {
					if at, ok := client.LastAlive(); ok && !at.Before(sent) {
						info, _ := client.ReadyInfo()
						fmt.Fprintf(cmd.OutOrStdout(), "Worker alive (pid %d, protocol %s, round trip %s)\n",
							sess.WorkerPID(), orUnknown(info.Version), time.Since(sent).Round(time.Millisecond))
						return nil
					}
					if !client.Connected() {
						return fmt.Errorf("worker exited before answering: %s", client.ExitReason())
					}
					if time.Now().After(deadline) {
						return fmt.Errorf("no alive reply within %ds", waitSecs)
					}
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(25 * time.Millisecond):
					}
				}
			})
		},
	}

	cmd.Flags().IntVar(&waitSecs, "wait", 10, "Seconds to wait for the alive reply")
	return cmd
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}
