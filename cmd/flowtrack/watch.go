package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/TheFastest599/flowtrack/internal/notify"
	"github.com/TheFastest599/flowtrack/internal/session"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream your notifications in real time",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(false); err != nil {
			return err
		}

		natsURL, _ := cmd.Flags().GetString("nats")
		if natsURL == "" {
			natsURL = defaultNATSURL()
		}
		if natsURL == "" {
			return fmt.Errorf("no NATS URL; pass --nats or set FLOWTRACK_NATS_URL")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		// Keep the access token fresh for the lifetime of the watch. A
		// refresh failure ends the session and the watch with it.
		scheduler := session.NewRefreshScheduler(sessions,
			session.WithSchedulerLogger(logger),
			session.WithSessionEndFunc(stop),
		)
		scheduler.Start()
		defer scheduler.Stop()

		ch := notify.New(natsURL, notify.WithLogger(logger))
		defer ch.Disconnect()

		cancel := ch.Subscribe(func(ev notify.Event) {
			if jsonOutput {
				printJSON(ev.Notification)
				return
			}
			printNotification(&ev.Notification)
		})
		defer cancel()

		st := sessions.Snapshot()
		if err := ch.Connect(st.User.ID); err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		if !jsonOutput {
			fmt.Fprintf(os.Stderr, "watching notifications for %s (ctrl-c to stop)\n", st.User.Email)
		}

		<-ctx.Done()
		return nil
	},
}

func init() {
	watchCmd.Flags().String("nats", "", "NATS URL for realtime notifications")
}
