package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/TheFastest599/flowtrack/internal/api"
	"github.com/TheFastest599/flowtrack/internal/kv"
	"github.com/TheFastest599/flowtrack/internal/session"
	"github.com/TheFastest599/flowtrack/internal/ui"
)

var (
	serverURL  string
	jsonOutput bool
	noColor    bool

	client   *api.HTTPClient
	sessions *session.Store
	logger   *slog.Logger
)

func defaultServer() string {
	if s := os.Getenv("FLOWTRACK_SERVER"); s != "" {
		return s
	}
	if s := activeRemoteURL(); s != "" {
		return s
	}
	return "http://localhost:8080"
}

func defaultNATSURL() string {
	if s := os.Getenv("FLOWTRACK_NATS_URL"); s != "" {
		return s
	}
	return activeRemoteNATSURL()
}

var rootCmd = &cobra.Command{
	Use:   "flowtrack",
	Short: "CLI client for the flowtrack task service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}

		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))

		client = api.NewHTTPClient(serverURL, "")

		var store kv.Store
		path, err := kv.DefaultPath()
		if err == nil {
			fs, ferr := kv.NewFileStore(path)
			if ferr == nil {
				store = fs
			} else {
				err = ferr
			}
		}
		if store == nil {
			logger.Warn("state file unavailable, session will not persist", "error", err)
			store = kv.NewMemoryStore()
		}

		sessions = session.NewStore(client, store,
			session.WithLogger(logger),
			session.WithTokenSink(client.SetToken),
		)
		sessions.Hydrate()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer(), "flowtrack server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
