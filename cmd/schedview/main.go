package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"schedview/internal/config"
	appLog "schedview/internal/log"
	"schedview/internal/refresh"
	"schedview/internal/web"
)

var version = "0.1.0-dev"

var (
	configPath string
	verbose    bool

	// cfg is loaded once in PersistentPreRunE for every subcommand.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "schedview",
	Short: "Calendar and list views over a schedule API and ICS feeds",
	Long: `schedview renders schedule records as month, week and day calendars
and as a filtered, sorted list. Records come from a CRUD list endpoint and
any number of ICS subscriptions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", configPath, err)
		}
		cfg = c

		level := appLog.ParseLevel(cfg.LogLevel)
		if verbose {
			level = appLog.LevelDebug
		}
		appLog.SetLevel(level)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		appLog.Sync()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web UI and API, refreshing sources on the configured schedule",
	RunE:  runServe,
}

var listenFlag string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./schedview.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	serveCmd.Flags().StringVar(&listenFlag, "listen", "", "HTTP listen address (overrides config)")

	rootCmd.AddCommand(serveCmd, gridCmd, listCmd, exportCmd, snapshotCmd, tuiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	if listenFlag != "" {
		cfg.Listen = listenFlag
	}
	appLog.Info("schedview starting",
		"version", version,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"api", cfg.API.URL != "",
		"ics_count", len(cfg.ICS),
	)

	ctx, stop := signalContext()
	defer stop()

	events := refresh.New(buildSources(cfg, time.Now), refreshOptions(cfg))
	srv := web.NewServer(cfg, events)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return events.Run(ctx, cfg.RefreshCron)
	})
	g.Go(func() error {
		return srv.Serve(ctx)
	})
	g.Go(func() error {
		return config.Watch(ctx, configPath, func(next *config.Config) {
			// The listen address and refresh schedule need a restart.
			next.Listen = cfg.Listen
			next.RefreshCron = cfg.RefreshCron
			appLog.SetLevel(appLog.ParseLevel(next.LogLevel))
			events.Reconfigure(buildSources(next, time.Now), refreshOptions(next))
			srv.SetConfig(next)
			go func() { _ = events.Refresh(ctx) }()
		})
	})

	err := g.Wait()
	appLog.Info("schedview exiting")
	return err
}
