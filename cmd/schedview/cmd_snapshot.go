package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"schedview/internal/capture"
	appLog "schedview/internal/log"
	"schedview/internal/refresh"
	"schedview/internal/web"
)

var (
	snapshotFlags  stateFlags
	snapshotOutput string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Render the calendar page to a PNG with headless Chromium",
	Long: `snapshot loads all sources once, serves the calendar page on a loopback
port and captures it with headless Chromium. The PNG is also what the running
server exposes at /preview.png.`,
	Example: `  schedview snapshot --view week -o week.png`,
	RunE:    runSnapshot,
}

func init() {
	snapshotFlags.register(snapshotCmd, true)
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "", "PNG path (default from config)")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	st, err := snapshotFlags.store(cfg.Location())
	if err != nil {
		return err
	}
	if snapshotOutput == "" {
		snapshotOutput = cfg.Snapshot.Output
	}

	ctx, stop := signalContext()
	defer stop()

	events := refresh.New(buildSources(cfg, time.Now), refreshOptions(cfg))
	if err := events.Refresh(ctx); err != nil && len(events.Snapshot().Events) == 0 {
		appLog.Warn("snapshot continues without events", "error", err)
	}

	// The page is only reachable over loopback for the capture.
	local := *cfg
	local.BasicAuth = nil
	srv := web.NewServer(&local, events)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("snapshot server failed", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	return capture.CalendarPNG(ctx, capture.Options{
		BaseURL:    "http://" + ln.Addr().String(),
		Query:      st.Query(),
		OutputPath: snapshotOutput,
		Width:      cfg.Snapshot.Width,
		Height:     cfg.Snapshot.Height,
	})
}
