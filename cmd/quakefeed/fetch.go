package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/couchcryptid/quake-feed-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-feed-service/internal/config"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
	"github.com/couchcryptid/quake-feed-service/internal/pipeline"
	"github.com/couchcryptid/quake-feed-service/internal/store"
	"github.com/urfave/cli/v2"
)

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch the feed once and print the events",
		Description: `Runs a single fetch cycle and prints each event as a JSON object on
its own line. Logs go to stderr.`,
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := stderrLogger(c.App.ErrWriter, cfg.LogLevel)
			client := usgs.NewClient(cfg.FeedTimeout, logger)
			return fetchOnce(c.Context, client, c.App.Writer, logger, observability.NewMetrics())
		},
	}
}

// stderrLogger keeps diagnostics off stdout, which carries the events.
func stderrLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(h).With("service", observability.ServiceName)
}

// fetchOnce runs one cycle against f and writes the resulting snapshot to out.
func fetchOnce(ctx context.Context, f pipeline.FeedFetcher, out io.Writer, logger *slog.Logger, metrics *observability.Metrics) error {
	st := store.New(logger, metrics)
	result := pipeline.New(f, st, logger, metrics, nil).Run(ctx)
	if result.Outcome == pipeline.StageFailed {
		return errors.New(result.Error)
	}

	enc := json.NewEncoder(out)
	for _, e := range st.Current() {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}
