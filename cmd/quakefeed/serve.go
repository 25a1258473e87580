package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/quake-feed-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/quake-feed-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-feed-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-feed-service/internal/config"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
	"github.com/couchcryptid/quake-feed-service/internal/pipeline"
	"github.com/couchcryptid/quake-feed-service/internal/store"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the feed service",
		Description: `Fetches the feed on startup and every REFRESH_INTERVAL, serves the
current snapshot on HTTP_ADDR and, when Kafka is enabled, writes every
snapshot to KAFKA_TOPIC.`,
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(c.Context, cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New(logger, metrics)
	client := usgs.NewClient(cfg.FeedTimeout, logger)
	coordinator := pipeline.New(client, st, logger, metrics, nil)
	logger.Info("feed client ready", "url", client.URL(), "timeout", cfg.FeedTimeout)

	var sink *kafkaadapter.Sink
	if cfg.KafkaEnabled {
		sink = kafkaadapter.NewSink(cfg, logger, metrics, nil)
		sub := st.Subscribe(sink.Notify)
		defer st.Unsubscribe(sub)
		go func() {
			if err := sink.Run(ctx); err != nil {
				logger.Error("kafka sink error", "error", err)
			}
		}()
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka sink disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, st, coordinator, cfg.SSEBuffer, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start the refresh loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := coordinator.Start(ctx, cfg.RefreshInterval); err != nil {
			logger.Error("refresh loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("refresh loop did not stop before shutdown timeout")
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			logger.Error("kafka sink close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
