package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cicerogomeslima/bankmore/internal/config"
	"github.com/cicerogomeslima/bankmore/internal/feeworker"
	"github.com/cicerogomeslima/bankmore/internal/ledgerclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "fee-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := pgxpool.New(ctx, cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer dbPool.Close()

	feeStore := feeworker.NewPGStore(dbPool)
	if err := feeStore.EnsureSchema(ctx); err != nil {
		log.Fatal(err)
	}

	reader := feeworker.NewReader(cfg.KafkaBrokers, cfg.TransferTopic, cfg.FeeGroup)
	defer reader.Close()

	accountClient := ledgerclient.New(cfg.AccountBaseURL, cfg.InternalAPIKey, cfg.RemoteTimeout)
	consumer := feeworker.NewConsumer(reader, feeStore, accountClient, cfg.TransferFee, logger)

	// Metrics endpoint only; the worker has no request surface.
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
			logger.Error("metrics server stopped", "err", err)
		}
	}()

	logger.Info("fee worker starting", "topic", cfg.TransferTopic, "group", cfg.FeeGroup,
		"fee", cfg.TransferFee.String())
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
