package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cicerogomeslima/bankmore/internal/api"
	"github.com/cicerogomeslima/bankmore/internal/config"
	"github.com/cicerogomeslima/bankmore/internal/idempotency"
	"github.com/cicerogomeslima/bankmore/internal/ledgerclient"
	"github.com/cicerogomeslima/bankmore/internal/transfer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "transfer-api")

	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer dbPool.Close()

	transferStore := transfer.NewPGStore(dbPool)
	idemStore := idempotency.NewPGStore(dbPool)
	if err := transferStore.EnsureSchema(ctx); err != nil {
		log.Fatal(err)
	}
	if err := idemStore.EnsureSchema(ctx); err != nil {
		log.Fatal(err)
	}

	publisher := transfer.NewKafkaPublisher(cfg.KafkaBrokers, cfg.TransferTopic)
	defer publisher.Close()

	accountClient := ledgerclient.New(cfg.AccountBaseURL, cfg.InternalAPIKey, cfg.RemoteTimeout)
	orch := transfer.NewOrchestrator(idemStore, accountClient, transferStore, publisher, logger)
	handler := api.NewTransferHandler(orch, logger)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/transfers", handler.CreateTransfer).Methods("POST")

	logger.Info("transfer API starting", "port", cfg.Port, "env", cfg.Env)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
