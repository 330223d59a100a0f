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
	"github.com/cicerogomeslima/bankmore/internal/cache"
	"github.com/cicerogomeslima/bankmore/internal/config"
	"github.com/cicerogomeslima/bankmore/internal/idempotency"
	"github.com/cicerogomeslima/bankmore/internal/ledger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "account-api")

	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer dbPool.Close()

	ledgerStore := ledger.NewPGStore(dbPool)
	idemStore := idempotency.NewPGStore(dbPool)
	if err := ledgerStore.EnsureSchema(ctx); err != nil {
		log.Fatal(err)
	}
	if err := idemStore.EnsureSchema(ctx); err != nil {
		log.Fatal(err)
	}

	balanceCache := cache.NewBalanceCache(cfg.RedisAddr, cfg.BalanceTTL, logger)
	defer balanceCache.Close()

	svc := ledger.NewService(ledgerStore, balanceCache, logger)
	handler := api.NewAccountHandler(svc, idemStore, logger)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/movements", handler.CreateMovement).Methods("POST")
	apiV1.HandleFunc("/balance", handler.GetBalance).Methods("GET")

	internal := r.PathPrefix("/internal").Subrouter()
	internal.Use(api.InternalKeyMiddleware(cfg.InternalAPIKey))
	internal.HandleFunc("/accounts/{number}/id", handler.ResolveAccountID).Methods("GET")
	internal.HandleFunc("/accounts/{id}/movements", handler.CreateInternalMovement).Methods("POST")

	logger.Info("account API starting", "port", cfg.Port, "env", cfg.Env)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
