// Package main is the entry point for the Stockbook API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"

	"stockbook/internal/core/security"
	"stockbook/internal/domain/closing"
	"stockbook/internal/domain/declaration"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/domain/product"
	"stockbook/internal/domain/reports"
	"stockbook/internal/domain/stock"
	v1 "stockbook/internal/infrastructure/http/v1"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/internal/infrastructure/storage/postgres/catalog_repo"
	"stockbook/internal/infrastructure/storage/postgres/document_repo"
	"stockbook/internal/infrastructure/storage/postgres/ledger_repo"
	"stockbook/internal/infrastructure/storage/postgres/report_repo"
	"stockbook/pkg/logger"
	"stockbook/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting stockbook server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	productRepo := catalog_repo.NewProductRepo(txManager)
	transactionRepo := ledger_repo.NewTransactionRepo(txManager)
	declarationRepo := document_repo.NewDeclarationRepo(txManager)
	archiveRepo := document_repo.NewArchiveRepo(txManager)
	reportRepo := report_repo.NewReportRepo(txManager)

	activityLog, err := postgres.NewActivityLog(txManager)
	if err != nil {
		log.Fatalw("failed to initialize activity log", "error", err)
	}

	// --- Shipment numbering ---
	// The querier resolves through TxManager, so numbers issued during
	// outbound submission allocate inside the same transaction.
	numbers := numerator.New(txQuerier{txManager})
	shipmentNumbers := declaration.NumberFunc(func(ctx context.Context) (string, error) {
		return numbers.GetNextNumber(ctx, numerator.DefaultConfig("SHP"), numerator.DefaultOptions(), time.Now().UTC())
	})

	// --- Services ---
	productService := product.NewService(productRepo, log)
	ledgerService := ledger.NewService(
		transactionRepo,
		productService,
		security.NewCurrentMonthPolicy(),
		txManager,
		log,
	)
	stockService := stock.NewService(transactionRepo)
	closingService := closing.NewService(reportRepo, transactionRepo, txManager, log)
	declarationService := declaration.NewService(
		declarationRepo,
		archiveRepo,
		activityLog,
		productService,
		ledgerService,
		shipmentNumbers,
		txManager,
		log,
	)
	reportsService := reports.NewService(reportRepo, closingService, log)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Logger:         log,
		TokenValidator: security.NewJWTValidator([]byte(mustEnv("JWT_SECRET"))),
		Products:       productService,
		Ledger:         ledgerService,
		Stock:          stockService,
		Closing:        closingService,
		Declarations:   declarationService,
		Reports:        reportsService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// txQuerier routes numerator queries through the transaction manager so
// that a number requested inside a transaction is allocated on it.
type txQuerier struct {
	txm *postgres.TxManager
}

func (q txQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return q.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}
