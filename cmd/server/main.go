/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the caddie ledger server. Handles configuration,
  dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment config (.env supported), parse command-line flags
  2. Open the SQLite store
  3. Build the mileage client (if MILEAGE_API_URL is configured)
  4. Create the record cache and pull the initial snapshot
  5. Configure the HTTP router
  6. Start the server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -port    HTTP server port (default: 8080 or $PORT)
  -db      SQLite database path (default: ledger.db or $DB_PATH)
           Use ":memory:" for an in-memory database
  -user    User id the ledger is scoped to

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the database connection
  4. Exit

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairway/loopledger/api"
	"github.com/fairway/loopledger/config"
	"github.com/fairway/loopledger/ledger"
	"github.com/fairway/loopledger/mileage"
	"github.com/fairway/loopledger/store/sqlite"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg.LogLevel)

	// Flags override environment config
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	userID := flag.String("user", cfg.UserID, "ledger user id")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Mileage is optional; without a configured provider, saved loops keep
	// whatever mileage values they already carry.
	var estimator ledger.MileageEstimator
	if cfg.MileageAPIURL != "" {
		estimator = mileage.NewClient(cfg.MileageAPIURL, cfg.MileageAPIKey)
	}

	// Build the cache and pull the initial snapshot. A failed initial
	// refresh is not fatal: the store may be briefly unavailable, and the
	// cache serves last-known-good (here: empty) until a retry.
	cache := ledger.NewCache(store, estimator, *userID, log)
	if err := cache.Refresh(context.Background()); err != nil {
		log.WithError(err).Warn("initial refresh failed, starting with empty cache")
	}

	handler := api.NewHandler(cache, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("ledger server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
