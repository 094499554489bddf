/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the back-office server. Handles configuration,
  dependency injection, series seeding, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse flags, env wins over defaults
  2. Configure logrus
  3. Initialize SQLite store
  4. Seed the document number series from stored documents
  5. Configure HTTP router and start server with graceful shutdown

CONFIGURATION:
  PORT / -port          HTTP server port (default: 8080)
  DB_PATH / -db         SQLite database path (default: backoffice.db)
                        Use ":memory:" for an in-memory database
  LOG_LEVEL             logrus level (default: info)
  LOG_FORMAT            "json" or "text" (default: text)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation and series seeding
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/anta/backoffice/api"
	"github.com/anta/backoffice/sequence"
	"github.com/anta/backoffice/store/sqlite"
)

func main() {
	// A missing .env is fine; deployments use real env vars.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "backoffice.db"), "SQLite database path")
	flag.Parse()

	log := newLogger()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Recover the series counters from whatever numbers are already
	// stored, so restarts never reissue a number.
	ctx := context.Background()
	for _, prefix := range []string{sequence.Quotations, sequence.PurchaseOrders} {
		if err := store.SeedSeries(ctx, prefix); err != nil {
			log.WithError(err).WithField("series", prefix).Fatal("failed to seed number series")
		}
	}

	handler := api.NewHandler(store, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": *port, "db": *dbPath}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}

func newLogger() *logrus.Logger {
	log := logrus.New()

	if level, err := logrus.ParseLevel(envStr("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}
	if envStr("LOG_FORMAT", "text") == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
