/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the clinic accounting engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env + optional .env)
  2. Initialize SQLite store
  3. Wire ledger, billing engine, and workflow service
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION (environment):
  HTTP_PORT           HTTP server port (default: 8080)
  DATABASE_PATH       SQLite database path (default: ./data/clinic.db)
                      Use ":memory:" for an in-memory database
  NO_SHOW_COMMISSION  Accrue commission on paid no-shows (default: false)
  ALLOWED_ORIGINS     Comma-separated CORS allowlist
  SHUTDOWN_TIMEOUT    Graceful shutdown timeout (default: 10s)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solhealth/clinic-core/activity"
	"github.com/solhealth/clinic-core/api"
	"github.com/solhealth/clinic-core/billing"
	"github.com/solhealth/clinic-core/config"
	"github.com/solhealth/clinic-core/ledger"
	"github.com/solhealth/clinic-core/store/sqlite"
	"github.com/solhealth/clinic-core/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire the domain services. The store implements every persistence
	// interface; the notifier writes the activity feed and never fails
	// a business operation.
	notifier := activity.NewFeedNotifier(store)
	led := ledger.New(store)
	engine := billing.NewEngine(led, store, notifier, billing.Options{
		NoShowCommission: cfg.NoShowCommission,
	})
	wf := &workflow.Service{
		Requests: store,
		Patients: store,
		Notifier: notifier,
	}

	handler := api.NewHandler(store, engine, wf)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%s", cfg.HTTPPort)
		log.Printf("📊 API available at http://localhost:%s/api", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
