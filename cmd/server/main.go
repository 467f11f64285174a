/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the sistema-ventas ledger server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env configuration, apply command-line overrides
  2. Initialize SQLite store (migrations run here)
  3. Seed the default operator accounts if the user table is empty
  4. Wire the ledger, auth manager, and HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

ENVIRONMENT:
  PORT, DB_PATH, ALLOWED_ORIGIN, AUTH_SECRET, AUTH_TOKEN_TTL_MINUTES.
  See config/env.go for defaults.

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/verzalex4-ai/sistema-ventas/api"
	"github.com/verzalex4-ai/sistema-ventas/auth"
	"github.com/verzalex4-ai/sistema-ventas/config"
	"github.com/verzalex4-ai/sistema-ventas/ledger"
	"github.com/verzalex4-ai/sistema-ventas/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags win over environment.
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire the core
	core := ledger.New(store)
	authManager := auth.NewManager(store, cfg.Auth.Secret,
		time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)

	// Seed default accounts on first run
	if err := auth.Bootstrap(context.Background(), store); err != nil {
		log.Fatalf("Failed to seed default users: %v", err)
	}

	// Create router
	handler := api.NewHandler(core, authManager)
	router := api.NewRouter(handler, cfg.AllowedOrigin)

	// Create server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%s", *port)
		log.Printf("API available at http://localhost:%s/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
