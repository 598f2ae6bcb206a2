/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the punch clock API server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration (PUNCH_* variables)
  2. Initialize SQLite store
  3. Wire the timeclock service and auth layer
  4. Configure HTTP router
  5. Start server with graceful shutdown

ENVIRONMENT:
  PUNCH_LISTEN_ADDR           Listen address (default 0.0.0.0:8080)
  PUNCH_DB_PATH               SQLite path (default punchclock.db, ":memory:" works)
  PUNCH_JWT_SECRET            Token signing secret
  PUNCH_ALLOWED_ORIGINS       CORS allow-list, comma separated
  PUNCH_DAILY_TARGET_SECONDS  Daily work target (default 28800 = 8h)
  PUNCH_LOG_LEVEL             debug|info|warn|error
  PUNCH_LOG_FORMAT            text|json

FLAGS:
  -addr and -db override the corresponding environment variables.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/punch-engine/api"
	"github.com/warp/punch-engine/config"
	"github.com/warp/punch-engine/logging"
	"github.com/warp/punch-engine/store/sqlite"
	"github.com/warp/punch-engine/timeclock"
)

func main() {
	addr := flag.String("addr", "", "listen address (overrides PUNCH_LISTEN_ADDR)")
	dbPath := flag.String("db", "", "SQLite database path (overrides PUNCH_DB_PATH)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.ListenAddr = *addr
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}

	log := logging.New(cfg.Logging)

	store, err := sqlite.New(cfg.Server.DBPath)
	if err != nil {
		log.Error("failed to initialize database", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	service := timeclock.New(timeclock.Config{
		Store:              store,
		Evidence:           store,
		Audit:              store,
		Directory:          store,
		Logger:             log,
		DailyTargetSeconds: cfg.Server.DailyTargetSeconds,
	})

	auth := api.NewAuth(store, []byte(cfg.Server.JWTSecret))
	handler := api.NewHandler(service, auth, log)
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", cfg.Server.ListenAddr, "db", cfg.Server.DBPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "err", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
