// Package main is the entry point for the admin console server binary.
// It dispatches three subcommands (serve, migrate and version) via a simple
// switch on os.Args. The serve command runs auto-migration on startup so a
// fresh deployment never needs a separate migration step.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108 -- pprof is only served on the dedicated profiling port, never on the Gin router.
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/admin-console/admin-console/internal/api"
	"github.com/admin-console/admin-console/internal/auth"
	"github.com/admin-console/admin-console/internal/config"
	"github.com/admin-console/admin-console/internal/console"
	"github.com/admin-console/admin-console/internal/db"
	"github.com/admin-console/admin-console/internal/db/repositories"
	"github.com/admin-console/admin-console/internal/media"
	"github.com/admin-console/admin-console/internal/safego"
	"github.com/admin-console/admin-console/internal/storage"
	_ "github.com/admin-console/admin-console/internal/storage/azure"
	_ "github.com/admin-console/admin-console/internal/storage/gcs"
	_ "github.com/admin-console/admin-console/internal/storage/local"
	_ "github.com/admin-console/admin-console/internal/storage/minio"
	_ "github.com/admin-console/admin-console/internal/storage/s3"
	"github.com/admin-console/admin-console/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	version         = "0.1.0"
	initialLoadWait = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if command == "version" {
		fmt.Printf("Admin Console v%s\n", version)
		return nil
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch command {
	case "serve":
		return serve(cfg)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		return runMigrations(cfg, os.Args[2])
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, version", command)
	}
}

func serve(cfg *config.Config) error {
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level, cfg.Telemetry.ServiceName)
	api.Version = version

	if auth.IsDevMode() || cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	slog.Info("connected to database",
		"host", cfg.Database.Host, "port", cfg.Database.Port, "name", cfg.Database.Name)

	if err := db.RunMigrations(database, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if v, dirty, err := db.GetMigrationVersion(database); err != nil {
		slog.Warn("failed to get migration version", "error", err)
	} else {
		slog.Info("database schema ready", "version", v, "dirty", dirty)
	}

	safego.Go("db-stats", func() {
		telemetry.CollectDBStats(ctx, database, 15*time.Second)
	})

	store, err := storage.NewStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if ensurer, ok := store.(storage.BucketEnsurer); ok {
		if err := ensurer.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to prepare storage bucket: %w", err)
		}
	}
	slog.Info("storage ready", "backend", cfg.Storage.DefaultBackend, "namespace", cfg.Storage.Namespace)

	gate, err := auth.NewGate(cfg.Admin, cfg.Session)
	if err != nil {
		return fmt.Errorf("security configuration error: %w", err)
	}

	sqlxDB := sqlx.NewDb(database, "postgres")
	consoleState := console.New(
		repositories.NewUpdateRepository(sqlxDB),
		repositories.NewPromotionRepository(sqlxDB),
		repositories.NewOrganizationRepository(sqlxDB),
		repositories.NewProfileRepository(sqlxDB),
	)

	// A failed initial load leaves the affected caches empty; the refresh
	// endpoints retry it on demand.
	loadCtx, cancelLoad := context.WithTimeout(ctx, initialLoadWait)
	if err := consoleState.Load(loadCtx); err != nil {
		slog.Warn("initial console load incomplete", "error", err)
	}
	cancelLoad()

	router, bgServices, err := api.NewRouter(cfg, api.Dependencies{
		DB:       sqlxDB,
		Storage:  store,
		Console:  consoleState,
		Gate:     gate,
		Uploader: media.NewUploader(store, cfg.Storage.Namespace, cfg.Storage.MaxImageBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}
	defer bgServices.Shutdown()

	if cfg.Telemetry.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		startSideServer(ctx, "metrics", fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort), mux, 10*time.Second)
	}
	if cfg.Telemetry.Profiling.Enabled {
		// net/http/pprof registers its handlers on http.DefaultServeMux at init time.
		startSideServer(ctx, "pprof", fmt.Sprintf(":%d", cfg.Telemetry.Profiling.Port), http.DefaultServeMux, 30*time.Second)
	}

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	safego.Go("http-server", func() {
		slog.Info("starting server",
			"addr", server.Addr,
			"base_url", cfg.Server.BaseURL,
			"tls", cfg.Security.TLS.Enabled)
		var err error
		if cfg.Security.TLS.Enabled {
			err = server.ListenAndServeTLS(cfg.Security.TLS.CertFile, cfg.Security.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	})

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// startSideServer runs an internal listener (metrics, pprof) that is closed
// when ctx is cancelled.
func startSideServer(ctx context.Context, name, addr string, handler http.Handler, timeout time.Duration) {
	srv := &http.Server{ // #nosec G112 -- internal-only port
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	safego.Go(name+"-server", func() {
		slog.Info("starting side server", "name", name, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("side server error", "name", name, "error", err)
		}
	})
	safego.Go(name+"-shutdown", func() {
		<-ctx.Done()
		_ = srv.Close()
	})
}

func runMigrations(cfg *config.Config, direction string) error {
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	log.Printf("Running migrations: %s", direction) // #nosec G706 -- operator-supplied CLI argument

	if err := db.RunMigrations(database, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	v, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	log.Printf("Migration completed successfully. Current version: %d (dirty: %v)", v, dirty)
	return nil
}
