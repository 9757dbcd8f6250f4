// Command server runs the draft session engine behind its HTTP tool
// surface.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/catalog"
	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/config"
	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/engine"
	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/httpapi"
	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/kb"
	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/n8n"
	"github.com/trangpl193/strange-mcp-n8n-sub000/internal/persistence"
	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	cat := catalog.New()
	if cfg.CatalogOverlay != "" {
		if err := cat.LoadOverlay(cfg.CatalogOverlay); err != nil {
			logger.Error("failed to load catalog overlay", "path", cfg.CatalogOverlay, "error", err)
			os.Exit(1)
		}
		logger.Info("catalog overlay loaded", "path", cfg.CatalogOverlay)
	}

	store, sweeper, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open session store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	if sweeper != nil {
		defer sweeper.Stop()
	}

	remote := n8n.NewHTTPClient(n8n.Config{
		BaseURL: cfg.N8NBaseURL,
		APIKey:  cfg.N8NAPIKey,
	})

	metrics := &api.BasicMetrics{}
	eng := engine.New(store, remote, engine.Options{
		TTL:           cfg.SessionTTL,
		SubmitTimeout: cfg.SubmitTimeout,
		Catalog:       cat,
		Validator:     kb.NewStaticValidator(),
		Observer:      api.NewCompositeObserver(api.NewLoggingObserver(logger), metrics),
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      httpapi.NewRouter(eng),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("server listening",
			"addr", cfg.ListenAddr,
			"backend", cfg.StoreBackend,
			"n8n", cfg.N8NBaseURL,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}

	snap := metrics.Snapshot()
	logger.Info("final metrics",
		"sessions_started", snap.SessionsStarted,
		"operations", snap.Operations,
		"commits_succeeded", snap.CommitsSucceeded,
		"commits_failed", snap.CommitsFailed,
	)
}

// openStore builds the configured backend. The memory store sweeps itself;
// the others get a shared Sweeper owned by this process.
func openStore(cfg *config.Config) (persistence.SessionStore, *persistence.Sweeper, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		store := persistence.NewMemoryStore(persistence.MemoryConfig{
			ArchiveTTL:    cfg.ArchiveTTL,
			SweepInterval: cfg.SweepInterval,
		})
		return store, nil, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, nil, err
		}
		store := persistence.NewRedisStore(client, "draftsess:", cfg.ArchiveTTL)
		return store, persistence.NewSweeper(store, cfg.SweepInterval), nil

	case config.BackendSQLite:
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := persistence.NewSQLiteStore(db, cfg.ArchiveTTL)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, persistence.NewSweeper(store, cfg.SweepInterval), nil

	case config.BackendPostgres:
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		store, err := persistence.NewPostgresStore(db, cfg.ArchiveTTL)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, persistence.NewSweeper(store, cfg.SweepInterval), nil
	}
	return nil, nil, errors.New("unreachable: config.Load validates the backend")
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
