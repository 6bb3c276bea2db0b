package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/MGallo-Code/ferry/internal/auth"
	"github.com/MGallo-Code/ferry/internal/config"
	"github.com/MGallo-Code/ferry/internal/handshake"
	"github.com/MGallo-Code/ferry/internal/metrics"
	"github.com/MGallo-Code/ferry/internal/store"
	"github.com/MGallo-Code/ferry/internal/token"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

// Embeds the migration files INTO the go bin

//go:embed migrations/*.sql
var migrationsDir embed.FS

func main() {
	// Load config first so we can set log level
	cfg, err := config.LoadConfig()
	if err != nil {
		// Fallback logger before config is available
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}

	// Include source location in log entries at debug level only.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: cfg.LogLevel == slog.LevelDebug,
	})))

	// Cancel ctx on SIGINT/SIGTERM; run() shuts down when ctx is done.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run() is a separate func so deferred closes always execute before os.Exit.
	if err := run(ctx, cfg, nil); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// run holds all server logic and returns error instead of calling os.Exit,
// so deferred resource cleanup always runs. Shuts down when ctx is cancelled.
// If ready is non-nil, the server's base URL is sent on it once the listener is bound.
// An empty cfg.BaseURL is derived from the bound listener (tests only).
func run(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	descs, err := config.LoadProviders(cfg.ProvidersFile)
	if err != nil {
		return err
	}

	sealer, err := token.NewAEADSealer(cfg.CookiePassword)
	if err != nil {
		return fmt.Errorf("failed to set up token sealer: %w", err)
	}
	codec, err := token.NewCodec(sealer, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to set up token codec: %w", err)
	}

	rec, err := metrics.NewRecorder()
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}

	h := &auth.LoginHandler{}

	// Replay guard: Redis when configured, process memory otherwise.
	var guard handshake.ReplayGuard
	if cfg.RedisURL != "" {
		rs, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to set up redis store: %w", err)
		}
		defer rs.Close()
		guard = rs
		h.Redis = rs
	} else {
		slog.Warn("REDIS_URL not set, replay guard is per-instance")
		guard = store.NewMemoryStore(time.Minute)
	}

	// Audit trail: Postgres when configured, dropped otherwise.
	var ps *store.PostgresStore
	if cfg.DatabaseURL != "" {
		ps, err = store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to set up postgres store: %w", err)
		}
		defer ps.Close()

		migrationsFS, err := fs.Sub(migrationsDir, "migrations")
		if err != nil {
			return fmt.Errorf("failed to access embedded migrations: %w", err)
		}
		if err := ps.Migrate(ctx, migrationsFS); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		h.Audit = ps
		h.Postgres = ps
	} else {
		h.Audit = store.NoopAuditStore{}
	}

	engine, err := handshake.New(handshake.Config{
		Codec:        codec,
		HTTPClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		CookieSecure: cfg.CookieSecure,
		Replay:       guard,
		Metrics:      rec,
		Logger:       slog.Default(),
	}, descs...)
	if err != nil {
		return err
	}
	h.Engine = engine

	// Bind listener; ":0" picks a free port (useful in tests).
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	localURL := "http://127.0.0.1:" + strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
	if cfg.BaseURL == "" {
		cfg.BaseURL = localURL
	}
	h.CallbackURL = cfg.CallbackURL

	server := &http.Server{
		Handler:           buildRouter(h, rec),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("ferry listening", "addr", ln.Addr().String(), "providers", engine.Providers())
		// Serve returns ErrServerClosed after Shutdown; anything else is fatal.
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")
		// Stop accepting, drain in-flight requests, give up after 30s.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.Info("server stopped")
		return nil
	})

	// Audit cleanup; removes rows past retention, runs every 24h.
	if ps != nil {
		g.Go(func() error {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					n, err := ps.CleanupHandshakes(gctx, cfg.AuditRetention)
					if err != nil {
						slog.Warn("audit cleanup failed", "error", err)
					} else {
						slog.Info("audit cleanup complete", "deleted", n)
					}
				case <-gctx.Done():
					return nil
				}
			}
		})
	}

	// Signal readiness to caller (used by tests; nil in production).
	if ready != nil {
		ready <- localURL
	}

	return g.Wait()
}

// buildRouter wires all routes and middleware.
func buildRouter(h *auth.LoginHandler, rec *metrics.Recorder) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.CheckHealth)
	r.Get("/login/{provider}", h.Login)
	r.Method(http.MethodGet, "/metrics", rec.Handler())

	return r
}
