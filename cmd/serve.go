package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rent-tracking/internal/config"
	"rent-tracking/internal/scheduler"
	"rent-tracking/internal/transport/auth"
	"rent-tracking/internal/transport/rest"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var withScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the websocket hub and optionally the job scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cmd.Flags().Changed("scheduler") {
				cfg.Scheduler.Enabled = withScheduler
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().BoolVar(&withScheduler, "scheduler", false, "run the monthly and daily jobs in-process (overrides SCHEDULER_ENABLED)")
	return cmd
}

func runServe(cfg config.AppConfig) error {
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	// top-level context which we cancel on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	go a.hub.Run(ctx)

	handler := rest.NewHandler(a.overrides, a.reports, a.jobs, a.clock, a.loc, log)
	router := handler.InitRouter(
		auth.SanctumMiddleware(a.tokens, log),
		auth.JobTokenMiddleware(cfg.Jobs.Token),
	)

	if a.storage != nil {
		router.Get(cfg.Storage.PublicPrefix+"/{file}", a.serveFile)
	}
	router.Get("/ws", a.serveWebSocket)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      withCORS(router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
			return
		}
		srvErr <- nil
	}()

	if a.storage != nil {
		go a.cleanupExports(ctx, cfg.Storage.ExportTTL)
	}

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(a.jobs, a.clock, a.loc, cfg.Scheduler.Interval, log)
		go sched.Run(ctx)
		log.Info("scheduler enabled", zap.Duration("interval", cfg.Scheduler.Interval))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-srvErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case sig := <-stop:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http server shutdown failed", zap.Error(err))
		}
		// stops the hub, the cleaner and the scheduler
		cancel()
		log.Info("shutdown complete")
	}
	return nil
}

func (a *app) serveFile(w http.ResponseWriter, r *http.Request) {
	path, original, err := a.storage.Open(chi.URLParam(r, "file"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "failed to access file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", original))
	http.ServeFile(w, r, path)
}

func (a *app) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	pat, err := a.tokens.FindTokenByPlainToken(r.Context(), token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if pat.Expired(time.Now()) {
		http.Error(w, "Token expired", http.StatusUnauthorized)
		return
	}

	a.log.Debug("websocket connected", zap.Int64("user_id", pat.UserID))
	a.hub.HandleWebSocket(w, r, pat.UserID)
}

func (a *app) cleanupExports(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.storage.CleanupOlderThan(ttl)
			if err != nil {
				a.log.Warn("storage cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				a.log.Info("expired exports removed", zap.Int("count", removed))
			}
		}
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")

			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, "+auth.JobTokenHeader)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
