package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bank-backoffice/audit"
	"bank-backoffice/auth"
	"bank-backoffice/config"
	"bank-backoffice/ledger"
	"bank-backoffice/notify"
	"bank-backoffice/store"
	"bank-backoffice/transfer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("could not reach database: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPIN != "" {
		if err := auth.EnsureAdmin(ctx, st, cfg.Auth.AdminEmail, cfg.Auth.AdminName, cfg.Auth.AdminPIN); err != nil {
			return fmt.Errorf("could not seed admin user: %w", err)
		}
	}

	recorder := audit.NewRecorder(time.Now)
	ledgerSvc := ledger.NewService(st, recorder, time.Now)
	transferSvc := transfer.NewService(st, ledgerSvc, recorder, time.Now)
	notifier := &notify.LogNotifier{Logger: logger}

	sessions := auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, time.Now)
	authEnv := &auth.Env{Store: st, Sessions: sessions}
	ledgerEnv := &ledger.Env{Ledger: ledgerSvc, Store: st, Notifier: notifier, Logger: logger}
	transferEnv := &transfer.Env{Transfers: transferSvc, Notifier: notifier, Logger: logger}

	mw := &auth.Middleware{Sessions: sessions}
	limiter := auth.NewRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window, time.Now)

	mux := http.NewServeMux()

	mux.Handle("/signup", limiter.Middleware(http.HandlerFunc(authEnv.SignupHandler)))
	mux.Handle("/login", limiter.Middleware(http.HandlerFunc(authEnv.LoginHandler)))

	mux.Handle("/create-account", mw.Authenticate(http.HandlerFunc(ledgerEnv.CreateAccountHandler)))
	mux.Handle("/accounts", mw.Authenticate(http.HandlerFunc(ledgerEnv.AccountsHandler)))
	mux.Handle("/transactions", mw.Authenticate(http.HandlerFunc(ledgerEnv.TransactionsHandler)))
	mux.Handle("/create-transfer", mw.Authenticate(http.HandlerFunc(transferEnv.CreateHandler)))
	mux.Handle("/transfers", mw.Authenticate(http.HandlerFunc(transferEnv.ListHandler)))

	mux.Handle("/admin/pending-transfers", mw.RequireAdmin(http.HandlerFunc(transferEnv.PendingHandler)))
	mux.Handle("/admin/approve-transfer", mw.RequireAdmin(limiter.Middleware(http.HandlerFunc(transferEnv.ApproveHandler))))
	mux.Handle("/admin/reject-transfer", mw.RequireAdmin(limiter.Middleware(http.HandlerFunc(transferEnv.RejectHandler))))
	mux.Handle("/admin/credit", mw.RequireAdmin(limiter.Middleware(http.HandlerFunc(ledgerEnv.CreditHandler))))
	mux.Handle("/admin/debit", mw.RequireAdmin(limiter.Middleware(http.HandlerFunc(ledgerEnv.DebitHandler))))
	mux.Handle("/admin/set-account-status", mw.RequireAdmin(limiter.Middleware(http.HandlerFunc(ledgerEnv.SetStatusHandler))))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			auth.RespondWithError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		auth.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      requestLogging(logger, mux),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not shut down cleanly: %w", err)
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func requestLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
