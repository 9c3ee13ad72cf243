package platform

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zurich-js/zurichjs-conf-sub007/internal/email"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/invoicepdf"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/logging"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/ratelimit"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/registry"
)

// Run starts the conference platform HTTP server with graceful shutdown.
func Run(ctx context.Context, version string) error {
	logging.Init(logging.Config{
		Format:    "auto",
		Level:     "info",
		Component: "conf-platform",
	})

	log.Info().Str("version", version).Msg("Starting ZurichJS conference platform")

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(cfg.StoreDir(), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	store, err := registry.NewStore(cfg.StoreDir())
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer store.Close()

	// Email sender selection. Batch routes wrap this in a PacedSender;
	// single transactional sends go out unthrottled.
	var sender email.Sender
	if cfg.ResendAPIKey != "" {
		sender = email.NewResendSender(cfg.ResendAPIKey)
		log.Info().Msg("Email sender configured (Resend)")
	} else {
		sender = email.NewLogSender(func(to, subject, body string) {
			const maxBody = 4096
			bodyForLog := body
			if len(bodyForLog) > maxBody {
				bodyForLog = bodyForLog[:maxBody] + "...(truncated)"
			}
			log.Info().
				Str("to", to).
				Str("subject", subject).
				Str("body", bodyForLog).
				Msg("Email (log-only, no email provider configured)")
		})
		log.Info().Msg("Email sender: log-only (set RESEND_API_KEY to enable)")
	}

	limiter := ratelimit.New(ratelimit.Config{
		Window:          cfg.RateLimitWindow,
		MaxRequests:     cfg.RateLimitMax,
		CleanupInterval: cfg.RateLimitCleanup,
	})
	defer limiter.Destroy()

	mux := http.NewServeMux()
	deps := &Deps{
		Config:      cfg,
		Store:       store,
		EmailSender: sender,
		Limiter:     limiter,
		PDF:         invoicepdf.NewGenerator(),
		Version:     version,
	}
	RegisterRoutes(mux, deps)

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           SecurityHeaders(mux),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Derived context for background goroutines
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go runTicketStateMetrics(ctx, store)

	go func() {
		log.Info().Str("addr", addr).Msg("Conference platform listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		log.Info().Msg("Context cancelled, shutting down...")
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	cancel()
	log.Info().Msg("Conference platform stopped")
	return nil
}
