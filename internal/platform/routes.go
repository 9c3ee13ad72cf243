package platform

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/zurich-js/zurichjs-conf-sub007/internal/email"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/invoicepdf"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/ratelimit"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/registry"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/stripeevents"
)

// Deps holds shared dependencies injected into HTTP handlers.
type Deps struct {
	Config      *Config
	Store       *registry.Store
	EmailSender email.Sender
	Limiter     *ratelimit.Limiter
	PDF         *invoicepdf.Generator
	Version     string
}

// RegisterRoutes wires all HTTP handlers onto the given ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps *Deps) {
	adminAuth := func(next http.Handler) http.Handler {
		return AdminKeyMiddleware(deps.Config.AdminKeyHash, next)
	}
	limited := func(next http.Handler) http.Handler {
		return deps.Limiter.Middleware(deps.Config.RateLimitExempt, next)
	}

	// Health / readiness are unauthenticated liveness/readiness probes.
	mux.HandleFunc("/healthz", handleHealthz)
	mux.HandleFunc("/readyz", handleReadyz(deps.Store))

	// Status and metrics are private by default.
	mux.Handle("/status", adminAuth(handleStatus(deps.Store, deps.Version)))

	metricsHandler := promhttp.Handler()
	if deps.Config.PublicMetrics {
		mux.Handle("/metrics", metricsHandler)
	} else {
		mux.Handle("/metrics", adminAuth(metricsHandler))
	}

	// Stripe webhook (signature-authenticated, rate-limited)
	webhookHandler := stripeevents.NewHandler(deps.Config.StripeWebhookSecret, deps.Store, deps.EmailSender, deps.Config.EmailFrom)
	mux.Handle("/api/stripe/webhook", limited(webhookHandler))

	// Public ticket API (rate-limited)
	mux.Handle("POST /api/tickets", limited(handleCreateTicket(deps.Store)))
	mux.Handle("GET /api/tickets/{ticket_id}", limited(handleGetTicket(deps.Store)))

	// Remaining-quota readout: peeks without consuming a request slot.
	mux.Handle("GET /api/quota", handleQuota(deps.Limiter))

	// Admin API (key-authenticated)
	mux.Handle("GET /admin/tiers", adminAuth(handleListTiers(deps.Store)))
	mux.Handle("POST /admin/tiers", adminAuth(handleCreateTier(deps.Store)))
	mux.Handle("GET /admin/sponsors", adminAuth(handleListSponsors(deps.Store)))
	mux.Handle("POST /admin/sponsors", adminAuth(handleCreateSponsor(deps.Store)))
	mux.Handle("GET /admin/deals", adminAuth(handleListDeals(deps.Store)))
	mux.Handle("POST /admin/deals", adminAuth(handleCreateDeal(deps.Store)))
	mux.Handle("GET /admin/deals/{deal_id}", adminAuth(handleGetDeal(deps.Store)))
	mux.Handle("POST /admin/deals/{deal_id}/items", adminAuth(handleAddLineItem(deps.Store)))
	mux.Handle("DELETE /admin/deals/{deal_id}/items/{item_id}", adminAuth(handleDeleteLineItem(deps.Store)))
	mux.Handle("POST /admin/deals/{deal_id}/invoice", adminAuth(handleGenerateInvoice(deps)))
	mux.Handle("GET /admin/invoices/{invoice_id}/pdf", adminAuth(handleInvoicePDF(deps)))
	mux.Handle("POST /admin/ratelimit/reset", adminAuth(handleRateLimitReset(deps.Limiter)))
	mux.Handle("POST /admin/announcements", adminAuth(handleAnnouncement(deps)))
}

func writeJSON[T any](w http.ResponseWriter, status int, v T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("platform: encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
