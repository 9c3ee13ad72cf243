package platform

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zurich-js/zurichjs-conf-sub007/internal/ratelimit"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/registry"
)

type createTicketRequest struct {
	Email           string `json:"email"`
	AttendeeName    string `json:"attendee_name"`
	Kind            string `json:"kind"`
	WorkshopID      string `json:"workshop_id"`
	StripeSessionID string `json:"stripe_session_id"`
	Price           int64  `json:"price"`
	Currency        string `json:"currency"`
}

// handleCreateTicket reserves a ticket. Payment is confirmed asynchronously
// by the Stripe webhook, which flips the reservation to paid.
func handleCreateTicket(store *registry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTicketRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || !strings.Contains(req.Email, "@") {
			writeError(w, http.StatusBadRequest, "valid email is required")
			return
		}

		kind := registry.TicketKind(strings.TrimSpace(req.Kind))
		switch kind {
		case "", registry.TicketKindConference:
			kind = registry.TicketKindConference
		case registry.TicketKindWorkshop:
			if strings.TrimSpace(req.WorkshopID) == "" {
				writeError(w, http.StatusBadRequest, "workshop_id is required for workshop tickets")
				return
			}
		default:
			writeError(w, http.StatusBadRequest, "kind must be conference or workshop")
			return
		}

		ticket := &registry.Ticket{
			ID:              registry.NewTicketID(),
			Email:           req.Email,
			AttendeeName:    strings.TrimSpace(req.AttendeeName),
			Kind:            kind,
			WorkshopID:      strings.TrimSpace(req.WorkshopID),
			StripeSessionID: strings.TrimSpace(req.StripeSessionID),
			Price:           req.Price,
			Currency:        strings.ToUpper(strings.TrimSpace(req.Currency)),
		}
		if ticket.Currency == "" {
			ticket.Currency = "CHF"
		}

		if err := store.CreateTicket(ticket); err != nil {
			log.Error().Err(err).Msg("Create ticket failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, ticket)
	}
}

func handleGetTicket(store *registry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticket, err := store.GetTicket(r.PathValue("ticket_id"))
		if err != nil {
			log.Error().Err(err).Msg("Get ticket failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if ticket == nil {
			writeError(w, http.StatusNotFound, "ticket not found")
			return
		}
		writeJSON(w, http.StatusOK, ticket)
	}
}

// handleQuota reports the caller's remaining rate-limit quota without
// consuming a request slot.
func handleQuota(limiter *ratelimit.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identifier := ratelimit.ClientIP(r)

		res, ok := limiter.Peek(identifier)
		if !ok {
			// No live window: full quota available.
			writeJSON(w, http.StatusOK, map[string]any{
				"limit":     limiter.Limit(),
				"remaining": limiter.Limit(),
				"used":      0,
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"limit":     limiter.Limit(),
			"remaining": res.Remaining,
			"used":      res.Current,
			"reset_at":  res.ResetAt.Unix(),
		})
	}
}

type rateLimitResetRequest struct {
	Identifier string `json:"identifier"`
}

// handleRateLimitReset manually clears a client's throttle, e.g. after a
// support escalation or a passed captcha.
func handleRateLimitReset(limiter *ratelimit.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rateLimitResetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		identifier := strings.TrimSpace(req.Identifier)
		if identifier == "" {
			writeError(w, http.StatusBadRequest, "identifier is required")
			return
		}

		limiter.Reset(identifier)
		log.Info().Str("identifier", identifier).Msg("Rate limit manually reset")
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}
