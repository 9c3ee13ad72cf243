// Package stripeevents handles incoming Stripe webhook deliveries for
// ticket checkout sessions.
package stripeevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/zurich-js/zurichjs-conf-sub007/internal/confmetrics"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/email"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/registry"
)

const webhookBodyLimit = 1024 * 1024 // 1 MiB

// Handler verifies and dispatches Stripe webhook events.
type Handler struct {
	secret    string
	store     *registry.Store
	sender    email.Sender
	emailFrom string
}

type webhookErrorResponse struct {
	Error string `json:"error"`
}

type webhookReceivedResponse struct {
	Received bool `json:"received"`
}

// NewHandler creates a Stripe webhook HTTP handler.
func NewHandler(secret string, store *registry.Store, sender email.Sender, emailFrom string) *Handler {
	return &Handler{
		secret:    secret,
		store:     store,
		sender:    sender,
		emailFrom: emailFrom,
	}
}

// ServeHTTP verifies the Stripe signature and dispatches the event.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	eventType := "unknown"
	status := http.StatusOK
	defer func() {
		confmetrics.WebhookRequestsTotal.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
		confmetrics.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}()

	if r.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		writeJSON(w, http.StatusMethodNotAllowed, webhookErrorResponse{Error: "method not allowed"})
		return
	}
	if strings.TrimSpace(h.secret) == "" {
		status = http.StatusServiceUnavailable
		writeJSON(w, http.StatusServiceUnavailable, webhookErrorResponse{Error: "webhook secret not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		status = http.StatusBadRequest
		writeJSON(w, http.StatusBadRequest, webhookErrorResponse{Error: "failed to read request body"})
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		status = http.StatusBadRequest
		writeJSON(w, http.StatusBadRequest, webhookErrorResponse{Error: "missing Stripe signature"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		status = http.StatusBadRequest
		writeJSON(w, http.StatusBadRequest, webhookErrorResponse{Error: "invalid Stripe signature"})
		return
	}
	eventType = string(event.Type)

	if err := h.handleEvent(r.Context(), &event); err != nil {
		log.Error().Err(err).
			Str("event_id", event.ID).
			Str("type", string(event.Type)).
			Msg("Stripe webhook processing failed")
		status = http.StatusInternalServerError
		writeJSON(w, http.StatusInternalServerError, webhookErrorResponse{Error: "processing failed"})
		return
	}

	status = http.StatusOK
	writeJSON(w, http.StatusOK, webhookReceivedResponse{Received: true})
}

func (h *Handler) handleEvent(ctx context.Context, event *stripelib.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout.session: %w", err)
		}
		return h.handleCheckoutCompleted(ctx, session)

	case "checkout.session.expired":
		var session CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout.session: %w", err)
		}
		return h.handleCheckoutExpired(ctx, session)

	default:
		log.Info().
			Str("type", string(event.Type)).
			Str("event_id", event.ID).
			Msg("Stripe webhook ignored (unhandled type)")
		return nil
	}
}

func (h *Handler) handleCheckoutCompleted(ctx context.Context, session CheckoutSession) error {
	ticket, err := h.lookupTicket(session)
	if err != nil {
		return err
	}
	if ticket == nil {
		return fmt.Errorf("no ticket linked to checkout session %q", session.ID)
	}

	if ticket.Status == registry.TicketStatusPaid {
		log.Info().Str("ticket_id", ticket.ID).Msg("Checkout completed for already-paid ticket, skipping")
		return nil
	}

	if err := h.store.UpdateTicketStatus(ticket.ID, registry.TicketStatusPaid); err != nil {
		return fmt.Errorf("mark ticket paid: %w", err)
	}

	log.Info().
		Str("ticket_id", ticket.ID).
		Str("session_id", session.ID).
		Str("kind", string(ticket.Kind)).
		Msg("Ticket paid via checkout")

	h.sendConfirmation(ctx, ticket, session)
	return nil
}

func (h *Handler) handleCheckoutExpired(_ context.Context, session CheckoutSession) error {
	ticket, err := h.lookupTicket(session)
	if err != nil {
		return err
	}
	if ticket == nil || ticket.Status != registry.TicketStatusReserved {
		// Nothing to release.
		return nil
	}

	if err := h.store.UpdateTicketStatus(ticket.ID, registry.TicketStatusCanceled); err != nil {
		return fmt.Errorf("release reserved ticket: %w", err)
	}
	log.Info().
		Str("ticket_id", ticket.ID).
		Str("session_id", session.ID).
		Msg("Checkout expired, reservation released")
	return nil
}

// lookupTicket finds the ticket behind a checkout session, preferring the
// stored session link and falling back to the ticket_id metadata stamped at
// session creation.
func (h *Handler) lookupTicket(session CheckoutSession) (*registry.Ticket, error) {
	if session.ID != "" {
		ticket, err := h.store.GetTicketByStripeSession(session.ID)
		if err != nil {
			return nil, fmt.Errorf("lookup ticket by session: %w", err)
		}
		if ticket != nil {
			return ticket, nil
		}
	}
	if ticketID := strings.TrimSpace(session.Metadata["ticket_id"]); ticketID != "" {
		ticket, err := h.store.GetTicket(ticketID)
		if err != nil {
			return nil, fmt.Errorf("lookup ticket by metadata: %w", err)
		}
		return ticket, nil
	}
	return nil, nil
}

func (h *Handler) sendConfirmation(ctx context.Context, ticket *registry.Ticket, session CheckoutSession) {
	if h.sender == nil {
		return
	}

	to := ticket.Email
	if to == "" {
		to = session.CustomerDetails.Email
	}
	if to == "" {
		to = session.CustomerEmail
	}
	if to == "" {
		log.Warn().Str("ticket_id", ticket.ID).Msg("No email address for ticket confirmation")
		return
	}

	html, text, err := email.RenderTicketConfirmation(email.TicketConfirmationData{
		AttendeeName: ticket.AttendeeName,
		TicketID:     ticket.ID,
	})
	if err != nil {
		log.Error().Err(err).Str("ticket_id", ticket.ID).Msg("Render ticket confirmation failed")
		return
	}

	msg := email.Message{
		From:    h.emailFrom,
		To:      to,
		Subject: "Your ZurichJS Conference 2026 ticket",
		HTML:    html,
		Text:    text,
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		// Confirmation failures must not fail the webhook: Stripe would
		// redeliver and re-run an already-applied transition.
		confmetrics.EmailsSentTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("ticket_id", ticket.ID).Msg("Ticket confirmation email failed")
		return
	}
	confmetrics.EmailsSentTotal.WithLabelValues("sent").Inc()
}

// CheckoutSession is a minimal representation of a Stripe checkout.session
// event payload.
type CheckoutSession struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer_details"`
	AmountTotal int64             `json:"amount_total"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata"`
}

func writeJSON[T any](w http.ResponseWriter, status int, v T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("stripeevents: encode webhook response")
	}
}
