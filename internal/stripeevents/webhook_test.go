package stripeevents

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	stripewebhook "github.com/stripe/stripe-go/v82/webhook"

	"github.com/zurich-js/zurichjs-conf-sub007/internal/email"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/registry"
)

const testSecret = "whsec_test_secret"

func newTestStore(t *testing.T) *registry.Store {
	t.Helper()
	s, err := registry.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func signedWebhookRequest(t *testing.T, secret, payload string) *http.Request {
	t.Helper()

	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func checkoutEventJSON(eventType, sessionID string) string {
	return fmt.Sprintf(`{"id":"evt_1","object":"event","type":%q,"data":{"object":{"id":%q,"mode":"payment","customer_details":{"email":"dev@example.ch"}}}}`, eventType, sessionID)
}

func TestWebhook_RejectsWrongMethod(t *testing.T) {
	h := NewHandler(testSecret, newTestStore(t), nil, "")

	req := httptest.NewRequest(http.MethodGet, "/api/stripe/webhook", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestWebhook_UnconfiguredSecret(t *testing.T) {
	h := NewHandler("", newTestStore(t), nil, "")

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestWebhook_MissingSignature(t *testing.T) {
	h := NewHandler(testSecret, newTestStore(t), nil, "")

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestWebhook_InvalidSignature(t *testing.T) {
	h := NewHandler(testSecret, newTestStore(t), nil, "")

	req := signedWebhookRequest(t, "whsec_wrong_secret", checkoutEventJSON("checkout.session.completed", "cs_1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestWebhook_CheckoutCompletedMarksTicketPaid(t *testing.T) {
	store := newTestStore(t)
	var sent []email.Message
	capture := captureSender{messages: &sent}
	h := NewHandler(testSecret, store, capture, "tickets@zurichjs.com")

	ticket := &registry.Ticket{
		ID:              registry.NewTicketID(),
		Email:           "dev@example.ch",
		AttendeeName:    "Dana Dev",
		StripeSessionID: "cs_paid_1",
		Price:           45000,
		Currency:        "CHF",
	}
	if err := store.CreateTicket(ticket); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	req := signedWebhookRequest(t, testSecret, checkoutEventJSON("checkout.session.completed", "cs_paid_1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%q", rec.Code, http.StatusOK, rec.Body.String())
	}

	got, err := store.GetTicket(ticket.ID)
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if got.Status != registry.TicketStatusPaid {
		t.Fatalf("ticket status = %q, want %q", got.Status, registry.TicketStatusPaid)
	}

	if len(sent) != 1 {
		t.Fatalf("confirmation emails = %d, want 1", len(sent))
	}
	if sent[0].To != "dev@example.ch" {
		t.Fatalf("confirmation sent to %q, want ticket email", sent[0].To)
	}

	// Redelivery of the same event must not send a second confirmation.
	req2 := signedWebhookRequest(t, testSecret, checkoutEventJSON("checkout.session.completed", "cs_paid_1"))
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d, want %d", rec2.Code, http.StatusOK)
	}
	if len(sent) != 1 {
		t.Fatalf("confirmation emails after redelivery = %d, want 1", len(sent))
	}
}

func TestWebhook_CheckoutCompletedUnknownSessionFails(t *testing.T) {
	h := NewHandler(testSecret, newTestStore(t), nil, "")

	req := signedWebhookRequest(t, testSecret, checkoutEventJSON("checkout.session.completed", "cs_missing"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// Failing lets Stripe redeliver once the ticket record exists.
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestWebhook_CheckoutExpiredReleasesReservation(t *testing.T) {
	store := newTestStore(t)
	h := NewHandler(testSecret, store, nil, "")

	ticket := &registry.Ticket{
		ID:              registry.NewTicketID(),
		Email:           "dev@example.ch",
		StripeSessionID: "cs_expired_1",
	}
	if err := store.CreateTicket(ticket); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	req := signedWebhookRequest(t, testSecret, checkoutEventJSON("checkout.session.expired", "cs_expired_1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	got, err := store.GetTicket(ticket.ID)
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if got.Status != registry.TicketStatusCanceled {
		t.Fatalf("ticket status = %q, want %q", got.Status, registry.TicketStatusCanceled)
	}
}

func TestWebhook_IgnoresUnhandledEventTypes(t *testing.T) {
	h := NewHandler(testSecret, newTestStore(t), nil, "")

	req := signedWebhookRequest(t, testSecret, `{"id":"evt_2","object":"event","type":"invoice.created","data":{"object":{}}}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// captureSender records sent messages for assertions.
type captureSender struct {
	messages *[]email.Message
}

func (c captureSender) Send(_ context.Context, msg email.Message) error {
	*c.messages = append(*c.messages, msg)
	return nil
}
