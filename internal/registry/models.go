package registry

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Tier is a sponsorship package definition. Prices and credits are in cents;
// the add-on credit offsets eligible add-on line items per currency.
type Tier struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	PriceCHF       int64     `json:"price_chf"`
	PriceEUR       int64     `json:"price_eur"`
	AddonCreditCHF int64     `json:"addon_credit_chf"`
	AddonCreditEUR int64     `json:"addon_credit_eur"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Sponsor is a company buying a sponsorship deal.
type Sponsor struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ContactEmail   string    `json:"contact_email"`
	BillingAddress string    `json:"billing_address"`
	VATNumber      string    `json:"vat_number"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DealStatus is the lifecycle state of a sponsorship deal.
type DealStatus string

const (
	DealStatusDraft    DealStatus = "draft"
	DealStatusAgreed   DealStatus = "agreed"
	DealStatusInvoiced DealStatus = "invoiced"
	DealStatusPaid     DealStatus = "paid"
	DealStatusCanceled DealStatus = "canceled"
)

// Deal links a sponsor to a tier in one currency. A deal carries exactly one
// tier_base line item and zero-or-more addon/adjustment items.
type Deal struct {
	ID        string     `json:"id"`
	SponsorID string     `json:"sponsor_id"`
	TierID    string     `json:"tier_id"`
	Currency  string     `json:"currency"`
	Status    DealStatus `json:"status"`
	Notes     string     `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// LineItem is a priced position on a deal. UnitPrice is in cents and may be
// negative for adjustments.
type LineItem struct {
	ID          int64     `json:"id"`
	DealID      string    `json:"deal_id"`
	Type        string    `json:"type"` // tier_base, addon, adjustment
	Description string    `json:"description"`
	UnitPrice   int64     `json:"unit_price"`
	Quantity    int64     `json:"quantity"`
	UsesCredit  bool      `json:"uses_credit"`
	CreatedAt   time.Time `json:"created_at"`
}

// Invoice is a persisted invoice computation for a deal.
type Invoice struct {
	ID            string    `json:"id"`
	DealID        string    `json:"deal_id"`
	Number        string    `json:"number"`
	Currency      string    `json:"currency"`
	Subtotal      int64     `json:"subtotal"`
	CreditApplied int64     `json:"credit_applied"`
	Adjustments   int64     `json:"adjustments"`
	Total         int64     `json:"total"`
	IssuedAt      time.Time `json:"issued_at"`
}

// TicketStatus is the lifecycle state of a conference or workshop ticket.
type TicketStatus string

const (
	TicketStatusReserved TicketStatus = "reserved"
	TicketStatusPaid     TicketStatus = "paid"
	TicketStatusCanceled TicketStatus = "canceled"
)

// TicketKind distinguishes conference admissions from workshop seats.
type TicketKind string

const (
	TicketKindConference TicketKind = "conference"
	TicketKindWorkshop   TicketKind = "workshop"
)

// Ticket is an attendee ticket record. StripeSessionID links the ticket to
// the checkout session that pays for it.
type Ticket struct {
	ID              string       `json:"id"`
	Email           string       `json:"email"`
	AttendeeName    string       `json:"attendee_name"`
	Kind            TicketKind   `json:"kind"`
	WorkshopID      string       `json:"workshop_id,omitempty"`
	Status          TicketStatus `json:"status"`
	StripeSessionID string       `json:"stripe_session_id"`
	Price           int64        `json:"price"`
	Currency        string       `json:"currency"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// NewDealID generates a deal identifier.
func NewDealID() string {
	return uuid.NewString()
}

// NewSponsorID generates a sponsor identifier.
func NewSponsorID() string {
	return uuid.NewString()
}

// NewTicketID generates a sortable ticket identifier.
func NewTicketID() string {
	return ulid.Make().String()
}

// NewInvoiceID generates a sortable invoice identifier.
func NewInvoiceID() string {
	return ulid.Make().String()
}
