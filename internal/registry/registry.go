// Package registry persists the back-office records of the conference
// platform: sponsorship tiers, sponsors, deals and their line items,
// generated invoices, and attendee tickets.
package registry

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// IsUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite exposes constraint errors only through the message.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Store provides CRUD operations over the platform database backed by SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the platform database in dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	dbPath := filepath.Join(dir, "conference.db")
	dsn := dbPath + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
			"foreign_keys(ON)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open platform db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tiers (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		price_chf        INTEGER NOT NULL DEFAULT 0,
		price_eur        INTEGER NOT NULL DEFAULT 0,
		addon_credit_chf INTEGER NOT NULL DEFAULT 0,
		addon_credit_eur INTEGER NOT NULL DEFAULT 0,
		created_at       INTEGER NOT NULL,
		updated_at       INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS sponsors (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		contact_email   TEXT NOT NULL DEFAULT '',
		billing_address TEXT NOT NULL DEFAULT '',
		vat_number      TEXT NOT NULL DEFAULT '',
		created_at      INTEGER NOT NULL,
		updated_at      INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS deals (
		id         TEXT PRIMARY KEY,
		sponsor_id TEXT NOT NULL REFERENCES sponsors(id),
		tier_id    TEXT NOT NULL REFERENCES tiers(id),
		currency   TEXT NOT NULL DEFAULT 'CHF',
		status     TEXT NOT NULL DEFAULT 'draft',
		notes      TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deals_sponsor_id ON deals(sponsor_id);
	CREATE INDEX IF NOT EXISTS idx_deals_status ON deals(status);
	CREATE TABLE IF NOT EXISTS line_items (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		deal_id     TEXT NOT NULL REFERENCES deals(id),
		type        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		unit_price  INTEGER NOT NULL,
		quantity    INTEGER NOT NULL DEFAULT 1,
		uses_credit INTEGER NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_line_items_deal_id ON line_items(deal_id);
	CREATE TABLE IF NOT EXISTS invoices (
		id             TEXT PRIMARY KEY,
		deal_id        TEXT NOT NULL REFERENCES deals(id),
		number         TEXT NOT NULL UNIQUE,
		currency       TEXT NOT NULL,
		subtotal       INTEGER NOT NULL,
		credit_applied INTEGER NOT NULL,
		adjustments    INTEGER NOT NULL,
		total          INTEGER NOT NULL,
		issued_at      INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_invoices_deal_id ON invoices(deal_id);
	CREATE TABLE IF NOT EXISTS tickets (
		id                TEXT PRIMARY KEY,
		email             TEXT NOT NULL,
		attendee_name     TEXT NOT NULL DEFAULT '',
		kind              TEXT NOT NULL DEFAULT 'conference',
		workshop_id       TEXT NOT NULL DEFAULT '',
		status            TEXT NOT NULL DEFAULT 'reserved',
		stripe_session_id TEXT NOT NULL DEFAULT '',
		price             INTEGER NOT NULL DEFAULT 0,
		currency          TEXT NOT NULL DEFAULT 'CHF',
		created_at        INTEGER NOT NULL,
		updated_at        INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
	CREATE INDEX IF NOT EXISTS idx_tickets_stripe_session_id ON tickets(stripe_session_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init platform schema: %w", err)
	}
	return nil
}

// Ping checks database connectivity (used for readiness probes).
func (s *Store) Ping() error {
	return s.db.Ping()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// --- Tiers ---

// CreateTier inserts a new tier record.
func (s *Store) CreateTier(t *Tier) error {
	if t == nil {
		return fmt.Errorf("tier is nil")
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO tiers (id, name, price_chf, price_eur, addon_credit_chf, addon_credit_eur, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.PriceCHF, t.PriceEUR, t.AddonCreditCHF, t.AddonCreditEUR,
		t.CreatedAt.Unix(), t.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create tier: %w", err)
	}
	return nil
}

// GetTier retrieves a tier by ID. Returns (nil, nil) when absent.
func (s *Store) GetTier(id string) (*Tier, error) {
	row := s.db.QueryRow(`SELECT id, name, price_chf, price_eur, addon_credit_chf, addon_credit_eur, created_at, updated_at
		FROM tiers WHERE id = ?`, id)
	return scanTier(row)
}

// ListTiers returns all tiers ordered by price.
func (s *Store) ListTiers() ([]*Tier, error) {
	rows, err := s.db.Query(`SELECT id, name, price_chf, price_eur, addon_credit_chf, addon_credit_eur, created_at, updated_at
		FROM tiers ORDER BY price_chf DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	defer rows.Close()

	var tiers []*Tier
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

// --- Sponsors ---

// CreateSponsor inserts a new sponsor record.
func (s *Store) CreateSponsor(sp *Sponsor) error {
	if sp == nil {
		return fmt.Errorf("sponsor is nil")
	}
	now := time.Now().UTC()
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = now
	}
	sp.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO sponsors (id, name, contact_email, billing_address, vat_number, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sp.ID, sp.Name, sp.ContactEmail, sp.BillingAddress, sp.VATNumber,
		sp.CreatedAt.Unix(), sp.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create sponsor: %w", err)
	}
	return nil
}

// GetSponsor retrieves a sponsor by ID. Returns (nil, nil) when absent.
func (s *Store) GetSponsor(id string) (*Sponsor, error) {
	row := s.db.QueryRow(`SELECT id, name, contact_email, billing_address, vat_number, created_at, updated_at
		FROM sponsors WHERE id = ?`, id)
	return scanSponsor(row)
}

// ListSponsors returns all sponsors ordered by creation time.
func (s *Store) ListSponsors() ([]*Sponsor, error) {
	rows, err := s.db.Query(`SELECT id, name, contact_email, billing_address, vat_number, created_at, updated_at
		FROM sponsors ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sponsors: %w", err)
	}
	defer rows.Close()

	var sponsors []*Sponsor
	for rows.Next() {
		sp, err := scanSponsor(rows)
		if err != nil {
			return nil, err
		}
		sponsors = append(sponsors, sp)
	}
	return sponsors, rows.Err()
}

// --- Deals ---

// CreateDeal inserts a new deal record.
func (s *Store) CreateDeal(d *Deal) error {
	if d == nil {
		return fmt.Errorf("deal is nil")
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = DealStatusDraft
	}

	_, err := s.db.Exec(`
		INSERT INTO deals (id, sponsor_id, tier_id, currency, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.SponsorID, d.TierID, d.Currency, string(d.Status), d.Notes,
		d.CreatedAt.Unix(), d.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create deal: %w", err)
	}
	return nil
}

// GetDeal retrieves a deal by ID. Returns (nil, nil) when absent.
func (s *Store) GetDeal(id string) (*Deal, error) {
	row := s.db.QueryRow(`SELECT id, sponsor_id, tier_id, currency, status, notes, created_at, updated_at
		FROM deals WHERE id = ?`, id)
	return scanDeal(row)
}

// ListDeals returns all deals ordered by creation time.
func (s *Store) ListDeals() ([]*Deal, error) {
	rows, err := s.db.Query(`SELECT id, sponsor_id, tier_id, currency, status, notes, created_at, updated_at
		FROM deals ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	var deals []*Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// UpdateDealStatus transitions a deal to the given status.
func (s *Store) UpdateDealStatus(id string, status DealStatus) error {
	res, err := s.db.Exec(`UPDATE deals SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("update deal status: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("deal %q not found", id)
	}
	return nil
}

// --- Line items ---

// AddLineItem appends a line item to a deal and fills in its generated ID.
func (s *Store) AddLineItem(li *LineItem) error {
	if li == nil {
		return fmt.Errorf("line item is nil")
	}
	if li.CreatedAt.IsZero() {
		li.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.Exec(`
		INSERT INTO line_items (deal_id, type, description, unit_price, quantity, uses_credit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		li.DealID, li.Type, li.Description, li.UnitPrice, li.Quantity, boolToInt(li.UsesCredit),
		li.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("add line item: %w", err)
	}
	li.ID, _ = res.LastInsertId()
	return nil
}

// ListLineItems returns a deal's line items in insertion order.
func (s *Store) ListLineItems(dealID string) ([]*LineItem, error) {
	rows, err := s.db.Query(`SELECT id, deal_id, type, description, unit_price, quantity, uses_credit, created_at
		FROM line_items WHERE deal_id = ? ORDER BY id`, dealID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	var items []*LineItem
	for rows.Next() {
		var li LineItem
		var usesCredit int
		var createdAt int64
		if err := rows.Scan(&li.ID, &li.DealID, &li.Type, &li.Description, &li.UnitPrice, &li.Quantity, &usesCredit, &createdAt); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		li.UsesCredit = usesCredit != 0
		li.CreatedAt = time.Unix(createdAt, 0).UTC()
		items = append(items, &li)
	}
	return items, rows.Err()
}

// DeleteLineItem removes a line item by ID.
func (s *Store) DeleteLineItem(id int64) error {
	res, err := s.db.Exec(`DELETE FROM line_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete line item: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("line item %d not found", id)
	}
	return nil
}

// --- Invoices ---

// CreateInvoice inserts a persisted invoice record.
func (s *Store) CreateInvoice(inv *Invoice) error {
	if inv == nil {
		return fmt.Errorf("invoice is nil")
	}
	if inv.IssuedAt.IsZero() {
		inv.IssuedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO invoices (id, deal_id, number, currency, subtotal, credit_applied, adjustments, total, issued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.DealID, inv.Number, inv.Currency,
		inv.Subtotal, inv.CreditApplied, inv.Adjustments, inv.Total,
		inv.IssuedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// GetInvoice retrieves an invoice by ID. Returns (nil, nil) when absent.
func (s *Store) GetInvoice(id string) (*Invoice, error) {
	row := s.db.QueryRow(`SELECT id, deal_id, number, currency, subtotal, credit_applied, adjustments, total, issued_at
		FROM invoices WHERE id = ?`, id)
	return scanInvoice(row)
}

// ListInvoicesByDeal returns a deal's invoices, newest first.
func (s *Store) ListInvoicesByDeal(dealID string) ([]*Invoice, error) {
	rows, err := s.db.Query(`SELECT id, deal_id, number, currency, subtotal, credit_applied, adjustments, total, issued_at
		FROM invoices WHERE deal_id = ? ORDER BY issued_at DESC`, dealID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// CountInvoices returns the total number of invoices ever issued. Used to
// derive sequential invoice numbers; the store is single-writer.
func (s *Store) CountInvoices() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM invoices`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return n, nil
}

// --- Tickets ---

// CreateTicket inserts a new ticket record.
func (s *Store) CreateTicket(t *Ticket) error {
	if t == nil {
		return fmt.Errorf("ticket is nil")
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = TicketStatusReserved
	}
	if t.Kind == "" {
		t.Kind = TicketKindConference
	}

	_, err := s.db.Exec(`
		INSERT INTO tickets (id, email, attendee_name, kind, workshop_id, status, stripe_session_id, price, currency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Email, t.AttendeeName, string(t.Kind), t.WorkshopID, string(t.Status),
		t.StripeSessionID, t.Price, t.Currency,
		t.CreatedAt.Unix(), t.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

// GetTicket retrieves a ticket by ID. Returns (nil, nil) when absent.
func (s *Store) GetTicket(id string) (*Ticket, error) {
	row := s.db.QueryRow(`SELECT id, email, attendee_name, kind, workshop_id, status, stripe_session_id, price, currency, created_at, updated_at
		FROM tickets WHERE id = ?`, id)
	return scanTicket(row)
}

// GetTicketByStripeSession retrieves the ticket linked to a checkout session.
// Returns (nil, nil) when absent.
func (s *Store) GetTicketByStripeSession(sessionID string) (*Ticket, error) {
	row := s.db.QueryRow(`SELECT id, email, attendee_name, kind, workshop_id, status, stripe_session_id, price, currency, created_at, updated_at
		FROM tickets WHERE stripe_session_id = ?`, sessionID)
	return scanTicket(row)
}

// UpdateTicketStatus transitions a ticket to the given status.
func (s *Store) UpdateTicketStatus(id string, status TicketStatus) error {
	res, err := s.db.Exec(`UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("update ticket status: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("ticket %q not found", id)
	}
	return nil
}

// ListTicketsByStatus returns all tickets in the given lifecycle state,
// oldest first.
func (s *Store) ListTicketsByStatus(status TicketStatus) ([]*Ticket, error) {
	rows, err := s.db.Query(`SELECT id, email, attendee_name, kind, workshop_id, status, stripe_session_id, price, currency, created_at, updated_at
		FROM tickets WHERE status = ? ORDER BY created_at ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// CountTicketsByStatus returns ticket counts keyed by lifecycle state.
func (s *Store) CountTicketsByStatus() (map[TicketStatus]int64, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tickets GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}
	defer rows.Close()

	counts := make(map[TicketStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan ticket count: %w", err)
		}
		counts[TicketStatus(status)] = n
	}
	return counts, rows.Err()
}

// --- scan helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func scanTier(s scanner) (*Tier, error) {
	var t Tier
	var createdAt, updatedAt int64
	err := s.Scan(&t.ID, &t.Name, &t.PriceCHF, &t.PriceEUR, &t.AddonCreditCHF, &t.AddonCreditEUR, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan tier: %w", err)
	}
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &t, nil
}

func scanSponsor(s scanner) (*Sponsor, error) {
	var sp Sponsor
	var createdAt, updatedAt int64
	err := s.Scan(&sp.ID, &sp.Name, &sp.ContactEmail, &sp.BillingAddress, &sp.VATNumber, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan sponsor: %w", err)
	}
	sp.CreatedAt = time.Unix(createdAt, 0).UTC()
	sp.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &sp, nil
}

func scanDeal(s scanner) (*Deal, error) {
	var d Deal
	var status string
	var createdAt, updatedAt int64
	err := s.Scan(&d.ID, &d.SponsorID, &d.TierID, &d.Currency, &status, &d.Notes, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan deal: %w", err)
	}
	d.Status = DealStatus(status)
	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	d.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &d, nil
}

func scanInvoice(s scanner) (*Invoice, error) {
	var inv Invoice
	var issuedAt int64
	err := s.Scan(&inv.ID, &inv.DealID, &inv.Number, &inv.Currency, &inv.Subtotal, &inv.CreditApplied, &inv.Adjustments, &inv.Total, &issuedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	inv.IssuedAt = time.Unix(issuedAt, 0).UTC()
	return &inv, nil
}

func scanTicket(s scanner) (*Ticket, error) {
	var t Ticket
	var kind, status string
	var createdAt, updatedAt int64
	err := s.Scan(&t.ID, &t.Email, &t.AttendeeName, &kind, &t.WorkshopID, &status, &t.StripeSessionID, &t.Price, &t.Currency, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ticket: %w", err)
	}
	t.Kind = TicketKind(kind)
	t.Status = TicketStatus(status)
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
