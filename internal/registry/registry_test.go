package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_TierRoundTrip(t *testing.T) {
	s := newTestStore(t)

	tier := &Tier{
		ID:             "gold",
		Name:           "Gold",
		PriceCHF:       100000,
		PriceEUR:       105000,
		AddonCreditCHF: 15000,
		AddonCreditEUR: 16000,
	}
	require.NoError(t, s.CreateTier(tier))

	got, err := s.GetTier("gold")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Gold", got.Name)
	assert.Equal(t, int64(15000), got.AddonCreditCHF)
	assert.Equal(t, int64(16000), got.AddonCreditEUR)

	missing, err := s.GetTier("platinum")
	require.NoError(t, err)
	assert.Nil(t, missing)

	tiers, err := s.ListTiers()
	require.NoError(t, err)
	assert.Len(t, tiers, 1)
}

func TestStore_DealWithLineItems(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateTier(&Tier{ID: "gold", Name: "Gold", PriceCHF: 100000}))
	sponsor := &Sponsor{ID: NewSponsorID(), Name: "Acme AG", ContactEmail: "billing@acme.ch"}
	require.NoError(t, s.CreateSponsor(sponsor))

	deal := &Deal{ID: NewDealID(), SponsorID: sponsor.ID, TierID: "gold", Currency: "CHF"}
	require.NoError(t, s.CreateDeal(deal))
	assert.Equal(t, DealStatusDraft, deal.Status, "new deals default to draft")

	items := []*LineItem{
		{DealID: deal.ID, Type: "tier_base", Description: "Gold sponsorship", UnitPrice: 100000, Quantity: 1},
		{DealID: deal.ID, Type: "addon", Description: "Workshop slot", UnitPrice: 20000, Quantity: 1, UsesCredit: true},
		{DealID: deal.ID, Type: "adjustment", Description: "Early-bird discount", UnitPrice: -5000, Quantity: 1},
	}
	for _, li := range items {
		require.NoError(t, s.AddLineItem(li))
		assert.NotZero(t, li.ID)
	}

	stored, err := s.ListLineItems(deal.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "tier_base", stored[0].Type)
	assert.True(t, stored[1].UsesCredit)
	assert.Equal(t, int64(-5000), stored[2].UnitPrice)

	require.NoError(t, s.DeleteLineItem(stored[2].ID))
	stored, err = s.ListLineItems(deal.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	require.NoError(t, s.UpdateDealStatus(deal.ID, DealStatusInvoiced))
	got, err := s.GetDeal(deal.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, DealStatusInvoiced, got.Status)

	assert.Error(t, s.UpdateDealStatus("missing", DealStatusPaid))
}

func TestStore_InvoicePersistence(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateTier(&Tier{ID: "gold", Name: "Gold"}))
	sponsor := &Sponsor{ID: NewSponsorID(), Name: "Acme AG"}
	require.NoError(t, s.CreateSponsor(sponsor))
	deal := &Deal{ID: NewDealID(), SponsorID: sponsor.ID, TierID: "gold", Currency: "CHF"}
	require.NoError(t, s.CreateDeal(deal))

	n, err := s.CountInvoices()
	require.NoError(t, err)
	assert.Zero(t, n)

	inv := &Invoice{
		ID:            NewInvoiceID(),
		DealID:        deal.ID,
		Number:        "ZJS-2026-0001",
		Currency:      "CHF",
		Subtotal:      120000,
		CreditApplied: 15000,
		Adjustments:   0,
		Total:         105000,
	}
	require.NoError(t, s.CreateInvoice(inv))

	got, err := s.GetInvoice(inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ZJS-2026-0001", got.Number)
	assert.Equal(t, int64(105000), got.Total)
	assert.False(t, got.IssuedAt.IsZero())

	list, err := s.ListInvoicesByDeal(deal.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	n, err = s.CountInvoices()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Invoice numbers are unique, and the violation is recognizable so
	// callers can pick the next sequence number.
	dup := *inv
	dup.ID = NewInvoiceID()
	err = s.CreateInvoice(&dup)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	dup.Number = "ZJS-2026-0002"
	require.NoError(t, s.CreateInvoice(&dup))
	assert.False(t, IsUniqueViolation(nil))
}

func TestStore_TicketLifecycle(t *testing.T) {
	s := newTestStore(t)

	ticket := &Ticket{
		ID:              NewTicketID(),
		Email:           "dev@example.ch",
		AttendeeName:    "Dana Dev",
		Kind:            TicketKindWorkshop,
		WorkshopID:      "perf-workshop",
		StripeSessionID: "cs_test_123",
		Price:           45000,
		Currency:        "CHF",
	}
	require.NoError(t, s.CreateTicket(ticket))
	assert.Equal(t, TicketStatusReserved, ticket.Status)

	bySession, err := s.GetTicketByStripeSession("cs_test_123")
	require.NoError(t, err)
	require.NotNil(t, bySession)
	assert.Equal(t, ticket.ID, bySession.ID)

	require.NoError(t, s.UpdateTicketStatus(ticket.ID, TicketStatusPaid))
	got, err := s.GetTicket(ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, TicketStatusPaid, got.Status)

	counts, err := s.CountTicketsByStatus()
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[TicketStatusPaid])
	assert.Zero(t, counts[TicketStatusReserved])

	missing, err := s.GetTicketByStripeSession("cs_nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_ListTicketsByStatus(t *testing.T) {
	s := newTestStore(t)

	for _, seed := range []struct {
		email  string
		status TicketStatus
	}{
		{email: "a@example.ch", status: TicketStatusPaid},
		{email: "b@example.ch", status: TicketStatusReserved},
		{email: "c@example.ch", status: TicketStatusPaid},
	} {
		ticket := &Ticket{ID: NewTicketID(), Email: seed.email, Status: seed.status}
		require.NoError(t, s.CreateTicket(ticket))
	}

	paid, err := s.ListTicketsByStatus(TicketStatusPaid)
	require.NoError(t, err)
	require.Len(t, paid, 2)
	emails := []string{paid[0].Email, paid[1].Email}
	assert.ElementsMatch(t, []string{"a@example.ch", "c@example.ch"}, emails)

	canceled, err := s.ListTicketsByStatus(TicketStatusCanceled)
	require.NoError(t, err)
	assert.Empty(t, canceled)
}
