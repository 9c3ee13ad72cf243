// Package billing computes sponsorship invoice totals. All amounts are
// integer minor currency units (cents); nothing here does I/O or fails.
package billing

import (
	"github.com/rs/zerolog/log"
)

// Currency identifies the invoice currency.
type Currency string

const (
	CurrencyCHF Currency = "CHF"
	CurrencyEUR Currency = "EUR"
)

// LineItemType categorizes a sponsorship deal line item. The categories are
// mutually exclusive: a deal carries exactly one tier_base item and
// zero-or-more addon/adjustment items.
type LineItemType string

const (
	LineItemTierBase   LineItemType = "tier_base"
	LineItemAddon      LineItemType = "addon"
	LineItemAdjustment LineItemType = "adjustment"
)

// LineItem is a priced position on a sponsorship deal.
type LineItem struct {
	Type        LineItemType
	Description string
	// UnitPrice is in cents. Adjustments may be negative (discounts).
	UnitPrice int64
	Quantity  int64
	// UsesCredit marks an addon as eligible for the tier's credit allowance.
	UsesCredit bool
}

// Tier carries the per-currency add-on credit allowance of a sponsorship
// package. The credit offsets eligible add-ons only, never the tier base.
type Tier struct {
	Name           string
	AddonCreditCHF int64
	AddonCreditEUR int64
}

// Totals is the result of an invoice computation, all in cents.
type Totals struct {
	TierBase         int64
	AddonTotal       int64
	CreditableAddons int64
	CreditApplied    int64
	AdjustmentsTotal int64
	Subtotal         int64
	Total            int64
}

// ComputeInvoiceTotals derives the amount due for a sponsorship deal from
// its line items and the tier's credit allowance. The computation is pure
// and deterministic. A negative raw total is clamped to zero: that signals
// a data problem upstream (adjustments exceeding the subtotal) worth a
// warning, but must never produce a negative invoice.
func ComputeInvoiceTotals(items []LineItem, tier Tier, currency Currency) Totals {
	var t Totals

	for _, item := range items {
		qty := item.Quantity
		if qty < 0 {
			qty = 0
		}
		amount := item.UnitPrice * qty

		switch item.Type {
		case LineItemTierBase:
			t.TierBase += amount
		case LineItemAddon:
			t.AddonTotal += amount
			if item.UsesCredit {
				t.CreditableAddons += amount
			}
		case LineItemAdjustment:
			t.AdjustmentsTotal += amount
		}
	}

	creditAvailable := tier.AddonCreditCHF
	if currency == CurrencyEUR {
		creditAvailable = tier.AddonCreditEUR
	}
	if creditAvailable < 0 {
		creditAvailable = 0
	}

	t.CreditApplied = min(creditAvailable, t.CreditableAddons)
	if t.CreditApplied < 0 {
		t.CreditApplied = 0
	}

	t.Subtotal = t.TierBase + t.AddonTotal
	t.Total = t.Subtotal - t.CreditApplied + t.AdjustmentsTotal

	if t.Total < 0 {
		log.Warn().
			Str("tier", tier.Name).
			Str("currency", string(currency)).
			Int64("subtotal_cents", t.Subtotal).
			Int64("credit_applied_cents", t.CreditApplied).
			Int64("adjustments_cents", t.AdjustmentsTotal).
			Int64("raw_total_cents", t.Total).
			Msg("Invoice total below zero, clamping to 0 - deal line items need review")
		t.Total = 0
	}

	return t
}
