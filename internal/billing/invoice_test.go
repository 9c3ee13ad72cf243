package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeInvoiceTotals_CreditOffsetsEligibleAddons(t *testing.T) {
	items := []LineItem{
		{Type: LineItemTierBase, Description: "Gold sponsorship", UnitPrice: 100000, Quantity: 1},
		{Type: LineItemAddon, Description: "Workshop slot", UnitPrice: 20000, Quantity: 1, UsesCredit: true},
	}
	tier := Tier{Name: "Gold", AddonCreditCHF: 15000}

	totals := ComputeInvoiceTotals(items, tier, CurrencyCHF)

	assert.Equal(t, int64(100000), totals.TierBase)
	assert.Equal(t, int64(20000), totals.AddonTotal)
	assert.Equal(t, int64(20000), totals.CreditableAddons)
	assert.Equal(t, int64(15000), totals.CreditApplied)
	assert.Equal(t, int64(120000), totals.Subtotal)
	assert.Equal(t, int64(105000), totals.Total)
}

func TestComputeInvoiceTotals_NegativeTotalClampsToZero(t *testing.T) {
	items := []LineItem{
		{Type: LineItemTierBase, Description: "Community sponsorship", UnitPrice: 10000, Quantity: 1},
		{Type: LineItemAdjustment, Description: "Goodwill discount", UnitPrice: -20000, Quantity: 1},
	}

	totals := ComputeInvoiceTotals(items, Tier{Name: "Community"}, CurrencyCHF)

	assert.Equal(t, int64(10000), totals.Subtotal)
	assert.Equal(t, int64(-20000), totals.AdjustmentsTotal)
	assert.Equal(t, int64(0), totals.Total, "negative totals must clamp to zero")
}

func TestComputeInvoiceTotals_CreditNeverExceedsCreditableAddons(t *testing.T) {
	items := []LineItem{
		{Type: LineItemTierBase, UnitPrice: 50000, Quantity: 1},
		{Type: LineItemAddon, Description: "Extra ticket", UnitPrice: 5000, Quantity: 2, UsesCredit: true},
		{Type: LineItemAddon, Description: "Logo print", UnitPrice: 30000, Quantity: 1, UsesCredit: false},
	}
	tier := Tier{Name: "Silver", AddonCreditCHF: 100000}

	totals := ComputeInvoiceTotals(items, tier, CurrencyCHF)

	// Allowance is huge, but only 10'000 is creditable.
	assert.Equal(t, int64(10000), totals.CreditableAddons)
	assert.Equal(t, int64(10000), totals.CreditApplied)
	assert.Equal(t, int64(80000), totals.Total)
}

func TestComputeInvoiceTotals_CurrencySelectsCreditAllowance(t *testing.T) {
	items := []LineItem{
		{Type: LineItemTierBase, UnitPrice: 100000, Quantity: 1},
		{Type: LineItemAddon, UnitPrice: 20000, Quantity: 1, UsesCredit: true},
	}
	tier := Tier{Name: "Gold", AddonCreditCHF: 15000, AddonCreditEUR: 5000}

	chf := ComputeInvoiceTotals(items, tier, CurrencyCHF)
	eur := ComputeInvoiceTotals(items, tier, CurrencyEUR)

	assert.Equal(t, int64(15000), chf.CreditApplied)
	assert.Equal(t, int64(5000), eur.CreditApplied)
}

func TestComputeInvoiceTotals_QuantityScalesAmounts(t *testing.T) {
	items := []LineItem{
		{Type: LineItemTierBase, UnitPrice: 100000, Quantity: 1},
		{Type: LineItemAddon, Description: "Extra attendee ticket", UnitPrice: 45000, Quantity: 3},
	}

	totals := ComputeInvoiceTotals(items, Tier{Name: "Gold"}, CurrencyCHF)

	assert.Equal(t, int64(135000), totals.AddonTotal)
	assert.Equal(t, int64(235000), totals.Total)
}

func TestComputeInvoiceTotals_NegativeQuantityCountsAsZero(t *testing.T) {
	items := []LineItem{
		{Type: LineItemTierBase, UnitPrice: 100000, Quantity: 1},
		{Type: LineItemAddon, UnitPrice: 20000, Quantity: -2},
	}

	totals := ComputeInvoiceTotals(items, Tier{Name: "Gold"}, CurrencyCHF)

	assert.Equal(t, int64(0), totals.AddonTotal)
	assert.Equal(t, int64(100000), totals.Total)
}

func TestComputeInvoiceTotals_IsPure(t *testing.T) {
	items := []LineItem{
		{Type: LineItemTierBase, UnitPrice: 100000, Quantity: 1},
		{Type: LineItemAddon, UnitPrice: 20000, Quantity: 1, UsesCredit: true},
		{Type: LineItemAdjustment, UnitPrice: -5000, Quantity: 1},
	}
	tier := Tier{Name: "Gold", AddonCreditCHF: 15000}

	first := ComputeInvoiceTotals(items, tier, CurrencyCHF)
	second := ComputeInvoiceTotals(items, tier, CurrencyCHF)

	require.Equal(t, first, second)
}

func TestComputeInvoiceTotals_TotalNeverNegative(t *testing.T) {
	cases := [][]LineItem{
		{{Type: LineItemAdjustment, UnitPrice: -100000, Quantity: 5}},
		{
			{Type: LineItemTierBase, UnitPrice: 1000, Quantity: 1},
			{Type: LineItemAdjustment, UnitPrice: -999999, Quantity: 1},
		},
		{},
		{{Type: LineItemAddon, UnitPrice: -5000, Quantity: 1, UsesCredit: true}},
	}

	for i, items := range cases {
		totals := ComputeInvoiceTotals(items, Tier{Name: "any", AddonCreditCHF: 10000}, CurrencyCHF)
		assert.GreaterOrEqual(t, totals.Total, int64(0), "case %d", i)
		assert.GreaterOrEqual(t, totals.CreditApplied, int64(0), "case %d", i)
	}
}
