package platform

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zurich-js/zurichjs-conf-sub007/internal/registry"
)

func handleListTiers(store *registry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		tiers, err := store.ListTiers()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if tiers == nil {
			tiers = []*registry.Tier{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"tiers": tiers, "count": len(tiers)})
	}
}

type createTierRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PriceCHF       int64  `json:"price_chf"`
	PriceEUR       int64  `json:"price_eur"`
	AddonCreditCHF int64  `json:"addon_credit_chf"`
	AddonCreditEUR int64  `json:"addon_credit_eur"`
}

func handleCreateTier(store *registry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTierRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		req.ID = strings.TrimSpace(req.ID)
		req.Name = strings.TrimSpace(req.Name)
		if req.ID == "" || req.Name == "" {
			writeError(w, http.StatusBadRequest, "id and name are required")
			return
		}

		tier := &registry.Tier{
			ID:             req.ID,
			Name:           req.Name,
			PriceCHF:       req.PriceCHF,
			PriceEUR:       req.PriceEUR,
			AddonCreditCHF: req.AddonCreditCHF,
			AddonCreditEUR: req.AddonCreditEUR,
		}
		if err := store.CreateTier(tier); err != nil {
			log.Error().Err(err).Str("tier_id", req.ID).Msg("Create tier failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, tier)
	}
}

func handleListSponsors(store *registry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sponsors, err := store.ListSponsors()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if sponsors == nil {
			sponsors = []*registry.Sponsor{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"sponsors": sponsors, "count": len(sponsors)})
	}
}

type createSponsorRequest struct {
	Name           string `json:"name"`
	ContactEmail   string `json:"contact_email"`
	BillingAddress string `json:"billing_address"`
	VATNumber      string `json:"vat_number"`
}

func handleCreateSponsor(store *registry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSponsorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		sponsor := &registry.Sponsor{
			ID:             registry.NewSponsorID(),
			Name:           strings.TrimSpace(req.Name),
			ContactEmail:   strings.TrimSpace(req.ContactEmail),
			BillingAddress: strings.TrimSpace(req.BillingAddress),
			VATNumber:      strings.TrimSpace(req.VATNumber),
		}
		if err := store.CreateSponsor(sponsor); err != nil {
			log.Error().Err(err).Msg("Create sponsor failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, sponsor)
	}
}

func handleListDeals(store *registry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		deals, err := store.ListDeals()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if deals == nil {
			deals = []*registry.Deal{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"deals": deals, "count": len(deals)})
	}
}

type createDealRequest struct {
	SponsorID string `json:"sponsor_id"`
	TierID    string `json:"tier_id"`
	Currency  string `json:"currency"`
	Notes     string `json:"notes"`
}

// handleCreateDeal creates a deal and seeds its tier_base line item from the
// tier's per-currency price.
func handleCreateDeal(store *registry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDealRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		currency := strings.ToUpper(strings.TrimSpace(req.Currency))
		if currency == "" {
			currency = "CHF"
		}
		if currency != "CHF" && currency != "EUR" {
			writeError(w, http.StatusBadRequest, "currency must be CHF or EUR")
			return
		}

		sponsor, err := store.GetSponsor(strings.TrimSpace(req.SponsorID))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if sponsor == nil {
			writeError(w, http.StatusNotFound, "sponsor not found")
			return
		}

		tier, err := store.GetTier(strings.TrimSpace(req.TierID))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if tier == nil {
			writeError(w, http.StatusNotFound, "tier not found")
			return
		}

		deal := &registry.Deal{
			ID:        registry.NewDealID(),
			SponsorID: sponsor.ID,
			TierID:    tier.ID,
			Currency:  currency,
			Notes:     strings.TrimSpace(req.Notes),
		}
		if err := store.CreateDeal(deal); err != nil {
			log.Error().Err(err).Msg("Create deal failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		tierPrice := tier.PriceCHF
		if currency == "EUR" {
			tierPrice = tier.PriceEUR
		}
		base := &registry.LineItem{
			DealID:      deal.ID,
			Type:        "tier_base",
			Description: tier.Name + " sponsorship",
			UnitPrice:   tierPrice,
			Quantity:    1,
		}
		if err := store.AddLineItem(base); err != nil {
			log.Error().Err(err).Str("deal_id", deal.ID).Msg("Seed tier_base line item failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, deal)
	}
}

func handleGetDeal(store *registry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deal, err := store.GetDeal(r.PathValue("deal_id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if deal == nil {
			writeError(w, http.StatusNotFound, "deal not found")
			return
		}

		items, err := store.ListLineItems(deal.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if items == nil {
			items = []*registry.LineItem{}
		}
		invoices, err := store.ListInvoicesByDeal(deal.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if invoices == nil {
			invoices = []*registry.Invoice{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"deal":       deal,
			"line_items": items,
			"invoices":   invoices,
		})
	}
}

type addLineItemRequest struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int64  `json:"quantity"`
	UsesCredit  bool   `json:"uses_credit"`
}

func handleAddLineItem(store *registry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deal, err := store.GetDeal(r.PathValue("deal_id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if deal == nil {
			writeError(w, http.StatusNotFound, "deal not found")
			return
		}

		var req addLineItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		itemType := strings.TrimSpace(req.Type)
		if itemType != "addon" && itemType != "adjustment" {
			// A deal has exactly one tier_base item, seeded at creation.
			writeError(w, http.StatusBadRequest, "type must be addon or adjustment")
			return
		}
		if req.Quantity < 0 {
			writeError(w, http.StatusBadRequest, "quantity must not be negative")
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}

		li := &registry.LineItem{
			DealID:      deal.ID,
			Type:        itemType,
			Description: strings.TrimSpace(req.Description),
			UnitPrice:   req.UnitPrice,
			Quantity:    req.Quantity,
			UsesCredit:  req.UsesCredit && itemType == "addon",
		}
		if err := store.AddLineItem(li); err != nil {
			log.Error().Err(err).Str("deal_id", deal.ID).Msg("Add line item failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, li)
	}
}

func handleDeleteLineItem(store *registry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := strconv.ParseInt(r.PathValue("item_id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid item id")
			return
		}

		items, err := store.ListLineItems(r.PathValue("deal_id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		var item *registry.LineItem
		for _, li := range items {
			if li.ID == itemID {
				item = li
				break
			}
		}
		if item == nil {
			writeError(w, http.StatusNotFound, "line item not found")
			return
		}
		if item.Type == "tier_base" {
			writeError(w, http.StatusConflict, "tier_base item cannot be removed")
			return
		}

		if err := store.DeleteLineItem(itemID); err != nil {
			log.Error().Err(err).Int64("item_id", itemID).Msg("Delete line item failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
