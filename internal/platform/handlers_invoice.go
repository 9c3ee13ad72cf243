package platform

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zurich-js/zurichjs-conf-sub007/internal/billing"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/confmetrics"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/email"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/invoicepdf"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/registry"
)

// invoiceInputs is everything needed to compute and render an invoice for a
// deal, loaded in one pass so generation and the PDF endpoint share the code.
type invoiceInputs struct {
	deal    *registry.Deal
	sponsor *registry.Sponsor
	tier    *registry.Tier
	items   []billing.LineItem
}

func loadInvoiceInputs(store *registry.Store, dealID string) (*invoiceInputs, error) {
	deal, err := store.GetDeal(dealID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, nil
	}

	sponsor, err := store.GetSponsor(deal.SponsorID)
	if err != nil {
		return nil, err
	}
	tier, err := store.GetTier(deal.TierID)
	if err != nil {
		return nil, err
	}
	if sponsor == nil || tier == nil {
		return nil, fmt.Errorf("deal %s references missing sponsor or tier", deal.ID)
	}

	rows, err := store.ListLineItems(deal.ID)
	if err != nil {
		return nil, err
	}
	items := make([]billing.LineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, billing.LineItem{
			Type:        billing.LineItemType(row.Type),
			Description: row.Description,
			UnitPrice:   row.UnitPrice,
			Quantity:    row.Quantity,
			UsesCredit:  row.UsesCredit,
		})
	}

	return &invoiceInputs{deal: deal, sponsor: sponsor, tier: tier, items: items}, nil
}

func (in *invoiceInputs) billingTier() billing.Tier {
	return billing.Tier{
		Name:           in.tier.Name,
		AddonCreditCHF: in.tier.AddonCreditCHF,
		AddonCreditEUR: in.tier.AddonCreditEUR,
	}
}

func (in *invoiceInputs) pdfData(inv *registry.Invoice, totals billing.Totals) invoicepdf.InvoiceData {
	return invoicepdf.InvoiceData{
		Number:      inv.Number,
		IssuedAt:    inv.IssuedAt,
		SponsorName: in.sponsor.Name,
		Address:     in.sponsor.BillingAddress,
		VATNumber:   in.sponsor.VATNumber,
		Currency:    billing.Currency(in.deal.Currency),
		Items:       in.items,
		Totals:      totals,
		TierName:    in.tier.Name,
	}
}

// handleGenerateInvoice computes the totals for a deal, persists the invoice
// and moves the deal to invoiced. The sponsor notification email is best
// effort; a send failure does not fail the request.
func handleGenerateInvoice(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := loadInvoiceInputs(deps.Store, r.PathValue("deal_id"))
		if err != nil {
			log.Error().Err(err).Msg("Load invoice inputs failed")
			confmetrics.InvoicesGeneratedTotal.WithLabelValues("error").Inc()
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if in == nil {
			writeError(w, http.StatusNotFound, "deal not found")
			return
		}
		if in.deal.Status == registry.DealStatusCanceled {
			writeError(w, http.StatusConflict, "deal is canceled")
			return
		}
		if len(in.items) == 0 {
			writeError(w, http.StatusConflict, "deal has no line items")
			return
		}

		currency := billing.Currency(in.deal.Currency)
		totals := billing.ComputeInvoiceTotals(in.items, in.billingTier(), currency)

		count, err := deps.Store.CountInvoices()
		if err != nil {
			confmetrics.InvoicesGeneratedTotal.WithLabelValues("error").Inc()
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		now := time.Now().UTC()
		inv := &registry.Invoice{
			ID:            registry.NewInvoiceID(),
			DealID:        in.deal.ID,
			Currency:      in.deal.Currency,
			Subtotal:      totals.Subtotal,
			CreditApplied: totals.CreditApplied,
			Adjustments:   totals.AdjustmentsTotal,
			Total:         totals.Total,
			IssuedAt:      now,
		}
		// The sequence number comes from a count, so a concurrent generation
		// (or a manually inserted invoice) can collide on the UNIQUE number
		// column. Bump the sequence and retry.
		for attempt := int64(0); ; attempt++ {
			inv.Number = fmt.Sprintf("ZJS-%d-%04d", now.Year(), count+1+attempt)
			err = deps.Store.CreateInvoice(inv)
			if err == nil || !registry.IsUniqueViolation(err) || attempt >= 4 {
				break
			}
		}
		if err != nil {
			log.Error().Err(err).Str("deal_id", in.deal.ID).Msg("Persist invoice failed")
			confmetrics.InvoicesGeneratedTotal.WithLabelValues("error").Inc()
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := deps.Store.UpdateDealStatus(in.deal.ID, registry.DealStatusInvoiced); err != nil {
			log.Error().Err(err).Str("deal_id", in.deal.ID).Msg("Mark deal invoiced failed")
		}

		confmetrics.InvoicesGeneratedTotal.WithLabelValues("generated").Inc()
		log.Info().
			Str("invoice", inv.Number).
			Str("deal_id", in.deal.ID).
			Str("sponsor", in.sponsor.Name).
			Int64("total_cents", totals.Total).
			Msg("Invoice generated")

		if in.sponsor.ContactEmail != "" {
			if pdf, renderErr := deps.PDF.Render(in.pdfData(inv, totals)); renderErr != nil {
				// The email promises the PDF, so don't send without it.
				log.Error().Err(renderErr).Str("invoice", inv.Number).Msg("Render invoice PDF failed, skipping email")
			} else {
				sendInvoiceEmail(r, deps, in, inv, totals, pdf)
			}
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"invoice": inv,
			"totals":  totals,
		})
	}
}

func sendInvoiceEmail(r *http.Request, deps *Deps, in *invoiceInputs, inv *registry.Invoice, totals billing.Totals, pdf []byte) {
	currency := billing.Currency(in.deal.Currency)
	html, text, err := email.RenderInvoiceEmail(email.InvoiceEmailData{
		SponsorName:    in.sponsor.Name,
		InvoiceNumber:  inv.Number,
		TotalFormatted: billing.FormatCurrency(totals.Total, currency),
	})
	if err != nil {
		log.Error().Err(err).Str("invoice", inv.Number).Msg("Render invoice email failed")
		return
	}
	msg := email.Message{
		From:    deps.Config.EmailFrom,
		To:      in.sponsor.ContactEmail,
		Subject: "ZurichJS 2026 sponsorship invoice " + inv.Number,
		HTML:    html,
		Text:    text,
		Attachments: []email.Attachment{
			{Filename: inv.Number + ".pdf", Content: pdf},
		},
	}
	if err := deps.EmailSender.Send(r.Context(), msg); err != nil {
		log.Error().Err(err).Str("invoice", inv.Number).Msg("Send invoice email failed")
		confmetrics.EmailsSentTotal.WithLabelValues("error").Inc()
		return
	}
	confmetrics.EmailsSentTotal.WithLabelValues("sent").Inc()
}

// handleInvoicePDF re-renders a persisted invoice as PDF from the deal's
// current line items.
func handleInvoicePDF(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, err := deps.Store.GetInvoice(r.PathValue("invoice_id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if inv == nil {
			writeError(w, http.StatusNotFound, "invoice not found")
			return
		}

		in, err := loadInvoiceInputs(deps.Store, inv.DealID)
		if err != nil || in == nil {
			log.Error().Err(err).Str("invoice", inv.Number).Msg("Load invoice inputs failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		currency := billing.Currency(in.deal.Currency)
		totals := billing.ComputeInvoiceTotals(in.items, in.billingTier(), currency)

		pdf, err := deps.PDF.Render(in.pdfData(inv, totals))
		if err != nil {
			log.Error().Err(err).Str("invoice", inv.Number).Msg("Render invoice PDF failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", inv.Number+".pdf"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
	}
}
