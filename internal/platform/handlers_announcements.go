package platform

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zurich-js/zurichjs-conf-sub007/internal/email"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/registry"
)

type announcementRequest struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// handleAnnouncement emails all paid attendees. Sends are paced to stay
// under the email provider's request-rate ceiling, so large batches take a
// while; the response reports how many recipients were addressed.
func handleAnnouncement(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req announcementRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		req.Subject = strings.TrimSpace(req.Subject)
		if req.Subject == "" {
			writeError(w, http.StatusBadRequest, "subject is required")
			return
		}
		if strings.TrimSpace(req.HTML) == "" && strings.TrimSpace(req.Text) == "" {
			writeError(w, http.StatusBadRequest, "html or text body is required")
			return
		}

		tickets, err := deps.Store.ListTicketsByStatus(registry.TicketStatusPaid)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// One message per attendee, even when they hold several tickets.
		seen := make(map[string]struct{}, len(tickets))
		var msgs []email.Message
		for _, t := range tickets {
			if _, ok := seen[t.Email]; ok {
				continue
			}
			seen[t.Email] = struct{}{}
			msgs = append(msgs, email.Message{
				From:    deps.Config.EmailFrom,
				To:      t.Email,
				Subject: req.Subject,
				HTML:    req.HTML,
				Text:    req.Text,
			})
		}

		paced := email.NewPacedSender(deps.EmailSender, deps.Config.EmailPacingDelay)
		failed, err := paced.SendBatch(r.Context(), msgs)
		if err != nil {
			log.Warn().Err(err).Int("sent", len(msgs)-failed).Msg("Announcement batch aborted")
			writeError(w, http.StatusInternalServerError, "batch aborted")
			return
		}

		log.Info().
			Str("subject", req.Subject).
			Int("recipients", len(msgs)).
			Int("failed", failed).
			Msg("Announcement sent")
		writeJSON(w, http.StatusOK, map[string]any{
			"recipients": len(msgs),
			"failed":     failed,
		})
	}
}
