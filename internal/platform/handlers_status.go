package platform

import (
	"net/http"

	"github.com/zurich-js/zurichjs-conf-sub007/internal/registry"
)

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReadyz(store *registry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if err := store.Ping(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func handleStatus(store *registry.Store, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		tickets, err := store.CountTicketsByStatus()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		deals, err := store.ListDeals()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		invoices, err := store.CountInvoices()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"version":  version,
			"tickets":  tickets,
			"deals":    len(deals),
			"invoices": invoices,
		})
	}
}
