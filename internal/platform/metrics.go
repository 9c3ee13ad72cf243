package platform

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zurich-js/zurichjs-conf-sub007/internal/confmetrics"
	"github.com/zurich-js/zurichjs-conf-sub007/internal/registry"
)

const ticketStateMetricsInterval = 30 * time.Second

func runTicketStateMetrics(ctx context.Context, store *registry.Store) {
	ticker := time.NewTicker(ticketStateMetricsInterval)
	defer ticker.Stop()

	// Prime once at startup so /metrics isn't empty for this gauge.
	updateTicketStateGauges(store)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateTicketStateGauges(store)
		}
	}
}

func updateTicketStateGauges(store *registry.Store) {
	counts, err := store.CountTicketsByStatus()
	if err != nil {
		log.Error().Err(err).Msg("Failed to update ticket state metrics")
		return
	}

	known := []registry.TicketStatus{
		registry.TicketStatusReserved,
		registry.TicketStatusPaid,
		registry.TicketStatusCanceled,
	}

	// Ensure a stable label set even when a state has no rows yet.
	for _, state := range known {
		confmetrics.TicketsByState.WithLabelValues(string(state)).Set(float64(counts[state]))
	}
}
