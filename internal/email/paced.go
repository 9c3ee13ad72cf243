package email

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zurich-js/zurichjs-conf-sub007/internal/confmetrics"
)

// defaultPacingDelay keeps batch sends under the provider's
// requests-per-second ceiling (Resend allows 2 rps on the standard plan).
const defaultPacingDelay = 600 * time.Millisecond

// PacedSender wraps a Sender and spaces out batch sends with a fixed delay
// between requests. Single sends pass through unchanged.
type PacedSender struct {
	sender Sender
	delay  time.Duration
}

// NewPacedSender creates a paced sender. A non-positive delay falls back to
// the default pacing.
func NewPacedSender(sender Sender, delay time.Duration) *PacedSender {
	if delay <= 0 {
		delay = defaultPacingDelay
	}
	return &PacedSender{sender: sender, delay: delay}
}

// Send delegates to the wrapped sender.
func (p *PacedSender) Send(ctx context.Context, msg Message) error {
	return p.sender.Send(ctx, msg)
}

// SendBatch sends msgs sequentially, sleeping the configured delay between
// consecutive sends. Individual failures are logged and counted but do not
// abort the batch; the number of failed sends is returned. Cancellation of
// ctx stops the batch between sends.
func (p *PacedSender) SendBatch(ctx context.Context, msgs []Message) (failed int, err error) {
	for i, msg := range msgs {
		if i > 0 {
			select {
			case <-ctx.Done():
				return failed, ctx.Err()
			case <-time.After(p.delay):
			}
		}

		if sendErr := p.sender.Send(ctx, msg); sendErr != nil {
			failed++
			confmetrics.EmailsSentTotal.WithLabelValues("error").Inc()
			log.Warn().Err(sendErr).Str("to", msg.To).Str("subject", msg.Subject).Msg("Batch email send failed")
			continue
		}
		confmetrics.EmailsSentTotal.WithLabelValues("sent").Inc()
	}
	return failed, nil
}
