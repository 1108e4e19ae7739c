package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogNotifier is the dev/test fallback used when email dispatch is disabled.
// It records the would-be send and always succeeds.
type LogNotifier struct{}

// Compile-time check: LogNotifier implements Notifier.
var _ Notifier = LogNotifier{}

// Send implements Notifier.
func (LogNotifier) Send(_ context.Context, c Confirmation) error {
	log.Info().
		Str("email", c.Email).
		Str("form_type", c.FormType).
		Str("destination", c.Destination).
		Msg("notification dispatch disabled; confirmation not sent")
	return nil
}
