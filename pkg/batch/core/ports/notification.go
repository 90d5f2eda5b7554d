package ports

import (
	"context"
)

// Notifier is an abstract interface for delivering the completion report to
// an external channel.
type Notifier interface {
	// Deliver sends one report. Delivery is fire-and-forget from the core's
	// point of view: the orchestrator logs a failed delivery but never treats
	// it as run failure.
	Deliver(ctx context.Context, subject, body string) error
}
