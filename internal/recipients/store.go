// Package recipients stores which email addresses receive alerts for
// which machines.
package recipients

import "context"

// Fleet is the machine-ID sentinel for fleet-wide subscriptions.
const Fleet = "all"

// Store is the read/write contract for alert recipients. ListRecipients
// returns the union of the machine's subscribers and the fleet-wide ones.
type Store interface {
	ListRecipients(ctx context.Context, machineID string) ([]string, error)
	Subscribe(ctx context.Context, email, machineID string) error
	Unsubscribe(ctx context.Context, email, machineID string) error
	Close() error
}
