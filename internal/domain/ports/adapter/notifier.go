package adapter

import "context"

// Notifier delivers a credential or confirmation message to a recipient.
// Delivery failure is reported to the caller but, per current policy, never
// rolls back a confirmed payment; it is logged for manual follow-up.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}
