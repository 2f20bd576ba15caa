// Package mailbox reads candidate bill emails from an inbox.
package mailbox

import (
	"context"
	"time"
)

// MessageRef identifies one message in a mailbox.
type MessageRef struct {
	ID         string
	ReceivedAt time.Time
}

// Mailbox is an open, authenticated inbox.
type Mailbox interface {
	// SearchSince returns messages received at or after since, oldest first.
	SearchSince(ctx context.Context, since time.Time) ([]MessageRef, error)
	// Fetch returns the full RFC 5322 bytes of a message without marking it seen.
	Fetch(ctx context.Context, ref MessageRef) ([]byte, error)
	Close() error
}

// Dialer opens a Mailbox.
type Dialer interface {
	Dial(ctx context.Context) (Mailbox, error)
}
