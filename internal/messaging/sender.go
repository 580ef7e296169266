// Package messaging delivers outbound replies to customers and the owner.
//
// Each platform implements Sender. Dispatcher records every outbound message
// in the log first and then hands it to the platform sender under a bounded
// timeout; delivery failures are logged and counted, never returned.
package messaging

import (
	"context"
	"errors"
)

// Sender delivers one text message to a recipient on a single platform.
type Sender interface {
	Send(ctx context.Context, recipient, text string) error
}

// ErrNotConfigured is returned by senders that lack credentials.
var ErrNotConfigured = errors.New("sender not configured")
