package channel

import (
	"context"

	"github.com/nguyentranbao-ct/chat-console/internal/models"
)

// Channel is a duplex event connection scoped to per-chat subscriptions.
// Implementations deliver events on Events until Close; while disconnected,
// Subscribe fails and delivery is suspended, but REST-based operations keep
// working elsewhere (degraded mode).
type Channel interface {
	Subscribe(ctx context.Context, chatID string) error
	Unsubscribe(ctx context.Context, chatID string) error
	Events() <-chan models.ChannelEvent
	Connected() bool
	Close() error
}
