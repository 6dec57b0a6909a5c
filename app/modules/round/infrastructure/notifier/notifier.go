// Package roundnotifier publishes round notifications on the event bus.
package roundnotifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/Black-And-White-Club/spinboard/internal/handlerwrapper"
)

// Notifier implements roundservice.Notifier over a watermill publisher.
type Notifier struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// New returns a Notifier publishing through publisher.
func New(publisher message.Publisher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{publisher: publisher, logger: logger}
}

// Notify publishes payload on topic, keeping the correlation id carried by ctx.
func (n *Notifier) Notify(ctx context.Context, topic string, payload any) error {
	msg, err := handlerwrapper.NewMessageFromContext(ctx, handlerwrapper.Result{Topic: topic, Payload: payload})
	if err != nil {
		return err
	}
	if err := n.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	n.logger.DebugContext(ctx, "Published notification",
		"topic", topic,
		"message_id", msg.UUID,
	)
	return nil
}
