package events

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
)

// StartAuditLogger consumes every audit topic and writes a structured log
// line per event. It runs until ctx is cancelled.
func StartAuditLogger(ctx context.Context, sub message.Subscriber, logger *slog.Logger) error {
	for _, topic := range Topics() {
		messages, err := sub.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		go consume(topic, messages, logger)
	}
	return nil
}

func consume(topic string, messages <-chan *message.Message, logger *slog.Logger) {
	for msg := range messages {
		logger.Info("Audit event", "topic", topic, "payload", string(msg.Payload))
		msg.Ack()
	}
}
