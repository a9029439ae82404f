package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Publisher wraps a watermill publisher with JSON payload marshalling.
// Publishing is best-effort: callers log failures but never fail the
// operation that raised the event.
type Publisher struct {
	pub    message.Publisher
	logger *slog.Logger
}

func NewPublisher(pub message.Publisher, logger *slog.Logger) *Publisher {
	return &Publisher{pub: pub, logger: logger}
}

// NewGoChannelPubSub builds the in-process transport. The returned pubsub
// serves as both publisher and subscriber.
func NewGoChannelPubSub(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
}

// NewKafkaPublisher builds a broker-backed publisher for deployments that
// mirror audit events off the local machine.
func NewKafkaPublisher(brokers []string, logger *slog.Logger) (message.Publisher, error) {
	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	return pub, nil
}

// NewFanOutPublisher publishes every event to all of pubs. Used to mirror
// audit events into Kafka while the in-process subscriber keeps working.
func NewFanOutPublisher(logger *slog.Logger, pubs ...message.Publisher) *Publisher {
	return &Publisher{pub: multiPublisher(pubs), logger: logger}
}

type multiPublisher []message.Publisher

func (m multiPublisher) Publish(topic string, messages ...*message.Message) error {
	var errs []error
	for _, pub := range m {
		if err := pub.Publish(topic, messages...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiPublisher) Close() error {
	var errs []error
	for _, pub := range m {
		if err := pub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Publisher) Publish(topic string, payload any) error {
	if p == nil || p.pub == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := p.pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p == nil || p.pub == nil {
		return nil
	}
	return p.pub.Close()
}
