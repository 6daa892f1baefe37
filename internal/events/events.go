// Package events publishes run lifecycle events to a watermill topic.
//
// Every message carries the JSON-encoded engine.Event as its payload and
// the event type and run ID as metadata, so consumers can route without
// decoding the payload.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/roach88/finflow/internal/engine"
)

// DefaultTopic is used when the configuration names none.
const DefaultTopic = "finflow.runs"

// Metadata keys set on every message.
const (
	MetadataEventType = "event_type"
	MetadataRunID     = "run_id"
)

// Config selects and configures the broker.
type Config struct {
	// Driver is none, gochannel or kafka.
	Driver  string
	Brokers []string
	Topic   string
}

// Publisher implements engine.Publisher over a watermill publisher.
type Publisher struct {
	pub   message.Publisher
	topic string
}

// NewPublisher wraps pub. An empty topic means DefaultTopic.
func NewPublisher(pub message.Publisher, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{pub: pub, topic: topic}
}

// Topic returns the topic events are published to.
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish encodes ev and sends it.
func (p *Publisher) Publish(ctx context.Context, ev engine.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetadataEventType, string(ev.Type))
	msg.Metadata.Set(MetadataRunID, ev.RunID)

	if err := p.pub.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close closes the underlying publisher.
func (p *Publisher) Close() error {
	return p.pub.Close()
}

var _ engine.Publisher = (*Publisher)(nil)

// Decode reads an engine.Event from a message.
func Decode(msg *message.Message) (engine.Event, error) {
	var ev engine.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return ev, fmt.Errorf("decode event %s: %w", msg.UUID, err)
	}
	return ev, nil
}

// Handler consumes one event. A returned error nacks the message.
type Handler func(ctx context.Context, ev engine.Event) error

// Listen subscribes to topic and calls h for every event until ctx is done.
// Messages that fail to decode are acked and dropped.
func Listen(ctx context.Context, sub message.Subscriber, topic string, logger *slog.Logger, h Handler) error {
	if logger == nil {
		logger = slog.Default()
	}
	if topic == "" {
		topic = DefaultTopic
	}
	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	for msg := range messages {
		ev, err := Decode(msg)
		if err != nil {
			logger.WarnContext(ctx, "dropping undecodable event", "error", err)
			msg.Ack()
			continue
		}
		if err := h(msg.Context(), ev); err != nil {
			msg.Nack()
			continue
		}
		msg.Ack()
	}
	return ctx.Err()
}

// Bus is an opened broker: the publisher the engine uses and, when the
// driver supports it, a subscriber for consumers in this process.
type Bus struct {
	Publisher  engine.Publisher
	Subscriber message.Subscriber
	Topic      string

	closers []func() error
}

// Close releases the broker connections.
func (b *Bus) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open connects to the configured broker. The none driver returns a Bus
// whose publisher drops every event.
func Open(cfg Config, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	wmLogger := watermill.NewSlogLogger(logger.With("system", "events"))
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	switch cfg.Driver {
	case "", "none":
		return &Bus{Publisher: discard{}, Topic: topic}, nil

	case "gochannel":
		pubSub := gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer:            1000,
				Persistent:                     false,
				BlockPublishUntilSubscriberAck: false,
			},
			wmLogger,
		)
		return &Bus{
			Publisher:  NewPublisher(pubSub, topic),
			Subscriber: pubSub,
			Topic:      topic,
			closers:    []func() error{pubSub.Close},
		}, nil

	case "kafka":
		if len(cfg.Brokers) == 0 || cfg.Brokers[0] == "" {
			return nil, errors.New("kafka driver requires at least one broker")
		}
		saramaConfig := sarama.NewConfig()
		saramaConfig.Producer.Return.Successes = true
		pub, err := kafka.NewPublisher(
			kafka.PublisherConfig{
				Brokers:               cfg.Brokers,
				Marshaler:             kafka.DefaultMarshaler{},
				OverwriteSaramaConfig: saramaConfig,
				OTELEnabled:           true,
			},
			wmLogger,
		)
		if err != nil {
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		return &Bus{
			Publisher: NewPublisher(pub, topic),
			Topic:     topic,
			closers:   []func() error{pub.Close},
		}, nil

	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

type discard struct{}

func (discard) Publish(context.Context, engine.Event) error { return nil }
