// Package eventbus builds the watermill publisher/subscriber pair used for
// round notifications and command messages.
package eventbus

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
)

// StreamName is the JetStream stream holding every spinboard subject.
const StreamName = "SPINBOARD"

// StreamSubjects is the subject filter bound to StreamName.
const StreamSubjects = "spinboard.>"

// EventBus publishes and subscribes to topics.
type EventBus interface {
	message.Publisher
	message.Subscriber
}

// Config selects the bus implementation.
type Config struct {
	NATSEnabled bool
	NATSURL     string
	QueueGroup  string
}

// Bus is the concrete EventBus. Conn is nil for the in-process bus.
type Bus struct {
	message.Publisher
	message.Subscriber

	Conn   *nc.Conn
	logger watermill.LoggerAdapter
}

var _ EventBus = (*Bus)(nil)

// New returns an in-process gochannel bus, or a JetStream bus when NATS is enabled.
func New(cfg Config, logger *slog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logger)
	if !cfg.NATSEnabled {
		return NewInProcess(wmLogger), nil
	}
	return NewJetStream(cfg, wmLogger)
}

// NewInProcess returns a gochannel-backed bus.
func NewInProcess(logger watermill.LoggerAdapter) *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)
	return &Bus{Publisher: pubsub, Subscriber: pubsub, logger: logger}
}

// NewJetStream connects to NATS, ensures the stream exists and builds the
// watermill JetStream publisher and subscriber.
func NewJetStream(cfg Config, logger watermill.LoggerAdapter) (*Bus, error) {
	options := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
		nc.ErrorHandler(func(_ *nc.Conn, s *nc.Subscription, err error) {
			if s != nil {
				logger.Error("Error in subscription", err, watermill.LogFields{
					"subject": s.Subject,
					"queue":   s.Queue,
				})
			} else {
				logger.Error("Error in connection", err, nil)
			}
		}),
	}

	conn, err := nc.Connect(cfg.NATSURL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	if err := ensureStream(conn); err != nil {
		conn.Close()
		return nil, err
	}

	publisher, err := wmnats.NewPublisher(
		wmnats.PublisherConfig{
			URL:         cfg.NATSURL,
			NatsOptions: options,
			Marshaler:   &wmnats.NATSMarshaler{},
			JetStream: wmnats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
			},
		},
		logger,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create Watermill NATS publisher: %w", err)
	}

	queueGroup := cfg.QueueGroup
	if queueGroup == "" {
		queueGroup = "spinboard"
	}

	subscriber, err := wmnats.NewSubscriber(
		wmnats.SubscriberConfig{
			URL:              cfg.NATSURL,
			NatsOptions:      options,
			Unmarshaler:      &wmnats.NATSMarshaler{},
			QueueGroupPrefix: queueGroup,
			SubscribersCount: 1,
			AckWaitTimeout:   30 * time.Second,
			JetStream: wmnats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false,
				DurablePrefix: queueGroup,
			},
		},
		logger,
	)
	if err != nil {
		_ = publisher.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to create Watermill NATS subscriber: %w", err)
	}

	return &Bus{Publisher: publisher, Subscriber: subscriber, Conn: conn, logger: logger}, nil
}

func ensureStream(conn *nc.Conn) error {
	js, err := conn.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.StreamInfo(StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nc.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", StreamName, err)
	}

	if _, err := js.AddStream(&nc.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{StreamSubjects},
		Retention: nc.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
	}); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
	}
	return nil
}

// Close closes the publisher, the subscriber and the NATS connection.
func (b *Bus) Close() error {
	var errs []error
	if err := b.Publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	// gochannel shares one value for both sides; closing twice is a no-op.
	if err := b.Subscriber.Close(); err != nil {
		errs = append(errs, err)
	}
	if b.Conn != nil {
		b.Conn.Close()
	}
	return errors.Join(errs...)
}
