package mq

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	pkglog "github.com/weiawesome/wes-io-live/thumbnail-service/pkg/log"
)

// Filter selects which notifications reach the handler.
type Filter struct {
	Container  string   // required container / bucket name; empty matches any
	Prefix     string   // required key prefix
	EventNames []string // accepted event names; empty matches any
}

// Match reports whether the event passes the filter.
func (f Filter) Match(ev *ObjectCreatedEvent) bool {
	if len(f.EventNames) > 0 && !slices.Contains(f.EventNames, ev.EventName) {
		return false
	}
	if f.Container != "" && ev.Container != f.Container {
		return false
	}
	return strings.HasPrefix(ev.Key, f.Prefix)
}

// KafkaConsumer implements ObjectEventConsumer using confluent-kafka-go.
type KafkaConsumer struct {
	consumer *kafka.Consumer
	topic    string
	handler  ObjectEventHandler
	filter   Filter
	doneCh   chan struct{}
}

// NewKafkaConsumer creates a new Kafka consumer for storage notifications.
func NewKafkaConsumer(brokers, topic, groupID string, filter Filter, handler ObjectEventHandler) (*KafkaConsumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"group.id":           groupID,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &KafkaConsumer{
		consumer: c,
		topic:    topic,
		handler:  handler,
		filter:   filter,
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins consuming messages from Kafka in a background goroutine.
func (kc *KafkaConsumer) Start(ctx context.Context) error {
	if err := kc.consumer.Subscribe(kc.topic, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", kc.topic, err)
	}

	l := pkglog.L()
	l.Info().Str("topic", kc.topic).Msg("storage event consumer started")

	go kc.consumeLoop(ctx)

	return nil
}

func (kc *KafkaConsumer) consumeLoop(ctx context.Context) {
	l := pkglog.L()
	defer close(kc.doneCh)

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("storage event consumer shutting down")
			return
		default:
			msg, err := kc.consumer.ReadMessage(100 * time.Millisecond)
			if err != nil {
				if kerr, ok := err.(kafka.Error); ok && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				l.Error().Err(err).Msg("kafka consumer error")
				continue
			}
			// Detached context so in-flight processing completes after the shutdown signal.
			dispatch(context.WithoutCancel(ctx), msg.Value, kc.filter, kc.handler)
		}
	}
}

// dispatch parses one message and hands every matching event to the handler.
func dispatch(ctx context.Context, value []byte, filter Filter, handler ObjectEventHandler) int {
	l := pkglog.L()

	events, err := ParseObjectEvents(value)
	if err != nil {
		l.Error().Err(err).Msg("failed to parse storage event")
		return 0
	}

	handled := 0
	for i := range events {
		ev := &events[i]
		if !filter.Match(ev) {
			continue
		}

		evLog := l.With().
			Str(pkglog.FieldRequestID, pkglog.RequestID()).
			Str(pkglog.FieldContainer, ev.Container).
			Str(pkglog.FieldBlob, ev.Key).
			Logger()
		evLog.Info().Int64(pkglog.FieldSize, ev.Size).Msg("received object created event")

		handled++
		if err := handler.HandleObjectCreated(pkglog.WithLogger(ctx, evLog), ev); err != nil {
			evLog.Error().Err(err).Msg("failed to handle object created event")
		}
	}
	return handled
}

// Close waits for the consume loop to drain, then closes the Kafka client.
// ctx must already be cancelled before calling Close.
func (kc *KafkaConsumer) Close() error {
	<-kc.doneCh
	if err := kc.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	return nil
}
