package mq

import (
	"context"
	"time"
)

// ObjectCreatedEvent holds the parsed fields of a storage "object created" notification.
type ObjectCreatedEvent struct {
	EventName   string
	Container   string
	Key         string // URL-decoded object name within the container
	Size        int64
	ContentType string
	URL         string
	EventTime   time.Time
}

// ObjectEventHandler is the business-logic callback injected into the consumer.
type ObjectEventHandler interface {
	HandleObjectCreated(ctx context.Context, event *ObjectCreatedEvent) error
}

// ObjectEventConsumer abstracts the Kafka consumer for storage notifications.
type ObjectEventConsumer interface {
	Start(ctx context.Context) error
	Close() error
}
