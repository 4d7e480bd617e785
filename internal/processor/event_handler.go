package processor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/mq"
	pkglog "github.com/weiawesome/wes-io-live/thumbnail-service/pkg/log"
	"github.com/weiawesome/wes-io-live/thumbnail-service/pkg/storage"
)

// ErrForeignContainer is returned for events about a container other than the
// one the handler reads from.
var ErrForeignContainer = errors.New("event is for another container")

// EventHandler implements mq.ObjectEventHandler by fetching the blob named in
// a storage notification and running it through a Processor.
type EventHandler struct {
	source    storage.Storage // reads the uploaded blob
	container string          // container source is scoped to
	processor Processor
}

// NewEventHandler wires a source storage scoped to container to a processor.
func NewEventHandler(source storage.Storage, container string, processor Processor) *EventHandler {
	return &EventHandler{source: source, container: container, processor: processor}
}

// HandleObjectCreated fetches the blob and processes it. Events from other
// containers are rejected, since source would resolve the key in the wrong place.
func (h *EventHandler) HandleObjectCreated(ctx context.Context, event *mq.ObjectCreatedEvent) error {
	if event.Container != h.container {
		return fmt.Errorf("%w: got %q, serving %q", ErrForeignContainer, event.Container, h.container)
	}
	_, err := h.Handle(ctx, event.Container, event.Key)
	return err
}

// Handle reads key from the source storage and runs the processor.
func (h *EventHandler) Handle(ctx context.Context, container, key string) (*Result, error) {
	data, err := h.fetch(ctx, key)
	if err != nil {
		res := &Result{Variant: h.processor.Variant(), Source: key, Stage: StageTriggered}
		res.fail(KindFetch, err)
		l := pkglog.Ctx(ctx).With().Str(pkglog.FieldVariant, string(res.Variant)).Logger()
		return failed(l, res)
	}

	return h.processor.Process(ctx, &Invocation{Container: container, Name: key, Data: data})
}

func (h *EventHandler) fetch(ctx context.Context, key string) ([]byte, error) {
	rc, err := h.source.Read(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read blob body: %w", err)
	}
	return data, nil
}
