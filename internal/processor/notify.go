package processor

import (
	"context"

	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/thumbnail"
	pkglog "github.com/weiawesome/wes-io-live/thumbnail-service/pkg/log"
	"github.com/weiawesome/wes-io-live/thumbnail-service/pkg/pubsub"
)

// notifyCreated publishes a thumbnail-created event. Publishing is best-effort.
func notifyCreated(ctx context.Context, publisher pubsub.Publisher, container string, res *Result, thumb *thumbnail.Thumbnail) {
	if publisher == nil {
		return
	}
	l := pkglog.Ctx(ctx)

	event, err := pubsub.NewEvent(pubsub.EventThumbnailCreated, container, pubsub.ThumbnailCreatedPayload{
		Variant:      string(res.Variant),
		Source:       res.Source,
		Thumbnail:    res.Output,
		URL:          res.URL,
		ContentType:  thumb.ContentType,
		Size:         thumb.Len(),
		Width:        thumb.Width,
		Height:       thumb.Height,
		PartitionKey: res.PartitionKey,
		RowKey:       res.RowKey,
	})
	if err != nil {
		l.Warn().Err(err).Msg("failed to build thumbnail event")
		return
	}

	if err := publisher.Publish(ctx, pubsub.ThumbnailCreatedChannel(container), event); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldThumbnail, res.Output).Msg("failed to publish thumbnail event")
	}
}
