package pubsub

import "fmt"

// ChannelThumbnailCreated is the channel for thumbnail notifications of one container.
const ChannelThumbnailCreated = "thumbnail:container:%s:created"

// EventThumbnailCreated is published after a thumbnail has been stored.
const EventThumbnailCreated = "thumbnail_created"

// ThumbnailCreatedChannel returns the channel name for a container.
func ThumbnailCreatedChannel(container string) string {
	return fmt.Sprintf(ChannelThumbnailCreated, container)
}

// ThumbnailCreatedPayload describes a stored thumbnail.
type ThumbnailCreatedPayload struct {
	Variant      string `json:"variant"` // "overwrite" or "derived"
	Source       string `json:"source"`
	Thumbnail    string `json:"thumbnail"`
	URL          string `json:"url"`
	ContentType  string `json:"content_type"`
	Size         int    `json:"size"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	PartitionKey string `json:"partition_key,omitempty"`
	RowKey       string `json:"row_key,omitempty"`
}
