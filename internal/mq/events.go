package mq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// s3EventRaw is the S3 / MinIO bucket notification structure.
type s3EventRaw struct {
	Records []struct {
		EventName string    `json:"eventName"`
		EventTime time.Time `json:"eventTime"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key         string `json:"key"`
				Size        int64  `json:"size"`
				ContentType string `json:"contentType"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// eventGridRaw is one Azure Event Grid storage event.
type eventGridRaw struct {
	EventType string    `json:"eventType"`
	Subject   string    `json:"subject"`
	EventTime time.Time `json:"eventTime"`
	Data      struct {
		ContentType   string `json:"contentType"`
		ContentLength int64  `json:"contentLength"`
		URL           string `json:"url"`
	} `json:"data"`
}

// ParseObjectEvents decodes a notification message in either the S3/MinIO
// "Records" shape or the Event Grid array shape.
func ParseObjectEvents(value []byte) ([]ObjectCreatedEvent, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty notification")
	}

	if trimmed[0] == '[' {
		return parseEventGrid(trimmed)
	}
	if trimmed[0] == '{' && bytes.Contains(trimmed, []byte(`"eventType"`)) && !bytes.Contains(trimmed, []byte(`"Records"`)) {
		return parseEventGrid(append(append([]byte{'['}, trimmed...), ']'))
	}
	return parseS3(trimmed)
}

func parseS3(value []byte) ([]ObjectCreatedEvent, error) {
	var raw s3EventRaw
	if err := json.Unmarshal(value, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal s3 event: %w", err)
	}

	events := make([]ObjectCreatedEvent, 0, len(raw.Records))
	for _, rec := range raw.Records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to url-decode key %q: %w", rec.S3.Object.Key, err)
		}
		events = append(events, ObjectCreatedEvent{
			EventName:   rec.EventName,
			Container:   rec.S3.Bucket.Name,
			Key:         key,
			Size:        rec.S3.Object.Size,
			ContentType: rec.S3.Object.ContentType,
			EventTime:   rec.EventTime,
		})
	}
	return events, nil
}

func parseEventGrid(value []byte) ([]ObjectCreatedEvent, error) {
	var raw []eventGridRaw
	if err := json.Unmarshal(value, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event grid event: %w", err)
	}

	events := make([]ObjectCreatedEvent, 0, len(raw))
	for _, ev := range raw {
		container, key, err := splitBlobSubject(ev.Subject)
		if err != nil {
			return nil, err
		}
		events = append(events, ObjectCreatedEvent{
			EventName:   ev.EventType,
			Container:   container,
			Key:         key,
			Size:        ev.Data.ContentLength,
			ContentType: ev.Data.ContentType,
			URL:         ev.Data.URL,
			EventTime:   ev.EventTime,
		})
	}
	return events, nil
}

// splitBlobSubject parses "/blobServices/default/containers/{container}/blobs/{name}".
func splitBlobSubject(subject string) (container, key string, err error) {
	const containersPrefix = "/blobServices/default/containers/"
	rest, ok := strings.CutPrefix(subject, containersPrefix)
	if !ok {
		return "", "", fmt.Errorf("unexpected blob subject: %s", subject)
	}
	container, key, ok = strings.Cut(rest, "/blobs/")
	if !ok || container == "" || key == "" {
		return "", "", fmt.Errorf("unexpected blob subject: %s", subject)
	}
	return container, key, nil
}
