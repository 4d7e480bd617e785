// Package metadata merges thumbnail references into product records.
package metadata

import (
	"context"
	"errors"
)

// FieldImageURL is the record field that holds the processed image URL.
const FieldImageURL = "ImageUrl"

// ErrRecordNotFound is returned when the record to merge into does not exist.
var ErrRecordNotFound = errors.New("metadata record not found")

// Key addresses a record by its two-part composite key.
type Key struct {
	PartitionKey string
	RowKey       string
}

// Store merge-updates existing records.
type Store interface {
	// Merge sets fields on the record at key, leaving other fields untouched.
	// The record is neither read first nor created.
	Merge(ctx context.Context, key Key, fields map[string]string) error
	Close() error
}
