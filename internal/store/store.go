package store

import (
	"context"
	"encoding/json"
	"time"
)

// DocumentStore is a path-addressed document store with change notification,
// the contract this service assumes of its realtime backing store. Values are
// JSON documents; appended paths hold ordered lists of JSON documents.
type DocumentStore interface {
	// Read decodes the value at path into v, or domain.ErrPathNotFound.
	Read(ctx context.Context, path string, v any) error
	// Write replaces the value at path.
	Write(ctx context.Context, path string, v any) error
	// Merge applies partial fields to the JSON object at path in one call.
	// Missing documents are created from the fields alone.
	Merge(ctx context.Context, path string, fields map[string]any) error
	// Append adds v to the list at path and returns its generated key.
	Append(ctx context.Context, path string, v any) (string, error)
	// Elements returns the list at path in append order; empty if unwritten.
	Elements(ctx context.Context, path string) ([]json.RawMessage, error)
	// Children lists the immediate child segments under path.
	Children(ctx context.Context, path string) ([]string, error)
	// Subscribe delivers a coalesced signal whenever path (or, for list
	// parents, anything under it) changes. cancel must be called to release
	// the subscription.
	Subscribe(path string) (updates <-chan struct{}, cancel func())
	// ServerOffset reports the store's clock minus the local clock.
	ServerOffset(ctx context.Context) (time.Duration, error)
}
