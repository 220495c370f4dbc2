// Package store defines the document store the services run against: a
// schema-less per-key database with point reads and writes, per-document
// change subscriptions and multi-document atomic transactions.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned by RunTransaction once the automatic retry
	// limit is exhausted.
	ErrConflict = errors.New("transaction conflict")
)

// Doc is a raw document snapshot. Version increases monotonically with
// every write to the document and drives both optimistic transactions and
// the ordering guarantee of Subscribe.
type Doc struct {
	ID      string
	Version int64
	Data    json.RawMessage
}

// Decode unmarshals the document body into v.
func (d Doc) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("error decoding document %s: %w", d.ID, err)
	}
	return nil
}

// ArrayUnion and ArrayRemove are field values understood by Update. They
// apply a set union or set difference to an array field without reading
// its current value first, so concurrent edits converge instead of losing
// updates.
type ArrayUnion struct{ Values []string }

type ArrayRemove struct{ Values []string }

// Txn is the handle passed to a RunTransaction function. All reads
// observe a consistent snapshot and all writes commit atomically or not
// at all.
type Txn interface {
	Get(collection, id string) (Doc, error)
	Set(collection, id string, data any) error
	Update(collection, id string, fields map[string]any) error
	Delete(collection, id string) error
}

type Store interface {
	Get(ctx context.Context, collection, id string) (Doc, error)
	Set(ctx context.Context, collection, id string, data any) error
	// Update merges the given fields into an existing document.
	// ArrayUnion and ArrayRemove values apply set semantics to array
	// fields.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]Doc, error)
	// Subscribe registers fn for every subsequent write to the document,
	// delivered in write order. The returned function cancels the
	// subscription.
	Subscribe(collection, id string, fn func(doc Doc, exists bool)) (unsubscribe func())
	// RunTransaction executes fn atomically, retrying a bounded number of
	// times when a concurrent writer invalidates its reads. Nothing is
	// persisted if fn returns an error.
	RunTransaction(ctx context.Context, fn func(txn Txn) error) error
}

// Marshal normalizes a write payload to raw JSON.
func Marshal(data any) (json.RawMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error encoding document: %w", err)
	}
	return raw, nil
}

// MergeFields applies an Update field set on top of an existing raw
// document, honoring ArrayUnion and ArrayRemove values. Shared by the
// store implementations.
func MergeFields(data json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	doc := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("error decoding document for update: %w", err)
		}
	}

	for key, value := range fields {
		switch v := value.(type) {
		case ArrayUnion:
			doc[key] = unionStrings(toStrings(doc[key]), v.Values)
		case ArrayRemove:
			doc[key] = removeStrings(toStrings(doc[key]), v.Values)
		default:
			doc[key] = value
		}
	}

	return json.Marshal(doc)
}

func toStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func unionStrings(existing, add []string) []string {
	seen := make(map[string]struct{}, len(existing))
	out := make([]string, 0, len(existing)+len(add))
	for _, s := range existing {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range add {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func removeStrings(existing, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, s := range remove {
		drop[s] = struct{}{}
	}
	out := make([]string, 0, len(existing))
	for _, s := range existing {
		if _, ok := drop[s]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}
