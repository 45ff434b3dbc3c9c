// Package abstractions defines the key-value store contract the entity
// repositories are built on. The table is flat: heterogeneous rows located by
// a composite (partition key, sort key) pair, with prefix queries over the
// sort key as the only scan primitive.
package abstractions

import "context"

// Key locates a single row.
type Key struct {
	PK string
	SK string
}

// Store is the key-value table adapter. Items are structs marshalable by the
// DynamoDB attributevalue conventions; out arguments are pointers the
// implementation unmarshals into.
//
// Absence is never an error on reads or deletes. Update is the one operation
// that fails on a missing row, so callers can tell "merged nothing" from
// "does not exist". Each Update applies all of its fields atomically to
// exactly one row.
type Store interface {
	// Put writes an item, overwriting any existing row with the same key.
	Put(ctx context.Context, item any) error

	// PutNew writes an item only if no row with the same key exists.
	PutNew(ctx context.Context, item any) error

	// Get reads one row into out. The bool reports whether the row existed.
	Get(ctx context.Context, pk, sk string, out any) (bool, error)

	// Query reads all rows in a partition whose sort key starts with
	// skPrefix into out, a pointer to a slice. Order is store-native;
	// callers that need an ordering sort themselves.
	Query(ctx context.Context, pk, skPrefix string, out any) error

	// Update merges fields into an existing row and unmarshals the resulting
	// row into out. A missing row yields a not-found error.
	Update(ctx context.Context, pk, sk string, fields map[string]any, out any) error

	// Delete removes a row. Deleting an absent row is a no-op.
	Delete(ctx context.Context, pk, sk string) error

	// BatchDelete removes many rows. Absent rows are ignored.
	BatchDelete(ctx context.Context, keys []Key) error
}
