// Package store defines the document store contract the lifecycle
// repositories are written against, plus its Couchbase implementation.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Cas is an opaque document version used for conditional replaces.
type Cas uint64

// Doc is one row of a filtered query: the document id plus its raw body.
type Doc struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"doc"`
}

// Cond is a single query predicate. Op is "=" or "<=".
type Cond struct {
	Field string
	Op    string
	Value interface{}
}

var (
	// ErrNotFound is returned when a document id does not exist.
	ErrNotFound = errors.New("store: document not found")
	// ErrCasMismatch is returned by Replace when the document changed
	// since the Cas was read.
	ErrCasMismatch = errors.New("store: cas mismatch")
	// ErrExists is returned by Insert when the id is already taken.
	ErrExists = errors.New("store: document already exists")
)

// Tx exposes the operations available inside an atomic multi-document
// transaction. All writes commit together or not at all.
type Tx interface {
	Get(collection, id string, out interface{}) error
	Insert(collection, id string, doc interface{}) error
	Replace(collection, id string, doc interface{}) error
	Remove(collection, id string) error
}

// Store is the document store surface the repositories need: point
// reads and writes with Cas, snapshot queries, and atomic transactions.
type Store interface {
	Insert(ctx context.Context, collection, id string, doc interface{}) error
	Get(ctx context.Context, collection, id string, out interface{}) (Cas, error)
	Replace(ctx context.Context, collection, id string, doc interface{}, cas Cas) error
	Remove(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, conds ...Cond) ([]Doc, error)
	InTransaction(ctx context.Context, fn func(tx Tx) error) error
}
