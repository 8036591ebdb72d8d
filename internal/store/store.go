package store

import (
	"context"
	"errors"
	"fmt"

	"todolist/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist in the collection.
	ErrNotFound = errors.New("not found")
	// ErrInvalidOrder is returned for an OrderBy naming an unknown field.
	ErrInvalidOrder = errors.New("invalid order")
)

// Field names accepted by OrderBy.
const (
	FieldCreatedAt = "createdAt"
	FieldText      = "text"
	FieldCompleted = "completed"
	FieldID        = "id"
)

// OrderBy selects the sort field and direction of a query.
type OrderBy struct {
	Field string
	Desc  bool
}

// NewestFirst orders a collection by descending creation time.
var NewestFirst = OrderBy{Field: FieldCreatedAt, Desc: true}

func (o OrderBy) column() (string, error) {
	switch o.Field {
	case FieldCreatedAt:
		return "created_at", nil
	case FieldText:
		return "text", nil
	case FieldCompleted:
		return "completed", nil
	case FieldID:
		return "id", nil
	default:
		return "", fmt.Errorf("%w: unknown field %q", ErrInvalidOrder, o.Field)
	}
}

// SnapshotFunc receives the complete, ordered contents of a collection.
type SnapshotFunc func(items []models.Item)

// Store defines the document persistence and live query operations the
// synced to-do list depends on.
type Store interface {
	// Document operations
	CreateItem(ctx context.Context, collection string, item models.Item) (string, error)
	UpdateItem(ctx context.Context, collection, id string, patch models.Patch) error
	DeleteItem(ctx context.Context, collection, id string) error
	ListItems(ctx context.Context, collection string, order OrderBy) ([]models.Item, error)

	// Subscribe delivers a snapshot immediately and after every committed
	// write to the collection. The returned func releases the subscription;
	// no new delivery starts once it has returned. fn must not write to
	// the store.
	Subscribe(ctx context.Context, collection string, order OrderBy, fn SnapshotFunc) (func(), error)

	// Lifecycle
	Close() error
}
