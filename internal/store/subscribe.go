package store

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"todolist/internal/models"
)

type subscription struct {
	id         uint64
	collection string
	order      OrderBy
	fn         SnapshotFunc
	closed     atomic.Bool
}

// subscribers tracks live queries. Delivery is serialised so snapshots
// reach every subscriber in commit order.
type subscribers struct {
	logger *zap.Logger

	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]*subscription

	deliverMu sync.Mutex
}

type listFunc func(ctx context.Context, collection string, order OrderBy) ([]models.Item, error)

func newSubscribers(logger *zap.Logger) *subscribers {
	return &subscribers{
		logger: logger,
		byID:   make(map[uint64]*subscription),
	}
}

func (s *subscribers) add(collection string, order OrderBy, fn SnapshotFunc) *subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sub := &subscription{
		id:         s.nextID,
		collection: collection,
		order:      order,
		fn:         fn,
	}
	s.byID[sub.id] = sub

	s.logger.Debug("subscription added",
		zap.Uint64("subscription", sub.id),
		zap.String("collection", collection))
	return sub
}

func (s *subscribers) remove(sub *subscription) {
	if sub.closed.Swap(true) {
		return
	}

	s.mu.Lock()
	delete(s.byID, sub.id)
	s.mu.Unlock()

	s.logger.Debug("subscription removed", zap.Uint64("subscription", sub.id))
}

func (s *subscribers) forCollection(collection string) []*subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*subscription
	for _, sub := range s.byID {
		if sub.collection == collection {
			out = append(out, sub)
		}
	}
	return out
}

func (s *subscribers) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *subscribers) closeAll() {
	s.mu.Lock()
	subs := make([]*subscription, 0, len(s.byID))
	for _, sub := range s.byID {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		s.remove(sub)
	}
}

// deliver queries each distinct ordering once and hands every open
// subscription its own copy of the snapshot.
func (s *subscribers) deliver(ctx context.Context, subs []*subscription, list listFunc) error {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	type key struct {
		collection string
		order      OrderBy
	}
	snapshots := make(map[key][]models.Item)

	for _, sub := range subs {
		if sub.closed.Load() {
			continue
		}

		k := key{sub.collection, sub.order}
		items, ok := snapshots[k]
		if !ok {
			var err error
			items, err = list(ctx, sub.collection, sub.order)
			if err != nil {
				return err
			}
			snapshots[k] = items
		}

		if sub.closed.Load() {
			continue
		}
		sub.fn(models.Clone(items))
	}

	return nil
}
