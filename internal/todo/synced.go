package todo

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"todolist/internal/models"
	"todolist/internal/store"
)

// DefaultRequestTimeout bounds each request sent to the store.
const DefaultRequestTimeout = 10 * time.Second

// Synced is a projection of a store collection ordered newest first.
//
// Every mutation is a fire-and-forget request to the store; the projection
// only changes when a snapshot arrives. Failed requests are logged and
// dropped.
type Synced struct {
	store      store.Store
	collection string
	logger     *zap.Logger
	timeout    time.Duration
	now        func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	mu          sync.Mutex
	items       []models.Item
	edit        editState
	gen         uint64
	unsubscribe func()
	closed      bool
	watchers    watchers
}

var _ List = (*Synced)(nil)

// SyncedOption configures a Synced list.
type SyncedOption func(*Synced)

// WithLogger sets the logger failed requests are reported to.
func WithLogger(logger *zap.Logger) SyncedOption {
	return func(s *Synced) { s.logger = logger }
}

// WithRequestTimeout bounds each store request.
func WithRequestTimeout(d time.Duration) SyncedOption {
	return func(s *Synced) { s.timeout = d }
}

// WithClock overrides the clock used for createdAt.
func WithClock(now func() time.Time) SyncedOption {
	return func(s *Synced) { s.now = now }
}

// NewSynced creates a list backed by collection in st. The projection stays
// empty until Activate is called.
func NewSynced(st store.Store, collection string, opts ...SyncedOption) *Synced {
	s := &Synced{
		store:      st,
		collection: collection,
		logger:     zap.NewNop(),
		timeout:    DefaultRequestTimeout,
		now:        time.Now,
		items:      []models.Item{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("collection", collection))
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Activate subscribes to the collection, releasing any earlier
// subscription first. The initial snapshot has been applied when it
// returns without error.
func (s *Synced) Activate(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	prev := s.unsubscribe
	s.unsubscribe = nil
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	if prev != nil {
		prev()
	}

	unsubscribe, err := s.store.Subscribe(ctx, s.collection, store.NewestFirst, func(items []models.Item) {
		s.applySnapshot(gen, items)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.collection, err)
	}

	s.mu.Lock()
	if s.closed || s.gen != gen {
		// Deactivated or re-activated while subscribing.
		s.mu.Unlock()
		unsubscribe()
		return nil
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	s.logger.Debug("subscription active")
	return nil
}

// Deactivate releases the subscription. Snapshots arriving afterwards are
// discarded. The last projection is kept.
func (s *Synced) Deactivate() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.gen++
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
		s.logger.Debug("subscription released")
	}
}

// Close deactivates the list, cancels in-flight requests and waits for
// them to finish. Later mutations are dropped.
func (s *Synced) Close() error {
	s.Deactivate()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.inflight.Wait()
	return nil
}

// Wait blocks until every request issued so far has completed.
func (s *Synced) Wait() {
	s.inflight.Wait()
}

func (s *Synced) applySnapshot(gen uint64, items []models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		return
	}
	if slices.Equal(s.items, items) {
		return
	}
	s.items = items
	s.watchers.notify(s.items)
}

func (s *Synced) Add(text string) bool {
	if models.ValidateText(text) != nil {
		return false
	}

	item := models.Item{Text: text, CreatedAt: s.now()}
	return s.dispatch("create", func(ctx context.Context) error {
		_, err := s.store.CreateItem(ctx, s.collection, item)
		return err
	})
}

func (s *Synced) Delete(id string) {
	s.dispatch("delete", func(ctx context.Context) error {
		return s.store.DeleteItem(ctx, s.collection, id)
	}, zap.String("id", id))
}

// ToggleComplete sends the negation of the completed flag currently in the
// projection. Items missing from the projection are ignored.
func (s *Synced) ToggleComplete(id string) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	next := !s.items[i].Completed
	s.mu.Unlock()

	s.dispatch("toggle", func(ctx context.Context) error {
		return s.store.UpdateItem(ctx, s.collection, id, models.SetCompleted(next))
	}, zap.String("id", id))
}

func (s *Synced) StartEdit(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edit.start(id, text)
}

// SaveEdit sends the edit buffer to the store. Edit mode is left once the
// update succeeds, unless another edit has started in the meantime.
func (s *Synced) SaveEdit(id string) bool {
	s.mu.Lock()
	if !s.edit.saveable(id) {
		s.mu.Unlock()
		return false
	}
	text, seq := s.edit.text, s.edit.seq
	s.mu.Unlock()

	return s.dispatch("edit", func(ctx context.Context) error {
		if err := s.store.UpdateItem(ctx, s.collection, id, models.SetText(text)); err != nil {
			return err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.edit.active && s.edit.seq == seq {
			s.edit.clear()
		}
		return nil
	}, zap.String("id", id))
}

func (s *Synced) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edit.clear()
}

func (s *Synced) Items() []models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Clone(s.items)
}

func (s *Synced) Editing() (string, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edit.id, s.edit.text, s.edit.active
}

// Watch calls fn with the current projection now and after every applied
// snapshot that changed it.
func (s *Synced) Watch(fn func(items []models.Item)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.watchers.add(fn)
	fn(models.Clone(s.items))

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.watchers.remove(id)
	}
}

// dispatch runs req in the background. Failures are logged only.
func (s *Synced) dispatch(op string, req func(ctx context.Context) error, fields ...zap.Field) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("dropping request on closed list", append(fields, zap.String("op", op))...)
		return false
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		if err := req(ctx); err != nil {
			s.logger.Error("sync request failed", append(fields, zap.String("op", op), zap.Error(err))...)
		}
	}()
	return true
}

func (s *Synced) indexOf(id string) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
