package todo

import (
	"context"
	"strconv"
	"sync"

	"todolist/internal/models"
	"todolist/internal/store"
)

// fakeStore is an in-memory store.Store. With manual set, snapshots are
// queued until release is called so tests can observe the projection
// before the round trip completes.
type fakeStore struct {
	mu      sync.Mutex
	items   []models.Item
	lastID  int
	subs    map[int]store.SnapshotFunc
	lastSub int
	pending int

	manual       bool
	failWith     error
	subscribeErr error

	creates, updates, deletes int
	lastPatch                 models.Patch
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{subs: make(map[int]store.SnapshotFunc)}
}

func (f *fakeStore) CreateItem(_ context.Context, _ string, item models.Item) (string, error) {
	f.mu.Lock()
	f.creates++
	if f.failWith != nil {
		f.mu.Unlock()
		return "", f.failWith
	}
	f.lastID++
	item.ID = "doc-" + strconv.Itoa(f.lastID)
	// Newest first.
	f.items = append([]models.Item{item}, f.items...)
	f.mu.Unlock()

	f.publish()
	return item.ID, nil
}

func (f *fakeStore) UpdateItem(_ context.Context, _ string, id string, patch models.Patch) error {
	f.mu.Lock()
	f.updates++
	f.lastPatch = patch
	if f.failWith != nil {
		f.mu.Unlock()
		return f.failWith
	}
	found := false
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i] = patch.Apply(f.items[i])
			found = true
		}
	}
	f.mu.Unlock()

	if !found {
		return store.ErrNotFound
	}
	f.publish()
	return nil
}

func (f *fakeStore) DeleteItem(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	f.deletes++
	if f.failWith != nil {
		f.mu.Unlock()
		return f.failWith
	}
	kept := f.items[:0:0]
	for _, item := range f.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	f.items = kept
	f.mu.Unlock()

	f.publish()
	return nil
}

func (f *fakeStore) ListItems(context.Context, string, store.OrderBy) ([]models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.Clone(f.items), nil
}

func (f *fakeStore) Subscribe(_ context.Context, _ string, _ store.OrderBy, fn store.SnapshotFunc) (func(), error) {
	f.mu.Lock()
	if f.subscribeErr != nil {
		f.mu.Unlock()
		return nil, f.subscribeErr
	}
	f.lastSub++
	id := f.lastSub
	f.subs[id] = fn
	items := models.Clone(f.items)
	f.mu.Unlock()

	fn(items)

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) publish() {
	f.mu.Lock()
	if f.manual {
		f.pending++
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	f.deliver()
}

// release delivers a snapshot if any write has been held back.
func (f *fakeStore) release() {
	f.mu.Lock()
	held := f.pending > 0
	f.pending = 0
	f.mu.Unlock()
	if held {
		f.deliver()
	}
}

// deliver sends the current contents to every subscriber.
func (f *fakeStore) deliver() {
	f.mu.Lock()
	fns := make([]store.SnapshotFunc, 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	items := models.Clone(f.items)
	f.mu.Unlock()

	for _, fn := range fns {
		fn(models.Clone(items))
	}
}

func (f *fakeStore) activeSubscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeStore) counts() (creates, updates, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.updates, f.deletes
}

func (f *fakeStore) setManual(manual bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manual = manual
}

func (f *fakeStore) setFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}
