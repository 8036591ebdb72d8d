package todo

import (
	"strconv"
	"sync"

	"todolist/internal/models"
)

// Local is an in-memory list. Items keep insertion order and every
// operation takes effect before it returns.
type Local struct {
	mu       sync.Mutex
	items    []models.Item
	lastID   uint64
	edit     editState
	watchers watchers
}

var _ List = (*Local)(nil)

// NewLocal creates an empty in-memory list.
func NewLocal() *Local {
	return &Local{items: []models.Item{}}
}

func (l *Local) Add(text string) bool {
	if models.ValidateText(text) != nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastID++
	l.items = append(l.items, models.Item{
		ID:   strconv.FormatUint(l.lastID, 10),
		Text: text,
	})
	l.watchers.notify(l.items)
	return true
}

func (l *Local) Delete(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := make([]models.Item, 0, len(l.items))
	for _, item := range l.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(l.items) {
		return
	}
	l.items = kept
	l.watchers.notify(l.items)
}

func (l *Local) ToggleComplete(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return
	}
	l.items[i].Completed = !l.items[i].Completed
	l.watchers.notify(l.items)
}

func (l *Local) StartEdit(id, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.edit.start(id, text)
}

func (l *Local) SaveEdit(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.edit.saveable(id) {
		return false
	}

	i := l.indexOf(id)
	if i < 0 {
		// Deleted while being edited; nothing left to write to.
		l.edit.clear()
		return false
	}
	l.items[i].Text = l.edit.text
	l.edit.clear()
	l.watchers.notify(l.items)
	return true
}

func (l *Local) CancelEdit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.edit.clear()
}

func (l *Local) Items() []models.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return models.Clone(l.items)
}

func (l *Local) Editing() (string, string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.edit.id, l.edit.text, l.edit.active
}

// Watch calls fn with the current items now and after every change.
func (l *Local) Watch(fn func(items []models.Item)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.watchers.add(fn)
	fn(models.Clone(l.items))

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.watchers.remove(id)
	}
}

func (l *Local) indexOf(id string) int {
	for i, item := range l.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
