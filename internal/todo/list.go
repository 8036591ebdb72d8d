// Package todo holds the to-do list stores the view layer talks to.
//
// Local keeps items in memory in insertion order and applies every
// mutation synchronously. Synced is a read-projection of a document
// collection: mutations are sent to a store.Store and become visible only
// when the next snapshot arrives.
package todo

import (
	"errors"

	"todolist/internal/models"
)

// ErrClosed is returned when activating a list that has been closed.
var ErrClosed = errors.New("list closed")

// List is the set of operations the view layer forwards user intents to.
//
// Watch callbacks run while the list holds its lock and must not call back
// into the list.
type List interface {
	// Add appends an item with the given text. Blank text is ignored and
	// reported as false.
	Add(text string) bool
	Delete(id string)
	ToggleComplete(id string)

	// StartEdit puts id in edit mode with text in the edit buffer,
	// abandoning any other edit in progress.
	StartEdit(id, text string)
	// SaveEdit writes the edit buffer into the item being edited. It
	// returns false when id is not in edit mode or the buffer is blank.
	SaveEdit(id string) bool
	CancelEdit()

	Items() []models.Item
	Editing() (id, text string, ok bool)
	Watch(fn func(items []models.Item)) (cancel func())
}

// editState is the single edit slot shared by both list variants.
type editState struct {
	active bool
	id     string
	text   string
	// seq changes on every StartEdit so a late save result can tell
	// whether the edit it belongs to is still current.
	seq uint64
}

func (e *editState) start(id, text string) {
	e.seq++
	e.active = true
	e.id = id
	e.text = text
}

func (e *editState) clear() {
	e.active = false
	e.id = ""
	e.text = ""
}

// saveable reports whether id is being edited with a non-blank buffer.
func (e *editState) saveable(id string) bool {
	if !e.active || e.id != id {
		return false
	}
	return models.ValidateText(e.text) == nil
}

type watchers struct {
	next int
	fns  map[int]func([]models.Item)
}

func (w *watchers) add(fn func([]models.Item)) int {
	if w.fns == nil {
		w.fns = make(map[int]func([]models.Item))
	}
	w.next++
	w.fns[w.next] = fn
	return w.next
}

func (w *watchers) remove(id int) {
	delete(w.fns, id)
}

func (w *watchers) notify(items []models.Item) {
	for _, fn := range w.fns {
		fn(models.Clone(items))
	}
}
