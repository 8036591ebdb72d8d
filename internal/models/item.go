package models

import (
	"errors"
	"strings"
	"time"
)

// ErrTextRequired is returned when an item's text is empty after trimming.
var ErrTextRequired = errors.New("text is required")

// Item represents a single to-do entry.
type Item struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Validate checks that the item has valid field values.
func (i *Item) Validate() error {
	return ValidateText(i.Text)
}

// ValidateText rejects text that is blank after trimming whitespace.
// The text itself is stored untrimmed.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrTextRequired
	}
	return nil
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// IsEmpty returns true if the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Text == nil && p.Completed == nil
}

// Apply returns a copy of item with the patch's fields written over it.
func (p Patch) Apply(item Item) Item {
	if p.Text != nil {
		item.Text = *p.Text
	}
	if p.Completed != nil {
		item.Completed = *p.Completed
	}
	return item
}

// SetText returns a patch that only changes the text.
func SetText(text string) Patch {
	return Patch{Text: &text}
}

// SetCompleted returns a patch that only changes the completed flag.
func SetCompleted(completed bool) Patch {
	return Patch{Completed: &completed}
}

// Clone returns a copy of items that shares no backing array with the input.
func Clone(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
