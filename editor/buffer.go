package editor

import "sync"

// Buffer is an in-memory Surface fed by a remote editor widget. Front-end
// bindings push the widget's value and selection into it; the assistant
// reads snapshots out of it.
type Buffer struct {
	mu        sync.RWMutex
	value     string
	selection Range
	listeners []func()
}

// NewBuffer creates a buffer holding value with the cursor at the start.
func NewBuffer(value string) *Buffer {
	return &Buffer{
		value:     value,
		selection: Range{Start: Position{Line: 1, Column: 1}, End: Position{Line: 1, Column: 1}},
	}
}

func (b *Buffer) GetValue() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

func (b *Buffer) GetSelection() Range {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.selection
}

func (b *Buffer) GetValueInRange(r Range) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Slice(b.value, r)
}

// Snapshot copies value and selection under one read lock.
func (b *Buffer) Snapshot() Snapshot {
	b.mu.RLock()
	value, sel := b.value, b.selection
	b.mu.RUnlock()
	return snapshotOf(value, sel)
}

// SetValue replaces the document and fires the content-changed listeners
// when the text actually changed.
func (b *Buffer) SetValue(value string) {
	b.Update(&value, nil)
}

// Update applies a new value and selection together, so a snapshot sees
// either both or neither. Nil arguments are left unchanged.
func (b *Buffer) Update(value *string, selection *Range) {
	b.mu.Lock()
	changed := value != nil && b.value != *value
	if value != nil {
		b.value = *value
	}
	if selection != nil {
		b.selection = *selection
	}
	listeners := append([]func(){}, b.listeners...)
	b.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn()
		}
	}
}

// SetSelection moves the selection. A zero-length range places the cursor.
func (b *Buffer) SetSelection(r Range) {
	b.mu.Lock()
	b.selection = r
	b.mu.Unlock()
}

// SetCursor places an empty selection at p.
func (b *Buffer) SetCursor(p Position) {
	b.SetSelection(Range{Start: p, End: p})
}

// OnChange registers fn to run after every content change.
func (b *Buffer) OnChange(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}
