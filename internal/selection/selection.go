// Package selection implements the selection subsystem (spec.md §4.8): it
// tracks selected items by stable id rather than by index, so a selection
// survives reordering, insertion, and removal the way spec.md requires.
// Generalized from the teacher's internal/components/selection.Tracker,
// which pins a single row to a Kubernetes ResourceIdentity (context +
// namespace + name + UID); this version drops the Kubernetes-specific
// identity struct in favor of the engine's own item.Item[T].ID and supports
// both single- and multi-selection instead of the teacher's single-row-only
// model.
package selection

import "sync"

// Mode selects how many items can be selected at once (spec.md §3
// "Selection config").
type Mode int

const (
	ModeNone Mode = iota
	ModeSingle
	ModeMulti
)

// Tracker owns the selected-id set and the row->id map needed to restore a
// selection by identity after the underlying item list changes.
type Tracker struct {
	mu       sync.RWMutex
	mode     Mode
	selected map[string]struct{}
	rowToID  map[int]string
	lastRow  int
}

// New constructs a Tracker in the given mode.
func New(mode Mode) *Tracker {
	return &Tracker{
		mode:     mode,
		selected: make(map[string]struct{}),
		rowToID:  make(map[int]string),
	}
}

// Mode returns the tracker's selection mode.
func (t *Tracker) Mode() Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// SetMode changes the selection mode, clearing the selection if the new
// mode is more restrictive than the current selection allows.
func (t *Tracker) SetMode(mode Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = mode
	if mode == ModeNone {
		t.selected = make(map[string]struct{})
	} else if mode == ModeSingle && len(t.selected) > 1 {
		t.selected = make(map[string]struct{})
	}
}

// SetIndex records the id present at row, used by RestoreByIdentity after a
// data change to relocate selections by id rather than position.
func (t *Tracker) SetIndex(rowToID map[int]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rowToID = make(map[int]string, len(rowToID))
	for k, v := range rowToID {
		t.rowToID[k] = v
	}
}

// Select marks id as selected, respecting the current mode: ModeNone is a
// no-op, ModeSingle replaces any existing selection, ModeMulti adds to it.
func (t *Tracker) Select(row int, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.mode {
	case ModeNone:
		return
	case ModeSingle:
		t.selected = map[string]struct{}{id: {}}
	case ModeMulti:
		t.selected[id] = struct{}{}
	}
	t.lastRow = row
}

// Toggle flips id's selected state, used for multi-select click/space
// handling.
func (t *Tracker) Toggle(row int, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mode == ModeNone {
		return
	}
	if _, ok := t.selected[id]; ok {
		delete(t.selected, id)
		return
	}
	if t.mode == ModeSingle {
		t.selected = make(map[string]struct{})
	}
	t.selected[id] = struct{}{}
	t.lastRow = row
}

// Deselect removes id from the selection.
func (t *Tracker) Deselect(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.selected, id)
}

// Clear empties the selection.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = make(map[string]struct{})
}

// IsSelected reports whether id is currently selected.
func (t *Tracker) IsSelected(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.selected[id]
	return ok
}

// Selected returns the currently selected ids in no particular order.
func (t *Tracker) Selected() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.selected))
	for id := range t.selected {
		out = append(out, id)
	}
	return out
}

// Count returns how many ids are currently selected.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.selected)
}

// RestoreByIdentity looks up a selected id in the current rowToID map (set
// via SetIndex), records its row as LastRow and returns it, or -1 if no
// selected id is present (spec.md §4.8 "selection persists across data
// changes by id, not index"). With several ids selected, which one's row is
// returned is not defined.
func (t *Tracker) RestoreByIdentity() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.selected) == 0 {
		return -1
	}

	for row, id := range t.rowToID {
		if _, ok := t.selected[id]; ok {
			t.lastRow = row
			return row
		}
	}
	return -1
}

// LastRow returns the row most recently passed to Select or Toggle.
func (t *Tracker) LastRow() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastRow
}
