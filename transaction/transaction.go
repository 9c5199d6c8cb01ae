package transaction

import (
	"errors"
	"fmt"
)

// ErrDuplicateID is returned when an item with an already present ID is added
var ErrDuplicateID = errors.New("duplicate ID")

// ErrNotFound is returned when an update or delete refers to an item that is not present
var ErrNotFound = errors.New("ID not found")

// Transaction tracks modifications made to a collection of items, starting from
// an initial snapshot, so that only the net changes need to be persisted
type Transaction[T any, ID comparable] struct {
	identify   func(item T) ID
	initialIDs map[ID]struct{}
	current    []T
	index      map[ID]int

	// modified maps every touched ID to whether it is currently deleted.
	// modifiedOrder keeps the order in which IDs were first touched
	modified      map[ID]bool
	modifiedOrder []ID
}

// Actions is the net effect of a Transaction when compared with its initial snapshot
type Actions[T any, ID comparable] struct {
	Add    []T
	Update []T
	Delete []ID
}

// Empty returns whether there is nothing to persist
func (a Actions[T, ID]) Empty() bool {
	return len(a.Add) == 0 && len(a.Update) == 0 && len(a.Delete) == 0
}

// New returns a new Transaction over the initial snapshot
func New[T any, ID comparable](initial []T, identify func(item T) ID) (*Transaction[T, ID], error) {
	t := &Transaction[T, ID]{
		identify:   identify,
		initialIDs: make(map[ID]struct{}, len(initial)),
		current:    make([]T, 0, len(initial)),
		index:      make(map[ID]int, len(initial)),
		modified:   make(map[ID]bool),
	}
	for _, item := range initial {
		id := identify(item)
		if _, present := t.initialIDs[id]; present {
			return nil, fmt.Errorf("transaction.New: %w: %v", ErrDuplicateID, id)
		}
		t.initialIDs[id] = struct{}{}
		t.index[id] = len(t.current)
		t.current = append(t.current, item)
	}
	return t, nil
}

// MustNew is like New but panics if the initial snapshot contains duplicate IDs
func MustNew[T any, ID comparable](initial []T, identify func(item T) ID) *Transaction[T, ID] {
	t, err := New(initial, identify)
	if err != nil {
		panic(err)
	}
	return t
}

// Value returns a copy of the current items. Callers may iterate over it while
// deleting from the transaction
func (t *Transaction[T, ID]) Value() []T {
	c := make([]T, len(t.current))
	copy(c, t.current)
	return c
}

// Len returns the number of current items
func (t *Transaction[T, ID]) Len() int {
	return len(t.current)
}

// Get returns the current item with the given ID
func (t *Transaction[T, ID]) Get(id ID) (T, bool) {
	if i, present := t.index[id]; present {
		return t.current[i], true
	}
	var zero T
	return zero, false
}

// Has returns whether an item with the given ID is currently present
func (t *Transaction[T, ID]) Has(id ID) bool {
	_, present := t.index[id]
	return present
}

// Add appends a new item
func (t *Transaction[T, ID]) Add(item T) error {
	id := t.identify(item)
	if t.Has(id) {
		return fmt.Errorf("Transaction.Add: %w: %v", ErrDuplicateID, id)
	}
	t.index[id] = len(t.current)
	t.current = append(t.current, item)
	t.touch(id, false)
	return nil
}

// Update replaces the current item that has the same ID as item
func (t *Transaction[T, ID]) Update(item T) error {
	id := t.identify(item)
	i, present := t.index[id]
	if !present {
		return fmt.Errorf("Transaction.Update: %w: %v", ErrNotFound, id)
	}
	t.current[i] = item
	t.touch(id, false)
	return nil
}

// Delete removes the item with the given ID
func (t *Transaction[T, ID]) Delete(id ID) error {
	i, present := t.index[id]
	if !present {
		return fmt.Errorf("Transaction.Delete: %w: %v", ErrNotFound, id)
	}
	t.current = append(t.current[:i], t.current[i+1:]...)
	delete(t.index, id)
	for j := i; j < len(t.current); j++ {
		t.index[t.identify(t.current[j])] = j
	}
	t.touch(id, true)
	return nil
}

func (t *Transaction[T, ID]) touch(id ID, deleted bool) {
	if _, seen := t.modified[id]; !seen {
		t.modifiedOrder = append(t.modifiedOrder, id)
	}
	t.modified[id] = deleted
}

// Actions computes the additions, updates and deletions that take the initial
// snapshot to the current state. An item added and later deleted produces no
// action; an item added and later updated is reported as an addition
func (t *Transaction[T, ID]) Actions() Actions[T, ID] {
	actions := Actions[T, ID]{
		Add:    []T{},
		Update: []T{},
		Delete: []ID{},
	}
	for _, item := range t.current {
		id := t.identify(item)
		if _, initial := t.initialIDs[id]; !initial {
			actions.Add = append(actions.Add, item)
		} else if deleted, touched := t.modified[id]; touched && !deleted {
			actions.Update = append(actions.Update, item)
		}
	}
	for _, id := range t.modifiedOrder {
		_, initial := t.initialIDs[id]
		if t.modified[id] && initial {
			actions.Delete = append(actions.Delete, id)
		}
	}
	return actions
}
