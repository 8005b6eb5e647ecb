// Package collection provides the ordered container used for draw piles,
// discard piles, hands and player lists.
package collection

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
)

var (
	// ErrOutOfRange is returned when an index does not address an element.
	ErrOutOfRange = errors.New("index out of range")
	// ErrEmptyContainer is returned when popping from an empty collection.
	ErrEmptyContainer = errors.New("collection is empty")
)

// Collection is an insertion ordered sequence that may hold duplicates.
// Lookups and removals compare with ==, so for pointer element types an
// element is matched by identity and never by an equal-looking sibling.
//
// A Collection is not safe for concurrent use.
type Collection[T comparable] struct {
	items []T
}

// New creates an empty collection with room for capacity elements.
func New[T comparable](capacity int) *Collection[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Collection[T]{items: make([]T, 0, capacity)}
}

// Of creates a collection holding items in order.
func Of[T comparable](items ...T) *Collection[T] {
	c := New[T](len(items))
	c.items = append(c.items, items...)
	return c
}

// Append adds item at the end.
func (c *Collection[T]) Append(item T) {
	c.items = append(c.items, item)
}

// Remove deletes the first occurrence of item, keeping the order of the rest.
// It reports whether anything was removed.
func (c *Collection[T]) Remove(item T) bool {
	idx := c.IndexOf(item)
	if idx < 0 {
		return false
	}
	c.items = slices.Delete(c.items, idx, idx+1)
	return true
}

// Get returns the element at index.
func (c *Collection[T]) Get(index int) (T, error) {
	var zero T
	if index < 0 || index >= len(c.items) {
		return zero, fmt.Errorf("%w: get %d of %d", ErrOutOfRange, index, len(c.items))
	}
	return c.items[index], nil
}

// InsertAt places item at index, shifting later elements back. Index may
// equal Len, which appends.
func (c *Collection[T]) InsertAt(index int, item T) error {
	if index < 0 || index > len(c.items) {
		return fmt.Errorf("%w: insert at %d of %d", ErrOutOfRange, index, len(c.items))
	}
	c.items = slices.Insert(c.items, index, item)
	return nil
}

// ReplaceAt overwrites the element at index.
func (c *Collection[T]) ReplaceAt(index int, item T) error {
	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%w: replace at %d of %d", ErrOutOfRange, index, len(c.items))
	}
	c.items[index] = item
	return nil
}

// PopLast removes and returns the last element.
func (c *Collection[T]) PopLast() (T, error) {
	var zero T
	n := len(c.items)
	if n == 0 {
		return zero, ErrEmptyContainer
	}
	item := c.items[n-1]
	c.items[n-1] = zero
	c.items = c.items[:n-1]
	return item, nil
}

// Last returns the last element without removing it.
func (c *Collection[T]) Last() (T, bool) {
	var zero T
	if len(c.items) == 0 {
		return zero, false
	}
	return c.items[len(c.items)-1], true
}

// Shuffle permutes the elements uniformly at random. A nil source uses the
// package level generator.
func (c *Collection[T]) Shuffle(r *rand.Rand) {
	swap := func(i, j int) { c.items[i], c.items[j] = c.items[j], c.items[i] }
	if r == nil {
		rand.Shuffle(len(c.items), swap)
		return
	}
	r.Shuffle(len(c.items), swap)
}

// IndexOf returns the position of the first occurrence of item, or -1.
func (c *Collection[T]) IndexOf(item T) int {
	return slices.Index(c.items, item)
}

// IndexFunc returns the position of the first element satisfying f, or -1.
func (c *Collection[T]) IndexFunc(f func(T) bool) int {
	return slices.IndexFunc(c.items, f)
}

// Contains reports whether item is present.
func (c *Collection[T]) Contains(item T) bool {
	return c.IndexOf(item) >= 0
}

// Len returns the number of elements.
func (c *Collection[T]) Len() int {
	return len(c.items)
}

// Clear removes every element.
func (c *Collection[T]) Clear() {
	clear(c.items)
	c.items = c.items[:0]
}

// Snapshot returns a copy of the elements in order.
func (c *Collection[T]) Snapshot() []T {
	return slices.Clone(c.items)
}

// All iterates over the elements in order.
func (c *Collection[T]) All(yield func(int, T) bool) {
	for i, item := range c.items {
		if !yield(i, item) {
			return
		}
	}
}
