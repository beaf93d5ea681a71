package pagination

import "encoding/json"

// Collection is one page of items together with the pagination that produced it.
// It is immutable once built.
type Collection[T any] struct {
	pagination Pagination
	items      []T
}

// NewCollection copies p and items into a new page
func NewCollection[T any](p *Pagination, items []T) *Collection[T] {
	c := &Collection[T]{items: make([]T, len(items))}
	if p != nil {
		c.pagination = *p
	}
	copy(c.items, items)
	return c
}

// Pagination returns a copy of the page descriptor
func (c *Collection[T]) Pagination() Pagination {
	return c.pagination
}

// Items returns a copy of the page items
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len is the number of items on the page
func (c *Collection[T]) Len() int {
	return len(c.items)
}

// MarshalJSON renders {"pagination": ..., "collection": [...]}
func (c *Collection[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Pagination Pagination `json:"pagination"`
		Collection []T        `json:"collection"`
	}{c.pagination, c.items})
}
