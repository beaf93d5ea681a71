// Package entity describes persistable structs: which fields map to columns,
// how to read them into parameter values and how to fill them from result rows.
package entity

import "time"

// Column names every entity table carries
const (
	ColumnID       = "Id"
	ColumnCreated  = "Created"
	ColumnModified = "Modified"
	ColumnDeleted  = "Deleted"
)

// Entity is implemented by every type the data provider can persist.
// Embedding Base satisfies it.
type Entity interface {
	GetID() int64
	SetID(id int64)
	GetCreated() time.Time
	GetModified() time.Time
	GetDeleted() *time.Time
}

// Base carries the bookkeeping columns. Id 0 means the entity was never saved;
// a non-nil Deleted marks a soft-deleted row.
type Base struct {
	ID       int64      `db:"Id" json:"id"`
	Created  time.Time  `db:"Created" json:"created"`
	Modified time.Time  `db:"Modified" json:"modified"`
	Deleted  *time.Time `db:"Deleted" json:"deleted,omitempty"`
}

func (b *Base) GetID() int64 {
	return b.ID
}

func (b *Base) SetID(id int64) {
	b.ID = id
}

func (b *Base) GetCreated() time.Time {
	return b.Created
}

func (b *Base) GetModified() time.Time {
	return b.Modified
}

func (b *Base) GetDeleted() *time.Time {
	return b.Deleted
}

// IsBookkeeping reports whether name is one of the columns managed by the provider
func IsBookkeeping(name string) bool {
	switch name {
	case ColumnID, ColumnCreated, ColumnModified, ColumnDeleted:
		return true
	}
	return false
}
