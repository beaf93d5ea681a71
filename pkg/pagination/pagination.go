// Package pagination turns a page request and a total row count into a page descriptor.
package pagination

import "time"

// DefaultPageSize is used when no positive page size is requested
const DefaultPageSize int64 = 100

// Pagination is both the page request (RequestedIndex, PageSize, filters) and,
// after Calculate, the page descriptor (CurrentIndex, TotalElements, TotalPages).
type Pagination struct {
	RequestedIndex int64     `json:"requested_index"`
	PageSize       int64     `json:"page_size"`
	CurrentIndex   int64     `json:"current_index"`
	TotalElements  int64     `json:"total_elements"`
	TotalPages     int64     `json:"total_pages"`
	KeyWords       string    `json:"key_words"`
	IncludeAll     bool      `json:"include_all"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

// New returns the default request: first page of DefaultPageSize rows, no filters
func New() *Pagination {
	return &Pagination{PageSize: DefaultPageSize}
}

// NewPage requests page index of the given size. A negative index becomes 0
// and a non-positive size becomes DefaultPageSize.
func NewPage(index, size int64) *Pagination {
	p := New()
	if index > 0 {
		p.RequestedIndex = index
	}
	if size > 0 {
		p.PageSize = size
	}
	return p
}

// Calculate fills the output fields from the total number of matching rows.
// Filters (KeyWords, IncludeAll, Start, End) are left untouched.
func (p *Pagination) Calculate(total int64) {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	switch {
	case total <= 0:
		p.CurrentIndex = 0
		p.RequestedIndex = 0
		p.PageSize = 0
		p.TotalElements = 0
		p.TotalPages = 0
	case total <= p.PageSize:
		p.CurrentIndex = 0
		p.RequestedIndex = 0
		p.PageSize = total
		p.TotalElements = total
		p.TotalPages = 1
	default:
		p.TotalElements = total
		p.TotalPages = (total + p.PageSize - 1) / p.PageSize
	}
}

// Offset is the number of rows skipped before the requested page
func (p *Pagination) Offset() int64 {
	return p.RequestedIndex * p.PageSize
}

// HasStart reports whether a lower creation-date bound was requested
func (p *Pagination) HasStart() bool {
	return !p.Start.IsZero()
}

// HasEnd reports whether an upper creation-date bound was requested
func (p *Pagination) HasEnd() bool {
	return !p.End.IsZero()
}

// Clone returns an independent copy
func (p *Pagination) Clone() *Pagination {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
