// Package result captures query output as plain tables, decoupled from the driver.
package result

import (
	"github.com/bitechdev/DataProvider/pkg/value"
)

// Cell is a single column value of a row. Database NULL is stored as value.Null().
type Cell struct {
	RowIndex    int         `json:"row_index"`
	ColumnIndex int         `json:"column_index"`
	ColumnName  string      `json:"column_name"`
	Value       value.Value `json:"value"`
}

// Row is one record of a result set, cells in select order
type Row struct {
	Index int    `json:"index"`
	Cells []Cell `json:"cells"`
}

// Table is one result set. Columns are unique and keep the select order.
type Table struct {
	Index   int      `json:"index"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewRow builds a row from parallel column and value lists
func NewRow(index int, columns []string, values []value.Value) Row {
	row := Row{Index: index, Cells: make([]Cell, 0, len(columns))}
	for i, name := range columns {
		v := value.Null()
		if i < len(values) {
			v = values[i]
		}
		row.Cells = append(row.Cells, Cell{RowIndex: index, ColumnIndex: i, ColumnName: name, Value: v})
	}
	return row
}

// Columns returns the column names of the row in cell order
func (r Row) Columns() []string {
	names := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		names[i] = c.ColumnName
	}
	return names
}

// Value looks a cell up by exact column name
func (r Row) Value(column string) (value.Value, bool) {
	for _, c := range r.Cells {
		if c.ColumnName == column {
			return c.Value, true
		}
	}
	return value.Null(), false
}

// ValueAt looks a cell up by column position
func (r Row) ValueAt(index int) (value.Value, bool) {
	if index < 0 || index >= len(r.Cells) {
		return value.Null(), false
	}
	return r.Cells[index].Value, true
}

// HasRows reports whether the table holds at least one row
func (t *Table) HasRows() bool {
	return t != nil && len(t.Rows) > 0
}

// FirstValue returns the named column of the first row
func (t *Table) FirstValue(column string) (value.Value, bool) {
	if !t.HasRows() {
		return value.Null(), false
	}
	return t.Rows[0].Value(column)
}

// Grid flattens the table: the first line holds the column names, every
// following line the row values in column order.
func (t *Table) Grid() [][]any {
	if !t.HasRows() {
		return [][]any{}
	}
	grid := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	grid = append(grid, header)
	for _, r := range t.Rows {
		line := make([]any, len(t.Columns))
		for i := range t.Columns {
			if v, ok := r.ValueAt(i); ok {
				line[i] = v.Any()
			}
		}
		grid = append(grid, line)
	}
	return grid
}

// AnyRows reports whether any of the tables holds a row
func AnyRows(tables []*Table) bool {
	for _, t := range tables {
		if t.HasRows() {
			return true
		}
	}
	return false
}
