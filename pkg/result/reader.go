package result

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/bitechdev/DataProvider/pkg/value"
)

// Read materializes every result set of rows into a Table, in execution order.
// rows is always closed.
func Read(rows *sql.Rows) (tables []*Table, err error) {
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for index := 0; ; index++ {
		table, err := readSet(rows, index)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)

		if !rows.NextResultSet() {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

func readSet(rows *sql.Rows, index int) (*Table, error) {
	table := &Table{Index: index, Columns: []string{}, Rows: []Row{}}

	names, err := rows.Columns()
	if err != nil {
		// statements without output (e.g. a bare UPDATE) carry no columns
		return table, nil
	}
	names = uniqueColumns(names)

	for rows.Next() {
		raw := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan result set %d: %w", index, err)
		}

		if len(table.Rows) == 0 {
			table.Columns = append(table.Columns, names...)
		}

		values := make([]value.Value, len(raw))
		for i, r := range raw {
			v, err := value.Of(r)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", names[i], err)
			}
			values[i] = v
		}
		table.Rows = append(table.Rows, NewRow(len(table.Rows), names, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read result set %d: %w", index, err)
	}
	return table, nil
}

// uniqueColumns names unnamed columns after their position and suffixes
// repeated names with theirs, so Row.Value finds every column. The first
// occurrence of a name keeps it.
func uniqueColumns(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]struct{}, len(names))
	for i, name := range names {
		if name == "" {
			name = strconv.Itoa(i)
		}
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			name += "_" + strconv.Itoa(i)
		}
		seen[name] = struct{}{}
		out[i] = name
	}
	return out
}
