// Package statement renders the SQL Server text used by the data provider.
// Every function is a pure string template; nothing here touches the network.
package statement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bitechdev/DataProvider/pkg/entity"
)

// Statement is SQL text plus the names (without @) of the parameters it expects, in order
type Statement struct {
	SQL        string
	Parameters []string
}

// Table quotes a schema and table name, e.g. [dbo].[Customer]
func Table(schema, name string) string {
	return fmt.Sprintf("[%s].[%s]", quote(schema), quote(name))
}

// quote escapes a closing bracket inside an identifier
func quote(ident string) string {
	return strings.ReplaceAll(ident, "]", "]]")
}

// ColumnList renders [A], [B], [C]
func ColumnList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = "[" + quote(c) + "]"
	}
	return strings.Join(quoted, ", ")
}

// Settable drops the bookkeeping columns managed by the provider
func Settable(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if !entity.IsBookkeeping(c) {
			out = append(out, c)
		}
	}
	return out
}

// Insert stamps Created/Modified with GetDate(), leaves Deleted null and
// returns the generated Id.
func Insert(table string, columns []string) Statement {
	settable := Settable(columns)
	placeholders := make([]string, len(settable))
	for i, c := range settable {
		placeholders[i] = "@" + c
	}

	var sb strings.Builder
	sb.WriteString("Insert Into ")
	sb.WriteString(table)
	sb.WriteString(" (")
	if len(settable) > 0 {
		sb.WriteString(ColumnList(settable))
		sb.WriteString(", ")
	}
	sb.WriteString("[Created], [Modified], [Deleted]) OutPut Inserted.Id Values (")
	if len(settable) > 0 {
		sb.WriteString(strings.Join(placeholders, ", "))
		sb.WriteString(", ")
	}
	sb.WriteString("GetDate(), GetDate(), Null);")

	return Statement{SQL: sb.String(), Parameters: settable}
}

// Update refreshes Modified, never touches a soft-deleted row and returns the
// affected row count as Total.
func Update(table string, columns []string) Statement {
	settable := Settable(columns)
	sets := make([]string, 0, len(settable)+1)
	for _, c := range settable {
		sets = append(sets, fmt.Sprintf("[%s] = @%s", quote(c), c))
	}
	sets = append(sets, "[Modified] = GetDate()")

	sql := fmt.Sprintf("Update %s Set %s Where [Id] = @Id And [Deleted] Is Null; Select RowCount_Big() as Total;",
		table, strings.Join(sets, ", "))

	params := append(append([]string{}, settable...), entity.ColumnID)
	return Statement{SQL: sql, Parameters: params}
}

// SelectByID reads one live row
func SelectByID(table string, columns []string) Statement {
	return Statement{
		SQL:        fmt.Sprintf("Select Top 1 %s From %s Where [Id] = @Id And [Deleted] Is Null;", ColumnList(columns), table),
		Parameters: []string{entity.ColumnID},
	}
}

// SoftDelete stamps Deleted on every live id. Ids are integers and are
// inlined; rows already deleted keep their timestamp and are not counted.
func SoftDelete(table string, ids []int64) Statement {
	list := make([]string, len(ids))
	for i, id := range ids {
		list[i] = strconv.FormatInt(id, 10)
	}
	return Statement{
		SQL: fmt.Sprintf("Update %s Set [Deleted] = GetDate() Where [Id] In (%s) And [Deleted] Is Null;", table, strings.Join(list, ",")),
	}
}

// Where joins predicates with And, each wrapped in parentheses
func Where(predicates ...string) string {
	parts := make([]string, 0, len(predicates))
	for _, p := range predicates {
		if p != "" {
			parts = append(parts, "("+p+")")
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Where " + strings.Join(parts, " And ")
}

// Count returns the number of rows matching where as a bigint named Total
func Count(table, where string) string {
	return strings.TrimSpace(fmt.Sprintf("Select Cast(count(*) as BigInt) as Total From %s %s", table, where)) + ";"
}

// SelectPage reads one page ordered by Id
func SelectPage(table string, columns []string, where string, offset, size int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Select %s From %s ", ColumnList(columns), table)
	if where != "" {
		sb.WriteString(where)
		sb.WriteString(" ")
	}
	fmt.Fprintf(&sb, "Order By [Id] Asc Offset %d Rows Fetch Next %d Rows Only;", offset, size)
	return sb.String()
}
