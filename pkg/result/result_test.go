package result

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitechdev/DataProvider/pkg/value"
)

func TestReadMultipleResultSets(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	first := sqlmock.NewRows([]string{"Id", "Name"}).
		AddRow(int64(1), "alpha").
		AddRow(int64(2), nil)
	second := sqlmock.NewRows([]string{"Total"}).AddRow(int64(2))
	mock.ExpectQuery("Select").WillReturnRows(first, second)

	rows, err := db.Query("Select [Id], [Name] From [dbo].[Customer]; Select RowCount_Big() as Total;")
	require.NoError(t, err)

	tables, err := Read(rows)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, 0, tables[0].Index)
	assert.Equal(t, []string{"Id", "Name"}, tables[0].Columns)
	require.Len(t, tables[0].Rows, 2)

	row := tables[0].Rows[1]
	assert.Equal(t, 1, row.Index)
	assert.Equal(t, 1, row.Cells[1].RowIndex)
	assert.Equal(t, 1, row.Cells[1].ColumnIndex)
	assert.Equal(t, "Name", row.Cells[1].ColumnName)
	assert.True(t, row.Cells[1].Value.IsNull())

	total, ok := tables[1].FirstValue("Total")
	require.True(t, ok)
	n, _ := total.Int64()
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 1, tables[1].Index)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadEmptyResultSet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("Select").WillReturnRows(sqlmock.NewRows([]string{"Id"}))

	rows, err := db.Query("Select [Id] From [dbo].[Customer]")
	require.NoError(t, err)

	tables, err := Read(rows)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.False(t, tables[0].HasRows())
	assert.Empty(t, tables[0].Columns)
	assert.False(t, AnyRows(tables))
}

func TestReadRenamesUnnamedAndRepeatedColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("Select").WillReturnRows(
		sqlmock.NewRows([]string{"Name", "", "Name", "Name_2"}).AddRow("a", int64(1), "b", "c"))

	rows, err := db.Query("Select c.Name, Count(*), o.Name, o.Name As Name_2 From [dbo].[Customer] c")
	require.NoError(t, err)

	tables, err := Read(rows)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"Name", "1", "Name_2", "Name_2_3"}, tables[0].Columns)

	row := tables[0].Rows[0]
	for column, want := range map[string]string{"Name": "a", "Name_2": "b", "Name_2_3": "c"} {
		v, ok := row.Value(column)
		require.True(t, ok, column)
		text, _ := v.Text()
		assert.Equal(t, want, text, column)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadRowError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	broken := errors.New("connection reset")
	mock.ExpectQuery("Select").WillReturnRows(
		sqlmock.NewRows([]string{"Id"}).AddRow(1).AddRow(2).RowError(1, broken))

	rows, err := db.Query("Select [Id] From [dbo].[Customer]")
	require.NoError(t, err)

	_, err = Read(rows)
	assert.ErrorIs(t, err, broken)
}

func TestRowLookups(t *testing.T) {
	row := NewRow(0, []string{"Id", "Name"}, []value.Value{value.Int64(5), value.Text("x")})

	v, ok := row.Value("Name")
	assert.True(t, ok)
	assert.Equal(t, "x", v.Any())

	_, ok = row.Value("name")
	assert.False(t, ok, "column lookup is case-sensitive")

	v, ok = row.ValueAt(0)
	assert.True(t, ok)
	assert.Equal(t, int64(5), v.Any())

	_, ok = row.ValueAt(5)
	assert.False(t, ok)
	assert.Equal(t, []string{"Id", "Name"}, row.Columns())
}

func TestGrid(t *testing.T) {
	table := &Table{
		Columns: []string{"Id", "Name"},
		Rows: []Row{
			NewRow(0, []string{"Id", "Name"}, []value.Value{value.Int64(1), value.Text("a")}),
			NewRow(1, []string{"Id", "Name"}, []value.Value{value.Int64(2), value.Null()}),
		},
	}

	grid := table.Grid()
	require.Len(t, grid, 3)
	assert.Equal(t, []any{"Id", "Name"}, grid[0])
	assert.Equal(t, []any{int64(1), "a"}, grid[1])
	assert.Equal(t, []any{int64(2), nil}, grid[2])

	assert.Empty(t, (&Table{}).Grid())
}
