package command

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitechdev/DataProvider/pkg/common"
	"github.com/bitechdev/DataProvider/pkg/query"
	"github.com/bitechdev/DataProvider/pkg/value"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestQueryReadsRows(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("Select [Id], [Name] From [dbo].[Customer] Where (Name = @P0)")).
		WithArgs(sql.Named("P0", "Ana")).
		WillReturnRows(sqlmock.NewRows([]string{"Id", "Name"}).AddRow(int64(1), "Ana"))

	resp := New(db, WithTable("[dbo].[Customer]")).Query(context.Background(),
		"Select [Id], [Name] From [dbo].[Customer] Where (Name = @P0)",
		[]query.Parameter{query.Named("@P0", value.Text("Ana"))})

	require.True(t, resp.Correct, resp.Message)
	assert.Equal(t, common.MessageSuccess, resp.Message)
	require.Len(t, resp.Model, 1)
	assert.Equal(t, []string{"Id", "Name"}, resp.Model[0].Columns)
	name, ok := resp.Model[0].FirstValue("Name")
	require.True(t, ok)
	assert.Equal(t, "Ana", name.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryWithoutRows(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("Select").WillReturnRows(sqlmock.NewRows([]string{"Id"}))

	resp := New(db).Query(context.Background(), "Select [Id] From [dbo].[Customer];", nil)

	assert.False(t, resp.Correct)
	assert.Equal(t, common.MessageNoRows, resp.Message)
	assert.True(t, resp.Is(ErrNoRows))
	require.Len(t, resp.Model, 1)
	assert.Empty(t, resp.Model[0].Rows)
}

func TestQueryDriverError(t *testing.T) {
	db, mock := newMock(t)
	boom := errors.New("Invalid object name 'dbo.Missing'")
	mock.ExpectQuery("Select").WillReturnError(boom)

	resp := New(db, WithTable("[dbo].[Missing]")).Query(context.Background(), "Select 1 From [dbo].[Missing];", nil)

	assert.False(t, resp.Correct)
	assert.True(t, resp.Is(boom))
	assert.Contains(t, resp.Message, "select on [dbo].[Missing]")
	assert.Nil(t, resp.Model)
}

func TestMultipleResultSets(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("Update").WillReturnRows(
		sqlmock.NewRows([]string{"Total"}).AddRow(int64(1)),
		sqlmock.NewRows([]string{"Id"}).AddRow(int64(4)).AddRow(int64(5)),
	)

	resp := New(db).Query(context.Background(), "Update [dbo].[T] Set [A] = 1; Select RowCount_Big() as Total; Select [Id] From [dbo].[T];", nil)

	require.True(t, resp.Correct)
	require.Len(t, resp.Model, 2)
	assert.Equal(t, 0, resp.Model[0].Index)
	assert.Equal(t, 1, resp.Model[1].Index)
	assert.Len(t, resp.Model[1].Rows, 2)
}

func TestStoredProcedure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("Exec [dbo].[CustomerBalance] @CustomerId = @CustomerId, @Year = @Year;")).
		WithArgs(sql.Named("CustomerId", int64(7)), sql.Named("Year", int64(2024))).
		WillReturnRows(sqlmock.NewRows([]string{"Balance"}).AddRow(12.5))

	resp := New(db).StoredProcedure(context.Background(), "[dbo].[CustomerBalance]", []query.Parameter{
		query.Named("CustomerId", value.Int64(7)),
		query.Named("Year", value.Int64(2024)),
	})

	require.True(t, resp.Correct, resp.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcedureCall(t *testing.T) {
	tests := []struct {
		name    string
		proc    string
		params  []query.Parameter
		want    string
		wantErr bool
	}{
		{"bare", "RefreshTotals", nil, "Exec RefreshTotals;", false},
		{"schema qualified", "dbo.RefreshTotals", nil, "Exec dbo.RefreshTotals;", false},
		{"bracketed", "[sales].[Close Month]", []query.Parameter{query.Named("Month", value.Int64(3))}, "Exec [sales].[Close Month] @Month = @Month;", false},
		{"injection", "RefreshTotals; Drop Table Customer", nil, "", true},
		{"empty", "", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := procedureCall(tt.proc, tt.params)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidProcedure)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStoredProcedureRejectsBadName(t *testing.T) {
	db, mock := newMock(t)

	resp := New(db).StoredProcedure(context.Background(), "x; Drop Table y", nil)

	assert.False(t, resp.Correct)
	assert.True(t, resp.Is(ErrInvalidProcedure))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecReturnsAffectedRows(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("Update [dbo].[Customer] Set [Deleted] = GetDate() Where [Id] In (1,2);")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	resp := New(db).Exec(context.Background(), "Update [dbo].[Customer] Set [Deleted] = GetDate() Where [Id] In (1,2);", nil, 0)

	require.True(t, resp.Correct)
	assert.Equal(t, int64(2), resp.Model)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("Update").WillReturnError(errors.New("deadlock victim"))

	resp := New(db).Exec(context.Background(), "Update [dbo].[Customer] Set [Deleted] = GetDate() Where [Id] In (1);", nil, 0)

	assert.False(t, resp.Correct)
	assert.Contains(t, resp.Message, "deadlock victim")
}

func TestExecuteStmt(t *testing.T) {
	db, mock := newMock(t)
	text := "Insert Into [dbo].[Customer] ([Name], [Created], [Modified], [Deleted]) OutPut Inserted.Id Values (@Name, GetDate(), GetDate(), Null);"
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(text))
	prep.ExpectQuery().WithArgs(sql.Named("Name", "a")).WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(int64(10)))
	prep.ExpectQuery().WithArgs(sql.Named("Name", "b")).WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	stmt, err := tx.PrepareContext(ctx, text)
	require.NoError(t, err)

	cmd := New(tx)
	for i, name := range []string{"a", "b"} {
		resp := cmd.ExecuteStmt(ctx, stmt, text, []query.Parameter{query.Named("Name", value.Text(name))})
		require.True(t, resp.Correct, resp.Message)
		id, ok := resp.Model[0].FirstValue("Id")
		require.True(t, ok)
		got, _ := id.Int64()
		assert.Equal(t, int64(10+i), got)
	}
	require.NoError(t, stmt.Close())
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeoutDefaults(t *testing.T) {
	c := New(nil)
	assert.Equal(t, DefaultQueryTimeout, c.timeout(Text, 0))
	assert.Equal(t, DefaultProcedureTimeout, c.timeout(StoredProcedure, 0))
	assert.Equal(t, time.Second, c.timeout(StoredProcedure, time.Second))

	c = New(nil, WithQueryTimeout(time.Minute), WithProcedureTimeout(0))
	assert.Equal(t, time.Minute, c.timeout(Text, 0))
	assert.Equal(t, DefaultProcedureTimeout, c.timeout(StoredProcedure, 0))
}

func TestQueryHonoursTimeout(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("WaitFor").WillDelayFor(time.Second).WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(1))

	resp := New(db).Execute(context.Background(), "WaitFor Delay '00:00:01'; Select 1 as x;", nil, Text, 10*time.Millisecond)

	assert.False(t, resp.Correct)
	assert.Error(t, resp.Err)
}

func TestOperation(t *testing.T) {
	assert.Equal(t, "select", Operation("Select Top 1 [Id] From [dbo].[T]"))
	assert.Equal(t, "exec", Operation("  Exec dbo.P;"))
	assert.Equal(t, "commit", Operation("Commit;"))
	assert.Equal(t, "unknown", Operation(""))
}
