package restapi

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitechdev/DataProvider/pkg/entity"
	"github.com/bitechdev/DataProvider/pkg/provider"
	"github.com/bitechdev/DataProvider/pkg/query"
)

type Customer struct {
	entity.Base
	Name  string  `db:"Name" json:"name"`
	Age   int64   `db:"Age" json:"age"`
	Score float64 `db:"Score" json:"score"`
	Email *string `db:"Email" json:"email"`
}

func setup(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	p, err := provider.New(db, func() *Customer { return &Customer{} })
	require.NoError(t, err)

	router := mux.NewRouter()
	Register(router, "/customers/", p)
	return router, mock
}

func do(h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Correct bool            `json:"correct"`
	Message string          `json:"message"`
	Model   json.RawMessage `json:"model"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestGetByID(t *testing.T) {
	h, mock := setup(t)
	mock.ExpectQuery(regexp.QuoteMeta("Select Top 1 [Id], [Name] From [dbo].[Customer] Where [Id] = @Id")).
		WithArgs(sql.Named("Id", int64(7))).
		WillReturnRows(sqlmock.NewRows([]string{"Id", "Name"}).AddRow(int64(7), "Ana"))

	w := do(h, http.MethodGet, "/customers/7?columns=Id,Name", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	env := decode(t, w)
	assert.True(t, env.Correct)
	var c Customer
	require.NoError(t, json.Unmarshal(env.Model, &c))
	assert.Equal(t, int64(7), c.ID)
	assert.Equal(t, "Ana", c.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatusCodes(t *testing.T) {
	h, mock := setup(t)
	mock.ExpectQuery("Select Top 1").WillReturnRows(sqlmock.NewRows([]string{"Id"}))

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/customers/99", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/customers/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/customers/0", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/customers/1?columns=Phone", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(h, http.MethodPut, "/customers/1", nil).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	h, mock := setup(t)
	where := "Where ([Deleted] Is Null) And ((Age >= @P0) And (Id In (1, 2, 3)))"
	mock.ExpectQuery(regexp.QuoteMeta("Select Cast(count(*) as BigInt) as Total From [dbo].[Customer] " + where + ";")).
		WithArgs(sql.Named("P0", int64(18))).
		WillReturnRows(sqlmock.NewRows([]string{"Total"}).AddRow(int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta("Offset 2 Rows Fetch Next 2 Rows Only;")).
		WillReturnRows(sqlmock.NewRows([]string{"Id", "Name"}).AddRow(int64(3), "Caio"))

	q := url.Values{}
	q.Set("page", "1")
	q.Set("size", "2")
	q.Set("columns", "Id,Name")
	q.Add("filter", "Age:ge:18")
	q.Add("filter", "Id:In:1,2,3")
	w := do(h, http.MethodGet, "/customers?"+q.Encode(), nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode(t, w)
	assert.True(t, env.Correct)
	var page struct {
		Pagination struct {
			TotalElements int64 `json:"total_elements"`
			TotalPages    int64 `json:"total_pages"`
		} `json:"pagination"`
		Items []Customer `json:"collection"`
	}
	require.NoError(t, json.Unmarshal(env.Model, &page))
	assert.Equal(t, int64(3), page.Pagination.TotalElements)
	assert.Equal(t, int64(2), page.Pagination.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Caio", page.Items[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEmptyIsOK(t *testing.T) {
	h, mock := setup(t)
	mock.ExpectQuery("Select Cast").WillReturnRows(sqlmock.NewRows([]string{"Total"}).AddRow(int64(0)))

	w := do(h, http.MethodGet, "/customers?keywords=zz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode(t, w).Correct)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBadParameters(t *testing.T) {
	h, mock := setup(t)
	for _, target := range []string{
		"/customers?page=x",
		"/customers?size=-1",
		"/customers?include_all=maybe",
		"/customers?start=yesterday",
		"/customers?filter=Age",
		"/customers?filter=Age:between:1",
		"/customers?filter=Phone:eq:1",
		"/customers?filter=Age:eq:old",
		"/customers?filter=Score:in:1.5,NaN",
		"/customers?filter=Score:gt:Inf",
		"/customers?columns=Phone",
	} {
		w := do(h, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.False(t, decode(t, w).Correct, target)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveObjectAndArray(t *testing.T) {
	h, mock := setup(t)
	insert := "Insert Into [dbo].[Customer] ([Name], [Age], [Score], [Email], [Created], [Modified], [Deleted])"

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta(insert)).ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(int64(12)))
	mock.ExpectCommit()

	w := do(h, http.MethodPost, "/customers", []byte(`{"name":"Ana","age":30}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, "12", string(decode(t, w).Model))

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(insert))
	prep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(int64(13)))
	prep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(int64(14)))
	mock.ExpectCommit()

	w = do(h, http.MethodPost, "/customers", []byte(`[{"name":"Bo"},{"name":"Cy","email":"cy@example.com"}]`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, "[13,14]", string(decode(t, w).Model))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBadBodies(t *testing.T) {
	h, mock := setup(t)
	for _, body := range []string{`{`, `42`, `[]`, `[{"age":"old"}]`, `{"name":1}`} {
		w := do(h, http.MethodPost, "/customers", []byte(body))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveConflict(t *testing.T) {
	h, mock := setup(t)
	mock.ExpectBegin()
	mock.ExpectPrepare("Update").ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"Total"}).AddRow(int64(0)))
	mock.ExpectRollback()

	w := do(h, http.MethodPost, "/customers", []byte(`{"id":5,"name":"Gone"}`))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	h, mock := setup(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("Where [Id] In (4);")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("Where [Id] In (1,2);")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	w := do(h, http.MethodDelete, "/customers/4", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "true", string(decode(t, w).Model))

	assert.Equal(t, http.StatusConflict, do(h, http.MethodDelete, "/customers?ids=1,2", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodDelete, "/customers", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodDelete, "/customers?ids=1,x", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodDelete, "/customers/-3", nil).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseFiltersConvertsToColumnType(t *testing.T) {
	schema, err := entity.Describe(&Customer{})
	require.NoError(t, err)

	q := url.Values{}
	q.Add("filter", "Score:lt:4.5")
	q.Add("filter", "Email:is:null")
	q.Add("filter", "Name:like:an")
	q.Add("filter", "Created:GreaterThan:2024-01-02T03:04:05Z")
	q.Add("filter", "Name:nin:a,b")

	conds, err := parseFilters(schema, q)
	require.NoError(t, err)
	require.Len(t, conds, 5)

	created, ok := conds[3].Value.(time.Time)
	require.True(t, ok, "%T", conds[3].Value)
	assert.True(t, created.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, query.GreaterThan, conds[3].Operator)

	assert.Equal(t, []query.Condition{
		{Property: "Score", Operator: query.LessThan, Value: 4.5},
		{Property: "Email", Operator: query.Is, Value: nil},
		{Property: "Name", Operator: query.Like, Value: "an"},
		{Property: "Name", Operator: query.NotIn, Value: []any{"a", "b"}},
	}, []query.Condition{conds[0], conds[1], conds[2], conds[4]})
}

func TestRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	var got string
	router.HandleFunc("/customers/{id}", func(w http.ResponseWriter, r *http.Request) {
		got = RouteTemplate(r)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/customers/9", nil))
	assert.Equal(t, "/customers/{id}", got)

	assert.Equal(t, "/plain", RouteTemplate(httptest.NewRequest(http.MethodGet, "/plain", nil)))
}
