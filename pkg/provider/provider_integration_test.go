//go:build integration

package provider

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bitechdev/DataProvider/pkg/config"
	"github.com/bitechdev/DataProvider/pkg/pagination"
	"github.com/bitechdev/DataProvider/pkg/query"
)

const saPassword = "Str0ng!Passw0rd"

// setupSQLServer starts a SQL Server container and returns its configuration
func setupSQLServer(t *testing.T) config.DatabaseConfig {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mcr.microsoft.com/mssql/server:2022-latest",
		ExposedPorts: []string{"1433/tcp"},
		Env: map[string]string{
			"ACCEPT_EULA":       "Y",
			"MSSQL_SA_PASSWORD": saPassword,
		},
		WaitingFor: wait.ForLog("SQL Server is now ready for client connections").
			WithStartupTimeout(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "1433")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	return config.DatabaseConfig{
		Host:          host,
		Port:          portNum,
		User:          "sa",
		Password:      saPassword,
		Database:      "master",
		RetryAttempts: 10,
		RetryDelay:    2 * time.Second,
	}
}

func createCustomerTable(t *testing.T, p *Provider[*Customer]) {
	resp := p.Query(context.Background(), `
		If Object_Id('dbo.Customer') Is Not Null Drop Table dbo.Customer;
		Create Table dbo.Customer (
			Id BigInt Identity(1,1) Primary Key,
			Name NVarChar(100) Not Null,
			Email NVarChar(200) Not Null,
			Age BigInt Not Null,
			Created DateTime Not Null,
			Modified DateTime Not Null,
			Deleted DateTime Null
		);`, nil)
	// DDL returns no result set
	require.True(t, resp.Correct || resp.Is(ErrNoRows), resp.Message)
}

func TestSQLServerRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := setupSQLServer(t)

	p, err := Open(ctx, cfg, newCustomer)
	require.NoError(t, err)
	defer p.Close()
	createCustomerTable(t, p)

	customers := []*Customer{
		{Name: "Ana", Email: "ana@example.com", Age: 31},
		{Name: "Bruno", Email: "bruno@example.com", Age: 17},
		{Name: "Carla", Email: "carla@example.com", Age: 45},
	}
	saved := p.SaveMany(ctx, customers, nil)
	require.True(t, saved.Correct, saved.Message)
	assert.Equal(t, []int64{1, 2, 3}, saved.Model)

	first := p.GetFirst(ctx, 1)
	require.True(t, first.Correct, first.Message)
	assert.Equal(t, "Ana", first.Model.Name)
	assert.False(t, first.Model.Created.IsZero())

	first.Model.Age = 32
	updated := p.Save(ctx, first.Model, nil)
	require.True(t, updated.Correct, updated.Message)
	assert.Equal(t, int64(1), updated.Model)

	deleted := p.Delete(ctx, 2, nil)
	require.True(t, deleted.Correct, deleted.Message)
	assert.False(t, p.GetFirst(ctx, 2).Correct)
	assert.False(t, p.Delete(ctx, 2, nil).Correct, "an already deleted row is not deleted again")

	page := p.GetRecords(ctx, pagination.New(), nil, []query.Condition{query.Gt("Age", 18)})
	require.True(t, page.Correct, page.Message)
	assert.Equal(t, int64(2), page.Model.Pagination().TotalElements)

	search := pagination.New()
	search.KeyWords = "carla"
	page = p.GetRecords(ctx, search, []string{"Id", "Name"}, nil)
	require.True(t, page.Correct, page.Message)
	require.Equal(t, 1, page.Model.Len())
	assert.Equal(t, int64(3), page.Model.Items()[0].ID)

	all := pagination.New()
	all.IncludeAll = true
	page = p.GetRecords(ctx, all, nil, nil)
	require.True(t, page.Correct, page.Message)
	assert.Equal(t, int64(3), page.Model.Pagination().TotalElements)
}

func TestSQLServerSharedTransaction(t *testing.T) {
	ctx := context.Background()
	cfg := setupSQLServer(t)

	p, err := Open(ctx, cfg, newCustomer)
	require.NoError(t, err)
	defer p.Close()
	createCustomerTable(t, p)

	tx, err := p.Begin(ctx)
	require.NoError(t, err)
	require.True(t, p.Save(ctx, &Customer{Name: "Temp", Email: "t@example.com"}, tx).Correct)
	require.NoError(t, tx.Rollback())

	page := p.GetRecords(ctx, pagination.New(), nil, nil)
	assert.False(t, page.Correct)
	assert.True(t, page.Is(ErrNoRows))
}
