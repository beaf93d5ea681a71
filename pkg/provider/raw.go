package provider

import (
	"context"

	"github.com/bitechdev/DataProvider/pkg/command"
	"github.com/bitechdev/DataProvider/pkg/common"
	"github.com/bitechdev/DataProvider/pkg/query"
	"github.com/bitechdev/DataProvider/pkg/result"
)

// Query runs arbitrary SQL text on the provider's pool
func (p *Provider[T]) Query(ctx context.Context, sqlText string, params []query.Parameter) common.Response[[]*result.Table] {
	return run(ctx, p.schema.Name, p.table, "Query", func(ctx context.Context) common.Response[[]*result.Table] {
		return p.command(p.db).Execute(ctx, sqlText, params, command.Text, 0)
	})
}

// StoredProcedure calls a stored procedure on the provider's pool
func (p *Provider[T]) StoredProcedure(ctx context.Context, name string, params []query.Parameter) common.Response[[]*result.Table] {
	return run(ctx, p.schema.Name, p.table, "StoredProcedure", func(ctx context.Context) common.Response[[]*result.Table] {
		return p.command(p.db).Execute(ctx, name, params, command.StoredProcedure, 0)
	})
}
