package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitechdev/DataProvider/pkg/cache"
	"github.com/bitechdev/DataProvider/pkg/common"
	"github.com/bitechdev/DataProvider/pkg/entity"
	"github.com/bitechdev/DataProvider/pkg/logger"
	"github.com/bitechdev/DataProvider/pkg/pagination"
	"github.com/bitechdev/DataProvider/pkg/query"
	"github.com/bitechdev/DataProvider/pkg/statement"
	"github.com/bitechdev/DataProvider/pkg/value"
)

// Parameter names of the default GetRecords predicate
const (
	paramKeyWord = "SearchKeyWord"
	paramStart   = "StartAt"
	paramEnd     = "EndAt"
)

// GetFirst reads the live row with the given id. Only the named columns are
// selected; none means every column.
func (p *Provider[T]) GetFirst(ctx context.Context, id int64, columns ...string) common.Response[T] {
	return run(ctx, p.schema.Name, p.table, "GetFirst", func(ctx context.Context) common.Response[T] {
		if id <= 0 {
			return common.Fail[T](MessageInvalidPrimaryKey, ErrInvalidPrimaryKey)
		}
		columns, ok := p.selectColumns(columns)
		if !ok {
			return common.Fail[T](MessageUnknownColumns, ErrUnknownColumn)
		}

		st := statement.SelectByID(p.table, columns)
		resp := p.command(p.db).Query(ctx, st.SQL, []query.Parameter{query.Named(entity.ColumnID, value.Int64(id))})
		var zero T
		if !resp.Correct {
			return common.Convert(resp, zero)
		}

		model, err := entity.RowToEntity(p.schema, resp.Model[0].Rows[0], p.factory)
		if err != nil {
			return fail[T](p.schema.Name, "GetFirst", err)
		}
		return common.OK(model)
	})
}

// GetRecords reads one page of live rows matching conditions, ordered by Id.
// pg is the page request; it is updated in place with the computed totals.
// The total and the page are read in two round trips without a shared snapshot.
func (p *Provider[T]) GetRecords(ctx context.Context, pg *pagination.Pagination, columns []string, conditions []query.Condition) common.Response[*pagination.Collection[T]] {
	return run(ctx, p.schema.Name, p.table, "GetRecords", func(ctx context.Context) common.Response[*pagination.Collection[T]] {
		if pg == nil || pg.RequestedIndex < 0 || pg.PageSize <= 0 {
			return common.Fail[*pagination.Collection[T]](MessageInvalidPagination, ErrInvalidPagination)
		}
		columns, ok := p.selectColumns(columns)
		if !ok {
			return common.Fail[*pagination.Collection[T]](MessageUnknownColumns, ErrUnknownColumn)
		}
		if err := query.Validate(conditions, p.schema.HasColumn); err != nil {
			return common.Fail[*pagination.Collection[T]](MessageUnknownColumns, err)
		}

		userSQL, userParams, err := query.ToSQL(conditions)
		if err != nil {
			return common.Fail[*pagination.Collection[T]](MessageInvalidConditions, fmt.Errorf("%w: %w", ErrInvalidCondition, err))
		}
		defaults, params := p.defaultPredicate(pg)
		where := statement.Where(append(defaults, userSQL)...)
		params = append(params, userParams...)

		total, resp := p.count(ctx, where, params)
		if !resp.Correct {
			return common.Convert(resp, (*pagination.Collection[T])(nil))
		}

		pg.Calculate(total)
		if total == 0 {
			return common.Fail[*pagination.Collection[T]](common.MessageNoRows, ErrNoRows).WithModel(pagination.NewCollection(pg, []T{}))
		}

		sqlText := statement.SelectPage(p.table, columns, where, pg.Offset(), pg.PageSize)
		rows := p.command(p.db).Query(ctx, sqlText, params)
		if !rows.Correct {
			return common.Convert(rows, (*pagination.Collection[T])(nil))
		}

		items, err := entity.TableToEntities(p.schema, rows.Model[0], p.factory)
		if err != nil {
			return fail[*pagination.Collection[T]](p.schema.Name, "GetRecords", err)
		}
		return common.OK(pagination.NewCollection(pg, items))
	})
}

// defaultPredicate builds the soft delete, keyword and creation range filters
func (p *Provider[T]) defaultPredicate(pg *pagination.Pagination) ([]string, []query.Parameter) {
	var (
		predicates []string
		params     []query.Parameter
	)
	if !pg.IncludeAll {
		predicates = append(predicates, "[Deleted] Is Null")
	}
	if keywords := strings.TrimSpace(pg.KeyWords); keywords != "" {
		if searchable := p.schema.SearchableColumns(); len(searchable) > 0 {
			terms := make([]string, len(searchable))
			for i, c := range searchable {
				terms[i] = fmt.Sprintf("[%s] Like '%%' + @%s + '%%'", c, paramKeyWord)
			}
			predicates = append(predicates, strings.Join(terms, " Or "))
			params = append(params, query.Named(paramKeyWord, value.Text(keywords)))
		}
	}
	if pg.HasStart() {
		predicates = append(predicates, "[Created] >= @"+paramStart)
		params = append(params, query.Named(paramStart, value.Time(pg.Start)))
	}
	if pg.HasEnd() {
		predicates = append(predicates, "[Created] <= @"+paramEnd)
		params = append(params, query.Named(paramEnd, value.Time(pg.End)))
	}
	return predicates, params
}

// count returns the number of matching rows, from the count cache when enabled
func (p *Provider[T]) count(ctx context.Context, where string, params []query.Parameter) (int64, common.Response[int64]) {
	sqlText := statement.Count(p.table, where)
	key := cache.TotalKey(p.table, sqlText, params)
	if total, ok := p.totals.Get(ctx, key); ok {
		return total, common.OK(total)
	}

	resp := p.command(p.db).Query(ctx, sqlText, params)
	if !resp.Correct {
		return 0, common.Convert(resp, int64(0))
	}
	v, _ := resp.Model[0].FirstValue("Total")
	total, ok := v.Int64()
	if !ok {
		err := fmt.Errorf("count of %s returned %s", p.table, v.Kind())
		return 0, common.FromError[int64](err)
	}

	if err := p.totals.Set(ctx, p.table, key, total); err != nil {
		logger.Warn("Count cache write failed: %v", err)
	}
	return total, common.OK(total)
}

// selectColumns defaults to every column and checks that each one exists
func (p *Provider[T]) selectColumns(columns []string) ([]string, bool) {
	if len(columns) == 0 {
		return p.columns, true
	}
	return columns, p.schema.HasColumns(columns...)
}
