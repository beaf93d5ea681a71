package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bitechdev/DataProvider/pkg/common"
	"github.com/bitechdev/DataProvider/pkg/eventbroker"
	"github.com/bitechdev/DataProvider/pkg/query"
	"github.com/bitechdev/DataProvider/pkg/statement"
)

// Save inserts e when its Id is 0 and updates it otherwise, returning the
// resulting id. See SaveMany for transaction handling.
func (p *Provider[T]) Save(ctx context.Context, e T, tx *Tx) common.Response[int64] {
	if isNil(e) {
		return common.Fail[int64](MessageInvalidEntity, ErrInvalidEntity)
	}
	resp := p.SaveMany(ctx, []T{e}, tx)
	var id int64
	if len(resp.Model) > 0 {
		id = resp.Model[0]
	}
	return common.Convert(resp, id)
}

// SaveMany saves every entity in order on one transaction and returns their
// ids; an entity that could not be saved resolves to 0. When tx is nil the
// provider owns the transaction and commits only if no id is 0. With a
// caller transaction nothing is committed or rolled back here.
// Inserted entities receive their new Id once the write is committed, or
// immediately under a caller transaction.
func (p *Provider[T]) SaveMany(ctx context.Context, list []T, tx *Tx) common.Response[[]int64] {
	return run(ctx, p.schema.Name, p.table, "Save", func(ctx context.Context) common.Response[[]int64] {
		if len(list) == 0 {
			return common.Fail[[]int64](MessageInvalidEntityList, ErrInvalidEntity)
		}
		for _, e := range list {
			if isNil(e) {
				return common.Fail[[]int64](MessageInvalidEntityList, ErrInvalidEntity)
			}
		}
		if tx != nil && !tx.usableWith(p.db) {
			return common.Fail[[]int64](MessageInvalidTransaction, ErrInvalidTransaction)
		}

		var (
			ids      []int64
			inserted []int
		)
		err := p.inTx(ctx, tx, func(t *Tx) (bool, error) {
			var err error
			ids, inserted, err = p.saveAll(ctx, t, list)
			if err != nil {
				return false, err
			}
			complete := allSaved(ids)
			if complete {
				p.queueSaveEvents(t, list, ids, inserted)
			}
			return complete, nil
		})
		if err != nil {
			return fail[[]int64](p.schema.Name, "Save", err)
		}

		if tx != nil || allSaved(ids) {
			for _, i := range inserted {
				if ids[i] != 0 {
					list[i].SetID(ids[i])
				}
			}
		}
		if !allSaved(ids) {
			return common.Fail[[]int64](common.MessageFailure, ErrIncompleteSave).WithModel(ids)
		}
		return common.OK(ids)
	})
}

// saveAll prepares the insert and update statements at most once each on
// the transaction and rebinds them per entity.
func (p *Provider[T]) saveAll(ctx context.Context, t *Tx, list []T) (ids []int64, inserted []int, err error) {
	insert := statement.Insert(p.table, p.columns)
	update := statement.Update(p.table, p.columns)

	var insertStmt, updateStmt *sql.Stmt
	defer func() {
		for _, s := range []*sql.Stmt{insertStmt, updateStmt} {
			if s != nil {
				_ = s.Close()
			}
		}
	}()

	prepare := func(target **sql.Stmt, text string) (*sql.Stmt, error) {
		if *target == nil {
			s, err := t.tx.PrepareContext(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("prepare: %w", err)
			}
			*target = s
		}
		return *target, nil
	}

	cmd := p.command(t.tx)
	ids = make([]int64, 0, len(list))
	for i, e := range list {
		isInsert := e.GetID() == 0
		st, target := update, &updateStmt
		if isInsert {
			st, target = insert, &insertStmt
			inserted = append(inserted, i)
		}

		stmt, err := prepare(target, st.SQL)
		if err != nil {
			return nil, nil, err
		}
		values, err := p.schema.Values(e, st.Parameters)
		if err != nil {
			return nil, nil, fmt.Errorf("entity %d: %w", i, err)
		}
		params := make([]query.Parameter, len(values))
		for x, v := range values {
			params[x] = query.Named(st.Parameters[x], v)
		}

		resp := cmd.ExecuteStmt(ctx, stmt, st.SQL, params)
		if !resp.Correct {
			if errors.Is(resp.Err, ErrNoRows) {
				ids = append(ids, 0)
				continue
			}
			return nil, nil, resp.Err
		}

		first, _ := resp.Model[0].Rows[0].ValueAt(0)
		n, _ := first.Int64()
		switch {
		case isInsert:
			ids = append(ids, n)
		case n > 0:
			ids = append(ids, e.GetID())
		default:
			ids = append(ids, 0)
		}
	}
	return ids, inserted, nil
}

func (p *Provider[T]) queueSaveEvents(t *Tx, list []T, ids []int64, inserted []int) {
	created := make([]int64, 0, len(inserted))
	isInsert := make(map[int]bool, len(inserted))
	for _, i := range inserted {
		isInsert[i] = true
		created = append(created, ids[i])
	}
	updated := make([]int64, 0, len(list)-len(inserted))
	for i := range list {
		if !isInsert[i] {
			updated = append(updated, ids[i])
		}
	}
	p.afterWrite(t, eventbroker.OperationCreated, created)
	p.afterWrite(t, eventbroker.OperationUpdated, updated)
}

func allSaved(ids []int64) bool {
	for _, id := range ids {
		if id == 0 {
			return false
		}
	}
	return true
}

// Delete soft-deletes the row with the given id. See DeleteMany.
func (p *Provider[T]) Delete(ctx context.Context, id int64, tx *Tx) common.Response[bool] {
	if id <= 0 {
		return common.Fail[bool](MessageInvalidDeleteKey, ErrInvalidPrimaryKey)
	}
	return p.DeleteMany(ctx, []int64{id}, tx)
}

// DeleteMany stamps Deleted on every id. Duplicate ids are collapsed. The
// call is correct only when every id matched a row; an owned transaction is
// rolled back otherwise.
func (p *Provider[T]) DeleteMany(ctx context.Context, ids []int64, tx *Tx) common.Response[bool] {
	return run(ctx, p.schema.Name, p.table, "Delete", func(ctx context.Context) common.Response[bool] {
		ids, ok := uniqueKeys(ids)
		if !ok {
			return common.Fail[bool](MessageInvalidDeleteKeys, ErrInvalidPrimaryKey)
		}
		if tx != nil && !tx.usableWith(p.db) {
			return common.Fail[bool](MessageInvalidTransaction, ErrInvalidTransaction)
		}

		st := statement.SoftDelete(p.table, ids)
		var deleted bool
		err := p.inTx(ctx, tx, func(t *Tx) (bool, error) {
			resp := p.command(t.tx).Exec(ctx, st.SQL, nil, 0)
			if !resp.Correct {
				return false, resp.Err
			}
			deleted = resp.Model == int64(len(ids))
			if deleted {
				p.afterWrite(t, eventbroker.OperationDeleted, ids)
			}
			return deleted, nil
		})
		if err != nil {
			return fail[bool](p.schema.Name, "Delete", err)
		}
		if !deleted {
			return common.Fail[bool](common.MessageFailure, ErrIncompleteDelete).WithModel(false)
		}
		return common.OK(true)
	})
}

// uniqueKeys drops duplicates keeping the first occurrence; every id must be positive
func uniqueKeys(ids []int64) ([]int64, bool) {
	if len(ids) == 0 {
		return nil, false
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, false
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, true
}
