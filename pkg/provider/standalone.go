package provider

import (
	"context"
	"fmt"
	"reflect"

	"github.com/bitechdev/DataProvider/pkg/common"
	"github.com/bitechdev/DataProvider/pkg/config"
	"github.com/bitechdev/DataProvider/pkg/entity"
)

// NewFactory returns a factory allocating a zero value for a pointer-to-struct T
func NewFactory[T entity.Entity]() (func() T, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Ptr || typ.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a pointer to a struct", ErrInvalidEntity, typ)
	}
	elem := typ.Elem()
	return func() T {
		return reflect.New(elem).Interface().(T)
	}, nil
}

// SaveEntity opens a provider from cfg, saves e and closes the connection
func SaveEntity[T entity.Entity](ctx context.Context, cfg config.DatabaseConfig, e T, opts ...Option) common.Response[int64] {
	if isNil(e) {
		return common.Fail[int64](MessageInvalidEntity, ErrInvalidEntity)
	}
	p, resp, ok := openStandalone[T, int64](ctx, cfg, opts)
	if !ok {
		return resp
	}
	defer p.Close()
	return p.Save(ctx, e, nil)
}

// SaveEntities opens a provider from cfg, saves list and closes the connection
func SaveEntities[T entity.Entity](ctx context.Context, cfg config.DatabaseConfig, list []T, opts ...Option) common.Response[[]int64] {
	if len(list) == 0 {
		return common.Fail[[]int64](MessageInvalidEntityList, ErrInvalidEntity)
	}
	p, resp, ok := openStandalone[T, []int64](ctx, cfg, opts)
	if !ok {
		return resp
	}
	defer p.Close()
	return p.SaveMany(ctx, list, nil)
}

// DeleteEntity opens a provider from cfg, soft-deletes e and closes the connection
func DeleteEntity[T entity.Entity](ctx context.Context, cfg config.DatabaseConfig, e T, opts ...Option) common.Response[bool] {
	if isNil(e) {
		return common.Fail[bool](MessageInvalidEntity, ErrInvalidEntity)
	}
	if e.GetID() <= 0 {
		return common.Fail[bool](MessageInvalidDeleteKey, ErrInvalidPrimaryKey)
	}
	p, resp, ok := openStandalone[T, bool](ctx, cfg, opts)
	if !ok {
		return resp
	}
	defer p.Close()
	return p.Delete(ctx, e.GetID(), nil)
}

func openStandalone[T entity.Entity, R any](ctx context.Context, cfg config.DatabaseConfig, opts []Option) (*Provider[T], common.Response[R], bool) {
	factory, err := NewFactory[T]()
	if err != nil {
		return nil, common.Fail[R](MessageInvalidEntity, err), false
	}
	p, err := Open(ctx, cfg, factory, opts...)
	if err != nil {
		return nil, common.Fail[R](MessageConnection, err), false
	}
	return p, common.Response[R]{}, true
}
