package entity

import (
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/bitechdev/DataProvider/pkg/result"
	"github.com/bitechdev/DataProvider/pkg/value"
)

// ToArray reads every operation column of e, in declaration order
func (s *Schema) ToArray(e any) ([]value.Value, error) {
	return s.Values(e, s.OperationColumns())
}

// ToArrays reads the operation columns of every entity in list
func ToArrays[T any](s *Schema, list []T) ([][]value.Value, error) {
	out := make([][]value.Value, 0, len(list))
	for i, e := range list {
		values, err := s.ToArray(e)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		out = append(out, values)
	}
	return out, nil
}

// Values reads the named columns of e
func (s *Schema) Values(e any, columns []string) ([]value.Value, error) {
	rv, err := s.structValue(e)
	if err != nil {
		return nil, err
	}

	out := make([]value.Value, len(columns))
	for i, name := range columns {
		col, ok := s.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingColumn, s.Name, name)
		}
		fv := rv.FieldByIndex(col.Index)
		v, err := value.Of(fieldInterface(fv))
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		out[i] = v
	}
	return out, nil
}

// Row builds a result row from the operation columns of e
func (s *Schema) Row(index int, e any) (result.Row, error) {
	values, err := s.ToArray(e)
	if err != nil {
		return result.Row{}, err
	}
	return result.NewRow(index, s.OperationColumns(), values), nil
}

// Assign copies every cell whose column belongs to the schema into target.
// Unknown columns are ignored and missing columns keep their current value.
func (s *Schema) Assign(target any, row result.Row) error {
	rv, err := s.structValue(target)
	if err != nil {
		return err
	}
	if !rv.CanSet() {
		return fmt.Errorf("%w: %T is not addressable", ErrInvalidEntity, target)
	}
	for _, cell := range row.Cells {
		col, ok := s.Column(cell.ColumnName)
		if !ok {
			continue
		}
		if err := assign(rv.FieldByIndex(col.Index), cell.Value); err != nil {
			return fmt.Errorf("%w: %s.%s: %v", ErrAssign, s.Name, col.Name, err)
		}
	}
	return nil
}

// RowToEntity creates a fresh T with factory and fills it from row
func RowToEntity[T any](s *Schema, row result.Row, factory func() T) (T, error) {
	e := factory()
	if err := s.Assign(e, row); err != nil {
		var zero T
		return zero, err
	}
	return e, nil
}

// TableToEntities maps every row of table
func TableToEntities[T any](s *Schema, table *result.Table, factory func() T) ([]T, error) {
	if table == nil {
		return []T{}, nil
	}
	out := make([]T, 0, len(table.Rows))
	for _, row := range table.Rows {
		e, err := RowToEntity(s, row, factory)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row.Index, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Schema) structValue(e any) (reflect.Value, error) {
	rv := reflect.ValueOf(e)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil %T", ErrInvalidEntity, e)
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Type() != s.Type {
		return reflect.Value{}, fmt.Errorf("%w: %T does not match schema %s", ErrInvalidEntity, e, s.Name)
	}
	return rv, nil
}

// fieldInterface prefers a pointer receiver driver.Valuer when the field is addressable
func fieldInterface(fv reflect.Value) any {
	if fv.Kind() != reflect.Ptr && fv.CanAddr() && reflect.PointerTo(fv.Type()).Implements(valuerType) && !fv.Type().Implements(valuerType) {
		return fv.Addr().Interface()
	}
	return fv.Interface()
}

func assign(field reflect.Value, v value.Value) error {
	if field.CanAddr() {
		if scanner, ok := field.Addr().Interface().(sql.Scanner); ok {
			return scanner.Scan(v.Any())
		}
	}

	if field.Kind() == reflect.Ptr {
		if v.IsNull() {
			field.Set(reflect.Zero(field.Type()))
			return nil
		}
		elem := reflect.New(field.Type().Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	if v.IsNull() {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	typ := field.Type()
	switch {
	case typ == timeType || typ.ConvertibleTo(timeType) && typ.Kind() == reflect.Struct:
		t, ok := v.Time()
		if !ok {
			s, isText := v.Text()
			if !isText {
				return mismatch(v, typ)
			}
			parsed, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return err
			}
			t = parsed
		}
		field.Set(reflect.ValueOf(t).Convert(typ))
		return nil
	case typ.Kind() == reflect.Slice && typ.Elem().Kind() == reflect.Uint8:
		b, ok := v.Bytes()
		if !ok {
			return mismatch(v, typ)
		}
		field.SetBytes(append([]byte(nil), b...))
		return nil
	}

	switch typ.Kind() {
	case reflect.String:
		if s, ok := v.Text(); ok {
			field.SetString(s)
		} else {
			field.SetString(v.String())
		}
	case reflect.Bool:
		b, ok := v.Bool()
		if !ok {
			return mismatch(v, typ)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := v.Int64()
		if !ok {
			return mismatch(v, typ)
		}
		if field.OverflowInt(i) {
			return fmt.Errorf("%d overflows %s", i, typ)
		}
		field.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, ok := v.Int64()
		if !ok || i < 0 {
			return mismatch(v, typ)
		}
		if field.OverflowUint(uint64(i)) {
			return fmt.Errorf("%d overflows %s", i, typ)
		}
		field.SetUint(uint64(i))
	case reflect.Float32, reflect.Float64:
		f, ok := v.Float64()
		if !ok {
			return mismatch(v, typ)
		}
		field.SetFloat(f)
	default:
		return mismatch(v, typ)
	}
	return nil
}

func mismatch(v value.Value, typ reflect.Type) error {
	return fmt.Errorf("%s value into %s", v.Kind(), typ)
}
