package entity

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"time"

	"github.com/bitechdev/DataProvider/pkg/common"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	stringType  = reflect.TypeOf("")
	bytesType   = reflect.TypeOf([]byte(nil))
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// Column describes one persistable field
type Column struct {
	Name       string
	Field      string
	Index      []int
	Type       reflect.Type
	Searchable bool
}

// Schema is the column layout of one entity type. It is built once per type
// and shared; treat it as read-only.
type Schema struct {
	Type    reflect.Type
	Name    string
	Schema  string
	Columns []Column
	byName  map[string]int
}

// Table returns the quoted table reference, e.g. [dbo].[Customer]
func (s *Schema) Table() string {
	return fmt.Sprintf("[%s].[%s]", s.Schema, s.Name)
}

// OperationColumns returns every persistable column in declaration order
func (s *Schema) OperationColumns() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// SearchableColumns returns the text columns used for keyword search
func (s *Schema) SearchableColumns() []string {
	names := make([]string, 0)
	for _, c := range s.Columns {
		if c.Searchable {
			names = append(names, c.Name)
		}
	}
	return names
}

// Column looks a column up by exact name
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Column{}, false
	}
	return s.Columns[i], true
}

// HasColumn reports whether name is a column of the schema (case-sensitive)
func (s *Schema) HasColumn(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// HasColumns reports whether every name is a column of the schema
func (s *Schema) HasColumns(names ...string) bool {
	for _, n := range names {
		if !s.HasColumn(n) {
			return false
		}
	}
	return true
}

// buildSchema walks the struct type, flattening embedded structs
func buildSchema(model any) (*Schema, error) {
	typ := reflect.TypeOf(model)
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T is not a struct", ErrInvalidEntity, model)
	}

	s := &Schema{
		Type:    typ,
		Name:    typ.Name(),
		Schema:  common.DefaultSchema,
		Columns: make([]Column, 0, typ.NumField()),
		byName:  make(map[string]int),
	}

	instance := reflect.New(typ).Interface()
	if p, ok := instance.(common.TableNameProvider); ok && p.TableName() != "" {
		s.Name = p.TableName()
	}
	if p, ok := instance.(common.SchemaProvider); ok && p.SchemaName() != "" {
		s.Schema = p.SchemaName()
	}

	if err := collectColumns(typ, nil, s); err != nil {
		return nil, err
	}
	return s, nil
}

func collectColumns(typ reflect.Type, parent []int, s *Schema) error {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		index := append(append([]int{}, parent...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct && !persistable(field.Type) {
			if err := collectColumns(field.Type, index, s); err != nil {
				return err
			}
			continue
		}
		if !field.IsExported() {
			continue
		}

		name := columnName(field)
		if name == "" || !persistable(field.Type) {
			continue
		}
		if _, exists := s.byName[name]; exists {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateColumn, s.Type.Name(), name)
		}

		s.byName[name] = len(s.Columns)
		s.Columns = append(s.Columns, Column{
			Name:       name,
			Field:      field.Name,
			Index:      index,
			Type:       field.Type,
			Searchable: field.Type == stringType || field.Type == reflect.PointerTo(stringType),
		})
	}
	return nil
}

// columnName uses the db tag when present; "-" skips the field
func columnName(field reflect.StructField) string {
	tag := field.Tag.Get("db")
	if tag == "-" {
		return ""
	}
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			tag = tag[:i]
			break
		}
	}
	if tag != "" {
		return tag
	}
	return field.Name
}

// persistable accepts primitives, enums over primitives, time.Time, []byte,
// pointers to those and sql.Scanner / driver.Valuer implementors.
func persistable(t reflect.Type) bool {
	if t.Implements(valuerType) || reflect.PointerTo(t).Implements(scannerType) {
		return true
	}
	if t == timeType || t == bytesType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	case reflect.Ptr:
		elem := t.Elem()
		return elem.Kind() != reflect.Ptr && persistable(elem)
	}
	return false
}
