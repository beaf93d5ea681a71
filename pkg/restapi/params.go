package restapi

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/bitechdev/DataProvider/pkg/entity"
	"github.com/bitechdev/DataProvider/pkg/pagination"
	"github.com/bitechdev/DataProvider/pkg/query"
)

// ErrBadRequest marks malformed query parameters or bodies
var ErrBadRequest = errors.New("bad request")

var timeType = reflect.TypeOf(time.Time{})

// operatorAliases are the short operator names accepted in filter params
var operatorAliases = map[string]query.Operator{
	"eq":    query.Equal,
	"ne":    query.NotEqual,
	"lt":    query.LessThan,
	"le":    query.LessOrEqual,
	"gt":    query.GreaterThan,
	"ge":    query.GreaterOrEqual,
	"diff":  query.Different,
	"is":    query.Is,
	"isnot": query.IsNot,
	"like":  query.Like,
	"in":    query.In,
	"nin":   query.NotIn,
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// parsePagination reads page, size, keywords, include_all, start and end
func parsePagination(q url.Values) (*pagination.Pagination, error) {
	pg := pagination.New()

	if v := q.Get("page"); v != "" {
		page, err := cast.ToInt64E(v)
		if err != nil {
			return nil, badRequest("page %q is not an integer", v)
		}
		pg.RequestedIndex = page
	}
	if v := q.Get("size"); v != "" {
		size, err := cast.ToInt64E(v)
		if err != nil {
			return nil, badRequest("size %q is not an integer", v)
		}
		pg.PageSize = size
	}
	if v := q.Get("include_all"); v != "" {
		all, err := cast.ToBoolE(v)
		if err != nil {
			return nil, badRequest("include_all %q is not a boolean", v)
		}
		pg.IncludeAll = all
	}
	pg.KeyWords = q.Get("keywords")

	var err error
	if pg.Start, err = parseTime(q.Get("start")); err != nil {
		return nil, badRequest("start: %v", err)
	}
	if pg.End, err = parseTime(q.Get("end")); err != nil {
		return nil, badRequest("end: %v", err)
	}
	return pg, nil
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return cast.ToTimeE(v)
}

// parseColumns splits the comma separated columns param
func parseColumns(q url.Values) []string {
	var columns []string
	for _, raw := range q["columns"] {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				columns = append(columns, c)
			}
		}
	}
	return columns
}

// parseFilters turns every filter=Property:operator:value param into a
// condition. Values are converted to the column's Go type; In and NotIn take
// a comma separated list and "null" is accepted for pointer columns.
func parseFilters(schema *entity.Schema, q url.Values) ([]query.Condition, error) {
	raw := q["filter"]
	conditions := make([]query.Condition, 0, len(raw))
	for _, f := range raw {
		parts := strings.SplitN(f, ":", 3)
		if len(parts) != 3 {
			return nil, badRequest("filter %q must be Property:operator:value", f)
		}
		property, opName, text := parts[0], parts[1], parts[2]

		op, err := parseOperator(opName)
		if err != nil {
			return nil, err
		}
		col, ok := schema.Column(property)
		if !ok {
			return nil, fmt.Errorf("%w: %s", query.ErrUnknownColumn, property)
		}

		var v any
		if op == query.In || op == query.NotIn {
			items := strings.Split(text, ",")
			list := make([]any, 0, len(items))
			for _, item := range items {
				converted, err := convert(col.Type, strings.TrimSpace(item))
				if err != nil {
					return nil, badRequest("filter %s: %v", property, err)
				}
				list = append(list, converted)
			}
			v = list
		} else if v, err = convert(col.Type, text); err != nil {
			return nil, badRequest("filter %s: %v", property, err)
		}
		conditions = append(conditions, query.NewCondition(property, op, v))
	}
	return conditions, nil
}

func parseOperator(name string) (query.Operator, error) {
	if op, ok := operatorAliases[strings.ToLower(name)]; ok {
		return op, nil
	}
	op, err := query.ParseOperator(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return op, nil
}

// convert parses text as a value of typ
func convert(typ reflect.Type, text string) (any, error) {
	if typ.Kind() == reflect.Ptr {
		if strings.EqualFold(text, "null") {
			return nil, nil
		}
		typ = typ.Elem()
	}
	if typ == timeType {
		return cast.ToTimeE(text)
	}
	switch typ.Kind() {
	case reflect.String:
		return text, nil
	case reflect.Bool:
		return cast.ToBoolE(text)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cast.ToInt64E(text)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cast.ToUint64E(text)
	case reflect.Float32, reflect.Float64:
		return cast.ToFloat64E(text)
	default:
		return text, nil
	}
}

// parseIDs reads the comma separated ids param of a batch delete
func parseIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, badRequest("ids is required")
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := cast.ToInt64E(strings.TrimSpace(p))
		if err != nil {
			return nil, badRequest("id %q is not an integer", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
