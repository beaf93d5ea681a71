package query

import (
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/bitechdev/DataProvider/pkg/value"
)

// MaxConditions is the SQL Server parameter limit; longer lists are not translated
const MaxConditions = 2100

// Parameter is a named value bound to the command. Name carries no @ prefix.
type Parameter struct {
	Name  string
	Value value.Value
}

// Named builds a parameter
func Named(name string, v value.Value) Parameter {
	return Parameter{Name: strings.TrimPrefix(name, "@"), Value: v}
}

// ToSQL renders conditions as `(Property op @Pn)` terms joined by And. Parameter
// names follow the condition position. In/NotIn over a string or numeric
// collection are inlined as a literal list and bind no parameter. An empty or
// oversized condition list yields an empty predicate.
func ToSQL(conditions []Condition) (string, []Parameter, error) {
	if len(conditions) == 0 || len(conditions) > MaxConditions {
		return "", nil, nil
	}

	var sb strings.Builder
	params := make([]Parameter, 0, len(conditions))

	for x, c := range conditions {
		if x > 0 {
			sb.WriteString(" And ")
		}
		name := "P" + strconv.Itoa(x)
		placeholder := "@" + name

		if !c.Operator.Valid() {
			return "", nil, fmt.Errorf("%w: condition %d uses %d", ErrUnknownOperator, x, int(c.Operator))
		}

		if c.Operator == In || c.Operator == NotIn {
			list, isList, err := literalList(c.Value)
			if err != nil {
				return "", nil, fmt.Errorf("condition %d (%s): %w", x, c.Property, err)
			}
			if isList {
				sb.WriteString(inlineTerm(c.Property, c.Operator, list))
				continue
			}
		}

		v, err := value.Of(c.Value)
		if err == nil && v.Kind() == value.KindFloat64 {
			f, _ := v.Float64()
			err = finite(f)
		}
		if err != nil {
			return "", nil, fmt.Errorf("condition %d (%s): %w", x, c.Property, err)
		}
		params = append(params, Parameter{Name: name, Value: v})

		switch c.Operator {
		case Like:
			fmt.Fprintf(&sb, "(%s Like '%%' + %s + '%%')", c.Property, placeholder)
		case In:
			fmt.Fprintf(&sb, "(%s = %s)", c.Property, placeholder)
		case NotIn:
			fmt.Fprintf(&sb, "(%s <> %s)", c.Property, placeholder)
		default:
			fmt.Fprintf(&sb, "(%s %s %s)", c.Property, c.Operator.SQL(), placeholder)
		}
	}

	return sb.String(), params, nil
}

func inlineTerm(property string, op Operator, list []string) string {
	if len(list) == 0 {
		if op == In {
			return "(1 = 0)"
		}
		return "(1 = 1)"
	}
	sep := ", "
	if strings.HasPrefix(list[0], "N'") {
		sep = ","
	}
	return fmt.Sprintf("(%s %s (%s))", property, op.SQL(), strings.Join(list, sep))
}

// literalList renders a string or numeric slice as SQL literals. isList is
// false for scalars, which are then bound as a regular parameter.
func literalList(v any) (list []string, isList bool, err error) {
	if v == nil {
		return nil, false, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false, nil
	}
	elem := rv.Type().Elem()
	if elem.Kind() == reflect.Uint8 && rv.Kind() == reflect.Slice {
		// []byte is a single binary value
		return nil, false, nil
	}

	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item := rv.Index(i)
		for item.Kind() == reflect.Interface || item.Kind() == reflect.Ptr {
			if item.IsNil() {
				return nil, true, fmt.Errorf("%w: nil element %d in list", value.ErrUnsupportedValue, i)
			}
			item = item.Elem()
		}
		switch item.Kind() {
		case reflect.String:
			out = append(out, "N'"+strings.ReplaceAll(item.String(), "'", "''")+"'")
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out = append(out, strconv.FormatInt(item.Int(), 10))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out = append(out, strconv.FormatUint(item.Uint(), 10))
		case reflect.Float32, reflect.Float64:
			if err := finite(item.Float()); err != nil {
				return nil, true, err
			}
			out = append(out, strconv.FormatFloat(item.Float(), 'f', -1, 64))
		default:
			return nil, true, fmt.Errorf("%w: %s element in list", value.ErrUnsupportedValue, item.Type())
		}
	}
	if len(out) > 0 {
		quoted := strings.HasPrefix(out[0], "N'")
		for _, s := range out[1:] {
			if strings.HasPrefix(s, "N'") != quoted {
				return nil, true, fmt.Errorf("%w: list mixes text and numbers", value.ErrUnsupportedValue)
			}
		}
	}
	return out, true, nil
}

// finite rejects NaN and infinities, which SQL Server floats cannot hold
func finite(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %v is not a finite number", value.ErrUnsupportedValue, f)
	}
	return nil
}

// Params converts parameters into database/sql named arguments
func Params(params []Parameter) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = namedArg(p)
	}
	return args
}

func namedArg(p Parameter) sql.NamedArg {
	return sql.Named(p.Name, p.Value.Any())
}
