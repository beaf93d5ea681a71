// Package query translates structured filter conditions into parameterized SQL Server predicates.
package query

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrUnknownOperator = errors.New("unknown operator")
)

// Operator is the comparison applied by a Condition
type Operator int

const (
	Equal Operator = iota
	LessThan
	LessOrEqual
	NotEqual
	GreaterThan
	GreaterOrEqual
	Different
	Is
	IsNot
	Like
	In
	NotIn
)

var operatorNames = map[Operator]string{
	Equal:          "Equal",
	LessThan:       "LessThan",
	LessOrEqual:    "LessOrEqual",
	NotEqual:       "NotEqual",
	GreaterThan:    "GreaterThan",
	GreaterOrEqual: "GreaterOrEqual",
	Different:      "Different",
	Is:             "Is",
	IsNot:          "IsNot",
	Like:           "Like",
	In:             "In",
	NotIn:          "NotIn",
}

// sqlOperators holds the SQL fragment of every operator that binds a parameter
var sqlOperators = map[Operator]string{
	Equal:          "=",
	LessThan:       "<",
	LessOrEqual:    "<=",
	NotEqual:       "!=",
	GreaterThan:    ">",
	GreaterOrEqual: ">=",
	Different:      "<>",
	Is:             "Is",
	IsNot:          "Is Not",
	Like:           "Like",
	In:             "In",
	NotIn:          "Not In",
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// SQL returns the SQL fragment for the operator
func (o Operator) SQL() string {
	return sqlOperators[o]
}

// Valid reports whether o is one of the defined operators
func (o Operator) Valid() bool {
	_, ok := operatorNames[o]
	return ok
}

// ParseOperator resolves an operator by name, case-sensitive
func ParseOperator(name string) (Operator, error) {
	for op, n := range operatorNames {
		if n == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOperator, name)
}

// Condition is one (property, operator, value) filter term. Conditions in a
// list are combined with And.
type Condition struct {
	Property string   `json:"property"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// NewCondition builds a condition from its parts
func NewCondition(property string, op Operator, v any) Condition {
	return Condition{Property: property, Operator: op, Value: v}
}

// Eq matches property = v
func Eq(property string, v any) Condition {
	return NewCondition(property, Equal, v)
}

// Ne matches property <> v
func Ne(property string, v any) Condition {
	return NewCondition(property, NotEqual, v)
}

// Lt matches property < v
func Lt(property string, v any) Condition {
	return NewCondition(property, LessThan, v)
}

// Le matches property <= v
func Le(property string, v any) Condition {
	return NewCondition(property, LessOrEqual, v)
}

// Gt matches property > v
func Gt(property string, v any) Condition {
	return NewCondition(property, GreaterThan, v)
}

// Ge matches property >= v
func Ge(property string, v any) Condition {
	return NewCondition(property, GreaterOrEqual, v)
}

// Contains matches property Like '%v%'
func Contains(property string, v string) Condition {
	return NewCondition(property, Like, v)
}

// InList matches property against a string or numeric slice; a scalar degrades to Eq
func InList(property string, values any) Condition {
	return NewCondition(property, In, values)
}

// NotInList excludes a string or numeric slice; a scalar degrades to Ne
func NotInList(property string, values any) Condition {
	return NewCondition(property, NotIn, values)
}

// Validate checks that every condition names a known column and a defined operator
func Validate(conditions []Condition, hasColumn func(string) bool) error {
	for i, c := range conditions {
		if !hasColumn(c.Property) {
			return fmt.Errorf("%w: condition %d references %q", ErrUnknownColumn, i, c.Property)
		}
		if !c.Operator.Valid() {
			return fmt.Errorf("%w: condition %d uses %d", ErrUnknownOperator, i, int(c.Operator))
		}
	}
	return nil
}

// MarshalText encodes the operator by name
func (o Operator) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOperator, int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText decodes an operator name
func (o *Operator) UnmarshalText(text []byte) error {
	op, err := ParseOperator(string(text))
	if err != nil {
		return err
	}
	*o = op
	return nil
}
