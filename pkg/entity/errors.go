package entity

import "errors"

var (
	ErrInvalidEntity   = errors.New("invalid entity")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrMissingColumn   = errors.New("missing required column")
	ErrAssign          = errors.New("cannot assign column value")
)
