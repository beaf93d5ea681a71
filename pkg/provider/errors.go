package provider

import (
	"errors"
	"fmt"

	"github.com/bitechdev/DataProvider/pkg/command"
	"github.com/bitechdev/DataProvider/pkg/query"
)

// Messages reported through common.Response on validation failures
const (
	MessageInvalidPrimaryKey  = "The specified primary key is not valid."
	MessageUnknownColumns     = "The supplied columns does not exist in the current entity."
	MessageInvalidDeleteKey   = "The specified primary key is not valid for delete operation."
	MessageInvalidDeleteKeys  = "The primary key list specified is not valid for delete operation."
	MessageInvalidTransaction = "The specified shared transaction is not valid for delete operation."
	MessageInvalidEntity      = "The specified entity is not valid for saving operation."
	MessageInvalidEntityList  = "The specified entity list is not valid for saving operation."
	MessageInvalidPagination  = "The specified pagination instance is not valid."
	MessageInvalidConditions  = "The supplied conditions could not be translated for the current entity."
	MessageConnection         = "The database connection could not be established, the task could not be completed as requested."
)

var (
	ErrInvalidPrimaryKey  = errors.New("invalid primary key")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidEntity      = errors.New("invalid entity")
	ErrInvalidPagination  = errors.New("invalid pagination")
	ErrInvalidCondition   = errors.New("invalid condition")
	ErrUnknownColumn      = query.ErrUnknownColumn
	ErrNoRows             = command.ErrNoRows

	// ErrIncompleteDelete is reported when fewer rows than requested were soft-deleted
	ErrIncompleteDelete = errors.New("not every requested row was deleted")

	// ErrIncompleteSave is reported when an entity resolved to id 0
	ErrIncompleteSave = errors.New("not every entity was saved")

	ErrTransactionDone = errors.New("transaction has already been committed or rolled back")
)

// OperationError records which entity operation failed
type OperationError struct {
	Entity    string
	Operation string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Entity, e.Operation, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// expected reports failures that are part of normal operation and are not
// sent to the error tracker
func expected(err error) bool {
	return errors.Is(err, ErrInvalidPrimaryKey) ||
		errors.Is(err, ErrInvalidTransaction) ||
		errors.Is(err, ErrInvalidEntity) ||
		errors.Is(err, ErrInvalidPagination) ||
		errors.Is(err, ErrInvalidCondition) ||
		errors.Is(err, ErrUnknownColumn) ||
		errors.Is(err, query.ErrUnknownOperator) ||
		errors.Is(err, ErrNoRows) ||
		errors.Is(err, ErrIncompleteDelete) ||
		errors.Is(err, ErrIncompleteSave)
}
