package common

import "errors"

const (
	MessageSuccess = "The current task has been executed as requested correctly."
	MessageFailure = "The current task could not be solved as you requested, try again in a diferent way."
	MessageNoRows  = "The current sql statement has been executed as requested correctly, however, it did not returned any response."
)

// Response is the result of every data provider operation. Expected failures
// are reported through Correct and Message instead of a returned error.
type Response[T any] struct {
	Correct bool   `json:"correct"`
	Message string `json:"message"`
	Model   T      `json:"model"`
	Err     error  `json:"-"`
}

// OK wraps a successful result
func OK[T any](model T) Response[T] {
	return Response[T]{Correct: true, Message: MessageSuccess, Model: model}
}

// Fail reports an expected failure with a descriptive message. err may be nil.
func Fail[T any](message string, err error) Response[T] {
	if message == "" {
		message = MessageFailure
	}
	return Response[T]{Message: message, Err: err}
}

// FromError reports an execution failure, using the error text as the message
func FromError[T any](err error) Response[T] {
	if err == nil {
		return Fail[T]("", nil)
	}
	return Response[T]{Message: err.Error(), Err: err}
}

// WithModel returns a copy of r carrying model, keeping its status
func (r Response[T]) WithModel(model T) Response[T] {
	r.Model = model
	return r
}

// Is reports whether the response failed with target somewhere in its error chain
func (r Response[T]) Is(target error) bool {
	return r.Err != nil && errors.Is(r.Err, target)
}

// Convert carries the status of r over to a response of another model type
func Convert[T, U any](r Response[T], model U) Response[U] {
	return Response[U]{Correct: r.Correct, Message: r.Message, Model: model, Err: r.Err}
}
