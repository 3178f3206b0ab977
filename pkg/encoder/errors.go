package encoder

import (
	"errors"
)

var (
	errOutOfBounds     = errors.New("value out of bounds")
	errUnknownField    = errors.New("unknown input field")
	errUnknownCategory = errors.New("value not in allowed set")
	errNotNumeric      = errors.New("value is not a finite number")
	errDuplicateField  = errors.New("field supplied more than once")
)

// ValidationError reports raw input the pipeline refuses to encode.
type ValidationError struct {
	Field  string
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
