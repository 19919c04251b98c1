package sms

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
)

var (
	ErrNotFound        = errors.New("the requested record could not be found")
	ErrConflict        = errors.New("a record with the same id already exists")
	ErrStorage         = errors.New("an error occured in the storage backend")
	ErrValidation      = errors.New("one or more fields failed validation")
	ErrDecodingFailure = errors.New("value could not be decoded from storage format")
	ErrBadArgument     = errors.New("one or more of the arguments is invalid")
	ErrClosed          = errors.New("operation called on closed store")
)

// Error is a typed error returned by functions in sms and its sub-packages. It
// contains both a message explaining what happened as well as one or more
// error values it considers to be its causes. Calling errors.Is on an Error
// along with any error it holds as one of its causes will return true, which
// allows failure conditions to be checked without typecasting.
//
// If Error has at least one cause defined, the result of calling Error.Error()
// will be its primary message with the result of calling Error() on its first
// cause appended to it.
//
// Error should not be used directly; call NewError to create one.
type Error struct {
	msg   string
	cause []error
}

// Error returns the message defined for the Error, concatenated with the result
// of calling Error() on its first cause if one is defined. If no message was
// defined but there is a cause, only the first cause's message is returned.
func (e Error) Error() string {
	if e.msg == "" && e.cause != nil {
		return e.cause[0].Error()
	}

	if e.cause != nil {
		return e.msg + ": " + e.cause[0].Error()
	}

	return e.msg
}

// Unwrap returns the causes of Error. The return value will be nil if no causes
// were defined for it.
func (e Error) Unwrap() []error {
	if len(e.cause) > 0 {
		return e.cause
	}
	return nil
}

// Is returns whether Error either Is itself the given target error, or one of
// its causes is.
func (e Error) Is(target error) bool {
	errTarget, ok := target.(Error)
	if !ok || e.msg != errTarget.msg || len(e.cause) != len(errTarget.cause) {
		return false
	}

	for i := range e.cause {
		if e.cause[i] != errTarget.cause[i] {
			return false
		}
	}
	return true
}

// NewError creates a new Error with the given message, along with any errors it
// should wrap as its causes.
func NewError(msg string, causes ...error) Error {
	err := Error{msg: msg}
	if len(causes) > 0 {
		err.cause = make([]error, len(causes))
		copy(err.cause, causes)
	}
	return err
}

// NotFoundError is returned when a record with a particular ID does not exist
// in the collection for an entity type.
type NotFoundError struct {
	EntityType string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s record with id %q not found", e.EntityType, e.ID)
}

// Is returns true for ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError is returned when a record is created with an ID that another
// record of the same entity type already has.
type ConflictError struct {
	EntityType string
	ID         string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s record with id %q already exists", e.EntityType, e.ID)
}

// Is returns true for ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// FieldError is used to indicate an error with a specific field of input.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is returned by services when input is rejected before it
// reaches the store.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

// NewValidationError creates a ValidationError with err as its cause.
func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

// Validationf creates a ValidationError for a single field with a formatted
// message.
func Validationf(field, format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)
	return &ValidationError{
		Err:    errors.New(field + ": " + msg),
		Fields: []FieldError{{Field: field, Error: msg}},
	}
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}

	msgs := make([]string, len(e.Fields))
	for i := range e.Fields {
		msgs[i] = e.Fields[i].Field + ": " + e.Fields[i].Error
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is returns true for ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func convertStorageError(err error) error {
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		primaryCode := sqliteErr.Code() & 0xff
		if primaryCode == 19 {
			// preserve the error message for constraints violations
			return NewError(ErrConflict.Error(), err, ErrConflict)
		} else if primaryCode == 1 {
			// generic error; the code string would say nothing useful
			return err
		}

		return NewError(sqlite.ErrorCodeString[sqliteErr.Code()], err)
	} else if errors.Is(err, sql.ErrNoRows) {
		return NewError(ErrNotFound.Error(), err, ErrNotFound)
	}

	return err
}

// WrapStorageError creates a new Error that wraps the given error as a cause
// and automatically adds ErrStorage as another cause. A message may be
// provided with msg, which is passed to fmt.Sprint.
//
// The wrapped error is converted to an Error of the appropriate sms type if
// possible; e.g. SQLite constraint violations will return true for
// errors.Is(err, sms.ErrConflict).
func WrapStorageError(err error, msg ...any) Error {
	err = convertStorageError(err)

	var errMsg string
	if len(msg) > 0 {
		errMsg = fmt.Sprint(msg...)
	}

	return Error{
		msg:   errMsg,
		cause: []error{err, ErrStorage},
	}
}

// WrapStorageErrorf is WrapStorageError with a formatted message.
func WrapStorageErrorf(err error, format string, a ...any) Error {
	err = convertStorageError(err)

	return Error{
		msg:   fmt.Sprintf(format, a...),
		cause: []error{err, ErrStorage},
	}
}
