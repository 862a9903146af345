package errors

import (
	"fmt"
)

type ErrorCode int

const (
	InternalError = iota
	InvalidConfiguration
	InvalidQuery
	InvalidBlockSize
	CursorClosed
	UnknownColumn
	InvalidLimit
	InvalidCommand
	UnknownTable
	TypeMismatch
)

func NewInternalError(msg string) LazyError {
	return NewLazyErrorf(InternalError, "Internal error - %s", msg)
}

func NewInvalidConfigurationError(msg string) LazyError {
	return NewLazyErrorf(InvalidConfiguration, "Invalid configuration: %s", msg)
}

func NewInvalidQueryError(msg string) LazyError {
	return NewLazyErrorf(InvalidQuery, "Invalid query: %s", msg)
}

func NewInvalidBlockSizeError(blockSize int) LazyError {
	return NewLazyErrorf(InvalidBlockSize, "Block size must be > 0, got %d", blockSize)
}

func NewCursorClosedError() LazyError {
	return NewLazyErrorf(CursorClosed, "Cursor is closed")
}

func NewUnknownColumnError(columnName string) LazyError {
	return NewLazyErrorf(UnknownColumn, "Unknown column: %s", columnName)
}

func NewInvalidLimitError(limit string) LazyError {
	return NewLazyErrorf(InvalidLimit, "Invalid limit %q, expected <count> or <offset>,<count>", limit)
}

func NewInvalidCommandError(msg string) LazyError {
	return NewLazyErrorf(InvalidCommand, "%s", msg)
}

func NewUnknownTableError(tableName string) LazyError {
	return NewLazyErrorf(UnknownTable, "Unknown table: %s", tableName)
}

func NewTypeMismatchError(tableName string, colName string, value interface{}) LazyError {
	return NewLazyErrorf(TypeMismatch, "Column %s.%s cannot hold value of type %T", tableName, colName, value)
}

func NewLazyErrorf(errorCode ErrorCode, msgFormat string, args ...interface{}) LazyError {
	msg := fmt.Sprintf(fmt.Sprintf("LZR%04d - %s", errorCode, msgFormat), args...)
	return LazyError{Code: errorCode, Msg: msg}
}

func NewLazyError(errorCode ErrorCode, msg string) LazyError {
	return LazyError{Code: errorCode, Msg: msg}
}

// LazyError is any kind of error that is exposed to the user via external interfaces like the shell
type LazyError struct {
	Code ErrorCode
	Msg  string
}

func (u LazyError) Error() string {
	return u.Msg
}

// HasCode reports whether err, or any error it wraps, is a LazyError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var le LazyError
	if !As(err, &le) {
		return false
	}
	return le.Code == code
}

// MaybeAddStack adds a stack to err unless it is a LazyError, which is returned to the user as is.
func MaybeAddStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(LazyError); ok {
		return err
	}
	return WithStack(err)
}
