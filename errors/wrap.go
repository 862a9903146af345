// Package errors mirrors the github.com/pkg/errors API and adds coded user facing errors.
//
// Every wrap records a stack, but StackTrace drops traces that share a caller with the wrapped
// error, so a logged error typically carries only its root trace.
package errors

import (
	stderrors "errors" //nolint: depguard
	"fmt"
	"io"
	"runtime"

	"github.com/pkg/errors" //nolint: depguard
)

// New returns an error with the supplied message and records the stack.
func New(message string) error {
	return newStackErr(nil, message)
}

// Errorf formats according to a format specifier and records the stack.
func Errorf(format string, args ...interface{}) error {
	return newStackErr(nil, fmt.Sprintf(format, args...))
}

// Wrapf annotates err with the formatted message and a stack. Returns nil if err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return newStackErr(err, fmt.Sprintf(format, args...))
}

// Wrap annotates err with message and a stack. Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return newStackErr(err, message)
}

// WithStack annotates err with a stack. Returns nil if err is nil.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return newStackErr(err, "")
}

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

type stackErr struct {
	cause error
	stack errors.StackTrace
	msg   string
}

func newStackErr(cause error, msg string) error {
	// drop this frame and the public api frame (e.g Wrapf)
	stack := errors.New("").(stackTracer).StackTrace()[2:]
	return &stackErr{
		cause: cause,
		stack: stack,
		msg:   msg,
	}
}

func (e *stackErr) Error() string {
	if e.cause != nil {
		if e.msg != "" {
			return e.msg + ": " + e.cause.Error()
		}
		return e.cause.Error()
	}
	return e.msg
}

func (e *stackErr) Cause() error {
	return e.cause
}

func (e *stackErr) Unwrap() error { return e.cause }

// StackTrace returns nil when the cause already carries a stack recorded by the same caller chain.
func (e *stackErr) StackTrace() errors.StackTrace {
	var cStack errors.StackTrace
	if sCause, ok := e.cause.(stackTracer); ok {
		if pCause, ok := e.cause.(*stackErr); ok {
			// read the raw stack, calling StackTrace on the cause could return nil
			cStack = pCause.stack
		} else {
			cStack = sCause.StackTrace()
		}
	}
	if cStack == nil || len(cStack) < len(e.stack) {
		return e.stack
	}
	for i := 1; i < len(e.stack); i++ {
		if cStack[len(cStack)-i] != e.stack[len(e.stack)-i] {
			return e.stack
		}
	}
	// the top frames differ by line when the idiom is `return errors.WithStack(err)`, compare functions only
	if sameFn(cStack[len(cStack)-len(e.stack)], e.stack[0]) {
		return nil
	}
	return e.stack
}

func sameFn(f1 errors.Frame, f2 errors.Frame) bool {
	return file(f1) == file(f2) && name(f1) == name(f2)
}

func pc(f errors.Frame) uintptr { return uintptr(f) - 1 }

func file(f errors.Frame) string {
	fn := runtime.FuncForPC(pc(f))
	if fn == nil {
		return "unknown"
	}
	file, _ := fn.FileLine(pc(f))
	return file
}

func name(f errors.Frame) string {
	fn := runtime.FuncForPC(pc(f))
	if fn == nil {
		return "unknown"
	}
	return fn.Name()
}

// nolint:errcheck
func (e *stackErr) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			if e.cause != nil {
				fmt.Fprintf(s, "%+v", e.cause)
			}
			if e.msg != "" {
				if e.cause != nil {
					io.WriteString(s, "\n")
				}
				fmt.Fprintf(s, "%s", e.msg)
			}
			if stack := e.StackTrace(); stack != nil {
				fmt.Fprintf(s, "%+v", stack)
			}
		} else {
			io.WriteString(s, e.Error())
		}
	case 's':
		io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}
