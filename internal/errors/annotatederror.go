// Package errors extends the standard library errors with annotations and stack traces that render nicely with
// log/slog.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
)

const maxStackDepth = 32

// annotatedError adds a message, structured attributes and the call stack to an underlying error.
type annotatedError struct {
	err     error
	msg     string
	attrs   []slog.Attr
	callers []uintptr
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	if e.msg == "" {
		return e.err.Error()
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// NewSentinel creates a plain error without a stack trace. It is meant for package level sentinel values.
func NewSentinel(text string) error {
	return stderrors.New(text) //nolint:err113 // this is the sentinel constructor.
}

// New creates an error annotated with the caller's stack trace.
func New(text string, attrs ...slog.Attr) error {
	return &annotatedError{
		err:     nil,
		msg:     text,
		attrs:   attrs,
		callers: callers(),
	}
}

// Wrap annotates err with msg and attrs. It returns nil when err is nil.
//
// The stack trace is only recorded for the innermost annotation so that the log points to where the error was
// first seen.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	var stack []uintptr
	var inner *annotatedError
	if !stderrors.As(err, &inner) {
		stack = callers()
	}
	return &annotatedError{
		err:     err,
		msg:     msg,
		attrs:   attrs,
		callers: stack,
	}
}

// DecoratePanic converts the value returned by recover into an error carrying the panicking stack trace.
func DecoratePanic(recovered any) error {
	if recovered == nil {
		return nil
	}
	var err error
	switch v := recovered.(type) {
	case error:
		err = v
	default:
		err = NewSentinel(fmt.Sprint(v))
	}
	return &annotatedError{
		err:     err,
		msg:     "panic",
		attrs:   nil,
		callers: callers(),
	}
}

// SlogError renders err as a slog group with the message, all annotations found in the chain, and the stack trace.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}

	var (
		annotations []any
		stack       []uintptr
	)
	walk(err, func(e *annotatedError) {
		for _, a := range e.attrs {
			annotations = append(annotations, a)
		}
		if len(e.callers) > 0 {
			stack = e.callers
		}
	})

	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if len(stack) > 0 {
		attrs = append(attrs, slog.String("stack_trace", formatStack(stack)))
	}
	return slog.Group("error", attrs...)
}

// walk visits every annotatedError in the tree of err, including errors joined with [Join].
func walk(err error, visit func(*annotatedError)) {
	if err == nil {
		return
	}
	if ae, ok := err.(*annotatedError); ok { //nolint:errorlint // the tree is traversed manually.
		visit(ae)
	}
	switch u := err.(type) { //nolint:errorlint // the tree is traversed manually.
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			walk(inner, visit)
		}
	case interface{ Unwrap() error }:
		walk(u.Unwrap(), visit)
	}
}

func callers() []uintptr {
	pcs := make([]uintptr, maxStackDepth)
	// Skip runtime.Callers, callers and the exported constructor.
	n := runtime.Callers(3, pcs) //nolint:mnd // see above.
	return pcs[:n]
}

func formatStack(pcs []uintptr) string {
	var sb strings.Builder
	frames := runtime.CallersFrames(pcs)
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(frame.Function)
			sb.WriteString(" ")
			sb.WriteString(frame.File)
			sb.WriteString(":")
			sb.WriteString(strconv.Itoa(frame.Line))
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// Is reports whether any error in err's tree matches target. See [errors.Is].
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target. See [errors.As].
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err. See [errors.Unwrap].
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors. See [errors.Join].
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
