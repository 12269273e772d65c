package errors_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/circuitgen/internal/errors"
	"github.com/myrjola/circuitgen/internal/testhelpers"
)

var errWeekNotFound = errors.NewSentinel("week not found")

// currentLine returns the line of its call site.
func currentLine() int {
	_, _, line, _ := runtime.Caller(1)
	return line
}

func TestWrap_Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "sentinel",
			err:  errWeekNotFound,
			want: "week not found",
		},
		{
			name: "annotated",
			err:  errors.Wrap(errWeekNotFound, "load week", slog.String("week_id", "w1")),
			want: "load week: week not found",
		},
		{
			name: "nested",
			err:  errors.Wrap(errors.Wrap(errWeekNotFound, "load week"), "regenerate day"),
			want: "regenerate day: load week: week not found",
		},
		{
			name: "new with attributes",
			err:  errors.New("usage: planner <file>", slog.Int("args", 0)),
			want: "usage: planner <file>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	if err := errors.Wrap(nil, "nothing to wrap"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestIsAsUnwrap(t *testing.T) {
	wrapped := errors.Wrap(fmt.Errorf("query: %w", errWeekNotFound), "load week")
	if !errors.Is(wrapped, errWeekNotFound) {
		t.Error("Is() = false through an annotation and a fmt wrap")
	}
	if errors.Is(wrapped, errors.NewSentinel("week not found")) {
		t.Error("Is() = true for a different sentinel with the same text")
	}
	if got := errors.Unwrap(errors.Unwrap(wrapped)); got != errWeekNotFound { //nolint:errorlint // identity check.
		t.Errorf("Unwrap() twice = %v, want the sentinel", got)
	}

	dayErr := &dayError{day: 8}
	var target *dayError
	if !errors.As(errors.Wrap(dayErr, "complete day"), &target) || target.day != 8 {
		t.Errorf("As() did not find the day error, got %v", target)
	}
	var other *strconv.NumError
	if errors.As(errors.Wrap(dayErr, "complete day"), &other) {
		t.Error("As() = true for an unrelated type")
	}
}

type dayError struct {
	day int
}

func (e *dayError) Error() string {
	return "day " + strconv.Itoa(e.day) + " out of range"
}

func TestSlogError(t *testing.T) {
	inner, line := errors.Wrap(errWeekNotFound, "load week", slog.String("week_id", "w1")), currentLine()
	err := errors.Wrap(inner, "regenerate day", slog.Int("day", 3), slog.Duration("elapsed", time.Second))

	var buf bytes.Buffer
	testhelpers.NewLogger(&buf).Info("test", errors.SlogError(err))
	logLine := buf.String()
	for _, want := range []string{
		`error.message="regenerate day: load week: week not found"`,
		"error.annotations.week_id=w1",
		"error.annotations.day=3",
		"error.annotations.elapsed=1s",
		"annotatederror_test.go:" + strconv.Itoa(line),
	} {
		if !strings.Contains(logLine, want) {
			t.Errorf("expected log line %s to contain %s", logLine, want)
		}
	}
	if strings.Contains(logLine, "annotatederror.go") {
		t.Error("expected the stack trace to start at the caller of Wrap")
	}
}

func TestSlogError_Joined(t *testing.T) {
	err := errors.Join(
		errors.Wrap(errWeekNotFound, "day 1", slog.String("plan", "a")),
		nil,
		errors.Wrap(errWeekNotFound, "day 2", slog.String("plan", "b")),
	)
	attr := errors.SlogError(err).String()
	for _, want := range []string{"plan=a", "plan=b"} {
		if !strings.Contains(attr, want) {
			t.Errorf("expected %s to contain %s", attr, want)
		}
	}

	// Degenerate input must not panic.
	errors.SlogError(nil)
	errors.SlogError(errors.Join(nil, nil))
	errors.SlogError(fmt.Errorf("test: %w", errWeekNotFound))
	errors.SlogError(errors.Wrap(errors.Join(nil, nil), "wrap nothing"))
}

func TestDecoratePanic(t *testing.T) {
	if errors.DecoratePanic(nil) != nil {
		t.Error("DecoratePanic(nil) != nil")
	}

	var line int
	defer func() {
		err := errors.DecoratePanic(recover())
		if err == nil {
			t.Fatal("expected error")
		}
		if !errors.Is(err, errWeekNotFound) {
			t.Errorf("expected the panic value to stay in the chain, got %v", err)
		}
		if got, want := err.Error(), "panic: week not found"; got != want {
			t.Errorf("err.Error(): got %q, want %q", got, want)
		}
		if got := errors.SlogError(err).String(); !strings.Contains(got, "annotatederror_test.go:"+strconv.Itoa(line)) {
			t.Errorf("expected %q to contain the panicking line %d", got, line)
		}
	}()
	line = currentLine() + 1
	panic(errWeekNotFound)
}
