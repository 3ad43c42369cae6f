// Package kerrors provides Kabap's typed, line-prefixed error values.
//
// Errors never panic out to the host: every error raised by the
// tokeniser, optimiser or executor is surfaced as a string in the
// engine's stderr (see pkg/kabap), with the exact message text being
// part of the tested contract in spec §7/§8. This package exists so
// that internal callers can build those strings consistently, the way
// go-dws's internal/errors.CompilerError centralises "Error at
// line:column" formatting.
package kerrors

import "fmt"

// Band classifies where in the pipeline an error originated. It has no
// bearing on the message text, only on how internal callers reason
// about severity.
type Band int

const (
	// Syntactic errors come from the Tokeniser.
	Syntactic Band = iota
	// Semantic errors come from the Executor's structural checks.
	Semantic
	// Runtime errors come from execution itself (watchdog, extensions).
	Runtime
)

// Error is a Kabap diagnostic: a message, optionally anchored to a
// source line.
type Error struct {
	Band    Band
	Line    int // 0 means "no known line"
	Message string
}

// New builds an Error with no known line number.
func New(band Band, format string, args ...any) *Error {
	return &Error{Band: band, Message: fmt.Sprintf(format, args...)}
}

// At builds an Error anchored to a source line.
func At(band Band, line int, format string, args ...any) *Error {
	return &Error{Band: band, Line: line, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface, producing the exact
// "Line <n>: <message>" form spec §6 mandates when a line is known,
// and the bare message otherwise.
func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("Line %d: %s", e.Line, e.Message)
	}
	return e.Message
}
