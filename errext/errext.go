// Package errext contains extensions for normal Go errors that are used in
// xmapgen.
package errext

import (
	"errors"

	"github.com/polyhop/xmapgen/errext/exitcodes"
)

// HasHint is an error with an attached user hint. Hints can be used to give
// a better explanation of why an error occurred or how it can be fixed.
type HasHint interface {
	error
	Hint() string
}

// WithHint can attach a hint to the given error. If there is no error, no hint
// will be attached or returned. If there was a previous hint attached to the
// error, it will be wrapped in parentheses and appended to the new hint.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	var oldhint HasHint
	if errors.As(err, &oldhint) {
		hint = hint + " (" + oldhint.Hint() + ")"
	}
	return withHint{error: err, hint: hint}
}

type withHint struct {
	error
	hint string
}

func (wh withHint) Unwrap() error {
	return wh.error
}

func (wh withHint) Hint() string {
	return wh.hint
}

var _ HasHint = withHint{}

// HasExitCode is an error with an attached exit code.
type HasExitCode interface {
	error
	ExitCode() exitcodes.ExitCode
}

// WithExitCodeIfNone can attach an exit code to the given error, if it doesn't
// have one already.
func WithExitCodeIfNone(err error, exitCode exitcodes.ExitCode) error {
	if err == nil {
		return nil
	}
	var ecerr HasExitCode
	if errors.As(err, &ecerr) {
		// another exit code was already attached deeper in the error chain
		return err
	}
	return withExitCode{error: err, exitCode: exitCode}
}

type withExitCode struct {
	error
	exitCode exitcodes.ExitCode
}

func (wec withExitCode) Unwrap() error {
	return wec.error
}

func (wec withExitCode) ExitCode() exitcodes.ExitCode {
	return wec.exitCode
}

var _ HasExitCode = withExitCode{}
