package main

import (
	"errors"
	"fmt"

	"github.com/alexisbeaulieu97/hostspec/internal/report"
	hserrors "github.com/alexisbeaulieu97/hostspec/pkg/errors"
)

// exitError carries a process exit status out of a command. err may be nil
// when the output already explains the status (failing verdicts).
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func newCommandError(operation, context string, cause error, suggestion string) error {
	return &commandError{operation: operation, context: context, cause: cause, suggestion: suggestion}
}

type commandError struct {
	operation  string
	context    string
	cause      error
	suggestion string
}

func (e *commandError) Error() string {
	if e.suggestion == "" {
		return fmt.Sprintf("Failed to %s: %s\n\nError: %v", e.operation, e.context, e.cause)
	}
	return fmt.Sprintf("Failed to %s: %s\n\nError: %v\n\nSuggestion: %s", e.operation, e.context, e.cause, e.suggestion)
}

func (e *commandError) Unwrap() error { return e.cause }

// configFailure maps rule file and binding problems to the configuration exit status.
func configFailure(operation string, err error) error {
	suggestion := ""
	var (
		parseErr   *hserrors.ParseError
		bindingErr *hserrors.BindingError
		unknownErr *hserrors.UnknownSetError
	)
	switch {
	case errors.As(err, &parseErr):
		suggestion = "Check the YAML syntax near the reported line."
	case errors.As(err, &bindingErr):
		suggestion = "Supply every parameter the included set declares under 'with'."
	case errors.As(err, &unknownErr):
		suggestion = "Run 'hostspec list' to see the registered sets."
	}
	return &exitError{code: report.ExitConfigError, err: newCommandError(operation, "loading rule file", err, suggestion)}
}
