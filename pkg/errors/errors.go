package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures rule file and expectation definition issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ProbeErrorKind classifies why a probe could not produce a result.
type ProbeErrorKind string

const (
	// ProbeExecution means the probe could not be launched (host unreachable, binary missing).
	ProbeExecution ProbeErrorKind = "execution"
	// ProbeTimeout means the probe exceeded its deadline.
	ProbeTimeout ProbeErrorKind = "timeout"
	// ProbeQuery means the service manager could not be reached.
	ProbeQuery ProbeErrorKind = "query"
)

// ProbeError represents a probe that ran into trouble before producing a result.
// A probe that ran and returned a non-zero exit status is not a ProbeError.
type ProbeError struct {
	Kind  ProbeErrorKind
	Probe string
	Err   error
}

// NewProbeError constructs a ProbeError.
func NewProbeError(kind ProbeErrorKind, probe string, err error) error {
	return &ProbeError{Kind: kind, Probe: probe, Err: err}
}

func (e *ProbeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Probe != "" {
		return fmt.Sprintf("%s error on probe %s: %v", e.Kind, e.Probe, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

// Unwrap exposes the root error.
func (e *ProbeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ProvisioningError reports a failed provisioning run. It is fatal to the suite.
type ProvisioningError struct {
	Playbook string
	Host     string
	Err      error
}

// NewProvisioningError constructs a ProvisioningError.
func NewProvisioningError(playbook, host string, err error) error {
	return &ProvisioningError{Playbook: playbook, Host: host, Err: err}
}

func (e *ProvisioningError) Error() string {
	if e == nil {
		return ""
	}
	target := "localhost"
	if e.Host != "" {
		target = e.Host
	}
	return fmt.Sprintf("provisioning error: playbook %s on %s: %v", e.Playbook, target, e.Err)
}

// Unwrap exposes the underlying error.
func (e *ProvisioningError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BindingError reports placeholders that could not be bound while instantiating a set.
type BindingError struct {
	Set     string
	Missing []string
	Message string
}

// NewMissingBindingError constructs a BindingError for unbound parameter names.
func NewMissingBindingError(set string, missing []string) error {
	names := append([]string(nil), missing...)
	sort.Strings(names)
	return &BindingError{Set: set, Missing: names}
}

// NewInvalidBindingError constructs a BindingError for a bound value that is not acceptable.
func NewInvalidBindingError(set, message string) error {
	return &BindingError{Set: set, Message: message}
}

func (e *BindingError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Missing) > 0 {
		return fmt.Sprintf("binding error: set %s: missing bindings for %s", e.Set, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("binding error: set %s: %s", e.Set, e.Message)
}

// UnknownSetError is returned when a suite includes a set that was never registered.
type UnknownSetError struct {
	Name string
}

// NewUnknownSetError constructs an UnknownSetError.
func NewUnknownSetError(name string) error {
	return &UnknownSetError{Name: name}
}

func (e *UnknownSetError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("unknown expectation set %q", e.Name)
}
