// Package expect defines concrete expectations and the parameterized sets
// that expand into them.
package expect

import (
	"fmt"

	"github.com/alexisbeaulieu97/hostspec/internal/matcher"
	"github.com/alexisbeaulieu97/hostspec/internal/probe"
)

// Expectation pairs one probe with one matcher over one result field.
type Expectation struct {
	Probe       probe.Probe
	Field       probe.Field
	Matcher     matcher.Matcher
	Description string
}

// Describe returns the description, or one derived from the probe and matcher.
func (e Expectation) Describe() string {
	if e.Description != "" {
		return e.Description
	}
	return fmt.Sprintf("%s %s should %s", e.Probe, e.Field, e.Matcher)
}

// Evaluate applies the matcher to the expectation's field of res.
func (e Expectation) Evaluate(res probe.Result) matcher.Verdict {
	value, err := res.Value(e.Field)
	if err != nil {
		return matcher.Verdict{Status: matcher.Fail, Diagnostic: err.Error()}
	}
	return matcher.Evaluate(e.Matcher, value)
}

// ParamType constrains the values a parameter accepts.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamVersion ParamType = "version"
)

// Param is a free variable a set declares.
type Param struct {
	Name        string
	Type        ParamType
	Description string
}

// MatcherKind names a matcher in a template.
type MatcherKind string

const (
	MatchRegex       MatcherKind = "match"
	MatchNotRegex    MatcherKind = "not_match"
	MatchEquals      MatcherKind = "equals"
	MatchExitCode    MatcherKind = "exit_code"
	MatchExitCodeNot MatcherKind = "exit_code_not"
	MatchIs          MatcherKind = "is"
)

// accepts reports the field value kind a matcher kind can inspect.
func (k MatcherKind) accepts(kind matcher.ValueKind) bool {
	switch k {
	case MatchRegex, MatchNotRegex:
		return kind == matcher.KindString
	case MatchEquals:
		return kind == matcher.KindString || kind == matcher.KindBool
	case MatchExitCode, MatchExitCodeNot:
		return kind == matcher.KindInt
	case MatchIs:
		return kind == matcher.KindBool
	default:
		return false
	}
}

func (k MatcherKind) valid() bool {
	switch k {
	case MatchRegex, MatchNotRegex, MatchEquals, MatchExitCode, MatchExitCodeNot, MatchIs:
		return true
	}
	return false
}
