// Package matcher evaluates expectations against a single probe result field.
// Matchers are pure: evaluation never mutates the matcher or the value.
package matcher

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/alexisbeaulieu97/hostspec/pkg/diff"
)

// Status is the outcome of one evaluation.
type Status string

const (
	Pass Status = "pass"
	Fail Status = "fail"
)

// Verdict carries the outcome plus a diagnostic naming expected and actual values.
type Verdict struct {
	Status     Status
	Diagnostic string
	// Detail holds optional multi-line context such as a unified diff.
	Detail string
}

// Passed reports whether the verdict is Pass.
func (v Verdict) Passed() bool {
	return v.Status == Pass
}

// Matcher is a predicate over one field value.
type Matcher interface {
	// Accepts reports whether the matcher can inspect values of the given kind.
	Accepts(kind ValueKind) bool
	// Evaluate checks the value. Callers should go through the package-level Evaluate,
	// which rejects values of the wrong kind first.
	Evaluate(value FieldValue) Verdict
	// String describes the matcher, e.g. "match /\d+/".
	String() string
}

// Evaluate applies m to value.
func Evaluate(m Matcher, value FieldValue) Verdict {
	if m == nil {
		return failf("no matcher configured for %s", value.Field)
	}
	if !m.Accepts(value.Kind) {
		return failf("matcher %s cannot inspect %s field %s", m, value.Kind, value.Field)
	}
	return m.Evaluate(value)
}

// RegexMatch passes when the pattern is found anywhere in the value.
type RegexMatch struct {
	Pattern string
	re      *regexp.Regexp
}

// NewRegexMatch compiles pattern and returns the matcher.
func NewRegexMatch(pattern string) (*RegexMatch, error) {
	re, err := Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern /%s/: %w", pattern, err)
	}
	return &RegexMatch{Pattern: pattern, re: re}, nil
}

func (m *RegexMatch) Accepts(kind ValueKind) bool { return kind == KindString }

func (m *RegexMatch) Evaluate(value FieldValue) Verdict {
	re, err := compiled(m.re, m.Pattern)
	if err != nil {
		return failf("%v", err)
	}
	if re.MatchString(value.Str) {
		return passf("%s matches /%s/", value.Field, m.Pattern)
	}
	return failf("expected %s to match /%s/, got: %s", value.Field, m.Pattern, value.Render())
}

func (m *RegexMatch) String() string { return "match /" + m.Pattern + "/" }

// RegexNotMatch passes when the pattern is absent from the value.
type RegexNotMatch struct {
	Pattern string
	re      *regexp.Regexp
}

// NewRegexNotMatch compiles pattern and returns the matcher.
func NewRegexNotMatch(pattern string) (*RegexNotMatch, error) {
	re, err := Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern /%s/: %w", pattern, err)
	}
	return &RegexNotMatch{Pattern: pattern, re: re}, nil
}

func (m *RegexNotMatch) Accepts(kind ValueKind) bool { return kind == KindString }

func (m *RegexNotMatch) Evaluate(value FieldValue) Verdict {
	re, err := compiled(m.re, m.Pattern)
	if err != nil {
		return failf("%v", err)
	}
	if loc := re.FindStringIndex(value.Str); loc != nil {
		return failf("expected %s not to match /%s/, found %q in: %s",
			value.Field, m.Pattern, value.Str[loc[0]:loc[1]], value.Render())
	}
	return passf("%s does not match /%s/", value.Field, m.Pattern)
}

func (m *RegexNotMatch) String() string { return "not match /" + m.Pattern + "/" }

// compiled returns re, or compiles pattern for matchers built as literals.
func compiled(re *regexp.Regexp, pattern string) (*regexp.Regexp, error) {
	if re != nil {
		return re, nil
	}
	re, err := Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern /%s/: %w", pattern, err)
	}
	return re, nil
}

// Equals compares byte-for-byte with no trimming. Against a boolean field the
// expected literal must be "true" or "false".
type Equals struct {
	Expected string
}

func (m Equals) Accepts(kind ValueKind) bool {
	switch kind {
	case KindString:
		return true
	case KindBool:
		_, err := strconv.ParseBool(m.Expected)
		return err == nil
	default:
		return false
	}
}

func (m Equals) Evaluate(value FieldValue) Verdict {
	if value.Kind == KindBool {
		expected, _ := strconv.ParseBool(m.Expected)
		return BooleanEquals{Expected: expected}.Evaluate(value)
	}
	if value.Str == m.Expected {
		return passf("%s equals %q", value.Field, m.Expected)
	}
	verdict := failf("expected %s to equal %q, got: %s", value.Field, m.Expected, value.Render())
	verdict.Detail = diff.GenerateUnifiedDiff([]byte(m.Expected), []byte(value.Str), "expected", "actual")
	return verdict
}

func (m Equals) String() string { return "equal " + strconv.Quote(m.Expected) }

// ExitCodeEquals compares a command's exit status.
type ExitCodeEquals struct {
	Expected int
}

func (m ExitCodeEquals) Accepts(kind ValueKind) bool { return kind == KindInt }

func (m ExitCodeEquals) Evaluate(value FieldValue) Verdict {
	if value.Int == m.Expected {
		return passf("%s equals %d", value.Field, m.Expected)
	}
	return failf("expected %s to equal %d, got: %d", value.Field, m.Expected, value.Int)
}

func (m ExitCodeEquals) String() string { return "equal " + strconv.Itoa(m.Expected) }

// ExitCodeNotEquals passes for any exit status other than Expected.
type ExitCodeNotEquals struct {
	Expected int
}

func (m ExitCodeNotEquals) Accepts(kind ValueKind) bool { return kind == KindInt }

func (m ExitCodeNotEquals) Evaluate(value FieldValue) Verdict {
	if value.Int != m.Expected {
		return passf("%s is %d, not %d", value.Field, value.Int, m.Expected)
	}
	return failf("expected %s not to equal %d, got: %d", value.Field, m.Expected, value.Int)
}

func (m ExitCodeNotEquals) String() string { return "not equal " + strconv.Itoa(m.Expected) }

// BooleanEquals checks flags such as running or exists.
type BooleanEquals struct {
	Expected bool
}

func (m BooleanEquals) Accepts(kind ValueKind) bool { return kind == KindBool }

func (m BooleanEquals) Evaluate(value FieldValue) Verdict {
	if value.Bool == m.Expected {
		return passf("%s is %t", value.Field, m.Expected)
	}
	return failf("expected %s to be %t, got: %t", value.Field, m.Expected, value.Bool)
}

func (m BooleanEquals) String() string { return "be " + strconv.FormatBool(m.Expected) }

func passf(format string, args ...any) Verdict {
	return Verdict{Status: Pass, Diagnostic: fmt.Sprintf(format, args...)}
}

func failf(format string, args ...any) Verdict {
	return Verdict{Status: Fail, Diagnostic: fmt.Sprintf(format, args...)}
}
