package expect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/hostspec/internal/matcher"
	"github.com/alexisbeaulieu97/hostspec/internal/probe"
	hserrors "github.com/alexisbeaulieu97/hostspec/pkg/errors"
)

// ProbeTemplate is a probe whose string fields may contain ${name} placeholders.
type ProbeTemplate struct {
	Kind          probe.Kind
	Invocation    string
	Path          string
	Service       string
	MongoURI      string
	MongoDatabase string
	MongoCommand  string
}

// MatcherTemplate is a matcher whose literal may contain ${name} placeholders.
// Literal is the pattern, the expected string, the exit code or the boolean.
type MatcherTemplate struct {
	Kind    MatcherKind
	Literal string
}

// Template expands into one Expectation per instantiation.
type Template struct {
	Probe       ProbeTemplate
	Field       probe.Field
	Matcher     MatcherTemplate
	Description string
}

func (t Template) strings() []string {
	return []string{
		t.Probe.Invocation, t.Probe.Path, t.Probe.Service,
		t.Probe.MongoURI, t.Probe.MongoDatabase, t.Probe.MongoCommand,
		t.Matcher.Literal, t.Description,
	}
}

// Set is a named, parameterized sequence of templates.
type Set struct {
	Name        string
	Description string
	Params      []Param
	Templates   []Template
}

// NewSet validates and returns a set. Every placeholder must name a declared
// param, every field must be produced by its probe and every matcher must be
// able to inspect its field. An empty Field selects the probe's default field.
func NewSet(name, description string, params []Param, templates []Template) (*Set, error) {
	if strings.TrimSpace(name) == "" {
		return nil, hserrors.NewValidationError("set", "name is required", nil)
	}

	params = append([]Param(nil), params...)
	declared := make(map[string]bool, len(params))
	for i, p := range params {
		field := fmt.Sprintf("sets.%s.params[%d]", name, i)
		if !placeholderName.MatchString(p.Name) {
			return nil, hserrors.NewValidationError(field, fmt.Sprintf("invalid param name %q", p.Name), nil)
		}
		if declared[p.Name] {
			return nil, hserrors.NewValidationError(field, fmt.Sprintf("duplicate param %q", p.Name), nil)
		}
		switch p.Type {
		case "":
			params[i].Type = ParamString
		case ParamString, ParamVersion:
		default:
			return nil, hserrors.NewValidationError(field, fmt.Sprintf("unknown param type %q", p.Type), nil)
		}
		declared[p.Name] = true
	}

	out := make([]Template, len(templates))
	for i, t := range templates {
		field := fmt.Sprintf("sets.%s.expectations[%d]", name, i)
		checked, err := checkTemplate(t, declared)
		if err != nil {
			return nil, hserrors.NewValidationError(field, err.Error(), err)
		}
		out[i] = checked
	}

	return &Set{
		Name:        name,
		Description: description,
		Params:      params,
		Templates:   out,
	}, nil
}

func checkTemplate(t Template, declared map[string]bool) (Template, error) {
	for _, s := range t.strings() {
		for _, ref := range placeholders(s) {
			if !declared[ref] {
				return t, fmt.Errorf("placeholder ${%s} is not a declared param", ref)
			}
		}
	}

	shape := probe.Probe{Kind: t.Probe.Kind}
	switch t.Probe.Kind {
	case probe.KindCommand, probe.KindFile, probe.KindService, probe.KindMongo:
	default:
		return t, fmt.Errorf("unknown probe kind %q", t.Probe.Kind)
	}
	if t.Field == "" {
		t.Field = shape.DefaultField()
	}
	if !shape.AllowsField(t.Field) {
		return t, fmt.Errorf("field %s is not produced by %s probes", t.Field, t.Probe.Kind)
	}

	if !t.Matcher.Kind.valid() {
		return t, fmt.Errorf("unknown matcher %q", t.Matcher.Kind)
	}
	if !t.Matcher.Kind.accepts(t.Field.ValueKind()) {
		return t, fmt.Errorf("matcher %s cannot inspect %s field %s", t.Matcher.Kind, t.Field.ValueKind(), t.Field)
	}

	// Literals without placeholders are checked now rather than at instantiation.
	if len(placeholders(t.Matcher.Literal)) == 0 {
		if _, err := buildMatcher(t.Matcher.Kind, t.Matcher.Literal, t.Field.ValueKind()); err != nil {
			return t, err
		}
	}
	return t, nil
}

// Referenced lists the distinct placeholder names used by the set's templates, in first-use order.
func (s *Set) Referenced() []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range s.Templates {
		for _, str := range t.strings() {
			for _, ref := range placeholders(str) {
				if !seen[ref] {
					seen[ref] = true
					names = append(names, ref)
				}
			}
		}
	}
	return names
}

// ParamNames lists the declared param names in declaration order.
func (s *Set) ParamNames() []string {
	names := make([]string, len(s.Params))
	for i, p := range s.Params {
		names[i] = p.Name
	}
	return names
}

func buildMatcher(kind MatcherKind, literal string, field matcher.ValueKind) (matcher.Matcher, error) {
	switch kind {
	case MatchRegex:
		return matcher.NewRegexMatch(literal)
	case MatchNotRegex:
		return matcher.NewRegexNotMatch(literal)
	case MatchEquals:
		if field == matcher.KindBool {
			if _, err := strconv.ParseBool(literal); err != nil {
				return nil, fmt.Errorf("equals on a boolean field needs true or false, got %q", literal)
			}
		}
		return matcher.Equals{Expected: literal}, nil
	case MatchExitCode, MatchExitCodeNot:
		code, err := strconv.Atoi(strings.TrimSpace(literal))
		if err != nil {
			return nil, fmt.Errorf("exit code %q is not an integer", literal)
		}
		if kind == MatchExitCode {
			return matcher.ExitCodeEquals{Expected: code}, nil
		}
		return matcher.ExitCodeNotEquals{Expected: code}, nil
	case MatchIs:
		b, err := strconv.ParseBool(strings.TrimSpace(literal))
		if err != nil {
			return nil, fmt.Errorf("is needs true or false, got %q", literal)
		}
		return matcher.BooleanEquals{Expected: b}, nil
	default:
		return nil, fmt.Errorf("unknown matcher %q", kind)
	}
}
