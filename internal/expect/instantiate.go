package expect

import (
	"fmt"
	"regexp"

	"github.com/blang/semver/v4"

	"github.com/alexisbeaulieu97/hostspec/internal/probe"
	hserrors "github.com/alexisbeaulieu97/hostspec/pkg/errors"
)

var (
	placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	placeholderName    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func placeholders(s string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(s, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

func substitute(s string, bindings map[string]string, escape func(string) string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(token string) string {
		value := bindings[token[2:len(token)-1]]
		if escape != nil {
			return escape(value)
		}
		return value
	})
}

// Instantiate binds every placeholder of set and returns fresh expectations in
// template order. Values bound into regex patterns are escaped so they match
// literally. Missing bindings fail before anything is built.
func Instantiate(set *Set, bindings map[string]string) ([]Expectation, error) {
	if set == nil {
		return nil, fmt.Errorf("instantiate: nil set")
	}

	var missing []string
	seen := make(map[string]bool)
	for _, name := range append(set.ParamNames(), set.Referenced()...) {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := bindings[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, hserrors.NewMissingBindingError(set.Name, missing)
	}

	for _, p := range set.Params {
		if p.Type != ParamVersion {
			continue
		}
		if _, err := semver.ParseTolerant(bindings[p.Name]); err != nil {
			return nil, hserrors.NewInvalidBindingError(set.Name,
				fmt.Sprintf("param %s: %q is not a version: %v", p.Name, bindings[p.Name], err))
		}
	}

	out := make([]Expectation, 0, len(set.Templates))
	for i, t := range set.Templates {
		exp, err := instantiateTemplate(t, bindings)
		if err != nil {
			return nil, hserrors.NewInvalidBindingError(set.Name, fmt.Sprintf("expectation %d: %v", i, err))
		}
		out = append(out, exp)
	}
	return out, nil
}

func instantiateTemplate(t Template, bindings map[string]string) (Expectation, error) {
	bind := func(s string) string { return substitute(s, bindings, nil) }

	var p probe.Probe
	switch t.Probe.Kind {
	case probe.KindCommand:
		p = probe.Command(bind(t.Probe.Invocation))
	case probe.KindFile:
		p = probe.FileRead(bind(t.Probe.Path))
	case probe.KindService:
		p = probe.ServiceQuery(bind(t.Probe.Service))
	case probe.KindMongo:
		p = probe.MongoCommand(bind(t.Probe.MongoURI), bind(t.Probe.MongoDatabase), bind(t.Probe.MongoCommand))
	default:
		return Expectation{}, fmt.Errorf("unknown probe kind %q", t.Probe.Kind)
	}
	if err := p.Validate(); err != nil {
		return Expectation{}, err
	}

	field := t.Field
	if field == "" {
		field = p.DefaultField()
	}

	literal := bind(t.Matcher.Literal)
	if t.Matcher.Kind == MatchRegex || t.Matcher.Kind == MatchNotRegex {
		literal = substitute(t.Matcher.Literal, bindings, regexp.QuoteMeta)
	}
	m, err := buildMatcher(t.Matcher.Kind, literal, field.ValueKind())
	if err != nil {
		return Expectation{}, err
	}

	return Expectation{
		Probe:       p,
		Field:       field,
		Matcher:     m,
		Description: bind(t.Description),
	}, nil
}
