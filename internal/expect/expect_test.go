package expect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/hostspec/internal/matcher"
	"github.com/alexisbeaulieu97/hostspec/internal/probe"
	hserrors "github.com/alexisbeaulieu97/hostspec/pkg/errors"
)

func mongoSet(t *testing.T) *Set {
	t.Helper()
	set, err := NewSet("mongodb", "MongoDB baseline",
		[]Param{{Name: "version", Type: ParamVersion}},
		[]Template{
			{
				Probe:       ProbeTemplate{Kind: probe.KindCommand, Invocation: "mongo --version"},
				Matcher:     MatcherTemplate{Kind: MatchRegex, Literal: `MongoDB shell version:?\s+v?${version}`},
				Description: "shell reports version ${version}",
			},
			{
				Probe:   ProbeTemplate{Kind: probe.KindCommand, Invocation: "mongod --version"},
				Field:   probe.FieldExitCode,
				Matcher: MatcherTemplate{Kind: MatchExitCode, Literal: "0"},
			},
			{
				Probe:   ProbeTemplate{Kind: probe.KindService, Service: "mongod"},
				Matcher: MatcherTemplate{Kind: MatchIs, Literal: "true"},
			},
		})
	require.NoError(t, err)
	return set
}

func TestInstantiateCompleteBindings(t *testing.T) {
	t.Parallel()

	exps, err := Instantiate(mongoSet(t), map[string]string{"version": "3.6"})
	require.NoError(t, err)
	require.Len(t, exps, 3)

	require.Equal(t, probe.Command("mongo --version"), exps[0].Probe)
	require.Equal(t, probe.FieldStdout, exps[0].Field)
	require.Equal(t, "shell reports version 3.6", exps[0].Describe())
	require.Equal(t, `match /MongoDB shell version:?\s+v?3\.6/`, exps[0].Matcher.String())

	require.Equal(t, probe.FieldExitCode, exps[1].Field)
	require.Equal(t, matcher.ExitCodeEquals{Expected: 0}, exps[1].Matcher)
	require.Equal(t, "command mongod --version exit_code should equal 0", exps[1].Describe())

	require.Equal(t, probe.FieldRunning, exps[2].Field)
	require.Equal(t, matcher.BooleanEquals{Expected: true}, exps[2].Matcher)
}

func TestInstantiateEscapesBoundRegexValues(t *testing.T) {
	t.Parallel()

	exps, err := Instantiate(mongoSet(t), map[string]string{"version": "3.0"})
	require.NoError(t, err)

	shell := exps[0]
	pass := shell.Evaluate(probe.Result{Kind: probe.KindCommand, Stdout: "MongoDB shell version: 3.0.15\n"})
	require.True(t, pass.Passed(), pass.Diagnostic)

	fail := shell.Evaluate(probe.Result{Kind: probe.KindCommand, Stdout: "MongoDB shell version: 3x0\n"})
	require.False(t, fail.Passed())
}

func TestInstantiateMissingBindings(t *testing.T) {
	t.Parallel()

	set := mongoSet(t)

	_, err := Instantiate(set, nil)
	var bindingErr *hserrors.BindingError
	require.ErrorAs(t, err, &bindingErr)
	require.Equal(t, []string{"version"}, bindingErr.Missing)
	require.Equal(t, "binding error: set mongodb: missing bindings for version", err.Error())

	_, err = Instantiate(set, map[string]string{"versoin": "3.6"})
	require.ErrorAs(t, err, &bindingErr)
}

func TestInstantiateRejectsNonVersion(t *testing.T) {
	t.Parallel()

	_, err := Instantiate(mongoSet(t), map[string]string{"version": "latest"})
	var bindingErr *hserrors.BindingError
	require.ErrorAs(t, err, &bindingErr)
	require.Contains(t, err.Error(), `param version: "latest" is not a version`)
}

func TestInstantiateIsIndependentPerBinding(t *testing.T) {
	t.Parallel()

	set := mongoSet(t)
	old, err := Instantiate(set, map[string]string{"version": "3.0"})
	require.NoError(t, err)
	cur, err := Instantiate(set, map[string]string{"version": "3.6"})
	require.NoError(t, err)

	require.Equal(t, `match /MongoDB shell version:?\s+v?3\.0/`, old[0].Matcher.String())
	require.Equal(t, `match /MongoDB shell version:?\s+v?3\.6/`, cur[0].Matcher.String())
	require.Contains(t, set.Templates[0].Matcher.Literal, "${version}")
}

func TestNonRegexFieldsAreSubstitutedVerbatim(t *testing.T) {
	t.Parallel()

	set, err := NewSet("conf", "", []Param{{Name: "path"}, {Name: "body"}}, []Template{
		{
			Probe:   ProbeTemplate{Kind: probe.KindFile, Path: "${path}"},
			Matcher: MatcherTemplate{Kind: MatchEquals, Literal: "${body}\n"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, ParamString, set.Params[0].Type)

	exps, err := Instantiate(set, map[string]string{"path": "/etc/mongod.conf", "body": "a.b*"})
	require.NoError(t, err)
	require.Equal(t, probe.FileRead("/etc/mongod.conf"), exps[0].Probe)
	require.Equal(t, matcher.Equals{Expected: "a.b*\n"}, exps[0].Matcher)
}

func TestNewSetValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		params   []Param
		template Template
		wantErr  string
	}{
		{
			name:     "undeclared placeholder",
			template: Template{Probe: ProbeTemplate{Kind: probe.KindCommand, Invocation: "mongo ${port}"}, Matcher: MatcherTemplate{Kind: MatchExitCode, Literal: "0"}, Field: probe.FieldExitCode},
			wantErr:  "placeholder ${port} is not a declared param",
		},
		{
			name:     "field not produced by probe",
			template: Template{Probe: ProbeTemplate{Kind: probe.KindService, Service: "mongod"}, Field: probe.FieldStdout, Matcher: MatcherTemplate{Kind: MatchRegex, Literal: "x"}},
			wantErr:  "field stdout is not produced by service probes",
		},
		{
			name:     "matcher cannot inspect field",
			template: Template{Probe: ProbeTemplate{Kind: probe.KindCommand, Invocation: "true"}, Field: probe.FieldExitCode, Matcher: MatcherTemplate{Kind: MatchRegex, Literal: "0"}},
			wantErr:  "matcher match cannot inspect integer field exit_code",
		},
		{
			name:     "invalid pattern",
			template: Template{Probe: ProbeTemplate{Kind: probe.KindCommand, Invocation: "true"}, Matcher: MatcherTemplate{Kind: MatchRegex, Literal: "("}},
			wantErr:  "invalid pattern /(/",
		},
		{
			name:     "non-integer exit code",
			template: Template{Probe: ProbeTemplate{Kind: probe.KindCommand, Invocation: "true"}, Field: probe.FieldExitCode, Matcher: MatcherTemplate{Kind: MatchExitCode, Literal: "zero"}},
			wantErr:  `exit code "zero" is not an integer`,
		},
		{
			name:     "unknown probe",
			template: Template{Probe: ProbeTemplate{Kind: "package"}, Matcher: MatcherTemplate{Kind: MatchIs, Literal: "true"}},
			wantErr:  `unknown probe kind "package"`,
		},
		{
			name:     "unknown param type",
			params:   []Param{{Name: "v", Type: "float"}},
			template: Template{Probe: ProbeTemplate{Kind: probe.KindCommand, Invocation: "true"}, Matcher: MatcherTemplate{Kind: MatchRegex, Literal: "x"}},
			wantErr:  `unknown param type "float"`,
		},
		{
			name:     "duplicate param",
			params:   []Param{{Name: "v"}, {Name: "v"}},
			template: Template{Probe: ProbeTemplate{Kind: probe.KindCommand, Invocation: "true"}, Matcher: MatcherTemplate{Kind: MatchRegex, Literal: "x"}},
			wantErr:  `duplicate param "v"`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewSet("broken", "", tt.params, []Template{tt.template})
			var validationErr *hserrors.ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEvaluateWrongFieldFails(t *testing.T) {
	t.Parallel()

	exp := Expectation{
		Probe:   probe.Command("true"),
		Field:   probe.FieldRunning,
		Matcher: matcher.BooleanEquals{Expected: true},
	}
	verdict := exp.Evaluate(probe.Result{Kind: probe.KindCommand})
	require.Equal(t, matcher.Fail, verdict.Status)
	require.Contains(t, verdict.Diagnostic, "field running is not produced by command probes")
}
