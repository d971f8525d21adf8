package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is a hostspec rule file.
type File struct {
	// Transport prefixes every probe, e.g. [ssh, -o, BatchMode=yes, "${target_host}"].
	Transport      []string   `yaml:"transport,omitempty"`
	ServiceManager string     `yaml:"service_manager,omitempty" validate:"omitempty,oneof=systemctl dbus"`
	ProbeTimeout   string     `yaml:"probe_timeout,omitempty" validate:"omitempty,duration"`
	Sets           []SetDef   `yaml:"sets,omitempty" validate:"omitempty,dive"`
	Suites         []SuiteDef `yaml:"suites" validate:"required,min=1,dive"`
}

// SetDef declares a reusable, parameterized expectation set.
type SetDef struct {
	Name         string           `yaml:"name" validate:"required,set_name"`
	Description  string           `yaml:"description,omitempty"`
	Params       []ParamDef       `yaml:"params,omitempty" validate:"omitempty,dive"`
	Expectations []ExpectationDef `yaml:"expectations" validate:"required,min=1,dive"`
}

// ParamDef declares one set parameter.
type ParamDef struct {
	Name        string `yaml:"name" validate:"required,set_name"`
	Type        string `yaml:"type,omitempty" validate:"omitempty,param_type"`
	Description string `yaml:"description,omitempty"`
}

// SuiteDef declares a top-level suite.
type SuiteDef struct {
	Name         string           `yaml:"name" validate:"required,set_name"`
	Description  string           `yaml:"description,omitempty"`
	Provision    *ProvisionDef    `yaml:"provision,omitempty"`
	Include      []IncludeDef     `yaml:"include,omitempty" validate:"omitempty,dive"`
	Expectations []ExpectationDef `yaml:"expectations,omitempty" validate:"omitempty,dive"`
}

// ProvisionDef configures the playbook run that precedes verification.
type ProvisionDef struct {
	Playbook   string `yaml:"playbook" validate:"required"`
	TargetHost string `yaml:"target_host,omitempty"`
	// TargetHostEnv names an environment variable holding the target host.
	TargetHostEnv string         `yaml:"target_host_env,omitempty"`
	Vars          map[string]any `yaml:"vars,omitempty"`
}

// IncludeDef pulls a registered set into a suite with concrete bindings.
type IncludeDef struct {
	Set  string            `yaml:"set" validate:"required"`
	With map[string]string `yaml:"with,omitempty"`
}

// MongoDef is the body of a mongo probe.
type MongoDef struct {
	URI      string `yaml:"uri" validate:"required"`
	Database string `yaml:"database,omitempty"`
	Command  string `yaml:"command" validate:"required"`
}

// ExpectationDef is one probe plus one matcher. The probe is given by exactly
// one of command, file, service or mongo; the matcher by exactly one of match,
// not_match, equals, exit_code, exit_code_not or is.
type ExpectationDef struct {
	Description string    `yaml:"description,omitempty"`
	Field       string    `yaml:"field,omitempty" validate:"omitempty,oneof=stdout stderr exit_code content exists running"`
	Probe       string    `yaml:"-" validate:"required,oneof=command file service mongo"`
	Target      string    `yaml:"-"`
	Mongo       *MongoDef `yaml:"-" validate:"omitempty"`
	Matcher     string    `yaml:"-" validate:"required,oneof=match not_match equals exit_code exit_code_not is"`
	Expected    string    `yaml:"-"`
	Line        int       `yaml:"-"`
}

var (
	probeKeys   = []string{"command", "file", "service", "mongo"}
	matcherKeys = []string{"match", "not_match", "equals", "exit_code", "exit_code_not", "is"}
	plainKeys   = map[string]bool{"description": true, "field": true}
)

// UnmarshalYAML resolves the probe and matcher keys.
func (e *ExpectationDef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expectation must be a mapping", value.Line)
	}

	type plain struct {
		Description string `yaml:"description"`
		Field       string `yaml:"field"`
	}
	var base plain
	if err := value.Decode(&base); err != nil {
		return err
	}
	*e = ExpectationDef{Description: base.Description, Field: base.Field, Line: value.Line}

	var probes, matchers []string
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		switch {
		case plainKeys[key.Value]:
		case contains(probeKeys, key.Value):
			probes = append(probes, key.Value)
			if err := e.decodeProbe(key.Value, val); err != nil {
				return err
			}
		case contains(matcherKeys, key.Value):
			matchers = append(matchers, key.Value)
			if val.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: %s expects a scalar value", val.Line, key.Value)
			}
			e.Matcher = key.Value
			e.Expected = val.Value
		default:
			return fmt.Errorf("line %d: unknown expectation key %q", key.Line, key.Value)
		}
	}

	if len(probes) != 1 {
		return fmt.Errorf("line %d: expectation needs exactly one of %s, got %s",
			value.Line, strings.Join(probeKeys, ", "), describeKeys(probes))
	}
	if len(matchers) != 1 {
		return fmt.Errorf("line %d: expectation needs exactly one of %s, got %s",
			value.Line, strings.Join(matcherKeys, ", "), describeKeys(matchers))
	}
	return nil
}

func (e *ExpectationDef) decodeProbe(key string, val *yaml.Node) error {
	e.Probe = key
	if key == "mongo" {
		var m MongoDef
		if err := val.Decode(&m); err != nil {
			return err
		}
		e.Mongo = &m
		return nil
	}
	if val.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: %s expects a string", val.Line, key)
	}
	e.Target = val.Value
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func describeKeys(keys []string) string {
	if len(keys) == 0 {
		return "none"
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}
