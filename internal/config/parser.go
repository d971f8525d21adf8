package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	hserrors "github.com/alexisbeaulieu97/hostspec/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParseFile reads and validates a rule file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, hserrors.NewParseError(path, 0, err)
	}
	return Parse(path, data)
}

// Parse decodes and validates rule file contents. path is used for messages.
func Parse(path string, data []byte) (*File, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var f File
	if err := decoder.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, hserrors.NewParseError(path, 0, fmt.Errorf("document is empty"))
		}
		return nil, hserrors.NewParseError(path, extractLine(err), err)
	}

	if err := ValidateFile(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// ValidateFile performs schema and cross-reference checks.
func ValidateFile(f *File) error {
	if f == nil {
		return hserrors.NewValidationError("config", "configuration is nil", nil)
	}
	if err := validatorInstance().Struct(f); err != nil {
		return convertValidationError(err)
	}

	sets := make(map[string]bool, len(f.Sets))
	for i, set := range f.Sets {
		if sets[set.Name] {
			return hserrors.NewValidationError(fieldForSet(i, "name"), fmt.Sprintf("duplicate set %q", set.Name), nil)
		}
		sets[set.Name] = true
	}

	suites := make(map[string]bool, len(f.Suites))
	for i, s := range f.Suites {
		if suites[s.Name] {
			return hserrors.NewValidationError(fieldForSuite(i, "name"), fmt.Sprintf("duplicate suite %q", s.Name), nil)
		}
		suites[s.Name] = true

		if len(s.Include) == 0 && len(s.Expectations) == 0 {
			return hserrors.NewValidationError(fieldForSuite(i, "expectations"), fmt.Sprintf("suite %q has no expectations", s.Name), nil)
		}
		if s.Provision != nil && s.Provision.TargetHost != "" && s.Provision.TargetHostEnv != "" {
			return hserrors.NewValidationError(fieldForSuite(i, "provision"), "target_host and target_host_env are mutually exclusive", nil)
		}
	}
	return nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}
