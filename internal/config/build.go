package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/hostspec/internal/expect"
	"github.com/alexisbeaulieu97/hostspec/internal/probe"
	"github.com/alexisbeaulieu97/hostspec/internal/provision"
	"github.com/alexisbeaulieu97/hostspec/internal/suite"
	hserrors "github.com/alexisbeaulieu97/hostspec/pkg/errors"
)

// targetHostToken in a transport entry or a suite-local mongo uri is replaced
// with the suite's target host.
const targetHostToken = "${target_host}"

// Loaded is a rule file turned into a registry and ready-to-run suites.
type Loaded struct {
	Registry       *suite.Registry
	Suites         []suite.Suite
	Transport      []string
	ServiceManager string
	ProbeTimeout   time.Duration
}

// BuildOptions tunes Build.
type BuildOptions struct {
	// Getenv resolves target_host_env. Defaults to os.Getenv.
	Getenv func(string) string
	// TargetHost overrides every suite's target host when set.
	TargetHost string
}

// Load parses and validates path, then builds it with opts.
func Load(path string, opts BuildOptions) (*Loaded, error) {
	f, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return Build(f, opts)
}

// Build registers every set and instantiates every suite. Binding and unknown
// set errors surface here, before any host is touched.
func Build(f *File, opts BuildOptions) (*Loaded, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	out := &Loaded{
		Registry:       suite.NewRegistry(),
		Transport:      append([]string(nil), f.Transport...),
		ServiceManager: f.ServiceManager,
		ProbeTimeout:   suite.DefaultProbeTimeout,
	}
	if out.ServiceManager == "" {
		out.ServiceManager = "systemctl"
	}
	if f.ProbeTimeout != "" {
		d, err := time.ParseDuration(f.ProbeTimeout)
		if err != nil {
			return nil, hserrors.NewValidationError("probe_timeout", err.Error(), err)
		}
		out.ProbeTimeout = d
	}

	for i, def := range f.Sets {
		set, err := buildSet(def)
		if err != nil {
			return nil, err
		}
		if err := out.Registry.Register(set); err != nil {
			return nil, hserrors.NewValidationError(fieldForSet(i, "name"), err.Error(), err)
		}
	}

	for _, def := range f.Suites {
		s, err := buildSuite(out.Registry, def, opts)
		if err != nil {
			return nil, err
		}
		out.Suites = append(out.Suites, s)
	}
	return out, nil
}

// Select returns the named suites in file order, or all suites when names is empty.
func (l *Loaded) Select(names []string) ([]suite.Suite, error) {
	if len(names) == 0 {
		return append([]suite.Suite(nil), l.Suites...), nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []suite.Suite
	for _, s := range l.Suites {
		if wanted[s.Name] {
			out = append(out, s)
			delete(wanted, s.Name)
		}
	}
	for _, n := range names {
		if wanted[n] {
			return nil, hserrors.NewValidationError("suite", fmt.Sprintf("unknown suite %q", n), nil)
		}
	}
	return out, nil
}

// TransportFor expands the transport for host. Without a configured transport
// a remote host is reached with plain ssh.
func (l *Loaded) TransportFor(host string) []string {
	if len(l.Transport) == 0 {
		if host == "" {
			return nil
		}
		return []string{"ssh", host}
	}
	out := make([]string, len(l.Transport))
	for i, arg := range l.Transport {
		out[i] = strings.ReplaceAll(arg, targetHostToken, host)
	}
	return out
}

func buildSet(def SetDef) (*expect.Set, error) {
	params := make([]expect.Param, len(def.Params))
	for i, p := range def.Params {
		params[i] = expect.Param{Name: p.Name, Type: expect.ParamType(p.Type), Description: p.Description}
	}
	return expect.NewSet(def.Name, def.Description, params, templates(def.Expectations, ""))
}

func buildSuite(reg *suite.Registry, def SuiteDef, opts BuildOptions) (suite.Suite, error) {
	cfg := provisionConfig(def.Provision, opts)
	b := suite.NewBuilder(reg, def.Name)
	b.Provision(cfg)

	for _, inc := range def.Include {
		if err := b.Include(inc.Set, inc.With); err != nil {
			return suite.Suite{}, fmt.Errorf("suite %s: %w", def.Name, err)
		}
	}

	if len(def.Expectations) > 0 {
		// Suite-local expectations take no params, so any placeholder is rejected.
		local, err := expect.NewSet(def.Name, def.Description, nil, templates(def.Expectations, cfg.Host()))
		if err != nil {
			return suite.Suite{}, fmt.Errorf("suite %s: %w", def.Name, err)
		}
		exps, err := expect.Instantiate(local, nil)
		if err != nil {
			return suite.Suite{}, fmt.Errorf("suite %s: %w", def.Name, err)
		}
		b.Add(exps...)
	}
	return b.Build(), nil
}

func provisionConfig(def *ProvisionDef, opts BuildOptions) provision.Config {
	var cfg provision.Config
	if def != nil {
		cfg = provision.Config{Playbook: def.Playbook, TargetHost: def.TargetHost, Variables: def.Vars}
		if def.TargetHostEnv != "" {
			cfg.TargetHost = strings.TrimSpace(opts.Getenv(def.TargetHostEnv))
		}
	}
	if opts.TargetHost != "" {
		cfg.TargetHost = opts.TargetHost
	}
	return cfg
}

// templates converts definitions. A non-empty host replaces targetHostToken in mongo uris.
func templates(defs []ExpectationDef, host string) []expect.Template {
	out := make([]expect.Template, len(defs))
	for i, d := range defs {
		t := expect.Template{
			Probe:       expect.ProbeTemplate{Kind: probe.Kind(d.Probe)},
			Field:       probe.Field(d.Field),
			Matcher:     expect.MatcherTemplate{Kind: expect.MatcherKind(d.Matcher), Literal: d.Expected},
			Description: d.Description,
		}
		switch probe.Kind(d.Probe) {
		case probe.KindCommand:
			t.Probe.Invocation = d.Target
		case probe.KindFile:
			t.Probe.Path = d.Target
		case probe.KindService:
			t.Probe.Service = d.Target
		case probe.KindMongo:
			if d.Mongo != nil {
				t.Probe.MongoURI = d.Mongo.URI
				if host != "" {
					t.Probe.MongoURI = strings.ReplaceAll(d.Mongo.URI, targetHostToken, host)
				}
				t.Probe.MongoDatabase = d.Mongo.Database
				t.Probe.MongoCommand = d.Mongo.Command
			}
		}
		out[i] = t
	}
	return out
}
