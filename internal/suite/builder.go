package suite

import (
	"github.com/alexisbeaulieu97/hostspec/internal/expect"
	"github.com/alexisbeaulieu97/hostspec/internal/provision"
)

// Suite is a provisioning configuration plus the ordered expectations to
// verify after it.
type Suite struct {
	Name         string
	Provisioning provision.Config
	Expectations []expect.Expectation
}

// Builder assembles a Suite. Included sets keep their inclusion order and
// always precede ad-hoc expectations.
type Builder struct {
	registry     *Registry
	name         string
	provisioning provision.Config
	included     []expect.Expectation
	adhoc        []expect.Expectation
}

// NewBuilder starts a suite named name that includes sets from registry.
func NewBuilder(registry *Registry, name string) *Builder {
	return &Builder{registry: registry, name: name}
}

// Provision sets the provisioning configuration.
func (b *Builder) Provision(cfg provision.Config) *Builder {
	b.provisioning = cfg
	return b
}

// Include instantiates the named set with bindings and appends the result.
// On error nothing is appended.
func (b *Builder) Include(setName string, bindings map[string]string) error {
	if b.registry == nil {
		b.registry = NewRegistry()
	}
	set, err := b.registry.Lookup(setName)
	if err != nil {
		return err
	}
	exps, err := expect.Instantiate(set, bindings)
	if err != nil {
		return err
	}
	b.included = append(b.included, exps...)
	return nil
}

// Add appends suite-local expectations.
func (b *Builder) Add(exps ...expect.Expectation) {
	b.adhoc = append(b.adhoc, exps...)
}

// Build returns the suite. The builder can keep being used; later changes do
// not affect suites already built.
func (b *Builder) Build() Suite {
	exps := make([]expect.Expectation, 0, len(b.included)+len(b.adhoc))
	exps = append(exps, b.included...)
	exps = append(exps, b.adhoc...)
	return Suite{Name: b.name, Provisioning: b.provisioning, Expectations: exps}
}
