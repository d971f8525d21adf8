package suite

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/hostspec/internal/events"
	"github.com/alexisbeaulieu97/hostspec/internal/expect"
	"github.com/alexisbeaulieu97/hostspec/internal/logger"
	"github.com/alexisbeaulieu97/hostspec/internal/matcher"
	"github.com/alexisbeaulieu97/hostspec/internal/probe"
	"github.com/alexisbeaulieu97/hostspec/internal/provision"
	"github.com/alexisbeaulieu97/hostspec/internal/report"
	hserrors "github.com/alexisbeaulieu97/hostspec/pkg/errors"
)

// DefaultProbeTimeout bounds each expectation's probe.
const DefaultProbeTimeout = 30 * time.Second

const cancelledDiagnostic = "not executed: run cancelled"

// ErrRunnerUsed is returned by Run on a runner that already ran.
var ErrRunnerUsed = errors.New("suite runner already used")

// State is the runner lifecycle position.
type State int

const (
	Idle State = iota
	Provisioning
	Running
	Reported
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Provisioning:
		return "provisioning"
	case Running:
		return "running"
	case Reported:
		return "reported"
	default:
		return "unknown"
	}
}

// Option configures a Runner.
type Option func(*Runner)

// WithProbeTimeout overrides DefaultProbeTimeout. Non-positive values are ignored.
func WithProbeTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(r *Runner) {
		if p != nil {
			r.publisher = p
		}
	}
}

// WithTargetHost records the host in the report.
func WithTargetHost(host string) Option {
	return func(r *Runner) { r.host = host }
}

// Runner provisions once, then evaluates every expectation in order. A Runner
// is single-use.
type Runner struct {
	suite     Suite
	gateway   provision.Gateway
	executor  probe.Executor
	timeout   time.Duration
	host      string
	logger    *logger.Logger
	publisher events.Publisher

	mu    sync.Mutex
	state State
}

// NewRunner builds a runner. A nil gateway skips provisioning.
func NewRunner(s Suite, gateway provision.Gateway, executor probe.Executor, opts ...Option) *Runner {
	r := &Runner{
		suite:     s,
		gateway:   gateway,
		executor:  executor,
		timeout:   DefaultProbeTimeout,
		host:      s.Provisioning.TargetHost,
		publisher: events.Nop{},
	}
	if r.gateway == nil {
		r.gateway = provision.NoopGateway{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) transition(from, to State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != from {
		return false
	}
	r.state = to
	return true
}

// Run executes the suite. A provisioning failure returns a report holding one
// failing result together with the ProvisioningError. Once provisioning
// succeeds every expectation gets a result and the error is nil, even when
// ctx is cancelled: expectations not yet started are recorded as failures.
func (r *Runner) Run(ctx context.Context) (*report.RunReport, error) {
	if !r.transition(Idle, Provisioning) {
		return nil, ErrRunnerUsed
	}

	rep := report.New(r.suite.Name, r.host)
	log := r.logger.ForSuite(r.suite.Name, rep.RunID)

	r.publish(ctx, events.SuiteProvisioning, map[string]any{"playbook": r.suite.Provisioning.Playbook})
	// A run cancelled before it starts never reaches the gateway.
	err := ctx.Err()
	if err == nil {
		err = r.gateway.Provision(ctx, r.suite.Provisioning)
	}
	if err != nil {
		var provErr *hserrors.ProvisioningError
		if !errors.As(err, &provErr) {
			err = hserrors.NewProvisioningError(r.suite.Provisioning.Playbook, r.suite.Provisioning.TargetHost, err)
		}
		rep.Append(report.Result{
			Description: provisionDescription(r.suite.Provisioning),
			Verdict:     report.Fail,
			Diagnostic:  err.Error(),
		})
		log.Error(err, "provisioning failed, no expectations run")
		r.publish(ctx, events.SuiteProvisionFailed, map[string]any{"error": err.Error()})
		r.finish(ctx, rep)
		return rep, err
	}
	r.publish(ctx, events.SuiteProvisioned, nil)

	r.transition(Provisioning, Running)
	log.WithFields(map[string]any{"expectations": len(r.suite.Expectations)}).Info("verifying host")

	for _, exp := range r.suite.Expectations {
		var res report.Result
		if ctx.Err() != nil {
			res = notExecuted(exp)
		} else {
			res = r.evaluate(ctx, exp)
		}
		rep.Append(res)

		if res.Verdict == report.Fail {
			log.ForExpectation(len(rep.Results)-1, res.Description).Debug(res.Diagnostic)
		}
		r.publish(ctx, events.ExpectationCompleted, map[string]any{
			"index":       len(rep.Results) - 1,
			"description": res.Description,
			"verdict":     string(res.Verdict),
		})
	}

	r.finish(ctx, rep)
	log.WithFields(map[string]any{
		"passed":   rep.Passed(),
		"failed":   rep.Failed(),
		"duration": rep.Duration.String(),
	}).Info("suite verified")
	return rep, nil
}

func (r *Runner) evaluate(ctx context.Context, exp expect.Expectation) report.Result {
	res := baseResult(exp)
	start := time.Now()

	// The in-flight probe outlives cancellation of the run; only its own timeout stops it.
	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	var verdict matcher.Verdict
	if r.executor == nil {
		verdict = matcher.Verdict{Status: matcher.Fail, Diagnostic: "no probe executor configured"}
	} else if out, err := r.executor.Execute(probeCtx, exp.Probe); err != nil {
		verdict = matcher.Verdict{Status: matcher.Fail, Diagnostic: err.Error()}
	} else {
		verdict = exp.Evaluate(out)
	}

	res.Duration = time.Since(start)
	res.Diagnostic = verdict.Diagnostic
	res.Detail = verdict.Detail
	res.Verdict = report.Fail
	if verdict.Passed() {
		res.Verdict = report.Pass
	}
	return res
}

func (r *Runner) finish(ctx context.Context, rep *report.RunReport) {
	r.mu.Lock()
	r.state = Reported
	r.mu.Unlock()
	rep.Finish()
	r.publish(ctx, events.SuiteReported, map[string]any{
		"passed": rep.Passed(),
		"failed": rep.Failed(),
	})
}

func (r *Runner) publish(ctx context.Context, eventType string, payload map[string]any) {
	fields := map[string]any{"suite": r.suite.Name}
	for k, v := range payload {
		fields[k] = v
	}
	r.publisher.Publish(context.WithoutCancel(ctx), events.Event{Type: eventType, Payload: fields})
}

func baseResult(exp expect.Expectation) report.Result {
	res := report.Result{
		Description: exp.Describe(),
		Probe:       exp.Probe.String(),
		Field:       string(exp.Field),
	}
	if exp.Matcher != nil {
		res.Matcher = exp.Matcher.String()
	}
	return res
}

func notExecuted(exp expect.Expectation) report.Result {
	res := baseResult(exp)
	res.Verdict = report.Fail
	res.Diagnostic = cancelledDiagnostic
	return res
}

func provisionDescription(cfg provision.Config) string {
	if cfg.Playbook == "" {
		return "provision " + cfg.Host()
	}
	return "provision with " + cfg.Playbook
}
