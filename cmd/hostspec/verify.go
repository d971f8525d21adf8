package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/hostspec/internal/config"
	"github.com/alexisbeaulieu97/hostspec/internal/events"
	"github.com/alexisbeaulieu97/hostspec/internal/logger"
	"github.com/alexisbeaulieu97/hostspec/internal/probe"
	"github.com/alexisbeaulieu97/hostspec/internal/provision"
	"github.com/alexisbeaulieu97/hostspec/internal/report"
	"github.com/alexisbeaulieu97/hostspec/internal/suite"
	hserrors "github.com/alexisbeaulieu97/hostspec/pkg/errors"
)

type verifyFlags struct {
	suites         []string
	targetHost     string
	transport      string
	timeout        time.Duration
	parallel       int
	skipProvision  bool
	json           bool
	progress       bool
	serviceManager string
	ansibleArgs    []string
}

func newVerifyCmd(root *rootFlags) *cobra.Command {
	flags := &verifyFlags{}

	cmd := &cobra.Command{
		Use:   "verify <rules.yaml>",
		Short: "Provision and verify every suite of a rule file",
		Long: `Provision each selected suite with its playbook, then evaluate every
expectation against the target host and print a report.

Exit status is 0 when every expectation passed, 1 when any failed and 2 when
the rule file could not be loaded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, root, flags, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&flags.suites, "suite", "s", nil, "Run only this suite (repeatable)")
	cmd.Flags().StringVar(&flags.targetHost, "target-host", "", "Override the target host of every suite")
	cmd.Flags().StringVar(&flags.transport, "transport", "", "Transport prefix for probes, e.g. \"ssh -o BatchMode=yes ${target_host}\"")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Per-probe timeout (default from the rule file, else 30s)")
	cmd.Flags().IntVarP(&flags.parallel, "parallel", "p", 1, "Number of hosts verified concurrently")
	cmd.Flags().BoolVar(&flags.skipProvision, "skip-provision", false, "Verify the hosts as they are, without running playbooks")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Write the report as JSON")
	cmd.Flags().BoolVar(&flags.progress, "progress", false, "Print each verdict to stderr as it is reached")
	cmd.Flags().StringVar(&flags.serviceManager, "service-manager", "", "Service query backend: systemctl or dbus")
	cmd.Flags().StringArrayVar(&flags.ansibleArgs, "ansible-arg", nil, "Extra argument passed to ansible-playbook (repeatable)")

	return cmd
}

func runVerify(cmd *cobra.Command, root *rootFlags, flags *verifyFlags, path string) error {
	log, err := newLogger(root, flags.json)
	if err != nil {
		return &exitError{code: report.ExitConfigError, err: err}
	}

	loaded, err := loadRules(root, path, config.BuildOptions{TargetHost: flags.targetHost})
	if err != nil {
		return configFailure("verify", err)
	}
	suites, err := loaded.Select(flags.suites)
	if err != nil {
		return configFailure("verify", err)
	}

	if flags.transport != "" {
		loaded.Transport = strings.Fields(flags.transport)
	}
	if flags.serviceManager != "" {
		loaded.ServiceManager = flags.serviceManager
	}
	if flags.timeout > 0 {
		loaded.ProbeTimeout = flags.timeout
	}

	publisher := events.NewLoggingPublisher(log)
	if flags.progress {
		for _, sub := range subscribeProgress(publisher, cmd.ErrOrStderr()) {
			defer sub.Unsubscribe()
		}
	}

	runners := make([]*suite.Runner, len(suites))
	for i, s := range suites {
		r, err := newSuiteRunner(loaded, s, flags, log, publisher)
		if err != nil {
			return &exitError{code: report.ExitConfigError, err: err}
		}
		runners[i] = r
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reports := runSuites(ctx, suites, runners, flags.parallel, log)

	out := cmd.OutOrStdout()
	if flags.json {
		err = report.WriteJSON(out, reports)
	} else {
		err = report.WriteText(out, reports, report.TextOptions{Color: report.ColorEnabled(out)})
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if code := report.ExitCode(reports...); code != report.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

func newSuiteRunner(loaded *config.Loaded, s suite.Suite, flags *verifyFlags, log *logger.Logger, publisher events.Publisher) (*suite.Runner, error) {
	host := s.Provisioning.TargetHost
	transport := loaded.TransportFor(host)
	if isLocal(host) && flags.transport == "" {
		transport = nil
	}

	var services probe.ServiceManager
	switch loaded.ServiceManager {
	case "", "systemctl":
	case "dbus":
		if len(transport) > 0 {
			return nil, hserrors.NewValidationError("service_manager",
				fmt.Sprintf("dbus cannot query remote host %s, use systemctl", host), nil)
		}
		services = probe.NewDBusManager()
	default:
		return nil, hserrors.NewValidationError("service_manager",
			fmt.Sprintf("unknown service manager %q", loaded.ServiceManager), nil)
	}

	executor := probe.NewExecutor(probe.Options{
		Transport: transport,
		Services:  services,
		Logger:    log,
	})

	var gateway provision.Gateway = provision.NoopGateway{}
	if !flags.skipProvision && s.Provisioning.Playbook != "" {
		gateway = &provision.AnsibleGateway{
			ExtraArgs: flags.ansibleArgs,
			Output:    os.Stderr,
			Logger:    log,
		}
	}

	return suite.NewRunner(s, gateway, executor,
		suite.WithProbeTimeout(loaded.ProbeTimeout),
		suite.WithLogger(log),
		suite.WithPublisher(publisher),
	), nil
}

// runSuites runs suites for the same host one after another and different
// hosts concurrently, up to parallel at a time. Reports keep suite order.
func runSuites(ctx context.Context, suites []suite.Suite, runners []*suite.Runner, parallel int, log *logger.Logger) []*report.RunReport {
	if parallel < 1 {
		parallel = 1
	}

	var hosts []string
	groups := make(map[string][]int)
	for i, s := range suites {
		host := s.Provisioning.Host()
		if _, ok := groups[host]; !ok {
			hosts = append(hosts, host)
		}
		groups[host] = append(groups[host], i)
	}

	reports := make([]*report.RunReport, len(suites))
	p := pool.New().WithMaxGoroutines(parallel)
	for _, host := range hosts {
		indexes := groups[host]
		hostLog := log.ForHost(host)
		p.Go(func() {
			hostLog.WithFields(map[string]any{"suites": len(indexes)}).Debug("verifying host group")
			for _, i := range indexes {
				rep, err := runners[i].Run(ctx)
				if err != nil {
					hostLog.WithFields(map[string]any{"suite": suites[i].Name}).Warn(err.Error())
				}
				if rep == nil {
					rep = report.New(suites[i].Name, suites[i].Provisioning.TargetHost)
					rep.Append(report.Result{Description: suites[i].Name, Verdict: report.Fail, Diagnostic: err.Error()})
					rep.Finish()
				}
				reports[i] = rep
			}
		})
	}
	p.Wait()
	return reports
}

func isLocal(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
