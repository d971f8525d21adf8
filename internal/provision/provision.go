// Package provision invokes the external step that configures a host before
// it is verified. hostspec never provisions anything itself.
package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/alexisbeaulieu97/hostspec/internal/internalexec"
	"github.com/alexisbeaulieu97/hostspec/internal/logger"
	hserrors "github.com/alexisbeaulieu97/hostspec/pkg/errors"
)

// Config describes one provisioning run.
type Config struct {
	Playbook   string
	TargetHost string
	Variables  map[string]any
}

// Host returns the target host, or "localhost" when none is set.
func (c Config) Host() string {
	if c.TargetHost == "" {
		return "localhost"
	}
	return c.TargetHost
}

// Gateway provisions a host. Any returned error is fatal to the suite.
type Gateway interface {
	Provision(ctx context.Context, cfg Config) error
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, cfg Config) error

// Provision implements Gateway.
func (f GatewayFunc) Provision(ctx context.Context, cfg Config) error {
	return f(ctx, cfg)
}

// NoopGateway skips provisioning, for hosts that are already configured.
type NoopGateway struct{}

// Provision implements Gateway.
func (NoopGateway) Provision(context.Context, Config) error { return nil }

const failureTailLines = 20

// AnsibleGateway runs ansible-playbook.
type AnsibleGateway struct {
	// Binary defaults to ansible-playbook.
	Binary string
	// ExtraArgs are appended after the generated arguments.
	ExtraArgs []string
	// Output receives the playbook's output as it runs. Optional.
	Output io.Writer
	Logger *logger.Logger
}

// Args builds the ansible-playbook argument list for cfg.
func (g *AnsibleGateway) Args(cfg Config) ([]string, error) {
	args := []string{cfg.Playbook}
	if cfg.TargetHost != "" {
		// The trailing comma makes ansible read an inline host list.
		args = append(args, "-i", cfg.TargetHost+",")
	}
	if len(cfg.Variables) > 0 {
		vars, err := json.Marshal(cfg.Variables)
		if err != nil {
			return nil, fmt.Errorf("encode variables: %w", err)
		}
		args = append(args, "-e", string(vars))
	}
	return append(args, g.ExtraArgs...), nil
}

// Provision implements Gateway.
func (g *AnsibleGateway) Provision(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.Playbook) == "" {
		return hserrors.NewProvisioningError(cfg.Playbook, cfg.TargetHost, fmt.Errorf("no playbook configured"))
	}
	args, err := g.Args(cfg)
	if err != nil {
		return hserrors.NewProvisioningError(cfg.Playbook, cfg.TargetHost, err)
	}

	binary := g.Binary
	if binary == "" {
		binary = "ansible-playbook"
	}

	log := g.Logger.WithFields(map[string]any{"playbook": cfg.Playbook, "host": cfg.Host()})
	log.Info("provisioning host")

	out, err := internalexec.Run(exec.CommandContext(ctx, binary, args...), g.Output)
	if err != nil {
		if out.ExitCode > 0 {
			err = fmt.Errorf("%s exited with status %d: %s", binary, out.ExitCode,
				internalexec.Tail(internalexec.PrimaryOutput(out), failureTailLines))
		}
		log.Error(err, "provisioning failed")
		return hserrors.NewProvisioningError(cfg.Playbook, cfg.TargetHost, err)
	}

	log.Info("host provisioned")
	return nil
}
