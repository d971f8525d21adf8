package probe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/hostspec/internal/internalexec"
	"github.com/alexisbeaulieu97/hostspec/internal/logger"
	hserrors "github.com/alexisbeaulieu97/hostspec/pkg/errors"
)

// fileAbsentStatus is the exit status the remote file reader uses for a missing path.
const fileAbsentStatus = 3

// DefaultTransportFailureStatus is the status ssh exits with when it cannot reach the host.
const DefaultTransportFailureStatus = 255

// ErrTransportFailed marks a transport that could not reach the target host.
var ErrTransportFailed = errors.New("transport failed")

// Options configures a ShellExecutor.
type Options struct {
	// Shell runs invocations locally. Defaults to sh.
	Shell string
	// Transport, when set, prefixes every invocation (e.g. ["ssh", "db1"]).
	// The invocation is passed as the final argument and interpreted by the remote shell.
	Transport []string
	// TransportFailureStatus is the transport's own exit status for an unreachable
	// host. Defaults to DefaultTransportFailureStatus; negative disables the check.
	TransportFailureStatus int
	// Services answers service queries. Defaults to systemctl through the same transport.
	Services ServiceManager
	// Mongo runs mongo probes. Defaults to the MongoDB driver.
	Mongo MongoRunner
	Logger *logger.Logger
}

// ShellExecutor executes probes through a local shell or a transport prefix.
type ShellExecutor struct {
	shell         string
	transport     []string
	failureStatus int
	services  ServiceManager
	mongo     MongoRunner
	logger    *logger.Logger
}

var _ Executor = (*ShellExecutor)(nil)

// NewExecutor builds a ShellExecutor from opts.
func NewExecutor(opts Options) *ShellExecutor {
	e := &ShellExecutor{
		shell:         opts.Shell,
		transport:     append([]string(nil), opts.Transport...),
		failureStatus: opts.TransportFailureStatus,
		services:      opts.Services,
		mongo:         opts.Mongo,
		logger:        opts.Logger,
	}
	if e.failureStatus == 0 {
		e.failureStatus = DefaultTransportFailureStatus
	}
	if e.shell == "" {
		e.shell = "sh"
	}
	if e.services == nil {
		e.services = &SystemctlManager{Shell: e}
	}
	if e.mongo == nil {
		e.mongo = DriverMongoRunner{}
	}
	return e
}

// Remote reports whether probes go through a transport.
func (e *ShellExecutor) Remote() bool {
	return len(e.transport) > 0
}

// Execute runs p and returns its result. A non-zero exit status is a result, not an error.
func (e *ShellExecutor) Execute(ctx context.Context, p Probe) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, hserrors.NewProbeError(hserrors.ProbeExecution, p.String(), err)
	}

	start := time.Now()
	var (
		res Result
		err error
	)
	switch p.Kind {
	case KindCommand:
		res, err = e.runCommand(ctx, p)
	case KindFile:
		res, err = e.readFile(ctx, p)
	case KindService:
		res, err = e.queryService(ctx, p)
	case KindMongo:
		res, err = e.runMongo(ctx, p)
	}

	e.logger.WithFields(map[string]any{
		"probe":       p.String(),
		"duration_ms": time.Since(start).Milliseconds(),
		"failed":      err != nil,
	}).Debug("probe executed")

	return res, err
}

// RunScript runs a shell script on the target and captures its output. When the
// transport exits with its failure status the error wraps ErrTransportFailed.
func (e *ShellExecutor) RunScript(ctx context.Context, script string) (internalexec.Result, error) {
	var cmd *exec.Cmd
	if e.Remote() {
		args := append(append([]string(nil), e.transport[1:]...), script)
		cmd = exec.CommandContext(ctx, e.transport[0], args...)
	} else {
		cmd = exec.CommandContext(ctx, e.shell, "-c", script)
	}
	// The process gets a short grace period after a deadline before pipes are abandoned.
	cmd.WaitDelay = time.Second

	out, err := internalexec.Run(cmd, nil)
	if e.Remote() && e.failureStatus > 0 && out.ExitCode == e.failureStatus {
		return out, fmt.Errorf("%w: %s exited with status %d: %s",
			ErrTransportFailed, e.transport[0], out.ExitCode, strings.TrimSpace(out.Stderr))
	}
	return out, err
}

func (e *ShellExecutor) runCommand(ctx context.Context, p Probe) (Result, error) {
	out, err := e.RunScript(ctx, p.Invocation)
	if err = classify(ctx, p, out, err); err != nil {
		return Result{}, err
	}
	return Result{Kind: KindCommand, Stdout: out.Stdout, Stderr: out.Stderr, ExitCode: out.ExitCode}, nil
}

func (e *ShellExecutor) readFile(ctx context.Context, p Probe) (Result, error) {
	if e.Remote() {
		return e.readRemoteFile(ctx, p)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, contextError(ctx, p, err)
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Kind: KindFile, Exists: false, Content: ""}, nil
		}
		return Result{}, hserrors.NewProbeError(hserrors.ProbeExecution, p.String(), err)
	}
	return Result{Kind: KindFile, Exists: true, Content: string(data)}, nil
}

func (e *ShellExecutor) readRemoteFile(ctx context.Context, p Probe) (Result, error) {
	path := internalexec.QuoteArg(p.Path)
	script := fmt.Sprintf("[ -e %s ] || exit %d; cat -- %s", path, fileAbsentStatus, path)

	out, err := e.RunScript(ctx, script)
	if err = classify(ctx, p, out, err); err != nil {
		return Result{}, err
	}
	switch out.ExitCode {
	case 0:
		return Result{Kind: KindFile, Exists: true, Content: out.Stdout}, nil
	case fileAbsentStatus:
		return Result{Kind: KindFile, Exists: false, Content: ""}, nil
	default:
		return Result{}, hserrors.NewProbeError(hserrors.ProbeExecution, p.String(),
			fmt.Errorf("read failed with exit status %d: %s", out.ExitCode, internalexec.PrimaryOutput(out)))
	}
}

func (e *ShellExecutor) queryService(ctx context.Context, p Probe) (Result, error) {
	running, err := e.services.IsRunning(ctx, p.Service)
	if err != nil {
		var probeErr *hserrors.ProbeError
		if errors.As(err, &probeErr) {
			return Result{}, err
		}
		if ctx.Err() != nil {
			return Result{}, contextError(ctx, p, err)
		}
		if errors.Is(err, ErrTransportFailed) {
			return Result{}, hserrors.NewProbeError(hserrors.ProbeExecution, p.String(), err)
		}
		return Result{}, hserrors.NewProbeError(hserrors.ProbeQuery, p.String(), err)
	}
	return Result{Kind: KindService, Running: running}, nil
}

func (e *ShellExecutor) runMongo(ctx context.Context, p Probe) (Result, error) {
	res, err := e.mongo.RunCommand(ctx, p.Mongo)
	if err != nil {
		var probeErr *hserrors.ProbeError
		if errors.As(err, &probeErr) {
			return Result{}, err
		}
		if ctx.Err() != nil {
			return Result{}, contextError(ctx, p, err)
		}
		return Result{}, hserrors.NewProbeError(hserrors.ProbeExecution, p.String(), err)
	}
	res.Kind = KindMongo
	return res, nil
}

// classify turns a process error into a probe error. Exit errors of the probed
// command are results and yield nil; a failed transport is not.
func classify(ctx context.Context, p Probe, out internalexec.Result, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return contextError(ctx, p, ctxErr)
	}
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if !errors.Is(err, ErrTransportFailed) && errors.As(err, &exitErr) && out.ExitCode >= 0 {
		return nil
	}
	return hserrors.NewProbeError(hserrors.ProbeExecution, p.String(), err)
}

func contextError(ctx context.Context, p Probe, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return hserrors.NewProbeError(hserrors.ProbeTimeout, p.String(), context.DeadlineExceeded)
	}
	return hserrors.NewProbeError(hserrors.ProbeExecution, p.String(), err)
}
