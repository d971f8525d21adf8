package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/alexisbeaulieu97/hostspec/internal/internalexec"
)

// ServiceManager reports whether a service is running. A stopped or unknown
// service is (false, nil); an error means the manager itself could not be asked.
type ServiceManager interface {
	IsRunning(ctx context.Context, name string) (bool, error)
}

// ScriptRunner runs a shell script on the target host.
type ScriptRunner interface {
	RunScript(ctx context.Context, script string) (internalexec.Result, error)
}

// systemctl is-active exit statuses.
const (
	systemctlInactive = 3
	systemctlNoUnit   = 4
	shellNotFound     = 127
)

// SystemctlManager asks systemctl is-active through a ScriptRunner, so it works
// locally and through a transport.
type SystemctlManager struct {
	Shell ScriptRunner
}

// IsRunning implements ServiceManager.
func (m *SystemctlManager) IsRunning(ctx context.Context, name string) (bool, error) {
	out, err := m.Shell.RunScript(ctx, "systemctl is-active "+internalexec.QuoteArg(name))
	if out.ExitCode < 0 || errors.Is(err, ErrTransportFailed) {
		if err == nil {
			err = fmt.Errorf("systemctl did not run")
		}
		return false, err
	}

	switch out.ExitCode {
	case 0:
		return true, nil
	case systemctlInactive, systemctlNoUnit:
		return false, nil
	case shellNotFound:
		return false, fmt.Errorf("systemctl not available: %s", internalexec.PrimaryOutput(out))
	default:
		return false, fmt.Errorf("systemctl is-active %s exited %d: %s", name, out.ExitCode, internalexec.PrimaryOutput(out))
	}
}

type systemdConnection interface {
	Close()
	GetUnitPropertyContext(ctx context.Context, unit string, propertyName string) (*dbus.Property, error)
}

// DBusManager reads a unit's ActiveState over the local systemd D-Bus API.
// It cannot see through a transport.
type DBusManager struct {
	connect func(ctx context.Context) (systemdConnection, error)
}

// NewDBusManager returns a manager connected to the system bus on demand.
func NewDBusManager() *DBusManager {
	return &DBusManager{
		connect: func(ctx context.Context) (systemdConnection, error) {
			return dbus.NewWithContext(ctx)
		},
	}
}

// IsRunning implements ServiceManager.
func (m *DBusManager) IsRunning(ctx context.Context, name string) (bool, error) {
	conn, err := m.connect(ctx)
	if err != nil {
		return false, fmt.Errorf("connect to systemd: %w", err)
	}
	defer conn.Close()

	prop, err := conn.GetUnitPropertyContext(ctx, unitName(name), "ActiveState")
	if err != nil {
		return false, fmt.Errorf("read ActiveState of %s: %w", unitName(name), err)
	}
	state, ok := prop.Value.Value().(string)
	if !ok {
		return false, fmt.Errorf("unexpected ActiveState value %v", prop.Value)
	}
	return state == "active", nil
}

func unitName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}
