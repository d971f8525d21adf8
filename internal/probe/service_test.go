package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/coreos/go-systemd/v22/dbus"
	godbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/hostspec/internal/internalexec"
)

func TestSystemctlManagerExitCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		out     internalexec.Result
		err     error
		running bool
		wantErr bool
	}{
		{name: "active", out: internalexec.Result{Stdout: "active\n", ExitCode: 0}, running: true},
		{name: "inactive", out: internalexec.Result{Stdout: "inactive\n", ExitCode: 3}, err: errors.New("exit status 3")},
		{name: "no such unit", out: internalexec.Result{Stdout: "inactive\n", ExitCode: 4}, err: errors.New("exit status 4")},
		{name: "systemctl missing", out: internalexec.Result{Stderr: "systemctl: not found", ExitCode: 127}, wantErr: true},
		{name: "bus failure", out: internalexec.Result{Stderr: "Failed to connect to bus", ExitCode: 1}, wantErr: true},
		{name: "not launched", out: internalexec.Result{ExitCode: -1}, err: errors.New("exec: ssh: not found"), wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &SystemctlManager{Shell: scriptedRunner{out: tt.out, err: tt.err}}
			running, err := m.IsRunning(context.Background(), "mongod")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.running, running)
		})
	}
}

type fakeSystemd struct {
	state  string
	err    error
	closed bool
	unit   string
}

func (f *fakeSystemd) Close() { f.closed = true }

func (f *fakeSystemd) GetUnitPropertyContext(_ context.Context, unit string, propertyName string) (*dbus.Property, error) {
	f.unit = unit
	if f.err != nil {
		return nil, f.err
	}
	return &dbus.Property{Name: propertyName, Value: godbus.MakeVariant(f.state)}, nil
}

func TestDBusManager(t *testing.T) {
	t.Parallel()

	conn := &fakeSystemd{state: "active"}
	m := &DBusManager{connect: func(context.Context) (systemdConnection, error) { return conn, nil }}

	running, err := m.IsRunning(context.Background(), "mongod")
	require.NoError(t, err)
	require.True(t, running)
	require.Equal(t, "mongod.service", conn.unit)
	require.True(t, conn.closed)

	conn.state = "inactive"
	running, err = m.IsRunning(context.Background(), "mongod.service")
	require.NoError(t, err)
	require.False(t, running)
	require.Equal(t, "mongod.service", conn.unit)
}

func TestDBusManagerConnectionFailure(t *testing.T) {
	t.Parallel()

	m := &DBusManager{connect: func(context.Context) (systemdConnection, error) {
		return nil, errors.New("no system bus")
	}}
	_, err := m.IsRunning(context.Background(), "mongod")
	require.ErrorContains(t, err, "connect to systemd")

	m = &DBusManager{connect: func(context.Context) (systemdConnection, error) {
		return &fakeSystemd{err: errors.New("access denied")}, nil
	}}
	_, err = m.IsRunning(context.Background(), "mongod")
	require.ErrorContains(t, err, "read ActiveState of mongod.service")
}
