package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/hostspec/internal/internalexec"
	"github.com/alexisbeaulieu97/hostspec/internal/matcher"
	hserrors "github.com/alexisbeaulieu97/hostspec/pkg/errors"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}
}

func requireProbeError(t *testing.T, err error, kind hserrors.ProbeErrorKind) {
	t.Helper()
	var probeErr *hserrors.ProbeError
	require.ErrorAs(t, err, &probeErr)
	require.Equal(t, kind, probeErr.Kind)
}

func TestCommandCapturesOutputVerbatim(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	exec := NewExecutor(Options{})
	res, err := exec.Execute(context.Background(), Command(`printf 'db version v3.6.12\n'; echo warn >&2`))
	require.NoError(t, err)
	require.Equal(t, KindCommand, res.Kind)
	require.Equal(t, "db version v3.6.12\n", res.Stdout)
	require.Equal(t, "warn\n", res.Stderr)
	require.Equal(t, 0, res.ExitCode)
}

func TestCommandNonZeroExitIsAResult(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	exec := NewExecutor(Options{})

	res, err := exec.Execute(context.Background(), Command("hostspec-missing-binary-12345 --version"))
	require.NoError(t, err)
	require.Equal(t, 127, res.ExitCode)
	require.NotEmpty(t, res.Stderr)

	res, err = exec.Execute(context.Background(), Command("exit 3"))
	require.NoError(t, err)
	require.Equal(t, 3, res.ExitCode)
}

func TestCommandLaunchFailureIsExecutionError(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(Options{Shell: "/nonexistent/hostspec-shell"})
	_, err := exec.Execute(context.Background(), Command("true"))
	requireProbeError(t, err, hserrors.ProbeExecution)

	remote := NewExecutor(Options{Transport: []string{"/nonexistent/hostspec-ssh", "db1"}})
	_, err = remote.Execute(context.Background(), Command("true"))
	requireProbeError(t, err, hserrors.ProbeExecution)
}

// unreachableTransport behaves like ssh failing to resolve its host.
func unreachableTransport() []string {
	return []string{"sh", "-c", "echo 'ssh: Could not resolve hostname db1.invalid' >&2; exit 255", "fake-ssh"}
}

func TestUnreachableHostIsExecutionError(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	exec := NewExecutor(Options{Transport: unreachableTransport()})

	for _, p := range []Probe{
		Command("mongo --eval 'db.getUsers()' admin"),
		FileRead("/sys/kernel/mm/transparent_hugepage/enabled"),
		ServiceQuery("mongod"),
	} {
		_, err := exec.Execute(context.Background(), p)
		requireProbeError(t, err, hserrors.ProbeExecution)
		require.ErrorIs(t, err, ErrTransportFailed, p.String())
		require.ErrorContains(t, err, "Could not resolve hostname db1.invalid")
	}
}

func TestTransportFailureStatusCanBeDisabled(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	exec := NewExecutor(Options{Transport: unreachableTransport(), TransportFailureStatus: -1})
	res, err := exec.Execute(context.Background(), Command("true"))
	require.NoError(t, err)
	require.Equal(t, DefaultTransportFailureStatus, res.ExitCode)
}

func TestCommandTimeout(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewExecutor(Options{}).Execute(ctx, Command("sleep 5"))
	requireProbeError(t, err, hserrors.ProbeTimeout)
}

func TestInvalidProbeIsRejected(t *testing.T) {
	t.Parallel()

	_, err := NewExecutor(Options{}).Execute(context.Background(), Command("  "))
	requireProbeError(t, err, hserrors.ProbeExecution)
}

func TestFileReadLocal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "enabled")
	require.NoError(t, os.WriteFile(path, []byte("always madvise [never]\n"), 0o644))

	exec := NewExecutor(Options{})

	res, err := exec.Execute(context.Background(), FileRead(path))
	require.NoError(t, err)
	require.True(t, res.Exists)
	require.Equal(t, "always madvise [never]\n", res.Content)

	res, err = exec.Execute(context.Background(), FileRead(filepath.Join(dir, "missing")))
	require.NoError(t, err)
	require.False(t, res.Exists)
	require.Equal(t, "", res.Content)

	verdict := matcher.Evaluate(matcher.Equals{Expected: "always madvise [never]\n"}, mustValue(t, res, FieldContent))
	require.False(t, verdict.Passed())
}

func TestFileReadThroughTransport(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "it's defrag")
	require.NoError(t, os.WriteFile(path, []byte("always madvise [never]\n"), 0o644))

	// sh -c stands in for a remote shell.
	exec := NewExecutor(Options{Transport: []string{"sh", "-c"}})
	require.True(t, exec.Remote())

	res, err := exec.Execute(context.Background(), FileRead(path))
	require.NoError(t, err)
	require.True(t, res.Exists)
	require.Equal(t, "always madvise [never]\n", res.Content)

	res, err = exec.Execute(context.Background(), FileRead(filepath.Join(dir, "missing")))
	require.NoError(t, err)
	require.False(t, res.Exists)
	require.Equal(t, "", res.Content)
}

func TestFileReadLocalDirectoryIsExecutionError(t *testing.T) {
	t.Parallel()

	_, err := NewExecutor(Options{}).Execute(context.Background(), FileRead(t.TempDir()))
	requireProbeError(t, err, hserrors.ProbeExecution)
}

type fakeServices struct {
	running bool
	err     error
	asked   []string
}

func (f *fakeServices) IsRunning(_ context.Context, name string) (bool, error) {
	f.asked = append(f.asked, name)
	return f.running, f.err
}

func TestServiceQuery(t *testing.T) {
	t.Parallel()

	services := &fakeServices{running: false}
	exec := NewExecutor(Options{Services: services})

	res, err := exec.Execute(context.Background(), ServiceQuery("mongod"))
	require.NoError(t, err)
	require.Equal(t, KindService, res.Kind)
	require.False(t, res.Running)
	require.Equal(t, []string{"mongod"}, services.asked)

	verdict := matcher.Evaluate(matcher.BooleanEquals{Expected: true}, mustValue(t, res, FieldRunning))
	require.Equal(t, matcher.Fail, verdict.Status)
}

func TestServiceQueryManagerUnreachable(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(Options{Services: &fakeServices{err: errors.New("bus unavailable")}})
	_, err := exec.Execute(context.Background(), ServiceQuery("mongod"))
	requireProbeError(t, err, hserrors.ProbeQuery)
}

type fakeMongo struct {
	result Result
	err    error
}

func (f fakeMongo) RunCommand(context.Context, MongoSpec) (Result, error) {
	return f.result, f.err
}

func TestMongoProbe(t *testing.T) {
	t.Parallel()

	exec := NewExecutor(Options{Mongo: fakeMongo{result: Result{Stdout: `{"n":2}`}}})
	res, err := exec.Execute(context.Background(), MongoCommand("mongodb://127.0.0.1:27017", "", `{"count": "system.users"}`))
	require.NoError(t, err)
	require.Equal(t, KindMongo, res.Kind)
	require.Equal(t, `{"n":2}`, res.Stdout)

	failing := NewExecutor(Options{Mongo: fakeMongo{err: errors.New("server selection timeout")}})
	_, err = failing.Execute(context.Background(), MongoCommand("mongodb://127.0.0.1:27017", "admin", `{"ping": 1}`))
	requireProbeError(t, err, hserrors.ProbeExecution)
}

type scriptedRunner struct {
	out internalexec.Result
	err error
}

func (s scriptedRunner) RunScript(context.Context, string) (internalexec.Result, error) {
	return s.out, s.err
}

func mustValue(t *testing.T, res Result, f Field) matcher.FieldValue {
	t.Helper()
	v, err := res.Value(f)
	require.NoError(t, err)
	return v
}
