package probe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/alexisbeaulieu97/hostspec/internal/matcher"
)

func TestProbeFieldsByKind(t *testing.T) {
	t.Parallel()

	require.Equal(t, FieldStdout, Command("mongo --version").DefaultField())
	require.Equal(t, FieldContent, FileRead("/etc/mongod.conf").DefaultField())
	require.Equal(t, FieldRunning, ServiceQuery("mongod").DefaultField())
	require.Equal(t, FieldStdout, MongoCommand("mongodb://localhost", "", `{"ping":1}`).DefaultField())

	require.True(t, Command("x").AllowsField(FieldExitCode))
	require.False(t, Command("x").AllowsField(FieldRunning))
	require.False(t, ServiceQuery("mongod").AllowsField(FieldStdout))
	require.Equal(t, []Field{FieldContent, FieldExists}, FileRead("/x").Fields())
}

func TestFieldValueKinds(t *testing.T) {
	t.Parallel()

	require.Equal(t, matcher.KindInt, FieldExitCode.ValueKind())
	require.Equal(t, matcher.KindBool, FieldRunning.ValueKind())
	require.Equal(t, matcher.KindBool, FieldExists.ValueKind())
	require.Equal(t, matcher.KindString, FieldContent.ValueKind())
}

func TestProbeValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Command("mongod --version").Validate())
	require.Error(t, FileRead("").Validate())
	require.Error(t, ServiceQuery(" ").Validate())
	require.Error(t, MongoCommand("", "admin", `{"ping":1}`).Validate())
	require.Error(t, Probe{Kind: "registry"}.Validate())
}

func TestProbeString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "command mongod --version", Command("mongod --version").String())
	require.Equal(t, "file /sys/kernel/mm/transparent_hugepage/enabled", FileRead("/sys/kernel/mm/transparent_hugepage/enabled").String())
	require.Equal(t, "service mongod", ServiceQuery("mongod").String())
	require.Equal(t, `mongo admin {"ping":1}`, MongoCommand("mongodb://h", "", `{"ping":1}`).String())
}

func TestResultValue(t *testing.T) {
	t.Parallel()

	res := Result{Kind: KindCommand, Stdout: "out", Stderr: "err", ExitCode: 2}

	v, err := res.Value(FieldExitCode)
	require.NoError(t, err)
	require.Equal(t, matcher.Int("exit_code", 2), v)

	v, err = res.Value(FieldStderr)
	require.NoError(t, err)
	require.Equal(t, "err", v.Str)

	_, err = res.Value(FieldRunning)
	require.ErrorContains(t, err, "field running is not produced by command probes")

	v, err = Result{Kind: KindFile, Exists: true, Content: "x"}.Value(FieldExists)
	require.NoError(t, err)
	require.True(t, v.Bool)
}

func TestParseMongoCommandKeepsOrder(t *testing.T) {
	t.Parallel()

	cmd, err := ParseMongoCommand(`{"count": "system.users", "query": {}}`)
	require.NoError(t, err)
	require.Equal(t, "count", cmd[0].Key)
	require.Equal(t, "query", cmd[1].Key)

	_, err = ParseMongoCommand(`{"count":`)
	require.Error(t, err)

	_, err = ParseMongoCommand(`{}`)
	require.ErrorContains(t, err, "empty")
}

func TestCommandErrorResult(t *testing.T) {
	t.Parallel()

	res, err := commandErrorResult(mongo.CommandError{Code: 13, Name: "Unauthorized", Message: "not authorized on admin to execute command"})
	require.NoError(t, err)
	require.Equal(t, 13, res.ExitCode)
	require.Equal(t, "not authorized on admin to execute command", res.Stderr)

	_, err = commandErrorResult(errors.New("connection refused"))
	require.Error(t, err)
}
