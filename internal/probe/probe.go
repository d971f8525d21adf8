// Package probe runs read-only checks against the target host and returns
// structured results for matchers to inspect.
package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/hostspec/internal/matcher"
)

// Kind discriminates the probe variants.
type Kind string

const (
	KindCommand Kind = "command"
	KindFile    Kind = "file"
	KindService Kind = "service"
	KindMongo   Kind = "mongo"
)

// Field selects the result attribute an expectation inspects.
type Field string

const (
	FieldStdout   Field = "stdout"
	FieldStderr   Field = "stderr"
	FieldExitCode Field = "exit_code"
	FieldContent  Field = "content"
	FieldExists   Field = "exists"
	FieldRunning  Field = "running"
)

var fieldsByKind = map[Kind][]Field{
	KindCommand: {FieldStdout, FieldStderr, FieldExitCode},
	KindMongo:   {FieldStdout, FieldStderr, FieldExitCode},
	KindFile:    {FieldContent, FieldExists},
	KindService: {FieldRunning},
}

// ValueKind reports the type a field yields.
func (f Field) ValueKind() matcher.ValueKind {
	switch f {
	case FieldExitCode:
		return matcher.KindInt
	case FieldExists, FieldRunning:
		return matcher.KindBool
	default:
		return matcher.KindString
	}
}

// MongoSpec describes a single database command sent with the MongoDB driver.
type MongoSpec struct {
	URI      string
	Database string
	// Command is an extended JSON document, e.g. {"usersInfo": 1}.
	Command string
}

// Probe is an immutable description of one read-only host action.
type Probe struct {
	Kind       Kind
	Invocation string
	Path       string
	Service    string
	Mongo      MongoSpec
}

// Command probes run invocation in a shell on the target host.
func Command(invocation string) Probe {
	return Probe{Kind: KindCommand, Invocation: invocation}
}

// FileRead probes read the full content of path.
func FileRead(path string) Probe {
	return Probe{Kind: KindFile, Path: path}
}

// ServiceQuery probes ask the service manager whether name is running.
func ServiceQuery(name string) Probe {
	return Probe{Kind: KindService, Service: name}
}

// MongoCommand probes run one database command. database defaults to admin.
func MongoCommand(uri, database, command string) Probe {
	if database == "" {
		database = "admin"
	}
	return Probe{Kind: KindMongo, Mongo: MongoSpec{URI: uri, Database: database, Command: command}}
}

// Validate checks the probe carries the data its kind needs.
func (p Probe) Validate() error {
	switch p.Kind {
	case KindCommand:
		if strings.TrimSpace(p.Invocation) == "" {
			return fmt.Errorf("command probe requires an invocation")
		}
	case KindFile:
		if strings.TrimSpace(p.Path) == "" {
			return fmt.Errorf("file probe requires a path")
		}
	case KindService:
		if strings.TrimSpace(p.Service) == "" {
			return fmt.Errorf("service probe requires a name")
		}
	case KindMongo:
		if strings.TrimSpace(p.Mongo.URI) == "" || strings.TrimSpace(p.Mongo.Command) == "" {
			return fmt.Errorf("mongo probe requires a uri and a command")
		}
	default:
		return fmt.Errorf("unknown probe kind %q", p.Kind)
	}
	return nil
}

// Fields lists the result fields this probe produces.
func (p Probe) Fields() []Field {
	return append([]Field(nil), fieldsByKind[p.Kind]...)
}

// AllowsField reports whether f is produced by this probe.
func (p Probe) AllowsField(f Field) bool {
	for _, candidate := range fieldsByKind[p.Kind] {
		if candidate == f {
			return true
		}
	}
	return false
}

// DefaultField is the field inspected when an expectation does not name one.
func (p Probe) DefaultField() Field {
	fields := fieldsByKind[p.Kind]
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (p Probe) String() string {
	switch p.Kind {
	case KindCommand:
		return "command " + p.Invocation
	case KindFile:
		return "file " + p.Path
	case KindService:
		return "service " + p.Service
	case KindMongo:
		return fmt.Sprintf("mongo %s %s", p.Mongo.Database, p.Mongo.Command)
	default:
		return string(p.Kind)
	}
}

// Result is the payload produced by executing a probe. Only the fields that
// belong to the probe's kind are meaningful.
type Result struct {
	Kind     Kind
	Stdout   string
	Stderr   string
	ExitCode int
	Content  string
	Exists   bool
	Running  bool
}

// Value extracts one field for a matcher.
func (r Result) Value(f Field) (matcher.FieldValue, error) {
	if !(Probe{Kind: r.Kind}).AllowsField(f) {
		return matcher.FieldValue{}, fmt.Errorf("field %s is not produced by %s probes", f, r.Kind)
	}
	name := string(f)
	switch f {
	case FieldStdout:
		return matcher.String(name, r.Stdout), nil
	case FieldStderr:
		return matcher.String(name, r.Stderr), nil
	case FieldExitCode:
		return matcher.Int(name, r.ExitCode), nil
	case FieldContent:
		return matcher.String(name, r.Content), nil
	case FieldExists:
		return matcher.Bool(name, r.Exists), nil
	default:
		return matcher.Bool(name, r.Running), nil
	}
}

// Executor runs probes. Implementations must not mutate host state and must
// honour ctx deadlines, reporting them as timeout probe errors.
type Executor interface {
	Execute(ctx context.Context, p Probe) (Result, error)
}
