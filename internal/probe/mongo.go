package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultServerSelectionTimeout = 5 * time.Second

// MongoRunner executes a database command and renders the reply as a command-style result.
type MongoRunner interface {
	RunCommand(ctx context.Context, spec MongoSpec) (Result, error)
}

// DriverMongoRunner talks to the server with the official Go driver.
// The reply is written to Stdout as relaxed extended JSON. A command the server
// rejects (e.g. Unauthorized) is a result: ExitCode carries the server error code
// and Stderr its message. Connection failures are errors.
type DriverMongoRunner struct {
	ServerSelectionTimeout time.Duration
}

// RunCommand implements MongoRunner.
func (r DriverMongoRunner) RunCommand(ctx context.Context, spec MongoSpec) (Result, error) {
	command, err := ParseMongoCommand(spec.Command)
	if err != nil {
		return Result{}, err
	}

	timeout := r.ServerSelectionTimeout
	if timeout <= 0 {
		timeout = defaultServerSelectionTimeout
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(spec.URI).SetServerSelectionTimeout(timeout))
	if err != nil {
		return Result{}, fmt.Errorf("connect to %s: %w", spec.URI, err)
	}
	defer func() {
		_ = client.Disconnect(context.WithoutCancel(ctx))
	}()

	var reply bson.D
	err = client.Database(spec.Database).RunCommand(ctx, command).Decode(&reply)
	if err != nil {
		return commandErrorResult(err)
	}

	out, err := bson.MarshalExtJSON(reply, false, false)
	if err != nil {
		return Result{}, fmt.Errorf("render reply: %w", err)
	}
	return Result{Kind: KindMongo, Stdout: string(out), ExitCode: 0}, nil
}

// ParseMongoCommand decodes an extended JSON command document, keeping key order.
func ParseMongoCommand(doc string) (bson.D, error) {
	var command bson.D
	if err := bson.UnmarshalExtJSON([]byte(doc), false, &command); err != nil {
		return nil, fmt.Errorf("invalid command document %s: %w", doc, err)
	}
	if len(command) == 0 {
		return nil, fmt.Errorf("command document is empty")
	}
	return command, nil
}

func commandErrorResult(err error) (Result, error) {
	var cmdErr mongo.CommandError
	if !errors.As(err, &cmdErr) {
		return Result{}, err
	}
	code := int(cmdErr.Code)
	if code == 0 {
		code = 1
	}
	return Result{Kind: KindMongo, Stderr: cmdErr.Message, ExitCode: code}, nil
}
