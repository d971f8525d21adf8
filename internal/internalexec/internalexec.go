package internalexec

import (
	"bytes"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Result captures stdout/stderr emitted by a command run, byte for byte.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes cmd and collects its output. When tee is non-nil both streams are
// also copied there as they are produced, so operators can follow long runs.
// ExitCode is -1 when the process never started or was killed by a signal.
func Run(cmd *exec.Cmd, tee io.Writer) (Result, error) {
	var stdoutBuf, stderrBuf bytes.Buffer

	if tee != nil {
		tee = &lockedWriter{w: tee}
		cmd.Stdout = io.MultiWriter(tee, &stdoutBuf)
		cmd.Stderr = io.MultiWriter(tee, &stderrBuf)
	} else {
		cmd.Stdout = &stdoutBuf
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	return Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		ExitCode: exitCode,
	}, err
}

// PrimaryOutput returns trimmed stderr if present, otherwise trimmed stdout.
func PrimaryOutput(res Result) string {
	if s := strings.TrimSpace(res.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(res.Stdout)
}

// Tail keeps the last n lines of s.
func Tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

// QuoteArg single-quotes s for a POSIX shell.
func QuoteArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// lockedWriter serialises writes from the stdout and stderr copiers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
