package service

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// result captures one finished (or timed out) subprocess invocation.
type result struct {
	exitCode int
	stdout   string
	stderr   string
	timedOut bool
}

func (r result) ok() bool {
	return r.exitCode == 0 && !r.timedOut
}

// cause summarizes why an invocation failed, for logging.
func (r result) cause() string {
	switch {
	case r.timedOut:
		return "timeout"
	case r.exitCode != 0:
		if s := firstLine(r.stderr); s != "" {
			return s
		}
		return "non-zero exit"
	}
	return ""
}

// runner abstracts subprocess execution so backend parsers and action
// logic can be exercised with a fake in tests.
type runner interface {
	run(ctx context.Context, timeout time.Duration, name string, args ...string) (result, error)
}

// execRunner shells out with a hard deadline. Arguments are passed as
// discrete argv tokens; service names are never interpolated into a
// shell string.
type execRunner struct{}

func (execRunner) run(ctx context.Context, timeout time.Duration, name string, args ...string) (result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := result{stdout: stdout.String(), stderr: stderr.String()}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.timedOut = true
		res.exitCode = -1
		return res, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.exitCode = exitErr.ExitCode()
			return res, nil
		}
		// Binary missing or not startable.
		return res, err
	}
	return res, nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			return s[:i]
		}
	}
	return s
}
