package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeRunner replays scripted results and records every invocation.
type fakeRunner struct {
	script []scripted
	calls  [][]string
}

type scripted struct {
	res result
	err error
}

func (f *fakeRunner) run(_ context.Context, _ time.Duration, name string, args ...string) (result, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if len(f.script) == 0 {
		return result{}, nil
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next.res, next.err
}

func okResult(stdout string) scripted {
	return scripted{res: result{exitCode: 0, stdout: stdout}}
}

func failResult(code int, stderr string) scripted {
	return scripted{res: result{exitCode: code, stderr: stderr}}
}

func timeoutResult() scripted {
	return scripted{res: result{exitCode: -1, timedOut: true}}
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func runningOnly(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if r.State == StateRunning {
			out = append(out, r)
		}
	}
	return out
}
