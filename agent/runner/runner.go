package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Kind distinguishes a process that ran to completion from one that was left running.
type Kind int

const (
	// Completed means the process exited and its output was captured.
	Completed Kind = iota
	// Launched means the process was spawned and left running on its own.
	Launched
)

func (k Kind) String() string {
	switch k {
	case Completed:
		return "completed"
	case Launched:
		return "launched"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Request struct {
	Command string
	Args    []string
	// Elevated runs the command through the runner's privilege prefix (sudo), if one is configured.
	Elevated bool
}

func (r Request) String() string {
	return strings.Join(append([]string{r.Command}, r.Args...), " ")
}

// Outcome is the result of running an external process.
// For Launched outcomes, only Err is meaningful.
type Outcome struct {
	Kind     Kind
	Stdout   string
	ExitCode int
	TimeMS   int64
	Err      error
}

// Runner launches external processes, either waiting for them or leaving them running.
type Runner interface {
	// Capture runs the process to completion and returns its stdout.
	// Output collected before a failure is still returned alongside the error.
	Capture(ctx context.Context, req Request) Outcome
	// Detach starts the process in the background and returns as soon as it has been spawned.
	Detach(req Request) Outcome
}

// Exec is a Runner backed by os/exec.
type Exec struct {
	Log *zap.SugaredLogger
	// Sudo is the program used to run elevated requests. Empty disables elevation.
	Sudo string
}

func (e *Exec) command(ctx context.Context, req Request) *exec.Cmd {
	name, args := req.Command, req.Args
	if req.Elevated && e.Sudo != "" {
		name, args = e.Sudo, append([]string{req.Command}, req.Args...)
	}
	// #nosec G204
	return exec.CommandContext(ctx, name, args...)
}

func (e *Exec) Capture(ctx context.Context, req Request) Outcome {
	cmd := e.command(ctx, req)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Start()
	if err != nil {
		e.Log.Debugw("unable to start process", "Command", req.String(), "Error", err)
		return Outcome{Kind: Completed, ExitCode: -1, Err: fmt.Errorf("starting %q: %w", req.Command, err)}
	}

	err = cmd.Wait()
	out := Outcome{
		Kind:     Completed,
		Stdout:   stdout.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
		TimeMS:   time.Since(start).Milliseconds(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.Err = fmt.Errorf("%q exited with code %d: %s", req.Command, out.ExitCode, strings.TrimSpace(stderr.String()))
		} else {
			out.Err = fmt.Errorf("waiting for %q: %w", req.Command, err)
		}
	}
	e.Log.Debugw("process exited", "Command", req.String(), "ExitCode", out.ExitCode, "TimeMS", out.TimeMS, "StdoutBytes", stdout.Len())
	return out
}

func (e *Exec) Detach(req Request) Outcome {
	// not bound to any caller context, the process outlives the session that launched it
	cmd := e.command(context.Background(), req)
	cmd.SysProcAttr = detachedSysProcAttr()

	err := cmd.Start()
	if err != nil {
		e.Log.Debugw("unable to launch detached process", "Command", req.String(), "Error", err)
		return Outcome{Kind: Launched, Err: fmt.Errorf("launching %q: %w", req.Command, err)}
	}
	pid := cmd.Process.Pid
	e.Log.Debugw("launched detached process", "Command", req.String(), "PID", pid)

	// reap the child so it does not linger as a zombie; nothing else observes its exit
	go func() {
		err := cmd.Wait()
		e.Log.Debugw("detached process exited", "PID", pid, "Error", err)
	}()

	return Outcome{Kind: Launched}
}
