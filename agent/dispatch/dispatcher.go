// Package dispatch turns command lines into external process invocations and result events.
//
// Dispatching is split in two so that per-connection state stays on the caller's goroutine:
// Dispatch returns a Job that may block on an external process and can run anywhere,
// and the Job returns a Finish that must run on the goroutine owning the connection's tail.Tracker.
// Commands that produce no event (logstart, logstop, unknown verbs) return a nil Job.
package dispatch

import (
	"context"
	"path/filepath"

	"github.com/guseggert/thermagent/agent/probe"
	"github.com/guseggert/thermagent/agent/runner"
	"github.com/guseggert/thermagent/agent/tail"
	"go.uber.org/zap"
)

const (
	DefaultBinaryName = "therm"
	DefaultMarker     = "msg"
	DefaultLogMessage = "Logging..."
)

// Job waits for the external work behind a command.
type Job func(ctx context.Context) Finish

// Finish produces the command's result event. lines is the connection's tail memory.
type Finish func(lines *tail.Tracker) Event

type Config struct {
	// LoggerPath is the full path of the logger binary.
	LoggerPath string
	// DataDir is the directory readfile names are resolved against.
	DataDir string
	// Marker is the argument that tags background logging invocations.
	Marker string
	// LogMessage is shown by the logger while a background session runs.
	LogMessage string
	// Tail is the program used to read the last line of a file.
	Tail string
}

// DefaultConfig returns the configuration for a logger installed as installDir/therm,
// with log files in the same directory.
func DefaultConfig(installDir string) Config {
	return Config{
		LoggerPath: filepath.Join(installDir, DefaultBinaryName),
		DataDir:    installDir,
		Marker:     DefaultMarker,
		LogMessage: DefaultLogMessage,
		Tail:       "tail",
	}
}

type Dispatcher struct {
	cfg    Config
	runner runner.Runner
	prober probe.Prober
	log    *zap.SugaredLogger
}

func New(cfg Config, r runner.Runner, p probe.Prober, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{cfg: cfg, runner: r, prober: p, log: log}
}

// Dispatch starts handling cmd. Anything spawned without waiting (logstart) is spawned before Dispatch returns.
func (d *Dispatcher) Dispatch(cmd Command) Job {
	if !cmd.Verb.Known() {
		d.log.Debugw("ignoring unknown command", "Verb", cmd.Verb)
		return nil
	}
	d.log.Debugw("dispatching command", "Command", cmd.Raw)
	switch cmd.Verb {
	case GetTemp:
		return d.getTemp()
	case ReadFile:
		return d.readFile(cmd)
	case CheckState:
		return d.checkState()
	case LogStart:
		d.logStart(cmd)
		return nil
	default:
		// logstop is accepted but not implemented: the logger has no stop mechanism yet
		d.log.Debug("logstop is not implemented, ignoring")
		return nil
	}
}

func (d *Dispatcher) getTemp() Job {
	req := runner.Request{Command: d.cfg.LoggerPath, Args: []string{"withtime"}, Elevated: true}
	return func(ctx context.Context) Finish {
		out := d.runner.Capture(ctx, req)
		if out.Err != nil {
			// whatever was printed is still forwarded
			d.log.Warnw("temperature read failed", "Error", out.Err)
		}
		return func(*tail.Tracker) Event {
			return Event{Name: EventResults, Data: out.Stdout}
		}
	}
}

func (d *Dispatcher) readFile(cmd Command) Job {
	name, ok := cmd.Arg(0)
	if !ok {
		return func(context.Context) Finish {
			return func(*tail.Tracker) Event {
				return Event{Name: EventLastLine, Data: tail.ErrorLine}
			}
		}
	}
	// the name is not sanitized: the client is trusted to stay inside the data directory
	path := filepath.Join(d.cfg.DataDir, name)
	req := runner.Request{Command: d.cfg.Tail, Args: []string{"-n", "1", path}}
	return func(ctx context.Context) Finish {
		out := d.runner.Capture(ctx, req)
		if out.Err != nil {
			d.log.Warnw("reading last line failed", "Path", path, "Error", out.Err)
		}
		return func(lines *tail.Tracker) Event {
			return Event{Name: EventLastLine, Data: lines.Observe(name, out.Stdout)}
		}
	}
}

func (d *Dispatcher) checkState() Job {
	return func(ctx context.Context) Finish {
		state, err := d.prober.State(ctx)
		if err != nil {
			// probers classify whatever listing they got, so the state is still reported
			d.log.Warnw("probing logger state failed", "State", state, "Error", err)
		}
		return func(*tail.Tracker) Event {
			return Event{Name: EventStateResult, Data: string(state)}
		}
	}
}

func (d *Dispatcher) logStart(cmd Command) {
	interval, ok := cmd.Arg(0)
	if !ok {
		d.log.Warn("logstart without an interval, ignoring")
		return
	}
	req := runner.Request{
		Command:  d.cfg.LoggerPath,
		Args:     []string{"1", interval, d.cfg.Marker, d.cfg.LogMessage},
		Elevated: true,
	}
	out := d.runner.Detach(req)
	if out.Err != nil {
		d.log.Warnw("launching logger failed", "Error", out.Err)
		return
	}
	if out.Kind != runner.Launched {
		d.log.Warnw("logger was not left running", "Outcome", out.Kind)
		return
	}
	d.log.Infow("launched logger", "Interval", interval)
}
