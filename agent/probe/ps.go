package probe

import (
	"context"

	"github.com/guseggert/thermagent/agent/runner"
	"go.uber.org/zap"
)

// PS lists processes by running ps through a Runner.
type PS struct {
	Runner  runner.Runner
	Matcher Matcher
	Log     *zap.SugaredLogger

	// Command is the listing command; defaults to "ps -ef".
	Command *runner.Request
}

func (p *PS) State(ctx context.Context) (RunState, error) {
	req := runner.Request{Command: "ps", Args: []string{"-ef"}}
	if p.Command != nil {
		req = *p.Command
	}
	out := p.Runner.Capture(ctx, req)
	if out.Err != nil {
		// a partial listing is still worth classifying, but the caller gets to know it was partial
		p.Log.Debugw("process listing failed", "Command", req.String(), "Error", out.Err)
	}
	state := p.Matcher.Classify(out.Stdout)
	p.Log.Debugw("probed logger state", "State", state)
	return state, out.Err
}
