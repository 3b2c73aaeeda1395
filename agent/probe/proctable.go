package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// ProcTable reads the process table natively instead of shelling out to ps.
// Each process is rendered as "<pid> <cmdline>" so the same Matcher applies.
type ProcTable struct {
	Matcher Matcher
	Log     *zap.SugaredLogger
}

func (p *ProcTable) State(ctx context.Context) (RunState, error) {
	listing, err := p.listing(ctx)
	if err != nil {
		return Idle, err
	}
	state := p.Matcher.Classify(listing)
	p.Log.Debugw("probed logger state", "State", state)
	return state, nil
}

func (p *ProcTable) listing(ctx context.Context) (string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("listing processes: %w", err)
	}
	var b strings.Builder
	for _, proc := range procs {
		cmdline, err := proc.CmdlineWithContext(ctx)
		if err != nil {
			// processes exit between listing and reading, and some are not readable at all
			continue
		}
		fmt.Fprintf(&b, "%d %s\n", proc.Pid, cmdline)
	}
	return b.String(), nil
}
