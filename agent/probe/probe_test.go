package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/guseggert/thermagent/agent/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var loggerMatcher = Matcher{LoggerPath: "/home/pi/development/therm/therm", Marker: "msg"}

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		listing string
		exp     RunState
	}{
		{
			name:    "empty listing",
			listing: "",
			exp:     Idle,
		},
		{
			name: "background logging session",
			listing: "UID        PID  PPID  C STIME TTY          TIME CMD\n" +
				"root      1201     1  0 10:02 ?        00:00:00 sudo /home/pi/development/therm/therm 1 5 msg Logging...\n" +
				"root      1202  1201  0 10:02 ?        00:00:01 /home/pi/development/therm/therm 1 5 msg Logging...\n",
			exp: Logging,
		},
		{
			name:    "one-shot temperature read",
			listing: "root      1300     1  0 10:05 ?        00:00:00 /home/pi/development/therm/therm withtime\n",
			exp:     Idle,
		},
		{
			name:    "marker on a different line",
			listing: "root 1 /home/pi/development/therm/therm withtime\npi 2 echo msg\n",
			exp:     Idle,
		},
		{
			name:    "logger path at the start of the line is ignored",
			listing: "/home/pi/development/therm/therm 1 5 msg Logging...\n",
			exp:     Idle,
		},
		{
			name:    "marker at the start of the line is ignored",
			listing: "msg /home/pi/development/therm/therm\n",
			exp:     Idle,
		},
		{
			name:    "other binary with the marker",
			listing: "pi 400 1 0 10:00 ? 00:00:00 /usr/bin/other 1 5 msg hi\n",
			exp:     Idle,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.exp, loggerMatcher.Classify(c.listing))
		})
	}
}

type fakeRunner struct {
	out  runner.Outcome
	reqs []runner.Request
}

func (f *fakeRunner) Capture(ctx context.Context, req runner.Request) runner.Outcome {
	f.reqs = append(f.reqs, req)
	return f.out
}

func (f *fakeRunner) Detach(req runner.Request) runner.Outcome {
	return runner.Outcome{Kind: runner.Launched}
}

func TestPS(t *testing.T) {
	r := &fakeRunner{out: runner.Outcome{
		Stdout: "root 1202 1 0 10:02 ? 00:00:01 /home/pi/development/therm/therm 1 5 msg Logging...\n",
	}}
	p := &PS{Runner: r, Matcher: loggerMatcher, Log: zap.NewNop().Sugar()}

	state, err := p.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Logging, state)
	require.Len(t, r.reqs, 1)
	assert.Equal(t, runner.Request{Command: "ps", Args: []string{"-ef"}}, r.reqs[0])
}

func TestPSListingError(t *testing.T) {
	r := &fakeRunner{out: runner.Outcome{ExitCode: -1, Err: errors.New("no ps")}}
	p := &PS{Runner: r, Matcher: loggerMatcher, Log: zap.NewNop().Sugar()}

	state, err := p.State(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Idle, state)
}

func TestPSRealProcess(t *testing.T) {
	if _, err := exec.LookPath("ps"); err != nil {
		t.Skip("ps not available")
	}
	bin := fakeLogger(t)
	ctx := context.Background()
	log := zap.NewNop().Sugar()
	p := &PS{Runner: &runner.Exec{Log: log}, Matcher: Matcher{LoggerPath: bin, Marker: "msg"}, Log: log}

	state, err := p.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, Idle, state)

	cmd := exec.Command(bin, "1", "5", "msg", "Logging...")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	require.Eventually(t, func() bool {
		state, err := p.State(ctx)
		return err == nil && state == Logging
	}, 5*time.Second, 50*time.Millisecond)
}

func TestProcTableRealProcess(t *testing.T) {
	bin := fakeLogger(t)
	ctx := context.Background()
	p := &ProcTable{Matcher: Matcher{LoggerPath: bin, Marker: "msg"}, Log: zap.NewNop().Sugar()}

	state, err := p.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, Idle, state)

	cmd := exec.Command(bin, "1", "5", "msg", "Logging...")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	require.Eventually(t, func() bool {
		state, err := p.State(ctx)
		return err == nil && state == Logging
	}, 5*time.Second, 50*time.Millisecond)
}

// fakeLogger writes a script that idles in place of the logger binary and returns its path.
// The script runs under sh, so its command line is "/bin/sh <path> <args>" and the path is past index 0.
func fakeLogger(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), fmt.Sprintf("therm-%d", os.Getpid()))
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nwhile :; do sleep 1; done\n"), 0755))
	return bin
}
