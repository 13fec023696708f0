package hydra

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reconmcp/internal/adapters/cliexec"
	"reconmcp/internal/core/domain"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
)

const successOutput = `Hydra v9.5 (c) 2023 by van Hauser/THC & David Maciejak
[DATA] max 1 task per 1 server, overall 1 task, 1 login try (l:1/p:1), ~1 try per task
[DATA] attacking ssh://10.10.13.152:22/
[22][ssh] host: 10.10.13.152   login: lin   password: RedDr@gonSyn9ic47e
1 of 1 target successfully completed, 1 valid password found
`

const failOutput = `Hydra v9.5 (c) 2023 by van Hauser/THC & David Maciejak
[DATA] attacking ssh://10.10.13.152:22/
1 of 1 target completed, 0 valid password found
`

const unreachableOutput = `[ERROR] could not connect to ssh://10.10.13.152:22 - Connection refused
`

type fakeRunner struct {
	out      cliexec.Output
	err      error
	lastArgs []string
}

func (f *fakeRunner) Run(_ context.Context, args []string, _ cliexec.LineHandler) (cliexec.Output, error) {
	f.lastArgs = args
	return f.out, f.err
}

func newTestCracker(f *fakeRunner, service string) *Cracker {
	return &Cracker{run: f, service: service, waitTime: 30, logger: logx.NewDiscard()}
}

func TestBuildArgs(t *testing.T) {
	got := BuildArgs("ssh", "10.10.13.152", 2222, "lin", "p@ss word", 10)
	assert.Equal(t, []string{"-l", "lin", "-p", "p@ss word", "-t", "1", "-W", "10", "-f", "-s", "2222", "10.10.13.152", "ssh"}, got)
}

func TestServiceFor(t *testing.T) {
	assert.Equal(t, "ftp", ServiceFor(21))
	assert.Equal(t, "mysql", ServiceFor(3306))
	assert.Equal(t, "ssh", ServiceFor(2222))
}

func TestParseOutput(t *testing.T) {
	ok, err := ParseOutput(successOutput)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ParseOutput(failOutput)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ParseOutput(unreachableOutput)
	assert.ErrorIs(t, err, domain.ErrProbeTransport)
}

func TestFoundCredential(t *testing.T) {
	login, pass, ok := FoundCredential(successOutput)
	require.True(t, ok)
	assert.Equal(t, "lin", login)
	assert.Equal(t, "RedDr@gonSyn9ic47e", pass)
}

func TestCracker_TryLogin(t *testing.T) {
	tests := []struct {
		name    string
		runner  *fakeRunner
		wantOK  bool
		outcome domain.AttemptOutcome
	}{
		{"success", &fakeRunner{out: cliexec.Output{Stdout: successOutput}}, true, domain.OutcomeSuccess},
		{"rejected", &fakeRunner{out: cliexec.Output{Stdout: failOutput}}, false, domain.OutcomeAuthFailed},
		{
			"unreachable",
			&fakeRunner{out: cliexec.Output{Stderr: unreachableOutput, ExitCode: 255}, err: errors.New("hydra exited with code 255")},
			false,
			domain.OutcomeUnreachable,
		},
		{
			"timeout",
			&fakeRunner{err: &domain.ProbeTimeoutError{Probe: "hydra", Err: context.DeadlineExceeded}},
			false,
			domain.OutcomeTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := newTestCracker(tt.runner, "").TryLogin(context.Background(), "10.10.13.152", 22, "lin", "x")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.outcome, domain.ClassifyAttemptError(ok, err))
		})
	}
}

func TestCracker_ServiceSelection(t *testing.T) {
	f := &fakeRunner{out: cliexec.Output{Stdout: failOutput}}

	_, _ = newTestCracker(f, "").TryLogin(context.Background(), "10.0.0.5", 21, "admin", "x")
	assert.Equal(t, "ftp", f.lastArgs[len(f.lastArgs)-1])

	_, _ = newTestCracker(f, "telnet").TryLogin(context.Background(), "10.0.0.5", 21, "admin", "x")
	assert.Equal(t, "telnet", f.lastArgs[len(f.lastArgs)-1])
}

func TestCracker_RejectsFlagInjection(t *testing.T) {
	f := &fakeRunner{}
	_, err := newTestCracker(f, "").TryLogin(context.Background(), "-oX", 22, "root", "x")

	assert.True(t, perrors.IsInvalidInput(err))
	assert.Nil(t, f.lastArgs)
}

func TestCracker_ToolMissing(t *testing.T) {
	f := &fakeRunner{err: perrors.Wrap(perrors.ErrToolMissing, "hydra")}
	_, err := newTestCracker(f, "").TryLogin(context.Background(), "10.0.0.5", 22, "root", "x")

	assert.ErrorIs(t, err, perrors.ErrToolMissing)
}
