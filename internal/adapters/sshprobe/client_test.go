package sshprobe

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
)

// testServer acepta root/toor y responde a "exec" devolviendo la línea
// recibida. Un comando que contiene "fail" termina con status 3, uno que
// empieza por "sleep" no termina hasta el final del test y "vanish" cierra
// el canal sin exit-status.
type testServer struct {
	mu       sync.Mutex
	commands []string
	release  chan struct{}
}

func (s *testServer) start(t *testing.T) ports.Endpoint {
	t.Helper()
	s.release = make(chan struct{})
	t.Cleanup(func() { close(s.release) })

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == "root" && string(pass) == "toor" {
				return nil, nil
			}
			return nil, errors.New("denied")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn, cfg)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return ports.Endpoint{Host: addr.IP.String(), Port: addr.Port, Username: "root", Password: "toor"}
}

func (s *testServer) serve(conn net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)
	for nc := range chans {
		if nc.ChannelType() != "session" {
			_ = nc.Reject(ssh.UnknownChannelType, "session only")
			continue
		}
		ch, chReqs, err := nc.Accept()
		if err != nil {
			continue
		}
		go s.session(ch, chReqs)
	}
}

func (s *testServer) session(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer ch.Close()
	for req := range reqs {
		if req.Type != "exec" {
			_ = req.Reply(false, nil)
			continue
		}
		var payload struct{ Command string }
		_ = ssh.Unmarshal(req.Payload, &payload)
		_ = req.Reply(true, nil)

		s.mu.Lock()
		s.commands = append(s.commands, payload.Command)
		s.mu.Unlock()

		if strings.HasPrefix(payload.Command, "sleep") {
			<-s.release
			return
		}
		if payload.Command == "vanish" {
			return
		}

		_, _ = io.WriteString(ch, "ran: "+payload.Command+"\n")
		status := uint32(0)
		if strings.Contains(payload.Command, "fail") {
			_, _ = io.WriteString(ch.Stderr(), "boom\n")
			status = 3
		}
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
		return
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ls", "ls"},
		{"/etc/passwd", "/etc/passwd"},
		{"", "''"},
		{"flag*.txt", "'flag*.txt'"},
		{"(", "'('"},
		{"a b", "'a b'"},
		{"it's", `'it'\''s'`},
		{"$(reboot)", "'$(reboot)'"},
		{"; rm -rf /", "'; rm -rf /'"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Quote(tt.in))
		})
	}
}

func TestJoin(t *testing.T) {
	argv := []string{"find", "/home", "(", "-name", "flag*.txt", ")", "-type", "f"}
	assert.Equal(t, `find /home '(' -name 'flag*.txt' ')' -type f`, Join(argv))
}

func testCtx(t *testing.T, d time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_Exec(t *testing.T) {
	srv := &testServer{}
	ep := srv.start(t)

	res, err := New(Options{Timeout: 2 * time.Second}).Exec(testCtx(t, 5*time.Second), ep, []string{"cat", "my file; id"})

	require.NoError(t, err)
	assert.Equal(t, "cat 'my file; id'", res.Command)
	assert.Equal(t, "ran: cat 'my file; id'\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)
	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, []string{"cat 'my file; id'"}, srv.commands)
}

func TestClient_ExecNonZeroExit(t *testing.T) {
	ep := (&testServer{}).start(t)

	res, err := New(Options{Timeout: 2 * time.Second}).Exec(testCtx(t, 5*time.Second), ep, []string{"fail"})

	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "boom\n", res.Stderr)
}

func TestClient_ExecAuthFailure(t *testing.T) {
	ep := (&testServer{}).start(t)
	ep.Password = "wrong"

	_, err := New(Options{Timeout: 2 * time.Second}).Exec(testCtx(t, 5*time.Second), ep, []string{"id"})

	assert.ErrorIs(t, err, domain.ErrAuthenticationFailure)
}

func TestClient_ExecTimeout(t *testing.T) {
	ep := (&testServer{}).start(t)

	_, err := New(Options{Timeout: 2 * time.Second}).Exec(testCtx(t, 300*time.Millisecond), ep, []string{"sleep", "60"})

	assert.ErrorIs(t, err, domain.ErrProbeTimeout)
}

func TestClient_ExecMissingExitStatus(t *testing.T) {
	ep := (&testServer{}).start(t)

	res, err := New(Options{Timeout: 2 * time.Second}).Exec(testCtx(t, 5*time.Second), ep, []string{"vanish"})

	assert.ErrorIs(t, err, domain.ErrProbeTransport)
	assert.Equal(t, -1, res.ExitCode)
}

func TestClient_ExecEmptyCommand(t *testing.T) {
	_, err := New(Options{}).Exec(context.Background(), ports.Endpoint{Host: "127.0.0.1"}, nil)
	assert.True(t, perrors.IsInvalidInput(err))
}

func TestCracker_TryLogin(t *testing.T) {
	ep := (&testServer{}).start(t)
	c := NewCracker(2 * time.Second)

	ok, err := c.TryLogin(testCtx(t, 5*time.Second), ep.Host, ep.Port, "root", "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.TryLogin(testCtx(t, 5*time.Second), ep.Host, ep.Port, "root", "toor")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCracker_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	ok, err := NewCracker(time.Second).TryLogin(testCtx(t, 2*time.Second), "127.0.0.1", port, "root", "toor")

	assert.False(t, ok)
	assert.Equal(t, domain.OutcomeUnreachable, domain.ClassifyAttemptError(ok, err))
}
