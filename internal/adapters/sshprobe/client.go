// Package sshprobe implementa ports.SSHClient y un ports.Cracker SSH sobre
// golang.org/x/crypto/ssh.
package sshprobe

import (
	"bytes"
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
)

// maxOutput acota stdout y stderr de un comando remoto.
const maxOutput = 4 << 20

var safeWord = regexp.MustCompile(`^[A-Za-z0-9_./=:,+@%-]+$`)

// Quote escapa un argumento para una shell POSIX remota.
func Quote(arg string) string {
	if arg == "" {
		return "''"
	}
	if safeWord.MatchString(arg) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// Join construye la línea de comando remota a partir de argv.
func Join(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}

// Options configura el cliente.
type Options struct {
	// Timeout de conexión y de cada comando cuando el ctx no trae deadline
	Timeout time.Duration
	Logger  logx.Logger
}

// Client ejecuta comandos con autenticación por contraseña. Cada Exec abre
// su propia conexión.
type Client struct {
	timeout time.Duration
	logger  logx.Logger
}

// New crea un Client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logx.NewDiscard()
	}
	return &Client{timeout: opts.Timeout, logger: opts.Logger.With("adapter", "ssh")}
}

func (c *Client) Name() string { return "ssh" }

// Exec ejecuta argv en el host remoto. Un exit code distinto de cero no
// es un error; se devuelve en CommandResult.
func (c *Client) Exec(ctx context.Context, ep ports.Endpoint, argv []string) (ports.CommandResult, error) {
	if len(argv) == 0 {
		return ports.CommandResult{}, perrors.Wrap(perrors.ErrInvalidInput, "empty command")
	}
	command := Join(argv)
	res := ports.CommandResult{Command: command}

	client, err := connect(ctx, ep, c.timeout)
	if err != nil {
		return res, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return res, classify(ctx, err)
	}
	defer session.Close()

	stdout := &limitedBuffer{limit: maxOutput}
	stderr := &limitedBuffer{limit: maxOutput}
	session.Stdout = stdout
	session.Stderr = stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = client.Close()
		return res, &domain.ProbeTimeoutError{Probe: "ssh", Err: ctx.Err()}
	case err = <-done:
	}

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	var exitErr *ssh.ExitError
	var missing *ssh.ExitMissingError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitStatus()
	case errors.As(err, &missing):
		// el canal se cerró sin exit-status: no sabemos si el comando terminó
		res.ExitCode = -1
		return res, &domain.ProbeTransportError{Probe: "ssh", Err: err}
	default:
		return res, classify(ctx, err)
	}

	c.logger.Debug("remote command finished", "host", ep.Host, "argv0", argv[0], "exit", res.ExitCode)
	return res, nil
}

// connect abre la conexión TCP respetando el ctx y completa el handshake.
func connect(ctx context.Context, ep ports.Endpoint, timeout time.Duration) (*ssh.Client, error) {
	port := ep.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(ep.Host, strconv.Itoa(port))

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, classify(ctx, err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(timeout)
	}
	_ = conn.SetDeadline(deadline)

	config := &ssh.ClientConfig{
		User: ep.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(ep.Password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = ep.Password
				}
				return answers, nil
			}),
		},
		// hosts objetivo, sin known_hosts
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         timeout,
	}

	cc, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, classify(ctx, err)
	}
	// el deadline queda solo para el handshake; Exec vigila el ctx
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(cc, chans, reqs), nil
}

// isAuthRejection detecta el fallo de todos los métodos de autenticación.
func isAuthRejection(err error) bool {
	return err != nil && strings.Contains(err.Error(), "unable to authenticate")
}

func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	switch {
	case isAuthRejection(err):
		return perrors.Wrapf(domain.ErrAuthenticationFailure, "ssh: %v", err)
	case perrors.IsTimeout(err):
		return &domain.ProbeTimeoutError{Probe: "ssh", Err: err}
	case perrors.IsConnectionError(err), strings.Contains(err.Error(), "handshake failed"):
		return &domain.ProbeTransportError{Probe: "ssh", Err: err}
	}
	return err
}

// limitedBuffer descarta lo que excede limit.
type limitedBuffer struct {
	bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.Len(); room > 0 {
		b.Buffer.Write(p[:min(len(p), room)])
	}
	return len(p), nil
}
