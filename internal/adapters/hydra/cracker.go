// Package hydra implementa ports.Cracker ejecutando THC-Hydra con un único
// par usuario/contraseña por invocación.
package hydra

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"reconmcp/internal/adapters/cliexec"
	"reconmcp/internal/core/domain"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
)

// servicesByPort elige el módulo de hydra cuando no se fuerza uno.
var servicesByPort = map[int]string{
	21:   "ftp",
	22:   "ssh",
	23:   "telnet",
	25:   "smtp",
	110:  "pop3",
	143:  "imap",
	445:  "smb",
	1433: "mssql",
	3306: "mysql",
	3389: "rdp",
	5432: "postgres",
	5900: "vnc",
	6379: "redis",
}

// foundPattern reconoce la línea de éxito:
// [22][ssh] host: 10.10.13.152   login: lin   password: secret
var foundPattern = regexp.MustCompile(`host:\s*\S+\s+login:\s*(.*?)\s+password:\s*(.*)$`)

var connectionMarkers = []string{
	"could not connect",
	"can not connect",
	"connection refused",
	"timeout connecting",
	"all children were disabled",
}

type runner interface {
	Run(ctx context.Context, args []string, handler cliexec.LineHandler) (cliexec.Output, error)
}

// Options configura el cracker.
type Options struct {
	ExecPath string
	// Service fuerza el módulo de hydra (ssh, ftp, ...); vacío = por puerto
	Service string
	// WaitTime es el -W de hydra en segundos (default 30)
	WaitTime int
	Logger   logx.Logger
}

// Cracker delega cada intento en un proceso hydra.
type Cracker struct {
	run      runner
	service  string
	waitTime int
	logger   logx.Logger
}

// New crea un Cracker.
func New(opts Options) *Cracker {
	if opts.Logger == nil {
		opts.Logger = logx.NewDiscard()
	}
	if opts.WaitTime <= 0 {
		opts.WaitTime = 30
	}
	logger := opts.Logger.With("adapter", "hydra")
	return &Cracker{
		run:      cliexec.New(cliexec.Config{Name: "hydra", ExecPath: opts.ExecPath, Logger: logger}),
		service:  opts.Service,
		waitTime: opts.WaitTime,
		logger:   logger,
	}
}

func (c *Cracker) Name() string { return "hydra" }

// ServiceFor devuelve el módulo de hydra para un puerto.
func ServiceFor(port int) string {
	if s, ok := servicesByPort[port]; ok {
		return s
	}
	return "ssh"
}

// BuildArgs construye el vector de argumentos de un intento.
func BuildArgs(service, host string, port int, username, password string, waitTime int) []string {
	return []string{
		"-l", username,
		"-p", password,
		"-t", "1",
		"-W", strconv.Itoa(waitTime),
		"-f",
		"-s", strconv.Itoa(port),
		host,
		service,
	}
}

// TryLogin ejecuta hydra con una única credencial.
func (c *Cracker) TryLogin(ctx context.Context, host string, port int, username, password string) (bool, error) {
	if strings.HasPrefix(host, "-") || strings.HasPrefix(username, "-") {
		return false, perrors.Wrapf(perrors.ErrInvalidInput, "argument looks like a flag")
	}
	service := c.service
	if service == "" {
		service = ServiceFor(port)
	}

	start := time.Now()
	out, err := c.run.Run(ctx, BuildArgs(service, host, port, username, password, c.waitTime), nil)
	if perrors.Is(err, perrors.ErrToolMissing) || perrors.Is(err, domain.ErrProbeTimeout) {
		return false, err
	}

	ok, parseErr := ParseOutput(out.Stdout + "\n" + out.Stderr)
	c.logger.Debug("hydra attempt", "host", host, "service", service, "ok", ok, "duration", time.Since(start).String())
	if ok {
		return true, nil
	}
	if parseErr != nil {
		return false, parseErr
	}
	if err != nil && out.ExitCode != 0 {
		return false, err
	}
	return false, nil
}

// ParseOutput interpreta la salida combinada de hydra.
func ParseOutput(output string) (bool, error) {
	for _, line := range strings.Split(output, "\n") {
		if foundPattern.MatchString(line) {
			return true, nil
		}
	}
	lower := strings.ToLower(output)
	for _, m := range connectionMarkers {
		if strings.Contains(lower, m) {
			return false, &domain.ProbeTransportError{Probe: "hydra", Err: perrors.New(firstMatch(output, m))}
		}
	}
	return false, nil
}

// FoundCredential extrae login y contraseña de la línea de éxito.
func FoundCredential(output string) (login, password string, ok bool) {
	for _, line := range strings.Split(output, "\n") {
		if m := foundPattern.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
		}
	}
	return "", "", false
}

func firstMatch(output, marker string) string {
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(strings.ToLower(line), marker) {
			return strings.TrimSpace(line)
		}
	}
	return marker
}
