// Package nmap implementa ports.PortScanner sobre el binario nmap con
// salida XML.
package nmap

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"regexp"
	"strconv"
	"strings"

	"reconmcp/internal/adapters/cliexec"
	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/extract"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
	"reconmcp/internal/platform/validator"
)

// optionPattern es la allowlist de flags extra que acepta el scanner.
var optionPattern = regexp.MustCompile(`^(-p[\d,-]+|-sV|-sC|-sS|-sT|-sU|-A|-T[0-5]|-Pn|-n|-F|--open|--reason|--max-retries=\d+)$`)

// defaultTiming se aplica salvo que las opciones traigan su propio -T.
const defaultTiming = "-T4"

// runner abstrae cliexec.Runner para tests.
type runner interface {
	Run(ctx context.Context, args []string, handler cliexec.LineHandler) (cliexec.Output, error)
}

// lookupFunc resuelve un nombre; por defecto net.DefaultResolver.LookupNetIP.
type lookupFunc func(ctx context.Context, network, host string) ([]netip.Addr, error)

// Scanner ejecuta `nmap ... -oX - <host>`.
type Scanner struct {
	run    runner
	lookup lookupFunc
	logger logx.Logger
}

// Options configura el scanner.
type Options struct {
	// ExecPath es el binario de nmap (default "nmap")
	ExecPath string
	Logger   logx.Logger
}

// New crea un Scanner.
func New(opts Options) *Scanner {
	if opts.Logger == nil {
		opts.Logger = logx.NewDiscard()
	}
	logger := opts.Logger.With("adapter", "nmap")
	return &Scanner{
		run:    cliexec.New(cliexec.Config{Name: "nmap", ExecPath: opts.ExecPath, Logger: logger}),
		lookup: net.DefaultResolver.LookupNetIP,
		logger: logger,
	}
}

func (s *Scanner) Name() string { return "nmap" }

// ValidateOptions comprueba flags extra contra la allowlist.
func ValidateOptions(opts []string) error {
	for _, o := range opts {
		if !optionPattern.MatchString(o) {
			return perrors.Wrapf(perrors.ErrInvalidInput, "nmap option %q not allowed", o)
		}
	}
	return nil
}

// BuildArgs construye el vector de argumentos. El host va siempre al final.
func BuildArgs(target domain.Target, opts ports.ScanOptions) ([]string, error) {
	if err := ValidateOptions(opts.Options); err != nil {
		return nil, err
	}
	host := target.Host()
	if host == "" || validator.HasShellMeta(host) || strings.HasPrefix(host, "-") {
		return nil, perrors.Wrapf(perrors.ErrInvalidInput, "invalid scan host %q", host)
	}

	var args []string
	seen := make(map[string]bool)
	add := func(a ...string) {
		if len(a) == 1 && seen[a[0]] {
			return
		}
		seen[a[0]] = true
		args = append(args, a...)
	}

	if opts.ServiceDetection {
		add("-sV")
		if opts.VersionIntensity > 0 && opts.VersionIntensity <= 9 {
			add("--version-intensity=" + strconv.Itoa(opts.VersionIntensity))
		}
	}
	switch {
	case opts.Ports != "":
		if !validator.IsPortSpec(opts.Ports) {
			return nil, perrors.Wrapf(perrors.ErrInvalidInput, "invalid port spec %q", opts.Ports)
		}
		add("-p", opts.Ports)
	case opts.TopPorts > 0:
		add("--top-ports", strconv.Itoa(opts.TopPorts))
	}
	timing := false
	for _, o := range opts.Options {
		add(o)
		timing = timing || strings.HasPrefix(o, "-T")
	}
	if !timing {
		add(defaultTiming)
	}
	args = append(args, "-oX", "-", host)
	return args, nil
}

// Scan ejecuta nmap y normaliza la salida XML a la forma de texto que
// consume extract.Extract.
func (s *Scanner) Scan(ctx context.Context, target domain.Target, opts ports.ScanOptions) (ports.PortScanResult, error) {
	target, err := s.pinHost(ctx, target)
	if err != nil {
		return ports.PortScanResult{}, err
	}
	args, err := BuildArgs(target, opts)
	if err != nil {
		return ports.PortScanResult{}, err
	}

	out, runErr := s.run.Run(ctx, args, nil)
	res := ports.PortScanResult{Command: "nmap " + strings.Join(args, " ")}
	if runErr != nil {
		// timeout, binario ausente o cancelación: no hay XML fiable
		if out.Stdout == "" || perrors.Is(runErr, domain.ErrProbeTimeout) || perrors.Is(runErr, perrors.ErrToolMissing) || ctx.Err() != nil {
			return res, runErr
		}
		s.logger.Warn("nmap exited with error, parsing partial output", "error", runErr.Error())
	}

	report, err := extract.ParseNmapXML([]byte(out.Stdout))
	if err != nil {
		if runErr != nil {
			return res, runErr
		}
		return res, fmt.Errorf("nmap output: %w", err)
	}

	res.Text = report.Text()
	res.OpenPorts = report.OpenPorts()
	s.logger.Debug("scan completed", "target", target.Value, "open_ports", len(res.OpenPorts))
	return res, nil
}

// pinHost resuelve los nombres antes de llamar a nmap y fija la primera
// dirección fuera del denylist, para que nmap no resuelva por su cuenta a
// un rango prohibido. IPs y redes se devuelven tal cual.
func (s *Scanner) pinHost(ctx context.Context, target domain.Target) (domain.Target, error) {
	host := target.Host()
	if target.Kind == domain.TargetKindIP || target.Kind == domain.TargetKindNetwork {
		return target, nil
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return target, nil
	}

	lookup := s.lookup
	if lookup == nil {
		lookup = net.DefaultResolver.LookupNetIP
	}
	addrs, err := lookup(ctx, "ip4", host)
	if err != nil {
		return target, &domain.ProbeTransportError{Probe: "nmap", Err: err}
	}
	for _, a := range addrs {
		if a = a.Unmap(); !domain.Denylisted(a) {
			pinned, err := domain.Classify(a.String())
			if err != nil {
				return target, err
			}
			s.logger.Debug("host pinned", "host", host, "addr", a.String())
			return pinned, nil
		}
	}
	return target, &domain.InvalidTargetError{Raw: host, Reason: domain.ErrDenylisted}
}

// Version devuelve la primera línea de `nmap --version`.
func (s *Scanner) Version(ctx context.Context) (string, error) {
	out, err := s.run.Run(ctx, []string{"--version"}, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.SplitN(out.Stdout, "\n", 2)[0]), nil
}
