// Package connectscan implementa ports.PortScanner con TCP connect()
// en Go puro, para entornos sin nmap ni privilegios.
package connectscan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/extract"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
	"reconmcp/internal/platform/workerpool"
)

// maxHosts acota el barrido de un CIDR.
const maxHosts = 256

// dialer abstrae net.Dialer para tests.
type dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Scanner hace un connect() por (host, puerto).
type Scanner struct {
	dial        dialer
	pool        *workerpool.Pool
	dialTimeout time.Duration
	defaultTop  int
	logger      logx.Logger
}

// Options configura el scanner.
type Options struct {
	// Workers es la concurrencia máxima de conexiones (default 100)
	Workers int
	// DialTimeout por conexión (default 1s)
	DialTimeout time.Duration
	Logger      logx.Logger
}

// New crea un Scanner.
func New(opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = 100
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logx.NewDiscard()
	}
	logger := opts.Logger.With("adapter", "connectscan")
	return &Scanner{
		dial:        &net.Dialer{},
		pool:        workerpool.New(workerpool.Config{Workers: opts.Workers, Logger: logger, Name: "connectscan"}),
		dialTimeout: opts.DialTimeout,
		defaultTop:  100,
		logger:      logger,
	}
}

func (s *Scanner) Name() string { return "connect" }

type probe struct {
	host string
	port int
}

// Scan prueba cada puerto de la especificación. Solo -p de opts.Options
// se interpreta; el resto de flags no aplican a un connect scan.
func (s *Scanner) Scan(ctx context.Context, target domain.Target, opts ports.ScanOptions) (ports.PortScanResult, error) {
	portList, err := s.portList(opts)
	if err != nil {
		return ports.PortScanResult{}, err
	}
	hosts, err := expandHosts(ctx, target)
	if err != nil {
		return ports.PortScanResult{}, err
	}

	probes := make([]probe, 0, len(hosts)*len(portList))
	for _, h := range hosts {
		for _, p := range portList {
			probes = append(probes, probe{host: h, port: p})
		}
	}

	start := time.Now()
	results := workerpool.Map(ctx, s.pool, probes, func(ctx context.Context, p probe) (bool, error) {
		return s.isOpen(ctx, p.host, p.port), nil
	})
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ports.PortScanResult{}, &domain.ProbeTimeoutError{Probe: "connectscan", Err: err}
		}
		return ports.PortScanResult{}, err
	}

	report := extract.ScanReport{}
	byHost := make(map[string]int)
	for _, h := range hosts {
		byHost[h] = len(report.Hosts)
		report.Hosts = append(report.Hosts, extract.HostReport{Address: h, State: "up"})
	}
	for _, r := range results {
		if !r.Value {
			continue
		}
		i := byHost[r.Item.host]
		report.Hosts[i].Ports = append(report.Hosts[i].Ports, extract.PortReport{
			Number:   r.Item.port,
			Protocol: "tcp",
			State:    "open",
			Service:  ServiceName(r.Item.port),
		})
	}
	// en un barrido de red solo interesan los hosts que respondieron
	if target.Kind == domain.TargetKindNetwork {
		live := report.Hosts[:0]
		for _, h := range report.Hosts {
			if len(h.Ports) > 0 {
				live = append(live, h)
			}
		}
		report.Hosts = live
	}

	s.logger.Debug("connect scan completed",
		"target", target.Value,
		"probes", len(probes),
		"duration", time.Since(start).String(),
	)

	return ports.PortScanResult{
		Text:      report.Text(),
		OpenPorts: report.OpenPorts(),
		Command:   fmt.Sprintf("connect-scan %d ports on %d hosts", len(portList), len(hosts)),
	}, nil
}

func (s *Scanner) portList(opts ports.ScanOptions) ([]int, error) {
	spec := opts.Ports
	for _, o := range opts.Options {
		if len(o) > 2 && o[:2] == "-p" && spec == "" {
			spec = o[2:]
		}
	}
	if spec != "" {
		return ParsePortSpec(spec)
	}
	n := opts.TopPorts
	if n <= 0 {
		n = s.defaultTop
	}
	return TopPorts(n), nil
}

func (s *Scanner) isOpen(ctx context.Context, host string, port int) bool {
	ctx, cancel := context.WithTimeout(ctx, s.dialTimeout)
	defer cancel()

	conn, err := s.dial.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// expandHosts resuelve el objetivo a direcciones concretas. Las
// direcciones denylisted se descartan también aquí porque un dominio
// puede resolver a un rango privado.
func expandHosts(ctx context.Context, target domain.Target) ([]string, error) {
	switch target.Kind {
	case domain.TargetKindIP:
		return []string{target.Value}, nil
	case domain.TargetKindNetwork:
		prefix, err := netip.ParsePrefix(target.Value)
		if err != nil {
			return nil, perrors.Wrapf(perrors.ErrInvalidInput, "network %q", target.Value)
		}
		var hosts []string
		for a := prefix.Masked().Addr(); prefix.Contains(a) && len(hosts) < maxHosts; a = a.Next() {
			if !domain.Denylisted(a) {
				hosts = append(hosts, a.String())
			}
		}
		return hosts, nil
	default:
		host := target.Host()
		addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip4", host)
		if err != nil {
			return nil, &domain.ProbeTransportError{Probe: "connectscan", Err: err}
		}
		for _, a := range addrs {
			if !domain.Denylisted(a.Unmap()) {
				return []string{a.Unmap().String()}, nil
			}
		}
		return nil, &domain.InvalidTargetError{Raw: host, Reason: domain.ErrDenylisted}
	}
}
