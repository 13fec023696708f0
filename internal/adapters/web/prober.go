// Package web implementa ports.WebProber sobre net/http.
//
// Cada request es una observación del objetivo: no hay reintentos, y un
// status no-2xx no es un error.
package web

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
	"reconmcp/internal/platform/workerpool"
)

// maxBody es lo que se lee de cada respuesta.
const maxBody = 512 * 1024

// reportedStatuses son los códigos que el directory scan considera hallazgo.
var reportedStatuses = map[int]bool{
	http.StatusOK:               true,
	http.StatusUnauthorized:     true,
	http.StatusForbidden:        true,
	http.StatusMovedPermanently: true,
	http.StatusFound:            true,
}

// Options configura el prober.
type Options struct {
	// Timeout por request (default 15s)
	Timeout time.Duration
	// Workers acota el directory scan (default 20)
	Workers   int
	UserAgent string
	// AllowPrivate desactiva el bloqueo de conexiones a rangos denylisted.
	// Solo para tests contra httptest.
	AllowPrivate bool
	Logger       logx.Logger
}

// Prober hace GET para análisis y HEAD para el directory scan.
type Prober struct {
	client     *http.Client
	headClient *http.Client
	pool       *workerpool.Pool
	dialer     *net.Dialer
	userAgent  string
	logger     logx.Logger
}

// New crea un Prober.
func New(opts Options) *Prober {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 20
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Compatible Security Scanner)"
	}
	if opts.Logger == nil {
		opts.Logger = logx.NewDiscard()
	}
	logger := opts.Logger.With("adapter", "web")

	dialer := &net.Dialer{Timeout: opts.Timeout}
	if !opts.AllowPrivate {
		dialer.Control = refuseDenylisted
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // los objetivos suelen tener certificados inválidos
		TLSHandshakeTimeout: opts.Timeout,
		MaxIdleConnsPerHost: opts.Workers,
		IdleConnTimeout:     30 * time.Second,
	}

	return &Prober{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		headClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			// los redirects son hallazgos en sí mismos
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		pool:      workerpool.New(workerpool.Config{Workers: opts.Workers, Logger: logger, Name: "dirscan"}),
		dialer:    dialer,
		userAgent: opts.UserAgent,
		logger:    logger,
	}
}

func (p *Prober) Name() string { return "http" }

// Fetch hace un GET y devuelve status, cabeceras y el body truncado.
func (p *Prober) Fetch(ctx context.Context, url string) (ports.WebResponse, error) {
	resp, dur, err := p.do(ctx, p.client, http.MethodGet, url)
	if err != nil {
		return ports.WebResponse{URL: url}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil && len(body) == 0 {
		return ports.WebResponse{URL: url}, classify(ctx, "http", err)
	}

	return ports.WebResponse{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       string(body),
		Duration:   dur,
	}, nil
}

// ScanPaths hace un HEAD por ruta con concurrencia acotada y devuelve
// las que respondieron con un status reportable, ordenadas por ruta.
func (p *Prober) ScanPaths(ctx context.Context, baseURL string, paths []string) ([]ports.PathHit, error) {
	base := strings.TrimRight(baseURL, "/")

	results := workerpool.Map(ctx, p.pool, paths, func(ctx context.Context, path string) (ports.PathHit, error) {
		resp, _, err := p.do(ctx, p.headClient, http.MethodHead, base+"/"+strings.TrimLeft(path, "/"))
		if err != nil {
			return ports.PathHit{}, err
		}
		resp.Body.Close()
		size := resp.ContentLength
		if size < 0 {
			size = 0
		}
		return ports.PathHit{Path: "/" + strings.TrimLeft(path, "/"), StatusCode: resp.StatusCode, Size: size}, nil
	})

	var hits []ports.PathHit
	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
			continue
		}
		if reportedStatuses[r.Value.StatusCode] {
			hits = append(hits, r.Value)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Path < hits[j].Path })

	if err := ctx.Err(); err != nil && len(hits) == 0 {
		return nil, classify(ctx, "dirscan", err)
	}
	if failures == len(paths) && len(paths) > 0 {
		return nil, &domain.ProbeTransportError{Probe: "dirscan", Err: fmt.Errorf("all %d requests failed", failures)}
	}

	p.logger.Debug("directory scan completed", "base", base, "paths", len(paths), "hits", len(hits), "failures", failures)
	return hits, nil
}

// Certificate hace el handshake TLS contra host:port y devuelve el
// certificado hoja. La conexión pasa por el mismo dialer que los requests,
// así que los rangos denylisted también se cortan aquí.
func (p *Prober) Certificate(ctx context.Context, host string, port int) (ports.CertInfo, error) {
	if host == "" || port <= 0 || port > 65535 {
		return ports.CertInfo{}, perrors.Wrapf(perrors.ErrInvalidInput, "tls endpoint %q:%d", host, port)
	}
	cfg := &tls.Config{InsecureSkipVerify: true} //nolint:gosec // se inspecciona el certificado, no se confía en él
	if _, err := netip.ParseAddr(host); err != nil {
		cfg.ServerName = host
	}
	d := &tls.Dialer{NetDialer: p.dialer, Config: cfg}

	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return ports.CertInfo{}, classify(ctx, "tls", err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return ports.CertInfo{}, &domain.ProbeTransportError{Probe: "tls", Err: errors.New("no peer certificate")}
	}
	leaf := state.PeerCertificates[0]
	p.logger.Debug("tls handshake", "host", host, "port", port, "subject", leaf.Subject.CommonName)

	return ports.CertInfo{
		Subject:    leaf.Subject.String(),
		Issuer:     leaf.Issuer.String(),
		DNSNames:   leaf.DNSNames,
		Version:    leaf.Version,
		NotBefore:  leaf.NotBefore,
		NotAfter:   leaf.NotAfter,
		TLSVersion: tls.VersionName(state.Version),
	}, nil
}

func (p *Prober) do(ctx context.Context, client *http.Client, method, url string) (*http.Response, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, 0, perrors.Wrapf(perrors.ErrInvalidInput, "request %s: %v", url, err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, classify(ctx, "http", err)
	}
	return resp, time.Since(start), nil
}

// classify traduce errores de red a los tipos de probe del dominio.
func classify(ctx context.Context, probe string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if perrors.IsTimeout(err) {
		return &domain.ProbeTimeoutError{Probe: probe, Err: err}
	}
	return &domain.ProbeTransportError{Probe: probe, Err: err}
}

var errDenylisted = errors.New("connection to denylisted address refused")

// refuseDenylisted corta conexiones a rangos privados aunque el nombre
// haya pasado la validación (DNS rebinding, redirects).
func refuseDenylisted(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if domain.Denylisted(addr.Unmap()) {
		return errDenylisted
	}
	return nil
}
