// Package ftpprobe implementa ports.FTPClient y un ports.Cracker FTP sobre
// jlaffaye/ftp.
package ftpprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
)

const (
	// DefaultMaxRead es el límite de ReadFile.
	DefaultMaxRead = 65536

	anonymousUser     = "anonymous"
	anonymousPassword = "anonymous@"
)

// serverPatterns identifican el software a partir del banner.
var serverPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"vsFTPd", regexp.MustCompile(`(?i)vsFTPd\s*\(?v?(\d+\.\d+(?:\.\d+)?)?`)},
	{"ProFTPD", regexp.MustCompile(`(?i)ProFTPD\s*(\d+\.\d+(?:\.\d+)?[a-z]?)?`)},
	{"Pure-FTPd", regexp.MustCompile(`(?i)Pure-FTPd(?:\s+\[?v?(\d+\.\d+(?:\.\d+)?))?`)},
	{"FileZilla Server", regexp.MustCompile(`(?i)FileZilla\s+Server(?:\s+(?:version\s+)?v?(\d+\.\d+(?:\.\d+)?[a-z]?))?`)},
}

// Options configura el cliente.
type Options struct {
	// Timeout acota conexión y operaciones cuando el ctx no trae deadline
	Timeout time.Duration
	Logger  logx.Logger
}

// Client implementa ports.FTPClient. Cada operación abre y cierra su
// propia conexión.
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
	return &Client{timeout: opts.Timeout, logger: opts.Logger.With("adapter", "ftp")}
}

func (c *Client) Name() string { return "ftp" }

// CheckAnonymous prueba el login anónimo y lista el directorio raíz.
func (c *Client) CheckAnonymous(ctx context.Context, host string, port int) (ports.FTPAnonReport, error) {
	if port == 0 {
		port = 21
	}
	report := ports.FTPAnonReport{Host: host, Port: port}

	conn, banner, err := dial(ctx, host, port, c.timeout)
	if err != nil {
		return report, err
	}
	defer conn.Quit()

	report.Banner = banner
	report.Server, report.Version = IdentifyServer(banner)

	if err := conn.Login(anonymousUser, anonymousPassword); err != nil {
		if isAuthRejection(err) {
			report.Issues, report.Recommendations = Assess(report)
			c.logger.Info("anonymous login rejected", "host", host, "port", port)
			return report, nil
		}
		return report, classify(ctx, err)
	}
	report.AnonymousLogin = true

	entries, err := conn.List("/")
	if err != nil {
		c.logger.Debug("anonymous listing failed", "host", host, "error", err.Error())
	}
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		name := e.Name
		if e.Type == ftp.EntryTypeFolder {
			name += "/"
		}
		report.Listing = append(report.Listing, name)
	}
	sort.Strings(report.Listing)

	report.Issues, report.Recommendations = Assess(report)
	c.logger.Info("anonymous login accepted", "host", host, "port", port, "entries", len(report.Listing))
	return report, nil
}

// ReadFile devuelve el contenido de remotePath. Un fichero mayor que
// maxBytes es un error, no se trunca.
func (c *Client) ReadFile(ctx context.Context, ep ports.Endpoint, remotePath string, maxBytes int) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRead
	}
	if err := checkRemotePath(remotePath); err != nil {
		return "", err
	}

	conn, err := c.login(ctx, ep)
	if err != nil {
		return "", err
	}
	defer conn.Quit()

	resp, err := conn.Retr(remotePath)
	if err != nil {
		return "", classify(ctx, err)
	}
	data, err := io.ReadAll(io.LimitReader(resp, int64(maxBytes)+1))
	_ = resp.Close()
	if err != nil {
		return "", classify(ctx, err)
	}
	if len(data) > maxBytes {
		return "", perrors.Wrapf(perrors.ErrInvalidInput, "%s exceeds the limit of %d KB", remotePath, maxBytes/1024)
	}
	return string(data), nil
}

// Download copia remotePath a localDir conservando el nombre base.
// Devuelve la ruta local escrita.
func (c *Client) Download(ctx context.Context, ep ports.Endpoint, remotePath, localDir string) (string, error) {
	if err := checkRemotePath(remotePath); err != nil {
		return "", err
	}
	base := path.Base(remotePath)
	if base == "/" || base == "." || base == ".." {
		return "", perrors.Wrapf(perrors.ErrInvalidInput, "no file name in %q", remotePath)
	}
	if localDir == "" {
		localDir = "."
	}
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", localDir, err)
	}
	dest := filepath.Join(localDir, base)

	conn, err := c.login(ctx, ep)
	if err != nil {
		return "", err
	}
	defer conn.Quit()

	resp, err := conn.Retr(remotePath)
	if err != nil {
		return "", classify(ctx, err)
	}
	defer resp.Close()

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	n, copyErr := io.Copy(f, resp)
	if err := f.Close(); err != nil && copyErr == nil {
		copyErr = err
	}
	if copyErr != nil {
		_ = os.Remove(dest)
		return "", classify(ctx, copyErr)
	}

	c.logger.Info("file downloaded", "host", ep.Host, "remote", remotePath, "local", dest, "bytes", n)
	return dest, nil
}

func (c *Client) login(ctx context.Context, ep ports.Endpoint) (*ftp.ServerConn, error) {
	port := ep.Port
	if port == 0 {
		port = 21
	}
	conn, _, err := dial(ctx, ep.Host, port, c.timeout)
	if err != nil {
		return nil, err
	}
	user, pass := ep.Username, ep.Password
	if user == "" {
		user, pass = anonymousUser, anonymousPassword
	}
	if err := conn.Login(user, pass); err != nil {
		_ = conn.Quit()
		if isAuthRejection(err) {
			return nil, perrors.Wrapf(domain.ErrAuthenticationFailure, "ftp login as %s: %v", user, err)
		}
		return nil, classify(ctx, err)
	}
	return conn, nil
}

// IdentifyServer extrae nombre y versión del software del banner.
func IdentifyServer(banner string) (server, version string) {
	for _, p := range serverPatterns {
		m := p.re.FindStringSubmatch(banner)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			version = m[1]
		}
		return p.name, version
	}
	return "", ""
}

// Assess deriva problemas y recomendaciones de un chequeo anónimo.
func Assess(r ports.FTPAnonReport) (issues, recommendations []string) {
	if r.AnonymousLogin {
		issues = append(issues,
			"Anonymous login is enabled",
			"The FTP server is accessible without authentication",
		)
		if len(r.Listing) > 0 {
			issues = append(issues, fmt.Sprintf("Anonymous user can access %d files", len(r.Listing)))
		}
	}
	if r.Server == "vsFTPd" && r.Version == "2.3.4" {
		issues = append(issues, "vsFTPd 2.3.4 ships a known backdoor (CVE-2011-2523)")
	}
	recommendations = append(recommendations,
		"Disable anonymous login",
		"Implement strong authentication mechanisms",
	)
	return issues, recommendations
}

// dial conecta, captura el banner y aplica el deadline del ctx a la
// conexión de control.
func dial(ctx context.Context, host string, port int, timeout time.Duration) (*ftp.ServerConn, string, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	d := net.Dialer{Timeout: timeout}
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, "", classify(ctx, err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(timeout)
	}
	_ = raw.SetDeadline(deadline)

	rec := &recordingConn{Conn: raw}
	conn, err := ftp.Dial(addr,
		ftp.DialWithNetConn(rec),
		ftp.DialWithTimeout(timeout),
		// conexiones de datos (EPSV/PASV)
		ftp.DialWithDialFunc(func(network, address string) (net.Conn, error) {
			return d.DialContext(ctx, network, address)
		}),
	)
	if err != nil {
		_ = raw.Close()
		return nil, "", classify(ctx, err)
	}
	return conn, rec.banner(), nil
}

func checkRemotePath(p string) error {
	if strings.TrimSpace(p) == "" || strings.ContainsAny(p, "\r\n\x00") {
		return perrors.Wrapf(perrors.ErrInvalidInput, "invalid remote path %q", p)
	}
	return nil
}

// isAuthRejection detecta 530 (login incorrecto) y 331/332 sin continuación.
func isAuthRejection(err error) bool {
	var tp *textproto.Error
	if errors.As(err, &tp) {
		return tp.Code == ftp.StatusNotLoggedIn
	}
	return strings.HasPrefix(err.Error(), "530")
}

func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if perrors.IsTimeout(err) {
		return &domain.ProbeTimeoutError{Probe: "ftp", Err: err}
	}
	var tp *textproto.Error
	if errors.As(err, &tp) {
		switch {
		case tp.Code == ftp.StatusNotAvailable:
			return &domain.ProbeTransportError{Probe: "ftp", Err: err}
		case tp.Code == ftp.StatusFileUnavailable:
			return perrors.Wrapf(perrors.ErrNotFound, "ftp: %s", tp.Msg)
		}
		return err
	}
	if perrors.IsConnectionError(err) {
		return &domain.ProbeTransportError{Probe: "ftp", Err: err}
	}
	return err
}

// recordingConn guarda los primeros bytes leídos de la conexión de
// control, que contienen el saludo 220.
type recordingConn struct {
	net.Conn
	mu  sync.Mutex
	buf bytes.Buffer
}

const bannerLimit = 1024

func (r *recordingConn) Read(p []byte) (int, error) {
	n, err := r.Conn.Read(p)
	if n > 0 {
		r.mu.Lock()
		if room := bannerLimit - r.buf.Len(); room > 0 {
			r.buf.Write(p[:min(n, room)])
		}
		r.mu.Unlock()
	}
	return n, err
}

// banner devuelve el texto del saludo sin el código 220.
func (r *recordingConn) banner() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lines []string
	for _, line := range strings.Split(r.buf.String(), "\n") {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, "220") {
			if len(lines) > 0 {
				break
			}
			continue
		}
		lines = append(lines, strings.TrimSpace(line[3:]))
		if len(line) < 4 || line[3] != '-' {
			break
		}
	}
	for i, l := range lines {
		lines[i] = strings.TrimPrefix(l, "-")
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}
