package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
)

type mockScanner struct {
	mu       sync.Mutex
	calls    int
	lastOpts ports.ScanOptions
	lastHost string
	services map[int]string
	err      error
}

func (m *mockScanner) Name() string { return "mock-scanner" }

func (m *mockScanner) Scan(_ context.Context, target domain.Target, opts ports.ScanOptions) (ports.PortScanResult, error) {
	m.mu.Lock()
	m.calls++
	m.lastOpts = opts
	m.lastHost = target.Value
	m.mu.Unlock()
	if m.err != nil {
		return ports.PortScanResult{}, m.err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Host: %s\nOpen ports:\n", target.Value)
	var open []int
	for _, p := range []int{21, 22, 23, 80, 443, 3306} {
		svc, ok := m.services[p]
		if !ok {
			continue
		}
		open = append(open, p)
		fmt.Fprintf(&sb, "  %d/tcp - open (%s)\n", p, svc)
	}
	return ports.PortScanResult{Text: sb.String(), OpenPorts: open, Command: "mock-scan " + target.Value}, nil
}

func (m *mockScanner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockProber responde solo a las URLs registradas.
type mockProber struct {
	responses map[string]ports.WebResponse
	hits      []ports.PathHit
}

func (m *mockProber) Name() string { return "mock-web" }

func (m *mockProber) Fetch(_ context.Context, url string) (ports.WebResponse, error) {
	resp, ok := m.responses[url]
	if !ok {
		return ports.WebResponse{}, fmt.Errorf("%w: connection refused", domain.ErrProbeTransport)
	}
	resp.URL = url
	return resp, nil
}

func (m *mockProber) ScanPaths(_ context.Context, _ string, _ []string) ([]ports.PathHit, error) {
	return m.hits, nil
}

type mockShooter struct{}

func (mockShooter) Name() string { return "mock-shot" }

func (mockShooter) Capture(_ context.Context, _ string) ([]byte, error) {
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

type mockResolver struct {
	records map[string][]ports.DNSRecord
}

func (m *mockResolver) Name() string { return "mock-dns" }

func (m *mockResolver) Lookup(_ context.Context, name, recordType string) ([]ports.DNSRecord, error) {
	return m.records[recordType], nil
}

func (m *mockResolver) Reverse(_ context.Context, _ string) ([]string, error) {
	return []string{"dns.google."}, nil
}

func (m *mockResolver) EnumerateSubdomains(_ context.Context, domainName string, _ []string) ([]ports.Subdomain, error) {
	return []ports.Subdomain{{Name: "www." + domainName, Addresses: []string{"93.184.216.34"}}}, nil
}

type mockVuln struct {
	queries []string
}

func (m *mockVuln) Name() string { return "mock-nvd" }

func (m *mockVuln) Lookup(_ context.Context, product, version string) ([]ports.CVE, error) {
	m.queries = append(m.queries, product+" "+version)
	if strings.EqualFold(product, "vsftpd") {
		return []ports.CVE{{ID: "CVE-2011-2523", Score: 9.8, Severity: "CRITICAL", Description: "vsftpd 2.3.4 backdoor"}}, nil
	}
	return nil, nil
}

type mockFTP struct{}

func (mockFTP) Name() string { return "mock-ftp" }

func (mockFTP) CheckAnonymous(_ context.Context, host string, port int) (ports.FTPAnonReport, error) {
	return ports.FTPAnonReport{
		Host:           host,
		Port:           port,
		Banner:         "220 (vsFTPd 3.0.3)",
		Server:         "vsFTPd",
		Version:        "3.0.3",
		AnonymousLogin: true,
		Listing:        []string{"pub"},
		Issues:         []string{"Anonymous FTP access enabled"},
	}, nil
}

func (mockFTP) ReadFile(_ context.Context, _ ports.Endpoint, path string, _ int) (string, error) {
	return "contents of " + path, nil
}

func (mockFTP) Download(_ context.Context, _ ports.Endpoint, remotePath, localDir string) (string, error) {
	return localDir + "/" + remotePath, nil
}

type mockSSH struct {
	lastArgv []string
}

func (m *mockSSH) Name() string { return "mock-ssh" }

func (m *mockSSH) Exec(_ context.Context, _ ports.Endpoint, argv []string) (ports.CommandResult, error) {
	m.lastArgv = argv
	return ports.CommandResult{Command: strings.Join(argv, " "), Stdout: "uid=0(root)\n"}, nil
}

// mockCracker acepta solo la contraseña indicada.
type mockCracker struct {
	name     string
	password string
	tried    []string
}

func (m *mockCracker) Name() string { return m.name }

func (m *mockCracker) TryLogin(_ context.Context, _ string, _ int, _ string, password string) (bool, error) {
	m.tried = append(m.tried, password)
	return password == m.password, nil
}

// recordingNotifier guarda los eventos recibidos.
type recordingNotifier struct {
	mu     sync.Mutex
	events []ports.Event
}

func (r *recordingNotifier) Notify(_ context.Context, e ports.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingNotifier) Close() error { return nil }

func (r *recordingNotifier) toolEvents() []ports.ToolEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ports.ToolEvent
	for _, e := range r.events {
		if te, ok := e.Data.(ports.ToolEvent); ok {
			out = append(out, te)
		}
	}
	return out
}

type mockCerts struct {
	cert ports.CertInfo
}

func (mockCerts) Name() string { return "mock-tls" }

func (m mockCerts) Certificate(_ context.Context, _ string, _ int) (ports.CertInfo, error) {
	return m.cert, nil
}

type mockIPInfo struct {
	info ports.IPInfo
}

func (mockIPInfo) Name() string { return "mock-ipinfo" }

func (m mockIPInfo) Lookup(_ context.Context, ip string) (ports.IPInfo, error) {
	info := m.info
	info.IP = ip
	return info, nil
}
