// internal/core/usecases/mocks_test.go
package usecases

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
)

// mockScanner es un mock de ports.PortScanner.
type mockScanner struct {
	mu        sync.Mutex
	runFunc   func(ctx context.Context, target domain.Target, opts ports.ScanOptions) (ports.PortScanResult, error)
	callCount int
	lastOpts  ports.ScanOptions
}

func (m *mockScanner) Name() string { return "mock-scanner" }

func (m *mockScanner) Scan(ctx context.Context, target domain.Target, opts ports.ScanOptions) (ports.PortScanResult, error) {
	m.mu.Lock()
	m.callCount++
	m.lastOpts = opts
	m.mu.Unlock()
	if m.runFunc != nil {
		return m.runFunc(ctx, target, opts)
	}
	return ports.PortScanResult{}, nil
}

func (m *mockScanner) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// scannerWithPorts devuelve un scanner que reporta los puertos indicados.
func scannerWithPorts(services map[int]string) *mockScanner {
	return &mockScanner{
		runFunc: func(ctx context.Context, target domain.Target, opts ports.ScanOptions) (ports.PortScanResult, error) {
			var sb strings.Builder
			fmt.Fprintf(&sb, "Host: %s\nOpen ports:\n", target.Value)
			var open []int
			for _, p := range []int{21, 22, 23, 25, 53, 80, 443, 3306, 3389, 8080, 8443} {
				svc, ok := services[p]
				if !ok {
					continue
				}
				open = append(open, p)
				fmt.Fprintf(&sb, "  %d/tcp - open (%s)\n", p, svc)
			}
			return ports.PortScanResult{Text: sb.String(), OpenPorts: open, Command: "mock"}, nil
		},
	}
}

// mockProber es un mock de ports.WebProber. responses indexa por URL
// completa; una URL ausente es un error de transporte.
type mockProber struct {
	mu        sync.Mutex
	responses map[string]ports.WebResponse
	hits      []ports.PathHit
	fetched   []string
	scanCalls int
}

func newMockProber() *mockProber {
	return &mockProber{responses: make(map[string]ports.WebResponse)}
}

func (m *mockProber) Name() string { return "mock-web" }

func (m *mockProber) Fetch(ctx context.Context, url string) (ports.WebResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, url)
	if err := ctx.Err(); err != nil {
		return ports.WebResponse{}, err
	}
	resp, ok := m.responses[url]
	if !ok {
		return ports.WebResponse{}, &domain.ProbeTransportError{Probe: "mock-web", Err: fmt.Errorf("connection refused: %s", url)}
	}
	resp.URL = url
	return resp, nil
}

func (m *mockProber) ScanPaths(ctx context.Context, baseURL string, paths []string) ([]ports.PathHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanCalls++
	return m.hits, nil
}

func (m *mockProber) fetchedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetched...)
}

func (m *mockProber) fetchCount() int {
	return len(m.fetchedURLs())
}

// okResponse construye una respuesta 200 con cabeceras dadas.
func okResponse(headers map[string]string, body string) ports.WebResponse {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return ports.WebResponse{StatusCode: http.StatusOK, Headers: h, Body: body}
}

// mockShooter es un mock de ports.Screenshotter.
type mockShooter struct {
	mu        sync.Mutex
	fail      map[string]bool
	captured  []string
	callCount int
}

func (m *mockShooter) Name() string { return "mock-shooter" }

func (m *mockShooter) Capture(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if m.fail[url] {
		return nil, fmt.Errorf("navigation failed: %s", url)
	}
	m.captured = append(m.captured, url)
	return []byte("\x89PNG" + url), nil
}

// mockResolver es un mock de ports.DNSResolver.
type mockResolver struct {
	mu        sync.Mutex
	records   map[string][]ports.DNSRecord
	subs      []ports.Subdomain
	fail      bool
	callCount int
	lastWords []string
}

func (m *mockResolver) Name() string { return "mock-dns" }

func (m *mockResolver) Lookup(ctx context.Context, name, recordType string) ([]ports.DNSRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if m.fail {
		return nil, fmt.Errorf("no such host")
	}
	return m.records[recordType], nil
}

func (m *mockResolver) Reverse(ctx context.Context, ip string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	return []string{"host.example.com."}, nil
}

func (m *mockResolver) EnumerateSubdomains(ctx context.Context, domain string, words []string) ([]ports.Subdomain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.lastWords = words
	if m.fail {
		return nil, fmt.Errorf("no such host")
	}
	return m.subs, nil
}

func (m *mockResolver) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// mockWhois es un mock de ports.WhoisClient.
type mockWhois struct {
	record ports.WhoisRecord
	err    error
}

func (m *mockWhois) Name() string { return "mock-whois" }

func (m *mockWhois) Lookup(ctx context.Context, domain string) (ports.WhoisRecord, error) {
	if m.err != nil {
		return ports.WhoisRecord{}, m.err
	}
	return m.record, nil
}

// mockCracker es un mock de ports.Cracker. Acepta solo password.
type mockCracker struct {
	mu       sync.Mutex
	password string
	errFunc  func(password string) error
	tried    []string
}

func (m *mockCracker) Name() string { return "mock-cracker" }

func (m *mockCracker) TryLogin(ctx context.Context, host string, port int, username, password string) (bool, error) {
	m.mu.Lock()
	m.tried = append(m.tried, password)
	m.mu.Unlock()
	if m.errFunc != nil {
		if err := m.errFunc(password); err != nil {
			return false, err
		}
	}
	return password == m.password, nil
}

func (m *mockCracker) attempts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tried...)
}

// mockSSH es un mock de ports.SSHClient. outputs indexa por argv unido
// con espacios.
type mockSSH struct {
	mu      sync.Mutex
	outputs map[string]ports.CommandResult
	calls   [][]string
}

func (m *mockSSH) Name() string { return "mock-ssh" }

func (m *mockSSH) Exec(ctx context.Context, ep ports.Endpoint, argv []string) (ports.CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, argv)
	key := strings.Join(argv, " ")
	if res, ok := m.outputs[key]; ok {
		res.Command = key
		return res, nil
	}
	return ports.CommandResult{Command: key, ExitCode: 1, Stderr: "No such file or directory"}, nil
}

// mockVuln es un mock de ports.VulnLookup.
type mockVuln struct {
	cves      map[string][]ports.CVE
	callCount int
}

func (m *mockVuln) Name() string { return "mock-vuln" }

func (m *mockVuln) Lookup(ctx context.Context, product, version string) ([]ports.CVE, error) {
	m.callCount++
	return m.cves[product+" "+version], nil
}

// mockSink es un mock de ports.ReportSink + ports.SummaryWriter.
type mockSink struct {
	mu        sync.Mutex
	sections  []string
	images    []string
	summaries []domain.SessionView
	finalized bool
}

func (m *mockSink) Init(ctx context.Context, target string) (ports.ReportHandle, error) {
	return ports.ReportHandle{ID: "r1", Target: target, Dir: "/tmp/reports/r1"}, nil
}

func (m *mockSink) AppendSection(ctx context.Context, h ports.ReportHandle, title, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sections = append(m.sections, title)
	return nil
}

func (m *mockSink) AppendImage(ctx context.Context, h ports.ReportHandle, caption string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images = append(m.images, caption)
	return nil
}

func (m *mockSink) Finalize(ctx context.Context, h ports.ReportHandle) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalized = true
	return h.Dir + "/report.md", nil
}

func (m *mockSink) WriteSummary(ctx context.Context, h ports.ReportHandle, view domain.SessionView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, view)
	return nil
}

// mockNotifier registra los eventos recibidos.
type mockNotifier struct {
	mu     sync.Mutex
	events []ports.Event
}

func (m *mockNotifier) Notify(ctx context.Context, event ports.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockNotifier) Close() error { return nil }

func (m *mockNotifier) count(t ports.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// mockCerts es un mock de ports.CertFetcher.
type mockCerts struct {
	cert     ports.CertInfo
	err      error
	endpoint string
}

func (m *mockCerts) Name() string { return "mock-tls" }

func (m *mockCerts) Certificate(_ context.Context, host string, port int) (ports.CertInfo, error) {
	m.endpoint = fmt.Sprintf("%s:%d", host, port)
	return m.cert, m.err
}

// mockIPInfo es un mock de ports.IPInfoLookup.
type mockIPInfo struct {
	info   ports.IPInfo
	err    error
	looked []string
}

func (m *mockIPInfo) Name() string { return "mock-ipinfo" }

func (m *mockIPInfo) Lookup(_ context.Context, ip string) (ports.IPInfo, error) {
	m.looked = append(m.looked, ip)
	return m.info, m.err
}
