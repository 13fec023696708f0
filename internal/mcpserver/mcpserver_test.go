package mcpserver

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reconmcp/internal/core/ports"
	"reconmcp/internal/core/usecases"
	"reconmcp/internal/platform/logx"
)

var allTools = []string{
	"nmap_scan", "nmap_detailed_scan", "service_analysis", "vuln_lookup",
	"web_comprehensive_scan", "web_tech_detection", "web_security_headers", "web_directory_scan", "web_screenshot",
	"osint_scan",
	"dns_lookup", "dns_reverse_lookup", "dns_subdomain_enum", "dns_comprehensive", "whois_lookup",
	"ftp_anonymous_check", "ftp_read_file", "ftp_download_file",
	"ssh_exec", "ssh_find_flags", "ssh_explore", "credential_brute_force",
	"quick_recon", "comprehensive_recon", "comprehensive_recon_with_report",
	"scanner_status", "show_wordlists",
}

// connect arranca srv sobre transports en memoria y devuelve la sesión cliente.
func connect(t *testing.T, srv *Server) *mcp.ClientSession {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	go func() { _ = srv.MCPServer().Run(ctx, serverTransport) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "first content is %T", res.Content[0])
	return tc.Text
}

func newTestServer(cfg Config, deps Deps) *Server {
	deps.Logger = logx.NewDiscard()
	return New(cfg, deps)
}

func TestListTools(t *testing.T) {
	srv := newTestServer(Config{}, Deps{})
	cs := connect(t, srv)

	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, "tool %s has no description", tool.Name)
	}
	assert.ElementsMatch(t, allTools, names)
	assert.ElementsMatch(t, allTools, srv.ToolNames())
}

func TestNmapScan(t *testing.T) {
	scanner := &mockScanner{services: map[int]string{22: "ssh OpenSSH 8.9p1", 80: "http nginx 1.18.0"}}
	cs := connect(t, newTestServer(Config{}, Deps{Scanner: scanner}))

	res := callTool(t, cs, "nmap_scan", map[string]any{"target": "8.8.8.8"})
	text := resultText(t, res)

	assert.False(t, res.IsError, text)
	assert.Contains(t, text, "=== PORT SCAN (mock-scanner) ===")
	assert.Contains(t, text, "22/tcp - open (ssh OpenSSH 8.9p1)")
	assert.Contains(t, text, "Command: mock-scan 8.8.8.8")
	assert.Equal(t, 100, scanner.lastOpts.TopPorts)
	assert.False(t, scanner.lastOpts.ServiceDetection)
}

func TestNmapScan_URLTargetScansHost(t *testing.T) {
	scanner := &mockScanner{}
	cs := connect(t, newTestServer(Config{}, Deps{Scanner: scanner}))

	res := callTool(t, cs, "nmap_scan", map[string]any{"target": "https://scanme.example.com/login", "ports": "80,443"})
	text := resultText(t, res)

	assert.False(t, res.IsError, text)
	assert.Equal(t, "scanme.example.com", scanner.lastHost)
	assert.Equal(t, "80,443", scanner.lastOpts.Ports)
	assert.Contains(t, text, "No open ports found.")
}

func TestNmapScan_RejectsTargets(t *testing.T) {
	tests := []struct {
		name   string
		args   map[string]any
		expect string
	}{
		{"private ip", map[string]any{"target": "192.168.1.10"}, "invalid target"},
		{"loopback", map[string]any{"target": "127.0.0.1"}, "invalid target"},
		{"shell metachar", map[string]any{"target": "8.8.8.8; id"}, "invalid target"},
		{"empty target", map[string]any{"target": "  "}, "target is required"},
		{"bad ports", map[string]any{"target": "8.8.8.8", "ports": "22;reboot"}, "invalid port specification"},
	}

	scanner := &mockScanner{}
	cs := connect(t, newTestServer(Config{}, Deps{Scanner: scanner}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, cs, "nmap_scan", tt.args)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.expect)
		})
	}
	assert.Zero(t, scanner.callCount(), "scanner must not run for rejected input")
}

func TestNmapDetailedScan(t *testing.T) {
	scanner := &mockScanner{services: map[int]string{21: "ftp vsftpd 2.3.4"}}
	cs := connect(t, newTestServer(Config{}, Deps{Scanner: scanner}))

	res := callTool(t, cs, "nmap_detailed_scan", map[string]any{"target": "8.8.4.4", "intensity": 7})
	assert.False(t, res.IsError)
	assert.True(t, scanner.lastOpts.ServiceDetection)
	assert.Equal(t, 7, scanner.lastOpts.VersionIntensity)
	assert.Equal(t, 1000, scanner.lastOpts.TopPorts)
}

func TestMissingAdapter(t *testing.T) {
	cs := connect(t, newTestServer(Config{}, Deps{}))

	for _, tc := range []struct {
		tool string
		args map[string]any
	}{
		{"nmap_scan", map[string]any{"target": "8.8.8.8"}},
		{"dns_lookup", map[string]any{"domain": "example.com"}},
		{"quick_recon", map[string]any{"target": "8.8.8.8"}},
		{"vuln_lookup", map[string]any{"product": "openssh", "version": "8.9"}},
	} {
		res := callTool(t, cs, tc.tool, tc.args)
		assert.True(t, res.IsError, tc.tool)
		assert.Contains(t, resultText(t, res), "not configured", tc.tool)
	}
}

func TestThrottle(t *testing.T) {
	scanner := &mockScanner{}
	cs := connect(t, newTestServer(Config{ThrottleCalls: 2, ThrottleWindow: time.Hour}, Deps{Scanner: scanner}))

	for i := 0; i < 2; i++ {
		res := callTool(t, cs, "nmap_scan", map[string]any{"target": "8.8.8.8"})
		assert.False(t, res.IsError, "call %d", i)
	}
	res := callTool(t, cs, "nmap_scan", map[string]any{"target": "8.8.8.8"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "rate limit")
	assert.Contains(t, resultText(t, res), "retry in")
	assert.Equal(t, 2, scanner.callCount())

	// las tools offline no consumen cupo
	res = callTool(t, cs, "show_wordlists", nil)
	assert.False(t, res.IsError)

	res = callTool(t, cs, "scanner_status", nil)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "(0 of 2 available)")
}

func TestServiceAnalysis(t *testing.T) {
	cs := connect(t, newTestServer(Config{}, Deps{}))

	output := "Host: 8.8.8.8\nOpen ports:\n  21/tcp - open (ftp vsftpd 2.3.4)\n  22/tcp - open (ssh OpenSSH 8.9p1)\n"
	res := callTool(t, cs, "service_analysis", map[string]any{"scan_output": output})
	text := resultText(t, res)

	assert.False(t, res.IsError, text)
	assert.Contains(t, text, "=== PORT SERVICE ANALYSIS ===")
	assert.Contains(t, text, "Port 21")
	assert.Contains(t, text, "Port 22")
	assert.Contains(t, text, "=== SECURITY SUMMARY ===")

	res = callTool(t, cs, "service_analysis", map[string]any{})
	assert.True(t, res.IsError)

	res = callTool(t, cs, "service_analysis", map[string]any{"scan_output": "nothing here"})
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "No open ports found")
}

func TestVulnLookup(t *testing.T) {
	vuln := &mockVuln{}
	cs := connect(t, newTestServer(Config{}, Deps{Vuln: vuln}))

	res := callTool(t, cs, "vuln_lookup", map[string]any{"product": "vsftpd", "version": "2.3.4"})
	text := resultText(t, res)
	assert.False(t, res.IsError, text)
	assert.Contains(t, text, "CVE-2011-2523 (CVSS 9.8 CRITICAL)")

	res = callTool(t, cs, "vuln_lookup", map[string]any{"product": "nginx", "version": "1.25.0"})
	assert.Contains(t, resultText(t, res), "No known CVEs.")

	res = callTool(t, cs, "vuln_lookup", map[string]any{})
	assert.True(t, res.IsError)
	assert.Equal(t, []string{"vsftpd 2.3.4", "nginx 1.25.0"}, vuln.queries)
}

func TestOSINTScan(t *testing.T) {
	prober := &mockProber{
		responses: map[string]ports.WebResponse{
			"https://8.8.8.8":     {StatusCode: http.StatusOK, Headers: http.Header{"Server": {"gws"}}},
			"https://example.com": {StatusCode: http.StatusOK, Headers: http.Header{"Server": {"ECS"}}},
		},
	}
	now := time.Now()
	osint := usecases.NewOSINTCollector(
		mockCerts{cert: ports.CertInfo{Subject: "CN=example.com", Issuer: "CN=Test CA", NotBefore: now.Add(-time.Hour), NotAfter: now.Add(time.Hour)}},
		mockIPInfo{info: ports.IPInfo{City: "Mountain View", Org: "AS15169 Google LLC"}},
		usecases.NewWebAnalyzer(prober, nil, logx.NewDiscard()),
		logx.NewDiscard(),
	)
	cs := connect(t, newTestServer(Config{}, Deps{OSINT: osint}))

	t.Run("ip", func(t *testing.T) {
		res := callTool(t, cs, "osint_scan", map[string]any{"target": "8.8.8.8"})
		text := resultText(t, res)
		assert.False(t, res.IsError, text)
		assert.Contains(t, text, "ASN: AS15169 Google LLC")
		assert.Contains(t, text, "City: Mountain View")
		assert.Contains(t, text, "Server: gws")
	})

	t.Run("domain", func(t *testing.T) {
		res := callTool(t, cs, "osint_scan", map[string]any{"target": "example.com"})
		text := resultText(t, res)
		assert.False(t, res.IsError, text)
		assert.Contains(t, text, "Issuer: CN=Test CA")
		assert.Contains(t, text, "Server: ECS")
		assert.NotContains(t, text, "IP Information")
	})

	t.Run("denylisted", func(t *testing.T) {
		res := callTool(t, cs, "osint_scan", map[string]any{"target": "192.168.1.10"})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "invalid target")
	})

	t.Run("network rejected", func(t *testing.T) {
		res := callTool(t, cs, "osint_scan", map[string]any{"target": "8.8.8.0/24"})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "not a network")
	})
}

func TestOSINTScan_NotConfigured(t *testing.T) {
	cs := connect(t, newTestServer(Config{}, Deps{}))

	res := callTool(t, cs, "osint_scan", map[string]any{"target": "8.8.8.8"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "not configured")
}

func TestCVEsText_TruncatesDescription(t *testing.T) {
	long := strings.Repeat("a", 300)
	text := cvesText("apache", "2.4.49", []ports.CVE{{ID: "CVE-2021-41773", Score: 7.5, Description: long}})
	assert.Contains(t, text, strings.Repeat("a", 200)+"...")
	assert.NotContains(t, text, strings.Repeat("a", 201))
}

func TestWebTools(t *testing.T) {
	prober := &mockProber{
		responses: map[string]ports.WebResponse{
			"http://example.com": {
				StatusCode: http.StatusOK,
				Headers:    http.Header{"Server": {"nginx/1.18.0"}, "X-Frame-Options": {"DENY"}},
				Body:       "<html>hello</html>",
			},
		},
		hits: []ports.PathHit{{Path: "/admin", StatusCode: http.StatusForbidden}},
	}
	web := usecases.NewWebAnalyzer(prober, mockShooter{}, logx.NewDiscard())
	cs := connect(t, newTestServer(Config{}, Deps{Web: web}))

	t.Run("security headers fall back to http", func(t *testing.T) {
		res := callTool(t, cs, "web_security_headers", map[string]any{"url": "example.com"})
		text := resultText(t, res)
		assert.False(t, res.IsError, text)
		assert.Contains(t, text, "Target: http://example.com")
		assert.Contains(t, text, "X-Frame-Options")
	})

	t.Run("directory scan", func(t *testing.T) {
		res := callTool(t, cs, "web_directory_scan", map[string]any{"url": "http://example.com", "wordlist": "dirs"})
		text := resultText(t, res)
		assert.False(t, res.IsError, text)
		assert.Contains(t, text, "Target: http://example.com")
		assert.Contains(t, text, "/admin")
	})

	t.Run("screenshot returns an image", func(t *testing.T) {
		res := callTool(t, cs, "web_screenshot", map[string]any{"url": "http://example.com"})
		require.False(t, res.IsError)
		require.Len(t, res.Content, 2)
		img, ok := res.Content[1].(*mcp.ImageContent)
		require.True(t, ok)
		assert.Equal(t, "image/png", img.MIMEType)
		assert.NotEmpty(t, img.Data)
	})

	t.Run("network rejected", func(t *testing.T) {
		res := callTool(t, cs, "web_tech_detection", map[string]any{"url": "8.8.8.0/24"})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "not a network")
	})

	t.Run("unreachable site", func(t *testing.T) {
		res := callTool(t, cs, "web_tech_detection", map[string]any{"url": "down.example.org"})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "web analysis failed")
	})
}

func TestDNSTools(t *testing.T) {
	resolver := &mockResolver{records: map[string][]ports.DNSRecord{
		"MX": {{Name: "example.com.", Type: "MX", Value: "10 mail.example.com.", TTL: 300}},
	}}
	cs := connect(t, newTestServer(Config{}, Deps{Resolver: resolver}))

	res := callTool(t, cs, "dns_lookup", map[string]any{"domain": "example.com", "record_type": "MX"})
	text := resultText(t, res)
	assert.False(t, res.IsError, text)
	assert.Contains(t, text, "=== DNS LOOKUP: example.com MX ===")
	assert.Contains(t, text, "mail.example.com.")

	res = callTool(t, cs, "dns_lookup", map[string]any{"domain": "8.8.8.8"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "is not a domain name")

	res = callTool(t, cs, "dns_reverse_lookup", map[string]any{"ip": "8.8.8.8"})
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "dns.google.")

	res = callTool(t, cs, "dns_reverse_lookup", map[string]any{"ip": "10.0.0.1"})
	assert.True(t, res.IsError)

	res = callTool(t, cs, "dns_subdomain_enum", map[string]any{"domain": "example.com"})
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "www.example.com")
}

func TestFTPTools(t *testing.T) {
	cs := connect(t, newTestServer(Config{DownloadDir: "/tmp/loot"}, Deps{FTP: mockFTP{}}))

	res := callTool(t, cs, "ftp_anonymous_check", map[string]any{"host": "8.8.8.8"})
	text := resultText(t, res)
	assert.False(t, res.IsError, text)
	assert.Contains(t, text, "Target: 8.8.8.8:21")
	assert.Contains(t, text, "Anonymous login: ALLOWED")
	assert.Contains(t, text, "Anonymous FTP access enabled")

	res = callTool(t, cs, "ftp_anonymous_check", map[string]any{"host": "172.16.0.5"})
	assert.True(t, res.IsError, "anonymous check applies the denylist")

	// lectura post-explotación sobre un host de laboratorio
	res = callTool(t, cs, "ftp_read_file", map[string]any{"host": "10.10.10.5", "path": "pub/notes.txt"})
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "contents of pub/notes.txt")

	res = callTool(t, cs, "ftp_download_file", map[string]any{"host": "10.10.10.5", "path": "backup.zip"})
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "/tmp/loot/backup.zip")

	res = callTool(t, cs, "ftp_read_file", map[string]any{"host": "10.10.10.5"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "path is required")
}

func TestSSHExec(t *testing.T) {
	client := &mockSSH{}
	explorer := usecases.NewSSHExplorer(client, logx.NewDiscard())
	cs := connect(t, newTestServer(Config{}, Deps{SSH: explorer}))

	res := callTool(t, cs, "ssh_exec", map[string]any{
		"host": "10.10.10.5", "username": "root", "password": "toor",
		"command": []string{"id"},
	})
	text := resultText(t, res)
	assert.False(t, res.IsError, text)
	assert.Contains(t, text, "uid=0(root)")
	assert.Contains(t, text, "[exit code 0]")
	assert.Equal(t, []string{"id"}, client.lastArgv)

	res = callTool(t, cs, "ssh_exec", map[string]any{"host": "10.10.10.5", "username": "root", "command": []string{"id"}})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "password is required")

	res = callTool(t, cs, "ssh_explore", map[string]any{
		"host": "10.10.10.5", "username": "root", "password": "toor", "mode": "kernel",
	})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "unknown mode")
}

func TestCrackerFor(t *testing.T) {
	assert.Equal(t, "ftp", crackerFor("auto", 21))
	assert.Equal(t, "ssh", crackerFor("", 22))
	assert.Equal(t, "hydra", crackerFor("auto", 3306))
	assert.Equal(t, "hydra", crackerFor("hydra", 22))
}

func TestCredentialBruteForce(t *testing.T) {
	ftpCracker := &mockCracker{name: "ftp", password: "letmein"}
	bf := usecases.NewBruteForcer(usecases.BruteForcerOptions{Cracker: ftpCracker, Logger: logx.NewDiscard()})
	cs := connect(t, newTestServer(Config{}, Deps{BruteForcers: map[string]*usecases.BruteForcer{"ftp": bf}}))

	res := callTool(t, cs, "credential_brute_force", map[string]any{
		"target":    "8.8.8.8",
		"port":      21,
		"username":  "admin",
		"passwords": []string{"123456", "letmein", "password"},
	})
	text := resultText(t, res)
	assert.False(t, res.IsError, text)
	assert.Contains(t, text, "SUCCESS: password found")
	assert.Contains(t, text, "Password: letmein")
	assert.Equal(t, []string{"123456", "letmein"}, ftpCracker.tried, "stops at first success")

	res = callTool(t, cs, "credential_brute_force", map[string]any{
		"target": "8.8.8.8", "port": 22, "username": "root", "passwords": []string{"x"},
	})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), `cracker "ssh" is not available (configured: ftp)`)

	res = callTool(t, cs, "credential_brute_force", map[string]any{
		"target": "192.168.0.1", "port": 21, "username": "root", "passwords": []string{"x"},
	})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "invalid target")
}

func TestQuickRecon(t *testing.T) {
	scanner := &mockScanner{services: map[int]string{22: "ssh OpenSSH 8.9p1"}}
	recon := usecases.NewReconOrchestrator(usecases.ReconOptions{
		PortScanner: scanner,
		Logger:      logx.NewDiscard(),
	})
	cs := connect(t, newTestServer(Config{QuickTimeout: time.Minute}, Deps{Scanner: scanner, Recon: recon}))

	res := callTool(t, cs, "quick_recon", map[string]any{"target": "8.8.8.8"})
	text := resultText(t, res)
	assert.False(t, res.IsError, text)
	assert.Contains(t, text, "=== RECON SESSION ")
	assert.Contains(t, text, "Target: 8.8.8.8")
	assert.Contains(t, text, "NETWORK_SCAN")
	assert.Contains(t, text, "REPORT_EMIT")
	assert.Equal(t, 1, scanner.callCount())

	res = callTool(t, cs, "quick_recon", map[string]any{"target": "127.0.0.1"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "invalid target")

	res = callTool(t, cs, "quick_recon", map[string]any{"target": "8.8.8.8", "profile": "everything"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "unknown profile")
}

func TestToolEventsNotified(t *testing.T) {
	observer := &recordingNotifier{}
	cs := connect(t, newTestServer(Config{}, Deps{Observers: []ports.Notifier{observer}}))

	callTool(t, cs, "show_wordlists", nil)
	callTool(t, cs, "nmap_scan", map[string]any{"target": "8.8.8.8"})

	events := observer.toolEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "show_wordlists", events[0].Tool)
	assert.False(t, events[0].IsError)
	assert.Equal(t, "nmap_scan", events[1].Tool)
	assert.True(t, events[1].IsError, "scanner is not configured")
}

func TestScannerStatus(t *testing.T) {
	bf := usecases.NewBruteForcer(usecases.BruteForcerOptions{Cracker: &mockCracker{name: "ssh"}, Logger: logx.NewDiscard()})
	cs := connect(t, newTestServer(
		Config{ThrottleCalls: 5, ThrottleWindow: time.Minute},
		Deps{Scanner: &mockScanner{}, BruteForcers: map[string]*usecases.BruteForcer{"ssh": bf}},
	))

	res := callTool(t, cs, "scanner_status", nil)
	text := resultText(t, res)
	assert.False(t, res.IsError)
	assert.Contains(t, text, "ready (mock-scanner)")
	assert.Contains(t, text, "ready (ssh)")
	assert.Contains(t, text, "not configured")
	assert.Contains(t, text, "Scan throttle: 5 calls per 1m0s (5 of 5 available)")
	assert.Contains(t, text, "credential_brute_force")
}

func TestShowWordlists(t *testing.T) {
	cs := connect(t, newTestServer(Config{}, Deps{}))

	res := callTool(t, cs, "show_wordlists", nil)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "=== AVAILABLE WORDLISTS ===")
}
