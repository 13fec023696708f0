// cmd/reconmcp/wiring_test.go
package main

import (
	"bytes"
	"testing"
	"time"

	"reconmcp/internal/mcpserver"
	"reconmcp/internal/platform/config"
	"reconmcp/internal/platform/logx"
	"reconmcp/internal/platform/registry"
	"reconmcp/internal/platform/toolcheck"
	"reconmcp/internal/testutil"
)

func TestScannerRegistry(t *testing.T) {
	r := newScannerRegistry(logx.NewDiscard())
	testutil.AssertDeepEqual(t, r.List(), []string{"connect", "nmap"}, "registered scanners")

	s, err := r.Build("connect", registry.Options{"dial_timeout": "200ms"}, nil)
	testutil.AssertNoError(t, err, "build connect")
	testutil.AssertEqual(t, s.Name(), "connect", "scanner name")

	_, err = r.Build("masscan", nil, nil)
	testutil.AssertError(t, err, "unknown variant")
}

func TestCrackerRegistry(t *testing.T) {
	r := newCrackerRegistry(logx.NewDiscard())
	for _, name := range crackerNames {
		c, err := r.Build(name, registry.Options{"timeout": time.Second}, nil)
		testutil.AssertNoError(t, err, "build "+name)
		testutil.AssertNotNil(t, c, name)
	}
}

func TestBuildApp(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Adapters.PortScanner = "connect"
	cfg.Adapters.Screenshots = false
	cfg.Report.Dir = t.TempDir()

	a, err := buildApp(cfg, logx.NewDiscard(), nil)
	testutil.AssertNoError(t, err, "buildApp")
	defer a.close()

	testutil.AssertEqual(t, a.deps.Scanner.Name(), "connect", "configured scanner")
	testutil.AssertNotNil(t, a.deps.Recon, "orchestrator")
	testutil.AssertNotNil(t, a.deps.SSH, "ssh explorer")
	testutil.AssertNotNil(t, a.deps.OSINT, "osint collector")
	testutil.AssertLen(t, a.deps.BruteForcers, 3, "brute forcers")
	testutil.AssertTrue(t, a.metrics == nil, "metrics off without addr")

	srv := mcpserver.New(a.serverConfig("test"), a.deps)
	testutil.AssertContains(t, srv.ToolNames(), "quick_recon", "tool catalog")

	sc := a.serverConfig("test")
	testutil.AssertEqual(t, sc.ThrottleCalls, 5, "throttle calls")
	testutil.AssertEqual(t, sc.ThrottleWindow, time.Minute, "throttle window")
	testutil.AssertEqual(t, sc.DownloadDir, "downloads", "download dir")
}

func TestBuildApp_Metrics(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Adapters.PortScanner = "connect"
	cfg.Adapters.Screenshots = false
	cfg.Metrics.Addr = "127.0.0.1:0"

	a, err := buildApp(cfg, logx.NewDiscard(), nil)
	testutil.AssertNoError(t, err, "buildApp")
	defer a.close()

	testutil.AssertNotNil(t, a.metrics, "metrics notifier")
	testutil.AssertLen(t, a.deps.Observers, 1, "observers")
}

func TestPrintDoctor(t *testing.T) {
	results := []toolcheck.Result{
		{Tool: toolcheck.Tool{Name: "nmap", Required: true}, Name: "nmap", Status: toolcheck.StatusMissing, Message: "not found in PATH"},
		{Tool: toolcheck.Tool{Name: "hydra"}, Name: "hydra", Status: toolcheck.StatusOK, Version: "9.5"},
	}

	var buf bytes.Buffer
	code := printDoctor(&buf, results, "nmap")
	testutil.AssertEqual(t, code, 1, "nmap missing with nmap scanner")
	testutil.AssertContains(t, buf.String(), "not found in PATH", "missing message")
	testutil.AssertContains(t, buf.String(), "9.5", "hydra version")

	buf.Reset()
	code = printDoctor(&buf, results, "connect")
	testutil.AssertEqual(t, code, 0, "nmap optional with connect scanner")
}
