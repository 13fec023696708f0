// internal/platform/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGetenv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		def      string
		envValue string
		expected string
	}{
		{
			name:     "env var exists",
			key:      "TEST_KEY_1",
			def:      "default",
			envValue: "custom",
			expected: "custom",
		},
		{
			name:     "env var missing - uses default",
			key:      "TEST_KEY_MISSING",
			def:      "default",
			expected: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			result := getenv(tt.key, tt.def)

			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"1", true},
		{"t", true},
		{"TRUE", true},
		{"y", true},
		{"Yes", true},
		{"on", true},
		{" true ", true},

		{"0", false},
		{"false", false},
		{"no", false},
		{"off", false},
		{"", false},
		{"garbage", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseBool(tt.input); got != tt.expected {
				t.Errorf("parseBool(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseNumbers(t *testing.T) {
	if got := parseInt("  100  ", 10); got != 100 {
		t.Errorf("parseInt with spaces = %d", got)
	}
	if got := parseInt("3.14", 10); got != 10 {
		t.Errorf("parseInt float should fall back, got %d", got)
	}
	if got := parseFloat("2.5", 0); got != 2.5 {
		t.Errorf("parseFloat = %v", got)
	}
	if got := parseFloat("abc", 1.5); got != 1.5 {
		t.Errorf("parseFloat invalid should fall back, got %v", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Recon.PortProfile != "top100" {
		t.Errorf("expected top100 profile, got %q", cfg.Recon.PortProfile)
	}
	if cfg.Adapters.PortScanner != "nmap" {
		t.Errorf("expected nmap scanner, got %q", cfg.Adapters.PortScanner)
	}
	if cfg.SessionTimeout() != 15*time.Minute {
		t.Errorf("expected 15m session timeout, got %v", cfg.SessionTimeout())
	}
	if cfg.ScanTimeout() != 5*time.Minute {
		t.Errorf("expected 5m scan timeout, got %v", cfg.ScanTimeout())
	}
	if cfg.Server.Transport != "stdio" {
		t.Errorf("expected stdio transport, got %q", cfg.Server.Transport)
	}
	if !cfg.Adapters.Screenshots {
		t.Error("screenshots should default to enabled")
	}
	if cfg.Report.Dir != "reports" {
		t.Errorf("expected reports dir, got %q", cfg.Report.Dir)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("RECONMCP_TARGET", "example.com")
	t.Setenv("RECONMCP_PORT_PROFILE", "WEB")
	t.Setenv("RECONMCP_DEEP", "yes")
	t.Setenv("RECONMCP_SESSION_TIMEOUT", "60")
	t.Setenv("RECONMCP_PORTSCAN", "connect")
	t.Setenv("RECONMCP_BRUTE_RATE", "0.5")
	t.Setenv("RECONMCP_SCREENSHOTS", "false")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Target != "example.com" {
		t.Errorf("target = %q", cfg.Target)
	}
	if cfg.Recon.PortProfile != "web" {
		t.Errorf("profile should be lowercased, got %q", cfg.Recon.PortProfile)
	}
	if !cfg.Recon.Deep {
		t.Error("deep should be enabled")
	}
	if cfg.SessionTimeout() != time.Minute {
		t.Errorf("session timeout = %v", cfg.SessionTimeout())
	}
	if cfg.Adapters.PortScanner != "connect" {
		t.Errorf("portscan = %q", cfg.Adapters.PortScanner)
	}
	if cfg.Brute.RatePerSecond != 0.5 {
		t.Errorf("brute rate = %v", cfg.Brute.RatePerSecond)
	}
	if cfg.Adapters.Screenshots {
		t.Error("screenshots should be disabled")
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("RECONMCP_PORT_PROFILE", "web")
	t.Setenv("RECONMCP_REPORT_DIR", "/tmp/env-reports")

	cfg, err := Load([]string{"scan", "-t", "8.8.8.8", "--profile", "db", "-o", "/tmp/flag-reports", "--deep"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Recon.PortProfile != "db" {
		t.Errorf("flag should win over env, got %q", cfg.Recon.PortProfile)
	}
	if cfg.Report.Dir != "/tmp/flag-reports" {
		t.Errorf("report dir = %q", cfg.Report.Dir)
	}
	if cfg.Target != "8.8.8.8" {
		t.Errorf("target = %q", cfg.Target)
	}
	if len(cfg.Args) != 1 || cfg.Args[0] != "scan" {
		t.Errorf("expected subcommand in args, got %v", cfg.Args)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reconmcp.yaml")
	content := `
server:
  throttle_calls: 10
recon:
  port_profile: remote
  workers: 40
adapters:
  portscan: connect
  dns_server: 1.1.1.1:53
report:
  dir: /var/lib/reconmcp
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RECONMCP_WORKERS", "8")

	cfg, err := Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ThrottleCalls != 10 {
		t.Errorf("throttle = %d", cfg.Server.ThrottleCalls)
	}
	if cfg.Recon.PortProfile != "remote" {
		t.Errorf("profile = %q", cfg.Recon.PortProfile)
	}
	if cfg.Recon.Workers != 8 {
		t.Errorf("env should win over file, got %d workers", cfg.Recon.Workers)
	}
	if cfg.Adapters.DNSServer != "1.1.1.1:53" {
		t.Errorf("dns server = %q", cfg.Adapters.DNSServer)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	// Defaults no presentes en el fichero se mantienen
	if cfg.Adapters.NmapPath != "nmap" {
		t.Errorf("nmap path = %q", cfg.Adapters.NmapPath)
	}
}

func TestLoad_YAMLUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("recon:\n  workerz: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Load([]string{"-c", path})
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_EmptyYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load([]string{"-c", path}); err != nil {
		t.Fatalf("empty file should be accepted: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load([]string{"--config", "/nonexistent/reconmcp.yaml"}); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown profile", []string{"--profile", "everything"}, "unknown port profile"},
		{"unknown scanner", []string{"--portscan", "masscan"}, "unknown port scanner"},
		{"unknown ui", []string{"--ui", "fancy"}, "unknown ui mode"},
		{"unknown flag", []string{"--nope"}, "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %v", tt.want, err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Target = "  example.com  "
	cfg.Recon.Workers = 0
	cfg.Recon.SessionTimeoutS = -1
	cfg.Brute.RatePerSecond = -3
	cfg.Report.Dir = ""
	cfg.UIMode = " RAW "

	normalize(&cfg)

	if cfg.Target != "example.com" {
		t.Errorf("target = %q", cfg.Target)
	}
	if cfg.Recon.Workers != 1 {
		t.Errorf("workers = %d", cfg.Recon.Workers)
	}
	if cfg.Recon.SessionTimeoutS != 900 {
		t.Errorf("session timeout = %d", cfg.Recon.SessionTimeoutS)
	}
	if cfg.Brute.RatePerSecond != 0 {
		t.Errorf("brute rate = %v", cfg.Brute.RatePerSecond)
	}
	if cfg.Report.Dir != "reports" {
		t.Errorf("report dir = %q", cfg.Report.Dir)
	}
	if cfg.UIMode != "raw" {
		t.Errorf("ui = %q", cfg.UIMode)
	}
}

func TestToYAML_MasksAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Adapters.NVDAPIKey = "secret-key"
	cfg.Adapters.IPInfoToken = "ipinfo-token"

	out, err := cfg.ToYAML()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "secret-key") {
		t.Error("api key leaked")
	}
	if strings.Contains(out, "ipinfo-token") {
		t.Error("ipinfo token leaked")
	}
	if !strings.Contains(out, "portscan: nmap") {
		t.Errorf("missing adapter section:\n%s", out)
	}
	if cfg.Adapters.NVDAPIKey != "secret-key" {
		t.Error("ToYAML must not mutate the receiver")
	}
}
