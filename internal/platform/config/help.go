// internal/platform/config/help.go
package config

import (
	"fmt"
	"os"
	"runtime"
)

const helpText = `
reconmcp - Reconnaissance & exploitation MCP tool server

USAGE:
  reconmcp [options]                 Serve MCP tools over stdio (default)
  reconmcp scan -t <target> [opts]   Run the recon pipeline once and exit
  reconmcp doctor                    Check external tools (nmap, hydra, chrome)

IMPORTANT:
  Only run against systems you are authorized to test.
  Private, loopback and reserved IP ranges are always rejected.

CORE OPTIONS:
  -c, --config string      YAML configuration file (env RECONMCP_CONFIG)
  -t, --target string      Target for scan mode: IP, CIDR, domain or URL
  -p, --profile string     Port profile: top100|top1000|web|mail|db|remote|dns
      --deep               Directory scan and CVE lookup (default: false)
  -T, --timeout int        Session timeout in seconds (default: 900)
      --scan-timeout int   Network scan timeout in seconds (default: 300)
  -w, --workers int        Directory scan concurrency (default: 20)

ADAPTER OPTIONS:
      --portscan string    Port scanner: nmap|connect (default: nmap)
      --nmap-path string   nmap binary (default: nmap)
      --hydra-path string  hydra binary (default: hydra)
      --dns-server string  DNS resolver host:port (default: 8.8.8.8:53)
      --screenshots        Headless Chrome screenshots (default: true)

BRUTE FORCE OPTIONS:
      --brute-rate float   Login attempts per second, 0=unlimited (default: 0)

SERVER OPTIONS:
      --throttle int       Scan tool calls per minute, 0=unlimited (default: 5)

OUTPUT OPTIONS:
  -o, --report-dir string  Report directory (default: "reports")
      --download-dir str   FTP download directory (default: "downloads")
      --ui string          Scan mode output: pretty|raw|quiet (default: pretty)
      --log-level string   debug|info|warn|error (default: info)
      --log-file string    Rotating log file (default: stderr)
      --metrics-addr str   Prometheus listen address, e.g. :9464 (default: off)

INFO:
  -v, --version            Print version information and exit
  -h, --help               Show this help message

EXAMPLES:
  MCP server for a desktop client:
    reconmcp --config ~/.config/reconmcp.yaml

  One-shot pipeline against a domain:
    reconmcp scan -t example.com --deep

  Fast scan without nmap:
    reconmcp scan -t 93.184.216.34 --portscan connect -p web

ENVIRONMENT VARIABLES:
  Every option can be set with the RECONMCP_ prefix:

  RECONMCP_TARGET, RECONMCP_PORT_PROFILE, RECONMCP_DEEP=true
  RECONMCP_SESSION_TIMEOUT, RECONMCP_SCAN_TIMEOUT, RECONMCP_WORKERS
  RECONMCP_PORTSCAN, RECONMCP_NMAP_PATH, RECONMCP_HYDRA_PATH
  RECONMCP_DNS_SERVER, RECONMCP_SCREENSHOTS, RECONMCP_CHROME_PATH
  RECONMCP_NVD_API_KEY, RECONMCP_BRUTE_RATE, RECONMCP_THROTTLE_CALLS
  RECONMCP_REPORT_DIR, RECONMCP_LOG_LEVEL, RECONMCP_LOG_FILE
  RECONMCP_METRICS_ADDR, RECONMCP_DOWNLOAD_DIR, RECONMCP_IPINFO_TOKEN

  Precedence: flags > environment > config file > defaults.

OUTPUT:
  Each session writes <report-dir>/<target>_<timestamp>/ with:
  - report.md        Markdown report, one section per stage
  - screenshots/     PNG captures of web ports
  - summary.json     Machine-readable session summary
`

// PrintHelp prints the custom help message and exits.
func PrintHelp() {
	fmt.Fprint(os.Stdout, helpText)
	os.Exit(0)
}

// PrintVersion prints version information and exits.
func PrintVersion(version, commit, date string) {
	fmt.Printf("reconmcp %s\n", version)
	fmt.Printf("  Commit:  %s\n", commit)
	fmt.Printf("  Built:   %s\n", date)
	fmt.Printf("  Go:      %s\n", getGoVersion())
	os.Exit(0)
}

func getGoVersion() string {
	return runtime.Version()
}
