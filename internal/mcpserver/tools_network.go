package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"reconmcp/internal/adapters/vuln"
	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/extract"
	"reconmcp/internal/core/ports"
	"reconmcp/internal/core/usecases"
	"reconmcp/internal/platform/validator"
)

func (s *Server) registerNetworkTools() {
	s.addTool(
		&mcp.Tool{
			Name:  "nmap_scan",
			Title: "Port Scan",
			Description: `Fast TCP port scan of an IP, CIDR network, domain or URL host.

Without "ports" it scans the top 100 ports. Extra nmap flags are accepted only from a fixed allowlist:
-p<ports>, -sV, -sC, -sS, -sT, -sU, -A, -T<0-5>, -Pn, -n, -F, --open, --reason, --max-retries=N.

Returns the open ports in the form "22/tcp - open (ssh OpenSSH 8.9p1)" plus the command that ran.`,
			InputSchema: objectSchema(map[string]any{
				"target":  stringProp("IP, CIDR, domain or URL to scan"),
				"ports":   stringProp(`Port list such as "22,80,8000-8100" (default: top 100)`),
				"options": stringArrayProp("Additional allowlisted nmap flags"),
			}, "target"),
			Annotations: readOnly("Port Scan", true),
		},
		true,
		s.handleNmapScan,
	)

	s.addTool(
		&mcp.Tool{
			Name:  "nmap_detailed_scan",
			Title: "Service Version Scan",
			Description: `Port scan with service and version detection (-sV). Slower than nmap_scan; use it on a
narrowed port list once nmap_scan found something.`,
			InputSchema: objectSchema(map[string]any{
				"target":    stringProp("IP, CIDR, domain or URL to scan"),
				"ports":     stringProp(`Port list such as "22,80,443" (default: top 1000)`),
				"intensity": intProp("Version detection intensity", 0, 9),
			}, "target"),
			Annotations: readOnly("Service Version Scan", true),
		},
		true,
		s.handleNmapDetailedScan,
	)

	s.addTool(
		&mcp.Tool{
			Name:  "service_analysis",
			Title: "Service Risk Analysis",
			Description: `Offline analysis of scan output: maps each open port to its service, lists known security
issues, recommendations and tools, and scores risk (HIGH/MEDIUM/LOW/SECURE).

Pass the text returned by nmap_scan or nmap_detailed_scan. With "port" only that port is analysed.`,
			InputSchema: objectSchema(map[string]any{
				"scan_output": stringProp("Output of nmap_scan / nmap_detailed_scan"),
				"port":        intProp("Analyse a single port", 1, 65535),
			}),
			Annotations: readOnly("Service Risk Analysis", false),
		},
		false,
		s.handleServiceAnalysis,
	)

	s.addTool(
		&mcp.Tool{
			Name:  "vuln_lookup",
			Title: "CVE Lookup",
			Description: `Look up known CVEs in the NVD database for a product and version.

Either pass product+version, a service banner ("Apache httpd 2.4.49"), or a whole scan output; in the
last case every versioned service found in the text is looked up. At most 5 CVEs per service, highest
CVSS first.`,
			InputSchema: objectSchema(map[string]any{
				"product":      stringProp("Product name, e.g. vsftpd"),
				"version":      stringProp("Product version, e.g. 2.3.4"),
				"service_info": stringProp("Service banner containing product and version"),
				"scan_output":  stringProp("Scan output; all versioned services are looked up"),
			}),
			Annotations: readOnly("CVE Lookup", true),
		},
		false,
		s.handleVulnLookup,
	)
}

type scanArgs struct {
	Target    string   `json:"target"`
	Ports     string   `json:"ports"`
	Options   []string `json:"options"`
	Intensity int      `json:"intensity"`
}

func (s *Server) handleNmapScan(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args scanArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	opts := ports.ScanOptions{Ports: args.Ports, Options: args.Options}
	if args.Ports == "" {
		opts.TopPorts = 100
	}
	return s.runScan(ctx, "nmap_scan", args, opts)
}

func (s *Server) handleNmapDetailedScan(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args scanArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	if args.Intensity < 0 || args.Intensity > 9 {
		return errorResult("intensity must be between 0 and 9"), nil
	}
	opts := ports.ScanOptions{
		Ports:            args.Ports,
		ServiceDetection: true,
		VersionIntensity: args.Intensity,
	}
	if args.Ports == "" {
		opts.TopPorts = 1000
	}
	return s.runScan(ctx, "nmap_detailed_scan", args, opts)
}

func (s *Server) runScan(ctx context.Context, op string, args scanArgs, opts ports.ScanOptions) (*mcp.CallToolResult, error) {
	if r := nonEmpty("target", args.Target); r != nil {
		return r, nil
	}
	if args.Ports != "" && !validator.IsPortSpec(args.Ports) {
		return errorResult(fmt.Sprintf("invalid port specification %q", args.Ports)), nil
	}
	target, bad := scanTarget(args.Target)
	if bad != nil {
		return bad, nil
	}
	if target.Kind == domain.TargetKindURL {
		// se escanea el host de la URL
		if target, bad = scanTarget(target.Host()); bad != nil {
			return bad, nil
		}
	}
	if s.deps.Scanner == nil {
		return failure(op, domain.ErrAdapterMissing), nil
	}

	ctx, cancel := withTimeout(ctx, s.cfg.ScanTimeout)
	defer cancel()

	res, err := s.deps.Scanner.Scan(ctx, target, opts)
	if err != nil && res.Text == "" {
		return failure(op, err), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== PORT SCAN (%s) ===\n", s.deps.Scanner.Name())
	fmt.Fprintf(&sb, "Target: %s\n", target.Value)
	if res.Command != "" {
		fmt.Fprintf(&sb, "Command: %s\n", res.Command)
	}
	sb.WriteString("\n")
	sb.WriteString(res.Text)
	if len(res.OpenPorts) == 0 {
		sb.WriteString("\nNo open ports found.\n")
	}
	if err != nil {
		fmt.Fprintf(&sb, "\nWarning: scan ended early: %v\n", err)
	}
	return textResult(sb.String()), nil
}

type serviceArgs struct {
	ScanOutput string `json:"scan_output"`
	Port       int    `json:"port"`
}

func (s *Server) handleServiceAnalysis(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args serviceArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	if strings.TrimSpace(args.ScanOutput) == "" && args.Port == 0 {
		return errorResult("scan_output or port is required"), nil
	}
	if args.Port < 0 || args.Port > 65535 {
		return errorResult(fmt.Sprintf("invalid port %d", args.Port)), nil
	}

	facts := extract.Extract(domain.StageNetworkScan, args.ScanOutput)
	if args.Port > 0 {
		return textResult(usecases.AnalyzePort(args.Port, facts).Text()), nil
	}
	if len(facts.Ports()) == 0 {
		return textResult("No open ports found in the scan output.\n"), nil
	}
	return textResult(usecases.AnalyzeServices(facts).Text()), nil
}

type vulnArgs struct {
	Product     string `json:"product"`
	Version     string `json:"version"`
	ServiceInfo string `json:"service_info"`
	ScanOutput  string `json:"scan_output"`
}

func (s *Server) handleVulnLookup(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args vulnArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	if s.deps.Vuln == nil {
		return failure("vuln_lookup", domain.ErrAdapterMissing), nil
	}

	var services []vuln.ServiceVersion
	switch {
	case strings.TrimSpace(args.Product) != "":
		services = []vuln.ServiceVersion{{Product: strings.TrimSpace(args.Product), Version: strings.TrimSpace(args.Version)}}
	case strings.TrimSpace(args.ServiceInfo) != "":
		sv, ok := vuln.ExtractServiceVersion(args.ServiceInfo)
		if !ok {
			return errorResult(fmt.Sprintf("no product/version found in %q", args.ServiceInfo)), nil
		}
		services = []vuln.ServiceVersion{sv}
	case strings.TrimSpace(args.ScanOutput) != "":
		services = vuln.ExtractAll(args.ScanOutput)
		if len(services) == 0 {
			return textResult("No versioned services found in the scan output.\n"), nil
		}
	default:
		return errorResult("product, service_info or scan_output is required"), nil
	}

	var sb strings.Builder
	sb.WriteString("=== VULNERABILITY LOOKUP ===\n")
	failed := 0
	for _, sv := range services {
		cves, err := s.deps.Vuln.Lookup(ctx, sv.Product, sv.Version)
		if err != nil {
			if len(services) == 1 {
				return failure("vuln_lookup", err), nil
			}
			failed++
			fmt.Fprintf(&sb, "\n%s %s: lookup failed: %v\n", sv.Product, sv.Version, err)
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(cvesText(sv.Product, sv.Version, cves))
	}
	if failed == len(services) {
		return errorResult(sb.String()), nil
	}
	return textResult(sb.String()), nil
}

func cvesText(product, version string, cves []ports.CVE) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s:\n", product, version)
	if len(cves) == 0 {
		sb.WriteString("  No known CVEs.\n")
		return sb.String()
	}
	for _, c := range cves {
		fmt.Fprintf(&sb, "  %s (CVSS %.1f", c.ID, c.Score)
		if c.Severity != "" {
			fmt.Fprintf(&sb, " %s", c.Severity)
		}
		desc := c.Description
		if len(desc) > 200 {
			desc = desc[:200] + "..."
		}
		fmt.Fprintf(&sb, ") %s\n", desc)
	}
	return sb.String()
}
