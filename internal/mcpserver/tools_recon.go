package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/usecases"
	"reconmcp/internal/platform/toolcheck"
)

func (s *Server) registerReconTools() {
	targetProps := map[string]any{
		"target":  stringProp("IP, CIDR network, domain or URL"),
		"profile": enumProp("Port profile for the network scan", domain.PortProfileNames()...),
	}

	s.addTool(
		&mcp.Tool{
			Name:  "quick_recon",
			Title: "Quick Recon",
			Description: `Fast reconnaissance pipeline: top-100 port scan, service analysis, DNS records for domains
and a basic web analysis when an HTTP port is open or the target is a URL. Stages that earlier results
do not justify are skipped. Returns the report as markdown.`,
			InputSchema: objectSchema(targetProps, "target"),
			Annotations: readOnly("Quick Recon", true),
		},
		true,
		s.handleQuickRecon,
	)

	s.addTool(
		&mcp.Tool{
			Name:  "comprehensive_recon",
			Title: "Comprehensive Recon",
			Description: `Full reconnaissance pipeline: top-1000 port scan with version detection, service risk
analysis with CVE lookup, DNS records, subdomains and WHOIS for domains, and web analysis with a
directory scan. Can take several minutes. Returns the report as markdown.`,
			InputSchema: objectSchema(targetProps, "target"),
			Annotations: readOnly("Comprehensive Recon", true),
		},
		true,
		s.handleComprehensiveRecon,
	)

	s.addTool(
		&mcp.Tool{
			Name:  "comprehensive_recon_with_report",
			Title: "Comprehensive Recon With Report",
			Description: `Same pipeline as comprehensive_recon, written to disk as report.md plus summary.json in
a per-session directory, with screenshots of every web service found. Returns the report path.`,
			InputSchema: objectSchema(map[string]any{
				"target":      targetProps["target"],
				"profile":     targetProps["profile"],
				"screenshots": boolProp("Capture web screenshots (default true)"),
			}, "target"),
			Annotations: &mcp.ToolAnnotations{
				Title:         "Comprehensive Recon With Report",
				OpenWorldHint: boolPtr(true),
			},
		},
		true,
		s.handleReconWithReport,
	)

	s.addTool(
		&mcp.Tool{
			Name:        "scanner_status",
			Title:       "Scanner Status",
			Description: `Show which adapters are configured, which external binaries (nmap, hydra, chromium) are installed, and the tool catalog.`,
			InputSchema: objectSchema(map[string]any{}),
			Annotations: readOnly("Scanner Status", false),
		},
		false,
		s.handleScannerStatus,
	)

	s.addTool(
		&mcp.Tool{
			Name:        "show_wordlists",
			Title:       "Show Wordlists",
			Description: `List the built-in wordlists for subdomain enumeration and directory scanning.`,
			InputSchema: objectSchema(map[string]any{}),
			Annotations: readOnly("Show Wordlists", false),
		},
		false,
		s.handleShowWordlists,
	)
}

type reconArgs struct {
	Target      string `json:"target"`
	Profile     string `json:"profile"`
	Screenshots *bool  `json:"screenshots"`
}

func (s *Server) runRecon(ctx context.Context, req *mcp.CallToolRequest, op string, opts func(reconArgs) usecases.RunOptions) (*mcp.CallToolResult, error) {
	var args reconArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	if r := nonEmpty("target", args.Target); r != nil {
		return r, nil
	}
	if s.deps.Recon == nil {
		return failure(op, domain.ErrAdapterMissing), nil
	}
	ro := opts(args)
	if args.Profile != "" {
		if _, ok := domain.LookupPortProfile(args.Profile); !ok {
			return errorResult(fmt.Sprintf("unknown profile %q (valid: %s)", args.Profile, strings.Join(domain.PortProfileNames(), ", "))), nil
		}
		ro.Profile = args.Profile
	}

	session, err := s.deps.Recon.RunWith(ctx, args.Target, ro)
	if err != nil {
		if session != nil && session.Aborted() {
			return errorResult("invalid target: " + err.Error()), nil
		}
		return failure(op, err), nil
	}
	return textResult(sessionText(session)), nil
}

func (s *Server) handleQuickRecon(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.runRecon(ctx, req, "quick_recon", func(reconArgs) usecases.RunOptions {
		return usecases.RunOptions{Profile: "top100", ScanTimeout: s.cfg.QuickTimeout}
	})
}

func (s *Server) handleComprehensiveRecon(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.runRecon(ctx, req, "comprehensive_recon", func(reconArgs) usecases.RunOptions {
		return usecases.RunOptions{Profile: "top1000", Deep: true}
	})
}

func (s *Server) handleReconWithReport(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.runRecon(ctx, req, "comprehensive_recon_with_report", func(a reconArgs) usecases.RunOptions {
		shots := a.Screenshots == nil || *a.Screenshots
		return usecases.RunOptions{Profile: "top1000", Deep: true, Screenshot: shots, Persist: true}
	})
}

// sessionText antepone el resumen de stages al resultado de REPORT_EMIT.
func sessionText(session *domain.ReconSession) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== RECON SESSION %s ===\n", session.ID)
	fmt.Fprintf(&sb, "Target: %s (%s)\n\n", session.Target.Value, session.Target.Kind)
	for _, r := range session.Results() {
		fmt.Fprintf(&sb, "  %-18s %-22s %6dms", r.Stage, r.Status, r.Duration.Milliseconds())
		if r.Err != nil {
			fmt.Fprintf(&sb, "  %s", r.ErrorDetail())
		}
		sb.WriteString("\n")
	}
	if session.ReportPath != "" {
		fmt.Fprintf(&sb, "\nReport: %s\n", session.ReportPath)
	}
	if report, ok := session.Result(domain.StageReportEmit); ok {
		sb.WriteString("\n")
		sb.WriteString(report.RawText)
	}
	return sb.String()
}

func (s *Server) handleScannerStatus(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	sb.WriteString("=== RECON SCANNER STATUS ===\n\n")

	sb.WriteString("Adapters:\n")
	adapter := func(name string, configured bool, variant string) {
		state := "not configured"
		if configured {
			state = "ready"
			if variant != "" {
				state += " (" + variant + ")"
			}
		}
		fmt.Fprintf(&sb, "  %-14s %s\n", name, state)
	}
	scanner := ""
	if s.deps.Scanner != nil {
		scanner = s.deps.Scanner.Name()
	}
	adapter("Port scanner", s.deps.Scanner != nil, scanner)
	adapter("Web analyzer", s.deps.Web != nil, "")
	adapter("DNS resolver", s.deps.Resolver != nil, "")
	adapter("WHOIS", s.deps.Whois != nil, "")
	cveDetail := ""
	if cs, ok := s.deps.Vuln.(interface{ CircuitState() string }); ok {
		cveDetail = "circuit " + cs.CircuitState()
	}
	adapter("CVE lookup", s.deps.Vuln != nil, cveDetail)
	adapter("OSINT", s.deps.OSINT != nil, "")
	adapter("FTP", s.deps.FTP != nil, "")
	adapter("SSH", s.deps.SSH != nil, "")
	crackers := make([]string, 0, len(s.deps.BruteForcers))
	for _, n := range []string{"ssh", "ftp", "hydra"} {
		if _, ok := s.deps.BruteForcers[n]; ok {
			crackers = append(crackers, n)
		}
	}
	adapter("Brute force", len(crackers) > 0, strings.Join(crackers, ", "))
	adapter("Recon pipeline", s.deps.Recon != nil, "")

	if s.deps.Tools != nil {
		sb.WriteString("\nExternal tools:\n")
		for _, r := range s.deps.Tools.Check(ctx) {
			sb.WriteString(toolStatusLine(r))
		}
	}

	if s.throttle != nil {
		fmt.Fprintf(&sb, "\nScan throttle: %d calls per %s (%d of %d available)\n",
			s.cfg.ThrottleCalls, s.cfg.ThrottleWindow, s.throttle.Available(), s.throttle.Burst())
	}

	sb.WriteString("\nTools:\n")
	for _, name := range s.ToolNames() {
		sb.WriteString("  " + name + "\n")
	}
	return textResult(sb.String()), nil
}

func toolStatusLine(r toolcheck.Result) string {
	line := fmt.Sprintf("  %-10s %-9s", r.Name, r.Status)
	if r.Version != "" {
		line += " " + r.Version
	}
	if r.Path != "" {
		line += " (" + r.Path + ")"
	}
	if r.Message != "" && !r.OK() {
		line += ": " + r.Message
	}
	return line + "\n"
}

func (s *Server) handleShowWordlists(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return textResult(usecases.WordlistsText()), nil
}
