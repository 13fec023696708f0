package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/usecases"
)

func (s *Server) registerWebTools() {
	urlSchema := objectSchema(map[string]any{
		"url": stringProp("URL, domain or IP. Schemeless hosts try https first, then http"),
	}, "url")

	s.addTool(
		&mcp.Tool{
			Name:  "web_comprehensive_scan",
			Title: "Web Comprehensive Scan",
			Description: `Full web analysis of one site: basic info, technology detection, security header audit,
robots.txt and, with "deep", a directory/file scan using the selected wordlist.`,
			InputSchema: objectSchema(map[string]any{
				"url":      stringProp("URL, domain or IP"),
				"deep":     boolProp("Also run the directory scan"),
				"wordlist": enumProp("Wordlist for the directory scan", "common", "dirs", "files"),
			}, "url"),
			Annotations: readOnly("Web Comprehensive Scan", true),
		},
		true,
		s.handleWebComprehensive,
	)

	s.addTool(
		&mcp.Tool{
			Name:        "web_tech_detection",
			Title:       "Web Technology Detection",
			Description: `Fingerprint the server, frameworks, CMS and JavaScript libraries of a site from its headers and body.`,
			InputSchema: urlSchema,
			Annotations: readOnly("Web Technology Detection", true),
		},
		false,
		s.handleWebTech,
	)

	s.addTool(
		&mcp.Tool{
			Name:  "web_security_headers",
			Title: "Security Header Audit",
			Description: `Check X-Frame-Options, X-Content-Type-Options, X-XSS-Protection, Strict-Transport-Security,
Content-Security-Policy, Referrer-Policy, Permissions-Policy and Cross-Origin-Embedder-Policy.`,
			InputSchema: urlSchema,
			Annotations: readOnly("Security Header Audit", true),
		},
		false,
		s.handleWebHeaders,
	)

	s.addTool(
		&mcp.Tool{
			Name:  "web_directory_scan",
			Title: "Directory Scan",
			Description: `Probe common directories and files (HEAD requests, bounded concurrency). Reports paths
answering 200, 301, 302, 401 or 403. Use show_wordlists to see the lists.`,
			InputSchema: objectSchema(map[string]any{
				"url":      stringProp("URL, domain or IP"),
				"wordlist": enumProp("Wordlist name (default common)", "common", "dirs", "files"),
			}, "url"),
			Annotations: readOnly("Directory Scan", true),
		},
		true,
		s.handleWebDirectories,
	)

	s.addTool(
		&mcp.Tool{
			Name:        "web_screenshot",
			Title:       "Web Screenshot",
			Description: `Full-page PNG screenshot of a site with headless Chrome. Requires chromium on the server.`,
			InputSchema: urlSchema,
			Annotations: readOnly("Web Screenshot", true),
		},
		false,
		s.handleWebScreenshot,
	)

	s.addTool(
		&mcp.Tool{
			Name:  "osint_scan",
			Title: "OSINT Scan",
			Description: `Passive profile of one host. For an IP: geolocation, hostname and ASN from ipinfo.io.
For a domain or URL: the TLS certificate (subject, issuer, validity, SANs). For both: the Server banner,
detected technologies and the security header audit.`,
			InputSchema: objectSchema(map[string]any{
				"target": stringProp("IP address, domain or URL"),
			}, "target"),
			Annotations: readOnly("OSINT Scan", true),
		},
		true,
		s.handleOSINT,
	)
}

type webArgs struct {
	URL      string `json:"url"`
	Deep     bool   `json:"deep"`
	Wordlist string `json:"wordlist"`
}

// webCandidates valida la entrada y devuelve las URLs a probar.
func (s *Server) webCandidates(req *mcp.CallToolRequest, args *webArgs) ([]string, *mcp.CallToolResult) {
	if err := parseArgs(req, args); err != nil {
		return nil, errorResult(err.Error())
	}
	if r := nonEmpty("url", args.URL); r != nil {
		return nil, r
	}
	target, bad := scanTarget(args.URL)
	if bad != nil {
		return nil, bad
	}
	if target.Kind == domain.TargetKindNetwork {
		return nil, errorResult("web tools need a single host or URL, not a network")
	}
	if s.deps.Web == nil {
		return nil, failure("web analysis", domain.ErrAdapterMissing)
	}
	return usecases.Candidates(target, domain.StructuredFacts{}), nil
}

func (s *Server) analyze(ctx context.Context, req *mcp.CallToolRequest, opts func(*webArgs) (usecases.WebOptions, error)) (usecases.WebReport, *mcp.CallToolResult) {
	var args webArgs
	candidates, bad := s.webCandidates(req, &args)
	if bad != nil {
		return usecases.WebReport{}, bad
	}
	var wo usecases.WebOptions
	if opts != nil {
		var err error
		if wo, err = opts(&args); err != nil {
			return usecases.WebReport{}, errorResult(err.Error())
		}
	}

	ctx, cancel := withTimeout(ctx, s.cfg.WebTimeout)
	defer cancel()

	report, err := s.deps.Web.Analyze(ctx, candidates, wo)
	if err != nil {
		return usecases.WebReport{}, failure("web analysis", err)
	}
	return report, nil
}

func (s *Server) handleWebComprehensive(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, bad := s.analyze(ctx, req, func(a *webArgs) (usecases.WebOptions, error) {
		if !a.Deep {
			return usecases.WebOptions{}, nil
		}
		name := a.Wordlist
		if name == "" {
			name = "common"
		}
		paths, err := usecases.WebWordlist(name)
		if err != nil {
			return usecases.WebOptions{}, err
		}
		return usecases.WebOptions{Paths: paths, WordlistName: name}, nil
	})
	if bad != nil {
		return bad, nil
	}
	return textResult(report.Text()), nil
}

func (s *Server) handleWebTech(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, bad := s.analyze(ctx, req, nil)
	if bad != nil {
		return bad, nil
	}
	var sb strings.Builder
	sb.WriteString("=== TECHNOLOGY DETECTION ===\n")
	fmt.Fprintf(&sb, "Target: %s\n\n", report.URL)
	sb.WriteString(report.TechnologiesText())
	return textResult(sb.String()), nil
}

func (s *Server) handleWebHeaders(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, bad := s.analyze(ctx, req, nil)
	if bad != nil {
		return bad, nil
	}
	var sb strings.Builder
	sb.WriteString("=== SECURITY HEADERS ===\n")
	fmt.Fprintf(&sb, "Target: %s\n\n", report.URL)
	sb.WriteString(report.SecurityHeadersText())
	return textResult(sb.String()), nil
}

func (s *Server) handleWebDirectories(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args webArgs
	candidates, bad := s.webCandidates(req, &args)
	if bad != nil {
		return bad, nil
	}
	if args.Wordlist == "" {
		args.Wordlist = "common"
	}
	paths, err := usecases.WebWordlist(args.Wordlist)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	ctx, cancel := withTimeout(ctx, s.cfg.WebTimeout)
	defer cancel()

	base, hits, err := s.deps.Web.ScanPaths(ctx, candidates, paths)
	if err != nil && base == "" {
		return failure("web_directory_scan", err), nil
	}

	var sb strings.Builder
	sb.WriteString("=== DIRECTORY SCAN ===\n")
	fmt.Fprintf(&sb, "Target: %s\nWordlist: %s (%d entries)\n\n", base, args.Wordlist, len(paths))
	sb.WriteString(usecases.PathsText(hits))
	if err != nil {
		fmt.Fprintf(&sb, "\nWarning: scan incomplete: %v\n", err)
	}
	return textResult(sb.String()), nil
}

func (s *Server) handleWebScreenshot(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args webArgs
	candidates, bad := s.webCandidates(req, &args)
	if bad != nil {
		return bad, nil
	}

	ctx, cancel := withTimeout(ctx, s.cfg.WebTimeout)
	defer cancel()

	png, url, err := s.deps.Web.Screenshot(ctx, candidates)
	if err != nil {
		return failure("web_screenshot", err), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Screenshot of %s (%d bytes)", url, len(png))},
			&mcp.ImageContent{Data: png, MIMEType: "image/png"},
		},
	}, nil
}

func (s *Server) handleOSINT(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Target string `json:"target"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	if r := nonEmpty("target", args.Target); r != nil {
		return r, nil
	}
	target, bad := scanTarget(args.Target)
	if bad != nil {
		return bad, nil
	}
	if target.Kind == domain.TargetKindNetwork {
		return errorResult("osint_scan needs a single host or URL, not a network"), nil
	}
	if s.deps.OSINT == nil {
		return failure("osint_scan", domain.ErrAdapterMissing), nil
	}

	ctx, cancel := withTimeout(ctx, s.cfg.WebTimeout)
	defer cancel()

	report, err := s.deps.OSINT.Collect(ctx, target)
	if err != nil {
		return failure("osint_scan", err), nil
	}
	return textResult(report.Text(time.Now())), nil
}
