package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/usecases"
)

func (s *Server) registerDNSTools() {
	domainSchema := objectSchema(map[string]any{
		"domain": stringProp("Domain name, e.g. example.com"),
	}, "domain")

	s.addTool(
		&mcp.Tool{
			Name:  "dns_lookup",
			Title: "DNS Lookup",
			Description: `Resolve one record type for a domain against the configured resolver.
Supported types: A, AAAA, MX, NS, TXT, CNAME, SOA, PTR.`,
			InputSchema: objectSchema(map[string]any{
				"domain":      stringProp("Domain name"),
				"record_type": enumProp("Record type (default A)", usecases.SupportedRecordTypes...),
			}, "domain"),
			Annotations: readOnly("DNS Lookup", true),
		},
		false,
		s.handleDNSLookup,
	)

	s.addTool(
		&mcp.Tool{
			Name:        "dns_reverse_lookup",
			Title:       "Reverse DNS",
			Description: `PTR lookup of an IP address.`,
			InputSchema: objectSchema(map[string]any{
				"ip": stringProp("IPv4 or IPv6 address"),
			}, "ip"),
			Annotations: readOnly("Reverse DNS", true),
		},
		false,
		s.handleDNSReverse,
	)

	s.addTool(
		&mcp.Tool{
			Name:  "dns_subdomain_enum",
			Title: "Subdomain Enumeration",
			Description: `Brute-force subdomains with A lookups from a wordlist (bounded concurrency).
Returns the names that resolved with their addresses, sorted.`,
			InputSchema: objectSchema(map[string]any{
				"domain":   stringProp("Domain name"),
				"wordlist": enumProp("Wordlist name (default common)", "common"),
			}, "domain"),
			Annotations: readOnly("Subdomain Enumeration", true),
		},
		true,
		s.handleSubdomainEnum,
	)

	s.addTool(
		&mcp.Tool{
			Name:        "dns_comprehensive",
			Title:       "DNS Investigation",
			Description: `A, AAAA, MX, NS and TXT records, subdomain enumeration with the common wordlist, and WHOIS.`,
			InputSchema: domainSchema,
			Annotations: readOnly("DNS Investigation", true),
		},
		true,
		s.handleDNSComprehensive,
	)

	s.addTool(
		&mcp.Tool{
			Name:        "whois_lookup",
			Title:       "WHOIS",
			Description: `Registrar, dates, name servers and status of a domain. Subdomains are looked up by their registrable root.`,
			InputSchema: domainSchema,
			Annotations: readOnly("WHOIS", true),
		},
		false,
		s.handleWhois,
	)
}

type dnsArgs struct {
	Domain     string `json:"domain"`
	IP         string `json:"ip"`
	RecordType string `json:"record_type"`
	Wordlist   string `json:"wordlist"`
}

// domainTarget valida que raw sea un dominio escaneable.
func domainTarget(raw string) (string, *mcp.CallToolResult) {
	if r := nonEmpty("domain", raw); r != nil {
		return "", r
	}
	t, bad := scanTarget(raw)
	if bad != nil {
		return "", bad
	}
	if t.Kind != domain.TargetKindDomain {
		return "", errorResult(fmt.Sprintf("%q is not a domain name", raw))
	}
	return t.Value, nil
}

func (s *Server) handleDNSLookup(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args dnsArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	name, bad := domainTarget(args.Domain)
	if bad != nil {
		return bad, nil
	}
	rt := strings.ToUpper(strings.TrimSpace(args.RecordType))
	if rt == "" {
		rt = "A"
	}
	if !usecases.IsSupportedRecordType(rt) {
		return errorResult(fmt.Sprintf("unsupported record type %q (valid: %s)", rt, strings.Join(usecases.SupportedRecordTypes, ", "))), nil
	}
	if s.deps.Resolver == nil {
		return failure("dns_lookup", domain.ErrAdapterMissing), nil
	}

	ctx, cancel := withTimeout(ctx, s.cfg.DNSTimeout)
	defer cancel()

	recs, err := s.deps.Resolver.Lookup(ctx, name, rt)
	if err != nil {
		return failure("dns_lookup", err), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== DNS LOOKUP: %s %s ===\n", name, rt)
	sb.WriteString(usecases.RecordsText(recs))
	return textResult(sb.String()), nil
}

func (s *Server) handleDNSReverse(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args dnsArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	if r := nonEmpty("ip", args.IP); r != nil {
		return r, nil
	}
	t, bad := scanTarget(args.IP)
	if bad != nil {
		return bad, nil
	}
	if t.Kind != domain.TargetKindIP {
		return errorResult(fmt.Sprintf("%q is not an IP address", args.IP)), nil
	}
	if s.deps.Resolver == nil {
		return failure("dns_reverse_lookup", domain.ErrAdapterMissing), nil
	}

	ctx, cancel := withTimeout(ctx, s.cfg.DNSTimeout)
	defer cancel()

	names, err := s.deps.Resolver.Reverse(ctx, t.Value)
	if err != nil {
		return failure("dns_reverse_lookup", err), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== REVERSE DNS: %s ===\n", t.Value)
	if len(names) == 0 {
		sb.WriteString("No PTR records.\n")
	}
	for _, n := range names {
		sb.WriteString("  " + n + "\n")
	}
	return textResult(sb.String()), nil
}

func (s *Server) handleSubdomainEnum(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args dnsArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	name, bad := domainTarget(args.Domain)
	if bad != nil {
		return bad, nil
	}
	words, err := usecases.DNSWordlist(args.Wordlist)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if s.deps.Resolver == nil {
		return failure("dns_subdomain_enum", domain.ErrAdapterMissing), nil
	}

	ctx, cancel := withTimeout(ctx, s.cfg.DNSTimeout)
	defer cancel()

	subs, err := s.deps.Resolver.EnumerateSubdomains(ctx, name, words)
	if err != nil && len(subs) == 0 {
		return failure("dns_subdomain_enum", err), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== SUBDOMAIN ENUMERATION: %s ===\n", name)
	sb.WriteString(usecases.SubdomainsText(subs, len(words)))
	return textResult(sb.String()), nil
}

func (s *Server) handleDNSComprehensive(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args dnsArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	name, bad := domainTarget(args.Domain)
	if bad != nil {
		return bad, nil
	}
	if s.deps.DNS == nil {
		return failure("dns_comprehensive", domain.ErrAdapterMissing), nil
	}

	ctx, cancel := withTimeout(ctx, s.cfg.DNSTimeout)
	defer cancel()

	report, err := s.deps.DNS.Investigate(ctx, name, usecases.CommonSubdomains)
	if err != nil {
		return failure("dns_comprehensive", err), nil
	}
	return textResult(report.Text()), nil
}

func (s *Server) handleWhois(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args dnsArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(err.Error()), nil
	}
	name, bad := domainTarget(args.Domain)
	if bad != nil {
		return bad, nil
	}
	if s.deps.Whois == nil {
		return failure("whois_lookup", domain.ErrAdapterMissing), nil
	}

	ctx, cancel := withTimeout(ctx, s.cfg.DNSTimeout)
	defer cancel()

	rec, err := s.deps.Whois.Lookup(ctx, name)
	if err != nil {
		return failure("whois_lookup", err), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== WHOIS: %s ===\n", rec.Domain)
	sb.WriteString(usecases.WhoisText(rec))
	return textResult(sb.String()), nil
}
