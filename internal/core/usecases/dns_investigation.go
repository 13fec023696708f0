// internal/core/usecases/dns_investigation.go
package usecases

import (
	"context"
	"fmt"
	"strings"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
)

// MainRecordTypes son los tipos consultados por la investigación DNS.
var MainRecordTypes = []string{"A", "AAAA", "MX", "NS", "TXT"}

// SupportedRecordTypes son los tipos aceptados por dns_lookup.
var SupportedRecordTypes = []string{"A", "AAAA", "MX", "NS", "TXT", "CNAME", "SOA", "PTR"}

// IsSupportedRecordType valida un tipo de registro (sin distinguir mayúsculas).
func IsSupportedRecordType(t string) bool {
	t = strings.ToUpper(t)
	for _, s := range SupportedRecordTypes {
		if s == t {
			return true
		}
	}
	return false
}

// DNSReport es el resultado de una investigación de dominio.
type DNSReport struct {
	Domain     string
	Records    map[string][]ports.DNSRecord
	Errors     map[string]string
	Subdomains []ports.Subdomain
	Wordlist   int
	Whois      *ports.WhoisRecord
	WhoisError string
}

// DNSInvestigator combina resolver y WHOIS (opcional).
type DNSInvestigator struct {
	resolver ports.DNSResolver
	whois    ports.WhoisClient
	logger   logx.Logger
}

// NewDNSInvestigator crea el investigador. whois puede ser nil.
func NewDNSInvestigator(resolver ports.DNSResolver, whois ports.WhoisClient, logger logx.Logger) *DNSInvestigator {
	if logger == nil {
		logger = logx.New()
	}
	return &DNSInvestigator{
		resolver: resolver,
		whois:    whois,
		logger:   logger.With("component", "dns_investigator"),
	}
}

// Investigate consulta los registros principales, enumera subdominios con
// words y, si hay cliente WHOIS, obtiene el registro. Falla solo si no se
// obtuvo ninguna respuesta en absoluto.
func (d *DNSInvestigator) Investigate(ctx context.Context, name string, words []string) (DNSReport, error) {
	if d.resolver == nil {
		return DNSReport{}, domain.ErrAdapterMissing
	}
	report := DNSReport{
		Domain:   name,
		Records:  make(map[string][]ports.DNSRecord),
		Errors:   make(map[string]string),
		Wordlist: len(words),
	}

	answered := false
	for _, rt := range MainRecordTypes {
		recs, err := d.resolver.Lookup(ctx, name, rt)
		if err != nil {
			report.Errors[rt] = err.Error()
			if ctx.Err() != nil {
				return report, &domain.ProbeTimeoutError{Probe: d.resolver.Name(), Err: ctx.Err()}
			}
			continue
		}
		answered = true
		report.Records[rt] = recs
	}

	if len(words) > 0 {
		subs, err := d.resolver.EnumerateSubdomains(ctx, name, words)
		if err != nil {
			report.Errors["subdomains"] = err.Error()
		} else {
			answered = true
		}
		report.Subdomains = subs
	}

	if d.whois != nil {
		rec, err := d.whois.Lookup(ctx, name)
		if err != nil {
			report.WhoisError = err.Error()
		} else {
			report.Whois = &rec
			answered = true
		}
	}

	d.logger.Info("dns investigation completed",
		"domain", name,
		"record_types", len(report.Records),
		"subdomains", len(report.Subdomains),
		"whois", report.Whois != nil,
	)

	if !answered {
		return report, &domain.ProbeTransportError{
			Probe: d.resolver.Name(),
			Err:   perrors.Wrapf(perrors.ErrServiceUnavailable, "no dns answer for %s", name),
		}
	}
	return report, nil
}

// Text renderiza el reporte DNS.
func (r DNSReport) Text() string {
	var sb strings.Builder
	sb.WriteString("=== COMPREHENSIVE DNS ANALYSIS ===\n")
	fmt.Fprintf(&sb, "Target: %s\n", r.Domain)

	for _, rt := range MainRecordTypes {
		fmt.Fprintf(&sb, "\n--- %s Records ---\n", rt)
		if msg, ok := r.Errors[rt]; ok {
			fmt.Fprintf(&sb, "Error: %s\n", msg)
			continue
		}
		sb.WriteString(RecordsText(r.Records[rt]))
	}

	if r.Wordlist > 0 {
		sb.WriteString("\n--- Subdomain Enumeration ---\n")
		if msg, ok := r.Errors["subdomains"]; ok {
			fmt.Fprintf(&sb, "Error: %s\n", msg)
		}
		sb.WriteString(SubdomainsText(r.Subdomains, r.Wordlist))
	}

	if r.Whois != nil || r.WhoisError != "" {
		sb.WriteString("\n--- WHOIS ---\n")
		if r.Whois != nil {
			sb.WriteString(WhoisText(*r.Whois))
		} else {
			fmt.Fprintf(&sb, "Error: %s\n", r.WhoisError)
		}
	}
	return sb.String()
}

// RecordsText renderiza un conjunto de registros.
func RecordsText(recs []ports.DNSRecord) string {
	if len(recs) == 0 {
		return "No records found\n"
	}
	var sb strings.Builder
	for _, rec := range recs {
		fmt.Fprintf(&sb, "  %s\t%d\t%s\n", rec.Type, rec.TTL, rec.Value)
	}
	return sb.String()
}

// SubdomainsText renderiza el resultado de la enumeración.
func SubdomainsText(subs []ports.Subdomain, tried int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Checked: %d candidates\n", tried)
	if len(subs) == 0 {
		sb.WriteString("No subdomains found\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "Found %d subdomains:\n", len(subs))
	for _, s := range subs {
		fmt.Fprintf(&sb, "  %s -> %s\n", s.Name, strings.Join(s.Addresses, ", "))
	}
	return sb.String()
}

// WhoisText renderiza los campos parseados de WHOIS.
func WhoisText(w ports.WhoisRecord) string {
	var sb strings.Builder
	field := func(name, v string) {
		if v != "" {
			fmt.Fprintf(&sb, "%s: %s\n", name, v)
		}
	}
	field("Domain", w.Domain)
	field("Registrar", w.Registrar)
	field("Registrant", w.Registrant)
	field("Created", w.Created)
	field("Updated", w.Updated)
	field("Expires", w.Expires)
	if len(w.NameServers) > 0 {
		field("Name Servers", strings.Join(w.NameServers, ", "))
	}
	if len(w.Status) > 0 {
		field("Status", strings.Join(w.Status, ", "))
	}
	return sb.String()
}
