// internal/core/usecases/osint.go
package usecases

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
)

// OSINTReport junta la información pasiva de un objetivo: certificado TLS,
// geolocalización de la IP y la huella del servidor web.
type OSINTReport struct {
	Target string
	Kind   domain.TargetKind

	Cert   *ports.CertInfo
	IPInfo *ports.IPInfo
	Web    *WebReport

	// Errors por sección ("tls", "ipinfo", "web")
	Errors map[string]string
}

// OSINTCollector combina el fetcher de certificados, el cliente de IP info
// y el analizador web. Cualquiera puede ser nil y su sección se omite.
type OSINTCollector struct {
	certs  ports.CertFetcher
	ipinfo ports.IPInfoLookup
	web    *WebAnalyzer
	logger logx.Logger
}

// NewOSINTCollector crea el colector.
func NewOSINTCollector(certs ports.CertFetcher, ipinfo ports.IPInfoLookup, web *WebAnalyzer, logger logx.Logger) *OSINTCollector {
	if logger == nil {
		logger = logx.New()
	}
	return &OSINTCollector{
		certs:  certs,
		ipinfo: ipinfo,
		web:    web,
		logger: logger.With("component", "osint"),
	}
}

// Collect recoge lo que aplique a target: IP info para IPs, certificado
// para dominios y URLs, y huella web para todos. target ya debe haber
// pasado el denylist. Falla solo si ninguna sección respondió.
func (o *OSINTCollector) Collect(ctx context.Context, target domain.Target) (OSINTReport, error) {
	if target.Kind == domain.TargetKindNetwork {
		return OSINTReport{}, perrors.Wrap(perrors.ErrInvalidInput, "osint needs a single host, not a network")
	}
	if o.certs == nil && o.ipinfo == nil && o.web == nil {
		return OSINTReport{}, domain.ErrAdapterMissing
	}
	report := OSINTReport{Target: target.Value, Kind: target.Kind, Errors: make(map[string]string)}

	if target.Kind == domain.TargetKindIP && o.ipinfo != nil {
		info, err := o.ipinfo.Lookup(ctx, target.Value)
		if err != nil {
			report.Errors["ipinfo"] = err.Error()
		} else {
			report.IPInfo = &info
		}
	}

	if target.Kind != domain.TargetKindIP && o.certs != nil {
		host, port := tlsEndpoint(target)
		cert, err := o.certs.Certificate(ctx, host, port)
		if err != nil {
			report.Errors["tls"] = err.Error()
		} else {
			report.Cert = &cert
		}
	}

	if o.web != nil {
		web, err := o.web.Analyze(ctx, Candidates(target, domain.StructuredFacts{}), WebOptions{})
		if err != nil {
			report.Errors["web"] = err.Error()
		} else {
			report.Web = &web
		}
	}

	o.logger.Info("osint collection completed",
		"target", target.Value,
		"cert", report.Cert != nil,
		"ipinfo", report.IPInfo != nil,
		"web", report.Web != nil,
		"errors", len(report.Errors),
	)

	if report.Cert == nil && report.IPInfo == nil && report.Web == nil {
		if err := ctx.Err(); err != nil {
			return report, &domain.ProbeTimeoutError{Probe: "osint", Err: err}
		}
		return report, &domain.ProbeTransportError{
			Probe: "osint",
			Err:   perrors.Wrapf(perrors.ErrServiceUnavailable, "no osint source answered for %s", target.Value),
		}
	}
	return report, nil
}

// tlsEndpoint: 443 salvo que una URL https fije otro puerto.
func tlsEndpoint(target domain.Target) (string, int) {
	host := target.Host()
	if target.Kind != domain.TargetKindURL {
		return host, 443
	}
	u, err := url.Parse(target.Value)
	if err != nil || u.Scheme != "https" || u.Port() == "" {
		return host, 443
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return host, 443
	}
	return host, port
}

// Text renderiza el reporte. now marca los certificados caducados.
func (r OSINTReport) Text(now time.Time) string {
	var sb strings.Builder
	sb.WriteString("=== OSINT SCAN ===\n")
	fmt.Fprintf(&sb, "Target: %s (%s)\n", r.Target, r.Kind)

	if r.Kind == domain.TargetKindIP {
		sb.WriteString("\n--- IP Information ---\n")
		switch {
		case r.IPInfo != nil:
			sb.WriteString(IPInfoText(*r.IPInfo))
		case r.Errors["ipinfo"] != "":
			fmt.Fprintf(&sb, "Error: %s\n", r.Errors["ipinfo"])
		default:
			sb.WriteString("Not checked\n")
		}
	} else {
		sb.WriteString("\n--- TLS Certificate ---\n")
		switch {
		case r.Cert != nil:
			sb.WriteString(CertText(*r.Cert, now))
		case r.Errors["tls"] != "":
			fmt.Fprintf(&sb, "Error: %s\n", r.Errors["tls"])
		default:
			sb.WriteString("Not checked\n")
		}
	}

	sb.WriteString("\n--- Server ---\n")
	switch {
	case r.Web != nil:
		server := r.Web.Response.Headers.Get("Server")
		if server == "" {
			server = "Unknown"
		}
		fmt.Fprintf(&sb, "URL: %s\nServer: %s\n", r.Web.URL, server)
		sb.WriteString("\n--- Technologies ---\n")
		sb.WriteString(r.Web.TechnologiesText())
		sb.WriteString("\n--- Security Headers ---\n")
		sb.WriteString(r.Web.SecurityHeadersText())
	case r.Errors["web"] != "":
		fmt.Fprintf(&sb, "Error: %s\n", r.Errors["web"])
	default:
		sb.WriteString("Not checked\n")
	}
	return sb.String()
}

// IPInfoText renderiza geolocalización y ASN.
func IPInfoText(info ports.IPInfo) string {
	var sb strings.Builder
	field := func(name, v string) {
		if v == "" {
			v = "Unknown"
		}
		fmt.Fprintf(&sb, "%s: %s\n", name, v)
	}
	field("IP", info.IP)
	field("Hostname", info.Hostname)
	field("City", info.City)
	field("Region", info.Region)
	field("Country", info.Country)
	field("Location", info.Loc)
	field("ASN", info.Org)
	return sb.String()
}

// CertText renderiza el certificado hoja.
func CertText(c ports.CertInfo, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Subject: %s\n", c.Subject)
	fmt.Fprintf(&sb, "Issuer: %s\n", c.Issuer)
	fmt.Fprintf(&sb, "Version: %d\n", c.Version)
	fmt.Fprintf(&sb, "Not Before: %s\n", c.NotBefore.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Not After: %s\n", c.NotAfter.UTC().Format(time.RFC3339))
	if len(c.DNSNames) > 0 {
		fmt.Fprintf(&sb, "DNS Names: %s\n", strings.Join(c.DNSNames, ", "))
	}
	if c.TLSVersion != "" {
		fmt.Fprintf(&sb, "Protocol: %s\n", c.TLSVersion)
	}
	switch {
	case now.After(c.NotAfter):
		sb.WriteString("[!] Certificate expired\n")
	case now.Before(c.NotBefore):
		sb.WriteString("[!] Certificate not yet valid\n")
	case c.Subject == c.Issuer:
		sb.WriteString("[!] Self-signed certificate\n")
	}
	return sb.String()
}
