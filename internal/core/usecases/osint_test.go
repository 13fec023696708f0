// internal/core/usecases/osint_test.go
package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
	"reconmcp/internal/testutil"
)

var osintNow = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

func TestOSINTCollector_IPTarget(t *testing.T) {
	prober := newMockProber()
	prober.responses["http://8.8.8.8"] = okResponse(map[string]string{"Server": "gws", "X-Frame-Options": "SAMEORIGIN"}, "")
	ipinfo := &mockIPInfo{info: ports.IPInfo{IP: "8.8.8.8", Hostname: "dns.google", Country: "US", Org: "AS15169 Google LLC"}}
	certs := &mockCerts{}
	o := NewOSINTCollector(certs, ipinfo, NewWebAnalyzer(prober, nil, logx.NewSilent()), logx.NewSilent())

	report, err := o.Collect(context.Background(), domain.MustClassify("8.8.8.8"))

	testutil.AssertNoError(t, err, "collect should succeed")
	testutil.AssertDeepEqual(t, ipinfo.looked, []string{"8.8.8.8"}, "ipinfo queried once")
	testutil.AssertEqual(t, certs.endpoint, "", "no tls handshake for bare IPs")
	testutil.AssertNil(t, report.Cert, "no cert section")

	text := report.Text(osintNow)
	testutil.AssertContains(t, text, "--- IP Information ---", "ip section")
	testutil.AssertContains(t, text, "ASN: AS15169 Google LLC", "asn")
	testutil.AssertContains(t, text, "City: Unknown", "missing fields")
	testutil.AssertContains(t, text, "Server: gws", "server banner")
	testutil.AssertContains(t, text, "[+] X-Frame-Options: SAMEORIGIN", "security headers")
	testutil.AssertNotContains(t, text, "TLS Certificate", "cert section omitted")
}

func TestOSINTCollector_DomainTarget(t *testing.T) {
	prober := newMockProber()
	prober.responses["https://example.com"] = okResponse(map[string]string{"Server": "ECS (dcb/7F83)"}, "")
	certs := &mockCerts{cert: ports.CertInfo{
		Subject:   "CN=www.example.org,O=Internet Corporation for Assigned Names and Numbers",
		Issuer:    "CN=DigiCert Global G2 TLS RSA SHA256 2020 CA1,O=DigiCert Inc,C=US",
		DNSNames:  []string{"www.example.org", "example.com"},
		Version:   3,
		NotBefore: osintNow.AddDate(0, -6, 0),
		NotAfter:  osintNow.AddDate(0, 6, 0),
	}}
	ipinfo := &mockIPInfo{}
	o := NewOSINTCollector(certs, ipinfo, NewWebAnalyzer(prober, nil, logx.NewSilent()), logx.NewSilent())

	report, err := o.Collect(context.Background(), domain.MustClassify("example.com"))

	testutil.AssertNoError(t, err, "collect should succeed")
	testutil.AssertEqual(t, certs.endpoint, "example.com:443", "default tls port")
	testutil.AssertLen(t, ipinfo.looked, 0, "no ipinfo for domains")

	text := report.Text(osintNow)
	testutil.AssertContains(t, text, "Issuer: CN=DigiCert Global G2", "issuer")
	testutil.AssertContains(t, text, "DNS Names: www.example.org, example.com", "sans")
	testutil.AssertContains(t, text, "Server: ECS (dcb/7F83)", "server")
	testutil.AssertNotContains(t, text, "[!]", "valid certificate")
}

func TestOSINTCollector_URLPinsTLSPort(t *testing.T) {
	certs := &mockCerts{err: errors.New("handshake failure")}
	prober := newMockProber()
	prober.responses["https://example.com:8443/app"] = okResponse(nil, "")
	o := NewOSINTCollector(certs, nil, NewWebAnalyzer(prober, nil, logx.NewSilent()), logx.NewSilent())

	report, err := o.Collect(context.Background(), domain.MustClassify("https://example.com:8443/app"))

	testutil.AssertNoError(t, err, "web alone is an answer")
	testutil.AssertEqual(t, certs.endpoint, "example.com:8443", "url port")
	text := report.Text(osintNow)
	testutil.AssertContains(t, text, "Error: handshake failure", "tls error rendered")
	testutil.AssertContains(t, text, "Server: Unknown", "no server header")
}

func TestOSINTCollector_NothingAnswered(t *testing.T) {
	o := NewOSINTCollector(nil, &mockIPInfo{err: perrors.ErrRateLimit}, NewWebAnalyzer(newMockProber(), nil, logx.NewSilent()), logx.NewSilent())

	report, err := o.Collect(context.Background(), domain.MustClassify("8.8.8.8"))

	testutil.AssertErrorIs(t, err, domain.ErrProbeTransport, "transport error")
	testutil.AssertContains(t, report.Errors["ipinfo"], "rate limit", "ipinfo error kept")
	testutil.AssertTrue(t, report.Errors["web"] != "", "web error kept")
}

func TestOSINTCollector_Rejects(t *testing.T) {
	o := NewOSINTCollector(nil, &mockIPInfo{}, nil, logx.NewSilent())
	_, err := o.Collect(context.Background(), domain.MustClassify("8.8.8.0/24"))
	testutil.AssertTrue(t, perrors.IsInvalidInput(err), "network rejected")

	_, err = NewOSINTCollector(nil, nil, nil, logx.NewSilent()).Collect(context.Background(), domain.MustClassify("8.8.8.8"))
	testutil.AssertErrorIs(t, err, domain.ErrAdapterMissing, "nothing configured")
}

func TestCertText_Flags(t *testing.T) {
	base := ports.CertInfo{Subject: "CN=a", Issuer: "CN=ca", NotBefore: osintNow.AddDate(-1, 0, 0), NotAfter: osintNow.AddDate(1, 0, 0)}

	expired := base
	expired.NotAfter = osintNow.AddDate(0, 0, -1)
	testutil.AssertContains(t, CertText(expired, osintNow), "Certificate expired", "expired")

	early := base
	early.NotBefore = osintNow.AddDate(0, 0, 1)
	testutil.AssertContains(t, CertText(early, osintNow), "not yet valid", "not yet valid")

	self := base
	self.Issuer = self.Subject
	testutil.AssertContains(t, CertText(self, osintNow), "Self-signed", "self-signed")

	testutil.AssertNotContains(t, CertText(base, osintNow), "[!]", "clean cert")
}
