package extract

import (
	"errors"
	"testing"

	"reconmcp/internal/core/domain"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/testutil"
)

func TestParseNmapXML(t *testing.T) {
	report, err := ParseNmapXML([]byte(testutil.FixtureNmapXML))
	testutil.AssertNoError(t, err, "parse")
	testutil.AssertLen(t, report.Hosts, 1, "hosts")

	h := report.Hosts[0]
	testutil.AssertEqual(t, h.Address, "8.8.8.8", "address")
	testutil.AssertEqual(t, h.Hostname, "dns.google", "hostname")
	testutil.AssertEqual(t, h.State, "up", "state")
	testutil.AssertLen(t, h.Ports, 3, "all ports kept")
	testutil.AssertEqual(t, h.Ports[0].Number, 25, "sorted by number")
	testutil.AssertFalse(t, h.Ports[0].Open(), "filtered is not open")

	testutil.AssertDeepEqual(t, report.OpenPorts(), []int{53, 443}, "open ports")
}

func TestScanReport_TextRoundTripsThroughExtract(t *testing.T) {
	report, err := ParseNmapXML([]byte(testutil.FixtureNmapXML))
	testutil.AssertNoError(t, err, "parse")

	text := report.Text()
	testutil.AssertContains(t, text, "  443/tcp - open (https gws)", "rendered line")
	testutil.AssertNotContains(t, text, "25/tcp", "filtered port not rendered")

	facts := Extract(domain.StageNetworkScan, text)
	testutil.AssertTrue(t, facts.HasPort(53), "53 extracted")
	testutil.AssertTrue(t, facts.HasPort(443), "443 extracted")
	testutil.AssertFalse(t, facts.HasPort(25), "25 not extracted")

	svc, _ := facts.Service(443)
	testutil.AssertEqual(t, svc.Name, "https", "service name")
	testutil.AssertEqual(t, svc.Version, "gws", "version")
}

func TestParseNmapXML_Invalid(t *testing.T) {
	_, err := ParseNmapXML([]byte("not xml"))
	testutil.AssertError(t, err, "invalid xml")
	testutil.AssertTrue(t, errors.Is(err, perrors.ErrInvalidResponse), "invalid response")
}

func TestScanReport_TextNoHosts(t *testing.T) {
	report, err := ParseNmapXML([]byte(`<nmaprun></nmaprun>`))
	testutil.AssertNoError(t, err, "parse")
	testutil.AssertEqual(t, report.Text(), "No hosts found\n", "no hosts")
	testutil.AssertTrue(t, Extract(domain.StageNetworkScan, report.Text()).IsEmpty(), "no facts")
}
