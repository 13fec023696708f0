// internal/core/domain/target_test.go
package domain

import (
	"errors"
	"net/netip"
	"testing"

	"reconmcp/internal/testutil"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantKind  TargetKind
		wantValue string
		wantErr   error
	}{
		{name: "ipv4", raw: "8.8.8.8", wantKind: TargetKindIP, wantValue: "8.8.8.8"},
		{name: "ipv4 with spaces", raw: "  1.1.1.1 ", wantKind: TargetKindIP, wantValue: "1.1.1.1"},
		{name: "ipv6", raw: "2001:4860:4860::8888", wantKind: TargetKindIP, wantValue: "2001:4860:4860::8888"},
		{name: "network", raw: "8.8.8.7/24", wantKind: TargetKindNetwork, wantValue: "8.8.8.0/24"},
		{name: "domain", raw: "Example.COM.", wantKind: TargetKindDomain, wantValue: "example.com"},
		{name: "subdomain", raw: "api.example.com", wantKind: TargetKindDomain, wantValue: "api.example.com"},
		{name: "url", raw: "https://example.com/login", wantKind: TargetKindURL, wantValue: "https://example.com/login"},
		{name: "url with ip host", raw: "http://8.8.8.8:8080", wantKind: TargetKindURL, wantValue: "http://8.8.8.8:8080"},
		{name: "empty", raw: "   ", wantErr: ErrEmptyTarget},
		{name: "pipe", raw: "example.com|id", wantErr: ErrShellMeta},
		{name: "semicolon", raw: "8.8.8.8; rm -rf /", wantErr: ErrShellMeta},
		{name: "ampersand", raw: "a.com&b", wantErr: ErrShellMeta},
		{name: "dollar", raw: "$(whoami).com", wantErr: ErrShellMeta},
		{name: "backtick", raw: "`id`.com", wantErr: ErrShellMeta},
		{name: "garbage", raw: "not a target", wantErr: ErrInvalidTarget},
		{name: "ftp url", raw: "ftp://example.com", wantErr: ErrInvalidTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := Classify(tt.raw)
			if tt.wantErr != nil {
				testutil.AssertError(t, err, "classify should fail")
				testutil.AssertTrue(t, errors.Is(err, tt.wantErr), "error kind")
				testutil.AssertTrue(t, errors.Is(err, ErrInvalidTarget), "always an InvalidTargetError")

				var ite *InvalidTargetError
				testutil.AssertTrue(t, errors.As(err, &ite), "typed error")
				return
			}
			testutil.AssertNoError(t, err, "classify")
			testutil.AssertEqual(t, target.Kind, tt.wantKind, "kind")
			testutil.AssertEqual(t, target.Value, tt.wantValue, "value")
		})
	}
}

func TestClassify_IPNeverDomain(t *testing.T) {
	target, err := Classify("192.0.2.10")
	testutil.AssertNoError(t, err, "classify")
	testutil.AssertEqual(t, target.Kind, TargetKindIP, "ip literal stays an ip")
}

func TestEnforceDenylist(t *testing.T) {
	tests := []struct {
		raw    string
		denied bool
	}{
		{"8.8.8.8", false},
		{"10.0.0.5", true},
		{"172.16.4.4", true},
		{"172.32.0.1", false},
		{"192.168.1.1", true},
		{"127.0.0.1", true},
		{"169.254.169.254", true},
		{"224.0.0.251", true},
		{"::1", true},
		{"fe80::1", true},
		{"8.8.8.0/24", false},
		{"10.0.0.0/8", true},
		{"8.0.0.0/4", true}, // overlaps 10/8
		{"example.com", false},
		{"https://example.com", false},
		{"http://192.168.0.10/admin", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			target := MustClassify(tt.raw)
			err := EnforceDenylist(target)
			if tt.denied {
				testutil.AssertTrue(t, errors.Is(err, ErrDenylisted), "should be denylisted")
				testutil.AssertTrue(t, errors.Is(err, ErrInvalidTarget), "denylist is an invalid target")
			} else {
				testutil.AssertNoError(t, err, "should be allowed")
			}
		})
	}
}

func TestDenylisted_MappedIPv4(t *testing.T) {
	addr := netip.MustParseAddr("::ffff:10.1.2.3")
	testutil.AssertTrue(t, Denylisted(addr), "v4-mapped private address")
}

func TestClassifyForScan(t *testing.T) {
	_, err := ClassifyForScan("10.0.0.5")
	testutil.AssertTrue(t, errors.Is(err, ErrInvalidTarget), "private ip rejected")

	target, err := ClassifyForScan("8.8.8.8")
	testutil.AssertNoError(t, err, "public ip accepted")
	testutil.AssertEqual(t, target.Kind, TargetKindIP, "kind")
}

func TestTarget_Host(t *testing.T) {
	testutil.AssertEqual(t, MustClassify("https://Example.com:8443/x").Host(), "Example.com", "url host")
	testutil.AssertEqual(t, MustClassify("example.com").Host(), "example.com", "domain host")
	testutil.AssertEqual(t, MustClassify("8.8.8.8").Host(), "8.8.8.8", "ip host")
	testutil.AssertTrue(t, MustClassify("https://example.com").HasScheme(), "url has scheme")
	testutil.AssertFalse(t, MustClassify("example.com").HasScheme(), "domain has no scheme")
}
