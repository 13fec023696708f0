// internal/core/domain/target.go
package domain

import (
	"net/netip"
	"net/url"
	"strings"

	"reconmcp/internal/platform/validator"
)

// Target es un objetivo ya clasificado. Se construye solo con Classify.
type Target struct {
	// Raw es la entrada original sin recortar
	Raw string

	// Value es la forma normalizada (IP canónica, dominio en minúsculas, URL)
	Value string

	Kind TargetKind
}

// Classify valida y clasifica una entrada cruda.
// Orden: IP literal, red CIDR, dominio, URL. La primera coincidencia gana.
func Classify(raw string) (Target, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Target{}, invalidTarget(raw, ErrEmptyTarget)
	}
	if validator.HasShellMeta(s) {
		return Target{}, invalidTarget(raw, ErrShellMeta)
	}

	if addr, err := netip.ParseAddr(s); err == nil {
		return Target{Raw: raw, Value: addr.String(), Kind: TargetKindIP}, nil
	}
	if prefix, err := netip.ParsePrefix(s); err == nil {
		return Target{Raw: raw, Value: prefix.Masked().String(), Kind: TargetKindNetwork}, nil
	}
	if d := validator.NormalizeDomain(s); validator.IsDomain(d) {
		return Target{Raw: raw, Value: d, Kind: TargetKindDomain}, nil
	}
	if validator.IsURL(s) {
		return Target{Raw: raw, Value: s, Kind: TargetKindURL}, nil
	}

	return Target{}, invalidTarget(raw, ErrInvalidTarget)
}

// MustClassify is Classify for fixtures and constants.
func MustClassify(raw string) Target {
	t, err := Classify(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// Host returns the network host of the target. For a URL it is the
// hostname, for a network it is the CIDR string.
func (t Target) Host() string {
	if t.Kind != TargetKindURL {
		return t.Value
	}
	u, err := url.Parse(t.Value)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// HasScheme reports whether the target already pins http or https.
func (t Target) HasScheme() bool {
	return t.Kind == TargetKindURL
}

func (t Target) IsZero() bool {
	return t.Kind == ""
}

func (t Target) String() string {
	return t.Value
}

// denylist covers loopback, private, link-local, multicast and "this network".
var denylist = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("ff00::/8"),
}

// Denylisted reports whether addr falls inside a denylisted range.
func Denylisted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range denylist {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// EnforceDenylist applies the direct-scan policy. Post-exploitation
// operations against authenticated hosts do not call it.
// Domain targets pass: their addresses are only known after resolution.
func EnforceDenylist(t Target) error {
	switch t.Kind {
	case TargetKindIP:
		addr, err := netip.ParseAddr(t.Value)
		if err == nil && Denylisted(addr) {
			return invalidTarget(t.Raw, ErrDenylisted)
		}
	case TargetKindNetwork:
		prefix, err := netip.ParsePrefix(t.Value)
		if err != nil {
			return invalidTarget(t.Raw, ErrInvalidTarget)
		}
		for _, p := range denylist {
			if p.Overlaps(prefix) {
				return invalidTarget(t.Raw, ErrDenylisted)
			}
		}
	case TargetKindURL:
		if addr, err := netip.ParseAddr(t.Host()); err == nil && Denylisted(addr) {
			return invalidTarget(t.Raw, ErrDenylisted)
		}
	}
	return nil
}

// ClassifyForScan is Classify followed by EnforceDenylist.
func ClassifyForScan(raw string) (Target, error) {
	t, err := Classify(raw)
	if err != nil {
		return Target{}, err
	}
	if err := EnforceDenylist(t); err != nil {
		return Target{}, err
	}
	return t, nil
}
