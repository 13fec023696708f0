// internal/platform/validator/validator.go
package validator

import (
	"net"
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	domainRegex   = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?$`)
	portSpecRegex = regexp.MustCompile(`^[\d,-]+$`)
	safePathRegex = regexp.MustCompile(`^[\w./-]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)
	unsafeName    = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
)

// shellMeta agrupa los caracteres que nunca deben llegar a un argv externo.
const shellMeta = "|;&$`<>\n\r\\"

// Domain validators

// IsDomain verifica si un string es un dominio válido con al menos un punto.
// Las IP literales nunca se consideran dominios.
func IsDomain(domain string) bool {
	if len(domain) == 0 || len(domain) > 253 {
		return false
	}
	if net.ParseIP(domain) != nil {
		return false
	}
	return domainRegex.MatchString(domain)
}

// IsSubdomain verifica si subdomain es un subdominio válido de baseDomain.
func IsSubdomain(subdomain, baseDomain string) bool {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	baseDomain = strings.ToLower(strings.TrimSpace(baseDomain))

	if subdomain == baseDomain {
		return false
	}

	return strings.HasSuffix(subdomain, "."+baseDomain)
}

// NormalizeDomain lowercases and strips the trailing dot.
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimSuffix(domain, ".")
}

// Network validators

// IsIP verifica si un string es una dirección IP válida (v4 o v6).
func IsIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

// IsCIDR reports whether s is an IP network in CIDR notation.
func IsCIDR(s string) bool {
	_, err := netip.ParsePrefix(s)
	return err == nil
}

// IsPort valida que un puerto esté en el rango válido [1-65535].
func IsPort(portStr string) bool {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return false
	}
	return port >= 1 && port <= 65535
}

// IsPortSpec accepts nmap-style port lists such as "22,80,8000-8100".
func IsPortSpec(spec string) bool {
	if !portSpecRegex.MatchString(spec) {
		return false
	}
	for _, part := range strings.Split(spec, ",") {
		if part == "" {
			return false
		}
		bounds := strings.SplitN(part, "-", 2)
		for _, b := range bounds {
			if !IsPort(b) {
				return false
			}
		}
		if len(bounds) == 2 {
			lo, _ := strconv.Atoi(bounds[0])
			hi, _ := strconv.Atoi(bounds[1])
			if lo > hi {
				return false
			}
		}
	}
	return true
}

// URL validators

// IsURL verifica si un string es una URL http(s) con host.
func IsURL(urlStr string) bool {
	if len(urlStr) == 0 {
		return false
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(parsed.Scheme)
	return (scheme == "http" || scheme == "https") && parsed.Hostname() != ""
}

// Input safety

// HasShellMeta reports whether s carries characters that a shell would
// interpret. Targets containing them are rejected before any probe runs.
func HasShellMeta(s string) bool {
	return strings.ContainsAny(s, shellMeta)
}

// IsSafePath accepts plain filesystem paths (word chars, dot, slash, dash).
func IsSafePath(p string) bool {
	return p != "" && safePathRegex.MatchString(p)
}

// IsUsername accepts conservative account names.
func IsUsername(u string) bool {
	return usernameRegex.MatchString(u)
}

// SanitizeName turns an arbitrary target into a filesystem-safe token.
func SanitizeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = unsafeName.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_.")
	if s == "" {
		return "unknown"
	}
	return s
}

// Generic validators

// IsEmpty verifica si un string está vacío o solo contiene espacios.
func IsEmpty(s string) bool {
	return len(strings.TrimSpace(s)) == 0
}
