package connectscan

import (
	"sort"
	"strconv"
	"strings"

	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/validator"
)

// topPorts son los 100 puertos TCP más frecuentes según nmap-services.
var topPorts = []int{
	7, 9, 13, 21, 22, 23, 25, 26, 37, 53, 79, 80, 81, 88, 106, 110, 111, 113, 119, 135,
	139, 143, 144, 179, 199, 389, 427, 443, 444, 445, 465, 513, 514, 515, 543, 544, 548, 554,
	587, 631, 646, 873, 990, 993, 995, 1025, 1026, 1027, 1028, 1029, 1110, 1433, 1720, 1723,
	1755, 1900, 2000, 2001, 2049, 2121, 2717, 3000, 3128, 3306, 3389, 3986, 4899, 5000, 5009,
	5051, 5060, 5101, 5190, 5357, 5432, 5631, 5666, 5800, 5900, 6000, 6001, 6646, 7070, 8000,
	8008, 8009, 8080, 8081, 8443, 8888, 9100, 9999, 10000, 32768, 49152, 49153, 49154, 49155,
	49156, 49157,
}

// maxPorts acota una especificación explícita.
const maxPorts = 65535

// serviceNames es la tabla de nombres para puertos conocidos; el scanner
// no hace detección de versión.
var serviceNames = map[int]string{
	21: "ftp", 22: "ssh", 23: "telnet", 25: "smtp", 53: "domain", 80: "http",
	110: "pop3", 111: "rpcbind", 135: "msrpc", 139: "netbios-ssn", 143: "imap",
	443: "https", 445: "microsoft-ds", 465: "smtps", 587: "submission", 993: "imaps",
	995: "pop3s", 1433: "ms-sql-s", 1521: "oracle", 2049: "nfs", 3000: "ppp",
	3306: "mysql", 3389: "ms-wbt-server", 5432: "postgresql", 5900: "vnc",
	6379: "redis", 8000: "http-alt", 8080: "http-proxy", 8443: "https-alt",
	8888: "sun-answerbook", 9100: "jetdirect", 27017: "mongodb",
}

// ServiceName devuelve el nombre conocido del puerto o "unknown".
func ServiceName(port int) string {
	if n, ok := serviceNames[port]; ok {
		return n
	}
	return "unknown"
}

// ParsePortSpec expande "22,80,8000-8100" a una lista ordenada sin duplicados.
func ParsePortSpec(spec string) ([]int, error) {
	if !validator.IsPortSpec(spec) {
		return nil, perrors.Wrapf(perrors.ErrInvalidInput, "invalid port spec %q", spec)
	}

	seen := make(map[int]struct{})
	for _, part := range strings.Split(spec, ",") {
		lo, hi := part, part
		if i := strings.IndexByte(part, '-'); i >= 0 {
			lo, hi = part[:i], part[i+1:]
		}
		a, _ := strconv.Atoi(lo)
		b, _ := strconv.Atoi(hi)
		for p := a; p <= b; p++ {
			seen[p] = struct{}{}
		}
	}
	if len(seen) > maxPorts {
		return nil, perrors.Wrapf(perrors.ErrInvalidInput, "port spec %q too large", spec)
	}

	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out, nil
}

// TopPorts devuelve los n puertos más comunes. Por encima de 100 se
// completa con el rango 1-1024.
func TopPorts(n int) []int {
	if n <= 0 {
		return nil
	}
	if n <= len(topPorts) {
		out := append([]int(nil), topPorts[:n]...)
		sort.Ints(out)
		return out
	}

	seen := make(map[int]struct{}, len(topPorts)+1024)
	for _, p := range topPorts {
		seen[p] = struct{}{}
	}
	for p := 1; p <= 1024 && len(seen) < n; p++ {
		seen[p] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
