// Package extract turns raw probe output into domain.StructuredFacts.
//
// Extraction is total: unknown or malformed input produces empty facts and
// never an error. Calling Extract twice on the same text yields equal facts.
package extract

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"reconmcp/internal/core/domain"
)

var (
	// "22/tcp - open (ssh OpenSSH 8.9p1)" or nmap normal output
	// "22/tcp   open  ssh     OpenSSH 8.9p1". "open|filtered" does not match.
	portLine = regexp.MustCompile(`\b(\d{1,5})/([a-zA-Z]+)\s+(?:-\s+)?open(?:\s+(.*))?$`)

	httpStatusLine = regexp.MustCompile(`(?m)^\s*HTTP/\d(?:\.\d)?\s+(\d{3})\b`)
	statusField    = regexp.MustCompile(`(?mi)^\s*status(?:\s+code)?:\s*(\d{3})\b`)
)

// portStages produce scanner output. Port lines anywhere else (an HTTP
// body, a TXT record) are content, not facts.
var portStages = map[domain.StageName]bool{
	domain.StageNetworkScan:     true,
	domain.StageServiceAnalysis: true,
}

// Extract parses raw output of the given stage. Port lines are read only
// from scanner stages, HTTP status from every stage and technology
// signatures only from web output.
func Extract(stage domain.StageName, raw string) domain.StructuredFacts {
	b := domain.NewFactsBuilder()
	if strings.TrimSpace(raw) == "" {
		return b.Build()
	}

	if portStages[stage] {
		scanner := bufio.NewScanner(strings.NewReader(raw))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			extractPortLine(b, scanner.Text())
		}
		// A line longer than the buffer stops the scan; facts found so far stay.
	}

	if code, ok := ExtractHTTPStatus(raw); ok {
		b.SetHTTPStatus(code)
	}

	if stage == domain.StageWebAnalysis {
		for _, tech := range detectWith(Signatures, raw) {
			b.AddTechnology(tech)
		}
	}

	return b.Build()
}

func extractPortLine(b *domain.FactsBuilder, line string) {
	m := portLine.FindStringSubmatch(line)
	if m == nil {
		return
	}
	number, err := strconv.Atoi(m[1])
	if err != nil || number < 1 || number > 65535 {
		return
	}
	b.AddPort(domain.Port{Number: number, Protocol: strings.ToLower(m[2])})
	b.AddService(number, ParseServiceInfo(m[3]))
}

// ParseServiceInfo splits "<service> <version...>" on the first run of
// whitespace. Surrounding parentheses are removed. Product is the leading
// token of the version part when that part has more than one token.
func ParseServiceInfo(info string) domain.Service {
	info = strings.TrimSpace(info)
	if strings.HasPrefix(info, "(") {
		if end := strings.Index(info, ")"); end > 0 {
			info = info[1:end]
		} else {
			info = strings.TrimPrefix(info, "(")
		}
	}
	info = strings.TrimSpace(info)
	if info == "" {
		return domain.Service{}
	}

	name, rest := info, ""
	if idx := strings.IndexFunc(info, unicode.IsSpace); idx > 0 {
		name, rest = info[:idx], info[idx:]
	}
	svc := domain.Service{Name: name, Version: strings.TrimSpace(rest)}
	if fields := strings.Fields(svc.Version); len(fields) > 1 {
		svc.Product = fields[0]
	}
	return svc
}

// ExtractHTTPStatus finds the first HTTP status code in raw.
func ExtractHTTPStatus(raw string) (int, bool) {
	for _, re := range []*regexp.Regexp{httpStatusLine, statusField} {
		if m := re.FindStringSubmatch(raw); m != nil {
			code, err := strconv.Atoi(m[1])
			if err == nil && code >= 100 && code <= 599 {
				return code, true
			}
		}
	}
	return 0, false
}
