// internal/core/usecases/service_analysis.go
package usecases

import (
	"fmt"
	"sort"
	"strings"

	"reconmcp/internal/core/domain"
)

// RiskLevel es la evaluación de seguridad de un servicio.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
	RiskSecure RiskLevel = "SECURE"
)

// KnownService describe un puerto bien conocido.
type KnownService struct {
	Name        string
	Description string
}

// SecurityProfile agrupa problemas típicos, recomendaciones y herramientas
// de prueba para un tipo de servicio.
type SecurityProfile struct {
	Issues          []string
	Recommendations []string
	Tools           []string
}

// KnownServices es la tabla estática puerto → servicio.
var KnownServices = map[int]KnownService{
	21:    {"FTP", "File Transfer Protocol"},
	22:    {"SSH", "Secure Shell"},
	23:    {"Telnet", "Telnet Protocol"},
	25:    {"SMTP", "Simple Mail Transfer Protocol"},
	53:    {"DNS", "Domain Name System"},
	80:    {"HTTP", "Hypertext Transfer Protocol"},
	110:   {"POP3", "Post Office Protocol v3"},
	135:   {"RPC", "Microsoft RPC Endpoint Mapper"},
	139:   {"NetBIOS", "NetBIOS Session Service"},
	143:   {"IMAP", "Internet Message Access Protocol"},
	443:   {"HTTPS", "HTTP over SSL/TLS"},
	445:   {"SMB", "Server Message Block"},
	993:   {"IMAPS", "IMAP over SSL"},
	995:   {"POP3S", "POP3 over SSL"},
	1433:  {"MSSQL", "Microsoft SQL Server"},
	3306:  {"MySQL", "MySQL Database"},
	3389:  {"RDP", "Remote Desktop Protocol"},
	5432:  {"PostgreSQL", "PostgreSQL Database"},
	5900:  {"VNC", "Virtual Network Computing"},
	6379:  {"Redis", "Redis Database"},
	8080:  {"HTTP-Alt", "Alternative HTTP"},
	8443:  {"HTTPS-Alt", "Alternative HTTPS"},
	27017: {"MongoDB", "MongoDB Database"},
}

// SecurityProfiles indexa por KnownService.Name.
var SecurityProfiles = map[string]SecurityProfile{
	"SSH": {
		Issues:          []string{"Default port 22 in use", "Password authentication enabled", "Root login permitted", "Outdated SSH version"},
		Recommendations: []string{"Move to a non-default port", "Use public key authentication", "Disable root login", "Deploy fail2ban", "Rotate SSH keys regularly"},
		Tools:           []string{"ssh-audit", "nmap --script ssh-*"},
	},
	"HTTP": {
		Issues:          []string{"HTTPS not in use", "Missing security headers", "Outdated web server version", "Directory listing enabled"},
		Recommendations: []string{"Migrate to HTTPS", "Configure security headers", "Update the web server", "Enforce access control"},
		Tools:           []string{"nikto", "dirb", "gobuster", "testssl.sh"},
	},
	"HTTPS": {
		Issues:          []string{"Weak cipher suites", "Expired certificate", "Self-signed certificate", "Mixed content"},
		Recommendations: []string{"Use strong cipher suites", "Renew certificates regularly", "Enable HSTS", "Monitor certificate transparency"},
		Tools:           []string{"testssl.sh", "sslscan", "sslyze"},
	},
	"FTP": {
		Issues:          []string{"Anonymous login allowed", "Cleartext transport", "Outdated FTP server", "Weak access control"},
		Recommendations: []string{"Use SFTP or FTPS", "Disable anonymous access", "Enforce strong authentication", "Monitor transfer logs"},
		Tools:           []string{"nmap --script ftp-*", "hydra"},
	},
	"MySQL": {
		Issues:          []string{"Empty default root password", "Reachable from outside", "Outdated MySQL version", "Excessive privileges"},
		Recommendations: []string{"Set strong passwords", "Restrict external access", "Apply updates regularly", "Apply least privilege"},
		Tools:           []string{"nmap --script mysql-*", "sqlmap"},
	},
	"RDP": {
		Issues:          []string{"Default port 3389 in use", "Weak passwords", "BlueKeep exposure", "Network Level Authentication disabled"},
		Recommendations: []string{"Move to a non-default port", "Use strong passwords", "Require VPN access", "Apply security updates"},
		Tools:           []string{"nmap --script rdp-*", "rdesktop"},
	},
	"Telnet": {
		Issues:          []string{"Cleartext credentials", "No integrity protection", "Legacy daemon"},
		Recommendations: []string{"Replace with SSH", "Disable the service"},
		Tools:           []string{"nmap --script telnet-*", "hydra"},
	},
}

var (
	highRiskPorts    = map[int]bool{21: true, 23: true, 25: true, 110: true, 143: true, 1433: true, 3306: true, 3389: true}
	unencryptedPorts = map[int]bool{21: true, 23: true, 25: true, 80: true, 110: true, 143: true}
	legacyMarkers    = []string{"1.0", "2.0", "old", "legacy"}
)

// ScoreRisk suma un punto por cada condición: puerto de alto riesgo,
// protocolo sin cifrar y versión con aspecto antiguo.
func ScoreRisk(port int, version string) (int, RiskLevel) {
	score := 0
	if highRiskPorts[port] {
		score++
	}
	if unencryptedPorts[port] {
		score++
	}
	v := strings.ToLower(version)
	for _, marker := range legacyMarkers {
		if v != "" && strings.Contains(v, marker) {
			score++
			break
		}
	}

	switch {
	case score >= 3:
		return score, RiskHigh
	case score == 2:
		return score, RiskMedium
	case score == 1:
		return score, RiskLow
	default:
		return score, RiskSecure
	}
}

// ServiceFinding es el análisis de un puerto abierto.
type ServiceFinding struct {
	Port     domain.Port
	Known    *KnownService
	Detected domain.Service
	Score    int
	Risk     RiskLevel
	Profile  *SecurityProfile
}

// ServiceReport es la salida de AnalyzeServices.
type ServiceReport struct {
	Findings []ServiceFinding
	HighRisk int
}

// AnalyzeServices aplica la tabla de servicios y el scoring a los puertos
// abiertos de facts. Es pura: no hace I/O.
func AnalyzeServices(facts domain.StructuredFacts) ServiceReport {
	var report ServiceReport
	for _, p := range facts.Ports() {
		f := AnalyzePort(p.Number, facts)
		f.Port = p
		if f.Risk == RiskHigh {
			report.HighRisk++
		}
		report.Findings = append(report.Findings, f)
	}
	sort.SliceStable(report.Findings, func(i, j int) bool {
		return report.Findings[i].Port.Number < report.Findings[j].Port.Number
	})
	return report
}

// AnalyzePort evalúa un único puerto. facts puede estar vacío.
func AnalyzePort(port int, facts domain.StructuredFacts) ServiceFinding {
	f := ServiceFinding{Port: domain.Port{Number: port, Protocol: "tcp"}}
	if ks, ok := KnownServices[port]; ok {
		ks := ks
		f.Known = &ks
		if prof, ok := SecurityProfiles[ks.Name]; ok {
			prof := prof
			f.Profile = &prof
		}
	}
	if svc, ok := facts.Service(port); ok {
		f.Detected = svc
	}
	f.Score, f.Risk = ScoreRisk(port, f.Detected.Version)
	return f
}

// Text renderiza el reporte para humanos y para el report sink.
func (r ServiceReport) Text() string {
	var sb strings.Builder
	sb.WriteString("=== PORT SERVICE ANALYSIS ===\n")
	if len(r.Findings) == 0 {
		sb.WriteString("No open ports to analyze\n")
		return sb.String()
	}

	for _, f := range r.Findings {
		sb.WriteString("\n")
		sb.WriteString(f.Text())
	}

	sb.WriteString("\n=== SECURITY SUMMARY ===\n")
	if r.HighRisk > 0 {
		fmt.Fprintf(&sb, "%d high-risk services detected\n", r.HighRisk)
		sb.WriteString("Priority: immediate security review required\n")
	} else {
		sb.WriteString("No high-risk services detected\n")
	}
	return sb.String()
}

// Text renderiza un único hallazgo.
func (f ServiceFinding) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Port %s\n", f.Port)
	if f.Known != nil {
		fmt.Fprintf(&sb, "Service: %s (%s)\n", f.Known.Name, f.Known.Description)
	} else {
		sb.WriteString("Service: unknown, run a detailed scan with -sV\n")
	}
	if f.Detected.Name != "" {
		fmt.Fprintf(&sb, "Detected: %s\n", f.Detected.Name)
	}
	if f.Detected.Version != "" {
		fmt.Fprintf(&sb, "Version: %s\n", f.Detected.Version)
	}
	fmt.Fprintf(&sb, "Security Level: %s (score %d)\n", f.Risk, f.Score)

	if f.Profile != nil {
		writeList(&sb, "Common Security Issues", "  - ", f.Profile.Issues)
		writeList(&sb, "Recommendations", "  + ", f.Profile.Recommendations)
		writeList(&sb, "Testing Tools", "  * ", f.Profile.Tools)
	}
	return sb.String()
}

func writeList(sb *strings.Builder, title, bullet string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(title + ":\n")
	for _, it := range items {
		sb.WriteString(bullet + it + "\n")
	}
}
