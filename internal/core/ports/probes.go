// internal/core/ports/probes.go
package ports

import (
	"context"
	"net/http"
	"time"

	"reconmcp/internal/core/domain"
)

// Probe es la parte común de todos los adapters. Name identifica la
// variante concreta (ej: "nmap", "connect", "hydra").
type Probe interface {
	Name() string
}

// ScanOptions configura un escaneo de puertos.
type ScanOptions struct {
	// Ports es una especificación tipo "22,80,8000-8100" (vacío = defaults del scanner)
	Ports string

	// TopPorts pide los N puertos más comunes cuando Ports está vacío
	TopPorts int

	// Options son flags adicionales ya validados contra la allowlist
	Options []string

	// ServiceDetection pide identificación de versión (-sV)
	ServiceDetection bool

	// VersionIntensity ajusta -sV (0 = default del scanner, 1..9)
	VersionIntensity int
}

// PortScanResult es la salida normalizada de un PortScanner.
type PortScanResult struct {
	// Text está en la forma canónica que consume extract.Extract
	Text string

	// OpenPorts son los puertos abiertos en orden ascendente
	OpenPorts []int

	// Command es la línea ejecutada, solo informativa
	Command string
}

// PortScanner descubre puertos abiertos en un host o red.
type PortScanner interface {
	Probe
	Scan(ctx context.Context, target domain.Target, opts ScanOptions) (PortScanResult, error)
}

// WebResponse es el resultado de un único request HTTP.
type WebResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	// Body está truncado al límite del prober
	Body     string
	Duration time.Duration
}

// PathHit es una ruta interesante encontrada por el directory scan.
type PathHit struct {
	Path       string `json:"path"`
	StatusCode int    `json:"status"`
	Size       int64  `json:"size"`
}

// WebProber hace requests HTTP sin reintentos automáticos. Un status
// no-2xx no es un error; solo los fallos de transporte lo son.
type WebProber interface {
	Probe
	Fetch(ctx context.Context, url string) (WebResponse, error)
	ScanPaths(ctx context.Context, baseURL string, paths []string) ([]PathHit, error)
}

// DNSRecord es un registro de una respuesta DNS.
type DNSRecord struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
	TTL   uint32 `json:"ttl"`
}

// Subdomain es un nombre que resolvió durante la enumeración.
type Subdomain struct {
	Name      string   `json:"name"`
	Addresses []string `json:"addresses"`
}

// DNSResolver resuelve registros contra un servidor configurado.
type DNSResolver interface {
	Probe
	Lookup(ctx context.Context, name, recordType string) ([]DNSRecord, error)
	Reverse(ctx context.Context, ip string) ([]string, error)
	EnumerateSubdomains(ctx context.Context, domain string, words []string) ([]Subdomain, error)
}

// WhoisRecord contiene los campos parseados de una respuesta WHOIS.
type WhoisRecord struct {
	Domain      string    `json:"domain"`
	Registrar   string    `json:"registrar,omitempty"`
	Created     string    `json:"created,omitempty"`
	Expires     string    `json:"expires,omitempty"`
	Updated     string    `json:"updated,omitempty"`
	NameServers []string  `json:"name_servers,omitempty"`
	Status      []string  `json:"status,omitempty"`
	Registrant  string    `json:"registrant,omitempty"`
	Raw         string    `json:"-"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// WhoisClient obtiene información de registro de un dominio.
type WhoisClient interface {
	Probe
	Lookup(ctx context.Context, domain string) (WhoisRecord, error)
}

// Endpoint agrupa host, puerto y credenciales de un servicio remoto.
type Endpoint struct {
	Host     string
	Port     int
	Username string
	Password string
}

// FTPAnonReport es el resultado de un chequeo de login anónimo.
type FTPAnonReport struct {
	Host            string   `json:"host"`
	Port            int      `json:"port"`
	Banner          string   `json:"banner,omitempty"`
	Server          string   `json:"server,omitempty"`
	Version         string   `json:"version,omitempty"`
	AnonymousLogin  bool     `json:"anonymous_login"`
	Listing         []string `json:"listing,omitempty"`
	Issues          []string `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// FTPClient cubre las operaciones FTP expuestas como tools.
type FTPClient interface {
	Probe
	CheckAnonymous(ctx context.Context, host string, port int) (FTPAnonReport, error)
	ReadFile(ctx context.Context, ep Endpoint, path string, maxBytes int) (string, error)
	Download(ctx context.Context, ep Endpoint, remotePath, localDir string) (string, error)
}

// CommandResult es la salida de un comando remoto.
type CommandResult struct {
	Command  string `json:"command"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// SSHClient ejecuta un vector de argumentos en un host remoto. La
// implementación es responsable del quoting; ningún elemento de argv
// llega sin escapar a la shell remota.
type SSHClient interface {
	Probe
	Exec(ctx context.Context, ep Endpoint, argv []string) (CommandResult, error)
}

// Cracker prueba un par usuario/contraseña. ok=false con err=nil es un
// rechazo limpio; los errores se clasifican con domain.ClassifyAttemptError.
type Cracker interface {
	Probe
	TryLogin(ctx context.Context, host string, port int, username, password string) (ok bool, err error)
}

// Screenshotter captura una página completa como PNG.
type Screenshotter interface {
	Probe
	Capture(ctx context.Context, url string) ([]byte, error)
}

// CVE es una vulnerabilidad conocida.
type CVE struct {
	ID          string  `json:"id"`
	Score       float64 `json:"score"`
	Severity    string  `json:"severity,omitempty"`
	Description string  `json:"description"`
}

// VulnLookup consulta vulnerabilidades conocidas por producto y versión.
type VulnLookup interface {
	Probe
	Lookup(ctx context.Context, product, version string) ([]CVE, error)
}

// CertInfo resume el certificado hoja que presenta un servidor TLS. No se
// valida la cadena: un certificado caducado o autofirmado también es un
// hallazgo.
type CertInfo struct {
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	DNSNames  []string  `json:"dns_names,omitempty"`
	Version   int       `json:"version"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
	// TLSVersion negociada ("TLS 1.3")
	TLSVersion string `json:"tls_version"`
}

// CertFetcher hace un handshake TLS y devuelve el certificado del peer.
type CertFetcher interface {
	Probe
	Certificate(ctx context.Context, host string, port int) (CertInfo, error)
}

// IPInfo es la geolocalización y el ASN de una dirección pública.
type IPInfo struct {
	IP       string `json:"ip"`
	Hostname string `json:"hostname,omitempty"`
	City     string `json:"city,omitempty"`
	Region   string `json:"region,omitempty"`
	Country  string `json:"country,omitempty"`
	Loc      string `json:"loc,omitempty"`
	// Org lleva el ASN y el nombre ("AS15169 Google LLC")
	Org string `json:"org,omitempty"`
}

// IPInfoLookup consulta un servicio externo de información de IPs.
type IPInfoLookup interface {
	Probe
	Lookup(ctx context.Context, ip string) (IPInfo, error)
}
