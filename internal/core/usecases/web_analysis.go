// internal/core/usecases/web_analysis.go
package usecases

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/extract"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
)

const robotsMaxChars = 2000

// basicInfoHeaders se muestran en la sección de información básica.
var basicInfoHeaders = []string{"Server", "Content-Type", "Content-Length", "Last-Modified", "ETag"}

// WebOptions selecciona las partes opcionales del análisis web.
type WebOptions struct {
	// Paths activa el directory scan con esta wordlist (nil = sin scan)
	Paths        []string
	WordlistName string
	// Screenshot pide una captura si hay un Screenshotter configurado
	Screenshot bool
}

// WebReport es el resultado del análisis de un sitio.
type WebReport struct {
	URL      string
	Protocol string
	Response ports.WebResponse

	PresentHeaders map[string]string
	MissingHeaders []string
	Technologies   []string

	RobotsStatus int
	Robots       string

	Paths        []ports.PathHit
	WordlistName string
	Screenshot   []byte

	// Notes recoge fallos parciales que no invalidan el análisis
	Notes []string
}

// WebAnalyzer combina un WebProber y un Screenshotter opcional.
type WebAnalyzer struct {
	prober  ports.WebProber
	shooter ports.Screenshotter
	logger  logx.Logger
}

// NewWebAnalyzer crea el analizador. shooter puede ser nil.
func NewWebAnalyzer(prober ports.WebProber, shooter ports.Screenshotter, logger logx.Logger) *WebAnalyzer {
	if logger == nil {
		logger = logx.New()
	}
	return &WebAnalyzer{
		prober:  prober,
		shooter: shooter,
		logger:  logger.With("component", "web_analyzer"),
	}
}

// Candidates devuelve las URLs base a probar en orden. Un target URL se
// usa tal cual; si no, se intenta https primero y luego http. Cuando solo
// hay puertos web alternativos abiertos se usan esos puertos.
func Candidates(target domain.Target, facts domain.StructuredFacts) []string {
	if target.Kind == domain.TargetKindURL {
		return []string{target.Value}
	}
	host := target.Host()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if facts.HasAnyPort(80, 443) || !facts.HasAnyPort(8080, 8443) {
		return []string{"https://" + host, "http://" + host}
	}
	var out []string
	if facts.HasPort(8443) {
		out = append(out, "https://"+host+":8443")
	}
	if facts.HasPort(8080) {
		out = append(out, "http://"+host+":8080")
	}
	return out
}

// Resolve recorre candidates y devuelve la primera respuesta. Solo un
// error de transporte provoca pasar al siguiente; un status no-2xx es una
// respuesta válida.
func (w *WebAnalyzer) Resolve(ctx context.Context, candidates []string) (ports.WebResponse, error) {
	if w.prober == nil {
		return ports.WebResponse{}, domain.ErrAdapterMissing
	}
	var errs []error
	for _, u := range candidates {
		resp, err := w.prober.Fetch(ctx, u)
		if err == nil {
			if resp.URL == "" {
				resp.URL = u
			}
			return resp, nil
		}
		w.logger.Debug("web probe failed, trying next candidate", "url", u, "error", err.Error())
		errs = append(errs, fmt.Errorf("%s: %w", u, err))
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return ports.WebResponse{}, perrors.Wrap(perrors.ErrInvalidInput, "no web candidates")
	}
	return ports.WebResponse{}, &domain.ProbeTransportError{Probe: w.prober.Name(), Err: perrors.Join(errs...)}
}

// Analyze resuelve el sitio y ejecuta cabeceras, tecnologías, robots.txt
// y, según opts, directory scan y captura.
func (w *WebAnalyzer) Analyze(ctx context.Context, candidates []string, opts WebOptions) (WebReport, error) {
	resp, err := w.Resolve(ctx, candidates)
	if err != nil {
		return WebReport{}, err
	}

	report := WebReport{
		URL:          resp.URL,
		Protocol:     schemeOf(resp.URL),
		Response:     resp,
		WordlistName: opts.WordlistName,
	}
	report.PresentHeaders, report.MissingHeaders = AuditSecurityHeaders(resp.Headers)
	report.Technologies = extract.DetectTechnologies(HeaderBlock(resp.Headers), resp.Body)

	base := baseURL(resp.URL)

	robots, err := w.prober.Fetch(ctx, base+"/robots.txt")
	if err != nil {
		report.Notes = append(report.Notes, "robots.txt: "+err.Error())
	} else {
		report.RobotsStatus = robots.StatusCode
		if robots.StatusCode == http.StatusOK {
			report.Robots = robots.Body
		}
	}

	if len(opts.Paths) > 0 {
		hits, err := w.prober.ScanPaths(ctx, base, opts.Paths)
		if err != nil {
			report.Notes = append(report.Notes, "directory scan: "+err.Error())
		}
		report.Paths = hits
	}

	if opts.Screenshot && w.shooter != nil {
		png, err := w.shooter.Capture(ctx, resp.URL)
		if err != nil {
			report.Notes = append(report.Notes, "screenshot: "+err.Error())
		} else {
			report.Screenshot = png
		}
	}

	w.logger.Info("web analysis completed",
		"url", report.URL,
		"status", resp.StatusCode,
		"technologies", len(report.Technologies),
		"paths", len(report.Paths),
	)
	return report, nil
}

// ScanPaths resuelve el sitio y lanza el directory scan contra su URL base.
func (w *WebAnalyzer) ScanPaths(ctx context.Context, candidates []string, paths []string) (string, []ports.PathHit, error) {
	resp, err := w.Resolve(ctx, candidates)
	if err != nil {
		return "", nil, err
	}
	base := baseURL(resp.URL)
	hits, err := w.prober.ScanPaths(ctx, base, paths)
	w.logger.Info("directory scan completed", "url", base, "paths", len(paths), "hits", len(hits))
	return base, hits, err
}

// Screenshot captura url con fallback https→http para hosts sin esquema.
func (w *WebAnalyzer) Screenshot(ctx context.Context, candidates []string) ([]byte, string, error) {
	if w.shooter == nil {
		return nil, "", domain.ErrAdapterMissing
	}
	var errs []error
	for _, u := range candidates {
		png, err := w.shooter.Capture(ctx, u)
		if err == nil {
			return png, u, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", u, err))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, "", perrors.Join(errs...)
}

// AuditSecurityHeaders separa las cabeceras de seguridad presentes de las
// ausentes. El orden de missing sigue extract.SecurityHeaders.
func AuditSecurityHeaders(h http.Header) (present map[string]string, missing []string) {
	present = make(map[string]string)
	for _, name := range extract.SecurityHeaders {
		if v := h.Get(name); v != "" {
			present[name] = v
		} else {
			missing = append(missing, name)
		}
	}
	return present, missing
}

// HeaderBlock serializa cabeceras como "Name: value" por línea, ordenadas.
func HeaderBlock(h http.Header) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		for _, v := range h[k] {
			sb.WriteString(k + ": " + v + "\n")
		}
	}
	return sb.String()
}

// RawResponse reconstruye la respuesta en texto plano para el extractor.
func (r WebReport) RawResponse() string {
	return fmt.Sprintf("HTTP/1.1 %d\n%s\n%s", r.Response.StatusCode, HeaderBlock(r.Response.Headers), r.Response.Body)
}

// Text renderiza el análisis completo.
func (r WebReport) Text() string {
	var sb strings.Builder
	sb.WriteString("=== COMPREHENSIVE WEB SCAN ===\n")
	fmt.Fprintf(&sb, "Target: %s\nProtocol: %s\n", r.URL, r.Protocol)

	sb.WriteString("\n1. Basic Information\n")
	sb.WriteString(r.BasicInfoText())

	sb.WriteString("\n2. Technology Detection\n")
	sb.WriteString(r.TechnologiesText())

	sb.WriteString("\n3. Security Headers\n")
	sb.WriteString(r.SecurityHeadersText())

	sb.WriteString("\n4. robots.txt Analysis\n")
	switch {
	case r.Robots != "":
		robots := r.Robots
		truncated := len(robots) > robotsMaxChars
		if truncated {
			robots = robots[:robotsMaxChars]
		}
		sb.WriteString(robots)
		if !strings.HasSuffix(robots, "\n") {
			sb.WriteString("\n")
		}
		if truncated {
			sb.WriteString("... (truncated)\n")
		}
	case r.RobotsStatus == http.StatusNotFound:
		sb.WriteString("robots.txt not found (404)\n")
	case r.RobotsStatus != 0:
		fmt.Fprintf(&sb, "Unexpected status: %d\n", r.RobotsStatus)
	default:
		sb.WriteString("robots.txt not checked\n")
	}

	if r.WordlistName != "" || len(r.Paths) > 0 {
		sb.WriteString("\n5. Directory/File Scan\n")
		sb.WriteString(PathsText(r.Paths))
	}

	if len(r.Notes) > 0 {
		sb.WriteString("\nNotes:\n")
		for _, n := range r.Notes {
			sb.WriteString("  " + n + "\n")
		}
	}
	return sb.String()
}

// BasicInfoText renderiza status y cabeceras importantes.
func (r WebReport) BasicInfoText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "URL: %s\n", r.URL)
	fmt.Fprintf(&sb, "Status: %d %s\n", r.Response.StatusCode, http.StatusText(r.Response.StatusCode))
	fmt.Fprintf(&sb, "Response Time: %dms\n", r.Response.Duration.Milliseconds())
	sb.WriteString("Important Headers:\n")
	for _, h := range basicInfoHeaders {
		if v := r.Response.Headers.Get(h); v != "" {
			fmt.Fprintf(&sb, "  %s: %s\n", h, v)
		}
	}
	if r.Protocol == "https" {
		sb.WriteString("SSL/TLS: Enabled\n")
	}
	return sb.String()
}

// TechnologiesText lista las tecnologías detectadas.
func (r WebReport) TechnologiesText() string {
	if len(r.Technologies) == 0 {
		return "No specific technologies detected.\n"
	}
	var sb strings.Builder
	sb.WriteString("Detected Technologies:\n")
	for _, t := range r.Technologies {
		sb.WriteString("  " + t + "\n")
	}
	return sb.String()
}

// SecurityHeadersText renderiza la auditoría de cabeceras.
func (r WebReport) SecurityHeadersText() string {
	var sb strings.Builder
	for _, name := range extract.SecurityHeaders {
		if v, ok := r.PresentHeaders[name]; ok {
			fmt.Fprintf(&sb, "[+] %s: %s\n", name, v)
		} else {
			fmt.Fprintf(&sb, "[-] %s: missing\n", name)
		}
	}
	total := len(extract.SecurityHeaders)
	found := len(r.PresentHeaders)
	fmt.Fprintf(&sb, "Security headers set: %d/%d\n", found, total)
	if found < total/2 {
		sb.WriteString("Security header configuration is insufficient\n")
	} else {
		sb.WriteString("Security header configuration looks good\n")
	}
	return sb.String()
}

// PathsText renderiza los hallazgos del directory scan, los más
// interesantes primero.
func PathsText(hits []ports.PathHit) string {
	if len(hits) == 0 {
		return "No common directories/files found.\n"
	}
	var sb strings.Builder
	sb.WriteString("Found paths:\n")
	for _, r := range RankPaths(hits) {
		fmt.Fprintf(&sb, "  %d - %s", r.StatusCode, r.Path)
		if r.Category != PathLow && len(r.Reasons) > 0 {
			fmt.Fprintf(&sb, "  [%s: %s]", r.Category, strings.Join(r.Reasons, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func schemeOf(u string) string {
	if i := strings.Index(u, "://"); i > 0 {
		return strings.ToLower(u[:i])
	}
	return ""
}

// baseURL recorta path, query y fragmento: "https://a.com/x?y" → "https://a.com".
func baseURL(u string) string {
	i := strings.Index(u, "://")
	if i < 0 {
		return strings.TrimRight(u, "/")
	}
	rest := u[i+3:]
	if j := strings.IndexAny(rest, "/?#"); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest
}
