// Package mcpserver expone los adapters y el orquestador de reconmcp como
// tools MCP sobre stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	"reconmcp/internal/core/usecases"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
	"reconmcp/internal/platform/rate"
	"reconmcp/internal/platform/toolcheck"
)

const serverInstructions = `Reconnaissance and exploitation toolkit for authorized engagements (CTF boxes, lab networks, scoped pentests).

Start with quick_recon or comprehensive_recon on a target (IP, CIDR, domain or URL). They run the fixed pipeline
CLASSIFY -> NETWORK_SCAN -> SERVICE_ANALYSIS -> DNS_INVESTIGATION -> WEB_ANALYSIS -> REPORT_EMIT and only run the
follow-up stages that earlier results justify. Use the nmap_*, web_*, dns_* tools for targeted probes, and the
ftp_*, ssh_* and credential_brute_force tools once a service is confirmed.

Private, loopback, link-local and multicast ranges are refused by every scan tool. Scan tools are throttled.`

// Config agrupa los parámetros del servidor que no son adapters.
type Config struct {
	Name    string
	Version string

	// ThrottleCalls llamadas a tools de scan por ThrottleWindow (0 = sin límite)
	ThrottleCalls  int
	ThrottleWindow time.Duration

	// Timeouts por tool; cero deja el contexto del cliente intacto
	QuickTimeout time.Duration
	ScanTimeout  time.Duration
	WebTimeout   time.Duration
	DNSTimeout   time.Duration

	// DownloadDir es el destino por defecto de ftp_download_file
	DownloadDir string
}

// Deps son los colaboradores del servidor. Cualquiera puede ser nil: la
// tool correspondiente responde con un error explicativo.
type Deps struct {
	Scanner  ports.PortScanner
	Web      *usecases.WebAnalyzer
	DNS      *usecases.DNSInvestigator
	Resolver ports.DNSResolver
	Whois    ports.WhoisClient
	Vuln     ports.VulnLookup
	FTP      ports.FTPClient
	SSH      *usecases.SSHExplorer
	OSINT    *usecases.OSINTCollector
	// BruteForcers por nombre de cracker (ssh, ftp, hydra)
	BruteForcers map[string]*usecases.BruteForcer
	Recon        *usecases.ReconOrchestrator
	Tools        *toolcheck.Checker

	Observers []ports.Notifier
	Logger    logx.Logger
}

// Server envuelve el servidor MCP con las tools de reconmcp.
type Server struct {
	mcp      *mcp.Server
	cfg      Config
	deps     Deps
	throttle *rate.Limiter
	logger   logx.Logger
	tools    []string
}

// New crea el servidor con todas las tools registradas.
func New(cfg Config, deps Deps) *Server {
	if cfg.Name == "" {
		cfg.Name = "reconmcp"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.ThrottleWindow <= 0 {
		cfg.ThrottleWindow = time.Minute
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = "downloads"
	}
	if deps.Logger == nil {
		deps.Logger = logx.NewDiscard()
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With("component", "mcpserver"),
	}
	if cfg.ThrottleCalls > 0 {
		s.throttle = rate.NewPer(cfg.ThrottleCalls, cfg.ThrottleWindow)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Title:   "Recon MCP Server",
			Version: cfg.Version,
		},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)

	s.registerNetworkTools()
	s.registerWebTools()
	s.registerDNSTools()
	s.registerAccessTools()
	s.registerReconTools()

	return s
}

// MCPServer devuelve el servidor subyacente (tests, transports alternativos).
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// ToolNames devuelve los nombres registrados, ordenados.
func (s *Server) ToolNames() []string {
	out := append([]string(nil), s.tools...)
	sort.Strings(out)
	return out
}

// RunStdio sirve MCP sobre stdin/stdout hasta que ctx termina o el cliente
// cierra la conexión.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("serving mcp over stdio", "tools", len(s.tools))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// addTool registra la tool envuelta con throttle (si aplica), log y evento.
func (s *Server) addTool(tool *mcp.Tool, throttled bool, h mcp.ToolHandler) {
	s.tools = append(s.tools, tool.Name)
	s.mcp.AddTool(tool, s.instrument(tool.Name, throttled, h))
}

func (s *Server) instrument(name string, throttled bool, h mcp.ToolHandler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		var (
			res *mcp.CallToolResult
			err error
		)
		if throttled && !s.throttle.Allow() {
			res = errorResult(fmt.Sprintf("rate limit: at most %d scan calls per %s, retry in %s",
				s.cfg.ThrottleCalls, s.cfg.ThrottleWindow, s.throttle.Delay().Round(time.Second)))
		} else {
			res, err = h(ctx, req)
		}

		d := time.Since(start)
		isError := err != nil || (res != nil && res.IsError)
		s.logger.Info("tool called", "tool", name, "error", isError, "duration", d.String())
		s.notify(ctx, ports.NewEvent(
			ports.EventTypeToolCalled,
			"mcpserver",
			ports.ToolEvent{Tool: name, IsError: isError, Duration: d},
		))
		return res, err
	}
}

// notify entrega el evento de forma síncrona; los observers de tools son
// baratos (contadores).
func (s *Server) notify(ctx context.Context, event ports.Event) {
	for _, o := range s.deps.Observers {
		if err := o.Notify(context.WithoutCancel(ctx), event); err != nil {
			s.logger.Warn("notification failed", "event_type", event.Type, "error", err.Error())
		}
	}
}

// withTimeout aplica d a ctx cuando d > 0.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// scanTarget clasifica raw y aplica la denylist de escaneo directo.
func scanTarget(raw string) (domain.Target, *mcp.CallToolResult) {
	t, err := domain.ClassifyForScan(raw)
	if err != nil {
		return domain.Target{}, errorResult("invalid target: " + err.Error())
	}
	return t, nil
}

// Result helpers

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult devuelve un CallToolResult con IsError para que el cliente
// vea el motivo y corrija la llamada.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// failure traduce un error de adapter a un mensaje con pista de recuperación.
func failure(op string, err error) *mcp.CallToolResult {
	msg := fmt.Sprintf("%s failed: %v", op, err)
	switch {
	case perrors.Is(err, domain.ErrAdapterMissing):
		msg = op + " is not available: the adapter is not configured on this server"
	case perrors.Is(err, perrors.ErrToolMissing):
		msg += "\nHint: the external binary is not installed; run scanner_status to see what is missing."
	case perrors.Is(err, domain.ErrProbeTimeout), perrors.IsTimeout(err):
		msg += "\nHint: the probe timed out; narrow the port range or retry later."
	case perrors.IsRateLimit(err):
		msg += "\nHint: the upstream API is rate limiting requests; retry in a minute."
	case perrors.Is(err, domain.ErrAuthenticationFailure), perrors.IsAuthError(err):
		msg += "\nHint: credentials were rejected."
	case perrors.IsInvalidInput(err):
		msg += "\nHint: check the argument values."
	}
	return errorResult(msg)
}

func boolPtr(b bool) *bool { return &b }

// parseArgs deserializa los argumentos de la tool en dst.
func parseArgs(req *mcp.CallToolRequest, dst any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, dst); err != nil {
		return fmt.Errorf("parsing tool arguments: %w", err)
	}
	return nil
}

// Schema helpers

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func enumProp(description string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": description, "enum": values}
}

func intProp(description string, min, max int) map[string]any {
	return map[string]any{"type": "integer", "description": description, "minimum": min, "maximum": max}
}

func boolProp(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

func stringArrayProp(description string) map[string]any {
	return map[string]any{"type": "array", "description": description, "items": map[string]any{"type": "string"}}
}

// readOnly son las anotaciones de las tools que no modifican el host remoto.
func readOnly(title string, openWorld bool) *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:          title,
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(openWorld),
	}
}

// nonEmpty devuelve un errorResult si algún campo requerido está vacío.
func nonEmpty(fields ...string) *mcp.CallToolResult {
	for i := 0; i+1 < len(fields); i += 2 {
		if strings.TrimSpace(fields[i+1]) == "" {
			return errorResult(fields[i] + " is required")
		}
	}
	return nil
}
