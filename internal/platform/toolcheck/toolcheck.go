// Package toolcheck verifica que las herramientas externas que usan los
// adapters estén instaladas y reporta su versión.
package toolcheck

import (
	"context"
	_ "embed"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"reconmcp/internal/platform/logx"
	"reconmcp/internal/platform/workerpool"
)

//go:embed tools.yaml
var defaultManifest []byte

// Tool es una entrada del manifiesto.
type Tool struct {
	Name             string   `yaml:"name"`
	Description      string   `yaml:"description"`
	Required         bool     `yaml:"required"`
	Command          string   `yaml:"command"`
	Alternatives     []string `yaml:"alternatives"`
	VersionArgs      []string `yaml:"version_args"`
	ExpectedContains string   `yaml:"expected_contains"`
	MinVersion       string   `yaml:"min_version"`
	UsedBy           []string `yaml:"used_by"`
}

type manifest struct {
	Tools []Tool `yaml:"tools"`
}

// Status del chequeo de una herramienta.
type Status string

const (
	StatusOK       Status = "ok"
	StatusOutdated Status = "outdated"
	StatusMissing  Status = "missing"
	StatusBroken   Status = "broken"
)

// Result es el resultado de chequear una herramienta.
type Result struct {
	Tool     Tool          `json:"-"`
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Path     string        `json:"path,omitempty"`
	Version  string        `json:"version,omitempty"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"-"`
}

// OK indica que la herramienta es utilizable.
func (r Result) OK() bool { return r.Status == StatusOK || r.Status == StatusOutdated }

// Checker ejecuta los chequeos del manifiesto.
type Checker struct {
	tools []Tool
	// overrides de ruta por nombre (ej: --nmap-path)
	paths   map[string]string
	timeout time.Duration
	logger  logx.Logger
	look    func(string) (string, error)
	run     func(ctx context.Context, path string, args []string) (string, error)
}

// Option configura un Checker.
type Option func(*Checker)

// WithPath fija la ruta de una herramienta.
func WithPath(name, path string) Option {
	return func(c *Checker) {
		if path != "" {
			c.paths[name] = path
		}
	}
}

// WithLogger asigna el logger.
func WithLogger(l logx.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

// ParseManifest decodifica un manifiesto YAML.
func ParseManifest(data []byte) ([]Tool, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse tool manifest: %w", err)
	}
	for i, t := range m.Tools {
		if t.Name == "" || t.Command == "" {
			return nil, fmt.Errorf("tool manifest entry %d: name and command are required", i)
		}
	}
	return m.Tools, nil
}

// New crea un Checker con el manifiesto embebido.
func New(opts ...Option) *Checker {
	tools, err := ParseManifest(defaultManifest)
	if err != nil {
		// el manifiesto embebido se valida en los tests
		panic(err)
	}
	return NewWithTools(tools, opts...)
}

// NewWithTools crea un Checker sobre una lista explícita.
func NewWithTools(tools []Tool, opts ...Option) *Checker {
	c := &Checker{
		tools:   tools,
		paths:   make(map[string]string),
		timeout: 10 * time.Second,
		logger:  logx.NewDiscard(),
		look:    exec.LookPath,
		run:     runVersion,
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("component", "toolcheck")
	return c
}

// Tools devuelve el manifiesto efectivo.
func (c *Checker) Tools() []Tool { return append([]Tool(nil), c.tools...) }

// Check chequea todas las herramientas en paralelo; el orden del
// resultado es el del manifiesto.
func (c *Checker) Check(ctx context.Context) []Result {
	pool := workerpool.New(workerpool.Config{Workers: len(c.tools), Logger: c.logger, Name: "toolcheck"})
	results := workerpool.Map(ctx, pool, c.tools, func(ctx context.Context, t Tool) (Result, error) {
		return c.CheckTool(ctx, t), nil
	})

	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			out = append(out, Result{Tool: r.Item, Name: r.Item.Name, Status: StatusBroken, Message: r.Err.Error()})
			continue
		}
		out = append(out, r.Value)
	}
	return out
}

// CheckTool chequea una herramienta.
func (c *Checker) CheckTool(ctx context.Context, t Tool) Result {
	start := time.Now()
	res := Result{Tool: t, Name: t.Name}
	defer func() { res.Duration = time.Since(start) }()

	path, err := c.locate(t)
	if err != nil {
		res.Status = StatusMissing
		res.Message = fmt.Sprintf("%s not found in PATH", t.Command)
		return res
	}
	res.Path = path

	if len(t.VersionArgs) == 0 {
		res.Status = StatusOK
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	output, err := c.run(ctx, path, t.VersionArgs)
	if output == "" && err != nil {
		res.Status = StatusBroken
		res.Message = err.Error()
		return res
	}
	if t.ExpectedContains != "" && !strings.Contains(output, t.ExpectedContains) {
		res.Status = StatusBroken
		res.Message = fmt.Sprintf("unexpected version output (missing %q)", t.ExpectedContains)
		return res
	}

	res.Version = ExtractVersion(output)
	res.Status = StatusOK
	if t.MinVersion != "" && res.Version != "" && CompareVersions(res.Version, t.MinVersion) < 0 {
		res.Status = StatusOutdated
		res.Message = fmt.Sprintf("version %s is older than %s", res.Version, t.MinVersion)
	}
	c.logger.Debug("tool checked", "tool", t.Name, "status", string(res.Status), "version", res.Version)
	return res
}

func (c *Checker) locate(t Tool) (string, error) {
	if p, ok := c.paths[t.Name]; ok {
		return c.look(p)
	}
	path, err := c.look(t.Command)
	if err == nil {
		return path, nil
	}
	for _, alt := range t.Alternatives {
		if p, altErr := c.look(alt); altErr == nil {
			return p, nil
		}
	}
	return "", err
}

// runVersion ejecuta el comando de versión. Algunas herramientas (hydra -h)
// salen con código distinto de cero pero imprimen la versión igualmente.
func runVersion(ctx context.Context, path string, args []string) (string, error) {
	out, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

var versionPattern = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)*)`)

// ExtractVersion devuelve el primer número de versión de la salida,
// priorizando líneas que mencionan "version" o "v".
func ExtractVersion(output string) string {
	lines := strings.Split(output, "\n")
	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "version") || strings.Contains(lower, " v") {
			if m := versionPattern.FindStringSubmatch(line); m != nil {
				return m[1]
			}
		}
	}
	if m := versionPattern.FindStringSubmatch(output); m != nil {
		return m[1]
	}
	return ""
}

// CompareVersions compara versiones numéricas separadas por puntos.
// Returns: -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	parts1 := strings.Split(strings.TrimPrefix(strings.TrimSpace(v1), "v"), ".")
	parts2 := strings.Split(strings.TrimPrefix(strings.TrimSpace(v2), "v"), ".")

	maxLen := len(parts1)
	if len(parts2) > maxLen {
		maxLen = len(parts2)
	}
	for i := 0; i < maxLen; i++ {
		var p1, p2 int
		if i < len(parts1) {
			fmt.Sscanf(parts1[i], "%d", &p1)
		}
		if i < len(parts2) {
			fmt.Sscanf(parts2[i], "%d", &p2)
		}
		if p1 < p2 {
			return -1
		}
		if p1 > p2 {
			return 1
		}
	}
	return 0
}
