// Package vuln implementa ports.VulnLookup contra la API de CVEs 2.0 del
// NVD (keywordSearch).
package vuln

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"reconmcp/internal/core/ports"
	"reconmcp/internal/platform/cache"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/httpclient"
	"reconmcp/internal/platform/logx"
)

// DefaultBaseURL es el endpoint público del NVD.
const DefaultBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

// MaxPerService limita los CVEs devueltos por producto.
const MaxPerService = 5

// versionPatterns reconocen "OpenSSH 8.2", "Apache/2.4.41" y "vsftpd-3.0.3".
var versionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\w+)\s+(\d+\.\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(\w+)/(\d+\.\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(\w+)-(\d+\.\d+(?:\.\d+)?)`),
}

// ServiceVersion es un par producto/versión extraído de texto libre.
type ServiceVersion struct {
	Product string
	Version string
}

// ExtractServiceVersion devuelve el primer par producto/versión de info.
func ExtractServiceVersion(info string) (ServiceVersion, bool) {
	for _, re := range versionPatterns {
		if m := re.FindStringSubmatch(info); m != nil {
			return ServiceVersion{Product: m[1], Version: m[2]}, true
		}
	}
	return ServiceVersion{}, false
}

// ExtractAll recorre el texto de un escaneo línea a línea y devuelve los
// pares distintos en orden de aparición.
func ExtractAll(scanText string) []ServiceVersion {
	seen := make(map[string]struct{})
	var out []ServiceVersion
	for _, line := range strings.Split(scanText, "\n") {
		sv, ok := ExtractServiceVersion(line)
		if !ok {
			continue
		}
		key := strings.ToLower(sv.Product) + " " + sv.Version
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, sv)
	}
	return out
}

// Options configura el cliente.
type Options struct {
	BaseURL string
	APIKey  string
	// CacheTTL de las respuestas (default 1h)
	CacheTTL time.Duration
	Timeout  time.Duration
	// MaxRetries para errores transitorios (default 2)
	MaxRetries int
	Logger     logx.Logger
	// HTTP permite inyectar la configuración completa del cliente (tests)
	HTTP *httpclient.Config
}

// Client consulta el NVD con cache, rate limit y circuit breaker.
type Client struct {
	http    *httpclient.Client
	cache   *cache.MemoryCache[[]ports.CVE]
	baseURL string
	apiKey  string
	logger  logx.Logger
}

// New crea un Client. Sin API key el NVD permite 5 peticiones cada 30s;
// con key, 50.
func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = logx.NewDiscard()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	logger := opts.Logger.With("adapter", "nvd")

	cfg := httpclient.DefaultConfig()
	if opts.HTTP != nil {
		cfg = *opts.HTTP
	} else {
		cfg.MaxRetries = 2
		if opts.MaxRetries > 0 {
			cfg.MaxRetries = opts.MaxRetries
		}
		if opts.Timeout > 0 {
			cfg.Timeout = opts.Timeout
		}
		cfg.RateLimit = 5.0 / 30
		cfg.RateLimitBurst = 5
		if opts.APIKey != "" {
			cfg.RateLimit = 50.0 / 30
			cfg.RateLimitBurst = 10
		}
	}
	cfg.Name = "nvd"

	return &Client{
		http:    httpclient.New(cfg, logger),
		cache:   cache.New[[]ports.CVE](512, opts.CacheTTL),
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		logger:  logger,
	}
}

func (c *Client) Name() string { return "nvd" }

// CircuitState expone el estado del breaker de la API ("closed", "open"...).
func (c *Client) CircuitState() string { return c.http.CircuitState() }

// Lookup devuelve hasta MaxPerService CVEs ordenados por CVSS descendente.
func (c *Client) Lookup(ctx context.Context, product, version string) ([]ports.CVE, error) {
	product = strings.TrimSpace(product)
	version = strings.TrimSpace(version)
	if product == "" {
		return nil, perrors.Wrap(perrors.ErrInvalidInput, "empty product")
	}
	keyword := strings.TrimSpace(product + " " + version)
	key := strings.ToLower(keyword)

	return c.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]ports.CVE, error) {
		return c.search(ctx, keyword)
	})
}

func (c *Client) search(ctx context.Context, keyword string) ([]ports.CVE, error) {
	q := url.Values{}
	q.Set("keywordSearch", keyword)
	q.Set("resultsPerPage", strconv.Itoa(20))
	endpoint := c.baseURL + "?" + q.Encode()

	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"apiKey": c.apiKey}
	}

	start := time.Now()
	var resp nvdResponse
	if err := c.http.GetJSON(ctx, endpoint, headers, &resp); err != nil {
		return nil, perrors.Wrapf(err, "nvd search %q", keyword)
	}

	cves := resp.toCVEs()
	c.logger.Debug("nvd search", "keyword", keyword, "total", resp.TotalResults, "kept", len(cves), "duration", time.Since(start).String())
	return cves, nil
}

// nvdResponse es el subconjunto de la respuesta de la API 2.0 que se usa.
type nvdResponse struct {
	TotalResults    int `json:"totalResults"`
	Vulnerabilities []struct {
		CVE struct {
			ID           string `json:"id"`
			Descriptions []struct {
				Lang  string `json:"lang"`
				Value string `json:"value"`
			} `json:"descriptions"`
			Metrics struct {
				V31 []cvssMetric `json:"cvssMetricV31"`
				V30 []cvssMetric `json:"cvssMetricV30"`
				V2  []cvssMetric `json:"cvssMetricV2"`
			} `json:"metrics"`
		} `json:"cve"`
	} `json:"vulnerabilities"`
}

type cvssMetric struct {
	CVSSData struct {
		BaseScore    float64 `json:"baseScore"`
		BaseSeverity string  `json:"baseSeverity"`
	} `json:"cvssData"`
	// en v2 la severidad va fuera de cvssData
	BaseSeverity string `json:"baseSeverity"`
}

func (r nvdResponse) toCVEs() []ports.CVE {
	out := make([]ports.CVE, 0, len(r.Vulnerabilities))
	for _, v := range r.Vulnerabilities {
		if v.CVE.ID == "" {
			continue
		}
		cve := ports.CVE{ID: v.CVE.ID}
		for _, d := range v.CVE.Descriptions {
			if d.Lang == "en" {
				cve.Description = d.Value
				break
			}
		}
		for _, set := range [][]cvssMetric{v.CVE.Metrics.V31, v.CVE.Metrics.V30, v.CVE.Metrics.V2} {
			if len(set) == 0 {
				continue
			}
			cve.Score = set[0].CVSSData.BaseScore
			cve.Severity = set[0].CVSSData.BaseSeverity
			if cve.Severity == "" {
				cve.Severity = set[0].BaseSeverity
			}
			break
		}
		out = append(out, cve)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > MaxPerService {
		out = out[:MaxPerService]
	}
	return out
}
