// Package ipinfo implementa ports.IPInfoLookup contra la API JSON de
// ipinfo.io (GET <base>/<ip>/json).
package ipinfo

import (
	"context"
	"net/netip"
	"strings"
	"time"

	"reconmcp/internal/core/ports"
	"reconmcp/internal/platform/cache"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/httpclient"
	"reconmcp/internal/platform/logx"
)

// DefaultBaseURL es el endpoint público.
const DefaultBaseURL = "https://ipinfo.io"

// Options configura el cliente.
type Options struct {
	BaseURL string
	// Token opcional; sin él la API aplica el cupo anónimo
	Token string
	// CacheTTL de las respuestas (default 6h)
	CacheTTL time.Duration
	Timeout  time.Duration
	Logger   logx.Logger
	// HTTP permite inyectar la configuración completa del cliente (tests)
	HTTP *httpclient.Config
}

// Client consulta ipinfo con cache y rate limit.
type Client struct {
	http    *httpclient.Client
	cache   *cache.MemoryCache[ports.IPInfo]
	baseURL string
	token   string
	logger  logx.Logger
}

// New crea un Client.
func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = logx.NewDiscard()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 6 * time.Hour
	}
	logger := opts.Logger.With("adapter", "ipinfo")

	cfg := httpclient.DefaultConfig()
	if opts.HTTP != nil {
		cfg = *opts.HTTP
	} else {
		cfg.MaxRetries = 1
		if opts.Timeout > 0 {
			cfg.Timeout = opts.Timeout
		}
		cfg.RateLimit = 1
		cfg.RateLimitBurst = 5
	}
	cfg.Name = "ipinfo"

	return &Client{
		http:    httpclient.New(cfg, logger),
		cache:   cache.New[ports.IPInfo](256, opts.CacheTTL),
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		logger:  logger,
	}
}

func (c *Client) Name() string { return "ipinfo" }

// Lookup devuelve la información de ip. Los campos que la API no trae
// quedan vacíos.
func (c *Client) Lookup(ctx context.Context, ip string) (ports.IPInfo, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return ports.IPInfo{}, perrors.Wrapf(perrors.ErrInvalidInput, "not an IP address: %q", ip)
	}
	key := addr.Unmap().String()

	return c.cache.GetOrLoad(ctx, key, func(ctx context.Context) (ports.IPInfo, error) {
		var headers map[string]string
		if c.token != "" {
			headers = map[string]string{"Authorization": "Bearer " + c.token}
		}

		var info ports.IPInfo
		if err := c.http.GetJSON(ctx, c.baseURL+"/"+key+"/json", headers, &info); err != nil {
			return ports.IPInfo{}, perrors.Wrapf(err, "ipinfo lookup %s", key)
		}
		if info.IP == "" {
			info.IP = key
		}
		c.logger.Debug("ipinfo lookup", "ip", key, "org", info.Org, "country", info.Country)
		return info, nil
	})
}
