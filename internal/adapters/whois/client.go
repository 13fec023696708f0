// Package whois implementa ports.WhoisClient sobre likexian/whois y
// whois-parser. Las respuestas se cachean por dominio registrable.
package whois

import (
	"context"
	"errors"
	"strings"
	"time"

	lwhois "github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"golang.org/x/net/publicsuffix"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	"reconmcp/internal/platform/cache"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
)

// querier es la parte de *whois.Client que usamos.
type querier interface {
	Whois(domain string, servers ...string) (string, error)
}

// Options configura el cliente.
type Options struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	Logger   logx.Logger
}

// Client consulta WHOIS y parsea la respuesta.
type Client struct {
	q       querier
	cache   *cache.MemoryCache[ports.WhoisRecord]
	timeout time.Duration
	logger  logx.Logger
	now     func() time.Time
}

// New crea un Client con el transporte de likexian/whois.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	wc := lwhois.NewClient()
	wc.SetTimeout(opts.Timeout)
	return newClient(wc, opts)
}

func newClient(q querier, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = logx.NewDiscard()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	return &Client{
		q:       q,
		cache:   cache.New[ports.WhoisRecord](256, opts.CacheTTL),
		timeout: opts.Timeout,
		logger:  opts.Logger.With("adapter", "whois"),
		now:     time.Now,
	}
}

func (c *Client) Name() string { return "whois" }

// RegistrableDomain reduce un hostname a su eTLD+1 (www.example.co.uk -> example.co.uk).
func RegistrableDomain(name string) (string, error) {
	name = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
	if name == "" {
		return "", perrors.Wrap(perrors.ErrInvalidInput, "empty domain")
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return "", perrors.Wrapf(perrors.ErrInvalidInput, "no registrable domain in %q", name)
	}
	return root, nil
}

// Lookup obtiene el registro WHOIS del dominio registrable de name.
func (c *Client) Lookup(ctx context.Context, name string) (ports.WhoisRecord, error) {
	root, err := RegistrableDomain(name)
	if err != nil {
		return ports.WhoisRecord{}, err
	}
	return c.cache.GetOrLoad(ctx, root, func(ctx context.Context) (ports.WhoisRecord, error) {
		return c.fetch(ctx, root)
	})
}

func (c *Client) fetch(ctx context.Context, root string) (ports.WhoisRecord, error) {
	type reply struct {
		raw string
		err error
	}
	ch := make(chan reply, 1)
	// likexian/whois no acepta context; el goroutine termina con su propio timeout
	go func() {
		raw, err := c.q.Whois(root)
		ch <- reply{raw, err}
	}()

	var r reply
	select {
	case <-ctx.Done():
		return ports.WhoisRecord{}, &domain.ProbeTimeoutError{Probe: "whois", Err: ctx.Err()}
	case r = <-ch:
	}
	if r.err != nil {
		if perrors.IsTimeout(r.err) {
			return ports.WhoisRecord{}, &domain.ProbeTimeoutError{Probe: "whois", Err: r.err}
		}
		return ports.WhoisRecord{}, &domain.ProbeTransportError{Probe: "whois", Err: r.err}
	}

	rec, err := Parse(root, r.raw)
	if err != nil {
		return ports.WhoisRecord{}, err
	}
	rec.FetchedAt = c.now()
	c.logger.Debug("whois fetched", "domain", root, "registrar", rec.Registrar)
	return rec, nil
}

// Parse convierte la respuesta en texto a un WhoisRecord. Si el parser no
// reconoce el formato se devuelve solo el texto crudo.
func Parse(root, raw string) (ports.WhoisRecord, error) {
	rec := ports.WhoisRecord{Domain: root, Raw: raw}

	info, err := whoisparser.Parse(raw)
	switch {
	case err == nil:
	case errors.Is(err, whoisparser.ErrNotFoundDomain):
		return ports.WhoisRecord{}, perrors.Wrapf(perrors.ErrNotFound, "%s is not registered", root)
	case errors.Is(err, whoisparser.ErrDomainLimitExceed):
		return ports.WhoisRecord{}, perrors.Wrapf(perrors.ErrRateLimit, "whois query limit for %s", root)
	default:
		return rec, nil
	}

	if d := info.Domain; d != nil {
		if d.Domain != "" {
			rec.Domain = strings.ToLower(d.Domain)
		}
		rec.Created = d.CreatedDate
		rec.Updated = d.UpdatedDate
		rec.Expires = d.ExpirationDate
		rec.NameServers = d.NameServers
		rec.Status = d.Status
	}
	if r := info.Registrar; r != nil {
		rec.Registrar = firstNonEmpty(r.Name, r.Organization)
	}
	if r := info.Registrant; r != nil {
		rec.Registrant = firstNonEmpty(r.Organization, r.Name)
	}
	return rec, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
