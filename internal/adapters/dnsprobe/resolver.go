// Package dnsprobe implementa ports.DNSResolver con miekg/dns contra un
// resolver configurado, sin pasar por el resolver del sistema.
package dnsprobe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
	"reconmcp/internal/platform/workerpool"
)

// DefaultServer es el resolver usado cuando no se configura otro.
const DefaultServer = "8.8.8.8:53"

var recordTypes = map[string]uint16{
	"A":     dns.TypeA,
	"AAAA":  dns.TypeAAAA,
	"MX":    dns.TypeMX,
	"NS":    dns.TypeNS,
	"TXT":   dns.TypeTXT,
	"CNAME": dns.TypeCNAME,
	"SOA":   dns.TypeSOA,
	"PTR":   dns.TypePTR,
}

// Options configura el resolver.
type Options struct {
	// Server en formato host:port (default 8.8.8.8:53)
	Server string
	// Timeout por consulta (default 5s)
	Timeout time.Duration
	// Workers acota la enumeración de subdominios (default 10)
	Workers int
	Logger  logx.Logger
}

// Resolver consulta registros DNS por UDP, con reintento en TCP si la
// respuesta llega truncada.
type Resolver struct {
	server string
	udp    *dns.Client
	tcp    *dns.Client
	pool   *workerpool.Pool
	logger logx.Logger
}

// New crea un Resolver.
func New(opts Options) *Resolver {
	if opts.Server == "" {
		opts.Server = DefaultServer
	}
	if _, _, err := net.SplitHostPort(opts.Server); err != nil {
		opts.Server = net.JoinHostPort(opts.Server, "53")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	if opts.Logger == nil {
		opts.Logger = logx.NewDiscard()
	}
	logger := opts.Logger.With("adapter", "dns", "server", opts.Server)

	return &Resolver{
		server: opts.Server,
		udp:    &dns.Client{Net: "udp", Timeout: opts.Timeout},
		tcp:    &dns.Client{Net: "tcp", Timeout: opts.Timeout},
		pool:   workerpool.New(workerpool.Config{Workers: opts.Workers, Logger: logger, Name: "subdomains"}),
		logger: logger,
	}
}

func (r *Resolver) Name() string { return "dns" }

// Server devuelve el resolver configurado.
func (r *Resolver) Server() string { return r.server }

// Lookup consulta un tipo de registro. NXDOMAIN se devuelve como
// ErrNotFound; una respuesta vacía no es un error.
func (r *Resolver) Lookup(ctx context.Context, name, recordType string) ([]ports.DNSRecord, error) {
	qtype, ok := recordTypes[strings.ToUpper(recordType)]
	if !ok {
		return nil, perrors.Wrapf(perrors.ErrInvalidInput, "unsupported record type %q", recordType)
	}
	name = strings.TrimSuffix(strings.TrimSpace(name), ".")
	if name == "" {
		return nil, perrors.Wrap(perrors.ErrInvalidInput, "empty name")
	}

	msg, err := r.exchange(ctx, name, qtype)
	if err != nil {
		return nil, err
	}

	records := make([]ports.DNSRecord, 0, len(msg.Answer))
	for _, rr := range msg.Answer {
		if rr.Header().Rrtype != qtype {
			// CNAMEs intermedios de la cadena
			continue
		}
		if rec, ok := toRecord(rr); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Reverse resuelve los nombres PTR de una IP.
func (r *Resolver) Reverse(ctx context.Context, ip string) ([]string, error) {
	arpa, err := dns.ReverseAddr(strings.TrimSpace(ip))
	if err != nil {
		return nil, perrors.Wrapf(perrors.ErrInvalidInput, "invalid ip %q", ip)
	}

	msg, err := r.exchange(ctx, strings.TrimSuffix(arpa, "."), dns.TypePTR)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, rr := range msg.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			names = append(names, strings.TrimSuffix(ptr.Ptr, "."))
		}
	}
	return names, nil
}

// EnumerateSubdomains resuelve word.domain para cada palabra con
// concurrencia acotada. Solo se devuelven los nombres con registro A,
// ordenados alfabéticamente.
func (r *Resolver) EnumerateSubdomains(ctx context.Context, domainName string, words []string) ([]ports.Subdomain, error) {
	domainName = strings.TrimSuffix(strings.TrimSpace(domainName), ".")
	if domainName == "" {
		return nil, perrors.Wrap(perrors.ErrInvalidInput, "empty domain")
	}

	results := workerpool.Map(ctx, r.pool, words, func(ctx context.Context, word string) (ports.Subdomain, error) {
		fqdn := strings.ToLower(strings.TrimSpace(word)) + "." + domainName
		recs, err := r.Lookup(ctx, fqdn, "A")
		if err != nil {
			return ports.Subdomain{}, err
		}
		sub := ports.Subdomain{Name: fqdn}
		for _, rec := range recs {
			sub.Addresses = append(sub.Addresses, rec.Value)
		}
		return sub, nil
	})

	var found []ports.Subdomain
	transportErrors := 0
	for _, res := range results {
		if res.Err != nil {
			if !perrors.IsNotFound(res.Err) {
				transportErrors++
			}
			continue
		}
		if len(res.Value.Addresses) > 0 {
			found = append(found, res.Value)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })

	r.logger.Debug("subdomain enumeration completed",
		"domain", domainName,
		"candidates", len(words),
		"found", len(found),
		"errors", transportErrors,
	)

	if err := ctx.Err(); err != nil && len(found) == 0 {
		return nil, &domain.ProbeTimeoutError{Probe: "dns", Err: err}
	}
	if len(words) > 0 && transportErrors == len(words) {
		return nil, &domain.ProbeTransportError{Probe: "dns", Err: fmt.Errorf("all %d lookups failed", transportErrors)}
	}
	return found, nil
}

func (r *Resolver) exchange(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(name), qtype)
	req.RecursionDesired = true

	resp, _, err := r.udp.ExchangeContext(ctx, req, r.server)
	if err == nil && resp.Truncated {
		resp, _, err = r.tcp.ExchangeContext(ctx, req, r.server)
	}
	if err != nil {
		return nil, classify(ctx, err)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return resp, nil
	case dns.RcodeNameError:
		return nil, perrors.Wrapf(perrors.ErrNotFound, "%s: NXDOMAIN", name)
	default:
		return nil, &domain.ProbeTransportError{
			Probe: "dns",
			Err:   perrors.Wrapf(perrors.ErrServiceUnavailable, "%s: %s", name, dns.RcodeToString[resp.Rcode]),
		}
	}
}

func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if perrors.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.ProbeTimeoutError{Probe: "dns", Err: err}
	}
	return &domain.ProbeTransportError{Probe: "dns", Err: err}
}

// toRecord normaliza un RR a ports.DNSRecord.
func toRecord(rr dns.RR) (ports.DNSRecord, bool) {
	h := rr.Header()
	rec := ports.DNSRecord{
		Name: strings.TrimSuffix(h.Name, "."),
		Type: dns.TypeToString[h.Rrtype],
		TTL:  h.Ttl,
	}
	switch v := rr.(type) {
	case *dns.A:
		rec.Value = v.A.String()
	case *dns.AAAA:
		rec.Value = v.AAAA.String()
	case *dns.MX:
		rec.Value = fmt.Sprintf("%d %s", v.Preference, strings.TrimSuffix(v.Mx, "."))
	case *dns.NS:
		rec.Value = strings.TrimSuffix(v.Ns, ".")
	case *dns.CNAME:
		rec.Value = strings.TrimSuffix(v.Target, ".")
	case *dns.PTR:
		rec.Value = strings.TrimSuffix(v.Ptr, ".")
	case *dns.TXT:
		rec.Value = strings.Join(v.Txt, "")
	case *dns.SOA:
		rec.Value = fmt.Sprintf("%s %s %d %d %d %d %d",
			strings.TrimSuffix(v.Ns, "."), strings.TrimSuffix(v.Mbox, "."),
			v.Serial, v.Refresh, v.Retry, v.Expire, v.Minttl)
	default:
		return rec, false
	}
	return rec, true
}
