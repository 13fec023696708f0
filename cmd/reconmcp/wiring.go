// cmd/reconmcp/wiring.go
package main

import (
	"fmt"
	"time"

	"reconmcp/internal/adapters/connectscan"
	"reconmcp/internal/adapters/dnsprobe"
	"reconmcp/internal/adapters/ftpprobe"
	"reconmcp/internal/adapters/hydra"
	"reconmcp/internal/adapters/ipinfo"
	"reconmcp/internal/adapters/metrics"
	"reconmcp/internal/adapters/nmap"
	"reconmcp/internal/adapters/output"
	"reconmcp/internal/adapters/screenshot"
	"reconmcp/internal/adapters/sshprobe"
	"reconmcp/internal/adapters/vuln"
	"reconmcp/internal/adapters/web"
	"reconmcp/internal/adapters/whois"
	"reconmcp/internal/core/ports"
	"reconmcp/internal/core/usecases"
	"reconmcp/internal/mcpserver"
	"reconmcp/internal/platform/config"
	"reconmcp/internal/platform/logx"
	"reconmcp/internal/platform/rate"
	"reconmcp/internal/platform/registry"
	"reconmcp/internal/platform/toolcheck"
	"reconmcp/internal/platform/ui"
)

// crackerNames son las variantes que se exponen a credential_brute_force.
var crackerNames = []string{"ssh", "ftp", "hydra"}

// newScannerRegistry registra las variantes de port scanner.
func newScannerRegistry(logger logx.Logger) *registry.Registry[ports.PortScanner] {
	r := registry.New[ports.PortScanner]("portscan", logger)
	r.MustRegister("nmap", "nmap subprocess with XML output", func(opts registry.Options, l logx.Logger) (ports.PortScanner, error) {
		return nmap.New(nmap.Options{
			ExecPath: registry.GetStringOption(opts, "exec_path", "nmap"),
			Logger:   l,
		}), nil
	})
	r.MustRegister("connect", "in-process TCP connect scan", func(opts registry.Options, l logx.Logger) (ports.PortScanner, error) {
		return connectscan.New(connectscan.Options{
			Workers:     registry.GetIntOption(opts, "workers", 100),
			DialTimeout: registry.GetDurationOption(opts, "dial_timeout", time.Second),
			Logger:      l,
		}), nil
	})
	return r
}

// newCrackerRegistry registra las variantes de cracker.
func newCrackerRegistry(logger logx.Logger) *registry.Registry[ports.Cracker] {
	r := registry.New[ports.Cracker]("cracker", logger)
	r.MustRegister("ssh", "native SSH password login", func(opts registry.Options, _ logx.Logger) (ports.Cracker, error) {
		return sshprobe.NewCracker(registry.GetDurationOption(opts, "timeout", 5*time.Second)), nil
	})
	r.MustRegister("ftp", "native FTP USER/PASS login", func(opts registry.Options, _ logx.Logger) (ports.Cracker, error) {
		return ftpprobe.NewCracker(registry.GetDurationOption(opts, "timeout", 5*time.Second)), nil
	})
	r.MustRegister("hydra", "one hydra process per attempt", func(opts registry.Options, l logx.Logger) (ports.Cracker, error) {
		return hydra.New(hydra.Options{
			ExecPath: registry.GetStringOption(opts, "exec_path", "hydra"),
			Logger:   l,
		}), nil
	})
	return r
}

// app agrupa los colaboradores construidos a partir de la configuración.
type app struct {
	cfg     config.Config
	logger  logx.Logger
	metrics *metrics.Notifier
	tools   *toolcheck.Checker
	deps    mcpserver.Deps
}

// buildApp construye adapters, casos de uso y orquestador. presenter solo
// se usa en modo scan; en modo servidor stdout pertenece al transporte.
func buildApp(cfg config.Config, logger logx.Logger, presenter ui.Presenter) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var observers []ports.Notifier
	if cfg.Metrics.Addr != "" {
		a.metrics = metrics.New(logger)
		observers = append(observers, a.metrics)
	}

	scanner, err := newScannerRegistry(logger).Build(cfg.Adapters.PortScanner, registry.Options{
		"exec_path":    cfg.Adapters.NmapPath,
		"workers":      100,
		"dial_timeout": time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build port scanner: %w", err)
	}

	prober := web.New(web.Options{
		Timeout:   cfg.HTTPTimeout(),
		Workers:   cfg.Recon.Workers,
		UserAgent: cfg.Adapters.UserAgent,
		Logger:    logger,
	})
	var shooter ports.Screenshotter
	if cfg.Adapters.Screenshots {
		capturer := screenshot.New(screenshot.Options{
			ExecPath:  cfg.Adapters.ChromePath,
			UserAgent: cfg.Adapters.UserAgent,
			Logger:    logger,
		})
		if capturer.Available() {
			shooter = capturer
		} else {
			logger.Warn("no chrome/chromium found, screenshots disabled")
		}
	}

	resolver := dnsprobe.New(dnsprobe.Options{
		Server:  cfg.Adapters.DNSServer,
		Workers: cfg.Recon.DNSWorkers,
		Logger:  logger,
	})
	whoisClient := whois.New(whois.Options{Timeout: cfg.HTTPTimeout(), Logger: logger})
	nvd := vuln.New(vuln.Options{
		BaseURL:  cfg.Adapters.NVDURL,
		APIKey:   cfg.Adapters.NVDAPIKey,
		CacheTTL: cfg.VulnCacheTTL(),
		Timeout:  cfg.HTTPTimeout(),
		Logger:   logger,
	})

	ipInfo := ipinfo.New(ipinfo.Options{
		BaseURL: cfg.Adapters.IPInfoURL,
		Token:   cfg.Adapters.IPInfoToken,
		Timeout: cfg.HTTPTimeout(),
		Logger:  logger,
	})

	webAnalyzer := usecases.NewWebAnalyzer(prober, shooter, logger)
	dnsInvestigator := usecases.NewDNSInvestigator(resolver, whoisClient, logger)
	osint := usecases.NewOSINTCollector(prober, ipInfo, webAnalyzer, logger)

	crackers := newCrackerRegistry(logger)
	bruteForcers := make(map[string]*usecases.BruteForcer, len(crackerNames))
	for _, name := range crackerNames {
		c, err := crackers.Build(name, registry.Options{
			"exec_path": cfg.Adapters.HydraPath,
			"timeout":   cfg.AttemptTimeout(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("build cracker %s: %w", name, err)
		}
		bruteForcers[name] = usecases.NewBruteForcer(usecases.BruteForcerOptions{
			Cracker:        c,
			AttemptTimeout: cfg.AttemptTimeout(),
			Limiter:        rate.NewOptional(cfg.Brute.RatePerSecond, 1),
			Observers:      observers,
			Logger:         logger,
		})
	}

	recon := usecases.NewReconOrchestrator(usecases.ReconOptions{
		PortScanner:     scanner,
		WebAnalyzer:     webAnalyzer,
		DNSInvestigator: dnsInvestigator,
		VulnLookup:      nvd,
		ReportSink:      output.NewFileSink(cfg.Report.Dir, logger),
		Presenter:       presenter,
		Logger:          logger,
		Observers:       observers,
		SessionTimeout:  cfg.SessionTimeout(),
		StageTimeouts: usecases.StageTimeouts{
			Scan: cfg.ScanTimeout(),
			DNS:  cfg.DNSTimeout(),
			Web:  cfg.WebTimeout(),
		},
		Defaults: usecases.RunOptions{
			Profile:    cfg.Recon.PortProfile,
			Deep:       cfg.Recon.Deep,
			Screenshot: cfg.Adapters.Screenshots,
			Persist:    true,
		},
		WebWordlist: cfg.Recon.WebWordlist,
	})

	a.tools = toolcheck.New(
		toolcheck.WithPath("nmap", cfg.Adapters.NmapPath),
		toolcheck.WithPath("hydra", cfg.Adapters.HydraPath),
		toolcheck.WithPath("chromium", cfg.Adapters.ChromePath),
		toolcheck.WithLogger(logger),
	)

	a.deps = mcpserver.Deps{
		Scanner:      scanner,
		Web:          webAnalyzer,
		DNS:          dnsInvestigator,
		Resolver:     resolver,
		Whois:        whoisClient,
		Vuln:         nvd,
		FTP:          ftpprobe.New(ftpprobe.Options{Timeout: cfg.HTTPTimeout(), Logger: logger}),
		SSH:          usecases.NewSSHExplorer(sshprobe.New(sshprobe.Options{Timeout: cfg.HTTPTimeout(), Logger: logger}), logger),
		OSINT:        osint,
		BruteForcers: bruteForcers,
		Recon:        recon,
		Tools:        a.tools,
		Observers:    observers,
		Logger:       logger,
	}

	logger.Debug("adapters built",
		"portscan", scanner.Name(),
		"screenshots", shooter != nil,
		"crackers", len(bruteForcers),
		"metrics", a.metrics != nil,
	)
	return a, nil
}

// serverConfig traduce la configuración al servidor MCP.
func (a *app) serverConfig(version string) mcpserver.Config {
	return mcpserver.Config{
		Name:           a.cfg.Server.Name,
		Version:        version,
		ThrottleCalls:  a.cfg.Server.ThrottleCalls,
		ThrottleWindow: a.cfg.ThrottleWindow(),
		QuickTimeout:   a.cfg.QuickTimeout(),
		ScanTimeout:    a.cfg.ScanTimeout(),
		WebTimeout:     a.cfg.WebTimeout(),
		DNSTimeout:     a.cfg.DNSTimeout(),
		DownloadDir:    a.cfg.Report.DownloadDir,
	}
}

// close libera los recursos con estado (servidor de métricas).
func (a *app) close() {
	if a.metrics != nil {
		if err := a.metrics.Close(); err != nil {
			a.logger.Warn("failed to close metrics", "error", err.Error())
		}
	}
}
