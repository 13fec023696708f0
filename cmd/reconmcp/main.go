// cmd/reconmcp/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"reconmcp/internal/adapters/output"
	"reconmcp/internal/mcpserver"
	"reconmcp/internal/platform/config"
	"reconmcp/internal/platform/logx"
	"reconmcp/internal/platform/toolcheck"
	"reconmcp/internal/platform/ui"
)

var (
	// Rellenables con -ldflags en build
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// 1. Config centralizada: defaults < YAML < env < flags
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: configuration load failed: %v\n", err)
		os.Exit(2)
	}
	if cfg.PrintVersion {
		config.PrintVersion(version, commit, date)
	}

	mode := "serve"
	if len(cfg.Args) > 0 {
		mode = cfg.Args[0]
	}

	// 2. Logger compartido (stderr o fichero rotado; nunca stdout)
	logger := newLogger(cfg)

	logger.Info("reconmcp starting",
		"version", version,
		"commit", commit,
		"mode", mode,
		"portscan", cfg.Adapters.PortScanner,
	)

	switch mode {
	case "serve":
		os.Exit(runServe(cfg, logger))
	case "scan":
		os.Exit(runScan(cfg, logger))
	case "doctor":
		os.Exit(runDoctor(cfg, logger, os.Stdout))
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q (valid: serve, scan, doctor)\n", mode)
		os.Exit(2)
	}
}

func newLogger(cfg config.Config) logx.Logger {
	lvl := logx.ParseLevel(cfg.Log.Level)
	if cfg.Log.File != "" {
		return logx.NewFile(logx.FileOptions{Path: cfg.Log.File, Compress: true}, lvl)
	}
	return logx.NewWithLevel(lvl)
}

// runServe sirve las tools MCP sobre stdio hasta EOF o señal.
func runServe(cfg config.Config, logger logx.Logger) int {
	ctx, cancel := rootContextWithSignals(0)
	defer cancel()

	a, err := buildApp(cfg, logger, ui.NewNoopPresenter())
	if err != nil {
		logger.Err(err, "phase", "build")
		return 2
	}
	defer a.close()
	startMetrics(a)

	srv := mcpserver.New(a.serverConfig(version), a.deps)
	if err := srv.RunStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Err(err, "phase", "serve")
		return 1
	}
	logger.Info("reconmcp stopped")
	return 0
}

// runScan ejecuta el pipeline una vez contra cfg.Target.
func runScan(cfg config.Config, logger logx.Logger) int {
	if cfg.Target == "" && len(cfg.Args) > 1 {
		cfg.Target = cfg.Args[1]
	}
	if cfg.Target == "" {
		fmt.Fprintln(os.Stderr, "Error: target is required")
		fmt.Fprintln(os.Stderr, "Usage: reconmcp scan -t <target>")
		fmt.Fprintln(os.Stderr, "Try: reconmcp -h for help")
		return 2
	}

	mode, _ := ui.ParseUIMode(cfg.UIMode)
	presenter := ui.New(mode)
	defer presenter.Close()

	// con UI visual los logs informativos estorban
	if mode == ui.UIModePretty && cfg.Log.File == "" {
		logger.SetLevel(logx.LevelWarn)
	}

	ctx, cancel := rootContextWithSignals(cfg.Recon.SessionTimeoutS)
	defer cancel()

	a, err := buildApp(cfg, logger, presenter)
	if err != nil {
		logger.Err(err, "phase", "build")
		return 2
	}
	defer a.close()
	startMetrics(a)

	start := time.Now()
	session, runErr := a.deps.Recon.Run(ctx, cfg.Target)
	elapsed := time.Since(start)

	if session != nil && session.Aborted() {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return 2
	}
	if runErr != nil && session == nil {
		logger.Err(runErr, "phase", "run")
		return 1
	}

	if mode != ui.UIModeQuiet {
		if err := output.WriteTable(os.Stdout, session.View()); err != nil {
			logger.Err(err, "phase", "output")
			return 1
		}
	}
	if session.ReportPath != "" {
		fmt.Fprintf(os.Stdout, "Report: %s\n", session.ReportPath)
	}

	logger.Info("reconmcp finished",
		"session", session.ID,
		"elapsed_ms", elapsed.Milliseconds(),
		"open_ports", len(session.Facts().Ports()),
	)
	if runErr != nil {
		logger.Err(runErr, "phase", "run", "elapsed_ms", elapsed.Milliseconds())
		return 1
	}
	return 0
}

// runDoctor comprueba las herramientas externas. Falla si falta alguna
// requerida.
func runDoctor(cfg config.Config, logger logx.Logger, out io.Writer) int {
	ctx, cancel := rootContextWithSignals(60)
	defer cancel()

	checker := toolcheck.New(
		toolcheck.WithPath("nmap", cfg.Adapters.NmapPath),
		toolcheck.WithPath("hydra", cfg.Adapters.HydraPath),
		toolcheck.WithPath("chromium", cfg.Adapters.ChromePath),
		toolcheck.WithLogger(logger),
	)
	return printDoctor(out, checker.Check(ctx), cfg.Adapters.PortScanner)
}

func printDoctor(out io.Writer, results []toolcheck.Result, portscan string) int {
	code := 0
	fmt.Fprintln(out, "reconmcp doctor")
	for _, r := range results {
		line := fmt.Sprintf("  %-10s %-9s", r.Name, r.Status)
		if r.Version != "" {
			line += " " + r.Version
		}
		if r.Message != "" && !r.OK() {
			line += "  " + r.Message
		}
		fmt.Fprintln(out, line)

		// nmap solo es obligatorio si es el scanner configurado
		required := r.Tool.Required && !(r.Name == "nmap" && portscan != "nmap")
		if required && !r.OK() {
			code = 1
		}
	}
	if code != 0 {
		fmt.Fprintln(out, "\nSome required tools are missing.")
	}
	return code
}

func startMetrics(a *app) {
	if a.metrics == nil {
		return
	}
	if _, err := a.metrics.Serve(a.cfg.Metrics.Addr); err != nil {
		a.logger.Warn("metrics disabled", "addr", a.cfg.Metrics.Addr, "error", err.Error())
	}
}

// rootContextWithSignals creates a root context with optional timeout and signal cancellation.
// Returns a context and cancel function that cleans up all resources (signals, goroutines).
func rootContextWithSignals(timeoutSeconds int) (context.Context, context.CancelFunc) {
	var base context.Context
	var baseCancel context.CancelFunc

	if timeoutSeconds > 0 {
		base, baseCancel = context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)
	} else {
		base, baseCancel = context.WithCancel(context.Background())
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-ch:
			baseCancel()
		case <-base.Done():
		}
	}()

	cleanupCancel := func() {
		signal.Stop(ch)
		baseCancel()
	}

	return base, cleanupCancel
}
