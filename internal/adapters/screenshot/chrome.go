// Package screenshot implementa ports.Screenshotter con Chrome headless
// vía chromedp.
package screenshot

import (
	"context"
	"errors"
	"net/url"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"reconmcp/internal/core/domain"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
)

// chromeCandidates son los nombres que se buscan en PATH cuando no se
// configura ExecPath.
var chromeCandidates = []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "headless-shell"}

// Options configura el capturador.
type Options struct {
	// ExecPath del navegador (vacío = autodetección de chromedp)
	ExecPath string
	// Timeout por captura (default 30s)
	Timeout time.Duration
	// Width x Height del viewport inicial (default 1920x1080)
	Width, Height int
	// Settle es la espera tras la carga para JS tardío (default 2s)
	Settle    time.Duration
	UserAgent string
	Logger    logx.Logger
}

// Capturer lanza un navegador nuevo por captura. Es lento pero no deja
// estado compartido entre sesiones.
type Capturer struct {
	opts   Options
	logger logx.Logger
}

// New crea un Capturer.
func New(opts Options) *Capturer {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1920, 1080
	}
	if opts.Settle <= 0 {
		opts.Settle = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logx.NewDiscard()
	}
	return &Capturer{opts: opts, logger: opts.Logger.With("adapter", "screenshot")}
}

func (c *Capturer) Name() string { return "chrome" }

// Available reporta si hay un navegador utilizable.
func (c *Capturer) Available() bool {
	if c.opts.ExecPath != "" {
		_, err := exec.LookPath(c.opts.ExecPath)
		return err == nil
	}
	for _, name := range chromeCandidates {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func (c *Capturer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(c.opts.Width, c.opts.Height),
	)
	if c.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ExecPath))
	}
	if c.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.opts.UserAgent))
	}
	return opts
}

// Capture navega a rawURL y devuelve un PNG de la página completa.
func (c *Capturer) Capture(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, perrors.Wrapf(perrors.ErrInvalidInput, "screenshot needs an http(s) url, got %q", rawURL)
	}
	if !c.Available() {
		return nil, perrors.Wrap(perrors.ErrToolMissing, "chrome/chromium")
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	start := time.Now()
	var buf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(u.String()),
		chromedp.Sleep(c.opts.Settle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithCaptureBeyondViewport(true).
				WithFromSurface(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &domain.ProbeTimeoutError{Probe: "screenshot", Err: err}
		}
		return nil, &domain.ProbeTransportError{Probe: "screenshot", Err: err}
	}

	c.logger.Debug("screenshot captured", "url", u.String(), "bytes", len(buf), "duration", time.Since(start).String())
	return buf, nil
}
