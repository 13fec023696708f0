// internal/adapters/output/markdown.go
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	"reconmcp/internal/core/usecases"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
)

const (
	reportFile     = "report.md"
	screenshotsDir = "screenshots"
)

// sanitizeTargetName convierte un target en un nombre de carpeta válido.
// Ejemplo: "10.0.0.0/24" -> "10_0_0_0_24"
func sanitizeTargetName(target string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, target)
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		return "target"
	}
	return sanitized
}

// FileSink implementa ports.ReportSink escribiendo
// <dir>/<target>_<fecha>/report.md y las capturas en screenshots/.
type FileSink struct {
	dir    string
	logger logx.Logger
	now    func() time.Time

	mu   sync.Mutex
	open map[string]*os.File
	shot map[string]int
}

// NewFileSink crea un sink bajo dir (default "reports").
func NewFileSink(dir string, logger logx.Logger) *FileSink {
	if dir == "" {
		dir = "reports"
	}
	if logger == nil {
		logger = logx.NewDiscard()
	}
	return &FileSink{
		dir:    dir,
		logger: logger.With("component", "report"),
		now:    time.Now,
		open:   make(map[string]*os.File),
		shot:   make(map[string]int),
	}
}

// Dir devuelve el directorio base.
func (s *FileSink) Dir() string { return s.dir }

func (s *FileSink) Init(ctx context.Context, target string) (ports.ReportHandle, error) {
	now := s.now()
	base := fmt.Sprintf("%s_%s", sanitizeTargetName(target), now.Format("2006-01-02_15-04-05"))

	s.mu.Lock()
	defer s.mu.Unlock()

	// dos sesiones del mismo target en el mismo segundo no comparten carpeta
	dir := filepath.Join(s.dir, base)
	for i := 2; ; i++ {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			break
		}
		dir = filepath.Join(s.dir, fmt.Sprintf("%s_%d", base, i))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ports.ReportHandle{}, fmt.Errorf("failed to create report directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, reportFile))
	if err != nil {
		return ports.ReportHandle{}, fmt.Errorf("failed to create report file: %w", err)
	}
	if _, err := f.WriteString(usecases.MarkdownHeader(target, now)); err != nil {
		f.Close()
		return ports.ReportHandle{}, fmt.Errorf("failed to write report header: %w", err)
	}

	h := ports.ReportHandle{ID: dir, Target: target, Dir: dir}
	s.open[h.ID] = f
	s.logger.Debug("report opened", "dir", dir)
	return h, nil
}

func (s *FileSink) AppendSection(ctx context.Context, h ports.ReportHandle, title, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.file(h)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(usecases.MarkdownSection(title, text)); err != nil {
		return fmt.Errorf("failed to write section %q: %w", title, err)
	}
	return nil
}

// AppendImage guarda el PNG en screenshots/ y lo enlaza desde el markdown.
func (s *FileSink) AppendImage(ctx context.Context, h ports.ReportHandle, caption string, data []byte) error {
	if len(data) == 0 {
		return perrors.Wrap(perrors.ErrInvalidInput, "empty image")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.file(h)
	if err != nil {
		return err
	}

	dir := filepath.Join(h.Dir, screenshotsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create screenshots directory: %w", err)
	}
	s.shot[h.ID]++
	name := fmt.Sprintf("%02d_%s.png", s.shot[h.ID], sanitizeTargetName(caption))
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}

	_, err = fmt.Fprintf(f, "### Screenshot: %s\n\n![%s](%s/%s)\n\n", caption, caption, screenshotsDir, name)
	return err
}

// Finalize cierra el fichero y devuelve la ruta del report.md.
func (s *FileSink) Finalize(ctx context.Context, h ports.ReportHandle) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.file(h)
	if err != nil {
		return "", err
	}
	delete(s.open, h.ID)
	delete(s.shot, h.ID)
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close report: %w", err)
	}

	path := filepath.Join(h.Dir, reportFile)
	s.logger.Info("report written", "path", path)
	return path, nil
}

// WriteSummary implementa ports.SummaryWriter.
func (s *FileSink) WriteSummary(ctx context.Context, h ports.ReportHandle, view domain.SessionView) error {
	if h.Dir == "" {
		return perrors.Wrap(perrors.ErrInvalidInput, "report handle without directory")
	}
	_, err := WriteSummaryJSON(h.Dir, view)
	return err
}

func (s *FileSink) file(h ports.ReportHandle) (*os.File, error) {
	f, ok := s.open[h.ID]
	if !ok {
		return nil, fmt.Errorf("unknown report %q", h.ID)
	}
	return f, nil
}
