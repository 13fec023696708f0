// internal/core/usecases/report_memory.go
package usecases

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"reconmcp/internal/core/ports"
)

// MemorySink implementa ports.ReportSink sin tocar disco. El orquestador lo
// usa cuando no hay sink configurado o la ejecución no pide persistir.
type MemorySink struct {
	mu      sync.Mutex
	reports map[string]*strings.Builder
	now     func() time.Time
}

// NewMemorySink crea un sink en memoria.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		reports: make(map[string]*strings.Builder),
		now:     time.Now,
	}
}

func (m *MemorySink) Init(ctx context.Context, target string) (ports.ReportHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := fmt.Sprintf("%s#%d", target, len(m.reports)+1)
	sb := &strings.Builder{}
	sb.WriteString(MarkdownHeader(target, m.now()))
	m.reports[id] = sb
	return ports.ReportHandle{ID: id, Target: target}, nil
}

func (m *MemorySink) AppendSection(ctx context.Context, h ports.ReportHandle, title, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sb, ok := m.reports[h.ID]
	if !ok {
		return fmt.Errorf("unknown report %q", h.ID)
	}
	sb.WriteString(MarkdownSection(title, text))
	return nil
}

// AppendImage deja solo una referencia: las imágenes no se guardan en memoria.
func (m *MemorySink) AppendImage(ctx context.Context, h ports.ReportHandle, caption string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sb, ok := m.reports[h.ID]
	if !ok {
		return fmt.Errorf("unknown report %q", h.ID)
	}
	fmt.Fprintf(sb, "### Screenshot: %s\n\n(%d bytes, not persisted)\n\n", caption, len(data))
	return nil
}

// Finalize no devuelve ruta; el markdown se obtiene con Markdown.
func (m *MemorySink) Finalize(ctx context.Context, h ports.ReportHandle) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reports[h.ID]; !ok {
		return "", fmt.Errorf("unknown report %q", h.ID)
	}
	return "", nil
}

// Markdown devuelve el documento acumulado para h y lo libera.
func (m *MemorySink) Markdown(h ports.ReportHandle) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	sb, ok := m.reports[h.ID]
	if !ok {
		return ""
	}
	delete(m.reports, h.ID)
	return sb.String()
}

// MarkdownHeader es la cabecera común de todos los reportes.
func MarkdownHeader(target string, at time.Time) string {
	return fmt.Sprintf("# Reconnaissance Report for %s\n\nScan Date: %s\n\n", target, at.Format("2006-01-02 15:04:05"))
}

// MarkdownSection renderiza "## title" seguido de un bloque fenced.
func MarkdownSection(title, text string) string {
	text = strings.TrimRight(text, "\n")
	return fmt.Sprintf("## %s\n\n```\n%s\n```\n\n", title, text)
}
