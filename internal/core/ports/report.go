// internal/core/ports/report.go
package ports

import (
	"context"

	"reconmcp/internal/core/domain"
)

// ReportHandle identifica un reporte en construcción. Es opaco para el
// orquestador; cada sink decide qué guarda dentro.
type ReportHandle struct {
	ID     string
	Target string
	// Dir es el directorio del reporte cuando el sink escribe a disco
	Dir string
}

// ReportSink persiste el resultado agregado de una sesión.
// El orden de llamadas es Init, (AppendSection|AppendImage)*, Finalize.
type ReportSink interface {
	Init(ctx context.Context, target string) (ReportHandle, error)
	AppendSection(ctx context.Context, h ReportHandle, title, text string) error
	AppendImage(ctx context.Context, h ReportHandle, caption string, data []byte) error
	Finalize(ctx context.Context, h ReportHandle) (string, error)
}

// SummaryWriter es implementado por sinks que además emiten un resumen
// legible por máquina. El orquestador lo detecta por type assertion.
type SummaryWriter interface {
	WriteSummary(ctx context.Context, h ReportHandle, view domain.SessionView) error
}
