// internal/platform/ui/presenter.go
package ui

import (
	"time"
)

// UIMode define el modo de visualización
type UIMode string

const (
	UIModePretty UIMode = "pretty" // pterm con colores y cajas (default en TTY)
	UIModeRaw    UIMode = "raw"    // logfmt o JSON, una línea por evento
	UIModeQuiet  UIMode = "quiet"  // Sin UI visual
)

// ParseUIMode normaliza el valor recibido por flag o env.
func ParseUIMode(s string) (UIMode, bool) {
	switch UIMode(s) {
	case UIModePretty, UIModeRaw, UIModeQuiet:
		return UIMode(s), true
	default:
		return UIModePretty, false
	}
}

// Presenter define la interfaz para presentar el progreso de una sesión
// de reconocimiento. El orquestador llama a los métodos en orden:
// Start, (StartStage, FinishStage)*, Finish, Close.
type Presenter interface {
	// Start inicia la presentación con información de la sesión
	Start(info ScanInfo)

	// StartStage notifica el inicio de un stage
	StartStage(stage StageInfo)

	// FinishStage notifica el estado final de un stage
	FinishStage(result StageOutcome)

	// Info muestra un mensaje informativo
	Info(msg string)

	// Warning muestra una advertencia
	Warning(msg string)

	// Error muestra un error
	Error(msg string)

	// Finish finaliza la presentación con estadísticas finales
	Finish(stats ScanStats)

	// Close limpia recursos del presenter
	Close() error
}

// ScanInfo contiene información inicial de la sesión
type ScanInfo struct {
	SessionID      string
	Target         string
	Kind           string
	TimeoutSeconds int
	TotalStages    int
	Deep           bool
}

// StageInfo contiene información de un stage
type StageInfo struct {
	Number      int
	TotalStages int
	Name        string
}

// StageOutcome describe cómo terminó un stage.
type StageOutcome struct {
	Number   int
	Name     string
	Status   Status
	Duration time.Duration
	Detail   string
}

// ScanStats contiene estadísticas finales de la sesión
type ScanStats struct {
	TotalDuration time.Duration
	StagesRun     int
	StagesSkipped int
	StagesFailed  int
	OpenPorts     int
	Technologies  []string
	ReportPath    string
}
