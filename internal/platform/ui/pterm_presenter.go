// internal/platform/ui/pterm_presenter.go
package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// PTermPresenter implementa Presenter usando la biblioteca pterm
// para renderizar spinners, colores y símbolos en la terminal.
type PTermPresenter struct {
	mu sync.Mutex

	totalStages   int
	scanStartTime time.Time
	scanInfo      ScanInfo

	// spinner del stage en curso, nil entre stages
	spinner *pterm.SpinnerPrinter
}

// NewPTermPresenter crea una nueva instancia del presenter con pterm
func NewPTermPresenter() *PTermPresenter {
	return &PTermPresenter{}
}

// Start inicia la presentación mostrando el header de la sesión
func (p *PTermPresenter) Start(info ScanInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.scanInfo = info
	p.totalStages = info.TotalStages
	p.scanStartTime = time.Now()

	pterm.DefaultHeader.
		WithBackgroundStyle(pterm.NewStyle(pterm.BgCyan)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Println("reconmcp - Reconnaissance Pipeline")

	pterm.Println()

	infoPanel := pterm.DefaultBox.
		WithTitle("Target Information").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(pterm.NewStyle(pterm.FgCyan))

	targetInfo := fmt.Sprintf("%s Target: %s\n", IconTarget, pterm.Cyan(info.Target))
	targetInfo += fmt.Sprintf("   Kind: %s\n", pterm.Yellow(info.Kind))
	targetInfo += fmt.Sprintf("%s Budget: %ds\n", IconTime, info.TimeoutSeconds)
	targetInfo += fmt.Sprintf("   Deep: %s\n", boolToString(info.Deep))
	targetInfo += fmt.Sprintf("%s Stages: %d", IconStage, info.TotalStages)

	infoPanel.Println(targetInfo)
	pterm.Println(pterm.LightBlue(SeparatorHeavy))
}

// StartStage muestra el título del stage y arranca un spinner
func (p *PTermPresenter) StartStage(stage StageInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	title := fmt.Sprintf("Stage %d/%d: %s", stage.Number, stage.TotalStages, stage.Name)
	spinner, err := pterm.DefaultSpinner.
		WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithRemoveWhenDone(true).
		Start(title)
	if err == nil {
		p.spinner = spinner
	}
}

// FinishStage reemplaza el spinner por una línea con el estado final
func (p *PTermPresenter) FinishStage(res StageOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.spinner != nil {
		_ = p.spinner.Stop()
		p.spinner = nil
	}

	line := fmt.Sprintf("%s %-18s %s",
		res.Status.Style().Sprint(res.Status.Symbol()),
		res.Name,
		pterm.Gray(formatDuration(res.Duration)),
	)
	if res.Detail != "" {
		line += "  " + res.Status.Style().Sprint(res.Detail)
	}
	pterm.Println(line)
}

func (p *PTermPresenter) Info(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pterm.Info.Println(msg)
}

func (p *PTermPresenter) Warning(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pterm.Warning.Println(msg)
}

func (p *PTermPresenter) Error(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pterm.Error.Println(msg)
}

// Finish muestra el resumen de la sesión
func (p *PTermPresenter) Finish(stats ScanStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.Println(pterm.LightBlue(SeparatorHeavy))

	statsPanel := pterm.DefaultBox.
		WithTitle(IconStats + " Summary").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(pterm.NewStyle(pterm.FgGreen))

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Duration: %s\n", IconTime, pterm.Green(formatDuration(stats.TotalDuration)))
	fmt.Fprintf(&sb, "   Stages run: %s\n", pterm.Green(fmt.Sprintf("%d", stats.StagesRun)))
	fmt.Fprintf(&sb, "   Skipped: %s\n", pterm.Gray(fmt.Sprintf("%d", stats.StagesSkipped)))
	if stats.StagesFailed > 0 {
		fmt.Fprintf(&sb, "%s Failed: %s\n", IconWarning, pterm.Red(fmt.Sprintf("%d", stats.StagesFailed)))
	}
	fmt.Fprintf(&sb, "   Open ports: %s", pterm.Cyan(fmt.Sprintf("%d", stats.OpenPorts)))
	if len(stats.Technologies) > 0 {
		fmt.Fprintf(&sb, "\n   Technologies: %s", pterm.Yellow(strings.Join(stats.Technologies, ", ")))
	}
	if stats.ReportPath != "" {
		fmt.Fprintf(&sb, "\n%s Report: %s", IconReport, stats.ReportPath)
	}
	statsPanel.Println(sb.String())
}

// Close detiene cualquier spinner pendiente
func (p *PTermPresenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spinner != nil {
		_ = p.spinner.Stop()
		p.spinner = nil
	}
	return nil
}

func boolToString(b bool) string {
	if b {
		return pterm.Green("ON")
	}
	return pterm.Gray("OFF")
}
