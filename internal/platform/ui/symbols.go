// internal/platform/ui/symbols.go
package ui

import "github.com/pterm/pterm"

// Status es el estado visual con el que termina un stage.
type Status int

const (
	StatusSuccess Status = iota // run
	StatusSkipped               // predicado no cumplido
	StatusWarning               // failed-but-continue o sin presupuesto
	StatusError                 // sesión abortada
)

type statusLook struct {
	name   string
	symbol string
	color  pterm.Color
}

var statusLooks = map[Status]statusLook{
	StatusSuccess: {"success", "✓", pterm.FgGreen},
	StatusSkipped: {"skipped", "⊘", pterm.FgGray},
	StatusWarning: {"warning", "⚠", pterm.FgYellow},
	StatusError:   {"error", "✗", pterm.FgRed},
}

func (s Status) look() statusLook {
	if l, ok := statusLooks[s]; ok {
		return l
	}
	return statusLook{"unknown", "?", pterm.FgDefault}
}

func (s Status) String() string { return s.look().name }

// Symbol retorna el símbolo Unicode del estado.
func (s Status) Symbol() string { return s.look().symbol }

// Style retorna el estilo pterm del estado.
func (s Status) Style() *pterm.Style { return pterm.NewStyle(s.look().color) }

var (
	IconTarget  = "🎯"
	IconStage   = "🔄"
	IconWarning = "⚠"
	IconStats   = "📊"
	IconTime    = "⏱"
	IconReport  = "📄"

	SeparatorHeavy = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
)
