// internal/platform/ui/noop_presenter.go
package ui

// NoopPresenter es una implementación vacía del Presenter
// que no produce ninguna salida. Se usa en modo MCP, donde stdout
// pertenece al protocolo.
type NoopPresenter struct{}

// NewNoopPresenter crea una instancia del presenter sin salida
func NewNoopPresenter() *NoopPresenter {
	return &NoopPresenter{}
}

func (n *NoopPresenter) Start(info ScanInfo)          {}
func (n *NoopPresenter) StartStage(stage StageInfo)   {}
func (n *NoopPresenter) FinishStage(res StageOutcome) {}
func (n *NoopPresenter) Info(msg string)              {}
func (n *NoopPresenter) Warning(msg string)           {}
func (n *NoopPresenter) Error(msg string)             {}
func (n *NoopPresenter) Finish(stats ScanStats)       {}
func (n *NoopPresenter) Close() error                 { return nil }
