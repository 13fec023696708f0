// internal/core/ports/notifier.go
package ports

import (
	"context"
	"time"

	"reconmcp/internal/core/domain"
)

// Notifier es el port para notificaciones de eventos del sistema.
// Implementa el patrón Observer para desacoplar la orquestación
// de los mecanismos de observación (métricas, logs de auditoría, etc.).
type Notifier interface {
	// Notify envía una notificación para un evento
	Notify(ctx context.Context, event Event) error

	// Close cierra el notifier y libera recursos
	Close() error
}

// Event representa un evento del sistema.
type Event struct {
	// Type tipo de evento
	Type EventType

	// Timestamp momento del evento
	Timestamp time.Time

	// Source componente que generó el evento
	Source string

	// Target objetivo relacionado (opcional)
	Target string

	// Data datos específicos del evento
	Data interface{}

	// Severity severidad del evento
	Severity EventSeverity
}

// EventType define los tipos de eventos del sistema.
type EventType string

const (
	// Session events
	EventTypeSessionStarted   EventType = "session.started"
	EventTypeSessionCompleted EventType = "session.completed"
	EventTypeSessionAborted   EventType = "session.aborted"

	// Stage events
	EventTypeStageStarted   EventType = "stage.started"
	EventTypeStageCompleted EventType = "stage.completed"
	EventTypeStageFailed    EventType = "stage.failed"
	EventTypeStageSkipped   EventType = "stage.skipped"

	// Credential events
	EventTypeAttempt EventType = "credential.attempt"

	// Tool events
	EventTypeToolCalled EventType = "tool.called"
)

// EventSeverity define la severidad de un evento.
type EventSeverity string

const (
	EventSeverityInfo    EventSeverity = "info"
	EventSeverityWarning EventSeverity = "warning"
	EventSeverityError   EventSeverity = "error"
)

// NewEvent crea un nuevo evento.
func NewEvent(eventType EventType, source string, data interface{}) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
		Severity:  EventSeverityInfo,
	}
}

// WithTarget devuelve una copia del evento con el target asignado.
func (e Event) WithTarget(target string) Event {
	e.Target = target
	return e
}

// WithSeverity devuelve una copia del evento con la severidad asignada.
func (e Event) WithSeverity(s EventSeverity) Event {
	e.Severity = s
	return e
}

// SessionStartedEvent datos para el inicio de una sesión.
type SessionStartedEvent struct {
	SessionID string
	Target    domain.Target
}

// SessionCompletedEvent datos para el fin de una sesión.
type SessionCompletedEvent struct {
	SessionID string
	Target    domain.Target
	Duration  time.Duration
	OpenPorts int
}

// StageEvent datos de un stage terminado (o saltado).
type StageEvent struct {
	SessionID string
	Stage     domain.StageName
	Status    domain.StageStatus
	Duration  time.Duration
	Err       error
}

// AttemptEvent datos de un intento de login.
type AttemptEvent struct {
	Cracker string
	Outcome domain.AttemptOutcome
}

// ToolEvent datos de una invocación de tool MCP.
type ToolEvent struct {
	Tool     string
	IsError  bool
	Duration time.Duration
}
