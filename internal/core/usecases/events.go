// internal/core/usecases/events.go
package usecases

import (
	"context"
	"sync"
	"time"

	"reconmcp/internal/core/ports"
	"reconmcp/internal/platform/logx"
)

const notificationTimeout = 5 * time.Second

// eventBus reparte eventos a los observers sin bloquear al emisor.
// Se crea uno por ejecución; wait espera a que terminen las entregas.
type eventBus struct {
	observers []ports.Notifier
	logger    logx.Logger
	wg        sync.WaitGroup
}

func newEventBus(observers []ports.Notifier, logger logx.Logger) *eventBus {
	return &eventBus{observers: observers, logger: logger}
}

// emit envía el evento a cada observer en su propia goroutine, con timeout.
// Las notificaciones sobreviven a la cancelación del contexto del stage.
func (b *eventBus) emit(ctx context.Context, event ports.Event) {
	if len(b.observers) == 0 {
		return
	}
	base := context.WithoutCancel(ctx)

	for _, observer := range b.observers {
		b.wg.Add(1)
		go func(notifier ports.Notifier) {
			defer b.wg.Done()

			notifyCtx, cancel := context.WithTimeout(base, notificationTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- notifier.Notify(notifyCtx, event)
			}()

			select {
			case err := <-done:
				if err != nil {
					b.logger.Warn("notification failed", "event_type", event.Type, "error", err.Error())
				}
			case <-notifyCtx.Done():
				b.logger.Warn("notification timeout exceeded",
					"timeout", notificationTimeout,
					"event_type", event.Type,
				)
			}
		}(observer)
	}
}

// wait bloquea hasta que todas las notificaciones emitidas terminen.
func (b *eventBus) wait() {
	b.wg.Wait()
}
