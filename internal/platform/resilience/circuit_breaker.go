// internal/platform/resilience/circuit_breaker.go
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen se devuelve sin llamar al upstream mientras el breaker
// está abierto.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State del breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker deja de consultar un upstream caído (NVD, WHOIS) durante
// cooldown tras threshold fallos seguidos. Pasado el cooldown deja pasar
// hasta probes llamadas de prueba; si todas van bien vuelve a cerrarse.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration
	probes    int

	state     State
	failures  int
	inFlight  int // llamadas de prueba admitidas en half-open
	succeeded int
	openedAt  time.Time

	now func() time.Time
}

// NewCircuitBreaker crea un breaker cerrado. Valores <= 0 toman los
// defaults 5 fallos, 60s y 3 pruebas.
func NewCircuitBreaker(threshold int, cooldown time.Duration, probes int) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	if probes <= 0 {
		probes = 3
	}
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		probes:    probes,
		now:       time.Now,
	}
}

// Execute ejecuta fn si el breaker lo permite. countsAsFailure decide qué
// errores abren el circuito (nil: todos); el resto lo dejan como estaba.
func (cb *CircuitBreaker) Execute(fn func() error, countsAsFailure func(error) bool) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}
	err := fn()
	switch {
	case err == nil:
		cb.RecordSuccess()
	case countsAsFailure == nil || countsAsFailure(err):
		cb.RecordFailure()
	}
	return err
}

// Allow indica si una llamada puede salir ahora.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) <= cb.cooldown {
			return false
		}
		cb.state = StateHalfOpen
		cb.inFlight = 0
		cb.succeeded = 0
	}
	if cb.state == StateHalfOpen {
		if cb.inFlight >= cb.probes {
			return false
		}
		cb.inFlight++
	}
	return true
}

// RecordSuccess anota una llamada correcta.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state != StateHalfOpen {
		return
	}
	cb.succeeded++
	if cb.succeeded >= cb.probes {
		cb.state = StateClosed
	}
}

// RecordFailure anota un fallo. En half-open reabre en el acto.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.threshold {
		cb.trip()
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.inFlight = 0
	cb.succeeded = 0
}

// State devuelve el estado actual sin transicionar.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// CircuitBreakerStats es una foto del breaker.
type CircuitBreakerStats struct {
	State        State
	FailureCount int
	OpenedAt     time.Time
}

func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{State: cb.state, FailureCount: cb.failures, OpenedAt: cb.openedAt}
}
