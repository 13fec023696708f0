// internal/core/usecases/brute_force.go
package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
	"reconmcp/internal/platform/rate"
)

// BruteForceResult agrupa todos los intentos de una ejecución.
type BruteForceResult struct {
	Cracker  string                     `json:"cracker"`
	Host     string                     `json:"host"`
	Port     int                        `json:"port"`
	Attempts []domain.CredentialAttempt `json:"attempts"`
	Success  *domain.CredentialAttempt  `json:"success,omitempty"`
	// Exhausted es true cuando se probaron todas las contraseñas sin éxito
	Exhausted bool          `json:"exhausted"`
	Duration  time.Duration `json:"duration"`
}

// BruteForcer prueba contraseñas en secuencia y se detiene en el primer éxito.
type BruteForcer struct {
	cracker        ports.Cracker
	attemptTimeout time.Duration
	limiter        *rate.Limiter
	observers      []ports.Notifier
	logger         logx.Logger
}

// BruteForcerOptions configura un BruteForcer.
type BruteForcerOptions struct {
	Cracker ports.Cracker
	// AttemptTimeout acota cada intento (default 5s)
	AttemptTimeout time.Duration
	// Limiter espacia los intentos; nil desactiva el límite
	Limiter   *rate.Limiter
	Observers []ports.Notifier
	Logger    logx.Logger
}

// NewBruteForcer crea un BruteForcer con defaults.
func NewBruteForcer(opts BruteForcerOptions) *BruteForcer {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logx.New()
	}
	return &BruteForcer{
		cracker:        opts.Cracker,
		attemptTimeout: opts.AttemptTimeout,
		limiter:        opts.Limiter,
		observers:      opts.Observers,
		logger:         opts.Logger.With("component", "brute_forcer"),
	}
}

// Attempt prueba username contra cada contraseña en orden. Devuelve error
// solo por entrada inválida, cracker ausente o cancelación del contexto
// antes del primer intento; los fallos de cada intento quedan en Attempts.
func (b *BruteForcer) Attempt(ctx context.Context, target domain.Target, port int, username string, passwords []string) (BruteForceResult, error) {
	if b.cracker == nil {
		return BruteForceResult{}, domain.ErrAdapterMissing
	}
	if len(passwords) == 0 {
		return BruteForceResult{}, domain.ErrEmptyCandidates
	}
	if port < 1 || port > 65535 {
		return BruteForceResult{}, fmt.Errorf("%w: port %d", domain.ErrInvalidTarget, port)
	}
	if strings.TrimSpace(username) == "" {
		return BruteForceResult{}, perrors.Wrap(perrors.ErrInvalidInput, "empty username")
	}

	host := target.Host()
	res := BruteForceResult{
		Cracker:  b.cracker.Name(),
		Host:     host,
		Port:     port,
		Attempts: make([]domain.CredentialAttempt, 0, len(passwords)),
	}
	start := time.Now()

	bus := newEventBus(b.observers, b.logger)
	defer bus.wait()

	b.logger.Info("brute force started",
		"cracker", res.Cracker,
		"host", host,
		"port", port,
		"user", username,
		"candidates", len(passwords),
	)

	for i, password := range passwords {
		if err := b.limiter.Wait(ctx); err != nil {
			if i == 0 {
				return res, err
			}
			b.logger.Warn("brute force interrupted", "after", i, "error", err.Error())
			res.Duration = time.Since(start)
			return res, nil
		}

		attempt := b.try(ctx, host, port, username, password)
		res.Attempts = append(res.Attempts, attempt)
		bus.emit(ctx, ports.NewEvent(
			ports.EventTypeAttempt,
			"brute_forcer",
			ports.AttemptEvent{Cracker: res.Cracker, Outcome: attempt.Outcome},
		).WithTarget(host))

		if attempt.Outcome == domain.OutcomeSuccess {
			a := attempt
			res.Success = &a
			b.logger.Info("credential found", "host", host, "port", port, "user", username, "attempt", i+1)
			res.Duration = time.Since(start)
			return res, nil
		}
	}

	res.Exhausted = true
	res.Duration = time.Since(start)
	b.logger.Info("brute force exhausted", "host", host, "port", port, "attempts", len(res.Attempts))
	return res, nil
}

// try ejecuta un único intento con su propio timeout.
func (b *BruteForcer) try(ctx context.Context, host string, port int, user, password string) domain.CredentialAttempt {
	attemptCtx, cancel := context.WithTimeout(ctx, b.attemptTimeout)
	defer cancel()

	ok, err := b.cracker.TryLogin(attemptCtx, host, port, user, password)
	if err != nil && attemptCtx.Err() == context.DeadlineExceeded {
		err = &domain.ProbeTimeoutError{Probe: b.cracker.Name(), Err: err}
	}

	a := domain.CredentialAttempt{
		Username: user,
		Password: password,
		Outcome:  domain.ClassifyAttemptError(ok, err),
	}
	if err != nil {
		a.Detail = err.Error()
	}
	b.logger.Debug("attempt", "user", user, "outcome", a.Outcome)
	return a
}

// Text renderiza el resultado para la respuesta de la tool.
func (r BruteForceResult) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== CREDENTIAL BRUTE FORCE (%s) ===\n", r.Cracker)
	fmt.Fprintf(&sb, "Target: %s:%d\n", r.Host, r.Port)
	fmt.Fprintf(&sb, "Attempts: %d\n", len(r.Attempts))

	if r.Success != nil {
		sb.WriteString("\nSUCCESS: password found\n")
		fmt.Fprintf(&sb, "  User: %s\n  Password: %s\n", r.Success.Username, r.Success.Password)
		return sb.String()
	}

	counts := make(map[domain.AttemptOutcome]int)
	for _, a := range r.Attempts {
		counts[a.Outcome]++
	}
	sb.WriteString("\nFAILED: password not found in the provided list\n")
	for _, o := range []domain.AttemptOutcome{domain.OutcomeAuthFailed, domain.OutcomeUnreachable, domain.OutcomeTimeout, domain.OutcomeProtocolError} {
		if counts[o] > 0 {
			fmt.Fprintf(&sb, "  %s: %d\n", o, counts[o])
		}
	}
	return sb.String()
}
