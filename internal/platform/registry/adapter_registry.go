// internal/platform/registry/adapter_registry.go
package registry

import (
	"fmt"
	"sort"
	"sync"

	"reconmcp/internal/platform/logx"
)

// Factory construye una variante concreta de un adapter.
type Factory[T any] func(opts Options, logger logx.Logger) (T, error)

// Registry gestiona las variantes de un tipo de adapter (ej: portscan
// nmap|connect). Implementa Registry + Factory para que la selección de
// variante sea configuración y no código.
// No hay instancia global: cmd compone un Registry por capacidad.
type Registry[T any] struct {
	mu           sync.RWMutex
	kind         string
	factories    map[string]Factory[T]
	descriptions map[string]string
	logger       logx.Logger
}

// New crea un registry vacío para la capacidad kind.
func New[T any](kind string, logger logx.Logger) *Registry[T] {
	if logger == nil {
		logger = logx.NewDiscard()
	}
	return &Registry[T]{
		kind:         kind,
		factories:    make(map[string]Factory[T]),
		descriptions: make(map[string]string),
		logger:       logger.With("component", "registry", "kind", kind),
	}
}

// Kind devuelve la capacidad que agrupa este registry.
func (r *Registry[T]) Kind() string { return r.kind }

// Register registra la factory de una variante.
func (r *Registry[T]) Register(name, description string, factory Factory[T]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return fmt.Errorf("%s variant name cannot be empty", r.kind)
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil for %s variant %s", r.kind, name)
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%s variant %s is already registered", r.kind, name)
	}

	r.factories[name] = factory
	r.descriptions[name] = description
	r.logger.Debug("variant registered", "name", name)
	return nil
}

// MustRegister es Register para composición estática en main; un nombre
// duplicado es un bug de programación.
func (r *Registry[T]) MustRegister(name, description string, factory Factory[T]) {
	if err := r.Register(name, description, factory); err != nil {
		panic(err)
	}
}

// Build construye la variante name.
func (r *Registry[T]) Build(name string, opts Options, logger logx.Logger) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	var zero T
	if !ok {
		return zero, fmt.Errorf("unknown %s variant %q (registered: %v)", r.kind, name, r.List())
	}
	if logger == nil {
		logger = r.logger
	}

	adapter, err := factory(opts, logger)
	if err != nil {
		return zero, fmt.Errorf("failed to build %s variant %s: %w", r.kind, name, err)
	}
	r.logger.Debug("variant built", "name", name)
	return adapter, nil
}

// List retorna los nombres registrados en orden alfabético.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe retorna una copia de las descripciones por variante.
func (r *Registry[T]) Describe() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.descriptions))
	for k, v := range r.descriptions {
		out[k] = v
	}
	return out
}

// IsRegistered verifica si una variante está registrada.
func (r *Registry[T]) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[name]
	return exists
}
