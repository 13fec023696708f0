// internal/platform/workerpool/worker_pool.go
package workerpool

import (
	"context"
	"sync"
	"time"

	"reconmcp/internal/platform/logx"
)

// Result es la salida de procesar un elemento. Index es la posición del
// elemento en la entrada, de modo que el orden es determinista.
type Result[In, Out any] struct {
	Index    int
	Item     In
	Value    Out
	Err      error
	Duration time.Duration
}

// Pool ejecuta una función sobre muchos elementos con un número acotado
// de workers. Es reutilizable y no guarda estado entre llamadas a Map.
type Pool struct {
	workers int
	logger  logx.Logger
}

// Config configura el pool.
type Config struct {
	// Workers es el número máximo de llamadas concurrentes (default 4)
	Workers int
	Logger  logx.Logger
	// Name identifica el pool en los logs
	Name string
}

// New crea un nuevo pool.
func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = logx.NewDiscard()
	}
	if cfg.Name == "" {
		cfg.Name = "worker-pool"
	}
	return &Pool{
		workers: cfg.Workers,
		logger:  cfg.Logger.With("component", cfg.Name),
	}
}

// Workers retorna el tamaño del pool.
func (p *Pool) Workers() int { return p.workers }

// Map aplica fn a cada elemento con como mucho p.workers llamadas en
// vuelo y devuelve un resultado por elemento, en el orden de entrada.
//
// Si ctx se cancela, los elementos no iniciados se devuelven con
// Err = ctx.Err() sin llamar a fn.
func Map[In, Out any](ctx context.Context, p *Pool, items []In, fn func(ctx context.Context, item In) (Out, error)) []Result[In, Out] {
	results := make([]Result[In, Out], len(items))
	if len(items) == 0 {
		return results
	}

	workers := p.workers
	if workers > len(items) {
		workers = len(items)
	}

	p.logger.Debug("dispatching items", "total", len(items), "workers", workers)

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				item := items[i]
				if err := ctx.Err(); err != nil {
					results[i] = Result[In, Out]{Index: i, Item: item, Err: err}
					continue
				}
				start := time.Now()
				v, err := fn(ctx, item)
				results[i] = Result[In, Out]{Index: i, Item: item, Value: v, Err: err, Duration: time.Since(start)}
			}
		}()
	}

	for i := range items {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results
}
