// Package cliexec ejecuta herramientas externas (nmap, hydra) siempre
// como vector de argumentos, nunca a través de una shell.
package cliexec

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"reconmcp/internal/core/domain"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
)

// maxLine es el tamaño máximo de una línea de stdout (nmap -oX puede
// emitir líneas largas con scripts NSE).
const maxLine = 10 * 1024 * 1024

// LineHandler recibe cada línea de stdout en tiempo real. Un error se
// registra pero no detiene la lectura.
type LineHandler func(line []byte) error

// Output es el resultado de una ejecución.
type Output struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner ejecuta un binario concreto. No guarda estado por ejecución, así
// que un mismo Runner sirve a sesiones concurrentes.
type Runner struct {
	name     string
	execPath string
	logger   logx.Logger
}

// Config contains configuration for Runner.
type Config struct {
	// Name identifica la herramienta en logs y errores (ej: "nmap")
	Name string
	// ExecPath es el binario; se resuelve con exec.LookPath
	ExecPath string
	Logger   logx.Logger
}

// New crea un Runner.
func New(cfg Config) *Runner {
	if cfg.ExecPath == "" {
		cfg.ExecPath = cfg.Name
	}
	if cfg.Logger == nil {
		cfg.Logger = logx.NewDiscard()
	}
	return &Runner{
		name:     cfg.Name,
		execPath: cfg.ExecPath,
		logger:   cfg.Logger.With("tool", cfg.Name),
	}
}

// Name devuelve el nombre de la herramienta.
func (r *Runner) Name() string { return r.name }

// ExecPath devuelve el binario configurado.
func (r *Runner) ExecPath() string { return r.execPath }

// Available reporta si el binario está en PATH.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.execPath)
	return err == nil
}

// Run ejecuta el binario con args. stdout se acumula y además se pasa
// línea a línea a handler (si no es nil).
//
// Errores:
//   - binario ausente: perrors.ErrToolMissing
//   - deadline de ctx: *domain.ProbeTimeoutError
//   - código de salida != 0: Output.ExitCode != 0 y un error descriptivo;
//     Output conserva lo leído para que el llamador decida
func (r *Runner) Run(ctx context.Context, args []string, handler LineHandler) (Output, error) {
	out := Output{Command: r.execPath + " " + strings.Join(args, " ")}

	path, err := exec.LookPath(r.execPath)
	if err != nil {
		return out, perrors.Wrapf(perrors.ErrToolMissing, "%s (%s)", r.name, r.execPath)
	}

	r.logger.Debug("executing command", "exec_path", path, "args", args)

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.WaitDelay = 2 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return out, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return out, fmt.Errorf("failed to start %s: %w", r.name, err)
	}

	// stdout debe leerse completo antes de Wait
	var stdoutBuf bytes.Buffer
	r.consume(stdout, &stdoutBuf, handler)

	waitErr := cmd.Wait()
	out.Duration = time.Since(start)
	out.Stdout = stdoutBuf.String()
	out.Stderr = stderr.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		r.logger.Warn("command interrupted", "error", ctxErr.Error(), "duration", out.Duration.String())
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return out, &domain.ProbeTimeoutError{Probe: r.name, Err: ctxErr}
		}
		return out, ctxErr
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
		} else {
			out.ExitCode = -1
		}
		r.logger.Debug("command exited with error", "exit_code", out.ExitCode, "stderr", firstLine(out.Stderr))
		return out, fmt.Errorf("%s exited with code %d: %s", r.name, out.ExitCode, firstLine(out.Stderr))
	}

	r.logger.Debug("command completed", "duration", out.Duration.String(), "stdout_bytes", stdoutBuf.Len())
	return out, nil
}

func (r *Runner) consume(rd io.Reader, buf *bytes.Buffer, handler LineHandler) {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	for scanner.Scan() {
		line := scanner.Bytes()
		buf.Write(line)
		buf.WriteByte('\n')
		if handler == nil {
			continue
		}
		if err := handler(line); err != nil {
			r.logger.Warn("handler error", "error", err.Error())
		}
	}
	if err := scanner.Err(); err != nil {
		r.logger.Warn("scanner error", "error", err.Error())
		// drenar para que el proceso no se bloquee escribiendo
		_, _ = io.Copy(buf, rd)
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
