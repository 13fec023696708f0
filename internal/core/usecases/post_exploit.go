// internal/core/usecases/post_exploit.go
package usecases

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
	"reconmcp/internal/platform/validator"
)

// DefaultFlagSearchPaths se recorren cuando no se indican rutas.
var DefaultFlagSearchPaths = []string{".", "/home", "/var", "/tmp", "/opt", "/usr", "/etc", "/root", "/"}

// SystemDirectories son los directorios listados por ExploreSystem.
var SystemDirectories = []string{"/home", "/var", "/tmp", "/opt", "/usr", "/etc", "/root"}

// textFilePatterns son los ficheros leídos por ExploreCurrent.
var textFilePatterns = []string{"*.txt", "*.log", "*.conf", "*.cfg", "*.ini", "*.json", "*.xml", "*.yaml", "*.yml"}

const (
	// DefaultReadLimit es el máximo de bytes leídos de un fichero remoto.
	DefaultReadLimit = 65536
	exploreMaxFile   = 1 << 20
)

// FoundFile es un fichero localizado en el host remoto.
type FoundFile struct {
	Path    string
	Size    int64
	Content string
	Note    string
}

// SSHExplorer ejecuta búsquedas de solo lectura sobre una sesión SSH.
// Todos los comandos se construyen como vectores de argumentos.
type SSHExplorer struct {
	client ports.SSHClient
	logger logx.Logger
}

// NewSSHExplorer crea el explorador.
func NewSSHExplorer(client ports.SSHClient, logger logx.Logger) *SSHExplorer {
	if logger == nil {
		logger = logx.New()
	}
	return &SSHExplorer{client: client, logger: logger.With("component", "ssh_explorer")}
}

// Exec ejecuta argv tal cual.
func (e *SSHExplorer) Exec(ctx context.Context, ep ports.Endpoint, argv []string) (ports.CommandResult, error) {
	if e.client == nil {
		return ports.CommandResult{}, domain.ErrAdapterMissing
	}
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return ports.CommandResult{}, perrors.Wrap(perrors.ErrInvalidInput, "empty command")
	}
	return e.client.Exec(ctx, ep, argv)
}

// ReadFile devuelve como máximo limit bytes de path.
func (e *SSHExplorer) ReadFile(ctx context.Context, ep ports.Endpoint, path string, limit int) (string, error) {
	if !validator.IsSafePath(path) {
		return "", perrors.Wrapf(perrors.ErrInvalidInput, "unsafe path %q", path)
	}
	if limit <= 0 || limit > DefaultReadLimit {
		limit = DefaultReadLimit
	}
	res, err := e.Exec(ctx, ep, []string{"head", "-c", strconv.Itoa(limit), "--", path})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", perrors.Wrapf(perrors.ErrNotFound, "read %s: %s", path, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

// FindFlags busca flag*.txt y root.txt bajo paths y lee su contenido.
func (e *SSHExplorer) FindFlags(ctx context.Context, ep ports.Endpoint, paths []string) ([]FoundFile, error) {
	if len(paths) == 0 {
		paths = DefaultFlagSearchPaths
	}
	for _, p := range paths {
		if !validator.IsSafePath(p) {
			return nil, perrors.Wrapf(perrors.ErrInvalidInput, "unsafe search path %q", p)
		}
	}

	argv := append([]string{"find"}, paths...)
	argv = append(argv, "(", "-name", "flag*.txt", "-o", "-name", "root.txt", ")", "-type", "f")
	res, err := e.Exec(ctx, ep, argv)
	if err != nil {
		return nil, err
	}

	// find devuelve !=0 ante "Permission denied"; la salida sigue siendo válida.
	var found []FoundFile
	seen := make(map[string]bool)
	for _, path := range splitLines(res.Stdout) {
		if seen[path] {
			continue
		}
		seen[path] = true

		f := FoundFile{Path: path}
		content, err := e.ReadFile(ctx, ep, path, DefaultReadLimit)
		if err != nil {
			f.Note = err.Error()
		} else {
			f.Content = strings.TrimSpace(content)
		}
		found = append(found, f)
	}

	e.logger.Info("flag search completed", "host", ep.Host, "paths", len(paths), "found", len(found))
	return found, nil
}

// ExploreCurrent lista el directorio de trabajo y lee los ficheros de
// texto de hasta 1MB.
func (e *SSHExplorer) ExploreCurrent(ctx context.Context, ep ports.Endpoint) (string, error) {
	pwd, err := e.Exec(ctx, ep, []string{"pwd"})
	if err != nil {
		return "", err
	}
	ls, err := e.Exec(ctx, ep, []string{"ls", "-la"})
	if err != nil {
		return "", err
	}

	argv := []string{"find", ".", "-maxdepth", "1", "-type", "f", "("}
	for i, p := range textFilePatterns {
		if i > 0 {
			argv = append(argv, "-o")
		}
		argv = append(argv, "-name", p)
	}
	argv = append(argv, ")")
	files, err := e.Exec(ctx, ep, argv)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Current directory: %s\n\n", strings.TrimSpace(pwd.Stdout))
	fmt.Fprintf(&sb, "Contents:\n%s\n", strings.TrimRight(ls.Stdout, "\n"))

	paths := splitLines(files.Stdout)
	if len(paths) == 0 {
		sb.WriteString("\nNo text files found.\n")
		return sb.String(), nil
	}

	sb.WriteString("\nText files:\n")
	for _, p := range paths {
		name := strings.TrimPrefix(p, "./")
		size, err := e.fileSize(ctx, ep, p)
		switch {
		case err != nil:
			fmt.Fprintf(&sb, "\n[%s] (stat failed: %v)\n", name, err)
		case size > exploreMaxFile:
			fmt.Fprintf(&sb, "\n[%s] (skipped, %d bytes)\n", name, size)
		default:
			content, err := e.ReadFile(ctx, ep, p, DefaultReadLimit)
			if err != nil {
				fmt.Fprintf(&sb, "\n[%s] (read failed: %v)\n", name, err)
				continue
			}
			fmt.Fprintf(&sb, "\n[%s] %d bytes\n%s\n", name, size, strings.TrimRight(content, "\n"))
		}
	}
	return sb.String(), nil
}

// ExploreHidden lista ficheros ocultos bajo dir.
func (e *SSHExplorer) ExploreHidden(ctx context.Context, ep ports.Endpoint, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if !validator.IsSafePath(dir) {
		return "", perrors.Wrapf(perrors.ErrInvalidInput, "unsafe path %q", dir)
	}
	res, err := e.Exec(ctx, ep, []string{"find", dir, "-name", ".*", "-type", "f"})
	if err != nil {
		return "", err
	}
	paths := splitLines(res.Stdout)
	if len(paths) == 0 {
		return fmt.Sprintf("No hidden files found in %s\n", dir), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hidden files in %s:\n", dir)
	for _, p := range paths {
		sb.WriteString("  " + p + "\n")
	}
	return sb.String(), nil
}

// ExploreSystem lista los directorios de sistema principales.
func (e *SSHExplorer) ExploreSystem(ctx context.Context, ep ports.Endpoint) (string, error) {
	var sb strings.Builder
	for _, dir := range SystemDirectories {
		res, err := e.Exec(ctx, ep, []string{"ls", "-la", dir})
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "=== %s ===\n", dir)
		out := strings.TrimRight(res.Stdout, "\n")
		if out == "" {
			out = strings.TrimSpace(res.Stderr)
		}
		sb.WriteString(out + "\n\n")
	}
	return sb.String(), nil
}

func (e *SSHExplorer) fileSize(ctx context.Context, ep ports.Endpoint, path string) (int64, error) {
	res, err := e.Exec(ctx, ep, []string{"stat", "-c", "%s", "--", path})
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(res.Stdout), 10, 64)
}

// FlagsText renderiza el resultado de FindFlags.
func FlagsText(found []FoundFile) string {
	if len(found) == 0 {
		return "No flag*.txt or root.txt files found.\n"
	}
	var sb strings.Builder
	for _, f := range found {
		fmt.Fprintf(&sb, "Found: %s\n", f.Path)
		switch {
		case f.Note != "":
			fmt.Fprintf(&sb, "  (%s)\n", f.Note)
		case f.Content == "":
			sb.WriteString("  (empty file)\n")
		default:
			fmt.Fprintf(&sb, "  Content: %s\n", f.Content)
		}
	}
	return sb.String()
}

func splitLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
