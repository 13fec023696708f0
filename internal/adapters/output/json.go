// internal/adapters/output/json.go
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"reconmcp/internal/core/domain"
)

const summaryFile = "summary.json"

// Summary es el documento de summary.json: la vista de la sesión más
// agregados para no tener que recorrer los resultados.
type Summary struct {
	domain.SessionView
	GeneratedAt time.Time      `json:"generated_at"`
	OpenPorts   []int          `json:"open_ports"`
	Stages      map[string]int `json:"stages_by_status"`
}

// BuildSummary construye el resumen desde la vista de una sesión.
func BuildSummary(view domain.SessionView) Summary {
	s := Summary{
		SessionView: view,
		GeneratedAt: time.Now(),
		OpenPorts:   []int{},
		Stages:      make(map[string]int),
	}
	seen := make(map[int]struct{})
	for _, r := range view.Results {
		s.Stages[string(r.Status)]++
		for _, p := range r.Facts.OpenPorts {
			if _, ok := seen[p.Number]; ok {
				continue
			}
			seen[p.Number] = struct{}{}
			s.OpenPorts = append(s.OpenPorts, p.Number)
		}
	}
	return s
}

// WriteSummaryJSON escribe <dir>/summary.json y devuelve su ruta.
func WriteSummaryJSON(dir string, view domain.SessionView) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, summaryFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	if err := EncodeSummary(f, view, true); err != nil {
		return "", err
	}
	return path, nil
}

// EncodeSummary escribe el resumen JSON en w.
func EncodeSummary(w io.Writer, view domain.SessionView, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(BuildSummary(view)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
