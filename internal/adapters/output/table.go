// internal/adapters/output/table.go
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"reconmcp/internal/core/domain"
)

// WriteTable imprime una tabla legible de la sesión (modo scan con --ui raw).
func WriteTable(out io.Writer, view domain.SessionView) error {
	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)

	fmt.Fprintf(w, "\n=== Recon Results ===\n")
	fmt.Fprintf(w, "Target:\t%s\n", view.Target)
	if view.Kind != "" {
		fmt.Fprintf(w, "Kind:\t%s\n", view.Kind)
	}
	fmt.Fprintf(w, "Session:\t%s\n\n", view.ID)

	fmt.Fprintln(w, "STAGE\tSTATUS\tDURATION\tDETAIL")
	fmt.Fprintln(w, "-----\t------\t--------\t------")
	for _, r := range view.Results {
		detail := r.Error
		if detail == "" && len(r.Facts.OpenPorts) > 0 {
			detail = fmt.Sprintf("%d open ports", len(r.Facts.OpenPorts))
		}
		if detail == "" && len(r.Facts.Technologies) > 0 {
			detail = strings.Join(r.Facts.Technologies, ", ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.Stage,
			r.Status,
			(time.Duration(r.DurationMS) * time.Millisecond).String(),
			detail,
		)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}

	services := collectServices(view)
	if len(services) == 0 {
		fmt.Fprintln(out)
		return nil
	}

	fmt.Fprintln(out, "\nServices:")
	w = tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PORT\tSERVICE\tVERSION")
	ports := make([]int, 0, len(services))
	for p := range services {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	for _, p := range ports {
		svc := services[p]
		fmt.Fprintf(w, "%d\t%s\t%s\n", p, svc.Name, svc.Version)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}
	fmt.Fprintln(out)
	return nil
}

func collectServices(view domain.SessionView) map[int]domain.Service {
	out := make(map[int]domain.Service)
	for _, r := range view.Results {
		for port, svc := range r.Facts.Services {
			out[port] = svc
		}
	}
	return out
}
