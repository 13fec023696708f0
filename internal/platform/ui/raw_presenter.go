// internal/platform/ui/raw_presenter.go
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogFormat define el formato de salida para el modo raw
type LogFormat string

const (
	LogFormatText LogFormat = "text" // Formato logfmt (default)
	LogFormatJSON LogFormat = "json" // Formato JSON estructurado
)

// RawPresenter implementa el Presenter para modo raw (logs sin formato visual)
type RawPresenter struct {
	format    LogFormat
	out       io.Writer
	mu        sync.Mutex
	startTime time.Time
}

// RawOption configura un RawPresenter.
type RawOption func(*RawPresenter)

// WithFormat selecciona logfmt o JSON.
func WithFormat(f LogFormat) RawOption {
	return func(r *RawPresenter) { r.format = f }
}

// WithWriter redirige la salida (por defecto stdout).
func WithWriter(w io.Writer) RawOption {
	return func(r *RawPresenter) { r.out = w }
}

// NewRawPresenter crea un nuevo RawPresenter
func NewRawPresenter(opts ...RawOption) *RawPresenter {
	r := &RawPresenter{
		format:    LogFormatText,
		out:       os.Stdout,
		startTime: time.Now(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// log escribe un log en el formato configurado
func (r *RawPresenter) log(level, message string, fields map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timestamp := time.Now().UTC().Format(time.RFC3339)

	if r.format == LogFormatJSON {
		r.logJSON(timestamp, level, message, fields)
	} else {
		r.logText(timestamp, level, message, fields)
	}
}

// logText escribe en formato logfmt: timestamp LEVEL message key=value key2=value2.
// Las claves se ordenan para que la salida sea estable.
func (r *RawPresenter) logText(timestamp, level, message string, fields map[string]interface{}) {
	parts := []string{timestamp, fmt.Sprintf("%-5s", level), message}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, r.formatValue(fields[k])))
	}

	fmt.Fprintln(r.out, strings.Join(parts, " "))
}

// logJSON escribe en formato JSON estructurado
func (r *RawPresenter) logJSON(timestamp, level, message string, fields map[string]interface{}) {
	logEntry := map[string]interface{}{
		"timestamp": timestamp,
		"level":     level,
		"message":   message,
	}

	if len(fields) > 0 {
		data := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			if d, ok := v.(time.Duration); ok {
				v = d.String()
			}
			data[k] = v
		}
		logEntry["data"] = data
	}

	jsonBytes, _ := json.Marshal(logEntry)
	fmt.Fprintln(r.out, string(jsonBytes))
}

// formatValue formatea valores para logfmt (entrecomilla strings con espacios)
func (r *RawPresenter) formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		if strings.ContainsAny(val, " =\"") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case time.Duration:
		return val.String()
	case float64:
		return fmt.Sprintf("%.1f", val)
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (r *RawPresenter) Start(info ScanInfo) {
	r.startTime = time.Now()
	r.log("INFO", "session_started", map[string]interface{}{
		"session": info.SessionID,
		"target":  info.Target,
		"kind":    info.Kind,
		"timeout": fmt.Sprintf("%ds", info.TimeoutSeconds),
		"stages":  info.TotalStages,
		"deep":    info.Deep,
	})
}

func (r *RawPresenter) StartStage(stage StageInfo) {
	r.log("INFO", "stage_started", map[string]interface{}{
		"stage": stage.Number,
		"name":  stage.Name,
	})
}

func (r *RawPresenter) FinishStage(res StageOutcome) {
	level := "INFO"
	if res.Status == StatusError || res.Status == StatusWarning {
		level = "WARN"
	}
	fields := map[string]interface{}{
		"stage":    res.Number,
		"name":     res.Name,
		"status":   res.Status.String(),
		"duration": res.Duration,
	}
	if res.Detail != "" {
		fields["detail"] = res.Detail
	}
	r.log(level, "stage_completed", fields)
}

func (r *RawPresenter) Info(msg string) {
	r.log("INFO", msg, nil)
}

func (r *RawPresenter) Warning(msg string) {
	r.log("WARN", msg, nil)
}

func (r *RawPresenter) Error(msg string) {
	r.log("ERROR", msg, nil)
}

// Finish finaliza la presentación con estadísticas finales
func (r *RawPresenter) Finish(stats ScanStats) {
	fields := map[string]interface{}{
		"duration":     stats.TotalDuration,
		"run":          stats.StagesRun,
		"skipped":      stats.StagesSkipped,
		"failed":       stats.StagesFailed,
		"open_ports":   stats.OpenPorts,
		"technologies": stats.Technologies,
	}
	if stats.ReportPath != "" {
		fields["report"] = stats.ReportPath
	}
	r.log("INFO", "session_completed", fields)
}

func (r *RawPresenter) Close() error {
	return nil
}
