// internal/platform/logx/logx_test.go
package logx

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	logger := New()
	if logger == nil {
		t.Fatal("New() should return a logger, got nil")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"dbg", LevelDebug},
		{"  debug  ", LevelDebug},

		{"info", LevelInfo},
		{"inf", LevelInfo},
		{"", LevelInfo}, // empty defaults to Info

		{"warn", LevelWarn},
		{"Warning", LevelWarn},

		{"err", LevelError},
		{"ERROR", LevelError},

		{"garbage", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestKVPairs(t *testing.T) {
	tests := []struct {
		name     string
		input    []any
		expected []string
	}{
		{"empty input", []any{}, []string{}},
		{"single pair", []any{"key", "value"}, []string{"key=value"}},
		{"odd number of elements", []any{"key1", "value1", "key2"}, []string{"key1=value1", "key2=(missing)"}},
		{"mixed types", []any{"port", 443, "open", true}, []string{"port=443", "open=true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := kvPairs(tt.input...)

			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d pairs, got %d", len(tt.expected), len(result))
			}
			for i, exp := range tt.expected {
				if result[i] != exp {
					t.Errorf("pair %d: expected %q, got %q", i, exp, result[i])
				}
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelDebug)

	scoped := logger.With("stage", "NETWORK_SCAN", "target", "8.8.8.8")
	scoped.Info("stage started")

	output := buf.String()
	for _, want := range []string{"stage=NETWORK_SCAN", "target=8.8.8.8", "INF stage started"} {
		if !strings.Contains(output, want) {
			t.Errorf("output should contain %q, got: %s", want, output)
		}
	}
}

func TestLogger_With_Immutable(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelDebug)

	_ = logger.With("stage", "DNS_INVESTIGATION")
	logger.Info("original")

	if strings.Contains(buf.String(), "stage=") {
		t.Errorf("parent logger must not inherit child scope: %s", buf.String())
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelWarn)

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("shown warn")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("messages below level should be dropped: %s", output)
	}
	if !strings.Contains(output, "WRN shown warn") {
		t.Errorf("warn should be printed: %s", output)
	}
}

func TestLogger_SetLevel_SharedWithChildren(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelError)
	child := logger.With("component", "x")

	logger.SetLevel(LevelDebug)
	child.Debug("now visible")

	if !strings.Contains(buf.String(), "DBG now visible") {
		t.Errorf("child should follow parent level: %s", buf.String())
	}
}

func TestLogger_Err(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelDebug)

	logger.Err(nil, "phase", "noop")
	if buf.Len() != 0 {
		t.Fatalf("nil error should not log, got: %s", buf.String())
	}

	logger.Err(errors.New("boom"), "phase", "scan")
	output := buf.String()
	if !strings.Contains(output, "ERR error=boom phase=scan") {
		t.Errorf("unexpected error line: %s", output)
	}
}

func TestLogger_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelInfo)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.With("worker", n).Info("tick")
		}(i)
	}
	wg.Wait()

	lines := strings.Count(buf.String(), "\n")
	if lines != 20 {
		t.Errorf("expected 20 lines, got %d", lines)
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconmcp.log")
	logger := NewFile(FileOptions{Path: path}, LevelInfo)

	logger.Info("written to file", "k", "v")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file k=v") {
		t.Errorf("file content mismatch: %s", data)
	}
}

func TestNewDiscard(t *testing.T) {
	logger := NewDiscard()
	logger.Err(errors.New("ignored"))
	logger.Info("ignored")
}
