package ui

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"reconmcp/internal/testutil"
)

func TestRawPresenter_Text(t *testing.T) {
	var buf bytes.Buffer
	p := NewRawPresenter(WithWriter(&buf))

	p.Start(ScanInfo{SessionID: "abc", Target: "example.com", Kind: "domain", TimeoutSeconds: 60, TotalStages: 6})
	p.StartStage(StageInfo{Number: 2, TotalStages: 6, Name: "NETWORK_SCAN"})
	p.FinishStage(StageOutcome{Number: 2, Name: "NETWORK_SCAN", Status: StatusError, Duration: time.Second, Detail: "nmap not found"})
	p.Finish(ScanStats{StagesRun: 3, Technologies: []string{"Nginx", "PHP"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	testutil.AssertLen(t, lines, 4, "one line per event")
	testutil.AssertContains(t, lines[0], "session_started", "start event")
	testutil.AssertContains(t, lines[0], "target=example.com", "target field")
	testutil.AssertContains(t, lines[2], "WARN", "failed stage is a warning")
	testutil.AssertContains(t, lines[2], `detail="nmap not found"`, "quoted detail")
	testutil.AssertContains(t, lines[3], "technologies=Nginx,PHP", "joined list")
}

func TestRawPresenter_JSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewRawPresenter(WithWriter(&buf), WithFormat(LogFormatJSON))

	p.FinishStage(StageOutcome{Number: 1, Name: "CLASSIFY", Status: StatusSuccess, Duration: 2 * time.Millisecond})

	var entry map[string]interface{}
	testutil.AssertNoError(t, json.Unmarshal(buf.Bytes(), &entry), "valid json")
	testutil.AssertEqual(t, entry["message"], "stage_completed", "message")

	data := entry["data"].(map[string]interface{})
	testutil.AssertEqual(t, data["status"], "success", "status")
	testutil.AssertEqual(t, data["duration"], "2ms", "duration as string")
}

func TestParseUIMode(t *testing.T) {
	m, ok := ParseUIMode("raw")
	testutil.AssertTrue(t, ok, "raw is valid")
	testutil.AssertEqual(t, m, UIModeRaw, "mode")

	m, ok = ParseUIMode("fancy")
	testutil.AssertFalse(t, ok, "unknown mode")
	testutil.AssertEqual(t, m, UIModePretty, "fallback")
}

func TestNew_QuietIsNoop(t *testing.T) {
	_, ok := New(UIModeQuiet).(*NoopPresenter)
	testutil.AssertTrue(t, ok, "quiet presenter")
}

func TestFormatDuration(t *testing.T) {
	testutil.AssertEqual(t, formatDuration(250*time.Millisecond), "250ms", "ms")
	testutil.AssertEqual(t, formatDuration(1500*time.Millisecond), "1.5s", "seconds")
	testutil.AssertEqual(t, formatDuration(125*time.Second), "2m5s", "minutes")
}
