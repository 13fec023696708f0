// internal/core/domain/stage_result.go
package domain

import "time"

// ScanStageResult is the immutable outcome of one stage. It is a value type:
// copies handed out by the session cannot alter the session.
type ScanStageResult struct {
	Stage    StageName
	Status   StageStatus
	RawText  string
	Facts    StructuredFacts
	Success  bool
	Err      error
	Duration time.Duration

	// Protocol records the scheme that actually served a web result.
	Protocol string
}

// ErrorDetail is the printable failure reason, empty on success.
func (r ScanStageResult) ErrorDetail() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// NewRunResult builds the result of a stage that executed.
// Success follows err: a nil error means run, otherwise failed-but-continue.
func NewRunResult(stage StageName, raw string, facts StructuredFacts, err error, d time.Duration) ScanStageResult {
	status := StatusRun
	if err != nil {
		status = StatusFailedContinue
	}
	return ScanStageResult{
		Stage:    stage,
		Status:   status,
		RawText:  raw,
		Facts:    facts,
		Success:  err == nil,
		Err:      err,
		Duration: d,
	}
}

// NewSkippedResult builds the result of a stage whose predicate was false
// or whose budget ran out before it started.
func NewSkippedResult(stage StageName, status StageStatus, reason string) ScanStageResult {
	return ScanStageResult{
		Stage:   stage,
		Status:  status,
		RawText: reason,
		Success: false,
	}
}

// ResultView is the JSON-friendly form used by report summaries.
type ResultView struct {
	Stage      StageName    `json:"stage"`
	Status     StageStatus  `json:"status"`
	Success    bool         `json:"success"`
	Error      string       `json:"error,omitempty"`
	Protocol   string       `json:"protocol,omitempty"`
	DurationMS int64        `json:"duration_ms"`
	Facts      FactsSummary `json:"facts"`
}

func (r ScanStageResult) View() ResultView {
	return ResultView{
		Stage:      r.Stage,
		Status:     r.Status,
		Success:    r.Success,
		Error:      r.ErrorDetail(),
		Protocol:   r.Protocol,
		DurationMS: r.Duration.Milliseconds(),
		Facts:      r.Facts.Summary(),
	}
}
