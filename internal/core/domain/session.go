// internal/core/domain/session.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReconSession es una corrida completa contra un target.
// Solo el orquestador que la creó la modifica; nunca se persiste.
type ReconSession struct {
	ID        string
	Target    Target
	CreatedAt time.Time

	// ReportPath is filled by REPORT_EMIT when a sink wrote to disk.
	ReportPath string

	results []ScanStageResult
}

// NewReconSession starts an empty session.
func NewReconSession(target Target) *ReconSession {
	return &ReconSession{
		ID:        uuid.NewString(),
		Target:    target,
		CreatedAt: time.Now(),
	}
}

// Append adds a result at the end of the ordered sequence.
func (s *ReconSession) Append(r ScanStageResult) {
	s.results = append(s.results, r)
}

// Results returns a copy of the ordered stage results.
func (s *ReconSession) Results() []ScanStageResult {
	out := make([]ScanStageResult, len(s.results))
	copy(out, s.results)
	return out
}

// Result returns the recorded result for a stage, if any.
func (s *ReconSession) Result(stage StageName) (ScanStageResult, bool) {
	for _, r := range s.results {
		if r.Stage == stage {
			return r, true
		}
	}
	return ScanStageResult{}, false
}

// Facts returns the union of facts from every result appended so far.
// Stage predicates call it before their own stage runs, so they can only
// see earlier stages.
func (s *ReconSession) Facts() StructuredFacts {
	merged := NewFactsBuilder().Build()
	for _, r := range s.results {
		merged = merged.Merge(r.Facts)
	}
	return merged
}

// Aborted reports whether the session stopped at CLASSIFY.
func (s *ReconSession) Aborted() bool {
	return len(s.results) > 0 && s.results[0].Status == StatusAborted
}

// SessionView is the machine-readable summary of a session.
type SessionView struct {
	ID        string       `json:"id"`
	Target    string       `json:"target"`
	Kind      TargetKind   `json:"kind,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Results   []ResultView `json:"results"`
}

func (s *ReconSession) View() SessionView {
	v := SessionView{
		ID:        s.ID,
		Target:    s.Target.Value,
		Kind:      s.Target.Kind,
		CreatedAt: s.CreatedAt,
		Results:   make([]ResultView, 0, len(s.results)),
	}
	if v.Target == "" {
		v.Target = s.Target.Raw
	}
	for _, r := range s.results {
		v.Results = append(v.Results, r.View())
	}
	return v
}
