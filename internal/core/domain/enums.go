// internal/core/domain/enums.go
package domain

// TargetKind es la clasificación de un target, calculada una sola vez.
type TargetKind string

const (
	TargetKindIP      TargetKind = "ip"
	TargetKindNetwork TargetKind = "network"
	TargetKindDomain  TargetKind = "domain"
	TargetKindURL     TargetKind = "url"
)

// IsValid verifica si el kind es uno de los conocidos.
func (k TargetKind) IsValid() bool {
	switch k {
	case TargetKindIP, TargetKindNetwork, TargetKindDomain, TargetKindURL:
		return true
	default:
		return false
	}
}

func (k TargetKind) String() string {
	return string(k)
}

// StageName identifies one step of the reconnaissance pipeline.
type StageName string

const (
	StageClassify         StageName = "CLASSIFY"
	StageNetworkScan      StageName = "NETWORK_SCAN"
	StageServiceAnalysis  StageName = "SERVICE_ANALYSIS"
	StageDNSInvestigation StageName = "DNS_INVESTIGATION"
	StageWebAnalysis      StageName = "WEB_ANALYSIS"
	StageReportEmit       StageName = "REPORT_EMIT"
)

// PipelineOrder is the fixed execution order of the stages.
var PipelineOrder = []StageName{
	StageClassify,
	StageNetworkScan,
	StageServiceAnalysis,
	StageDNSInvestigation,
	StageWebAnalysis,
	StageReportEmit,
}

// Title returns the heading used for the stage in reports.
func (s StageName) Title() string {
	switch s {
	case StageClassify:
		return "Target Classification"
	case StageNetworkScan:
		return "Network Scan"
	case StageServiceAnalysis:
		return "Service Analysis"
	case StageDNSInvestigation:
		return "DNS Investigation"
	case StageWebAnalysis:
		return "Web Analysis"
	case StageReportEmit:
		return "Report"
	default:
		return string(s)
	}
}

func (s StageName) String() string {
	return string(s)
}

// StageStatus es el estado final de un stage dentro de una sesión.
type StageStatus string

const (
	StatusRun               StageStatus = "run"
	StatusSkippedPredicate  StageStatus = "skipped-by-predicate"
	StatusFailedContinue    StageStatus = "failed-but-continue"
	StatusSkippedTimeout    StageStatus = "skipped-by-timeout"
	StatusAborted           StageStatus = "aborted"
)

// Skipped reports whether the stage never ran.
func (s StageStatus) Skipped() bool {
	return s == StatusSkippedPredicate || s == StatusSkippedTimeout
}

func (s StageStatus) String() string {
	return string(s)
}

// AttemptOutcome clasifica un intento de login.
type AttemptOutcome string

const (
	OutcomeSuccess       AttemptOutcome = "success"
	OutcomeAuthFailed    AttemptOutcome = "auth_failed"
	OutcomeUnreachable   AttemptOutcome = "unreachable"
	OutcomeTimeout       AttemptOutcome = "timeout"
	OutcomeProtocolError AttemptOutcome = "protocol_error"
)

func (o AttemptOutcome) String() string {
	return string(o)
}
