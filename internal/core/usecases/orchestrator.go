// internal/core/usecases/orchestrator.go
package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reconmcp/internal/core/domain"
	"reconmcp/internal/core/extract"
	"reconmcp/internal/core/ports"
	perrors "reconmcp/internal/platform/errors"
	"reconmcp/internal/platform/logx"
	"reconmcp/internal/platform/ui"
)

// StageTimeouts acota cada stage por separado.
type StageTimeouts struct {
	Scan    time.Duration
	Service time.Duration
	DNS     time.Duration
	Web     time.Duration
	Report  time.Duration
}

// DefaultStageTimeouts son los límites por defecto de cada stage.
func DefaultStageTimeouts() StageTimeouts {
	return StageTimeouts{
		Scan:    300 * time.Second,
		Service: 60 * time.Second,
		DNS:     120 * time.Second,
		Web:     120 * time.Second,
		Report:  30 * time.Second,
	}
}

func (t StageTimeouts) withDefaults() StageTimeouts {
	d := DefaultStageTimeouts()
	if t.Scan <= 0 {
		t.Scan = d.Scan
	}
	if t.Service <= 0 {
		t.Service = d.Service
	}
	if t.DNS <= 0 {
		t.DNS = d.DNS
	}
	if t.Web <= 0 {
		t.Web = d.Web
	}
	if t.Report <= 0 {
		t.Report = d.Report
	}
	return t
}

// RunOptions ajusta una ejecución concreta del pipeline.
type RunOptions struct {
	// Profile es el nombre del perfil de puertos (ver domain.PortProfileNames)
	Profile string
	// ScanFlags son flags extra para el scanner, ya validados
	ScanFlags []string
	// ScanTimeout sustituye StageTimeouts.Scan cuando es > 0
	ScanTimeout time.Duration
	// Deep activa directory scan y búsqueda de CVEs
	Deep bool
	// Screenshot captura los servicios web encontrados
	Screenshot bool
	// Persist escribe el reporte con el sink configurado
	Persist bool
}

// ReconOrchestrator ejecuta el pipeline fijo de stages sobre un target.
// No guarda estado por ejecución: cada Run crea su propia sesión.
type ReconOrchestrator struct {
	scanner   ports.PortScanner
	web       *WebAnalyzer
	dns       *DNSInvestigator
	vuln      ports.VulnLookup
	sink      ports.ReportSink
	presenter ui.Presenter
	logger    logx.Logger
	observers []ports.Notifier

	sessionTimeout time.Duration
	timeouts       StageTimeouts
	defaults       RunOptions
	webPaths       []string
	webWordlist    string
	subdomainWords []string
}

// ReconOptions configura el orquestador. Todos los adapters son opcionales:
// un stage sin adapter termina como failed-but-continue.
type ReconOptions struct {
	PortScanner     ports.PortScanner
	WebAnalyzer     *WebAnalyzer
	DNSInvestigator *DNSInvestigator
	VulnLookup      ports.VulnLookup
	ReportSink      ports.ReportSink
	Presenter       ui.Presenter
	Logger          logx.Logger
	Observers       []ports.Notifier

	// SessionTimeout es el presupuesto total (default 15m)
	SessionTimeout time.Duration
	StageTimeouts  StageTimeouts

	// Defaults se usan en Run
	Defaults RunOptions

	// WebWordlist es el nombre de la wordlist del directory scan (default "common")
	WebWordlist string
	// SubdomainWords alimenta la enumeración DNS (default CommonSubdomains)
	SubdomainWords []string
}

// NewReconOrchestrator crea el orquestador aplicando defaults.
func NewReconOrchestrator(opts ReconOptions) *ReconOrchestrator {
	if opts.Logger == nil {
		opts.Logger = logx.New()
	}
	if opts.Presenter == nil {
		opts.Presenter = ui.NewNoopPresenter()
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = 15 * time.Minute
	}
	if opts.Defaults.Profile == "" {
		opts.Defaults.Profile = domain.DefaultPortProfile
	}
	if opts.WebWordlist == "" {
		opts.WebWordlist = "common"
	}
	paths, err := WebWordlist(opts.WebWordlist)
	if err != nil {
		opts.Logger.Warn("unknown web wordlist, using common", "wordlist", opts.WebWordlist)
		opts.WebWordlist = "common"
		paths, _ = WebWordlist("common")
	}
	if len(opts.SubdomainWords) == 0 {
		opts.SubdomainWords = CommonSubdomains
	}

	return &ReconOrchestrator{
		scanner:        opts.PortScanner,
		web:            opts.WebAnalyzer,
		dns:            opts.DNSInvestigator,
		vuln:           opts.VulnLookup,
		sink:           opts.ReportSink,
		presenter:      opts.Presenter,
		logger:         opts.Logger.With("component", "orchestrator"),
		observers:      opts.Observers,
		sessionTimeout: opts.SessionTimeout,
		timeouts:       opts.StageTimeouts.withDefaults(),
		defaults:       opts.Defaults,
		webPaths:       paths,
		webWordlist:    opts.WebWordlist,
		subdomainWords: opts.SubdomainWords,
	}
}

// Defaults devuelve las opciones que usa Run.
func (o *ReconOrchestrator) Defaults() RunOptions {
	return o.defaults
}

// Run ejecuta el pipeline con las opciones por defecto.
func (o *ReconOrchestrator) Run(ctx context.Context, raw string) (*domain.ReconSession, error) {
	return o.RunWith(ctx, raw, o.defaults)
}

// reconRun es el estado de una única ejecución.
type reconRun struct {
	o       *ReconOrchestrator
	opts    RunOptions
	profile domain.PortProfile
	session *domain.ReconSession
	bus     *eventBus
	// shots son capturas pendientes de adjuntar al reporte
	shots []screenshot
	// stats para el presenter
	technologies []string
}

type screenshot struct {
	caption string
	data    []byte
}

// stage describe un paso del pipeline.
type stage struct {
	name    domain.StageName
	timeout time.Duration
	// when devuelve false y el motivo cuando el stage no aplica
	when func(r *reconRun) (bool, string)
	run  func(ctx context.Context, r *reconRun) domain.ScanStageResult
}

// RunWith ejecuta CLASSIFY → NETWORK_SCAN → SERVICE_ANALYSIS →
// DNS_INVESTIGATION → WEB_ANALYSIS → REPORT_EMIT.
// Solo un target inválido devuelve error; cualquier otro fallo queda
// registrado en su stage y el reporte se emite igualmente.
func (o *ReconOrchestrator) RunWith(ctx context.Context, raw string, opts RunOptions) (*domain.ReconSession, error) {
	if opts.Profile == "" {
		opts.Profile = o.defaults.Profile
	}
	profile, ok := domain.LookupPortProfile(opts.Profile)
	if !ok {
		return nil, perrors.Wrapf(perrors.ErrInvalidInput, "unknown port profile %q", opts.Profile)
	}

	start := time.Now()
	bus := newEventBus(o.observers, o.logger)
	defer bus.wait()

	// CLASSIFY
	target, err := domain.ClassifyForScan(raw)
	if err != nil {
		session := domain.NewReconSession(domain.Target{Raw: raw})
		session.Append(domain.ScanStageResult{
			Stage:    domain.StageClassify,
			Status:   domain.StatusAborted,
			RawText:  err.Error(),
			Err:      err,
			Duration: time.Since(start),
		})
		o.logger.Warn("session aborted", "target", raw, "error", err.Error())
		bus.emit(ctx, ports.NewEvent(
			ports.EventTypeSessionAborted,
			"orchestrator",
			ports.StageEvent{SessionID: session.ID, Stage: domain.StageClassify, Status: domain.StatusAborted, Err: err},
		).WithTarget(raw).WithSeverity(ports.EventSeverityError))
		return session, err
	}

	session := domain.NewReconSession(target)
	session.Append(domain.NewRunResult(
		domain.StageClassify,
		fmt.Sprintf("Target: %s\nKind: %s\n", target.Value, target.Kind),
		domain.NewFactsBuilder().Build(),
		nil,
		time.Since(start),
	))

	r := &reconRun{o: o, opts: opts, profile: profile, session: session, bus: bus}

	o.logger.Info("starting recon",
		"session", session.ID,
		"target", target.Value,
		"kind", target.Kind,
		"profile", profile.Name,
		"deep", opts.Deep,
	)
	o.presenter.Start(ui.ScanInfo{
		SessionID:      session.ID,
		Target:         target.Value,
		Kind:           target.Kind.String(),
		TimeoutSeconds: int(o.sessionTimeout.Seconds()),
		TotalStages:    len(domain.PipelineOrder),
		Deep:           opts.Deep,
	})
	bus.emit(ctx, ports.NewEvent(
		ports.EventTypeSessionStarted,
		"orchestrator",
		ports.SessionStartedEvent{SessionID: session.ID, Target: target},
	).WithTarget(target.Value))
	r.finishStage(ctx, 1, mustResult(session, domain.StageClassify))

	budgetCtx, cancel := context.WithTimeout(ctx, o.sessionTimeout)
	defer cancel()

	for i, st := range o.probeStages(opts) {
		number := i + 2
		var res domain.ScanStageResult

		switch {
		case budgetCtx.Err() != nil:
			res = domain.NewSkippedResult(st.name, domain.StatusSkippedTimeout, "session budget exhausted before stage start")
		default:
			if ok, reason := st.when(r); !ok {
				res = domain.NewSkippedResult(st.name, domain.StatusSkippedPredicate, reason)
				break
			}
			o.presenter.StartStage(ui.StageInfo{Number: number, TotalStages: len(domain.PipelineOrder), Name: st.name.Title()})
			res = r.execute(budgetCtx, st)
		}

		session.Append(res)
		r.finishStage(ctx, number, res)
	}

	// REPORT_EMIT corre siempre, con un contexto nuevo
	reportCtx, reportCancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeouts.Report)
	defer reportCancel()
	o.presenter.StartStage(ui.StageInfo{Number: len(domain.PipelineOrder), TotalStages: len(domain.PipelineOrder), Name: domain.StageReportEmit.Title()})
	report := r.emitReport(reportCtx)
	session.Append(report)
	r.finishStage(ctx, len(domain.PipelineOrder), report)

	duration := time.Since(start)
	facts := session.Facts()
	o.presenter.Finish(r.stats(duration, facts))
	bus.emit(ctx, ports.NewEvent(
		ports.EventTypeSessionCompleted,
		"orchestrator",
		ports.SessionCompletedEvent{
			SessionID: session.ID,
			Target:    target,
			Duration:  duration,
			OpenPorts: len(facts.Ports()),
		},
	).WithTarget(target.Value))

	o.logger.Info("recon completed",
		"session", session.ID,
		"duration", duration,
		"open_ports", len(facts.Ports()),
		"report", session.ReportPath,
	)
	return session, nil
}

// probeStages son los stages entre CLASSIFY y REPORT_EMIT, en orden.
func (o *ReconOrchestrator) probeStages(opts RunOptions) []stage {
	scanTimeout := o.timeouts.Scan
	if opts.ScanTimeout > 0 {
		scanTimeout = opts.ScanTimeout
	}
	return []stage{
		{name: domain.StageNetworkScan, timeout: scanTimeout, when: needsNetworkScan, run: runNetworkScan},
		{name: domain.StageServiceAnalysis, timeout: o.timeouts.Service, when: needsServiceAnalysis, run: runServiceAnalysis},
		{name: domain.StageDNSInvestigation, timeout: o.timeouts.DNS, when: needsDNS, run: runDNSInvestigation},
		{name: domain.StageWebAnalysis, timeout: o.timeouts.Web, when: needsWebAnalysis, run: runWebAnalysis},
	}
}

// execute corre un stage con su timeout y normaliza el error.
func (r *reconRun) execute(parent context.Context, st stage) domain.ScanStageResult {
	ctx, cancel := context.WithTimeout(parent, st.timeout)
	defer cancel()

	started := time.Now()
	res := st.run(ctx, r)
	res.Duration = time.Since(started)

	if res.Err != nil && ctx.Err() == context.DeadlineExceeded && !errors.Is(res.Err, domain.ErrProbeTimeout) {
		res.Err = &domain.ProbeTimeoutError{Probe: st.name.String(), Err: res.Err}
	}
	if res.Err != nil {
		r.o.logger.Warn("stage failed", "stage", st.name, "error", res.Err.Error())
	}
	return res
}

// Predicados. Solo leen facts de stages anteriores de la misma sesión.

func needsNetworkScan(r *reconRun) (bool, string) {
	if r.session.Target.Kind == domain.TargetKindURL {
		return false, "URL target: scanning the web service directly"
	}
	return true, ""
}

func needsServiceAnalysis(r *reconRun) (bool, string) {
	scan, ok := r.session.Result(domain.StageNetworkScan)
	if !ok || scan.Status != domain.StatusRun {
		return false, "network scan did not run"
	}
	if len(scan.Facts.Ports()) == 0 {
		return false, "no open ports found"
	}
	return true, ""
}

func needsDNS(r *reconRun) (bool, string) {
	if r.session.Target.Kind != domain.TargetKindDomain {
		return false, fmt.Sprintf("target kind %s has no DNS zone", r.session.Target.Kind)
	}
	return true, ""
}

func needsWebAnalysis(r *reconRun) (bool, string) {
	switch r.session.Target.Kind {
	case domain.TargetKindURL:
		return true, ""
	case domain.TargetKindNetwork:
		return false, "network target has no single web host"
	}
	if r.session.Facts().HasAnyPort(domain.WebPorts...) {
		return true, ""
	}
	return false, "No open web ports (80, 443, 8080, 8443) found. Skipping web scan."
}

// Stages.

func runNetworkScan(ctx context.Context, r *reconRun) domain.ScanStageResult {
	stage := domain.StageNetworkScan
	if r.o.scanner == nil {
		return domain.NewRunResult(stage, "", domain.NewFactsBuilder().Build(), domain.ErrAdapterMissing, 0)
	}
	res, err := r.o.scanner.Scan(ctx, r.session.Target, ports.ScanOptions{
		Ports:            r.profile.Ports,
		TopPorts:         r.profile.TopPorts,
		Options:          r.opts.ScanFlags,
		ServiceDetection: true,
	})
	raw := res.Text
	if res.Command != "" {
		raw = "Command: " + res.Command + "\n\n" + raw
	}
	return domain.NewRunResult(stage, raw, extract.Extract(stage, res.Text), err, 0)
}

func runServiceAnalysis(ctx context.Context, r *reconRun) domain.ScanStageResult {
	stage := domain.StageServiceAnalysis
	scan, _ := r.session.Result(domain.StageNetworkScan)

	report := AnalyzeServices(scan.Facts)
	text := report.Text()
	if r.opts.Deep && r.o.vuln != nil {
		text += "\n" + r.lookupVulns(ctx, scan.Facts)
	}
	// reutiliza los facts del scan, no produce nuevos
	return domain.NewRunResult(stage, text, domain.NewFactsBuilder().Build(), nil, 0)
}

// lookupVulns consulta CVEs por cada servicio con versión conocida.
func (r *reconRun) lookupVulns(ctx context.Context, facts domain.StructuredFacts) string {
	const maxPerService = 5

	var sb strings.Builder
	sb.WriteString("=== KNOWN VULNERABILITIES ===\n")
	found := 0
	for _, p := range facts.Ports() {
		svc, ok := facts.Service(p.Number)
		if !ok || svc.Version == "" {
			continue
		}
		product, version := svc.Name, svc.Version
		if svc.Product != "" {
			product = svc.Product
			version = strings.TrimSpace(strings.TrimPrefix(svc.Version, svc.Product))
		}
		cves, err := r.o.vuln.Lookup(ctx, product, version)
		if err != nil {
			fmt.Fprintf(&sb, "%s %s: lookup failed: %v\n", product, version, err)
			continue
		}
		if len(cves) == 0 {
			continue
		}
		if len(cves) > maxPerService {
			cves = cves[:maxPerService]
		}
		fmt.Fprintf(&sb, "\n%s %s (port %d):\n", product, version, p.Number)
		for _, c := range cves {
			fmt.Fprintf(&sb, "  %s (CVSS %.1f) %s\n", c.ID, c.Score, c.Description)
			found++
		}
	}
	if found == 0 {
		sb.WriteString("No known CVEs for the detected versions.\n")
	}
	return sb.String()
}

func runDNSInvestigation(ctx context.Context, r *reconRun) domain.ScanStageResult {
	stage := domain.StageDNSInvestigation
	if r.o.dns == nil {
		return domain.NewRunResult(stage, "", domain.NewFactsBuilder().Build(), domain.ErrAdapterMissing, 0)
	}
	report, err := r.o.dns.Investigate(ctx, r.session.Target.Value, r.o.subdomainWords)
	text := report.Text()
	return domain.NewRunResult(stage, text, extract.Extract(stage, text), err, 0)
}

func runWebAnalysis(ctx context.Context, r *reconRun) domain.ScanStageResult {
	stage := domain.StageWebAnalysis
	if r.o.web == nil {
		return domain.NewRunResult(stage, "", domain.NewFactsBuilder().Build(), domain.ErrAdapterMissing, 0)
	}

	facts := r.session.Facts()
	target := r.session.Target
	perPort := r.opts.Screenshot && target.Kind != domain.TargetKindURL

	opts := WebOptions{Screenshot: r.opts.Screenshot && !perPort}
	if r.opts.Deep {
		opts.Paths = r.o.webPaths
		opts.WordlistName = r.o.webWordlist
	}

	report, err := r.o.web.Analyze(ctx, Candidates(target, facts), opts)
	if err != nil {
		return domain.NewRunResult(stage, err.Error(), domain.NewFactsBuilder().Build(), err, 0)
	}

	r.technologies = report.Technologies
	if len(report.Screenshot) > 0 {
		r.shots = append(r.shots, screenshot{caption: report.URL, data: report.Screenshot})
	}
	if perPort {
		r.captureWebPorts(ctx, target, facts)
	}

	res := domain.NewRunResult(stage, report.Text(), extract.Extract(stage, report.RawResponse()), nil, 0)
	res.Protocol = report.Protocol
	return res
}

// captureWebPorts toma una captura por cada puerto web abierto.
func (r *reconRun) captureWebPorts(ctx context.Context, target domain.Target, facts domain.StructuredFacts) {
	host := target.Host()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	for _, port := range domain.WebPorts {
		if !facts.HasPort(port) {
			continue
		}
		scheme := "http"
		if port == 443 || port == 8443 {
			scheme = "https"
		}
		url := fmt.Sprintf("%s://%s:%d", scheme, host, port)
		png, _, err := r.o.web.Screenshot(ctx, []string{url})
		if err != nil {
			r.o.logger.Debug("screenshot failed", "url", url, "error", err.Error())
			continue
		}
		r.shots = append(r.shots, screenshot{caption: url, data: png})
	}
}

// emitReport escribe una sección por cada stage que se ejecutó, en orden.
func (r *reconRun) emitReport(ctx context.Context) domain.ScanStageResult {
	stage := domain.StageReportEmit
	started := time.Now()
	target := r.session.Target.Value

	var sink ports.ReportSink = r.o.sink
	var mem *MemorySink
	if sink == nil || !r.opts.Persist {
		mem = NewMemorySink()
		sink = mem
	}

	fail := func(err error) domain.ScanStageResult {
		r.o.logger.Warn("report emit failed", "error", err.Error())
		return domain.NewRunResult(stage, err.Error(), domain.NewFactsBuilder().Build(), err, time.Since(started))
	}

	h, err := sink.Init(ctx, target)
	if err != nil {
		return fail(perrors.Wrap(err, "init report"))
	}

	results := r.session.Results()
	for _, res := range results {
		if res.Status.Skipped() {
			continue
		}
		if err := sink.AppendSection(ctx, h, res.Stage.Title(), sectionText(res)); err != nil {
			return fail(perrors.Wrapf(err, "append section %s", res.Stage))
		}
	}
	if err := sink.AppendSection(ctx, h, "Pipeline Summary", pipelineSummary(results)); err != nil {
		return fail(perrors.Wrap(err, "append summary"))
	}
	for _, s := range r.shots {
		if err := sink.AppendImage(ctx, h, s.caption, s.data); err != nil {
			r.o.logger.Warn("screenshot not saved", "url", s.caption, "error", err.Error())
		}
	}

	if sw, ok := sink.(ports.SummaryWriter); ok {
		if err := sw.WriteSummary(ctx, h, r.session.View()); err != nil {
			r.o.logger.Warn("summary not written", "error", err.Error())
		}
	}

	path, err := sink.Finalize(ctx, h)
	if err != nil {
		return fail(perrors.Wrap(err, "finalize report"))
	}

	var text string
	if mem != nil {
		text = mem.Markdown(h)
	} else {
		r.session.ReportPath = path
		text = fmt.Sprintf("Report saved to: %s\n", path)
		if len(r.shots) > 0 {
			text += fmt.Sprintf("Screenshots: %d\n", len(r.shots))
		}
	}
	return domain.NewRunResult(stage, text, domain.NewFactsBuilder().Build(), nil, time.Since(started))
}

// sectionText añade el error inline a los stages fallidos.
func sectionText(res domain.ScanStageResult) string {
	text := strings.TrimRight(res.RawText, "\n")
	if res.Err == nil {
		return text
	}
	if text == "" || text == res.Err.Error() {
		return "Error: " + res.Err.Error()
	}
	return text + "\n\nError: " + res.Err.Error()
}

func pipelineSummary(results []domain.ScanStageResult) string {
	var sb strings.Builder
	for _, res := range results {
		fmt.Fprintf(&sb, "%-18s %s", res.Stage, res.Status)
		if res.Status.Skipped() && res.RawText != "" {
			fmt.Fprintf(&sb, " (%s)", res.RawText)
		}
		if res.Protocol != "" {
			fmt.Fprintf(&sb, " [%s]", res.Protocol)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// finishStage informa al presenter y a los observers.
func (r *reconRun) finishStage(ctx context.Context, number int, res domain.ScanStageResult) {
	r.o.presenter.FinishStage(ui.StageOutcome{
		Number:   number,
		Name:     res.Stage.Title(),
		Status:   presenterStatus(res.Status),
		Duration: res.Duration,
		Detail:   outcomeDetail(res),
	})

	eventType := ports.EventTypeStageCompleted
	severity := ports.EventSeverityInfo
	switch {
	case res.Status.Skipped():
		eventType = ports.EventTypeStageSkipped
	case res.Status == domain.StatusFailedContinue:
		eventType = ports.EventTypeStageFailed
		severity = ports.EventSeverityWarning
	}
	r.bus.emit(ctx, ports.NewEvent(
		eventType,
		"orchestrator",
		ports.StageEvent{
			SessionID: r.session.ID,
			Stage:     res.Stage,
			Status:    res.Status,
			Duration:  res.Duration,
			Err:       res.Err,
		},
	).WithTarget(r.session.Target.Value).WithSeverity(severity))
}

func (r *reconRun) stats(d time.Duration, facts domain.StructuredFacts) ui.ScanStats {
	s := ui.ScanStats{
		TotalDuration: d,
		OpenPorts:     len(facts.Ports()),
		Technologies:  r.technologies,
		ReportPath:    r.session.ReportPath,
	}
	for _, res := range r.session.Results() {
		switch {
		case res.Status == domain.StatusRun:
			s.StagesRun++
		case res.Status.Skipped():
			s.StagesSkipped++
		default:
			s.StagesFailed++
		}
	}
	return s
}

func presenterStatus(s domain.StageStatus) ui.Status {
	switch s {
	case domain.StatusRun:
		return ui.StatusSuccess
	case domain.StatusSkippedPredicate:
		return ui.StatusSkipped
	case domain.StatusSkippedTimeout, domain.StatusFailedContinue:
		return ui.StatusWarning
	default:
		return ui.StatusError
	}
}

func outcomeDetail(res domain.ScanStageResult) string {
	switch {
	case res.Err != nil:
		return res.Err.Error()
	case res.Status.Skipped():
		return res.RawText
	case res.Stage == domain.StageNetworkScan:
		return fmt.Sprintf("%d open ports", len(res.Facts.Ports()))
	case res.Protocol != "":
		return "served over " + res.Protocol
	default:
		return ""
	}
}

func mustResult(s *domain.ReconSession, stage domain.StageName) domain.ScanStageResult {
	res, _ := s.Result(stage)
	return res
}
