// Package analysis orchestrates the two-phase alarm root-cause workflow:
// Phase 1 generates ranked candidates for an alarm, Phase 2 turns the
// operator's selection into a final report. Results are cached by alarm
// fingerprint and concurrent generations for the same alarm are coalesced.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/minwoopark/alarmsense/internal/cache"
	"github.com/minwoopark/alarmsense/internal/rag"
	"github.com/minwoopark/alarmsense/internal/session"
	"github.com/minwoopark/alarmsense/internal/store"
	"github.com/minwoopark/alarmsense/pkg/models"
)

// Result is one completed Phase-1 generation. It is the unit stored in the
// analysis cache, so everything Phase 2 needs later must be in here.
type Result struct {
	Fingerprint    Fingerprint
	KPIData        models.KPIDaily
	ContextText    string
	ProblemSummary string
	Candidates     []models.RootCause
	LLMCalls       int
}

// Phase1Request addresses an alarm. Empty Date or EqpID means "the latest
// alarm"; empty KPI means "detect the breached KPI from the data".
type Phase1Request struct {
	AlarmDate  string
	AlarmEqpID string
	AlarmKPI   string
}

// Phase1Result is what a Phase-1 call returns to the HTTP layer. LLMCalls
// counts model invocations made by this call; a cache hit reports zero.
type Phase1Result struct {
	SessionID  string
	AlarmDate  string
	AlarmEqpID string
	AlarmKPI   string
	Candidates []models.RootCause
	LLMCalls   int
	CacheHit   bool
}

// LatestAlarm identifies the newest flagged alarm.
type LatestAlarm struct {
	Date  string `json:"alarm_date"`
	EqpID string `json:"alarm_eqp_id"`
	KPI   string `json:"alarm_kpi"`
}

// AnalyzeResult is the output of the combined one-shot path: Phase 1 plus
// an automatic Phase 2 on the highest-probability candidate.
type AnalyzeResult struct {
	Phase1        Phase1Result
	SelectedIndex int
	Report        models.FinalReport
	LLMCalls      int
}

// Service runs the analysis workflow.
type Service struct {
	provider models.LLMProvider
	store    store.Store
	rag      rag.Client
	sessions *session.Store

	analysisCache *cache.Memory[Result]
	reportCache   *cache.Memory[models.FinalReport]
	group         singleflight.Group

	inferenceTimeout time.Duration
}

// NewService wires the analysis service. The caches are constructed by the
// caller so the system endpoints can observe and clear them directly.
func NewService(
	provider models.LLMProvider,
	st store.Store,
	ragClient rag.Client,
	sessions *session.Store,
	analysisCache *cache.Memory[Result],
	reportCache *cache.Memory[models.FinalReport],
	inferenceTimeout time.Duration,
) *Service {
	return &Service{
		provider:         provider,
		store:            st,
		rag:              ragClient,
		sessions:         sessions,
		analysisCache:    analysisCache,
		reportCache:      reportCache,
		inferenceTimeout: inferenceTimeout,
	}
}

// Latest returns the identity of the newest flagged alarm.
func (s *Service) Latest(ctx context.Context) (LatestAlarm, error) {
	k, err := s.store.GetLatestAlarm(ctx)
	if err != nil {
		return LatestAlarm{}, err
	}
	return LatestAlarm{Date: k.Date, EqpID: k.EqpID, KPI: store.DetectAlarmKPI(*k)}, nil
}

// Phase1 resolves the request to an alarm, produces ranked root-cause
// candidates (from cache or a fresh generation), and mints a new session
// holding them. Every call gets its own session, cache hit or not, so two
// operators looking at the same alarm never share selection state.
func (s *Service) Phase1(ctx context.Context, req Phase1Request) (*Phase1Result, error) {
	res, hit, err := s.candidates(ctx, req)
	if err != nil {
		return nil, err
	}

	sessionID := s.sessions.Put(session.Session{
		AlarmDate:      res.Fingerprint.Date,
		AlarmEqpID:     res.Fingerprint.EqpID,
		AlarmKPI:       res.Fingerprint.KPI,
		Candidates:     res.Candidates,
		KPIData:        res.KPIData,
		ContextText:    res.ContextText,
		ProblemSummary: res.ProblemSummary,
	})

	llmCalls := res.LLMCalls
	if hit {
		llmCalls = 0
	}
	slog.Info("phase1 complete",
		"alarm", res.Fingerprint.Key(),
		"session_id", sessionID,
		"candidates", len(res.Candidates),
		"cache_hit", hit,
		"llm_calls", llmCalls)

	return &Phase1Result{
		SessionID:  sessionID,
		AlarmDate:  res.Fingerprint.Date,
		AlarmEqpID: res.Fingerprint.EqpID,
		AlarmKPI:   res.Fingerprint.KPI,
		Candidates: res.Candidates,
		LLMCalls:   llmCalls,
		CacheHit:   hit,
	}, nil
}

// Phase2 produces the final report for one candidate of an existing session.
// The (session, selection) pair is idempotent: repeating it returns the
// already-built report with the same report_id and no further model calls.
func (s *Service) Phase2(ctx context.Context, sessionID string, selectedIndex int) (*models.FinalReport, error) {
	key := cache.ReportKey(sessionID, selectedIndex)

	if rep, ok := s.reportCache.Get(key); ok {
		rep.LLMCalls = 0
		return &rep, nil
	}

	// Validate before any side effect. A failed Phase 2 must leave no trace.
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if selectedIndex < 0 || selectedIndex >= len(sess.Candidates) {
		return nil, fmt.Errorf("%w: index %d with %d candidates",
			ErrInvalidSelection, selectedIndex, len(sess.Candidates))
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		if rep, ok := s.reportCache.Get(key); ok {
			return rep, nil
		}
		rep, err := s.writeReport(ctx, sess, selectedIndex)
		if err != nil {
			return nil, err
		}
		s.reportCache.Set(key, *rep, 0)
		return *rep, nil
	})
	if err != nil {
		return nil, err
	}

	rep := v.(models.FinalReport)
	slog.Info("phase2 complete",
		"session_id", sessionID,
		"selected_index", selectedIndex,
		"report_id", rep.ReportID,
		"rag_saved", rep.RagSaved,
		"shared", shared)
	return &rep, nil
}

// Analyze runs both phases in one call, selecting the highest-probability
// candidate automatically. Ties keep the earlier candidate, which the model
// already ranked first.
func (s *Service) Analyze(ctx context.Context, req Phase1Request) (*AnalyzeResult, error) {
	p1, err := s.Phase1(ctx, req)
	if err != nil {
		return nil, err
	}

	best := 0
	for i, c := range p1.Candidates {
		if c.Probability > p1.Candidates[best].Probability {
			best = i
		}
	}

	rep, err := s.Phase2(ctx, p1.SessionID, best)
	if err != nil {
		return nil, err
	}

	return &AnalyzeResult{
		Phase1:        *p1,
		SelectedIndex: best,
		Report:        *rep,
		LLMCalls:      p1.LLMCalls + rep.LLMCalls,
	}, nil
}

// candidates resolves the request, consults the cache, and otherwise runs a
// single coalesced generation for the fingerprint. Concurrent callers for
// the same alarm all receive the one generation's result; if it fails, it
// fails for all of them and nothing is cached.
func (s *Service) candidates(ctx context.Context, req Phase1Request) (Result, bool, error) {
	fp, kpiRow, err := s.resolve(ctx, req)
	if err != nil {
		return Result{}, false, err
	}

	if cached, ok := s.analysisCache.Get(fp.Key()); ok {
		return cached, true, nil
	}

	v, err, shared := s.group.Do(fp.Key(), func() (any, error) {
		if cached, ok := s.analysisCache.Get(fp.Key()); ok {
			return cached, nil
		}
		res, err := s.generate(ctx, fp, *kpiRow)
		if err != nil {
			return nil, err
		}
		s.analysisCache.Set(fp.Key(), res, 0)
		return res, nil
	})
	if err != nil {
		return Result{}, false, err
	}
	if shared {
		slog.Debug("generation coalesced", "alarm", fp.Key())
	}
	return v.(Result), false, nil
}

// resolve turns a request into a concrete fingerprint plus the KPI row it
// refers to. Requests without a date or equipment resolve to the latest
// flagged alarm; requests without a KPI get the detected breach.
func (s *Service) resolve(ctx context.Context, req Phase1Request) (Fingerprint, *models.KPIDaily, error) {
	var (
		row *models.KPIDaily
		err error
	)
	if req.AlarmDate == "" || req.AlarmEqpID == "" {
		row, err = s.store.GetLatestAlarm(ctx)
	} else {
		row, err = s.store.GetKPIDaily(ctx, req.AlarmDate, req.AlarmEqpID)
	}
	if err != nil {
		return Fingerprint{}, nil, err
	}

	kpi := req.AlarmKPI
	if kpi == "" {
		kpi = store.DetectAlarmKPI(*row)
	} else if !store.ValidKPI(kpi) {
		return Fingerprint{}, nil, fmt.Errorf("%w: %q", ErrInvalidKPI, kpi)
	}

	return Fingerprint{Date: row.Date, EqpID: row.EqpID, KPI: kpi}, row, nil
}

// generate runs one root-cause generation end to end: gather context, call
// the model under the inference timeout, parse, retry once on unparsable
// output with a stricter instruction.
func (s *Service) generate(ctx context.Context, fp Fingerprint, k models.KPIDaily) (Result, error) {
	events, err := s.store.GetEqpStatusHistory(ctx, fp.EqpID, fp.Date)
	if err != nil {
		slog.Warn("status history unavailable", "eqp_id", fp.EqpID, "error", err)
	}
	lots, err := s.store.GetLotHistory(ctx, fp.EqpID, fp.Date)
	if err != nil {
		slog.Warn("lot history unavailable", "eqp_id", fp.EqpID, "error", err)
	}

	contextText := buildContext(k, fp.KPI, events, lots)
	prompt := rootCausePrompt(contextText)

	cctx, cancel := context.WithTimeout(ctx, s.inferenceTimeout)
	defer cancel()

	llmCalls := 1
	raw, err := s.provider.Complete(cctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("root cause generation: %w", err)
	}

	summary, causes, perr := parseRootCauses(raw)
	if perr != nil {
		slog.Warn("unparsable completion, retrying once", "alarm", fp.Key(), "error", perr)
		llmCalls++
		raw, err = s.provider.Complete(cctx, prompt+strictJSONReminder)
		if err != nil {
			return Result{}, fmt.Errorf("root cause retry: %w", err)
		}
		summary, causes, perr = parseRootCauses(raw)
		if perr != nil {
			return Result{}, fmt.Errorf("root cause generation: %w", perr)
		}
	}

	if summary == "" {
		summary = buildProblemSummary(k, fp.KPI)
	}

	return Result{
		Fingerprint:    fp,
		KPIData:        k,
		ContextText:    contextText,
		ProblemSummary: summary,
		Candidates:     causes,
		LLMCalls:       llmCalls,
	}, nil
}

// writeReport generates the Phase-2 narrative and persists it to the
// retrieval store. Persistence failure is reported, not fatal: the operator
// still gets their report.
func (s *Service) writeReport(ctx context.Context, sess session.Session, selectedIndex int) (*models.FinalReport, error) {
	selected := sess.Candidates[selectedIndex]

	summary := sess.ProblemSummary
	if summary == "" {
		summary = buildProblemSummary(sess.KPIData, sess.AlarmKPI)
	}

	cctx, cancel := context.WithTimeout(ctx, s.inferenceTimeout)
	defer cancel()

	narrative, err := s.provider.Complete(cctx, reportPrompt(summary, selected, sess.ContextText))
	if err != nil {
		return nil, fmt.Errorf("report generation: %w", err)
	}

	reportID := fmt.Sprintf("report_%s_%s_%s", sess.AlarmDate, sess.AlarmEqpID, sess.AlarmKPI)

	ragSaved := true
	saveErr := s.rag.SaveReport(ctx, rag.Report{
		ID:   reportID,
		Text: narrative,
		Metadata: map[string]string{
			"alarm_date":   sess.AlarmDate,
			"alarm_eqp_id": sess.AlarmEqpID,
			"alarm_kpi":    sess.AlarmKPI,
			"cause":        selected.Cause,
		},
	})
	if saveErr != nil {
		slog.Warn("report persistence failed", "report_id", reportID, "error", saveErr)
		ragSaved = false
	}

	return &models.FinalReport{
		ReportID:      reportID,
		SelectedCause: selected,
		Narrative:     narrative,
		RagSaved:      ragSaved,
		LLMCalls:      1,
	}, nil
}
