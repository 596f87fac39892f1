package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/minwoopark/alarmsense/internal/ai"
	"github.com/minwoopark/alarmsense/internal/analysis"
	"github.com/minwoopark/alarmsense/internal/api/response"
	"github.com/minwoopark/alarmsense/internal/store"
	"github.com/minwoopark/alarmsense/pkg/models"
)

// AlarmService defines the interface the alarm handlers depend on.
type AlarmService interface {
	Latest(ctx context.Context) (analysis.LatestAlarm, error)
	Phase1(ctx context.Context, req analysis.Phase1Request) (*analysis.Phase1Result, error)
	Phase2(ctx context.Context, sessionID string, selectedIndex int) (*models.FinalReport, error)
	Analyze(ctx context.Context, req analysis.Phase1Request) (*analysis.AnalyzeResult, error)
}

// NewLatestHandler returns an http.HandlerFunc for GET /alarm/latest.
func NewLatestHandler(svc AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latest, err := svc.Latest(r.Context())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "no alarm on record")
				return
			}
			response.Error(w, http.StatusInternalServerError, "an unexpected error occurred")
			return
		}

		response.JSON(w, latestResponse{
			Success: true,
			Date:    latest.Date,
			EqpID:   latest.EqpID,
			KPI:     latest.KPI,
		})
	}
}

// NewPhase1Handler returns an http.HandlerFunc for POST /alarm/phase1.
func NewPhase1Handler(svc AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req phase1Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		result, err := svc.Phase1(r.Context(), analysis.Phase1Request{
			AlarmDate:  req.AlarmDate,
			AlarmEqpID: req.AlarmEqpID,
			AlarmKPI:   req.AlarmKPI,
		})
		if err != nil {
			writeAlarmError(w, err)
			return
		}

		response.JSON(w, phase1Response{
			Success:        true,
			SessionID:      result.SessionID,
			AlarmDate:      result.AlarmDate,
			AlarmEqpID:     result.AlarmEqpID,
			AlarmKPI:       result.AlarmKPI,
			RootCauses:     result.Candidates,
			CacheHit:       result.CacheHit,
			LLMCalls:       result.LLMCalls,
			ProcessingTime: time.Since(start).Seconds(),
		})
	}
}

// NewPhase2Handler returns an http.HandlerFunc for POST /alarm/phase2.
func NewPhase2Handler(svc AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req phase2Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.SessionID == "" {
			response.Error(w, http.StatusBadRequest, "session_id is required")
			return
		}
		if req.SelectedIndex == nil {
			response.Error(w, http.StatusBadRequest, "selected_index is required")
			return
		}

		report, err := svc.Phase2(r.Context(), req.SessionID, *req.SelectedIndex)
		if err != nil {
			writeAlarmError(w, err)
			return
		}

		response.JSON(w, phase2Response{
			Success:        true,
			ReportID:       report.ReportID,
			SelectedCause:  report.SelectedCause,
			FinalReport:    report.Narrative,
			RagSaved:       report.RagSaved,
			LLMCalls:       report.LLMCalls,
			ProcessingTime: time.Since(start).Seconds(),
		})
	}
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /alarm/analyze,
// the one-shot variant that auto-selects the top-ranked candidate.
func NewAnalyzeHandler(svc AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req phase1Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		result, err := svc.Analyze(r.Context(), analysis.Phase1Request{
			AlarmDate:  req.AlarmDate,
			AlarmEqpID: req.AlarmEqpID,
			AlarmKPI:   req.AlarmKPI,
		})
		if err != nil {
			writeAlarmError(w, err)
			return
		}

		response.JSON(w, analyzeResponse{
			Success:        true,
			SessionID:      result.Phase1.SessionID,
			AlarmDate:      result.Phase1.AlarmDate,
			AlarmEqpID:     result.Phase1.AlarmEqpID,
			AlarmKPI:       result.Phase1.AlarmKPI,
			RootCauses:     result.Phase1.Candidates,
			SelectedIndex:  result.SelectedIndex,
			SelectedCause:  result.Report.SelectedCause,
			FinalReport:    result.Report.Narrative,
			ReportID:       result.Report.ReportID,
			RagSaved:       result.Report.RagSaved,
			LLMCalls:       result.LLMCalls,
			ProcessingTime: time.Since(start).Seconds(),
		})
	}
}

// writeAlarmError maps analysis errors onto the HTTP taxonomy: 4xx for
// caller mistakes, 5xx for generation and infrastructure failures.
func writeAlarmError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analysis.ErrSessionNotFound):
		response.Error(w, http.StatusNotFound,
			"session expired or invalid; re-run phase1 to get a new session")
	case errors.Is(err, analysis.ErrInvalidSelection):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, analysis.ErrInvalidKPI):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "no KPI data for the requested alarm")
	case errors.Is(err, ai.ErrProviderUnavailable):
		response.Error(w, http.StatusBadGateway, "the analysis model is not available")
	case errors.Is(err, ai.ErrInferenceTimeout):
		response.Error(w, http.StatusGatewayTimeout, "analysis took too long and was cancelled")
	default:
		response.Error(w, http.StatusInternalServerError, "an unexpected error occurred")
	}
}

type phase1Request struct {
	AlarmDate  string `json:"alarm_date"`
	AlarmEqpID string `json:"alarm_eqp_id"`
	AlarmKPI   string `json:"alarm_kpi"`
}

type phase2Request struct {
	SessionID     string `json:"session_id"`
	SelectedIndex *int   `json:"selected_index"`
}

type latestResponse struct {
	Success bool   `json:"success"`
	Date    string `json:"date"`
	EqpID   string `json:"eqp_id"`
	KPI     string `json:"kpi"`
}

type phase1Response struct {
	Success        bool               `json:"success"`
	SessionID      string             `json:"session_id"`
	AlarmDate      string             `json:"alarm_date"`
	AlarmEqpID     string             `json:"alarm_eqp_id"`
	AlarmKPI       string             `json:"alarm_kpi"`
	RootCauses     []models.RootCause `json:"root_causes"`
	CacheHit       bool               `json:"cache_hit"`
	LLMCalls       int                `json:"llm_calls"`
	ProcessingTime float64            `json:"processing_time"`
}

type phase2Response struct {
	Success        bool             `json:"success"`
	ReportID       string           `json:"report_id"`
	SelectedCause  models.RootCause `json:"selected_cause"`
	FinalReport    string           `json:"final_report"`
	RagSaved       bool             `json:"rag_saved"`
	LLMCalls       int              `json:"llm_calls"`
	ProcessingTime float64          `json:"processing_time"`
}

type analyzeResponse struct {
	Success        bool               `json:"success"`
	SessionID      string             `json:"session_id"`
	AlarmDate      string             `json:"alarm_date"`
	AlarmEqpID     string             `json:"alarm_eqp_id"`
	AlarmKPI       string             `json:"alarm_kpi"`
	RootCauses     []models.RootCause `json:"root_causes"`
	SelectedIndex  int                `json:"selected_index"`
	SelectedCause  models.RootCause   `json:"selected_cause"`
	FinalReport    string             `json:"final_report"`
	ReportID       string             `json:"report_id"`
	RagSaved       bool               `json:"rag_saved"`
	LLMCalls       int                `json:"llm_calls"`
	ProcessingTime float64            `json:"processing_time"`
}
