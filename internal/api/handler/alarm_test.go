package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minwoopark/alarmsense/internal/ai"
	"github.com/minwoopark/alarmsense/internal/analysis"
	"github.com/minwoopark/alarmsense/internal/api/handler"
	"github.com/minwoopark/alarmsense/internal/store"
	"github.com/minwoopark/alarmsense/pkg/models"
)

type mockAlarmService struct {
	latestFn  func(ctx context.Context) (analysis.LatestAlarm, error)
	phase1Fn  func(ctx context.Context, req analysis.Phase1Request) (*analysis.Phase1Result, error)
	phase2Fn  func(ctx context.Context, sessionID string, selectedIndex int) (*models.FinalReport, error)
	analyzeFn func(ctx context.Context, req analysis.Phase1Request) (*analysis.AnalyzeResult, error)
}

func (m *mockAlarmService) Latest(ctx context.Context) (analysis.LatestAlarm, error) {
	return m.latestFn(ctx)
}

func (m *mockAlarmService) Phase1(ctx context.Context, req analysis.Phase1Request) (*analysis.Phase1Result, error) {
	return m.phase1Fn(ctx, req)
}

func (m *mockAlarmService) Phase2(ctx context.Context, sessionID string, selectedIndex int) (*models.FinalReport, error) {
	return m.phase2Fn(ctx, sessionID, selectedIndex)
}

func (m *mockAlarmService) Analyze(ctx context.Context, req analysis.Phase1Request) (*analysis.AnalyzeResult, error) {
	return m.analyzeFn(ctx, req)
}

func candidates() []models.RootCause {
	return []models.RootCause{
		{Cause: "Repeated chamber faults", Probability: 80, Evidence: "55 min DOWN"},
		{Cause: "Lot starvation", Probability: 35, Evidence: "track-in gap"},
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLatestHandler(t *testing.T) {
	svc := &mockAlarmService{
		latestFn: func(context.Context) (analysis.LatestAlarm, error) {
			return analysis.LatestAlarm{Date: "2026-01-31", EqpID: "EQP12", KPI: "THP"}, nil
		},
	}
	h := handler.NewLatestHandler(svc)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alarm/latest", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "2026-01-31", body["date"])
	assert.Equal(t, "EQP12", body["eqp_id"])
	assert.Equal(t, "THP", body["kpi"])
}

func TestLatestHandler_NoAlarm(t *testing.T) {
	svc := &mockAlarmService{
		latestFn: func(context.Context) (analysis.LatestAlarm, error) {
			return analysis.LatestAlarm{}, store.ErrNotFound
		},
	}
	h := handler.NewLatestHandler(svc)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alarm/latest", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])
}

func TestPhase1Handler(t *testing.T) {
	svc := &mockAlarmService{
		phase1Fn: func(_ context.Context, req analysis.Phase1Request) (*analysis.Phase1Result, error) {
			assert.Equal(t, "2026-01-31", req.AlarmDate)
			return &analysis.Phase1Result{
				SessionID:  "s-1",
				AlarmDate:  req.AlarmDate,
				AlarmEqpID: "EQP12",
				AlarmKPI:   "THP",
				Candidates: candidates(),
				LLMCalls:   1,
			}, nil
		},
	}
	h := handler.NewPhase1Handler(svc)

	body := `{"alarm_date": "2026-01-31", "alarm_eqp_id": "EQP12"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alarm/phase1", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "s-1", got["session_id"])
	assert.Equal(t, "THP", got["alarm_kpi"])
	assert.Len(t, got["root_causes"], 2)
	assert.Equal(t, float64(1), got["llm_calls"])
	assert.Contains(t, got, "processing_time")
}

func TestPhase1Handler_InvalidJSON(t *testing.T) {
	h := handler.NewPhase1Handler(&mockAlarmService{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alarm/phase1", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPhase1Handler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown alarm", store.ErrNotFound, http.StatusNotFound},
		{"invalid kpi", analysis.ErrInvalidKPI, http.StatusBadRequest},
		{"provider down", ai.ErrProviderUnavailable, http.StatusBadGateway},
		{"timeout", ai.ErrInferenceTimeout, http.StatusGatewayTimeout},
		{"no candidates", analysis.ErrNoCandidates, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockAlarmService{
				phase1Fn: func(context.Context, analysis.Phase1Request) (*analysis.Phase1Result, error) {
					return nil, tc.err
				},
			}
			h := handler.NewPhase1Handler(svc)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alarm/phase1", strings.NewReader("{}")))

			assert.Equal(t, tc.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestPhase2Handler(t *testing.T) {
	svc := &mockAlarmService{
		phase2Fn: func(_ context.Context, sessionID string, selectedIndex int) (*models.FinalReport, error) {
			assert.Equal(t, "s-1", sessionID)
			assert.Equal(t, 0, selectedIndex)
			return &models.FinalReport{
				ReportID:      "report_2026-01-31_EQP12_THP",
				SelectedCause: candidates()[0],
				Narrative:     "## Summary\nEQP12 lost throughput...",
				RagSaved:      true,
				LLMCalls:      1,
			}, nil
		},
	}
	h := handler.NewPhase2Handler(svc)

	body := `{"session_id": "s-1", "selected_index": 0}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alarm/phase2", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "report_2026-01-31_EQP12_THP", got["report_id"])
	assert.Equal(t, true, got["rag_saved"])
	assert.Contains(t, got["final_report"], "EQP12")
	assert.Contains(t, got, "processing_time")
}

func TestPhase2Handler_MissingFields(t *testing.T) {
	h := handler.NewPhase2Handler(&mockAlarmService{})

	for _, body := range []string{
		`{"selected_index": 0}`,
		`{"session_id": "s-1"}`,
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alarm/phase2", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestPhase2Handler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"expired session", analysis.ErrSessionNotFound, http.StatusNotFound},
		{"bad index", analysis.ErrInvalidSelection, http.StatusBadRequest},
		{"provider down", ai.ErrProviderUnavailable, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockAlarmService{
				phase2Fn: func(context.Context, string, int) (*models.FinalReport, error) {
					return nil, tc.err
				},
			}
			h := handler.NewPhase2Handler(svc)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alarm/phase2",
				strings.NewReader(`{"session_id": "s-1", "selected_index": 9}`)))

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestAnalyzeHandler(t *testing.T) {
	svc := &mockAlarmService{
		analyzeFn: func(_ context.Context, req analysis.Phase1Request) (*analysis.AnalyzeResult, error) {
			return &analysis.AnalyzeResult{
				Phase1: analysis.Phase1Result{
					SessionID:  "s-2",
					AlarmDate:  "2026-01-31",
					AlarmEqpID: "EQP12",
					AlarmKPI:   "THP",
					Candidates: candidates(),
					LLMCalls:   1,
				},
				SelectedIndex: 0,
				Report: models.FinalReport{
					ReportID:      "report_2026-01-31_EQP12_THP",
					SelectedCause: candidates()[0],
					Narrative:     "## Summary\n...",
					RagSaved:      true,
					LLMCalls:      1,
				},
				LLMCalls: 2,
			}, nil
		},
	}
	h := handler.NewAnalyzeHandler(svc)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alarm/analyze", strings.NewReader("{}")))

	assert.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "s-2", got["session_id"])
	assert.Equal(t, float64(0), got["selected_index"])
	assert.Equal(t, float64(2), got["llm_calls"])
	assert.Equal(t, "report_2026-01-31_EQP12_THP", got["report_id"])
}
