package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/minwoopark/alarmsense/internal/ai"
	"github.com/minwoopark/alarmsense/internal/api/response"
	"github.com/minwoopark/alarmsense/internal/qa"
	"github.com/minwoopark/alarmsense/pkg/models"
)

// QuestionService defines the interface the question handler depends on.
type QuestionService interface {
	Answer(ctx context.Context, question string) (qa.Answer, error)
}

// NewAnswerHandler returns an http.HandlerFunc for POST /question/answer.
func NewAnswerHandler(svc QuestionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req struct {
			Question string `json:"question"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		answer, err := svc.Answer(r.Context(), req.Question)
		if err != nil {
			switch {
			case errors.Is(err, qa.ErrEmptyQuestion):
				response.Error(w, http.StatusBadRequest, "question is required")
			case errors.Is(err, ai.ErrInferenceTimeout):
				response.Error(w, http.StatusGatewayTimeout, "answering took too long and was cancelled")
			default:
				response.Error(w, http.StatusInternalServerError, "an unexpected error occurred")
			}
			return
		}

		similar := answer.SimilarReports
		if similar == nil {
			similar = []models.SimilarReport{}
		}

		response.JSON(w, answerResponse{
			Success:        true,
			Question:       req.Question,
			Answer:         answer.Text,
			Source:         answer.Source,
			ReportExists:   answer.ReportExists,
			SimilarReports: similar,
			LLMCalls:       answer.LLMCalls,
			ProcessingTime: time.Since(start).Seconds(),
		})
	}
}

type answerResponse struct {
	Success        bool                   `json:"success"`
	Question       string                 `json:"question"`
	Answer         string                 `json:"answer"`
	Source         models.AnswerSource    `json:"source"`
	ReportExists   bool                   `json:"report_exists"`
	SimilarReports []models.SimilarReport `json:"similar_reports"`
	LLMCalls       int                    `json:"llm_calls"`
	ProcessingTime float64                `json:"processing_time"`
}
