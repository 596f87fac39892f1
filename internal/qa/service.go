// Package qa answers free-text questions about past alarms by retrieving
// similar reports and asking the model, with a cache in front and a
// degraded retrieval-only fallback when the model is unreachable.
package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/minwoopark/alarmsense/internal/ai"
	"github.com/minwoopark/alarmsense/internal/cache"
	"github.com/minwoopark/alarmsense/internal/rag"
	"github.com/minwoopark/alarmsense/pkg/models"
)

// ErrEmptyQuestion is returned when the question is blank.
var ErrEmptyQuestion = errors.New("question must not be empty")

// reportExistsThreshold is the nearest-neighbor distance under which a past
// report counts as covering the question.
const reportExistsThreshold = 1.5

// similarLimit caps how many retrieved reports are attached to an answer.
const similarLimit = 3

// Answer is one question-answering result. Source records whether it came
// from the model, the cache, or the retrieval-only fallback.
type Answer struct {
	Text           string
	ReportExists   bool
	SimilarReports []models.SimilarReport
	LLMCalls       int
	Source         models.AnswerSource
}

// Service runs the question path.
type Service struct {
	provider models.LLMProvider
	rag      rag.Client

	cache *cache.Memory[Answer]
	group singleflight.Group

	inferenceTimeout time.Duration
}

// NewService wires the question service around an externally constructed
// cache so the system endpoints can observe and clear it.
func NewService(provider models.LLMProvider, ragClient rag.Client, answerCache *cache.Memory[Answer], inferenceTimeout time.Duration) *Service {
	return &Service{
		provider:         provider,
		rag:              ragClient,
		cache:            answerCache,
		inferenceTimeout: inferenceTimeout,
	}
}

// Answer responds to one question. Identical questions (after case and
// whitespace normalization) within the cache TTL are answered from cache
// without touching the model; concurrent identical questions share one
// model call. Fallback answers are returned but never cached, so the model
// gets another chance as soon as it recovers.
func (s *Service) Answer(ctx context.Context, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, ErrEmptyQuestion
	}

	key := cache.QuestionKey(question)
	if a, ok := s.cache.Get(key); ok {
		a.Source = models.AnswerSourceCache
		a.LLMCalls = 0
		return a, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		if a, ok := s.cache.Get(key); ok {
			a.Source = models.AnswerSourceCache
			a.LLMCalls = 0
			return a, nil
		}

		a, err := s.answer(ctx, question)
		if err != nil {
			return Answer{}, err
		}
		if a.Source == models.AnswerSourceModel {
			s.cache.Set(key, a, 0)
		}
		return a, nil
	})
	if err != nil {
		return Answer{}, err
	}
	return v.(Answer), nil
}

func (s *Service) answer(ctx context.Context, question string) (Answer, error) {
	similar, err := s.rag.Search(ctx, question, similarLimit)
	if err != nil {
		// retrieval is supplementary here; answer without it
		slog.Warn("report retrieval failed", "error", err)
		similar = nil
	}

	a := Answer{
		SimilarReports: similar,
		ReportExists:   len(similar) > 0 && similar[0].Distance < reportExistsThreshold,
	}

	cctx, cancel := context.WithTimeout(ctx, s.inferenceTimeout)
	defer cancel()

	text, err := s.provider.Complete(cctx, answerPrompt(question, similar))
	switch {
	case err == nil:
		a.Text = text
		a.Source = models.AnswerSourceModel
		a.LLMCalls = 1
	case errors.Is(err, ai.ErrProviderUnavailable):
		slog.Warn("provider unavailable, serving retrieval-only answer", "error", err)
		a.Text = fallbackAnswer(similar)
		a.Source = models.AnswerSourceFallback
	default:
		return Answer{}, fmt.Errorf("answer generation: %w", err)
	}

	return a, nil
}

// fallbackAnswer assembles a degraded answer from retrieved reports alone.
func fallbackAnswer(similar []models.SimilarReport) string {
	if len(similar) == 0 {
		return "The analysis model is currently unreachable and no past reports matched this question. Please try again later."
	}

	var b strings.Builder
	b.WriteString("The analysis model is currently unreachable. The closest past reports are listed below; they may address your question.\n")
	for _, r := range similar {
		fmt.Fprintf(&b, "\n- %s (distance %.2f): %s", r.ID, r.Distance, r.Preview)
	}
	return b.String()
}
