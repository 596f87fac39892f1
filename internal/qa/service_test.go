package qa_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minwoopark/alarmsense/internal/ai"
	"github.com/minwoopark/alarmsense/internal/ai/mock"
	"github.com/minwoopark/alarmsense/internal/cache"
	"github.com/minwoopark/alarmsense/internal/qa"
	"github.com/minwoopark/alarmsense/internal/rag"
	"github.com/minwoopark/alarmsense/pkg/models"
)

type fakeRag struct {
	results   []models.SimilarReport
	searchErr error
}

func (f *fakeRag) SaveReport(context.Context, rag.Report) error { return nil }

func (f *fakeRag) Search(context.Context, string, int) ([]models.SimilarReport, error) {
	return f.results, f.searchErr
}

func (f *fakeRag) GetReport(context.Context, string) (*rag.Report, bool, error) {
	return nil, false, nil
}

func (f *fakeRag) CountReports(context.Context) (int, error) { return len(f.results), nil }

func (f *fakeRag) Ready(context.Context) error { return nil }

func closeMatch() []models.SimilarReport {
	return []models.SimilarReport{
		{ID: "report_2026-01-31_EQP12_THP", Distance: 0.42, Preview: "Throughput fell due to chamber faults..."},
		{ID: "report_2026-01-12_EQP07_OEE", Distance: 1.7, Preview: "OEE dip after PM overrun..."},
	}
}

func newService(provider models.LLMProvider, rc rag.Client, ttl time.Duration) *qa.Service {
	return qa.NewService(provider, rc, cache.NewMemory[qa.Answer](ttl), 5*time.Second)
}

func TestAnswer_FromModel(t *testing.T) {
	provider := mock.NewMockProvider("EQP12 lost throughput to repeated chamber faults.")
	svc := newService(provider, &fakeRag{results: closeMatch()}, time.Hour)

	a, err := svc.Answer(context.Background(), "Why did EQP12 throughput drop?")
	require.NoError(t, err)

	assert.Equal(t, models.AnswerSourceModel, a.Source)
	assert.Equal(t, 1, a.LLMCalls)
	assert.True(t, a.ReportExists)
	assert.Len(t, a.SimilarReports, 2)
	assert.Contains(t, a.Text, "chamber faults")
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	svc := newService(mock.NewMockProvider("x"), &fakeRag{}, time.Hour)

	_, err := svc.Answer(context.Background(), "   ")
	assert.ErrorIs(t, err, qa.ErrEmptyQuestion)
}

func TestAnswer_CacheHit(t *testing.T) {
	provider := mock.NewMockProvider("answer")
	svc := newService(provider, &fakeRag{results: closeMatch()}, time.Hour)

	_, err := svc.Answer(context.Background(), "Why did EQP12 throughput drop?")
	require.NoError(t, err)

	a, err := svc.Answer(context.Background(), "Why did EQP12 throughput drop?")
	require.NoError(t, err)
	assert.Equal(t, models.AnswerSourceCache, a.Source)
	assert.Equal(t, 0, a.LLMCalls)
	assert.Equal(t, int64(1), provider.Calls.Load())
}

func TestAnswer_CacheKeyNormalizesCaseAndSpace(t *testing.T) {
	provider := mock.NewMockProvider("answer")
	svc := newService(provider, &fakeRag{}, time.Hour)

	_, err := svc.Answer(context.Background(), "Why did EQP12 throughput drop?")
	require.NoError(t, err)
	a, err := svc.Answer(context.Background(), "  WHY did eqp12 throughput drop?  ")
	require.NoError(t, err)

	assert.Equal(t, models.AnswerSourceCache, a.Source)
	assert.Equal(t, int64(1), provider.Calls.Load())
}

func TestAnswer_NoReportExistsBeyondThreshold(t *testing.T) {
	rc := &fakeRag{results: []models.SimilarReport{{ID: "r1", Distance: 2.3, Preview: "..."}}}
	svc := newService(mock.NewMockProvider("answer"), rc, time.Hour)

	a, err := svc.Answer(context.Background(), "Any similar WIP issues?")
	require.NoError(t, err)
	assert.False(t, a.ReportExists)
	assert.Len(t, a.SimilarReports, 1)
}

func TestAnswer_SearchFailureStillAnswers(t *testing.T) {
	rc := &fakeRag{searchErr: rag.ErrRagUnreachable}
	svc := newService(mock.NewMockProvider("answer without context"), rc, time.Hour)

	a, err := svc.Answer(context.Background(), "What happened on L2 yesterday?")
	require.NoError(t, err)
	assert.Equal(t, models.AnswerSourceModel, a.Source)
	assert.False(t, a.ReportExists)
	assert.Empty(t, a.SimilarReports)
}

func TestAnswer_FallbackWhenProviderUnreachable(t *testing.T) {
	provider := mock.NewFailingProvider(ai.ErrProviderUnavailable)
	svc := newService(provider, &fakeRag{results: closeMatch()}, time.Hour)

	a, err := svc.Answer(context.Background(), "Why did EQP12 throughput drop?")
	require.NoError(t, err)

	assert.Equal(t, models.AnswerSourceFallback, a.Source)
	assert.Equal(t, 0, a.LLMCalls)
	assert.Contains(t, a.Text, "report_2026-01-31_EQP12_THP")
}

func TestAnswer_FallbackIsNotCached(t *testing.T) {
	provider := mock.NewFailingProvider(ai.ErrProviderUnavailable)
	svc := newService(provider, &fakeRag{results: closeMatch()}, time.Hour)

	_, err := svc.Answer(context.Background(), "Why did EQP12 throughput drop?")
	require.NoError(t, err)
	a, err := svc.Answer(context.Background(), "Why did EQP12 throughput drop?")
	require.NoError(t, err)

	// second call tried the model again instead of serving a cached fallback
	assert.Equal(t, models.AnswerSourceFallback, a.Source)
	assert.Equal(t, int64(2), provider.Calls.Load())
}

func TestAnswer_TimeoutIsAnError(t *testing.T) {
	provider := mock.NewFailingProvider(ai.ErrInferenceTimeout)
	svc := newService(provider, &fakeRag{}, time.Hour)

	_, err := svc.Answer(context.Background(), "Why did EQP12 throughput drop?")
	assert.ErrorIs(t, err, ai.ErrInferenceTimeout)
}

func TestAnswer_ConcurrentIdenticalQuestionsShareOneCall(t *testing.T) {
	provider := &mock.MockProvider{Name_: "slow"}
	provider.CompleteFunc = func(ctx context.Context, _ string) (string, error) {
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return "shared answer", nil
	}
	svc := newService(provider, &fakeRag{results: closeMatch()}, time.Hour)

	const callers = 10
	answers := make([]qa.Answer, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			answers[i], errs[i] = svc.Answer(context.Background(), "Why did EQP12 throughput drop?")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), provider.Calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared answer", answers[i].Text)
	}
}
