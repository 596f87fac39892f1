// Package mock provides scripted LLM providers for tests.
package mock

import (
	"context"
	"sync/atomic"

	"github.com/minwoopark/alarmsense/internal/ai"
	"github.com/minwoopark/alarmsense/pkg/models"
)

// MockProvider satisfies models.LLMProvider for testing. CompleteFunc, when
// set, scripts the response; Calls counts invocations either way.
type MockProvider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, prompt string) (string, error)
	Calls        atomic.Int64
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Complete(ctx context.Context, prompt string) (string, error) {
	m.Calls.Add(1)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return "", nil
}

// NewMockProvider returns a MockProvider that answers every prompt with text.
func NewMockProvider(text string) *MockProvider {
	return &MockProvider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, _ string) (string, error) {
			return text, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _ string) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		CompleteFunc: func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ai.ErrInferenceTimeout
		},
	}
}

// Compile-time check that MockProvider implements LLMProvider.
var _ models.LLMProvider = (*MockProvider)(nil)
