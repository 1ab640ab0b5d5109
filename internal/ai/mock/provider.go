package mock

import (
	"context"
	"sync"

	"github.com/kiranshivaraju/reviewlabel/internal/ai"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

// MockProvider satisfies models.AIProvider for testing.
type MockProvider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, req models.CompletionRequest) (string, error)

	mu    sync.Mutex
	calls int
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "", nil
}

// Calls returns how many times Complete has been invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// NewMockProvider returns a MockProvider that labels every review Valid.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (string, error) {
			return `{"label":"Valid","reason":"Mock classification for testing"}`, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		CompleteFunc: func(ctx context.Context, _ models.CompletionRequest) (string, error) {
			<-ctx.Done()
			return "", ai.ErrInferenceTimeout
		},
	}
}

// Reply is one scripted response for NewSequenceProvider.
type Reply struct {
	Text string
	Err  error
}

// NewSequenceProvider returns a MockProvider that answers with replies in
// order and repeats the last one once the script is exhausted.
func NewSequenceProvider(replies ...Reply) *MockProvider {
	var (
		mu   sync.Mutex
		next int
	)
	return &MockProvider{
		Name_: "mock-sequence",
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (string, error) {
			if len(replies) == 0 {
				return "", nil
			}
			mu.Lock()
			r := replies[next]
			if next < len(replies)-1 {
				next++
			}
			mu.Unlock()
			return r.Text, r.Err
		},
	}
}

// Compile-time check that MockProvider implements AIProvider.
var _ models.AIProvider = (*MockProvider)(nil)
