package classify_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/reviewlabel/internal/ai"
	aimock "github.com/kiranshivaraju/reviewlabel/internal/ai/mock"
	"github.com/kiranshivaraju/reviewlabel/internal/classify"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

// mockProvider is a testify mock for models.AIProvider.
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func sampleRecord() models.ReviewRecord {
	return models.ReviewRecord{
		Index:        4,
		BusinessName: "Café Ünique",
		Rating:       models.IntPtr(4),
		Text:         "Loved the <b>crêpes</b> & coffee",
		Category:     "Cafe, Breakfast",
	}
}

func TestBuildInput(t *testing.T) {
	input, err := classify.BuildInput(sampleRecord())
	require.NoError(t, err)

	assert.Equal(t,
		`{"business_name":"Café Ünique","rating":4,"text":"Loved the <b>crêpes</b> & coffee","description":"No description available","category":"Cafe, Breakfast"}`,
		input)
}

func TestBuildInput_MissingRating(t *testing.T) {
	input, err := classify.BuildInput(models.ReviewRecord{BusinessName: "X", Text: "ok"})
	require.NoError(t, err)
	assert.Contains(t, input, `"rating":"No rating available"`)
	assert.Contains(t, input, `"category":"No category available"`)
}

func TestRenderPrompt(t *testing.T) {
	assert.Equal(t, "classify: {\"a\":1}.", classify.RenderPrompt("classify: {{json_input_string}}.", `{"a":1}`))
	assert.Equal(t, "no placeholder", classify.RenderPrompt("no placeholder", `{"a":1}`))
}

func TestDefaultPolicy(t *testing.T) {
	assert.Contains(t, classify.DefaultPolicy, classify.InputPlaceholder)
	for _, l := range models.Labels {
		assert.Contains(t, classify.DefaultPolicy, `"`+l+`"`)
	}
}

func TestLoadPolicy(t *testing.T) {
	p, err := classify.LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, classify.DefaultPolicy, p)

	path := filepath.Join(t.TempDir(), "policy.md")
	require.NoError(t, os.WriteFile(path, []byte("custom policy {{json_input_string}}"), 0o644))
	p, err = classify.LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, "custom policy {{json_input_string}}", p)

	empty := filepath.Join(t.TempDir(), "empty.md")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o644))
	_, err = classify.LoadPolicy(empty)
	assert.Error(t, err)

	_, err = classify.LoadPolicy(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}

func TestNewService_RequiresProvider(t *testing.T) {
	_, err := classify.NewService(classify.Config{})
	assert.ErrorIs(t, err, classify.ErrNoProvider)
}

func TestClassify_SendsRenderedPrompt(t *testing.T) {
	p := new(mockProvider)
	input, err := classify.BuildInput(sampleRecord())
	require.NoError(t, err)

	p.On("Complete", mock.Anything, mock.MatchedBy(func(req models.CompletionRequest) bool {
		return req.UserPrompt == input &&
			req.SystemPrompt == "policy "+input &&
			req.Model == "qwen-plus" &&
			req.MaxTokens == 512 &&
			req.JSONMode
	})).Return(`{"label":"Valid"}`, nil).Once()

	svc, err := classify.NewService(classify.Config{
		Provider:     p,
		PolicyPrompt: "policy {{json_input_string}}",
		Model:        "qwen-plus",
	})
	require.NoError(t, err)

	out, err := svc.Classify(context.Background(), sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, `{"label":"Valid"}`, out)
	p.AssertExpectations(t)
}

func TestClassify_DefaultPolicyWhenEmpty(t *testing.T) {
	p := new(mockProvider)
	p.On("Complete", mock.Anything, mock.MatchedBy(func(req models.CompletionRequest) bool {
		return strings.Contains(req.SystemPrompt, "Rant_Without_Visit") &&
			!strings.Contains(req.SystemPrompt, classify.InputPlaceholder)
	})).Return(`{"label":"Valid"}`, nil)

	svc, err := classify.NewService(classify.Config{Provider: p})
	require.NoError(t, err)

	_, err = svc.Classify(context.Background(), sampleRecord())
	require.NoError(t, err)
	p.AssertExpectations(t)
}

func TestClassify_PropagatesProviderError(t *testing.T) {
	svc, err := classify.NewService(classify.Config{Provider: aimock.NewFailingProvider(ai.ErrRateLimited)})
	require.NoError(t, err)

	_, err = svc.Classify(context.Background(), sampleRecord())
	assert.True(t, errors.Is(err, ai.ErrRateLimited))
}

func TestClassify_Timeout(t *testing.T) {
	svc, err := classify.NewService(classify.Config{
		Provider: aimock.NewTimeoutProvider(),
		Timeout:  20 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = svc.Classify(context.Background(), sampleRecord())
	assert.True(t, errors.Is(err, ai.ErrInferenceTimeout))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClassify_RateLimiterHonoursContext(t *testing.T) {
	svc, err := classify.NewService(classify.Config{
		Provider:          aimock.NewMockProvider(),
		RequestsPerSecond: 0.001,
	})
	require.NoError(t, err)

	// the first call consumes the single burst token
	_, err = svc.Classify(context.Background(), sampleRecord())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = svc.Classify(ctx, sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}

func TestService_Accessors(t *testing.T) {
	svc, err := classify.NewService(classify.Config{Provider: aimock.NewMockProvider(), Model: "m1"})
	require.NoError(t, err)
	assert.Equal(t, "mock", svc.Name())
	assert.Equal(t, "m1", svc.Model())
	assert.Len(t, svc.PolicyHash(), 64)
}
