// Package classify turns a ReviewRecord into a prompt, calls the configured
// AI provider and returns the raw reply text for the runner to parse.
package classify

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kiranshivaraju/reviewlabel/internal/analysis"
	"github.com/kiranshivaraju/reviewlabel/internal/observability"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

// InputPlaceholder is replaced by the record JSON when it appears in a policy prompt.
const InputPlaceholder = "{{json_input_string}}"

const defaultMaxTokens = 512

//go:embed prompts/moderation_policy.md
var DefaultPolicy string

// ErrNoProvider is returned by NewService when Config.Provider is nil.
var ErrNoProvider = errors.New("classify: provider is required")

// Config configures a Service. Zero values fall back to defaults.
type Config struct {
	Provider          models.AIProvider
	PolicyPrompt      string
	Model             string
	MaxTokens         int
	Temperature       float64
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Service classifies single records. It is safe for concurrent use.
type Service struct {
	cfg        Config
	policyHash string
	limiter    *rate.Limiter
}

// NewService validates cfg and returns a ready Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Provider == nil {
		return nil, ErrNoProvider
	}
	if strings.TrimSpace(cfg.PolicyPrompt) == "" {
		cfg.PolicyPrompt = DefaultPolicy
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	s := &Service{cfg: cfg, policyHash: analysis.Hash(cfg.PolicyPrompt)}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return s, nil
}

// LoadPolicy reads a policy prompt from path, or returns DefaultPolicy when path is empty.
func LoadPolicy(path string) (string, error) {
	if path == "" {
		return DefaultPolicy, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading policy prompt: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("policy prompt %s is empty", path)
	}
	return string(data), nil
}

func (s *Service) Name() string       { return s.cfg.Provider.Name() }
func (s *Service) Model() string      { return s.cfg.Model }
func (s *Service) PolicyHash() string { return s.policyHash }

// Classify implements runner.ClassifyFunc.
func (s *Service) Classify(ctx context.Context, rec models.ReviewRecord) (string, error) {
	input, err := BuildInput(rec)
	if err != nil {
		return "", err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := s.cfg.Provider.Complete(callCtx, models.CompletionRequest{
		SystemPrompt: RenderPrompt(s.cfg.PolicyPrompt, input),
		UserPrompt:   input,
		Model:        s.cfg.Model,
		MaxTokens:    s.cfg.MaxTokens,
		Temperature:  s.cfg.Temperature,
		JSONMode:     true,
	})
	observability.ObserveCall(s.cfg.Provider.Name(), time.Since(start))
	if err != nil {
		return "", err
	}
	return out, nil
}

// BuildInput serializes the classification payload for rec. Missing optional
// fields carry their placeholder text and non-ASCII characters are kept as is.
func BuildInput(rec models.ReviewRecord) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec.Input()); err != nil {
		return "", fmt.Errorf("encoding classification input: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// RenderPrompt substitutes input for InputPlaceholder in policy. A policy
// without the placeholder is returned unchanged.
func RenderPrompt(policy, input string) string {
	return strings.ReplaceAll(policy, InputPlaceholder, input)
}
