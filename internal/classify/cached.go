package classify

import (
	"context"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/reviewlabel/internal/analysis"
	"github.com/kiranshivaraju/reviewlabel/internal/cache"
	"github.com/kiranshivaraju/reviewlabel/internal/observability"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

// Cached wraps a Service with a response cache keyed by model, policy and
// record payload. Only well-formed replies are stored, so a cached entry never
// replays a failure. Cache errors degrade to a direct call.
type Cached struct {
	svc    *Service
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(svc *Service, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{svc: svc, cache: c, ttl: ttl, logger: logger}
}

func (c *Cached) Name() string { return c.svc.Name() }

// Classify implements runner.ClassifyFunc.
func (c *Cached) Classify(ctx context.Context, rec models.ReviewRecord) (string, error) {
	input, err := BuildInput(rec)
	if err != nil {
		return "", err
	}
	key := cache.ResponseKey(c.svc.Name()+"/"+c.svc.Model(), c.svc.PolicyHash(), analysis.Hash(input))

	val, found, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		observability.ObserveCache("error")
		c.logger.Warn("response cache read failed", "index", rec.Index, "error", err)
	case found:
		observability.ObserveCache("hit")
		return string(val), nil
	default:
		observability.ObserveCache("miss")
	}

	out, err := c.svc.Classify(ctx, rec)
	if err != nil {
		return "", err
	}
	if _, perr := models.ParseLabeledOutput(out); perr != nil {
		return out, nil
	}

	if err := c.cache.Set(ctx, key, []byte(out), c.ttl); err != nil {
		observability.ObserveCache("error")
		c.logger.Warn("response cache write failed", "index", rec.Index, "error", err)
	} else {
		observability.ObserveCache("set")
	}
	return out, nil
}
