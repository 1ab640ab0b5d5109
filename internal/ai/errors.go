package ai

import "github.com/kiranshivaraju/reviewlabel/internal/ai/transport"

// Provider error sentinels. They alias the transport package's values so
// errors.Is works regardless of which package a caller imports.
var (
	ErrProviderUnavailable = transport.ErrProviderUnavailable
	ErrInferenceTimeout    = transport.ErrInferenceTimeout
	ErrInvalidResponse     = transport.ErrInvalidResponse
	ErrRateLimited         = transport.ErrRateLimited
	ErrUnauthorized        = transport.ErrUnauthorized
)
