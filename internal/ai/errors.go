package ai

import "github.com/minwoopark/alarmsense/internal/ai/aierr"

// The sentinels live in aierr so provider subpackages can wrap them while
// this package imports those subpackages for the factory. Re-exported here
// so everything above the provider tree needs a single import.
var (
	ErrProviderUnavailable = aierr.ErrProviderUnavailable
	ErrInferenceTimeout    = aierr.ErrInferenceTimeout
	ErrInvalidResponse     = aierr.ErrInvalidResponse
)
