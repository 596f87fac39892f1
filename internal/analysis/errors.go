package analysis

import "errors"

var (
	// ErrSessionNotFound is returned by Phase 2 when the session ID is
	// unknown or its TTL has elapsed. Recovery is re-running Phase 1.
	ErrSessionNotFound = errors.New("session expired or invalid")

	// ErrInvalidSelection is returned when selected_index does not address
	// a candidate in the session. Rejected before any side effect.
	ErrInvalidSelection = errors.New("selected index out of range")

	// ErrInvalidKPI is returned when a request names a KPI outside
	// OEE/THP/TAT/WIP.
	ErrInvalidKPI = errors.New("unknown KPI")

	// ErrNoCandidates is returned when the model response could not be
	// parsed into any usable root-cause candidate, after one retry.
	ErrNoCandidates = errors.New("model returned no usable candidates")
)
