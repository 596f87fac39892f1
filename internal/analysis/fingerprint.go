package analysis

import "github.com/minwoopark/alarmsense/internal/cache"

// Fingerprint identifies an alarm for caching and request coalescing.
// Two requests with the same fingerprint describe the same alarm.
type Fingerprint struct {
	Date  string
	EqpID string
	KPI   string
}

// Key returns the analysis-cache key for this fingerprint.
func (f Fingerprint) Key() string {
	return cache.AlarmKey(f.Date, f.EqpID, f.KPI)
}
