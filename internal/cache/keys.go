package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// AlarmKey builds the deterministic analysis-cache key for an alarm
// fingerprint. Field order is fixed; equality is exact.
func AlarmKey(date, eqpID, kpi string) string {
	return fmt.Sprintf("alarm:%s:%s:%s", date, eqpID, kpi)
}

// QuestionKey hashes a free-text question into a stable QA-cache key.
// Case and surrounding whitespace do not change the key.
func QuestionKey(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := sha256.Sum256([]byte(normalized))
	return "question:" + hex.EncodeToString(sum[:])
}

// ReportKey identifies a Phase-2 result by its (session, selection) pair,
// which is the unit of report idempotency.
func ReportKey(sessionID string, selectedIndex int) string {
	return fmt.Sprintf("report:%s:%d", sessionID, selectedIndex)
}
