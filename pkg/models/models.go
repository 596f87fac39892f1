// Package models contains shared data models used across the AlarmSense codebase.
package models

// RootCause is a single ranked root-cause candidate produced by Phase 1.
// Probability is an independent confidence estimate in [0, 100]; candidates
// do not form a distribution and need not sum to 100.
type RootCause struct {
	Cause       string `json:"cause"`
	Probability int    `json:"probability"`
	Evidence    string `json:"evidence"`
}

// FinalReport is the immutable output of a Phase 2 call. Response timing
// is measured at the HTTP layer, not here.
type FinalReport struct {
	ReportID      string    `json:"report_id"`
	SelectedCause RootCause `json:"selected_cause"`
	Narrative     string    `json:"final_report"`
	RagSaved      bool      `json:"rag_saved"`
	LLMCalls      int       `json:"llm_calls"`
}

// SimilarReport is a nearest-neighbor hit from the retrieval store.
type SimilarReport struct {
	ID       string            `json:"id"`
	Distance float64           `json:"distance"`
	Metadata map[string]string `json:"metadata"`
	Preview  string            `json:"preview"`
}

// AnswerSource tags where a question answer came from so callers never
// conflate authoritative and degraded output.
type AnswerSource string

const (
	AnswerSourceModel    AnswerSource = "model"
	AnswerSourceCache    AnswerSource = "cache"
	AnswerSourceFallback AnswerSource = "fallback"
	AnswerSourceError    AnswerSource = "error"
)
