package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/minwoopark/alarmsense/pkg/models"
)

// rootCauseDoc is the JSON shape the root-cause prompt asks the model for.
type rootCauseDoc struct {
	ProblemSummary string           `json:"problem_summary"`
	RootCauses     []candidateEntry `json:"root_causes"`
}

type candidateEntry struct {
	Cause       string  `json:"cause"`
	Probability float64 `json:"probability"`
	Evidence    string  `json:"evidence"`
}

// extractJSON pulls the JSON object out of a model completion. Models wrap
// output in ```json fences, bare ``` fences, or prose around a brace pair;
// all three are handled in that order.
func extractJSON(text string) (string, bool) {
	if start := strings.Index(text, "```json"); start >= 0 {
		rest := text[start+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), true
		}
	}
	if start := strings.Index(text, "```"); start >= 0 {
		rest := text[start+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), true
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1], true
	}
	return "", false
}

// parseRootCauses decodes a model completion into a problem summary and
// ranked candidates. Entries without a cause are dropped; probabilities are
// clamped to [0, 100]. An empty candidate list is an error.
func parseRootCauses(text string) (string, []models.RootCause, error) {
	raw, ok := extractJSON(text)
	if !ok {
		return "", nil, fmt.Errorf("no JSON object in completion")
	}

	var doc rootCauseDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", nil, fmt.Errorf("decoding root causes: %w", err)
	}

	causes := make([]models.RootCause, 0, len(doc.RootCauses))
	for _, e := range doc.RootCauses {
		cause := strings.TrimSpace(e.Cause)
		if cause == "" {
			continue
		}
		p := int(math.Round(e.Probability))
		if p < 0 {
			p = 0
		}
		if p > 100 {
			p = 100
		}
		causes = append(causes, models.RootCause{
			Cause:       cause,
			Probability: p,
			Evidence:    strings.TrimSpace(e.Evidence),
		})
	}
	if len(causes) == 0 {
		return "", nil, ErrNoCandidates
	}

	return strings.TrimSpace(doc.ProblemSummary), causes, nil
}
