package analysis

import (
	"fmt"

	"github.com/minwoopark/alarmsense/pkg/models"
)

const rootCauseTemplate = `You are a manufacturing line analyst. An equipment KPI alarm fired.
Using only the data below, identify the most likely root causes.

%s

Respond with a single JSON object, no other text:
{
  "problem_summary": "one sentence describing the problem",
  "root_causes": [
    {"cause": "short cause statement", "probability": 85, "evidence": "data points supporting this cause"}
  ]
}

Rules:
- 2 to 5 candidates, ordered from most to least likely.
- probability is an integer 0-100 expressing your confidence in each cause
  independently. Values need not sum to 100.
- evidence must cite the data above, never outside knowledge.`

const strictJSONReminder = "\n\nYour previous answer was not valid JSON. Respond with only the JSON object, nothing else."

const reportTemplate = `You are a manufacturing line analyst writing a final incident report.

Problem: %s

Confirmed root cause: %s
Evidence: %s

%s

Write a concise incident report in markdown with these sections:
## Summary
## Root Cause
## Impact
## Recommended Actions

Ground every statement in the data above. Keep it under 400 words.`

func rootCausePrompt(contextText string) string {
	return fmt.Sprintf(rootCauseTemplate, contextText)
}

func reportPrompt(problemSummary string, cause models.RootCause, contextText string) string {
	return fmt.Sprintf(reportTemplate, problemSummary, cause.Cause, cause.Evidence, contextText)
}
