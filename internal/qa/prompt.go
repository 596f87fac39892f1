package qa

import (
	"fmt"
	"strings"

	"github.com/minwoopark/alarmsense/pkg/models"
)

const answerTemplate = `You are a manufacturing line analyst answering a question about past
equipment alarms. Use the retrieved reports below when they are relevant;
say so plainly when they are not. Do not invent report contents.

Question: %s

%s

Answer in a few short paragraphs.`

func answerPrompt(question string, similar []models.SimilarReport) string {
	retrieved := "No past reports matched this question."
	if len(similar) > 0 {
		var b strings.Builder
		b.WriteString("Retrieved reports:\n")
		for _, r := range similar {
			fmt.Fprintf(&b, "\n[%s] (distance %.2f)\n%s\n", r.ID, r.Distance, r.Preview)
		}
		retrieved = b.String()
	}
	return fmt.Sprintf(answerTemplate, question, retrieved)
}
