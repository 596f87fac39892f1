package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/minwoopark/alarmsense/internal/store"
	"github.com/minwoopark/alarmsense/pkg/models"
)

// buildContext renders everything the model needs to reason about one alarm:
// the KPI snapshot, the equipment status timeline, and lot movements for the
// day. The text is stored in the session so Phase 2 sees the same context.
func buildContext(k models.KPIDaily, alarmKPI string, events []models.EqpStatusEvent, lots []models.LotEvent) string {
	var b strings.Builder

	target, actual := store.TargetActual(k, alarmKPI)
	_, reason := store.CheckAlarmCondition(alarmKPI, target, actual)

	fmt.Fprintf(&b, "## Alarm\n")
	fmt.Fprintf(&b, "- Date: %s\n", k.Date)
	fmt.Fprintf(&b, "- Equipment: %s (line %s, operation %s)\n", k.EqpID, k.LineID, k.OperID)
	fmt.Fprintf(&b, "- Alarm KPI: %s\n", alarmKPI)
	if reason != "" {
		fmt.Fprintf(&b, "- Condition: %s\n", reason)
	}

	fmt.Fprintf(&b, "\n## KPI snapshot (target / actual)\n")
	fmt.Fprintf(&b, "- OEE: %.1f / %.1f\n", k.OEETarget, k.OEEValue)
	fmt.Fprintf(&b, "- THP: %.0f / %.0f\n", k.THPTarget, k.THPValue)
	fmt.Fprintf(&b, "- TAT: %.1f / %.1f\n", k.TATTarget, k.TATValue)
	fmt.Fprintf(&b, "- WIP: %.0f / %.0f\n", k.WIPTarget, k.WIPValue)

	if len(events) > 0 {
		fmt.Fprintf(&b, "\n## Equipment status history\n")
		var downTotal time.Duration
		for _, e := range events {
			line := fmt.Sprintf("- %s to %s: %s",
				e.StartedAt.Format("15:04"), e.EndedAt.Format("15:04"), e.Status)
			if e.Reason != "" {
				line += " (" + e.Reason + ")"
			}
			if e.Status == "DOWN" {
				line += fmt.Sprintf(", %.0f min", e.Duration().Minutes())
				downTotal += e.Duration()
			}
			b.WriteString(line + "\n")
		}
		if downTotal > 0 {
			fmt.Fprintf(&b, "- Total DOWN time: %.0f min\n", downTotal.Minutes())
		}
	}

	if len(lots) > 0 {
		fmt.Fprintf(&b, "\n## Lot history\n")
		for _, l := range lots {
			fmt.Fprintf(&b, "- %s %s %s qty=%d\n",
				l.MovedAt.Format("15:04"), l.LotID, l.Step, l.Qty)
		}
	}

	return b.String()
}

// buildProblemSummary is the deterministic fallback used when the model does
// not return a problem_summary of its own.
func buildProblemSummary(k models.KPIDaily, alarmKPI string) string {
	target, actual := store.TargetActual(k, alarmKPI)
	gap := actual - target
	pct := 0.0
	if target != 0 {
		pct = gap / target * 100
	}
	return fmt.Sprintf("%s missed its target on %s (%s): target %.1f, actual %.1f, gap %+.1f (%+.1f%%)",
		alarmKPI, k.Date, k.EqpID, target, actual, gap, pct)
}
