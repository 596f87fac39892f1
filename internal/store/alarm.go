package store

import (
	"fmt"

	"github.com/minwoopark/alarmsense/pkg/models"
)

// KPI names used throughout the alarm path.
const (
	KPIOEE = "OEE"
	KPITHP = "THP"
	KPITAT = "TAT"
	KPIWIP = "WIP"
)

// ValidKPI reports whether name is one of the four line KPIs.
func ValidKPI(name string) bool {
	switch name {
	case KPIOEE, KPITHP, KPITAT, KPIWIP:
		return true
	}
	return false
}

// TargetActual extracts the target and actual values for one KPI from a
// kpi_daily row.
func TargetActual(k models.KPIDaily, kpi string) (target, actual float64) {
	switch kpi {
	case KPIOEE:
		return k.OEETarget, k.OEEValue
	case KPITHP:
		return k.THPTarget, k.THPValue
	case KPITAT:
		return k.TATTarget, k.TATValue
	default:
		return k.WIPTarget, k.WIPValue
	}
}

// breachRatio measures how far a KPI is on the wrong side of its target,
// as a fraction of the target. OEE and THP are bad when low, TAT is bad
// when high, WIP is bad in either direction. A healthy KPI scores zero.
func breachRatio(kpi string, target, actual float64) float64 {
	if target == 0 {
		return 0
	}
	switch kpi {
	case KPIOEE, KPITHP:
		if actual < target {
			return (target - actual) / target
		}
	case KPITAT:
		if actual > target {
			return (actual - target) / target
		}
	case KPIWIP:
		if actual > target {
			return (actual - target) / target
		}
		if actual < target {
			return (target - actual) / target
		}
	}
	return 0
}

// DetectAlarmKPI picks the KPI with the largest relative breach from a
// kpi_daily row. Used when a Phase-1 request names an alarm but not which
// KPI tripped it.
func DetectAlarmKPI(k models.KPIDaily) string {
	best := KPIOEE
	bestRatio := -1.0
	for _, kpi := range []string{KPIOEE, KPITHP, KPITAT, KPIWIP} {
		target, actual := TargetActual(k, kpi)
		if r := breachRatio(kpi, target, actual); r > bestRatio {
			best = kpi
			bestRatio = r
		}
	}
	return best
}

// CheckAlarmCondition reports whether a KPI value violates its target, with
// a human-readable reason.
func CheckAlarmCondition(kpi string, target, actual float64) (bool, string) {
	switch kpi {
	case KPIOEE:
		if actual < target {
			return true, fmt.Sprintf("OEE is %.2f%% below target (target: %.1f%%, actual: %.2f%%)", target-actual, target, actual)
		}
	case KPITHP:
		if actual < target {
			return true, fmt.Sprintf("throughput is %.0f units below target (target: %.0f, actual: %.0f)", target-actual, target, actual)
		}
	case KPITAT:
		if actual > target {
			return true, fmt.Sprintf("turnaround time exceeds target by %.2fh (target: %.1fh, actual: %.2fh)", actual-target, target, actual)
		}
	case KPIWIP:
		if actual > target {
			return true, fmt.Sprintf("WIP exceeds target by %.0f units (target: %.0f, actual: %.0f)", actual-target, target, actual)
		}
		if actual < target {
			return true, fmt.Sprintf("WIP is %.0f units short of target (target: %.0f, actual: %.0f)", target-actual, target, actual)
		}
	}
	return false, ""
}
