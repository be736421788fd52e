// Package analytics implements the read-model-only analytics engines of
// §4.6: SLA breach prediction, corridor SLA health and alerts, fused
// shipment risk, and the sender-state heatmap. None of these read the
// Event Log directly; they consume projector.ShipmentRow values.
package analytics

import (
	"math"

	"github.com/nlogistics/control-tower/internal/eventlog"
)

// RiskLevel is the closed LOW/MEDIUM/HIGH bucket shared by SLA breach
// prediction and corridor health.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// SLABreachPrediction is the per-shipment result of PredictSLABreach.
type SLABreachPrediction struct {
	ETAHours           float64
	HoursElapsed       float64
	SLAUtilization     float64
	BreachProbability  float64
	RiskLevel          RiskLevel
}

// PredictSLABreach computes a heuristic breach probability from a
// shipment's ordered event history. Fewer than two events carries no
// signal yet and is reported LOW with a zero ETA.
func PredictSLABreach(history []eventlog.Event) SLABreachPrediction {
	if len(history) < 2 {
		return SLABreachPrediction{RiskLevel: RiskLow}
	}

	start := history[0].Timestamp
	last := history[len(history)-1].Timestamp
	hoursElapsed := math.Abs(last.Sub(start).Hours())

	k := float64(len(history))
	etaHours := math.Max(8, 2.2*math.Pow(k, 1.3))

	slaUtilization := math.Min(hoursElapsed/etaHours, 1.5)

	var breachProbability float64
	var level RiskLevel
	switch {
	case slaUtilization < 0.6:
		breachProbability, level = 0.1, RiskLow
	case slaUtilization < 0.85:
		breachProbability, level = 0.4, RiskMedium
	default:
		breachProbability, level = 0.8, RiskHigh
	}

	return SLABreachPrediction{
		ETAHours:          round2(etaHours),
		HoursElapsed:      round2(hoursElapsed),
		SLAUtilization:    round2(slaUtilization),
		BreachProbability: breachProbability,
		RiskLevel:         level,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
