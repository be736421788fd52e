package analytics

import "github.com/nlogistics/control-tower/internal/projector"

// CorridorHealth is the per-corridor result of ComputeCorridorSLAHealth,
// combining average and worst-case breach probability across every
// shipment on the corridor (§4.6 "hybrid logic: final = 70% average +
// 30% worst-case").
type CorridorHealth struct {
	Corridor               string
	Shipments              int
	AvgETAHours            float64
	AvgSLAUtilization      float64
	AvgBreachProbability   float64
	MaxBreachProbability   float64
	FinalBreachProbability float64
	RiskLevel              RiskLevel
}

// ComputeCorridorSLAHealth groups rows by corridor and fuses each
// shipment's SLA breach prediction into a corridor-level health score.
// Rows with no corridor set (missing geo on creation) are excluded.
func ComputeCorridorSLAHealth(rows map[string]*projector.ShipmentRow) map[string]CorridorHealth {
	buckets := make(map[string][]*projector.ShipmentRow)
	for _, row := range rows {
		if row.Corridor == "" {
			continue
		}
		buckets[row.Corridor] = append(buckets[row.Corridor], row)
	}

	result := make(map[string]CorridorHealth, len(buckets))
	for corridor, shipments := range buckets {
		var etaSum, utilSum, breachSum, maxBreach float64
		for _, row := range shipments {
			sla := PredictSLABreach(row.History)
			etaSum += sla.ETAHours
			utilSum += sla.SLAUtilization
			breachSum += sla.BreachProbability
			if sla.BreachProbability > maxBreach {
				maxBreach = sla.BreachProbability
			}
		}

		n := float64(len(shipments))
		avgBreach := round2(breachSum / n)
		finalBreach := round2(0.7*avgBreach + 0.3*maxBreach)

		result[corridor] = CorridorHealth{
			Corridor:               corridor,
			Shipments:              len(shipments),
			AvgETAHours:            round2(etaSum / n),
			AvgSLAUtilization:      round2(utilSum / n),
			AvgBreachProbability:   avgBreach,
			MaxBreachProbability:   round2(maxBreach),
			FinalBreachProbability: finalBreach,
			RiskLevel:              classifyCorridorRisk(finalBreach),
		}
	}

	return result
}

// classifyCorridorRisk buckets a fused breach probability (§4.6).
func classifyCorridorRisk(breachProbability float64) RiskLevel {
	switch {
	case breachProbability >= 0.6:
		return RiskHigh
	case breachProbability >= 0.3:
		return RiskMedium
	default:
		return RiskLow
	}
}

// CorridorAlert is emitted when a corridor's fused breach probability
// crosses threshold (§4.6 "corridor alerts").
type CorridorAlert struct {
	Corridor     string
	Severity     RiskLevel
	AvgBreach    float64
	Reason       string
}

// DetectCorridorAlerts scans corridor health and emits an alert for every
// corridor whose final breach probability meets or exceeds threshold.
func DetectCorridorAlerts(health map[string]CorridorHealth, threshold float64) []CorridorAlert {
	var alerts []CorridorAlert
	for _, h := range health {
		if h.FinalBreachProbability < threshold {
			continue
		}
		alerts = append(alerts, CorridorAlert{
			Corridor:  h.Corridor,
			Severity:  h.RiskLevel,
			AvgBreach: h.AvgBreachProbability,
			Reason:    "fused breach probability exceeds threshold",
		})
	}
	return alerts
}
