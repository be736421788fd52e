package analytics

import "math"

// WeatherProvider and RouteProvider are the external collaborators fused
// risk depends on (§1 — external integrations are out of scope; only the
// contract lives here). internal/externalapi supplies real
// implementations backed by a cache and circuit breaker.
type WeatherProvider interface {
	WeatherRiskScore(sourceState, destinationState string) (score int, ok bool)
}

type RouteProvider interface {
	ETA(sourceState, destinationState string) (etaHours float64, routeConfidence float64, ok bool)
}

// ETAUncertainty is the risk contributed by how much SLA buffer an ETA
// estimate leaves (§4.6 fused risk components).
type ETAUncertainty struct {
	Score          int
	SLAUtilization float64
	BufferHours    float64
}

// ComputeETAUncertaintyRisk converts an ETA estimate and route confidence
// into a 0-100 risk score, widening the risk when confidence is low.
func ComputeETAUncertaintyRisk(etaHours float64, slaHours float64, routeConfidence float64) ETAUncertainty {
	bufferedETA := etaHours * 1.2
	var utilization float64
	if slaHours > 0 {
		utilization = bufferedETA / slaHours
	} else {
		utilization = 1.0
	}
	buffer := slaHours - bufferedETA

	var base int
	switch {
	case utilization > 1.0:
		base = 100
	case utilization > 0.9:
		base = 80
	case utilization > 0.75:
		base = 60
	case utilization > 0.5:
		base = 40
	default:
		base = 20
	}

	confidenceFactor := 1.0 + (1.0-routeConfidence)*0.5
	score := int(float64(base) * confidenceFactor)
	if score > 100 {
		score = 100
	}

	return ETAUncertainty{
		Score:          score,
		SLAUtilization: round2(utilization * 100),
		BufferHours:    round2(buffer),
	}
}

// historicalCorridorBreachRates are seed defaults for corridors without
// observed history yet, matching the original system's illustrative
// per-corridor breach rates before real analytics data accumulates.
var historicalCorridorBreachRates = map[string]int{
	"Maharashtra -> Karnataka": 12,
	"Maharashtra -> Gujarat":   8,
	"Delhi -> Haryana":         15,
	"Tamil Nadu -> Karnataka":  10,
	"Kerala -> Tamil Nadu":     5,
	"Delhi -> Maharashtra":     18,
	"West Bengal -> Delhi":     20,
}

// CorridorHistoryRisk is the historical-breach component of fused risk.
type CorridorHistoryRisk struct {
	Score             int
	BreachRatePercent int
	ReliabilityScore  float64
}

// ComputeCorridorHistoryRisk converts a corridor's historical breach rate
// into a risk score; corridors with no recorded history default to 10%.
func ComputeCorridorHistoryRisk(corridor string) CorridorHistoryRisk {
	breachRate, ok := historicalCorridorBreachRates[corridor]
	if !ok {
		breachRate = 10
	}
	score := breachRate * 5
	if score > 100 {
		score = 100
	}
	reliability := 1.0 - float64(score)/100
	if reliability < 0 {
		reliability = 0
	}
	return CorridorHistoryRisk{
		Score:             score,
		BreachRatePercent: breachRate,
		ReliabilityScore:  round2(reliability),
	}
}

// FusedRisk is the combined weather/corridor/ETA risk assessment of
// §4.6's "fused shipment risk."
type FusedRisk struct {
	TotalScore          int
	Level               RiskLevel
	OverrideRecommended bool
	WeatherScore        int
	CorridorScore       int
	ETAScore            int
}

// FuseShipmentRisk combines weather, corridor-history, and ETA-uncertainty
// scores into a single assessment: weighted 0.30/0.30/0.40, with a
// worst-case penalty when any component reaches 80.
func FuseShipmentRisk(weatherScore, corridorScore, etaScore int) FusedRisk {
	weighted := 0.30*float64(weatherScore) + 0.30*float64(corridorScore) + 0.40*float64(etaScore)

	maxComponent := weatherScore
	if corridorScore > maxComponent {
		maxComponent = corridorScore
	}
	if etaScore > maxComponent {
		maxComponent = etaScore
	}
	if maxComponent >= 80 {
		weighted = math.Min(weighted+10, 100)
	}

	total := int(weighted)

	return FusedRisk{
		TotalScore:          total,
		Level:               totalRiskLevel(total),
		OverrideRecommended: shouldRecommendOverride(total, weatherScore, corridorScore, etaScore),
		WeatherScore:        weatherScore,
		CorridorScore:       corridorScore,
		ETAScore:            etaScore,
	}
}

func totalRiskLevel(total int) RiskLevel {
	switch {
	case total < 30:
		return RiskLow
	case total < 60:
		return RiskMedium
	case total < 80:
		return RiskHigh
	default:
		return "CRITICAL"
	}
}

func shouldRecommendOverride(total, weather, corridor, eta int) bool {
	if total >= 80 {
		return true
	}
	if total >= 60 {
		max := weather
		if corridor > max {
			max = corridor
		}
		if eta > max {
			max = eta
		}
		if max >= 80 {
			return true
		}
	}
	return false
}
