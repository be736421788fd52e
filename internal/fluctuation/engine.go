package fluctuation

import "time"

// DeliveryType mirrors the original's two-tier delivery classification.
type DeliveryType string

const (
	DeliveryExpress DeliveryType = "EXPRESS"
	DeliveryNormal  DeliveryType = "NORMAL"
)

// metroStates get a higher express-delivery probability in the original's
// compute_express_probability, reflecting denser logistics networks.
var metroStates = map[string]bool{
	"Maharashtra": true, "Karnataka": true, "Tamil Nadu": true, "Delhi": true,
	"Telangana": true, "Gujarat": true, "West Bengal": true, "Chandigarh": true,
}

// Engine computes deterministic heuristic demo statistics, given a Clock
// collaborator so tests can pin the seed rather than depending on wall time.
type Engine struct {
	clock Clock
}

// New builds an Engine over clock. Passing nil defaults to SystemClock.
func New(clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{clock: clock}
}

// timeOfDaySeedComponent returns the hour-of-day component folded into
// every per-call seed, so two calls within the same hour produce identical
// output and calls in different hours diverge — deterministic given
// (seed, shipment_id, hour), per SPEC_FULL.md §3.
func timeOfDaySeedComponent(now time.Time) int64 {
	return int64(now.Hour())
}

// RiskScore computes a 5-95 heuristic risk score for a shipment, a direct
// port of compute_risk_score_realistic.
func (e *Engine) RiskScore(shipmentID string, baseRisk float64, deliveryType DeliveryType, weightKg float64, sourceState, destState string, ageHours float64) float64 {
	now := e.clock.Now()
	seed := DailySeed(e.clock)
	rng := seededRand(seed, stableHash(shipmentID), stableHash(sourceState), stableHash(destState), timeOfDaySeedComponent(now))

	score := baseRisk

	if deliveryType == DeliveryExpress {
		score += bellCurveSample(rng, 2, 10, 0.5)
	}
	switch {
	case weightKg > 50:
		score += bellCurveSample(rng, 3, 12, 0.5)
	case weightKg > 20:
		score += bellCurveSample(rng, 1, 6, 0.4)
	}
	if ageHours > 48 {
		score += bellCurveSample(rng, 5, 20, 0.6)
	} else if ageHours > 24 {
		score += bellCurveSample(rng, 2, 10, 0.5)
	}

	hour := now.Hour()
	if hour >= 22 || hour < 6 {
		score += bellCurveSample(rng, 3, 8, 0.5)
	}

	score += bellCurveSample(rng, -5, 5, 0.5) // daily variance
	score += bellCurveSample(rng, -2, 2, 0.5) // unique per-shipment jitter

	return clamp(score, 5, 95)
}

// ETAHours computes an ETA estimate in hours, a port of
// compute_eta_hours_realistic. distanceKm is optional — pass 0 to skip the
// distance blend.
func (e *Engine) ETAHours(shipmentID string, deliveryType DeliveryType, riskScore float64, distanceKm float64) float64 {
	now := e.clock.Now()
	rng := seededRand(DailySeed(e.clock), stableHash(shipmentID), timeOfDaySeedComponent(now))

	var base float64
	if deliveryType == DeliveryExpress {
		base = bellCurveSample(rng, 12, 36, 0.4)
	} else {
		base = bellCurveSample(rng, 36, 96, 0.4)
	}

	delayFactor := 1.0 + (riskScore/100)*0.5
	eta := base * delayFactor

	if distanceKm > 0 {
		speedKmh := 40.0
		distanceETA := distanceKm / speedKmh
		eta = eta*0.7 + distanceETA*0.3
	}

	return clamp(eta, 12, 120)
}

// WeightKg computes a synthetic shipment weight, a port of
// compute_weight_realistic. baseWeight of 0 uses the original's 10.0 default
// with no additional base-weight variance term.
func (e *Engine) WeightKg(shipmentID string, baseWeight float64) float64 {
	rng := seededRand(DailySeed(e.clock), stableHash(shipmentID))

	tier := rng.Float64()
	var weight float64
	switch {
	case tier < 0.70:
		weight = bellCurveSample(rng, 0.5, 10, 0.3)
	case tier < 0.90:
		weight = bellCurveSample(rng, 10, 50, 0.5)
	default:
		weight = bellCurveSample(rng, 50, 500, 0.3)
	}

	if baseWeight > 0 {
		weight = (weight + bellCurveSample(rng, baseWeight*0.8, baseWeight*1.2, 0.5)) / 2
	}
	return weight
}

// SLAStatus is the closed result of compute_sla_status.
type SLAStatus string

const (
	SLAOk       SLAStatus = "OK"
	SLATight    SLAStatus = "TIGHT"
	SLABreach   SLAStatus = "BREACH"
	SLACritical SLAStatus = "CRITICAL"
)

// SLAEmoji mirrors the original's status->emoji table, used for console and
// notification rendering.
var SLAEmoji = map[SLAStatus]string{
	SLAOk:       "🟢",
	SLATight:    "🟡",
	SLABreach:   "🟠",
	SLACritical: "🔴",
}

// ComputeSLAStatus classifies risk and ETA into a status + emoji pair, a
// port of compute_sla_status. EXPRESS and NORMAL delivery types use
// different threshold tables, matching the original's tighter SLA windows
// for express shipments.
func ComputeSLAStatus(riskScore, etaHours float64, deliveryType DeliveryType) (SLAStatus, string) {
	var status SLAStatus
	if deliveryType == DeliveryExpress {
		switch {
		case riskScore >= 80 || etaHours > 30:
			status = SLACritical
		case riskScore >= 60 || etaHours > 24:
			status = SLABreach
		case riskScore >= 40 || etaHours > 18:
			status = SLATight
		default:
			status = SLAOk
		}
	} else {
		switch {
		case riskScore >= 85 || etaHours > 90:
			status = SLACritical
		case riskScore >= 65 || etaHours > 72:
			status = SLABreach
		case riskScore >= 45 || etaHours > 48:
			status = SLATight
		default:
			status = SLAOk
		}
	}
	return status, SLAEmoji[status]
}

// ExpressProbability reports the fraction of shipments originating in
// stateName that are express, a port of compute_express_probability: metro
// states see a denser 30-45% range, others 15-30%.
func (e *Engine) ExpressProbability(stateName, shipmentID string) float64 {
	rng := seededRand(DailySeed(e.clock), stableHash(stateName), stableHash(shipmentID))
	if metroStates[stateName] {
		return bellCurveSample(rng, 0.30, 0.45, 0.5)
	}
	return bellCurveSample(rng, 0.15, 0.30, 0.5)
}
