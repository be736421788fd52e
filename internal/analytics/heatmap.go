package analytics

import "github.com/nlogistics/control-tower/internal/projector"

// HeatmapPoint is a single source-state entry in the sender-state heatmap
// (§4.6): average risk and shipment count, keyed by state rather than
// lat/lon centroid — the centroid lookup is a presentation concern left
// to the API layer.
type HeatmapPoint struct {
	State         string
	AvgRisk       float64
	ShipmentCount int
}

// BuildHeatmap groups rows by source state and reports average SLA
// breach risk (expressed 0-100) and shipment count per state.
func BuildHeatmap(rows map[string]*projector.ShipmentRow) []HeatmapPoint {
	type bucket struct {
		riskSum float64
		count   int
	}
	buckets := make(map[string]*bucket)

	for _, row := range rows {
		if row.SourceState == "" {
			continue
		}
		b, ok := buckets[row.SourceState]
		if !ok {
			b = &bucket{}
			buckets[row.SourceState] = b
		}
		sla := PredictSLABreach(row.History)
		b.riskSum += sla.BreachProbability * 100
		b.count++
	}

	points := make([]HeatmapPoint, 0, len(buckets))
	for state, b := range buckets {
		points = append(points, HeatmapPoint{
			State:         state,
			AvgRisk:       round2(b.riskSum / float64(b.count)),
			ShipmentCount: b.count,
		})
	}
	return points
}
