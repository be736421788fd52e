package fluctuation

import (
	"testing"
	"time"
)

func fixedNow() FixedClock {
	return FixedClock{At: time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)}
}

func TestRiskScoreIsDeterministicForSameInputs(t *testing.T) {
	clock := fixedNow()
	e := New(clock)

	a := e.RiskScore("SHP-0000001", 20, DeliveryExpress, 15, "Maharashtra", "Karnataka", 10)
	b := e.RiskScore("SHP-0000001", 20, DeliveryExpress, 15, "Maharashtra", "Karnataka", 10)
	if a != b {
		t.Fatalf("expected identical risk score for identical (seed, shipment_id, hour), got %v vs %v", a, b)
	}
	if a < 5 || a > 95 {
		t.Fatalf("risk score %v out of [5, 95] bounds", a)
	}
}

func TestRiskScoreDiffersAcrossShipments(t *testing.T) {
	clock := fixedNow()
	e := New(clock)

	a := e.RiskScore("SHP-0000001", 20, DeliveryNormal, 10, "Maharashtra", "Karnataka", 5)
	b := e.RiskScore("SHP-0000002", 20, DeliveryNormal, 10, "Maharashtra", "Karnataka", 5)
	if a == b {
		t.Fatalf("expected distinct shipments to diverge, both got %v", a)
	}
}

func TestRiskScoreChangesAcrossDailySeedBoundary(t *testing.T) {
	before := New(FixedClock{At: time.Date(2026, 3, 10, 16, 59, 0, 0, time.UTC)})
	after := New(FixedClock{At: time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)})

	a := before.RiskScore("SHP-0000001", 20, DeliveryNormal, 10, "Maharashtra", "Karnataka", 5)
	b := after.RiskScore("SHP-0000001", 20, DeliveryNormal, 10, "Maharashtra", "Karnataka", 5)
	if a == b {
		t.Fatalf("expected daily seed to roll over at 17:00, got identical scores %v", a)
	}
}

func TestETAHoursBounds(t *testing.T) {
	e := New(fixedNow())
	eta := e.ETAHours("SHP-0000001", DeliveryExpress, 50, 0)
	if eta < 12 || eta > 120 {
		t.Fatalf("eta %v out of [12, 120] bounds", eta)
	}
}

func TestWeightKgIsPositive(t *testing.T) {
	e := New(fixedNow())
	for i := 0; i < 20; i++ {
		if w := e.WeightKg("SHP-0000001", 0); w <= 0 {
			t.Fatalf("expected positive weight, got %v", w)
		}
	}
}

func TestComputeSLAStatusExpressIsStricterThanNormal(t *testing.T) {
	expressStatus, _ := ComputeSLAStatus(70, 20, DeliveryExpress)
	normalStatus, _ := ComputeSLAStatus(70, 20, DeliveryNormal)
	if expressStatus != SLABreach {
		t.Fatalf("expected BREACH for express at risk=70, got %s", expressStatus)
	}
	if normalStatus != SLATight {
		t.Fatalf("expected TIGHT for normal at risk=70, got %s", normalStatus)
	}
}

func TestExpressProbabilityMetroStateHigherRange(t *testing.T) {
	e := New(fixedNow())
	p := e.ExpressProbability("Maharashtra", "SHP-0000001")
	if p < 0.30 || p > 0.45 {
		t.Fatalf("expected metro-state probability in [0.30, 0.45], got %v", p)
	}
	q := e.ExpressProbability("Bihar", "SHP-0000001")
	if q < 0.15 || q > 0.30 {
		t.Fatalf("expected non-metro probability in [0.15, 0.30], got %v", q)
	}
}

func TestDailySeedStableWithinDayRollsOverAt17(t *testing.T) {
	morning := FixedClock{At: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	evening := FixedClock{At: time.Date(2026, 3, 10, 16, 59, 0, 0, time.UTC)}
	if DailySeed(morning) != DailySeed(evening) {
		t.Fatal("expected same daily seed before 17:00 boundary")
	}
	afterBoundary := FixedClock{At: time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)}
	if DailySeed(evening) == DailySeed(afterBoundary) {
		t.Fatal("expected daily seed to change at 17:00 boundary")
	}
}
