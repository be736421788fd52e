// Package fluctuation ports the original system's heuristic "fluctuation
// engine" (SPEC_FULL.md §3): demo/heuristic statistics seeded by wall-clock
// time and shipment id. It is explicitly non-core (spec.md §4 lists the
// fluctuation engine among the synthetic-data concerns) but its contract is
// retained for completeness, with the wall-clock dependency isolated behind
// a Clock collaborator so callers — and tests — can pin the seed.
//
// Grounded on original_source/app/core/fluctuation_engine.py: the daily
// seed rolls over at 17:00 IST, and every computed value derives from that
// seed plus a stable hash of the shipment id, never from an unseeded RNG.
package fluctuation

import "time"

// Clock supplies the current time. Production code uses systemClock; tests
// inject a fixed value so a given (seed, shipment_id, hour) always produces
// the same output.
type Clock interface {
	Now() time.Time
}

// SystemClock reports the real wall-clock time in IST, matching the
// original's datetime.now() (the original process ran with TZ=Asia/Kolkata).
type SystemClock struct{}

var istLocation = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}()

// Now returns the current time in the IST zone.
func (SystemClock) Now() time.Time {
	return time.Now().In(istLocation)
}

// FixedClock is a Clock that always reports the same instant, for
// deterministic tests.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant.
func (f FixedClock) Now() time.Time { return f.At }

// dailySeedRefreshHour is the hour (IST, 24h) at which the daily seed
// rolls over, matching the original's 17:00 boundary.
const dailySeedRefreshHour = 17

// DailySeed returns an integer seed stable across a single day's 17:00 IST
// window: a shipment queried at 09:00 and again at 16:59 sees the same
// seed; crossing 17:00 advances it. Mirrors get_daily_seed().
func DailySeed(clock Clock) int64 {
	now := clock.Now()
	refDate := now
	if now.Hour() < dailySeedRefreshHour {
		refDate = now.AddDate(0, 0, -1)
	}
	y, m, d := refDate.Date()
	return int64(y)*10000 + int64(m)*100 + int64(d)
}
