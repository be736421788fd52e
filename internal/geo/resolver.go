// Package geo defines the Geo Resolver contract (§4.2): given a raw
// origin/destination string, return the Indian state, city, and a
// confidence score. The real implementation would call a geocoding
// provider; that provider is an external collaborator out of scope for
// this repository (§1), so the only implementation here is a static
// lookup over the corridor network's known states, used for tests,
// local development, and as the fallback when no provider is configured.
package geo

import "strings"

// Location is the result of resolving a raw place string.
type Location struct {
	City       string
	State      string
	StateCode  string
	Confidence float64
}

// Resolver resolves a raw, free-text place string into a Location. It must
// never error on unresolvable input — it returns a zero-confidence,
// best-effort Location instead, since geo resolution failures degrade
// gracefully rather than blocking shipment creation (§5 availability).
type Resolver interface {
	Resolve(raw string) Location
}

// staticResolver matches raw input against a fixed state gazetteer. It is
// deliberately simple: production deployments are expected to substitute a
// Resolver backed by a real geocoding provider.
type staticResolver struct {
	states []stateEntry
}

type stateEntry struct {
	name string
	code string
}

// NewStaticResolver returns a Resolver backed by the built-in Indian state
// gazetteer (see states_data.go).
func NewStaticResolver() Resolver {
	return &staticResolver{states: indiaStates}
}

// Resolve performs a case-insensitive substring match of raw against every
// known state name (and, failing that, every known city). The first
// matching state wins; confidence reflects how much of the match was an
// exact state-name hit versus a city lookup.
func (r *staticResolver) Resolve(raw string) Location {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Location{}
	}
	lower := strings.ToLower(trimmed)

	for _, s := range r.states {
		if strings.Contains(lower, strings.ToLower(s.name)) {
			return Location{
				City:       trimmed,
				State:      s.name,
				StateCode:  s.code,
				Confidence: 0.95,
			}
		}
	}

	if city, state, ok := lookupCity(lower); ok {
		return Location{
			City:       city,
			State:      state.name,
			StateCode:  state.code,
			Confidence: 0.70,
		}
	}

	// Unresolvable: still return the raw text as the city so downstream
	// consumers have something human-readable, but confidence is zero and
	// State is empty — callers must treat this as "no geo data" (§4.5
	// MISSING_GEO_DATA).
	return Location{City: trimmed, Confidence: 0}
}

func lookupCity(lower string) (string, stateEntry, bool) {
	for city, s := range cityToState {
		if strings.Contains(lower, city) {
			return city, s, true
		}
	}
	return "", stateEntry{}, false
}
