package externalapi

// centroid is a representative lat/lon for a state, used when neither a
// real geocoding provider nor a shipment's precise coordinates are
// available — this package calls the weather/routing providers by
// coordinate, but internal/geo only resolves down to state granularity
// (§1, external geocoding out of scope), so a state centroid is the best
// input available.
type centroid struct {
	Lat float64
	Lon float64
}

// stateCentroids mirrors original_source's STATE_CENTROIDS table,
// filtered to the states internal/geo's gazetteer actually resolves to.
var stateCentroids = map[string]centroid{
	"MH": {Lat: 19.7515, Lon: 75.7139},
	"KA": {Lat: 15.3173, Lon: 75.7139},
	"TN": {Lat: 11.1271, Lon: 78.6569},
	"DL": {Lat: 28.7041, Lon: 77.1025},
	"UP": {Lat: 26.8467, Lon: 80.9462},
	"GJ": {Lat: 22.2587, Lon: 71.1924},
	"WB": {Lat: 22.9868, Lon: 87.8550},
	"RJ": {Lat: 27.0238, Lon: 74.2179},
	"MP": {Lat: 22.9734, Lon: 78.6569},
	"TS": {Lat: 18.1124, Lon: 79.0193},
	"HR": {Lat: 29.0588, Lon: 76.0856},
	"PB": {Lat: 31.1471, Lon: 75.3412},
	"KL": {Lat: 10.8505, Lon: 76.2711},
	"AP": {Lat: 15.9129, Lon: 79.7400},
	"BR": {Lat: 25.0961, Lon: 85.3131},
	"CG": {Lat: 21.2787, Lon: 81.8661},
	"JH": {Lat: 23.6102, Lon: 85.2799},
	"OD": {Lat: 20.9517, Lon: 85.0985},
	"AS": {Lat: 26.2006, Lon: 92.9376},
	"GA": {Lat: 15.2993, Lon: 74.1240},
	"HP": {Lat: 31.1048, Lon: 77.1734},
	"UK": {Lat: 30.0668, Lon: 79.0193},
	"JK": {Lat: 33.7782, Lon: 76.5762},
	"CH": {Lat: 30.7333, Lon: 76.7794},
	"PY": {Lat: 11.9416, Lon: 79.8083},
}

// defaultCentroid is used for a state code absent from the table (the
// same "fallback to mock coordinates" behavior the original applies when
// coordinates are missing), centered near New Delhi.
var defaultCentroid = centroid{Lat: 28.7041, Lon: 77.1025}

// stateNameToCode lets centroidForState accept either a state code
// ("MH") or a full state name ("Maharashtra") — callers may have either
// on hand depending on how far through internal/geo's Location they are.
var stateNameToCode = map[string]string{
	"Maharashtra":       "MH",
	"Karnataka":         "KA",
	"Tamil Nadu":        "TN",
	"Delhi":             "DL",
	"Uttar Pradesh":     "UP",
	"Gujarat":           "GJ",
	"West Bengal":       "WB",
	"Rajasthan":         "RJ",
	"Madhya Pradesh":    "MP",
	"Telangana":         "TS",
	"Haryana":           "HR",
	"Punjab":            "PB",
	"Kerala":            "KL",
	"Andhra Pradesh":    "AP",
	"Bihar":             "BR",
	"Chhattisgarh":      "CG",
	"Jharkhand":         "JH",
	"Odisha":            "OD",
	"Assam":             "AS",
	"Goa":               "GA",
	"Himachal Pradesh":  "HP",
	"Uttarakhand":       "UK",
	"Jammu and Kashmir": "JK",
	"Chandigarh":        "CH",
	"Puducherry":        "PY",
}

func centroidForState(state string) centroid {
	if c, ok := stateCentroids[state]; ok {
		return c
	}
	if code, ok := stateNameToCode[state]; ok {
		return stateCentroids[code]
	}
	return defaultCentroid
}
