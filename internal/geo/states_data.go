package geo

// indiaStates is the fixed gazetteer of Indian states and union territories,
// grounded on original_source's app/core/india_states.py STATE_CENTROIDS
// table (centroids and risk characteristics are not reproduced here — the
// Analytics Engines carry their own corridor risk profile, see
// internal/analytics/risk.go).
var indiaStates = []stateEntry{
	{name: "Maharashtra", code: "MH"},
	{name: "Karnataka", code: "KA"},
	{name: "Tamil Nadu", code: "TN"},
	{name: "Delhi", code: "DL"},
	{name: "Uttar Pradesh", code: "UP"},
	{name: "Gujarat", code: "GJ"},
	{name: "West Bengal", code: "WB"},
	{name: "Rajasthan", code: "RJ"},
	{name: "Madhya Pradesh", code: "MP"},
	{name: "Telangana", code: "TS"},
	{name: "Haryana", code: "HR"},
	{name: "Punjab", code: "PB"},
	{name: "Kerala", code: "KL"},
	{name: "Andhra Pradesh", code: "AP"},
	{name: "Bihar", code: "BR"},
	{name: "Chhattisgarh", code: "CG"},
	{name: "Jharkhand", code: "JH"},
	{name: "Odisha", code: "OD"},
	{name: "Assam", code: "AS"},
	{name: "Goa", code: "GA"},
	{name: "Himachal Pradesh", code: "HP"},
	{name: "Uttarakhand", code: "UK"},
	{name: "Jammu and Kashmir", code: "JK"},
	{name: "Chandigarh", code: "CH"},
	{name: "Puducherry", code: "PY"},
}

// cityToState maps a handful of major cities to their state so raw inputs
// like "Mumbai warehouse" resolve even when the state name itself is absent.
var cityToState = map[string]stateEntry{
	"mumbai":    {name: "Maharashtra", code: "MH"},
	"pune":      {name: "Maharashtra", code: "MH"},
	"nagpur":    {name: "Maharashtra", code: "MH"},
	"bengaluru": {name: "Karnataka", code: "KA"},
	"bangalore": {name: "Karnataka", code: "KA"},
	"chennai":   {name: "Tamil Nadu", code: "TN"},
	"coimbatore": {name: "Tamil Nadu", code: "TN"},
	"hyderabad": {name: "Telangana", code: "TS"},
	"ahmedabad": {name: "Gujarat", code: "GJ"},
	"surat":     {name: "Gujarat", code: "GJ"},
	"kolkata":   {name: "West Bengal", code: "WB"},
	"jaipur":    {name: "Rajasthan", code: "RJ"},
	"lucknow":   {name: "Uttar Pradesh", code: "UP"},
	"kanpur":    {name: "Uttar Pradesh", code: "UP"},
	"bhopal":    {name: "Madhya Pradesh", code: "MP"},
	"indore":    {name: "Madhya Pradesh", code: "MP"},
	"chandigarh": {name: "Chandigarh", code: "CH"},
	"gurugram":  {name: "Haryana", code: "HR"},
	"gurgaon":   {name: "Haryana", code: "HR"},
	"ludhiana":  {name: "Punjab", code: "PB"},
	"kochi":     {name: "Kerala", code: "KL"},
	"thiruvananthapuram": {name: "Kerala", code: "KL"},
	"vizag":     {name: "Andhra Pradesh", code: "AP"},
	"visakhapatnam": {name: "Andhra Pradesh", code: "AP"},
	"patna":     {name: "Bihar", code: "BR"},
	"raipur":    {name: "Chhattisgarh", code: "CG"},
	"ranchi":    {name: "Jharkhand", code: "JH"},
	"bhubaneswar": {name: "Odisha", code: "OD"},
	"guwahati":  {name: "Assam", code: "AS"},
	"panaji":    {name: "Goa", code: "GA"},
	"dehradun":  {name: "Uttarakhand", code: "UK"},
	"shimla":    {name: "Himachal Pradesh", code: "HP"},
	"srinagar":  {name: "Jammu and Kashmir", code: "JK"},
	"new delhi": {name: "Delhi", code: "DL"},
}
