package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/analytics"
	"github.com/nlogistics/control-tower/internal/projector"
)

// AnalyticsHandler exposes the read-model-only analytics engines of §4.6
// over the network-wide read model. It never reaches the Event Log or the
// Event Emitter directly — every figure is derived from the same
// projector.Cache the shipment handlers use. weather and route are
// nilable: an absent weather provider makes ShipmentRisk's weather
// component zero, and an absent route provider makes its ETA-uncertainty
// component zero.
type AnalyticsHandler struct {
	cache   *projector.Cache
	weather analytics.WeatherProvider
	route   analytics.RouteProvider
	logger  *zap.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(cache *projector.Cache, weather analytics.WeatherProvider, route analytics.RouteProvider, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		cache:   cache,
		weather: weather,
		route:   route,
		logger:  logger.Named("analytics_handler"),
	}
}

// Heatmap handles GET /api/v1/analytics/heatmap, returning average SLA
// breach risk and shipment count grouped by source state.
func (h *AnalyticsHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	rows, _, err := h.cache.Snapshot()
	if err != nil {
		h.logger.Error("failed to snapshot read model", zap.Error(err))
		ErrInternal(w)
		return
	}
	Ok(w, analytics.BuildHeatmap(rows))
}

// CorridorHealth handles GET /api/v1/analytics/corridors, returning SLA
// health per source->destination corridor.
func (h *AnalyticsHandler) CorridorHealth(w http.ResponseWriter, r *http.Request) {
	rows, _, err := h.cache.Snapshot()
	if err != nil {
		h.logger.Error("failed to snapshot read model", zap.Error(err))
		ErrInternal(w)
		return
	}
	Ok(w, analytics.ComputeCorridorSLAHealth(rows))
}

// corridorAlertThreshold is the default breach-probability threshold for
// flagging a corridor, matching analytics_test.go's expectations for a
// "clearly unhealthy" corridor.
const corridorAlertThreshold = 0.6

// CorridorAlerts handles GET /api/v1/analytics/corridors/alerts, returning
// corridors whose fused breach probability meets or exceeds
// corridorAlertThreshold.
func (h *AnalyticsHandler) CorridorAlerts(w http.ResponseWriter, r *http.Request) {
	rows, _, err := h.cache.Snapshot()
	if err != nil {
		h.logger.Error("failed to snapshot read model", zap.Error(err))
		ErrInternal(w)
		return
	}
	health := analytics.ComputeCorridorSLAHealth(rows)
	Ok(w, analytics.DetectCorridorAlerts(health, corridorAlertThreshold))
}

// ShipmentSLA handles GET /api/v1/shipments/{id}/sla, returning the SLA
// breach prediction for a single shipment's event history.
func (h *AnalyticsHandler) ShipmentSLA(w http.ResponseWriter, r *http.Request) {
	shipmentID := pathParam(r, "id")
	if shipmentID == "" {
		ErrBadRequest(w, "missing shipment id")
		return
	}

	rows, _, err := h.cache.Snapshot()
	if err != nil {
		h.logger.Error("failed to snapshot read model", zap.Error(err))
		ErrInternal(w)
		return
	}

	row, ok := rows[shipmentID]
	if !ok {
		ErrNotFound(w)
		return
	}

	Ok(w, analytics.PredictSLABreach(row.History))
}

// ShipmentRisk handles GET /api/v1/shipments/{id}/risk, returning the
// fused weather/corridor-history/ETA-uncertainty risk assessment of
// §4.6. Weather and route lookups degrade gracefully: an unconfigured or
// failed external provider contributes a zero-risk component rather than
// failing the request (§9 "no retries for read-only lookups").
func (h *AnalyticsHandler) ShipmentRisk(w http.ResponseWriter, r *http.Request) {
	shipmentID := pathParam(r, "id")
	if shipmentID == "" {
		ErrBadRequest(w, "missing shipment id")
		return
	}

	rows, _, err := h.cache.Snapshot()
	if err != nil {
		h.logger.Error("failed to snapshot read model", zap.Error(err))
		ErrInternal(w)
		return
	}

	row, ok := rows[shipmentID]
	if !ok {
		ErrNotFound(w)
		return
	}

	weatherScore := 0
	if h.weather != nil {
		if score, ok := h.weather.WeatherRiskScore(row.SourceState, row.DestinationState); ok {
			weatherScore = score
		}
	}

	prediction := analytics.PredictSLABreach(row.History)
	etaScore := 0
	if h.route != nil {
		if etaHours, confidence, ok := h.route.ETA(row.SourceState, row.DestinationState); ok {
			etaScore = analytics.ComputeETAUncertaintyRisk(etaHours, prediction.ETAHours, confidence).Score
		}
	}

	corridorScore := analytics.ComputeCorridorHistoryRisk(row.Corridor).Score

	Ok(w, analytics.FuseShipmentRisk(weatherScore, corridorScore, etaScore))
}
