package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/accessguard"
	"github.com/nlogistics/control-tower/internal/audit"
	"github.com/nlogistics/control-tower/internal/emitter"
	"github.com/nlogistics/control-tower/internal/eventlog"
	"github.com/nlogistics/control-tower/internal/fluctuation"
	"github.com/nlogistics/control-tower/internal/lifecycle"
	"github.com/nlogistics/control-tower/internal/projector"
)

// ShipmentHandler groups the Event Emitter (mutation) and Read-Model
// Projector (query) HTTP handlers — the two operator-facing surfaces over
// shipment state (§4.3, §4.4). Every read enforces the Access Guard's
// geo-RBAC decision and records denials to the Audit Snapshot Store.
type ShipmentHandler struct {
	log     *eventlog.Log
	emitter *emitter.Emitter
	cache   *projector.Cache
	audit   audit.Store
	engine  *fluctuation.Engine
	logger  *zap.Logger
}

// NewShipmentHandler creates a new ShipmentHandler.
func NewShipmentHandler(log *eventlog.Log, emitter *emitter.Emitter, cache *projector.Cache, auditStore audit.Store, logger *zap.Logger) *ShipmentHandler {
	return &ShipmentHandler{
		log:     log,
		emitter: emitter,
		cache:   cache,
		audit:   auditStore,
		engine:  fluctuation.New(nil),
		logger:  logger.Named("shipment_handler"),
	}
}

// createRequest is the JSON body expected by POST /api/v1/shipments. Only
// source/destination are meaningful inputs — weight_kg, delivery_type,
// risk_score, and eta_hours may be supplied by the caller but are
// otherwise backfilled by the fluctuation engine the same way the
// original system synthesized them for demo shipments (§3 "synthetic
// fields"), so every shipment gets a realistic baseline even when the
// caller only supplies a route.
type createRequest struct {
	Metadata map[string]any `json:"metadata"`
}

// backfillSyntheticFields fills weight_kg, delivery_type, risk_score, and
// eta_hours from the fluctuation engine whenever the caller didn't already
// supply them, and always recomputes sla_status and sla_emoji from the
// resulting risk score and ETA (overwriting any caller value), seeded deterministically
// off shipmentID + route so repeated reads of the same shipment are
// always consistent with what was generated at creation time.
func (h *ShipmentHandler) backfillSyntheticFields(shipmentID string, metadata map[string]any) map[string]any {
	merged := make(map[string]any, len(metadata)+6)
	for k, v := range metadata {
		merged[k] = v
	}

	deliveryType := fluctuation.DeliveryNormal
	if dt, ok := merged["delivery_type"].(string); ok && dt != "" {
		deliveryType = fluctuation.DeliveryType(dt)
	} else {
		merged["delivery_type"] = string(deliveryType)
	}

	source, _ := merged["source"].(string)
	destination, _ := merged["destination"].(string)

	weightKg, ok := merged["weight_kg"].(float64)
	if !ok || weightKg <= 0 {
		weightKg = h.engine.WeightKg(shipmentID, 0)
		merged["weight_kg"] = weightKg
	}

	const baseRisk = 30.0
	riskScore, ok := merged["risk_score"].(float64)
	if !ok || riskScore <= 0 {
		riskScore = h.engine.RiskScore(shipmentID, baseRisk, deliveryType, weightKg, source, destination, 0)
		merged["risk_score"] = riskScore
	}

	etaHours, ok := merged["eta_hours"].(float64)
	if !ok || etaHours <= 0 {
		etaHours = h.engine.ETAHours(shipmentID, deliveryType, riskScore, 0)
		merged["eta_hours"] = etaHours
	}

	slaStatus, slaEmoji := fluctuation.ComputeSLAStatus(riskScore, etaHours, deliveryType)
	merged["sla_status"] = string(slaStatus)
	merged["sla_emoji"] = slaEmoji

	return merged
}

// Create handles POST /api/v1/shipments, allocating a new sequential
// shipment id and emitting its SHIPMENT_CREATED event in one step.
func (h *ShipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())
	if claims == nil {
		ErrUnauthorized(w)
		return
	}

	var req createRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	shipmentID, err := h.log.NextShipmentID()
	if err != nil {
		h.logger.Error("failed to allocate shipment id", zap.Error(err))
		ErrInternal(w)
		return
	}

	event, err := h.emitter.Emit(r.Context(), emitter.Request{
		ShipmentID:   shipmentID,
		CurrentState: lifecycle.None,
		NextState:    lifecycle.Created,
		EventType:    lifecycle.EventShipmentCreated,
		ActorRole:    claims.Role,
		Metadata:     h.backfillSyntheticFields(shipmentID, req.Metadata),
	})
	if err != nil {
		var lifecycleErr *lifecycle.Error
		if errors.As(err, &lifecycleErr) {
			ErrUnprocessable(w, lifecycleErr.Message)
			return
		}
		h.logger.Error("shipment creation failed", zap.Error(err))
		ErrInternal(w)
		return
	}

	Created(w, eventToResponse(event))
}

// emitRequest is the JSON body expected by POST /api/v1/shipments/{id}/events.
type emitRequest struct {
	CurrentState string         `json:"current_state"`
	NextState    string         `json:"next_state"`
	EventType    string         `json:"event_type"`
	Metadata     map[string]any `json:"metadata"`
}

// eventResponse is the JSON representation of an appended event.
type eventResponse struct {
	ShipmentID    string         `json:"shipment_id"`
	Sequence      int            `json:"sequence"`
	EventType     string         `json:"event_type"`
	PreviousState string         `json:"previous_state"`
	NewState      string         `json:"new_state"`
	ActorRole     string         `json:"actor_role"`
	Metadata      map[string]any `json:"metadata"`
	Timestamp     int64          `json:"timestamp"`
}

func eventToResponse(e eventlog.Event) eventResponse {
	return eventResponse{
		ShipmentID:    e.ShipmentID,
		Sequence:      e.Sequence,
		EventType:     string(e.EventType),
		PreviousState: string(e.PreviousState),
		NewState:      string(e.NewState),
		ActorRole:     string(e.ActorRole),
		Metadata:      e.Metadata,
		Timestamp:     e.Timestamp.Unix(),
	}
}

// EmitEvent handles POST /api/v1/shipments/{id}/events — the sole mutation
// path for shipment state (§4.3). Role authority and lifecycle transition
// validity are enforced by the Emitter itself; this handler only maps HTTP
// input to an emitter.Request and emitter errors to HTTP status.
func (h *ShipmentHandler) EmitEvent(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())
	if claims == nil {
		ErrUnauthorized(w)
		return
	}

	shipmentID := pathParam(r, "id")
	if shipmentID == "" {
		ErrBadRequest(w, "missing shipment id")
		return
	}

	var req emitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EventType == "" {
		ErrBadRequest(w, "event_type is required")
		return
	}

	event, err := h.emitter.Emit(r.Context(), emitter.Request{
		ShipmentID:   shipmentID,
		CurrentState: lifecycle.State(req.CurrentState),
		NextState:    lifecycle.State(req.NextState),
		EventType:    lifecycle.EventType(req.EventType),
		ActorRole:    claims.Role,
		Metadata:     req.Metadata,
	})
	if err != nil {
		var lifecycleErr *lifecycle.Error
		if errors.As(err, &lifecycleErr) {
			ErrUnprocessable(w, lifecycleErr.Message)
			return
		}
		h.logger.Error("emit failed", zap.String("shipment_id", shipmentID), zap.Error(err))
		ErrInternal(w)
		return
	}

	Created(w, eventToResponse(event))
}

// shipmentResponse is the JSON representation of a projected shipment row.
type shipmentResponse struct {
	ShipmentID       string         `json:"shipment_id"`
	CurrentState     string         `json:"current_state"`
	CreatedAt        int64          `json:"created_at"`
	LastUpdated      int64          `json:"last_updated"`
	EventCount       int            `json:"event_count"`
	Source           string         `json:"source"`
	Destination      string         `json:"destination"`
	SourceState      string         `json:"source_state"`
	DestinationState string         `json:"destination_state"`
	Corridor         string         `json:"corridor"`
	CurrentPayload   map[string]any `json:"current_payload"`
}

func rowToResponse(row *projector.ShipmentRow) shipmentResponse {
	return shipmentResponse{
		ShipmentID:       row.ShipmentID,
		CurrentState:     string(row.CurrentState),
		CreatedAt:        row.CreatedAt.Unix(),
		LastUpdated:      row.LastUpdated.Unix(),
		EventCount:       row.EventCount,
		Source:           row.Source,
		Destination:      row.Destination,
		SourceState:      row.SourceState,
		DestinationState: row.DestinationState,
		Corridor:         row.Corridor,
		CurrentPayload:   row.CurrentPayload,
	}
}

// List handles GET /api/v1/shipments. Returns every shipment the
// authenticated actor's region scope permits, recording a denial for each
// one the guard rejects.
func (h *ShipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())
	if claims == nil {
		ErrUnauthorized(w)
		return
	}

	rows, _, err := h.cache.Snapshot()
	if err != nil {
		h.logger.Error("failed to snapshot read model", zap.Error(err))
		ErrInternal(w)
		return
	}

	items := make([]shipmentResponse, 0, len(rows))
	for _, row := range rows {
		sourceState, destState, corridor := row.RegionFields()
		allowed, reason := accessguard.Check(claims.Role, accessguard.Shipment{
			SourceState:      sourceState,
			DestinationState: destState,
			Corridor:         corridor,
		}, claims.Regions)
		if !allowed {
			h.recordDenial(r, claims.Role, row.ShipmentID, reason)
			continue
		}
		items = append(items, rowToResponse(row))
	}

	Ok(w, items)
}

// GetByID handles GET /api/v1/shipments/{id}.
func (h *ShipmentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())
	if claims == nil {
		ErrUnauthorized(w)
		return
	}

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

	sourceState, destState, corridor := row.RegionFields()
	allowed, reason := accessguard.Check(claims.Role, accessguard.Shipment{
		SourceState:      sourceState,
		DestinationState: destState,
		Corridor:         corridor,
	}, claims.Regions)
	if !allowed {
		h.recordDenial(r, claims.Role, shipmentID, reason)
		ErrForbidden(w)
		return
	}

	Ok(w, rowToResponse(row))
}

// recordDenial persists a geo-RBAC denial to the Audit Snapshot Store.
func (h *ShipmentHandler) recordDenial(r *http.Request, role lifecycle.Role, shipmentID string, reason accessguard.DenialReason) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(r.Context(), string(role), shipmentID, reason); err != nil {
		h.logger.Error("failed to record access denial", zap.String("shipment_id", shipmentID), zap.Error(err))
	}
}

// GetHistory handles GET /api/v1/shipments/{id}/history, returning the
// full append-ordered event history for a single shipment.
func (h *ShipmentHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())
	if claims == nil {
		ErrUnauthorized(w)
		return
	}

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

	sourceState, destState, corridor := row.RegionFields()
	allowed, reason := accessguard.Check(claims.Role, accessguard.Shipment{
		SourceState:      sourceState,
		DestinationState: destState,
		Corridor:         corridor,
	}, claims.Regions)
	if !allowed {
		h.recordDenial(r, claims.Role, shipmentID, reason)
		ErrForbidden(w)
		return
	}

	history := make([]eventResponse, len(row.History))
	for i, e := range row.History {
		history[i] = eventToResponse(e)
	}

	Ok(w, history)
}
