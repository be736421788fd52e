package api

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/notification"
)

// NotificationHandler groups the notification HTTP handlers. Notifications
// are scoped to the authenticated actor's role — every recipient sharing a
// role sees the same feed (§4.10), there is no per-user inbox.
type NotificationHandler struct {
	store  *notification.Store
	logger *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(store *notification.Store, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		store:  store,
		logger: logger.Named("notification_handler"),
	}
}

// recordResponse is the JSON representation of a notification record.
type recordResponse struct {
	NotificationID string         `json:"notification_id"`
	Timestamp      int64          `json:"timestamp"`
	ShipmentID     string         `json:"shipment_id"`
	TemplateName   string         `json:"template_name"`
	Message        string         `json:"message"`
	Severity       string         `json:"severity"`
	Metadata       map[string]any `json:"metadata"`
	Unread         bool           `json:"unread"`
}

// listNotificationsResponse wraps a role's notification feed plus the
// unread/severity summary from notification.Counts.
type listNotificationsResponse struct {
	Items      []recordResponse `json:"items"`
	Total      int              `json:"total"`
	Unread     int              `json:"unread"`
	BySeverity map[string]int   `json:"by_severity"`
}

// List handles GET /api/v1/notifications. Returns the authenticated
// actor's role-scoped notification feed, newest first, optionally capped
// by a ?limit= query parameter.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())
	if claims == nil {
		ErrUnauthorized(w)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	records, err := h.store.ForRole(claims.Role, limit)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.String("role", string(claims.Role)), zap.Error(err))
		ErrInternal(w)
		return
	}

	counts, err := h.store.CountsForRole(claims.Role)
	if err != nil {
		h.logger.Error("failed to compute notification counts", zap.String("role", string(claims.Role)), zap.Error(err))
		ErrInternal(w)
		return
	}

	items := make([]recordResponse, len(records))
	bySeverity := make(map[string]int, len(counts.BySeverity))
	for sev, n := range counts.BySeverity {
		bySeverity[string(sev)] = n
	}
	for i, rec := range records {
		resp := recordResponse{
			NotificationID: rec.NotificationID,
			Timestamp:      rec.Timestamp,
			ShipmentID:     rec.ShipmentID,
			TemplateName:   rec.TemplateName,
			Message:        rec.Message,
			Severity:       string(rec.Severity),
			Metadata:       rec.Metadata,
			Unread:         rec.UnreadFor(claims.Role),
		}
		items[i] = resp
	}

	Ok(w, listNotificationsResponse{
		Items:      items,
		Total:      counts.Total,
		Unread:     counts.Unread,
		BySeverity: bySeverity,
	})
}

// MarkRead handles PATCH /api/v1/notifications/{id}/read. Marks a single
// notification as read for the authenticated actor's role. Returns 404 if
// no matching notification exists for any role.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromCtx(r.Context())
	if claims == nil {
		ErrUnauthorized(w)
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		ErrBadRequest(w, "missing notification id")
		return
	}

	found, err := h.store.MarkRead(id, claims.Role)
	if err != nil {
		h.logger.Error("failed to mark notification read", zap.String("id", id), zap.Error(err))
		ErrInternal(w)
		return
	}
	if !found {
		ErrNotFound(w)
		return
	}

	NoContent(w)
}
