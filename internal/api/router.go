package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/analytics"
	"github.com/nlogistics/control-tower/internal/audit"
	"github.com/nlogistics/control-tower/internal/auth"
	"github.com/nlogistics/control-tower/internal/emitter"
	"github.com/nlogistics/control-tower/internal/eventlog"
	"github.com/nlogistics/control-tower/internal/integrity"
	"github.com/nlogistics/control-tower/internal/notification"
	"github.com/nlogistics/control-tower/internal/projector"
	"github.com/nlogistics/control-tower/internal/snapshot"
)

// RouterConfig holds all dependencies needed to build the HTTP router. It
// is populated in cmd/towerd/main.go after every component is initialized
// and passed to NewRouter as a single struct to keep the constructor
// signature manageable as the number of dependencies grows. The regulator
// surface (internal/regulator) is deliberately absent here — it is
// reachable only through internal/grpcapi, never through this REST API
// (§4.11).
type RouterConfig struct {
	JWTManager *auth.Manager
	OIDC       *auth.OIDCProvider // nil when OIDC is not configured

	EventLog          *eventlog.Log
	Emitter           *emitter.Emitter
	ProjectorCache    *projector.Cache
	SnapshotStore     *snapshot.Store
	Detector          *integrity.Detector
	SnapshotFamilies  []string
	NotificationStore *notification.Store
	AuditStore        audit.Store

	// Weather and Route back §4.6's fused shipment risk view. Either may
	// be nil — ShipmentRisk degrades gracefully when unconfigured.
	Weather analytics.WeatherProvider
	Route   analytics.RouteProvider

	Logger *zap.Logger

	// Secure controls whether auth cookies are set with the Secure flag.
	// Set to true in production (HTTPS), false in local development.
	Secure bool

	// DevLoginEnabled exposes POST /auth/dev-login, which mints a token
	// for any role without an identity provider. Must be false in
	// production.
	DevLoginEnabled bool
}

// NewRouter builds and returns the fully configured Chi router. All routes
// are registered under /api/v1.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	// --- Initialize handlers ---
	authHandler := NewAuthHandler(cfg.JWTManager, cfg.OIDC, cfg.Logger, cfg.Secure, cfg.DevLoginEnabled)
	shipmentHandler := NewShipmentHandler(cfg.EventLog, cfg.Emitter, cfg.ProjectorCache, cfg.AuditStore, cfg.Logger)
	analyticsHandler := NewAnalyticsHandler(cfg.ProjectorCache, cfg.Weather, cfg.Route, cfg.Logger)
	snapshotHandler := NewSnapshotHandler(cfg.SnapshotStore, cfg.Detector, cfg.SnapshotFamilies, cfg.Logger)
	notificationHandler := NewNotificationHandler(cfg.NotificationStore, cfg.Logger)

	r.Route("/api/v1", func(r chi.Router) {

		// --- Public routes (no authentication required) ---
		r.Group(func(r chi.Router) {
			r.Post("/auth/dev-login", authHandler.DevLogin)
			r.Get("/auth/oidc/login", authHandler.OIDCLogin)
			r.Get("/auth/oidc/callback", authHandler.OIDCCallback)
		})

		// --- Authenticated routes (valid JWT required) ---
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(cfg.JWTManager))

			// Shipments — the Event Emitter mutation path and the
			// Read-Model Projector's query surface.
			r.Post("/shipments", shipmentHandler.Create)
			r.Get("/shipments", shipmentHandler.List)
			r.Get("/shipments/{id}", shipmentHandler.GetByID)
			r.Get("/shipments/{id}/history", shipmentHandler.GetHistory)
			r.Get("/shipments/{id}/sla", analyticsHandler.ShipmentSLA)
			r.Get("/shipments/{id}/risk", analyticsHandler.ShipmentRisk)
			r.Post("/shipments/{id}/events", shipmentHandler.EmitEvent)

			// Analytics
			r.Get("/analytics/heatmap", analyticsHandler.Heatmap)
			r.Get("/analytics/corridors", analyticsHandler.CorridorHealth)
			r.Get("/analytics/corridors/alerts", analyticsHandler.CorridorAlerts)

			// Notifications — role-scoped feed, not per-user.
			r.Get("/notifications", notificationHandler.List)
			r.Patch("/notifications/{id}/read", notificationHandler.MarkRead)

			// Snapshots — read-only, written by internal/scheduler.
			r.Get("/snapshots", snapshotHandler.List)
			r.Get("/snapshots/{family}", snapshotHandler.GetByName)
			r.Get("/snapshots/{family}/chain", snapshotHandler.GetChain)
		})
	})

	return r
}
