package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/eventlog"
	"github.com/nlogistics/control-tower/internal/lifecycle"
)

// EmailSender delivers a notification's text body through SMTP to a
// configured operations address.
type EmailSender interface {
	Send(ctx context.Context, subject, body string) error
}

// WebhookSender delivers a notification through an outbound HTTP POST.
type WebhookSender interface {
	Send(ctx context.Context, notifType, title, body string, payload map[string]any) error
}

// Dispatcher routes shipment events to templates and persists the
// resulting notifications, fanning out to external channels. It
// implements emitter.Publisher, so it attaches to the event emitter the
// same way any other event subscriber would (§4.10 "triggered only by
// events").
type Dispatcher struct {
	store   *Store
	email   EmailSender
	webhook WebhookSender
	logger  *zap.Logger
	now     func() time.Time
}

// NewDispatcher wires a Dispatcher over store, using email and webhook
// for external fanout. Either sender may be nil, in which case that
// channel is skipped.
func NewDispatcher(store *Store, email EmailSender, webhook WebhookSender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		email:   email,
		webhook: webhook,
		logger:  logger.Named("notification"),
		now:     time.Now,
	}
}

// Publish implements emitter.Publisher. It never returns an error: the
// emitter calls it on a best-effort goroutine with its own panic
// recovery, so every failure here is logged, not propagated.
func (d *Dispatcher) Publish(ctx context.Context, event eventlog.Event) {
	for _, job := range routeEvent(event) {
		if _, err := d.emit(ctx, job.template, event.ShipmentID, job.context, job.metadata); err != nil {
			d.logger.Error("failed to emit notification for event",
				zap.String("shipment_id", event.ShipmentID),
				zap.String("event_type", string(event.EventType)),
				zap.String("template", job.template),
				zap.Error(err))
		}
	}
}

// emitJob is one template instantiation produced by routing a single event.
type emitJob struct {
	template string
	context  map[string]any
	metadata map[string]any
}

// routeEvent maps a shipment event to the notifications it should
// produce, mirroring the original router's event_type dispatch and
// supplementing it with routes the original left as "add more event
// routing as needed" (§4.10 edge case: "supplement dropped routes").
func routeEvent(event eventlog.Event) []emitJob {
	switch event.EventType {
	case lifecycle.EventReceiverAcknowledged:
		return receiverAcknowledgedJobs(event)
	case lifecycle.EventDelivered:
		return []emitJob{{
			template: TemplateDeliveryConfirmed,
			context: map[string]any{
				"shipment_id":   event.ShipmentID,
				"delivery_time": metaString(event.Metadata, "delivery_time", event.Timestamp.UTC().Format(time.RFC3339)),
			},
			metadata: map[string]any{"event_type": string(event.EventType)},
		}}
	case lifecycle.EventDeliveryFailed:
		return []emitJob{{
			template: TemplateDeliveryFailed,
			context: map[string]any{
				"shipment_id":    event.ShipmentID,
				"failure_reason": metaString(event.Metadata, "failure_reason", "Unknown"),
			},
			metadata: map[string]any{"event_type": string(event.EventType)},
		}}
	case lifecycle.EventSupervisorApproved:
		return supervisorApprovedJobs(event)
	case lifecycle.EventOverrideApplied:
		return []emitJob{{
			template: TemplateManagerOverrideRecorded,
			context: map[string]any{
				"shipment_id":       event.ShipmentID,
				"override_reason":   metaString(event.Metadata, "reason", "Not specified"),
				"original_decision": metaString(event.Metadata, "original_decision", "Unknown"),
			},
			metadata: map[string]any{"event_type": string(event.EventType)},
		}}
	case lifecycle.EventWarehouseIntake:
		return []emitJob{{
			template: TemplateWarehouseIntakeReady,
			context: map[string]any{
				"shipment_id":    event.ShipmentID,
				"priority_level": metaString(event.Metadata, "priority_level", "STANDARD"),
			},
			metadata: map[string]any{"event_type": string(event.EventType)},
		}}
	case lifecycle.EventOutForDelivery:
		return []emitJob{{
			template: TemplateWarehouseOutForDelivery,
			context: map[string]any{
				"shipment_id": event.ShipmentID,
				"eta":         metaString(event.Metadata, "eta", "Unknown"),
			},
			metadata: map[string]any{"event_type": string(event.EventType)},
		}}
	default:
		return nil
	}
}

func receiverAcknowledgedJobs(event eventlog.Event) []emitJob {
	jobs := []emitJob{{
		template: TemplateReceiverAckToSender,
		context: map[string]any{
			"shipment_id":       event.ShipmentID,
			"destination_state": metaString(event.Metadata, "destination_state", "Unknown"),
		},
		metadata: map[string]any{"event_type": string(event.EventType)},
	}}

	if slaRisk := metaFloat(event.Metadata, "sla_breach_probability", 0); slaRisk > 50 {
		jobs = append(jobs, emitJob{
			template: TemplateReceiverAckDelayed,
			context: map[string]any{
				"shipment_id": event.ShipmentID,
				"sla_risk":    int(slaRisk),
			},
			metadata: map[string]any{"event_type": string(event.EventType), "delayed": true},
		})
	}
	return jobs
}

func supervisorApprovedJobs(event eventlog.Event) []emitJob {
	riskScore := metaFloat(event.Metadata, "combined_risk_score", 0)
	if riskScore <= 70 {
		return nil
	}
	return []emitJob{{
		template: TemplateSupervisorPriorityEscalation,
		context: map[string]any{
			"shipment_id": event.ShipmentID,
			"risk_score":  int(riskScore),
		},
		metadata: map[string]any{"event_type": string(event.EventType), "high_priority": true},
	}}
}

func metaString(metadata map[string]any, key, fallback string) string {
	if v, ok := metadata[key]; ok {
		return fmt.Sprint(v)
	}
	return fallback
}

func metaFloat(metadata map[string]any, key string, fallback float64) float64 {
	switch v := metadata[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}

// NotifySLABreachWarning emits an SLA_BREACH_WARNING notification. It is
// not routed from any event, and no package in this repository calls it.
func (d *Dispatcher) NotifySLABreachWarning(ctx context.Context, shipmentID string, breachProbability float64) error {
	_, err := d.emit(ctx, TemplateSLABreachWarning, shipmentID, map[string]any{
		"shipment_id":        shipmentID,
		"breach_probability": int(breachProbability),
	}, map[string]any{"event_type": "SLA_BREACH_WARNING"})
	return err
}

// NotifyAIHighRisk emits an AI_HIGH_RISK_ALERT notification from a
// fluctuation-engine or analytics risk prediction.
func (d *Dispatcher) NotifyAIHighRisk(ctx context.Context, shipmentID string, weatherRisk, routeRisk, slaRisk any) error {
	_, err := d.emit(ctx, TemplateAIHighRiskAlert, shipmentID, map[string]any{
		"shipment_id":  shipmentID,
		"weather_risk": weatherRisk,
		"route_risk":   routeRisk,
		"sla_risk":     slaRisk,
	}, map[string]any{"event_type": "AI_PREDICTION", "high_risk": true})
	return err
}

// NotifyAIRouteOptimization emits an AI_ROUTE_OPTIMIZATION notification.
func (d *Dispatcher) NotifyAIRouteOptimization(ctx context.Context, shipmentID string, timeSavedHours float64) error {
	_, err := d.emit(ctx, TemplateAIRouteOptimization, shipmentID, map[string]any{
		"shipment_id": shipmentID,
		"time_saved":  timeSavedHours,
	}, map[string]any{"event_type": "AI_PREDICTION"})
	return err
}

// NotifyOverrideAuditAlert emits an OVERRIDE_AUDIT_ALERT notification. No
// package in this repository calls it.
func (d *Dispatcher) NotifyOverrideAuditAlert(ctx context.Context, shipmentID string, overrideCount int) error {
	_, err := d.emit(ctx, TemplateOverrideAuditAlert, shipmentID, map[string]any{
		"shipment_id":    shipmentID,
		"override_count": overrideCount,
	}, map[string]any{"event_type": "OVERRIDE_AUDIT"})
	return err
}

// NotifyDailyMetricsRollup emits a DAILY_METRICS_ROLLUP notification,
// called by the scheduler after the daily analytics rollup completes.
func (d *Dispatcher) NotifyDailyMetricsRollup(ctx context.Context, date string, totalShipments int) error {
	_, err := d.emit(ctx, TemplateDailyMetricsRollup, "SYSTEM", map[string]any{
		"date":            date,
		"total_shipments": totalShipments,
	}, map[string]any{"event_type": "DAILY_METRICS_ROLLUP"})
	return err
}

// NotifySnapshotIntegrityAlert emits a SNAPSHOT_INTEGRITY_ALERT
// notification, called by the scheduler after its daily integrity sweep
// finds a family that is not INTACT.
func (d *Dispatcher) NotifySnapshotIntegrityAlert(ctx context.Context, status string, issueCount int) error {
	_, err := d.emit(ctx, TemplateSnapshotIntegrityAlert, "SYSTEM", map[string]any{
		"status":      status,
		"issue_count": issueCount,
	}, map[string]any{"event_type": "INTEGRITY_CHECK"})
	return err
}

// emit formats templateName with context, persists the resulting Record,
// and fans it out to the configured external channels. External delivery
// failures are logged, never returned, matching the teacher's "in-app
// notification persists even if external delivery fails" contract.
func (d *Dispatcher) emit(ctx context.Context, templateName, shipmentID string, templateContext map[string]any, metadata map[string]any) (Record, error) {
	tmpl, err := getTemplate(templateName)
	if err != nil {
		return Record{}, err
	}
	message, err := tmpl.Format(templateContext)
	if err != nil {
		return Record{}, err
	}

	record := Record{
		NotificationID: "NOTIF-" + uuid.New().String(),
		Timestamp:      d.now().Unix(),
		ShipmentID:     shipmentID,
		TemplateName:   templateName,
		Message:        message,
		Severity:       tmpl.Severity,
		Recipients:     tmpl.Recipients,
		Metadata:       metadata,
		ReadBy:         nil,
	}
	if err := d.store.Append(record); err != nil {
		return Record{}, fmt.Errorf("notification: persist: %w", err)
	}

	d.fanOut(ctx, record)
	return record, nil
}

func (d *Dispatcher) fanOut(ctx context.Context, record Record) {
	if d.email != nil {
		if err := d.email.Send(ctx, string(record.Severity)+": "+record.TemplateName, record.Message); err != nil {
			d.logger.Warn("email delivery failed", zap.String("notification_id", record.NotificationID), zap.Error(err))
		}
	}
	if d.webhook != nil {
		if err := d.webhook.Send(ctx, record.TemplateName, record.TemplateName, record.Message, record.Metadata); err != nil {
			d.logger.Warn("webhook delivery failed", zap.String("notification_id", record.NotificationID), zap.Error(err))
		}
	}
}
