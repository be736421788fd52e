package notification

import (
	"fmt"
	"regexp"

	"github.com/nlogistics/control-tower/internal/lifecycle"
)

// Severity is a closed enum of notification urgency levels.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityUrgent   Severity = "URGENT"
	SeverityCritical Severity = "CRITICAL"
)

// Template is an immutable message template: a placeholder string, its
// severity, and the roles it routes to. Templates are never mutated
// after registration — only replaced as a whole in templates().
type Template struct {
	Message    string
	Severity   Severity
	Recipients []lifecycle.Role
}

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Format substitutes context values into t.Message, matching Python
// str.format keyword semantics: every placeholder must have a value in
// context, or formatting fails.
func (t Template) Format(context map[string]any) (string, error) {
	var missing string
	result := placeholder.ReplaceAllStringFunc(t.Message, func(match string) string {
		key := match[1 : len(match)-1]
		value, ok := context[key]
		if !ok {
			missing = key
			return match
		}
		return fmt.Sprint(value)
	})
	if missing != "" {
		return "", fmt.Errorf("notification: template missing context value for %q", missing)
	}
	return result, nil
}

// Template names, matching the event-routing table in dispatcher.go.
const (
	TemplateReceiverAckToSender         = "RECEIVER_ACK_TO_SENDER"
	TemplateReceiverAckDelayed          = "RECEIVER_ACK_DELAYED"
	TemplateDeliveryConfirmed           = "DELIVERY_CONFIRMED"
	TemplateDeliveryFailed              = "DELIVERY_FAILED"
	TemplateSupervisorPriorityEscalation = "SUPERVISOR_PRIORITY_ESCALATION"
	TemplateSLABreachWarning            = "SLA_BREACH_WARNING"
	TemplateWarehouseIntakeReady        = "WAREHOUSE_INTAKE_READY"
	TemplateWarehouseOutForDelivery     = "WAREHOUSE_OUT_FOR_DELIVERY"
	TemplateAIHighRiskAlert             = "AI_HIGH_RISK_ALERT"
	TemplateAIRouteOptimization         = "AI_ROUTE_OPTIMIZATION"
	TemplateManagerOverrideRecorded     = "MANAGER_OVERRIDE_RECORDED"
	TemplateOverrideAuditAlert          = "OVERRIDE_AUDIT_ALERT"
	TemplateDailyMetricsRollup          = "DAILY_METRICS_ROLLUP"
	TemplateSnapshotIntegrityAlert      = "SNAPSHOT_INTEGRITY_ALERT"
)

// registry is the closed set of templates this system can emit, grounded
// on the original template catalog one-for-one (same message text, same
// severities, same recipient roles, translated to this system's role
// constants).
var registry = map[string]Template{
	TemplateReceiverAckToSender: {
		Message:    "Shipment {shipment_id} has reached Receiver Manager in {destination_state}.",
		Severity:   SeverityInfo,
		Recipients: []lifecycle.Role{lifecycle.RoleSenderManager, lifecycle.RoleSenderSupervisor},
	},
	TemplateReceiverAckDelayed: {
		Message:    "Shipment {shipment_id} acknowledged late. SLA risk increased to {sla_risk}%.",
		Severity:   SeverityWarning,
		Recipients: []lifecycle.Role{lifecycle.RoleSenderManager, lifecycle.RoleSenderSupervisor, lifecycle.RoleCOO},
	},
	TemplateDeliveryConfirmed: {
		Message:    "Shipment {shipment_id} successfully delivered to customer at {delivery_time}.",
		Severity:   SeverityInfo,
		Recipients: []lifecycle.Role{lifecycle.RoleWarehouseManager, lifecycle.RoleReceiverManager, lifecycle.RoleSenderManager},
	},
	TemplateDeliveryFailed: {
		Message:    "Delivery attempt failed for {shipment_id}. Reason: {failure_reason}.",
		Severity:   SeverityUrgent,
		Recipients: []lifecycle.Role{lifecycle.RoleWarehouseManager, lifecycle.RoleReceiverManager, lifecycle.RoleCOO},
	},
	TemplateSupervisorPriorityEscalation: {
		Message:    "High-priority shipment {shipment_id} approved. Risk score: {risk_score}. Will be dispatched first.",
		Severity:   SeverityUrgent,
		Recipients: []lifecycle.Role{lifecycle.RoleSenderManager, lifecycle.RoleCOO},
	},
	TemplateSLABreachWarning: {
		Message:    "Shipment {shipment_id} at risk of SLA breach. Current probability: {breach_probability}%.",
		Severity:   SeverityWarning,
		Recipients: []lifecycle.Role{lifecycle.RoleSenderManager, lifecycle.RoleReceiverManager, lifecycle.RoleCOO},
	},
	TemplateWarehouseIntakeReady: {
		Message:    "Shipment {shipment_id} ready for warehouse intake. Priority: {priority_level}.",
		Severity:   SeverityInfo,
		Recipients: []lifecycle.Role{lifecycle.RoleWarehouseManager},
	},
	TemplateWarehouseOutForDelivery: {
		Message:    "Shipment {shipment_id} out for delivery. ETA: {eta}.",
		Severity:   SeverityInfo,
		Recipients: []lifecycle.Role{lifecycle.RoleReceiverManager, lifecycle.RoleSenderManager},
	},
	TemplateAIHighRiskAlert: {
		Message:    "AI detected high risk for {shipment_id}. Weather: {weather_risk}, Route: {route_risk}, SLA: {sla_risk}.",
		Severity:   SeverityWarning,
		Recipients: []lifecycle.Role{lifecycle.RoleSenderManager, lifecycle.RoleSenderSupervisor},
	},
	TemplateAIRouteOptimization: {
		Message:    "AI suggests alternative route for {shipment_id}. Potential time savings: {time_saved} hours.",
		Severity:   SeverityInfo,
		Recipients: []lifecycle.Role{lifecycle.RoleSenderManager},
	},
	TemplateManagerOverrideRecorded: {
		Message:    "Manager override recorded for {shipment_id}. Reason: {override_reason}. Original decision: {original_decision}.",
		Severity:   SeverityInfo,
		Recipients: []lifecycle.Role{lifecycle.RoleCOO, lifecycle.RoleSystem},
	},
	TemplateOverrideAuditAlert: {
		Message:    "Override audit required for {shipment_id}. Override count: {override_count} in last 24h.",
		Severity:   SeverityWarning,
		Recipients: []lifecycle.Role{lifecycle.RoleCOO, lifecycle.RoleRegulator},
	},
	TemplateDailyMetricsRollup: {
		Message:    "Daily metrics rollup completed. Date: {date}. Total shipments: {total_shipments}.",
		Severity:   SeverityInfo,
		Recipients: []lifecycle.Role{lifecycle.RoleCOO, lifecycle.RoleSystem},
	},
	TemplateSnapshotIntegrityAlert: {
		Message:    "Snapshot integrity verification complete. Status: {status}. Issues: {issue_count}.",
		Severity:   SeverityCritical,
		Recipients: []lifecycle.Role{lifecycle.RoleSystem, lifecycle.RoleCOO, lifecycle.RoleRegulator},
	},
}

func getTemplate(name string) (Template, error) {
	t, ok := registry[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return t, nil
}

// TemplatesBySeverity lists every registered template name at severity.
func TemplatesBySeverity(severity Severity) []string {
	var names []string
	for name, t := range registry {
		if t.Severity == severity {
			names = append(names, name)
		}
	}
	return names
}

// TemplatesByRole lists every registered template name that routes to role.
func TemplatesByRole(role lifecycle.Role) []string {
	var names []string
	for name, t := range registry {
		for _, r := range t.Recipients {
			if r == role {
				names = append(names, name)
				break
			}
		}
	}
	return names
}
