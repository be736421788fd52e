package notification

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/eventlog"
	"github.com/nlogistics/control-tower/internal/lifecycle"
)

func TestTemplateFormatSubstitutesContext(t *testing.T) {
	tmpl, err := getTemplate(TemplateReceiverAckToSender)
	if err != nil {
		t.Fatalf("getTemplate: %v", err)
	}
	msg, err := tmpl.Format(map[string]any{
		"shipment_id":       "SHIP-1",
		"destination_state": "Maharashtra",
	})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	want := "Shipment SHIP-1 has reached Receiver Manager in Maharashtra."
	if msg != want {
		t.Fatalf("got %q, want %q", msg, want)
	}
}

func TestTemplateFormatFailsOnMissingContext(t *testing.T) {
	tmpl, err := getTemplate(TemplateDeliveryFailed)
	if err != nil {
		t.Fatalf("getTemplate: %v", err)
	}
	if _, err := tmpl.Format(map[string]any{"shipment_id": "SHIP-1"}); err == nil {
		t.Fatal("expected an error for a missing placeholder value")
	}
}

func TestGetTemplateUnknownNameFails(t *testing.T) {
	if _, err := getTemplate("NOT_A_REAL_TEMPLATE"); err == nil {
		t.Fatal("expected ErrTemplateNotFound")
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "notifications.jsonl"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	return store
}

func TestStoreAppendAndReadAll(t *testing.T) {
	store := newTestStore(t)
	rec := Record{
		NotificationID: "NOTIF-1",
		Timestamp:      100,
		ShipmentID:     "SHIP-1",
		TemplateName:   TemplateDeliveryConfirmed,
		Message:        "delivered",
		Severity:       SeverityInfo,
		Recipients:     []lifecycle.Role{lifecycle.RoleWarehouseManager},
	}
	if err := store.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	all, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(all) != 1 || all[0].NotificationID != "NOTIF-1" {
		t.Fatalf("unexpected records: %+v", all)
	}
}

func TestStoreForRoleFiltersAndOrdersNewestFirst(t *testing.T) {
	store := newTestStore(t)
	older := Record{NotificationID: "NOTIF-OLD", Timestamp: 100, Recipients: []lifecycle.Role{lifecycle.RoleCOO}}
	newer := Record{NotificationID: "NOTIF-NEW", Timestamp: 200, Recipients: []lifecycle.Role{lifecycle.RoleCOO}}
	irrelevant := Record{NotificationID: "NOTIF-OTHER", Timestamp: 150, Recipients: []lifecycle.Role{lifecycle.RoleViewer}}
	for _, r := range []Record{older, newer, irrelevant} {
		if err := store.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	forCOO, err := store.ForRole(lifecycle.RoleCOO, 0)
	if err != nil {
		t.Fatalf("ForRole: %v", err)
	}
	if len(forCOO) != 2 || forCOO[0].NotificationID != "NOTIF-NEW" {
		t.Fatalf("unexpected order: %+v", forCOO)
	}
}

func TestStoreMarkReadUpdatesUnreadTracking(t *testing.T) {
	store := newTestStore(t)
	rec := Record{NotificationID: "NOTIF-1", Timestamp: 100, Recipients: []lifecycle.Role{lifecycle.RoleCOO}}
	if err := store.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	unread, err := store.UnreadForRole(lifecycle.RoleCOO)
	if err != nil {
		t.Fatalf("UnreadForRole: %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("expected one unread notification, got %d", len(unread))
	}

	found, err := store.MarkRead("NOTIF-1", lifecycle.RoleCOO)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !found {
		t.Fatal("expected MarkRead to find the notification")
	}

	unread, err = store.UnreadForRole(lifecycle.RoleCOO)
	if err != nil {
		t.Fatalf("UnreadForRole: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("expected no unread notifications after MarkRead, got %+v", unread)
	}
}

func TestStoreMarkReadUnknownIDReturnsFalse(t *testing.T) {
	store := newTestStore(t)
	found, err := store.MarkRead("does-not-exist", lifecycle.RoleCOO)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if found {
		t.Fatal("expected MarkRead to report not found")
	}
}

func TestStoreCountsForRole(t *testing.T) {
	store := newTestStore(t)
	if err := store.Append(Record{NotificationID: "NOTIF-1", Timestamp: 100, Severity: SeverityWarning, Recipients: []lifecycle.Role{lifecycle.RoleCOO}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(Record{NotificationID: "NOTIF-2", Timestamp: 200, Severity: SeverityCritical, Recipients: []lifecycle.Role{lifecycle.RoleCOO}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := store.MarkRead("NOTIF-1", lifecycle.RoleCOO); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	counts, err := store.CountsForRole(lifecycle.RoleCOO)
	if err != nil {
		t.Fatalf("CountsForRole: %v", err)
	}
	if counts.Total != 2 || counts.Unread != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if counts.BySeverity[SeverityCritical] != 1 {
		t.Fatalf("unexpected severity breakdown: %+v", counts.BySeverity)
	}
}

func TestStoreForShipmentOrdersOldestFirst(t *testing.T) {
	store := newTestStore(t)
	if err := store.Append(Record{NotificationID: "NOTIF-NEW", Timestamp: 200, ShipmentID: "SHIP-1"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(Record{NotificationID: "NOTIF-OLD", Timestamp: 100, ShipmentID: "SHIP-1"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := store.ForShipment("SHIP-1")
	if err != nil {
		t.Fatalf("ForShipment: %v", err)
	}
	if len(records) != 2 || records[0].NotificationID != "NOTIF-OLD" {
		t.Fatalf("unexpected order: %+v", records)
	}
}

type stubEmail struct{ calls int }

func (s *stubEmail) Send(ctx context.Context, subject, body string) error {
	s.calls++
	return nil
}

type stubWebhook struct{ calls int }

func (s *stubWebhook) Send(ctx context.Context, notifType, title, body string, payload map[string]any) error {
	s.calls++
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *Store, *stubEmail, *stubWebhook) {
	t.Helper()
	store := newTestStore(t)
	email := &stubEmail{}
	webhook := &stubWebhook{}
	d := NewDispatcher(store, email, webhook, zap.NewNop())
	return d, store, email, webhook
}

func baseEvent(eventType lifecycle.EventType, metadata map[string]any) eventlog.Event {
	return eventlog.Event{
		EventID:    uuid.New(),
		Sequence:   1,
		Timestamp:  time.Unix(1_700_000_000, 0),
		ShipmentID: "SHIP-1",
		EventType:  eventType,
		Metadata:   metadata,
	}
}

func TestDispatcherPublishReceiverAcknowledgedEmitsBaseNotification(t *testing.T) {
	d, store, _, _ := newTestDispatcher(t)
	d.Publish(context.Background(), baseEvent(lifecycle.EventReceiverAcknowledged, map[string]any{
		"destination_state": "Karnataka",
	}))

	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 1 || records[0].TemplateName != TemplateReceiverAckToSender {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestDispatcherPublishReceiverAcknowledgedAddsDelayedNotificationOnHighRisk(t *testing.T) {
	d, store, _, _ := newTestDispatcher(t)
	d.Publish(context.Background(), baseEvent(lifecycle.EventReceiverAcknowledged, map[string]any{
		"destination_state":      "Karnataka",
		"sla_breach_probability": 75.0,
	}))

	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected base + delayed notification, got %+v", records)
	}
}

func TestDispatcherPublishSupervisorApprovedSkipsLowRisk(t *testing.T) {
	d, store, _, _ := newTestDispatcher(t)
	d.Publish(context.Background(), baseEvent(lifecycle.EventSupervisorApproved, map[string]any{
		"combined_risk_score": 40.0,
	}))

	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no notification for low risk, got %+v", records)
	}
}

func TestDispatcherPublishSupervisorApprovedEscalatesHighRisk(t *testing.T) {
	d, store, email, webhook := newTestDispatcher(t)
	d.Publish(context.Background(), baseEvent(lifecycle.EventSupervisorApproved, map[string]any{
		"combined_risk_score": 90.0,
	}))

	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 1 || records[0].TemplateName != TemplateSupervisorPriorityEscalation {
		t.Fatalf("unexpected records: %+v", records)
	}
	if email.calls != 1 {
		t.Fatalf("expected one email delivery attempt, got %d calls", email.calls)
	}
	if webhook.calls != 1 {
		t.Fatalf("expected one webhook delivery attempt, got %d calls", webhook.calls)
	}
}

func TestDispatcherPublishUnroutedEventProducesNoNotification(t *testing.T) {
	d, store, _, _ := newTestDispatcher(t)
	d.Publish(context.Background(), baseEvent(lifecycle.EventMetadataUpdated, nil))

	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no notifications, got %+v", records)
	}
}

func TestDispatcherNotifyDailyMetricsRollup(t *testing.T) {
	d, store, _, _ := newTestDispatcher(t)
	if err := d.NotifyDailyMetricsRollup(context.Background(), "2026-07-30", 412); err != nil {
		t.Fatalf("NotifyDailyMetricsRollup: %v", err)
	}

	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 1 || records[0].ShipmentID != "SYSTEM" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestEmailSenderSkipsSilentlyWhenUnconfigured(t *testing.T) {
	sender := NewEmailSender(SMTPConfig{})
	if err := sender.Send(context.Background(), "subject", "body"); err != nil {
		t.Fatalf("expected a silent skip, got %v", err)
	}
}

func TestWebhookSenderSkipsSilentlyWhenUnconfigured(t *testing.T) {
	sender := NewWebhookSender(WebhookConfig{})
	if err := sender.Send(context.Background(), "TYPE", "title", "body", nil); err != nil {
		t.Fatalf("expected a silent skip, got %v", err)
	}
}
