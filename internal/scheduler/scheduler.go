// Package scheduler drives the periodic workers that turn live read-model
// state into signed snapshots (§4.7). Two kinds of job run under gocron:
//
//  1. a cadence job, re-run at a configurable interval, that writes one
//     snapshot per tracked family (shipment index, corridor SLA, heatmap,
//     corridor alerts, audit denials) straight off the Projector cache and
//     the Audit Snapshot Store;
//  2. a daily rollup job, fixed at 17:00 in the configured timezone, that
//     additionally verifies every family's integrity and emits a
//     DAILY_METRICS_ROLLUP notification.
//
// Both job kinds run in singleton mode: if a previous tick is still
// writing when the next one fires, the new tick is skipped rather than
// overlapping (the snapshot Store already serializes writers with a
// lock, but skipping avoids queueing redundant work).
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/analytics"
	"github.com/nlogistics/control-tower/internal/audit"
	"github.com/nlogistics/control-tower/internal/integrity"
	"github.com/nlogistics/control-tower/internal/notification"
	"github.com/nlogistics/control-tower/internal/projector"
	"github.com/nlogistics/control-tower/internal/snapshot"
)

// Snapshot family names. audit_denials and daily_rollup have no analogue
// in the live read model; everything else mirrors a projector.Cache view.
const (
	FamilyShipmentIndex = "shipment_index"
	FamilyCorridorSLA   = "corridor_sla"
	FamilyHeatmap       = "heatmap"
	FamilyAlerts        = "alerts"
	FamilyAuditDenials  = "audit_denials"
	FamilyDailyRollup   = "daily_rollup"
)

// Families lists every snapshot family this scheduler writes, in the
// order callers (e.g. the REST API's snapshot list) should present them.
var Families = []string{
	FamilyShipmentIndex,
	FamilyCorridorSLA,
	FamilyHeatmap,
	FamilyAlerts,
	FamilyAuditDenials,
	FamilyDailyRollup,
}

// corridorAlertThreshold mirrors internal/api/analytics.go's default —
// corridors are flagged once breach probability crosses this line.
const corridorAlertThreshold = 0.6

// dailyRollupCron fires at 17:00 local every day (§4.7 "daily metrics
// rollup triggers at 17:00 local").
const dailyRollupCron = "0 17 * * *"

// Scheduler wraps gocron and coordinates cadence + rollup snapshot jobs.
// The zero value is not usable — create instances with New.
type Scheduler struct {
	cron       gocron.Scheduler
	cache      *projector.Cache
	snapshots  *snapshot.Store
	detector   *integrity.Detector
	auditStore audit.Store
	dispatcher *notification.Dispatcher
	cadence    time.Duration
	logger     *zap.Logger
}

// New creates and configures a new Scheduler. Call Start to begin
// processing. timezone is an IANA location name (e.g. "Asia/Kolkata");
// an empty string falls back to UTC.
func New(
	cache *projector.Cache,
	snapshots *snapshot.Store,
	detector *integrity.Detector,
	auditStore audit.Store,
	dispatcher *notification.Dispatcher,
	cadence time.Duration,
	timezone string,
	logger *zap.Logger,
) (*Scheduler, error) {
	loc := time.UTC
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("scheduler: load timezone %q: %w", timezone, err)
		}
		loc = l
	}

	cron, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("scheduler: create gocron scheduler: %w", err)
	}

	return &Scheduler{
		cron:       cron,
		cache:      cache,
		snapshots:  snapshots,
		detector:   detector,
		auditStore: auditStore,
		dispatcher: dispatcher,
		cadence:    cadence,
		logger:     logger.Named("scheduler"),
	}, nil
}

// Start registers the cadence and rollup jobs and starts the underlying
// gocron scheduler. Call once at server startup.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.NewJob(
		gocron.DurationJob(s.cadence),
		gocron.NewTask(func() { s.runCadence(ctx) }),
		gocron.WithTags("cadence"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("scheduler: schedule cadence job: %w", err)
	}

	if _, err := s.cron.NewJob(
		gocron.CronJob(dailyRollupCron, false),
		gocron.NewTask(func() { s.runDailyRollup(ctx) }),
		gocron.WithTags("daily_rollup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("scheduler: schedule daily rollup job: %w", err)
	}

	s.logger.Info("scheduler started",
		zap.Duration("cadence", s.cadence),
		zap.String("daily_rollup_cron", dailyRollupCron))
	s.cron.Start()
	return nil
}

// Stop gracefully shuts down the underlying gocron scheduler, waiting
// for any currently running job to finish before returning.
func (s *Scheduler) Stop() error {
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("scheduler: shutdown: %w", err)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// runCadence snapshots the current read model and writes one family per
// analytics view. A failure on one family is logged and does not block
// the others — each family is independently persisted (§4.7 ownership).
func (s *Scheduler) runCadence(ctx context.Context) {
	rows, _, err := s.cache.Snapshot()
	if err != nil {
		s.logger.Error("cadence: failed to snapshot read model", zap.Error(err))
		return
	}

	s.writeFamily(FamilyShipmentIndex, shipmentIndexPayload(rows))

	health := analytics.ComputeCorridorSLAHealth(rows)
	s.writeFamily(FamilyCorridorSLA, health)

	s.writeFamily(FamilyHeatmap, analytics.BuildHeatmap(rows))

	s.writeFamily(FamilyAlerts, analytics.DetectCorridorAlerts(health, corridorAlertThreshold))

	if s.auditStore != nil {
		counts, err := s.auditStore.CountByReason(ctx)
		if err != nil {
			s.logger.Error("cadence: failed to count audit denials", zap.Error(err))
		} else {
			s.writeFamily(FamilyAuditDenials, counts)
		}
	}
}

// runDailyRollup writes the daily_rollup family, runs an integrity sweep
// over every family, and notifies COO/SYSTEM recipients.
func (s *Scheduler) runDailyRollup(ctx context.Context) {
	rows, _, err := s.cache.Snapshot()
	if err != nil {
		s.logger.Error("daily rollup: failed to snapshot read model", zap.Error(err))
		return
	}

	now := time.Now()
	payload := dailyRollupPayload{
		Date:           now.Format("2006-01-02"),
		TotalShipments: len(rows),
		CorridorHealth: analytics.ComputeCorridorSLAHealth(rows),
		Heatmap:        analytics.BuildHeatmap(rows),
	}
	if _, err := s.snapshots.Write(FamilyDailyRollup, payload); err != nil {
		s.logger.Error("daily rollup: failed to write snapshot", zap.Error(err))
	}

	s.runIntegritySweep()

	if s.dispatcher != nil {
		if err := s.dispatcher.NotifyDailyMetricsRollup(ctx, payload.Date, payload.TotalShipments); err != nil {
			s.logger.Error("daily rollup: failed to notify", zap.Error(err))
		}
	}
}

// runIntegritySweep runs the Tamper Detector over every written family
// and raises a SNAPSHOT_INTEGRITY_ALERT if any is not INTACT.
func (s *Scheduler) runIntegritySweep() {
	issues := 0
	worst := integrity.StatusIntact
	for _, family := range Families {
		report := s.detector.Detect(family)
		if report.Status == integrity.StatusMissing {
			continue
		}
		if report.Status != integrity.StatusIntact {
			issues++
			worst = report.Status
			s.logger.Warn("snapshot integrity check failed",
				zap.String("family", family),
				zap.String("status", string(report.Status)),
				zap.Strings("violated_rules", report.ViolatedRules))
		}
	}
	if issues > 0 && s.dispatcher != nil {
		if err := s.dispatcher.NotifySnapshotIntegrityAlert(context.Background(), string(worst), issues); err != nil {
			s.logger.Error("failed to notify integrity alert", zap.Error(err))
		}
	}
}

// writeFamily writes payload to family, logging any failure. It never
// returns an error — cadence jobs run unattended and must not panic.
func (s *Scheduler) writeFamily(family string, payload any) {
	if _, err := s.snapshots.Write(family, payload); err != nil {
		s.logger.Error("failed to write snapshot family", zap.String("family", family), zap.Error(err))
	}
}

// shipmentIndexRow is the canonical per-shipment row stored in the
// shipment_index family — a trimmed projection of projector.ShipmentRow
// omitting full event history, which the live API serves separately.
type shipmentIndexRow struct {
	ShipmentID   string `json:"shipment_id"`
	CurrentState string `json:"current_state"`
	Corridor     string `json:"corridor"`
	EventCount   int    `json:"event_count"`
	LastUpdated  int64  `json:"last_updated"`
}

type dailyRollupPayload struct {
	Date           string                               `json:"date"`
	TotalShipments int                                  `json:"total_shipments"`
	CorridorHealth map[string]analytics.CorridorHealth `json:"corridor_health"`
	Heatmap        []analytics.HeatmapPoint            `json:"heatmap"`
}

func shipmentIndexPayload(rows map[string]*projector.ShipmentRow) []shipmentIndexRow {
	out := make([]shipmentIndexRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, shipmentIndexRow{
			ShipmentID:   row.ShipmentID,
			CurrentState: string(row.CurrentState),
			Corridor:     row.Corridor,
			EventCount:   row.EventCount,
			LastUpdated:  row.LastUpdated.Unix(),
		})
	}
	return out
}
