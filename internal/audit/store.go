package audit

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/nlogistics/control-tower/internal/accessguard"
)

// ListOptions carries common pagination for store queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// Store persists and queries access-denial records. Denials are written by
// the Access Guard's caller whenever Check returns a denial, never by the
// guard itself (the guard is pure, no I/O — see internal/accessguard).
type Store interface {
	// Record appends a denial for role attempting to reach shipmentID.
	Record(ctx context.Context, role, shipmentID string, reason accessguard.DenialReason) error

	// ByRole returns denials recorded against the given role, most recent first.
	ByRole(ctx context.Context, role string, opts ListOptions) ([]Denial, int64, error)

	// ByShipment returns denials recorded while accessing the given shipment.
	ByShipment(ctx context.Context, shipmentID string, opts ListOptions) ([]Denial, int64, error)

	// CountByReason returns a histogram of denials grouped by reason code,
	// used by the regulator surface's denial-summary view.
	CountByReason(ctx context.Context) (map[accessguard.DenialReason]int64, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by the provided *gorm.DB.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Record(ctx context.Context, role, shipmentID string, reason accessguard.DenialReason) error {
	denial := &Denial{
		Role:       role,
		ShipmentID: shipmentID,
		ReasonCode: string(reason),
	}
	if err := s.db.WithContext(ctx).Create(denial).Error; err != nil {
		return fmt.Errorf("audit: record denial: %w", err)
	}
	return nil
}

func (s *gormStore) ByRole(ctx context.Context, role string, opts ListOptions) ([]Denial, int64, error) {
	var denials []Denial
	var total int64

	q := s.db.WithContext(ctx).Model(&Denial{}).Where("role = ?", role)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit: count by role: %w", err)
	}

	if err := q.Order("created_at DESC").Limit(opts.Limit).Offset(opts.Offset).Find(&denials).Error; err != nil {
		return nil, 0, fmt.Errorf("audit: list by role: %w", err)
	}
	return denials, total, nil
}

func (s *gormStore) ByShipment(ctx context.Context, shipmentID string, opts ListOptions) ([]Denial, int64, error) {
	var denials []Denial
	var total int64

	q := s.db.WithContext(ctx).Model(&Denial{}).Where("shipment_id = ?", shipmentID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit: count by shipment: %w", err)
	}

	if err := q.Order("created_at DESC").Limit(opts.Limit).Offset(opts.Offset).Find(&denials).Error; err != nil {
		return nil, 0, fmt.Errorf("audit: list by shipment: %w", err)
	}
	return denials, total, nil
}

func (s *gormStore) CountByReason(ctx context.Context) (map[accessguard.DenialReason]int64, error) {
	var rows []struct {
		ReasonCode string
		Count      int64
	}
	if err := s.db.WithContext(ctx).Model(&Denial{}).
		Select("reason_code, count(*) as count").
		Group("reason_code").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("audit: count by reason: %w", err)
	}

	out := make(map[accessguard.DenialReason]int64, len(rows))
	for _, r := range rows {
		out[accessguard.DenialReason(r.ReasonCode)] = r.Count
	}
	return out, nil
}
