package audit

import (
	"github.com/nlogistics/control-tower/internal/db"
)

// Denial is a single access-denial record: who was denied (role), what they
// tried to look at (shipment_id), and why (reason_code). The payload never
// contains shipment content — see spec §3 "Audit denial".
type Denial struct {
	db.Base
	Role       string `gorm:"index;not null"`
	ShipmentID string `gorm:"index;not null"`
	ReasonCode string `gorm:"not null"`
}

// TableName pins the GORM table name so renaming the Go type does not
// require a migration.
func (Denial) TableName() string { return "audit_denials" }
