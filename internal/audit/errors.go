// Package audit implements the Audit Snapshot Store: a per-role log of
// access denials (shipment id + reason code only — never shipment content),
// backed by GORM so denials can be queried relationally by role, shipment,
// or time range.
package audit

import "errors"

// ErrNotFound is returned when a requested denial record does not exist.
var ErrNotFound = errors.New("audit: record not found")
