package projector

import (
	"sync"

	"github.com/nlogistics/control-tower/internal/eventlog"
)

// versionedLog is the subset of *eventlog.Log the cache needs, so tests can
// supply a fake without touching the filesystem.
type versionedLog interface {
	Version() uint64
	ReadAll() ([]eventlog.Event, error)
}

// Cache memoizes BuildState/BuildIndexes against the event log's version
// counter, rebuilding only when the log has changed since the last read
// (§4.4 "invalidation follows the Event Log cache").
type Cache struct {
	log Source

	mu      sync.RWMutex
	version uint64
	built   bool
	rows    map[string]*ShipmentRow
	indexes Indexes
}

// Source is implemented by *eventlog.Log.
type Source = versionedLog

// NewCache wraps log with a memoizing projector.
func NewCache(log Source) *Cache {
	return &Cache{log: log}
}

// Snapshot returns the current read models and indexes, rebuilding from the
// event log only if its version has advanced.
func (c *Cache) Snapshot() (map[string]*ShipmentRow, Indexes, error) {
	current := c.log.Version()

	c.mu.RLock()
	if c.built && c.version == current {
		rows, idx := c.rows, c.indexes
		c.mu.RUnlock()
		return rows, idx, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-checked: another goroutine may have rebuilt while we waited.
	if c.built && c.version == current {
		return c.rows, c.indexes, nil
	}

	events, err := c.log.ReadAll()
	if err != nil {
		return nil, Indexes{}, err
	}

	rows := BuildState(events)
	idx := BuildIndexes(rows)

	c.rows = rows
	c.indexes = idx
	c.version = current
	c.built = true

	return rows, idx, nil
}
