package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// cache is the per-file-mtime event cache described in §4.1: a full replay
// of the log plus a shipment_id → events index, rebuilt only when the
// backing file's mtime has changed since the last build.
//
// Concurrent readers take the read lock and never block each other once the
// cache is warm; a rebuild takes the write lock and publishes atomically, so
// concurrent rebuilds cannot produce an inconsistent intermediate view
// (§5 "Shared-resource policy").
type cache struct {
	mu         sync.RWMutex
	mtime      time.Time
	built      bool
	all        []Event
	byShipment map[string][]Event
}

func newCache() *cache {
	return &cache{byShipment: make(map[string][]Event)}
}

// invalidate forces the next read to rebuild from disk. Called by Append
// immediately after a successful durable write.
func (c *cache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.built = false
}

// ensure rebuilds the cache from path if the file's mtime has advanced past
// the last build, or if no build has happened yet.
func (c *cache) ensure(path string) error {
	info, statErr := os.Stat(path)

	c.mu.RLock()
	stale := !c.built || (statErr == nil && info.ModTime().After(c.mtime))
	c.mu.RUnlock()
	if !stale {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check under the write lock: another goroutine may have rebuilt
	// while we waited (double-checked build with atomic publication).
	if c.built && (statErr != nil || !info.ModTime().After(c.mtime)) {
		return nil
	}

	all, byShipment, err := loadAll(path)
	if err != nil {
		return err
	}

	c.all = all
	c.byShipment = byShipment
	c.built = true
	if statErr == nil {
		c.mtime = info.ModTime()
	}
	return nil
}

func loadAll(path string) ([]Event, map[string][]Event, error) {
	byShipment := make(map[string][]Event)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, byShipment, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open event log: %s", ErrStorage, err)
	}
	defer f.Close()

	var all []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, nil, fmt.Errorf("%w: decode event line: %s", ErrStorage, err)
		}
		all = append(all, ev)
		byShipment[ev.ShipmentID] = append(byShipment[ev.ShipmentID], ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: scan event log: %s", ErrStorage, err)
	}

	for id := range byShipment {
		events := byShipment[id]
		sort.Slice(events, func(i, j int) bool { return events[i].Sequence < events[j].Sequence })
		byShipment[id] = events
	}

	return all, byShipment, nil
}

func (c *cache) readAll() []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Event, len(c.all))
	copy(out, c.all)
	return out
}

func (c *cache) readShipment(id string) []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	events := c.byShipment[id]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

func (c *cache) shipmentIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.byShipment))
	for id := range c.byShipment {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
