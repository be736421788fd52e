package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/lifecycle"
)

// Log is the append-only event store. Appends are serialized through mu
// (§5 "single logical writer"); reads go through the cache and may proceed
// concurrently once it is warm.
type Log struct {
	mu       sync.Mutex
	path     string
	cache    *cache
	ids      *idGenerator
	logger   *zap.Logger
	version  uint64 // bumped on every successful append; observed by the projector
	versionMu sync.RWMutex
}

// Open creates or opens an event log rooted at dataDir (holding
// shipments.jsonl and shipment_counter.jsonl).
func Open(dataDir string, logger *zap.Logger) (*Log, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %s", ErrStorage, err)
	}

	ids, err := newIDGenerator(filepath.Join(dataDir, "shipment_counter.jsonl"))
	if err != nil {
		return nil, err
	}

	return &Log{
		path:   filepath.Join(dataDir, "shipments.jsonl"),
		cache:  newCache(),
		ids:    ids,
		logger: logger.Named("eventlog"),
	}, nil
}

// NextShipmentID durably allocates the next sequential shipment identifier.
func (l *Log) NextShipmentID() (string, error) {
	return l.ids.Next()
}

// Version returns a counter incremented on every successful append. The
// projector uses it to decide whether its own cached read models are stale
// (§4.4 "invalidation follows the Event Log cache").
func (l *Log) Version() uint64 {
	l.versionMu.RLock()
	defer l.versionMu.RUnlock()
	return l.version
}

// Append validates and durably persists a candidate event, assigning its
// sequence, event id, and timestamp. On any validation failure there are no
// side effects: nothing is written and the cache is not touched.
func (l *Log) Append(c Candidate) (Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.cache.ensure(l.path); err != nil {
		return Event{}, err
	}

	prior := l.cache.readShipment(c.ShipmentID)

	if c.EventType == lifecycle.EventShipmentCreated {
		for _, e := range prior {
			if e.EventType == lifecycle.EventShipmentCreated {
				return Event{}, fmt.Errorf("%w: shipment %s", ErrDuplicateCreation, c.ShipmentID)
			}
		}
	}

	if len(prior) == 0 && c.EventType != lifecycle.EventShipmentCreated {
		return Event{}, fmt.Errorf("%w: shipment %s, got %s", ErrFirstEventNotCreated, c.ShipmentID, c.EventType)
	}

	if err := validateAgainstPolicy(c); err != nil {
		return Event{}, err
	}

	sequence := len(prior) + 1
	now := latestTimestamp(prior)

	event := Event{
		EventID:       uuid.New(),
		Sequence:      sequence,
		Timestamp:     now,
		ShipmentID:    c.ShipmentID,
		EventType:     c.EventType,
		PreviousState: c.PreviousState,
		NewState:      c.NewState,
		ActorRole:     c.ActorRole,
		Metadata:      c.Metadata,
	}

	if err := l.appendDurable(event); err != nil {
		return Event{}, err
	}

	l.cache.invalidate()
	l.versionMu.Lock()
	l.version++
	l.versionMu.Unlock()

	l.logger.Info("event appended",
		zap.String("shipment_id", event.ShipmentID),
		zap.Int("sequence", event.Sequence),
		zap.String("event_type", string(event.EventType)),
		zap.String("actor_role", string(event.ActorRole)),
	)

	return event, nil
}

// validateAgainstPolicy re-validates current_state/next_state and role
// authority inside the log's own critical section. The Event Emitter
// performs the same checks before calling Append — this is defense in depth
// against a caller that races the lock, not the primary enforcement point.
func validateAgainstPolicy(c Candidate) error {
	if c.EventType == lifecycle.EventMetadataUpdated {
		if err := lifecycle.ValidateMetadataUpdate(c.PreviousState); err != nil {
			return toLogError(err)
		}
		return nil
	}

	if err := lifecycle.ValidateRoleAuthority(c.ActorRole, c.PreviousState, c.EventType); err != nil {
		return toLogError(err)
	}
	if err := lifecycle.ValidateTransition(c.PreviousState, c.NewState); err != nil {
		return toLogError(err)
	}
	return nil
}

func toLogError(err error) error {
	lerr, ok := err.(*lifecycle.Error)
	if !ok {
		return err
	}
	switch lerr.Kind {
	case lifecycle.KindUnknownCurrentState:
		return fmt.Errorf("%w: %s", ErrUnknownCurrentState, lerr.Message)
	case lifecycle.KindInvalidTransition:
		return fmt.Errorf("%w: %s", ErrInvalidTransition, lerr.Message)
	case lifecycle.KindRoleUnauthorized:
		return fmt.Errorf("%w: %s", ErrRoleUnauthorized, lerr.Message)
	default:
		return err
	}
}

// latestTimestamp returns the current UTC time, clamped forward to the
// previous event's timestamp if the clock has not advanced, guaranteeing
// timestamps are non-decreasing within a shipment (§3 invariant).
func latestTimestamp(prior []Event) time.Time {
	now := time.Now().UTC()
	if len(prior) == 0 {
		return now
	}
	last := prior[len(prior)-1].Timestamp
	if now.Before(last) {
		return last
	}
	return now
}

// appendDurable writes event as one JSON line and fsyncs before returning,
// matching §4.1(v) "persists atomically (fsync-equivalent before ack)".
func (l *Log) appendDurable(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: marshal event: %s", ErrStorage, err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open event log: %s", ErrStorage, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("%w: write event: %s", ErrStorage, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: fsync event log: %s", ErrStorage, err)
	}
	return nil
}

// ReadAll returns every event in append order.
func (l *Log) ReadAll() ([]Event, error) {
	if err := l.cache.ensure(l.path); err != nil {
		return nil, err
	}
	return l.cache.readAll(), nil
}

// ReadByShipment returns a shipment's events in sequence order.
func (l *Log) ReadByShipment(shipmentID string) ([]Event, error) {
	if err := l.cache.ensure(l.path); err != nil {
		return nil, err
	}
	return l.cache.readShipment(shipmentID), nil
}

// ListShipmentIDs returns every shipment id that has at least one event.
func (l *Log) ListShipmentIDs() ([]string, error) {
	if err := l.cache.ensure(l.path); err != nil {
		return nil, err
	}
	return l.cache.shipmentIDs(), nil
}

// IntegrityReport is the result of VerifyIntegrity.
type IntegrityReport struct {
	Valid  bool
	Errors []string
}

// VerifyIntegrity checks, for every shipment: sequences form 1..k with no
// gaps, timestamps are non-decreasing, and every transition was legal at
// the time it was recorded (§4.1 "verify_integrity").
func (l *Log) VerifyIntegrity() (IntegrityReport, error) {
	ids, err := l.ListShipmentIDs()
	if err != nil {
		return IntegrityReport{}, err
	}

	var errs []string
	for _, id := range ids {
		events, err := l.ReadByShipment(id)
		if err != nil {
			return IntegrityReport{}, err
		}

		for i, e := range events {
			expected := i + 1
			if e.Sequence != expected {
				errs = append(errs, fmt.Sprintf("%s: expected sequence %d, got %d", id, expected, e.Sequence))
			}
			if i > 0 && e.Timestamp.Before(events[i-1].Timestamp) {
				errs = append(errs, fmt.Sprintf("%s: non-monotonic timestamp at sequence %d", id, e.Sequence))
			}
		}

		if len(events) > 0 {
			first := events[0]
			if first.EventType != lifecycle.EventShipmentCreated || first.PreviousState != lifecycle.None {
				errs = append(errs, fmt.Sprintf("%s: first event is not SHIPMENT_CREATED from NONE", id))
			}
		}
	}

	return IntegrityReport{Valid: len(errs) == 0, Errors: errs}, nil
}
