// Package emitter implements the Event Emitter (§4.3): the only component
// permitted to mutate shipment state. It wires the lifecycle/role policy,
// the geo resolver, and the event log together behind a single Emit call,
// then fans out to a notification publisher without letting that fan-out
// affect the outcome of the append — a one-way dataflow, not a cyclic
// reference back into this package (§9).
package emitter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nlogistics/control-tower/internal/eventlog"
	"github.com/nlogistics/control-tower/internal/geo"
	"github.com/nlogistics/control-tower/internal/lifecycle"
)

// Publisher routes an appended event onward to the Notification Dispatcher.
// Publish runs after the event is durably appended; its failures must never
// roll back or be surfaced as an Emit failure (§4.3 step 6).
type Publisher interface {
	Publish(ctx context.Context, event eventlog.Event)
}

// noopPublisher is used when Emitter is constructed without a notification
// sink, e.g. in tests or tools that only replay the log.
type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, eventlog.Event) {}

// Emitter ties lifecycle validation, geo enrichment, and durable append
// into the single mutation path the rest of the system calls through.
type Emitter struct {
	log       *eventlog.Log
	resolver  geo.Resolver
	publisher Publisher
	logger    *zap.Logger
}

// Option configures an Emitter at construction time.
type Option func(*Emitter)

// WithPublisher overrides the default no-op Publisher.
func WithPublisher(p Publisher) Option {
	return func(e *Emitter) { e.publisher = p }
}

// New builds an Emitter over an opened event log and geo resolver.
func New(log *eventlog.Log, resolver geo.Resolver, logger *zap.Logger, opts ...Option) *Emitter {
	e := &Emitter{
		log:       log,
		resolver:  resolver,
		publisher: noopPublisher{},
		logger:    logger.Named("emitter"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request is the caller-supplied intent for a single mutation (§4.3
// signature: emit(shipment_id, current_state, next_state, event_type,
// actor_role, metadata?)).
type Request struct {
	ShipmentID    string
	CurrentState  lifecycle.State
	NextState     lifecycle.State
	EventType     lifecycle.EventType
	ActorRole     lifecycle.Role
	Metadata      map[string]any
}

// Emit validates and appends one event, enriching SHIPMENT_CREATED
// metadata with resolved geo, then asynchronously notifies. All
// validation steps happen before any side effect; a failure at any step
// leaves the log untouched (§4.3 "any failure aborts with no side
// effects").
func (e *Emitter) Emit(ctx context.Context, req Request) (eventlog.Event, error) {
	if req.EventType != lifecycle.EventMetadataUpdated {
		if err := lifecycle.ValidateRoleAuthority(req.ActorRole, req.CurrentState, req.EventType); err != nil {
			return eventlog.Event{}, fmt.Errorf("role authority: %w", err)
		}
		if err := lifecycle.ValidateTransition(req.CurrentState, req.NextState); err != nil {
			return eventlog.Event{}, fmt.Errorf("transition: %w", err)
		}
	} else if err := lifecycle.ValidateMetadataUpdate(req.CurrentState); err != nil {
		return eventlog.Event{}, fmt.Errorf("metadata update: %w", err)
	}

	metadata := req.Metadata
	if req.EventType == lifecycle.EventShipmentCreated {
		metadata = e.enrichGeo(metadata)
	}

	event, err := e.log.Append(eventlog.Candidate{
		ShipmentID:    req.ShipmentID,
		EventType:     req.EventType,
		PreviousState: req.CurrentState,
		NewState:      req.NextState,
		ActorRole:     req.ActorRole,
		Metadata:      metadata,
	})
	if err != nil {
		return eventlog.Event{}, err
	}

	go e.notify(event)

	return event, nil
}

// enrichGeo resolves metadata.source / metadata.destination and merges the
// result under the stable keys the projector expects (§4.3 step 4):
// source_city, source_state, source_state_code, source_geo_confidence, and
// the destination_* equivalents.
func (e *Emitter) enrichGeo(metadata map[string]any) map[string]any {
	merged := make(map[string]any, len(metadata)+8)
	for k, v := range metadata {
		merged[k] = v
	}

	if source, ok := merged["source"].(string); ok {
		loc := e.resolver.Resolve(source)
		merged["source_city"] = loc.City
		merged["source_state"] = loc.State
		merged["source_state_code"] = loc.StateCode
		merged["source_geo_confidence"] = loc.Confidence
	}
	if destination, ok := merged["destination"].(string); ok {
		loc := e.resolver.Resolve(destination)
		merged["destination_city"] = loc.City
		merged["destination_state"] = loc.State
		merged["destination_state_code"] = loc.StateCode
		merged["destination_geo_confidence"] = loc.Confidence
	}

	return merged
}

// notify runs the publisher on its own goroutine; any panic or error in
// the sink is logged and swallowed, never propagated to the caller of
// Emit (§4.3 step 6, §4.10 "dispatcher failures must not propagate to the
// emitter").
func (e *Emitter) notify(event eventlog.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("notification publish panicked",
				zap.String("shipment_id", event.ShipmentID),
				zap.Any("panic", r),
			)
		}
	}()
	e.publisher.Publish(context.Background(), event)
}
