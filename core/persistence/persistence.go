package persistence

import (
	"fmt"
	"sync"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/asaidimu/go-mimic/core/document"
	"github.com/asaidimu/go-mimic/core/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Persistence wraps the Mutator with event emission: every mutation publishes
// start, success, and failed events on a typed bus that embedders can
// subscribe to for logging or test synchronization.
type Persistence struct {
	mutator       *Mutator
	bus           *events.TypedEventBus[StoreEvent]
	logger        *zap.Logger
	subscriptions map[string]*SubscriptionInfo
	subMu         sync.RWMutex
}

// New creates the persistence layer over a store. A nil clock defaults to
// time.Now.
func New(s *store.Store, clock func() time.Time, logger *zap.Logger) (*Persistence, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bus, err := events.NewTypedEventBus[StoreEvent](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("could not initialize event bus: %w", err)
	}
	return &Persistence{
		mutator:       NewMutator(s, clock, logger),
		bus:           bus,
		logger:        logger,
		subscriptions: make(map[string]*SubscriptionInfo),
	}, nil
}

func (p *Persistence) emit(event StoreEvent) {
	if p.bus != nil {
		p.bus.Emit(string(event.Type), event)
	}
}

// withEventEmission wraps an operation with start, success, and failure events.
func (p *Persistence) withEventEmission(
	operation string,
	collection string,
	startType, successType, failedType StoreEventType,
	input any,
	fn func() (any, error),
) (any, error) {
	startTime := time.Now()
	p.emit(createEvent(startType, operation, collection, input, nil, nil, startTime))

	result, err := fn()
	if err != nil {
		errStr := err.Error()
		p.emit(createEvent(failedType, operation, collection, input, nil, &errStr, startTime))
		return nil, err
	}

	p.emit(createEvent(successType, operation, collection, input, result, nil, startTime))
	return result, nil
}

// Insert creates a document and emits document:create events.
func (p *Persistence) Insert(resource string, doc document.Document) (document.Document, error) {
	result, err := p.withEventEmission(
		"create", resource,
		DocumentCreateStart, DocumentCreateSuccess, DocumentCreateFailed,
		doc,
		func() (any, error) {
			return p.mutator.Insert(resource, doc)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(document.Document), nil
}

// Replace swaps a document wholesale and emits document:replace events.
func (p *Persistence) Replace(resource, id string, doc document.Document) (document.Document, error) {
	result, err := p.withEventEmission(
		"replace", resource,
		DocumentReplaceStart, DocumentReplaceSuccess, DocumentReplaceFailed,
		doc,
		func() (any, error) {
			return p.mutator.Replace(resource, id, doc)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(document.Document), nil
}

// Merge overlays a document and emits document:merge events.
func (p *Persistence) Merge(resource, id string, doc document.Document) (document.Document, error) {
	result, err := p.withEventEmission(
		"merge", resource,
		DocumentMergeStart, DocumentMergeSuccess, DocumentMergeFailed,
		doc,
		func() (any, error) {
			return p.mutator.Merge(resource, id, doc)
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(document.Document), nil
}

// RemoveResult pairs the deleted root document with the full cascade map.
type RemoveResult struct {
	Deleted document.Document `json:"deleted"`
	Cascade CascadeResult     `json:"cascade"`
}

// Remove deletes with cascade and emits document:delete events.
func (p *Persistence) Remove(resource, id string) (*RemoveResult, error) {
	result, err := p.withEventEmission(
		"delete", resource,
		DocumentDeleteStart, DocumentDeleteSuccess, DocumentDeleteFailed,
		id,
		func() (any, error) {
			deleted, cascade, err := p.mutator.Remove(resource, id)
			if err != nil {
				return nil, err
			}
			return &RemoveResult{Deleted: deleted, Cascade: cascade}, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return result.(*RemoveResult), nil
}

// Subscribe registers a callback for a store event type and returns a unique
// id that can be used to unsubscribe later.
func (p *Persistence) Subscribe(event StoreEventType, callback EventCallback) string {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	unsubscribe := p.bus.Subscribe(string(event), callback)
	id := uuid.New().String()
	p.subscriptions[id] = &SubscriptionInfo{
		ID:          id,
		Event:       event,
		Unsubscribe: unsubscribe,
	}
	return id
}

// Unsubscribe removes a subscription by its id.
func (p *Persistence) Unsubscribe(id string) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	if info, ok := p.subscriptions[id]; ok {
		info.Unsubscribe()
		delete(p.subscriptions, id)
	}
}

// Subscriptions lists the currently active subscriptions.
func (p *Persistence) Subscriptions() []SubscriptionInfo {
	p.subMu.RLock()
	defer p.subMu.RUnlock()

	subs := make([]SubscriptionInfo, 0, len(p.subscriptions))
	for _, sub := range p.subscriptions {
		subs = append(subs, *sub)
	}
	return subs
}
