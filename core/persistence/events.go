package persistence

import (
	"context"
	"time"
)

// StoreEventType defines the possible event types for store mutations.
type StoreEventType string

const (
	DocumentCreateStart    StoreEventType = "document:create:start"
	DocumentCreateSuccess  StoreEventType = "document:create:success"
	DocumentCreateFailed   StoreEventType = "document:create:failed"
	DocumentReplaceStart   StoreEventType = "document:replace:start"
	DocumentReplaceSuccess StoreEventType = "document:replace:success"
	DocumentReplaceFailed  StoreEventType = "document:replace:failed"
	DocumentMergeStart     StoreEventType = "document:merge:start"
	DocumentMergeSuccess   StoreEventType = "document:merge:success"
	DocumentMergeFailed    StoreEventType = "document:merge:failed"
	DocumentDeleteStart    StoreEventType = "document:delete:start"
	DocumentDeleteSuccess  StoreEventType = "document:delete:success"
	DocumentDeleteFailed   StoreEventType = "document:delete:failed"
)

// StoreEvent describes one phase of a mutation for subscribers.
type StoreEvent struct {
	Type       StoreEventType `json:"type"`
	Timestamp  int64          `json:"timestamp"` // Unix milliseconds.
	Operation  string         `json:"operation"`
	Collection *string        `json:"collection,omitempty"`
	Input      any            `json:"input,omitempty"`
	Output     any            `json:"output,omitempty"`
	Error      *string        `json:"error,omitempty"`
	Duration   *int64         `json:"duration,omitempty"` // Milliseconds.
}

// EventCallback is invoked for every event of a subscribed type.
type EventCallback func(ctx context.Context, event StoreEvent) error

// SubscriptionInfo describes an active subscription.
type SubscriptionInfo struct {
	ID          string         `json:"id"`
	Event       StoreEventType `json:"event"`
	Label       *string        `json:"label,omitempty"`
	Description *string        `json:"description,omitempty"`
	Unsubscribe func()         `json:"-"`
}

func createEvent(
	eventType StoreEventType,
	operation string,
	collection string,
	input any,
	output any,
	errMsg *string,
	startTime time.Time,
) StoreEvent {
	now := time.Now()
	duration := now.Sub(startTime).Milliseconds()
	return StoreEvent{
		Type:       eventType,
		Timestamp:  now.UnixMilli(),
		Operation:  operation,
		Collection: &collection,
		Input:      input,
		Output:     output,
		Error:      errMsg,
		Duration:   &duration,
	}
}
