package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeChannelProvisioned EventType = "channel_provisioned"
	EventTypeChannelRemoved     EventType = "channel_removed"
	EventTypeLobbyBound         EventType = "lobby_bound"
	EventTypeLobbyUnbound       EventType = "lobby_unbound"
)

// Reasons attached to ChannelRemovedEvent.
const (
	RemovalReasonOwnerRequest = "owner_request"
	RemovalReasonExpired      = "expired"
	RemovalReasonDrift        = "drift"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ChannelProvisionedEvent is emitted after a temporary channel has been
// created and its record committed.
type ChannelProvisionedEvent struct {
	GuildID     int64
	ChannelID   int64
	OwnerID     int64
	Purpose     string
	DisplayName string
	Private     bool
}

func (e ChannelProvisionedEvent) Type() EventType {
	return EventTypeChannelProvisioned
}

// ChannelRemovedEvent is emitted after a temporary channel and its record
// have been removed.
type ChannelRemovedEvent struct {
	GuildID   int64
	ChannelID int64
	OwnerID   int64
	Reason    string
}

func (e ChannelRemovedEvent) Type() EventType {
	return EventTypeChannelRemoved
}

// LobbyBoundEvent is emitted when a channel is designated as a lobby.
type LobbyBoundEvent struct {
	GuildID   int64
	ChannelID int64
}

func (e LobbyBoundEvent) Type() EventType {
	return EventTypeLobbyBound
}

// LobbyUnboundEvent is emitted when a lobby binding is removed.
type LobbyUnboundEvent struct {
	GuildID   int64
	ChannelID int64
}

func (e LobbyUnboundEvent) Type() EventType {
	return EventTypeLobbyUnbound
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking the emitter
	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus stashes events raised inside a unit of work until the
// surrounding transaction commits, then flushes them to the real bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events. Called after a successful DB commit.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Events outlive the transaction context, so emit on a fresh one.
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events. Called after rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
