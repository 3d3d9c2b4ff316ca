package events

import (
	"time"
)

// Event is a fact recorded against a blend or batch stream
type Event interface {
	Type() string
	StreamID() string
	Data() any
	Timestamp() time.Time
	Version() int
}

// EventHandler reacts to published events
type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

// Publisher is the write side used by application services
type Publisher interface {
	Publish(event Event) error
}

// EventStore keeps per-stream and global event logs
type EventStore interface {
	Publisher
	ReadStream(streamID string, fromVersion int) ([]Event, error)
	ReadAll(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
}

type BaseEvent struct {
	EventType    string
	Stream       string
	EventData    any
	EventTime    time.Time
	EventVersion int
}

func (e BaseEvent) Type() string {
	return e.EventType
}

func (e BaseEvent) StreamID() string {
	return e.Stream
}

func (e BaseEvent) Data() any {
	return e.EventData
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func (e BaseEvent) Version() int {
	return e.EventVersion
}

// NewEvent creates an event; the store assigns the stream version on publish
func NewEvent(eventType, streamID string, data any) Event {
	return BaseEvent{
		EventType: eventType,
		Stream:    streamID,
		EventData: data,
		EventTime: time.Now().UTC(),
	}
}
