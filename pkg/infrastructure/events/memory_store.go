package events

import (
	"sync"

	"go.uber.org/zap"
)

// InMemoryEventStore records events in process and fans them out to
// subscribers on a separate goroutine.
type InMemoryEventStore struct {
	streams     map[string][]Event
	subscribers map[string][]EventHandler
	mutex       sync.RWMutex
	allEvents   []Event
	logger      *zap.Logger
	wg          sync.WaitGroup
}

func NewInMemoryEventStore(logger *zap.Logger) *InMemoryEventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventStore{
		streams:     make(map[string][]Event),
		subscribers: make(map[string][]EventHandler),
		allEvents:   make([]Event, 0),
		logger:      logger,
	}
}

var _ EventStore = (*InMemoryEventStore)(nil)

// Publish appends the event to its stream and notifies subscribers
func (s *InMemoryEventStore) Publish(event Event) error {
	s.mutex.Lock()
	versioned := BaseEvent{
		EventType:    event.Type(),
		Stream:       event.StreamID(),
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: len(s.streams[event.StreamID()]) + 1,
	}
	s.streams[versioned.Stream] = append(s.streams[versioned.Stream], versioned)
	s.allEvents = append(s.allEvents, versioned)
	handlers := append([]EventHandler(nil), s.subscribers[versioned.EventType]...)
	s.mutex.Unlock()

	if len(handlers) > 0 {
		s.wg.Add(1)
		go s.notify(versioned, handlers)
	}
	return nil
}

// ReadStream returns the events of one stream starting at fromVersion (1-based)
func (s *InMemoryEventStore) ReadStream(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events := s.streams[streamID]
	if fromVersion < 1 {
		fromVersion = 1
	}
	if fromVersion > len(events) {
		return []Event{}, nil
	}
	return append([]Event(nil), events[fromVersion-1:]...), nil
}

// ReadAll returns every event from the given global position (0-based)
func (s *InMemoryEventStore) ReadAll(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}
	if fromPosition >= len(s.allEvents) {
		return []Event{}, nil
	}
	return append([]Event(nil), s.allEvents[fromPosition:]...), nil
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}
	return nil
}

// Wait blocks until every in-flight notification has been handled
func (s *InMemoryEventStore) Wait() {
	s.wg.Wait()
}

func (s *InMemoryEventStore) notify(event Event, handlers []EventHandler) {
	defer s.wg.Done()
	for _, handler := range handlers {
		if !handler.CanHandle(event.Type()) {
			continue
		}
		if err := handler.Handle(event); err != nil {
			s.logger.Warn("event handler failed",
				zap.String("event", event.Type()),
				zap.String("stream", event.StreamID()),
				zap.Error(err),
			)
		}
	}
}
