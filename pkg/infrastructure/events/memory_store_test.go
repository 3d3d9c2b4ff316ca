package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/vsinha/blend/pkg/domain/entities"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (h *recordingHandler) Handle(event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	if h.fail {
		return errors.New("handler failed")
	}
	return nil
}

func (h *recordingHandler) CanHandle(eventType string) bool {
	return eventType == BlendCommittedEvent
}

func TestInMemoryEventStore_PublishAndRead(t *testing.T) {
	store := NewInMemoryEventStore(nil)
	blend := &entities.Blend{
		ID:        "blend-1",
		LotNumber: "LOT-1",
		Lines:     []entities.BlendLine{{BatchID: "B-1"}, {BatchID: "B-2"}},
	}

	if err := store.Publish(NewBlendCommitted(blend)); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}
	if err := store.Publish(NewBlendDeleted(blend)); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}
	if err := store.Publish(NewBatchHoldChanged("B-3", true)); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	stream, err := store.ReadStream("blend-blend-1", 0)
	if err != nil {
		t.Fatalf("Failed to read stream: %v", err)
	}
	if len(stream) != 2 {
		t.Fatalf("Expected 2 events in blend stream, got %d", len(stream))
	}
	if stream[0].Version() != 1 || stream[1].Version() != 2 {
		t.Errorf("Expected versions 1 and 2, got %d and %d", stream[0].Version(), stream[1].Version())
	}
	if stream[1].Type() != BlendDeletedEvent {
		t.Errorf("Expected %s, got %s", BlendDeletedEvent, stream[1].Type())
	}
	committed, ok := stream[0].Data().(BlendCommitted)
	if !ok || len(committed.BatchIDs) != 2 {
		t.Errorf("Expected committed payload with 2 batch ids, got %+v", stream[0].Data())
	}

	tail, _ := store.ReadStream("blend-blend-1", 2)
	if len(tail) != 1 {
		t.Errorf("Expected 1 event from version 2, got %d", len(tail))
	}

	all, _ := store.ReadAll(1)
	if len(all) != 2 {
		t.Errorf("Expected 2 events from position 1, got %d", len(all))
	}
	if none, _ := store.ReadAll(10); len(none) != 0 {
		t.Errorf("Expected no events past the end, got %d", len(none))
	}
}

func TestInMemoryEventStore_NotifiesSubscribers(t *testing.T) {
	store := NewInMemoryEventStore(nil)
	handler := &recordingHandler{fail: true}
	if err := store.Subscribe([]string{BlendCommittedEvent, BlendDeletedEvent}, handler); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	blend := &entities.Blend{ID: "blend-1", LotNumber: "LOT-1"}
	_ = store.Publish(NewBlendCommitted(blend))
	_ = store.Publish(NewBlendDeleted(blend))
	store.Wait()

	handler.mu.Lock()
	defer handler.mu.Unlock()
	// Deleted events are filtered by CanHandle
	if len(handler.events) != 1 {
		t.Fatalf("Expected 1 handled event, got %d", len(handler.events))
	}
	if handler.events[0].Type() != BlendCommittedEvent {
		t.Errorf("Expected %s, got %s", BlendCommittedEvent, handler.events[0].Type())
	}
}
