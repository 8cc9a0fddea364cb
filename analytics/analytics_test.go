package analytics

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]Event
	closed  bool
}

func (f *fakeSink) Publish(_ context.Context, events []Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([]Event, len(events))
	copy(batch, events)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSink) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestRecorderFlushesOnClose(t *testing.T) {
	sink := &fakeSink{}
	r := NewRecorder(sink, 64, time.Hour)

	r.Record(Event{Type: EventMessageHandled, Channel: "whatsapp"})
	r.Record(Event{Type: EventToolCall, Tool: "search_products", OK: true})

	if err := r.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if sink.total() != 2 {
		t.Errorf("expected 2 events flushed, got %d", sink.total())
	}
	if !sink.closed {
		t.Error("sink not closed")
	}
}

func TestRecorderFlushesWhenBufferFills(t *testing.T) {
	sink := &fakeSink{}
	r := NewRecorder(sink, 4, time.Hour)
	defer r.Close()

	for i := 0; i < 4; i++ {
		r.Record(Event{Type: EventToolCall})
	}

	deadline := time.Now().Add(time.Second)
	for sink.total() < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.total() != 4 {
		t.Errorf("expected a full-buffer flush of 4 events, got %d", sink.total())
	}
}

func TestRecorderStampsEventTime(t *testing.T) {
	sink := &fakeSink{}
	r := NewRecorder(sink, 64, time.Hour)

	r.Record(Event{Type: EventProviderFail})
	r.Close()

	if sink.total() != 1 {
		t.Fatalf("expected 1 event, got %d", sink.total())
	}
	if sink.batches[0][0].At.IsZero() {
		t.Error("event time not stamped")
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.Record(Event{Type: EventMessageHandled})
	if err := r.Close(); err != nil {
		t.Errorf("nil recorder close must be a no-op, got %v", err)
	}
}
