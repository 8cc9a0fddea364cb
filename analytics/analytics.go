// Package analytics records conversation events on a buffered, best-effort
// path. Recording never blocks message handling and a failing sink never
// surfaces to the customer.
package analytics

import (
	"context"
	"sync"
	"time"

	"shopmate/log"
)

// Event types
const (
	EventMessageHandled = "message_handled"
	EventToolCall       = "tool_call"
	EventProviderFail   = "provider_failure"
)

// Event is one analytics record
type Event struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	CustomerID     string    `json:"customer_id,omitempty"`
	Channel        string    `json:"channel,omitempty"`
	Provider       string    `json:"provider,omitempty"`
	Tool           string    `json:"tool,omitempty"`
	OK             bool      `json:"ok"`
	ProductIDs     []string  `json:"product_ids,omitempty"`
	At             time.Time `json:"at"`
}

// Sink delivers batches of events downstream
type Sink interface {
	Publish(ctx context.Context, events []Event) error
	Close() error
}

// Recorder buffers events and flushes them to the sink when the buffer
// fills, on a periodic tick, and on shutdown.
type Recorder struct {
	sink     Sink
	size     int
	interval time.Duration

	mu     sync.Mutex
	buffer []Event

	done chan struct{}
	wg   sync.WaitGroup
}

// NewRecorder starts a recorder flushing to sink. A nil sink drops events.
func NewRecorder(sink Sink, bufferSize int, flushInterval time.Duration) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if flushInterval <= 0 {
		flushInterval = 30 * time.Second
	}

	r := &Recorder{
		sink:     sink,
		size:     bufferSize,
		interval: flushInterval,
		buffer:   make([]Event, 0, bufferSize),
		done:     make(chan struct{}),
	}

	r.wg.Add(1)
	go r.flushLoop()
	return r
}

// Record buffers one event. Safe on a nil recorder so callers can treat
// analytics as optional.
func (r *Recorder) Record(event Event) {
	if r == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	var full []Event
	r.mu.Lock()
	r.buffer = append(r.buffer, event)
	if len(r.buffer) >= r.size {
		full = r.buffer
		r.buffer = make([]Event, 0, r.size)
	}
	r.mu.Unlock()

	if full != nil {
		go r.publish(full)
	}
}

func (r *Recorder) flushLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Flush()
		case <-r.done:
			r.Flush()
			return
		}
	}
}

// Flush publishes any buffered events now
func (r *Recorder) Flush() {
	r.mu.Lock()
	if len(r.buffer) == 0 {
		r.mu.Unlock()
		return
	}
	batch := r.buffer
	r.buffer = make([]Event, 0, r.size)
	r.mu.Unlock()

	r.publish(batch)
}

func (r *Recorder) publish(batch []Event) {
	if r.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.sink.Publish(ctx, batch); err != nil {
		// Events are best-effort; a failed batch is dropped, not retried.
		log.Log.Warnf("[Analytics] Failed to publish batch | Events: %d | Error: %v", len(batch), err)
	}
}

// Close flushes remaining events and closes the sink
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	close(r.done)
	r.wg.Wait()
	if r.sink != nil {
		return r.sink.Close()
	}
	return nil
}
