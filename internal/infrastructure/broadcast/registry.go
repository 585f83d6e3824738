package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"voice-intake-api/internal/domain/webhook"
	"voice-intake-api/internal/infrastructure/metrics"
)

// DefaultBuffer is the per-listener queue length.
const DefaultBuffer = 16

// Listener receives serialized events until it is unsubscribed.
type Listener struct {
	ID string
	C  <-chan []byte
}

// Registry tracks the event listeners connected to this instance.
// A listener whose queue is full misses the event instead of blocking
// delivery to the others.
type Registry struct {
	mu        sync.RWMutex
	listeners map[string]chan []byte
	buffer    int
	seq       uint64
	log       zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(buffer int, log zerolog.Logger) *Registry {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Registry{
		listeners: make(map[string]chan []byte),
		buffer:    buffer,
		log:       log.With().Str("component", "event-registry").Logger(),
	}
}

// Subscribe registers a listener. The returned func removes it and closes
// its channel; it is safe to call more than once.
func (r *Registry) Subscribe() (*Listener, func()) {
	ch := make(chan []byte, r.buffer)

	r.mu.Lock()
	r.seq++
	id := "listener-" + strconv.FormatUint(r.seq, 10)
	r.listeners[id] = ch
	count := len(r.listeners)
	r.mu.Unlock()

	metrics.EventListeners.Inc()
	r.log.Debug().Str("listener_id", id).Int("listeners", count).Msg("listener subscribed")

	var once sync.Once
	return &Listener{ID: id, C: ch}, func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	ch, ok := r.listeners[id]
	if ok {
		delete(r.listeners, id)
		close(ch)
	}
	count := len(r.listeners)
	r.mu.Unlock()

	if ok {
		metrics.EventListeners.Dec()
		r.log.Debug().Str("listener_id", id).Int("listeners", count).Msg("listener removed")
	}
}

// Deliver sends msg to every local listener and returns how many received it.
func (r *Registry) Deliver(msg []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for id, ch := range r.listeners {
		select {
		case ch <- msg:
			delivered++
		default:
			metrics.EventsDropped.Inc()
			r.log.Warn().Str("listener_id", id).Msg("listener queue full, dropping event")
		}
	}
	return delivered
}

// Publish serializes event and delivers it locally.
func (r *Registry) Publish(_ context.Context, event webhook.Event) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	r.Deliver(msg)
	return nil
}

// Count returns the number of connected listeners.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}
