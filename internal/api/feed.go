package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/tutu-network/pocketmoney/internal/app/tags"
)

// ─── Live Action Feed ───────────────────────────────────────────────────────
// Every tag the engine handles is pushed to connected admin clients as a
// Server-Sent Event.

// FeedEvent is one pushed action.
type FeedEvent struct {
	MessageID string      `json:"message_id,omitempty"`
	UserID    string      `json:"user_id"`
	Action    tags.Action `json:"action"`
	Timestamp int64       `json:"timestamp"` // Unix epoch
}

// ActionFeed fans events out to subscribers.
type ActionFeed struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewActionFeed creates an empty feed.
func NewActionFeed() *ActionFeed {
	return &ActionFeed{
		clients: make(map[chan []byte]struct{}),
	}
}

// Broadcast sends an event to all connected clients.
func (f *ActionFeed) Broadcast(event FeedEvent) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.clients {
		select {
		case ch <- data:
		default:
			// Client too slow; drop.
		}
	}
}

// Subscribe registers a new client. Returns the channel and an unsubscribe func.
func (f *ActionFeed) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 32)
	f.mu.Lock()
	f.clients[ch] = struct{}{}
	f.mu.Unlock()
	return ch, func() {
		f.mu.Lock()
		delete(f.clients, ch)
		f.mu.Unlock()
	}
}

// ClientCount returns the number of connected clients.
func (f *ActionFeed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// HandleSSE serves the feed via Server-Sent Events.
// GET /v1/actions/live
func (f *ActionFeed) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ch, unsub := f.Subscribe()
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-ch:
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
