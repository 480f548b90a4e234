package api

import (
	"sync"
	"time"

	"hmmsynth/internal"
)

// Export event types
const (
	EventStatus   = "status"
	EventProgress = "progress"
	EventDone     = "done"
	EventFailed   = "failed"
)

// ExportEvent is one update about an export job, streamed as an SSE event
type ExportEvent struct {
	JobID     string    `json:"job_id"`
	EventType string    `json:"event_type"`
	Done      int       `json:"done"`
	Total     int       `json:"total"`
	Progress  float64   `json:"progress"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Terminal reports whether no further events follow for the job.
func (e ExportEvent) Terminal() bool {
	return e.EventType == EventDone || e.EventType == EventFailed
}

// SSEHub fans job events out to the clients subscribed to that job
type SSEHub struct {
	clients   map[string]map[chan ExportEvent]bool
	clientsMu sync.RWMutex
	logger    *internal.Logger
}

// NewSSEHub creates a new SSE hub
func NewSSEHub(logger *internal.Logger) *SSEHub {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SSEHub{
		clients: make(map[string]map[chan ExportEvent]bool),
		logger:  logger,
	}
}

// Subscribe registers a client for jobID. The returned function must be
// called to unregister; it closes the channel.
func (h *SSEHub) Subscribe(jobID string) (<-chan ExportEvent, func()) {
	ch := make(chan ExportEvent, 16)

	h.clientsMu.Lock()
	if h.clients[jobID] == nil {
		h.clients[jobID] = make(map[chan ExportEvent]bool)
	}
	h.clients[jobID][ch] = true
	h.logger.Debug("[SSE] client registered for job %s (total clients: %d)", jobID, len(h.clients[jobID]))
	h.clientsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.clientsMu.Lock()
			defer h.clientsMu.Unlock()
			if clients, exists := h.clients[jobID]; exists {
				delete(clients, ch)
				if len(clients) == 0 {
					delete(h.clients, jobID)
				}
			}
			close(ch)
		})
	}
}

// Broadcast sends an event to every client of event.JobID without
// blocking. A full client drops progress events; terminal events replace
// the oldest queued event instead.
func (h *SSEHub) Broadcast(event ExportEvent) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	for ch := range h.clients[event.JobID] {
		select {
		case ch <- event:
			continue
		default:
		}
		if !event.Terminal() {
			h.logger.Debug("[SSE] client channel full for job %s, skipping %s", event.JobID, event.EventType)
			continue
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- event:
		default:
			h.logger.Warn("[SSE] dropped %s event for job %s", event.EventType, event.JobID)
		}
	}
}

// GetClientCount returns the number of active clients for a job
func (h *SSEHub) GetClientCount(jobID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[jobID])
}
