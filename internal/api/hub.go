package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"sigcalc/domain/core"
	"sigcalc/domain/stats"

	"github.com/gin-gonic/gin"
)

// Scan event types.
const (
	EventPoint = "point"
	EventDone  = "done"
	EventError = "error"
)

// ScanEvent reports the progress of a running toy scan
type ScanEvent struct {
	ScanID    core.ScanID      `json:"scan_id"`
	EventType string           `json:"event_type"`
	Index     int              `json:"index"`
	Point     *stats.ScanPoint `json:"point,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// terminal reports whether no further events follow e for its scan.
func (e ScanEvent) terminal() bool {
	return e.EventType == EventDone || e.EventType == EventError
}

// maxFinishedScans bounds how many finished scans keep their event history.
const maxFinishedScans = 100

// ScanHub fans scan events out to Server-Sent Events subscribers. It keeps
// each scan's events so late subscribers receive the full stream.
type ScanHub struct {
	clients   map[core.ScanID]map[chan ScanEvent]bool
	history   map[core.ScanID][]ScanEvent
	finished  []core.ScanID
	clientsMu sync.RWMutex
	broadcast chan ScanEvent
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewScanHub creates a hub and starts its dispatch loop
func NewScanHub() *ScanHub {
	hub := &ScanHub{
		clients:   make(map[core.ScanID]map[chan ScanEvent]bool),
		history:   make(map[core.ScanID][]ScanEvent),
		broadcast: make(chan ScanEvent, 100),
		stop:      make(chan struct{}),
	}

	go hub.run()
	return hub
}

func (h *ScanHub) run() {
	for {
		select {
		case event := <-h.broadcast:
			h.dispatch(event)
		case <-h.stop:
			return
		}
	}
}

// dispatch records event and delivers it to current subscribers. Recording
// and delivery share the lock with Subscribe, so a subscriber sees every
// event exactly once, either replayed or live.
func (h *ScanHub) dispatch(event ScanEvent) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	h.history[event.ScanID] = append(h.history[event.ScanID], event)
	if event.terminal() {
		h.finished = append(h.finished, event.ScanID)
		if len(h.finished) > maxFinishedScans {
			delete(h.history, h.finished[0])
			h.finished = h.finished[1:]
		}
	}

	for clientChan := range h.clients[event.ScanID] {
		select {
		case clientChan <- event:
		default:
			log.Printf("[SSE] Client channel full for scan %s, skipping event", event.ScanID)
		}
	}
}

// Subscribe registers a listener for one scan and replays the events already
// published for it. The returned function must be called to release it.
func (h *ScanHub) Subscribe(scanID core.ScanID) (<-chan ScanEvent, func()) {
	h.clientsMu.Lock()
	past := h.history[scanID]
	clientChan := make(chan ScanEvent, len(past)+32)
	for _, event := range past {
		clientChan <- event
	}
	if h.clients[scanID] == nil {
		h.clients[scanID] = make(map[chan ScanEvent]bool)
	}
	h.clients[scanID][clientChan] = true
	h.clientsMu.Unlock()

	var once sync.Once
	return clientChan, func() {
		once.Do(func() {
			h.clientsMu.Lock()
			defer h.clientsMu.Unlock()
			if clients, ok := h.clients[scanID]; ok {
				delete(clients, clientChan)
				if len(clients) == 0 {
					delete(h.clients, scanID)
				}
			}
		})
	}
}

// Broadcast queues an event for every subscriber of its scan. It blocks while
// the queue is full and drops the event once the hub is closed.
func (h *ScanHub) Broadcast(event ScanEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- event:
	case <-h.stop:
		log.Printf("[SSE] Hub closed, dropping %s event for scan %s", event.EventType, event.ScanID)
	}
}

// ClientCount returns the number of subscribers for a scan
func (h *ScanHub) ClientCount(scanID core.ScanID) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[scanID])
}

// Close stops the dispatch loop
func (h *ScanHub) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// HandleSSE streams the events of the scan named by the :id path parameter
// until it finishes or the client disconnects.
func (h *ScanHub) HandleSSE(c *gin.Context) {
	scanID, err := core.ParseScanID(c.Param("id"))
	if err != nil {
		abortWithError(c, invalidInput(err))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events, unsubscribe := h.Subscribe(scanID)
	defer unsubscribe()

	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case event := <-events:
			eventJSON, err := json.Marshal(event)
			if err != nil {
				log.Printf("[SSE] Failed to marshal event: %v", err)
				continue
			}
			c.SSEvent(event.EventType, string(eventJSON))
			c.Writer.Flush()
			if event.terminal() {
				return
			}

		case <-ping.C:
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			c.Writer.Flush()

		case <-ctx.Done():
			return
		}
	}
}
