// Package progress streams export progress to Server-Sent Events clients.
package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeStarted  = "export.started"
	TypeProgress = "export.progress"
	TypeFinished = "export.finished"
	TypePlan     = "plan.updated"
)

const (
	clientBuffer = 64
	keepAlive    = 15 * time.Second
	// retryMillis is the reconnect delay suggested to clients.
	retryMillis = 3000
)

// Event is one message on the stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
	// Run ties export events to a run; it is not sent. A finished event
	// releases the run's throttle state.
	Run string `json:"-"`
}

// Progress is the payload of export.progress.
type Progress struct {
	Run   string `json:"run"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

// hub is the broker state. Only the loop goroutine touches it.
type hub struct {
	clients  map[chan []byte]struct{}
	seq      uint64
	lastSent map[string]time.Time
	throttle time.Duration
}

func (h *hub) broadcast(ev Event) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	h.seq++
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "id: %d\nevent: %s\ndata: %s\n\n", h.seq, ev.Type, payload)
	msg := buf.Bytes()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// slow client; drop rather than stall every other subscriber
		}
	}
	if ev.Type == TypeFinished {
		delete(h.lastSent, ev.Run)
	}
}

// progress forwards the first and last step of a run and at most one step
// per throttle interval in between.
func (h *hub) progress(p Progress, now time.Time) {
	last, seen := h.lastSent[p.Run]
	if seen && p.Done > 1 && p.Done < p.Total && now.Sub(last) < h.throttle {
		return
	}
	h.lastSent[p.Run] = now
	h.broadcast(Event{Type: TypeProgress, Data: p, Run: p.Run})
}

func (h *hub) closeAll() {
	for ch := range h.clients {
		close(ch)
	}
	clear(h.clients)
}

// Broker fans events out to SSE clients. A single goroutine owns the hub;
// every public method hands it a closure over ops.
type Broker struct {
	ops     chan func(*hub)
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. throttle bounds intermediate export.progress
// events per run; zero means 250ms.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 250 * time.Millisecond
	}
	b := &Broker{
		ops:     make(chan func(*hub), 256),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	h := &hub{
		clients:  make(map[chan []byte]struct{}),
		lastSent: make(map[string]time.Time),
		throttle: throttle,
	}
	go b.loop(h)
	return b
}

func (b *Broker) loop(h *hub) {
	defer close(b.stopped)
	for {
		select {
		case <-b.stopCh:
			h.closeAll()
			return
		case op := <-b.ops:
			op(h)
		}
	}
}

// do runs op on the loop. It reports false once the broker has stopped.
func (b *Broker) do(op func(*hub)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.stopped:
		return false
	}
}

// Close stops the loop and closes every subscriber channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed on Unsubscribe or
// Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	done := make(chan struct{})
	if !b.do(func(h *hub) {
		h.clients[ch] = struct{}{}
		close(done)
	}) {
		close(ch)
		return ch
	}
	select {
	case <-done:
	case <-b.stopped:
		select {
		case <-done:
			// registered, so closeAll has closed ch
		default:
			close(ch)
		}
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	done := make(chan struct{})
	if !b.do(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
		close(done)
	}) {
		return
	}
	select {
	case <-done:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.do(func(h *hub) { resp <- len(h.clients) }) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish broadcasts ev to every client.
func (b *Broker) Publish(ev Event) {
	b.do(func(h *hub) { h.broadcast(ev) })
}

// PublishProgress reports (done, total) for run, throttled per run.
func (b *Broker) PublishProgress(run string, done, total int) {
	now := time.Now()
	b.do(func(h *hub) { h.progress(Progress{Run: run, Done: done, Total: total}, now) })
}

// ServeHTTP streams events to one client until it disconnects or the broker
// closes. Idle streams get a comment line every keepAlive.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
