// Package sse implements a Server-Sent Events broker that pushes catalog
// changes to connected clients.
package sse

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Catalog entities and change kinds.
const (
	EntityAsset = "asset"
	EntityImage = "image"

	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"

	// TypeCatalogUpdated is the throttled "something changed" event.
	TypeCatalogUpdated = "catalog.updated"
	// TypeObjectMissing reports a stored file that vanished out of band.
	TypeObjectMissing = "object.missing"
)

const (
	defaultThrottle  = 2 * time.Second
	defaultKeepAlive = 25 * time.Second
	clientBuffer     = 64
)

// Change is the payload of an "{entity}.{kind}" event.
type Change struct {
	Entity string `json:"entity"`
	Kind   string `json:"kind"`
	ID     string `json:"id"`
}

// ObjectMissing is the payload of an object.missing event.
type ObjectMissing struct {
	Key    string   `json:"key"`
	Assets []string `json:"assets"`
	Images []string `json:"images"`
}

func validKind(kind string) bool {
	return kind == KindCreated || kind == KindUpdated || kind == KindDeleted
}

// Broker fans catalog events out to SSE clients. One goroutine owns the
// client set, the frame sequence and the throttle clock; the public methods
// talk to it over channels.
type Broker struct {
	throttle  time.Duration
	keepAlive time.Duration
	now       func() time.Time

	join    chan chan []byte
	leave   chan chan []byte
	send    chan Event
	changes chan Change
	count   chan chan int

	stop    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. Entity events go out as they happen; at most
// one catalog.updated follows per throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = defaultThrottle
	}
	b := &Broker{
		throttle:  throttle,
		keepAlive: defaultKeepAlive,
		now:       time.Now,
		join:      make(chan chan []byte),
		leave:     make(chan chan []byte),
		send:      make(chan Event, 256),
		changes:   make(chan Change, 256),
		count:     make(chan chan int),
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go b.loop()
	return b
}

// hub is the state owned by the broker loop.
type hub struct {
	clients     map[chan []byte]struct{}
	seq         uint64
	lastCatalog time.Time
}

// frame encodes one SSE message with a sequential id.
func (h *hub) frame(e Event) ([]byte, bool) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, false
	}
	h.seq++
	buf := make([]byte, 0, len(payload)+len(e.Type)+32)
	buf = append(buf, "id: "...)
	buf = strconv.AppendUint(buf, h.seq, 10)
	buf = append(buf, "\nevent: "...)
	buf = append(buf, e.Type...)
	buf = append(buf, "\ndata: "...)
	buf = append(buf, payload...)
	buf = append(buf, "\n\n"...)
	return buf, true
}

// broadcast never blocks: a client whose buffer is full misses the frame.
func (h *hub) broadcast(e Event) {
	msg, ok := h.frame(e)
	if !ok {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (b *Broker) loop() {
	defer close(b.stopped)
	h := &hub{clients: make(map[chan []byte]struct{})}

	for {
		select {
		case <-b.stop:
			for ch := range h.clients {
				close(ch)
			}
			return

		case ch := <-b.join:
			h.clients[ch] = struct{}{}

		case ch := <-b.leave:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}

		case e := <-b.send:
			h.broadcast(e)

		case c := <-b.changes:
			h.broadcast(Event{Type: c.Entity + "." + c.Kind, Data: c})
			if now := b.now(); now.Sub(h.lastCatalog) >= b.throttle {
				h.lastCatalog = now
				h.broadcast(Event{Type: TypeCatalogUpdated, Data: struct{}{}})
			}

		case resp := <-b.count:
			resp <- len(h.clients)
		}
	}
}

// Close stops the loop and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.stopped
}

// Subscribe registers a client. After Close the returned channel is
// already closed.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.count <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.send <- event:
	case <-b.stopped:
	}
}

// PublishCatalogEvent announces a change to one record. Unknown kinds are
// dropped.
func (b *Broker) PublishCatalogEvent(entity, kind, id string) {
	if b.closed.Load() || !validKind(kind) {
		return
	}
	select {
	case b.changes <- Change{Entity: entity, Kind: kind, ID: id}:
	case <-b.stopped:
	}
}

// PublishObjectMissing reports that the object at key is gone while the
// listed records still reference it.
func (b *Broker) PublishObjectMissing(key string, assetIDs, imageIDs []string) {
	if assetIDs == nil {
		assetIDs = []string{}
	}
	if imageIDs == nil {
		imageIDs = []string{}
	}
	b.Publish(Event{Type: TypeObjectMissing, Data: ObjectMissing{Key: key, Assets: assetIDs, Images: imageIDs}})
}

// ServeHTTP streams events to one client (GET /api/events) until the
// request ends or the broker closes.
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
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Comment lines keep idle connections open through proxies.
	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
		}
		flusher.Flush()
	}
}
