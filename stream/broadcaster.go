package stream

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/xiaoyuanzhu-com/my-life-db/log"
)

const globalStreamingID = "global"

var logger = log.GetLogger("Stream")

// Sink is the abstract, write-only destination for one connected client:
// an io.Writer plus a Flush hook, which is all an HTTP chunked response
// needs and all the Broadcaster needs to stay testable without one.
type Sink interface {
	io.Writer
	Flush()
}

type client struct {
	sink Sink
	mu   sync.Mutex // serializes writes to a single sink
}

// Broadcaster is a hub keyed by streamingId -> set of clients. Broadcast
// treats the distinguished id "global" as a publish-time wildcard and hands
// it to publishGlobal, which writes to every attached client. AddClient does
// not reserve the id: a client attached under "global" is stored under that
// key and receives global broadcasts like any other client.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[string]map[*client]struct{}
	total   int

	heartbeatInterval time.Duration
	heartbeatStop     chan struct{}
}

// New creates a Broadcaster whose heartbeat fires every interval while at
// least one client is attached.
func New(interval time.Duration) *Broadcaster {
	return &Broadcaster{
		clients:           make(map[string]map[*client]struct{}),
		heartbeatInterval: interval,
	}
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// AddClient registers sink under streamingId, sends the initial "connected"
// handshake, and returns a function the caller invokes (typically on
// request-context cancellation) to detach it. If the handshake write fails
// the client is dropped immediately and the returned remove func is a
// no-op.
func (b *Broadcaster) AddClient(streamingID string, sink Sink) (remove func()) {
	c := &client{sink: sink}

	b.mu.Lock()
	if b.clients[streamingID] == nil {
		b.clients[streamingID] = make(map[*client]struct{})
	}
	b.clients[streamingID][c] = struct{}{}
	b.total++
	if b.total == 1 {
		b.startHeartbeatLocked()
	}
	b.mu.Unlock()

	ok := writeEvent(c, Event{Type: EventConnected, StreamingID: streamingID, Timestamp: nowRFC3339()})
	if !ok {
		b.removeClient(streamingID, c)
		return func() {}
	}

	return func() { b.removeClient(streamingID, c) }
}

func (b *Broadcaster) removeClient(streamingID string, c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.clients[streamingID]
	if !ok {
		return
	}
	if _, exists := set[c]; !exists {
		return
	}
	delete(set, c)
	b.total--
	if len(set) == 0 {
		delete(b.clients, streamingID)
	}
	if b.total == 0 {
		b.stopHeartbeatLocked()
	}
}

// Broadcast delivers event to streamingId's registered clients, or — when
// streamingId is "global" — to every currently-attached client across all
// ids. A streamingId with zero subscribers is a silent no-op.
func (b *Broadcaster) Broadcast(streamingID string, event Event) {
	if streamingID == globalStreamingID {
		b.publishGlobal(event)
		return
	}
	b.publishScoped(streamingID, event)
}

func (b *Broadcaster) publishScoped(streamingID string, event Event) {
	clients := b.snapshot(streamingID)
	b.deliver(streamingID, clients, event)
}

func (b *Broadcaster) publishGlobal(event Event) {
	b.mu.Lock()
	var all []struct {
		id string
		c  *client
	}
	for id, set := range b.clients {
		for c := range set {
			all = append(all, struct {
				id string
				c  *client
			}{id, c})
		}
	}
	b.mu.Unlock()

	for _, entry := range all {
		if !writeEvent(entry.c, event) {
			b.removeClient(entry.id, entry.c)
		}
	}
}

func (b *Broadcaster) snapshot(streamingID string) []*client {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.clients[streamingID]
	if len(set) == 0 {
		return nil
	}
	out := make([]*client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (b *Broadcaster) deliver(streamingID string, clients []*client, event Event) {
	for _, c := range clients {
		if !writeEvent(c, event) {
			b.removeClient(streamingID, c)
		}
	}
}

// CloseSession sends a final "closed" event to every client registered
// under streamingId, then drops them from the hub.
func (b *Broadcaster) CloseSession(streamingID string) {
	clients := b.snapshot(streamingID)
	b.deliver(streamingID, clients, Event{Type: EventClosed, StreamingID: streamingID, Timestamp: nowRFC3339()})

	b.mu.Lock()
	defer b.mu.Unlock()
	b.total -= len(b.clients[streamingID])
	delete(b.clients, streamingID)
	if b.total == 0 {
		b.stopHeartbeatLocked()
	}
}

func writeEvent(c *client, event Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal stream event")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.sink.Write([]byte("data: ")); err != nil {
		return false
	}
	if _, err := c.sink.Write(data); err != nil {
		return false
	}
	if _, err := c.sink.Write([]byte("\n\n")); err != nil {
		return false
	}
	c.sink.Flush()
	return true
}

func writeHeartbeat(c *client) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.sink.Write([]byte(": heartbeat\n\n")); err != nil {
		return false
	}
	c.sink.Flush()
	return true
}

// startHeartbeatLocked must be called with b.mu held.
func (b *Broadcaster) startHeartbeatLocked() {
	b.heartbeatStop = make(chan struct{})
	stop := b.heartbeatStop
	interval := b.heartbeatInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				b.pingAll()
			case <-stop:
				return
			}
		}
	}()
}

// stopHeartbeatLocked must be called with b.mu held.
func (b *Broadcaster) stopHeartbeatLocked() {
	if b.heartbeatStop != nil {
		close(b.heartbeatStop)
		b.heartbeatStop = nil
	}
}

func (b *Broadcaster) pingAll() {
	b.mu.Lock()
	var all []struct {
		id string
		c  *client
	}
	for id, set := range b.clients {
		for c := range set {
			all = append(all, struct {
				id string
				c  *client
			}{id, c})
		}
	}
	b.mu.Unlock()

	for _, entry := range all {
		if !writeHeartbeat(entry.c) {
			b.removeClient(entry.id, entry.c)
		}
	}
}
