package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"meno/internal/log"
	"meno/internal/metrics"
)

type Kind string

const (
	KindChat Kind = "chat"
	KindUser Kind = "user"
)

// Key names a broadcast channel. Chat 7 and user 7 are different keys.
type Key struct {
	Kind Kind
	ID   int
}

func ChatKey(chatID int) Key { return Key{Kind: KindChat, ID: chatID} }
func UserKey(userID int) Key { return Key{Kind: KindUser, ID: userID} }

func (k Key) String() string { return fmt.Sprintf("%s:%d", k.Kind, k.ID) }

// Sink is the write side of a live connection.
type Sink interface {
	WriteMessage(data []byte) error
	Close() error
}

type channel struct {
	// sendMu orders sends on this key. conns is guarded by Hub.mu.
	sendMu sync.Mutex
	conns  map[Sink]struct{}
}

// Hub maps channel keys to the connections registered under them.
type Hub struct {
	mu       sync.Mutex
	channels map[Key]*channel
	log      zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		channels: make(map[Key]*channel),
		log:      log.WithComponent("hub"),
	}
}

// Register adds conn under key. Registering the same conn twice is a no-op.
func (h *Hub) Register(key Key, conn Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := h.channels[key]
	if ch == nil {
		ch = &channel{conns: make(map[Sink]struct{})}
		h.channels[key] = ch
	}
	if _, ok := ch.conns[conn]; ok {
		return
	}
	ch.conns[conn] = struct{}{}
	metrics.WsConnections.WithLabelValues(string(key.Kind)).Inc()
	h.log.Debug().Stringer("key", key).Int("conns", len(ch.conns)).Msg("connection registered")
}

// Unregister removes conn from key and closes it. The key entry is dropped
// once its last connection is gone. Absent keys and connections are ignored.
func (h *Hub) Unregister(key Key, conn Sink) {
	if h.remove(key, conn) {
		h.log.Debug().Stringer("key", key).Msg("connection unregistered")
	}
	_ = conn.Close()
}

func (h *Hub) remove(key Key, conn Sink) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.channels[key]
	if !ok {
		return false
	}
	if _, ok := ch.conns[conn]; !ok {
		return false
	}
	delete(ch.conns, conn)
	if len(ch.conns) == 0 {
		delete(h.channels, key)
	}
	metrics.WsConnections.WithLabelValues(string(key.Kind)).Dec()
	return true
}

// CloseAll unregisters and closes every connection on every key.
func (h *Hub) CloseAll() {
	type entry struct {
		key  Key
		conn Sink
	}
	h.mu.Lock()
	var all []entry
	for k, ch := range h.channels {
		for c := range ch.conns {
			all = append(all, entry{k, c})
		}
	}
	h.mu.Unlock()
	for _, e := range all {
		h.Unregister(e.key, e.conn)
	}
}

// Count reports how many connections are registered under key.
func (h *Hub) Count(key Key) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.channels[key]; ok {
		return len(ch.conns)
	}
	return 0
}

// Send marshals payload once and writes it to every connection under key.
// A connection whose write fails is unregistered; the rest still receive
// the payload. Returns the number of successful deliveries.
func (h *Hub) Send(key Key, payload any) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal %s payload: %w", key, err)
	}

	h.mu.Lock()
	ch := h.channels[key]
	h.mu.Unlock()
	if ch == nil {
		return 0, nil
	}

	ch.sendMu.Lock()
	defer ch.sendMu.Unlock()

	h.mu.Lock()
	conns := make([]Sink, 0, len(ch.conns))
	for c := range ch.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	metrics.WsBroadcastsTotal.WithLabelValues(string(key.Kind)).Inc()
	delivered := 0
	for _, c := range conns {
		if err := c.WriteMessage(data); err != nil {
			h.log.Warn().Err(err).Stringer("key", key).Msg("delivery failed, evicting connection")
			metrics.WsEvictionsTotal.WithLabelValues(string(key.Kind)).Inc()
			h.Unregister(key, c)
			continue
		}
		delivered++
	}
	return delivered, nil
}
