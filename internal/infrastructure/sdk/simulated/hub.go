package simulated

import (
	"encoding/json"
	"sort"
	"sync"

	"rillcast/internal/core/domain"
)

type member struct {
	id       domain.PeerID
	metadata json.RawMessage
	tracks   []domain.Track
	notify   func()
}

// Hub is an in-process room server shared by simulated SDK instances.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[domain.PeerID]*member
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[domain.PeerID]*member)}
}

func (h *Hub) join(room string, m *member) {
	h.mu.Lock()
	peers, ok := h.rooms[room]
	if !ok {
		peers = make(map[domain.PeerID]*member)
		h.rooms[room] = peers
	}
	peers[m.id] = m
	others := h.othersLocked(room, m.id)
	h.mu.Unlock()

	notifyAll(others)
}

func (h *Hub) leave(room string, id domain.PeerID) {
	h.mu.Lock()
	peers := h.rooms[room]
	delete(peers, id)
	if len(peers) == 0 {
		delete(h.rooms, room)
	}
	others := h.othersLocked(room, id)
	h.mu.Unlock()

	notifyAll(others)
}

func (h *Hub) updateTracks(room string, id domain.PeerID, tracks []domain.Track) {
	h.mu.Lock()
	if m, ok := h.rooms[room][id]; ok {
		m.tracks = append([]domain.Track(nil), tracks...)
	}
	others := h.othersLocked(room, id)
	h.mu.Unlock()

	notifyAll(others)
}

// peers returns everyone in room except self, ordered by id.
func (h *Hub) peers(room string, self domain.PeerID) []domain.RemotePeer {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]domain.RemotePeer, 0, len(h.rooms[room]))
	for id, m := range h.rooms[room] {
		if id == self {
			continue
		}
		out = append(out, domain.RemotePeer{
			ID:       m.id,
			Metadata: append(json.RawMessage(nil), m.metadata...),
			Tracks:   append([]domain.Track(nil), m.tracks...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (h *Hub) othersLocked(room string, self domain.PeerID) []func() {
	var fns []func()
	for id, m := range h.rooms[room] {
		if id != self && m.notify != nil {
			fns = append(fns, m.notify)
		}
	}
	return fns
}

func notifyAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
