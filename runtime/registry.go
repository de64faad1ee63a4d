// Package runtime holds the live-connection state and the dispatch
// pipeline. It orchestrates delivery without containing domain rules.
package runtime

import (
	"sync"

	"doclink/contract"
	"doclink/domain"
)

type Set map[string]struct{}

// Registry is the process-wide presence and room-membership directory.
// Everything here is ephemeral: initialized empty at startup, discarded at
// shutdown, nothing flushed.
//
// Presence is last-connected-wins: a second connection for the same
// identity replaces the entry without closing the first handle. The first
// handle keeps receiving room events until it disconnects, at which point
// the stale-deregistration guard keeps it from clobbering the newer entry.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]contract.EventSink // handle id -> delivery sink
	handles     map[string]*domain.Handle     // handle id -> handle
	presence    map[string]string             // identity  -> current handle id
	roomMembers map[domain.RoomID]Set         // room      -> handle ids
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]contract.EventSink),
		handles:     make(map[string]*domain.Handle),
		presence:    make(map[string]string),
		roomMembers: make(map[domain.RoomID]Set),
	}
}

// Register binds a handle and its sink, unconditionally overwriting any
// prior presence entry for the identity. It never fails.
func (r *Registry) Register(h *domain.Handle, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[h.ID] = sink
	r.handles[h.ID] = h
	r.presence[h.Identity] = h.ID
}

// Deregister removes the handle's session and room memberships, and clears
// the presence entry only if it still belongs to this handle. The return
// value tells the lifecycle layer whether an offline broadcast is due: a
// stale handle going away must not announce an identity as offline while a
// newer connection is live.
func (r *Registry) Deregister(h *domain.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, h.ID)
	delete(r.handles, h.ID)

	for roomID, members := range r.roomMembers {
		delete(members, h.ID)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}

	if current, ok := r.presence[h.Identity]; ok && current == h.ID {
		delete(r.presence, h.Identity)
		return true
	}
	return false
}

func (r *Registry) IsOnline(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.presence[identity]
	return ok
}

func (r *Registry) HandleFor(identity string) (*domain.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.presence[identity]
	if !ok {
		return nil, false
	}
	h, ok := r.handles[id]
	return h, ok
}

// Join subscribes a handle to a room. Idempotent: joining twice has no
// additional effect. Joining with an unknown handle is a no-op so a race
// with disconnection cannot resurrect membership.
func (r *Registry) Join(h *domain.Handle, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[h.ID]; !ok {
		return
	}
	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][h.ID] = struct{}{}
}

// Leave is the idempotent inverse of Join; leaving a room never joined is
// a no-op. Empty rooms are removed entirely so the map does not leak.
func (r *Registry) Leave(h *domain.Handle, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, h.ID)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
}

func (r *Registry) InRoom(handleID string, roomID domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.roomMembers[roomID]
	if !ok {
		return false
	}
	_, ok = members[handleID]
	return ok
}

// SinksForRoom resolves the room's current members into delivery sinks.
// Callers must invoke this at delivery time, not before a suspension point:
// membership read earlier may be stale by the time delivery happens.
func (r *Registry) SinksForRoom(roomID domain.RoomID) []contract.EventSink {
	return r.SinksForRoomExcept(roomID, "")
}

// SinksForRoomExcept is SinksForRoom minus one handle, used by the typing
// relay which never echoes to the signaling connection.
func (r *Registry) SinksForRoomExcept(roomID domain.RoomID, handleID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for id := range members {
		if id == handleID {
			continue
		}
		if sink, exists := r.sessions[id]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// SinksExcept returns every live sink but one, used for presence broadcasts.
func (r *Registry) SinksExcept(handleID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for id, sink := range r.sessions {
		if id == handleID {
			continue
		}
		sinks = append(sinks, sink)
	}
	return sinks
}
