package registry

import "sync"

// Subscriber is one live connection's delivery surface. Deliver must never
// block; it reports false when the subscriber cannot accept the payload.
type Subscriber interface {
	ID() string
	Deliver(payload interface{}) bool
}

// Registry maps room ids to their current subscribers. It is owned by the
// App and shared by sessions and the relay service; all methods are safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[Subscriber]struct{}
}

func New() *Registry {
	return &Registry{
		rooms: make(map[string]map[Subscriber]struct{}),
	}
}

// Join adds the subscriber to a room, creating the room on first join.
// Joining a room twice is a no-op.
func (r *Registry) Join(roomID string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[Subscriber]struct{})
		r.rooms[roomID] = members
	}
	members[sub] = struct{}{}
}

// Broadcast delivers payload to every current member of the room and returns
// the delivery count. An unknown or empty room is a silent no-op. Members
// that refuse delivery are dropped from every room so a dead connection
// cannot accumulate.
func (r *Registry) Broadcast(roomID string, payload interface{}) int {
	// Snapshot under the read lock so joins and leaves interleaved with the
	// delivery loop cannot corrupt iteration.
	r.mu.RLock()
	members := make([]Subscriber, 0, len(r.rooms[roomID]))
	for sub := range r.rooms[roomID] {
		members = append(members, sub)
	}
	r.mu.RUnlock()

	delivered := 0
	var defunct []Subscriber
	for _, sub := range members {
		if sub.Deliver(payload) {
			delivered++
		} else {
			defunct = append(defunct, sub)
		}
	}

	for _, sub := range defunct {
		r.Remove(sub)
	}

	return delivered
}

// Remove drops the subscriber from every room it joined and returns the room
// ids it was removed from. Rooms left empty are pruned.
func (r *Registry) Remove(sub Subscriber) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for roomID, members := range r.rooms {
		if _, ok := members[sub]; !ok {
			continue
		}
		delete(members, sub)
		removed = append(removed, roomID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	return removed
}

// Members returns the subscriber ids currently joined to a room.
func (r *Registry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rooms[roomID]))
	for sub := range r.rooms[roomID] {
		ids = append(ids, sub.ID())
	}
	return ids
}

// Rooms returns the ids of all rooms with at least one subscriber.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rooms))
	for roomID := range r.rooms {
		ids = append(ids, roomID)
	}
	return ids
}
