package chat

import "sync"

// Rooms maps room identifiers to the set of connections currently
// joined. Rooms are created implicitly on first join and linger empty
// when everyone leaves. A connection may belong to any number of rooms.
//
// This table is the logical mirror the router consults when composing
// notifications; actual delivery uses the transport's own room sets.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[Conn]struct{}
}

// NewRooms creates an empty membership table.
func NewRooms() *Rooms {
	return &Rooms{members: make(map[string]map[Conn]struct{})}
}

// Join adds c to room, creating the room entry if needed. Joining a room
// twice has no additional effect.
func (r *Rooms) Join(room string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.members[room]
	if !ok {
		set = make(map[Conn]struct{})
		r.members[room] = set
	}
	set[c] = struct{}{}
}

// Members returns the connections joined to room. Unknown rooms yield an
// empty slice, never an error.
func (r *Rooms) Members(room string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.members[room]
	out := make([]Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Contains reports whether c is currently joined to room.
func (r *Rooms) Contains(room string, c Conn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.members[room][c]
	return ok
}

// LeaveAll removes c from every room it belongs to. Called on disconnect
// so rooms never accumulate stale handles.
func (r *Rooms) LeaveAll(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, set := range r.members {
		delete(set, c)
	}
}
