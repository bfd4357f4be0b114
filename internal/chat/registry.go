package chat

import (
	"sync"

	"github.com/samber/lo"
)

// Conn is an opaque connection handle issued by the transport layer. The
// router and stores hold handle values only, never the underlying socket.
type Conn interface {
	ID() string
}

// Registry is the two-way mapping between connection handles and declared
// display names. It is the single source of truth for who is online.
//
// Display names are not unique: when two connections declare the same
// name the name->handle direction is last-writer-wins. Registry is safe
// for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	names map[Conn]string
	conns map[string]Conn
	order []Conn
}

// NewRegistry creates an empty identity registry.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[Conn]string),
		conns: make(map[string]Conn),
	}
}

// Register binds name to c, overwriting any name c previously declared.
// A re-declaring connection keeps its position in the snapshot order.
func (r *Registry) Register(c Conn, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior, known := r.names[c]
	if known && r.conns[prior] == c {
		delete(r.conns, prior)
	}
	if !known {
		r.order = append(r.order, c)
	}
	r.names[c] = name
	r.conns[name] = c
}

// LookupByName resolves a display name to its connection handle. With
// duplicate declarations this returns the most recent declarer.
func (r *Registry) LookupByName(name string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[name]
	return c, ok
}

// NameOf returns the display name c declared, if any.
func (r *Registry) NameOf(c Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.names[c]
	return name, ok
}

// Remove deletes the mapping for c and returns the name it had declared.
// Safe to call for connections that never declared an identity. The
// name->handle entry is only dropped when it still points at c, so a
// later declarer of the same name keeps its mapping.
func (r *Registry) Remove(c Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.names[c]
	if !ok {
		return "", false
	}
	delete(r.names, c)
	if r.conns[name] == c {
		delete(r.conns, name)
	}
	for i, h := range r.order {
		if h == c {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return name, true
}

// Snapshot returns all currently declared names in registration order.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(c Conn, _ int) string {
		return r.names[c]
	})
}
