package chat

import (
	"sync"

	"github.com/google/uuid"
)

// Conn is one live client connection. Send must not block on the network:
// implementations enqueue to an outbound buffer and fail fast when the
// connection is gone or the buffer is full.
type Conn interface {
	Send(ev Event) error
	Close() error
}

type connection struct {
	id       string
	identity string
	conn     Conn
}

// Registry maps authenticated identities to their live connections. An
// identity may hold several connections at once (multi-tab).
type Registry struct {
	mu         sync.RWMutex
	conns      map[string]*connection
	byIdentity map[string][]*connection // registration order, oldest first
}

func NewRegistry() *Registry {
	return &Registry{
		conns:      make(map[string]*connection),
		byIdentity: make(map[string][]*connection),
	}
}

// Register adds conn under identity and returns its handle id.
func (r *Registry) Register(identity string, conn Conn) string {
	c := &connection{
		id:       uuid.NewString(),
		identity: identity,
		conn:     conn,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[c.id] = c
	r.byIdentity[identity] = append(r.byIdentity[identity], c)
	return c.id
}

// Unregister removes the connection and reports the identity it belonged to
// and how many of that identity's connections remain. Unknown handles are a
// no-op; disconnect cleanup must be idempotent.
func (r *Registry) Unregister(handleID string) (identity string, remaining int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, found := r.conns[handleID]
	if !found {
		return "", 0, false
	}
	delete(r.conns, handleID)

	list := r.byIdentity[c.identity]
	for i, cc := range list {
		if cc.id == handleID {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.byIdentity, c.identity)
	} else {
		r.byIdentity[c.identity] = list
	}

	return c.identity, len(list), true
}

// Lookup returns all live connections of identity, oldest first.
func (r *Registry) Lookup(identity string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byIdentity[identity]
	if len(list) == 0 {
		return nil
	}
	out := make([]Conn, 0, len(list))
	for _, c := range list {
		out = append(out, c.conn)
	}
	return out
}

// Representative returns the handle id of the most recently registered
// connection of identity, used as the presence-list connection reference.
func (r *Registry) Representative(identity string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byIdentity[identity]
	if len(list) == 0 {
		return "", false
	}
	return list[len(list)-1].id, true
}

func (r *Registry) Identity(handleID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[handleID]
	if !ok {
		return "", false
	}
	return c.identity, true
}
