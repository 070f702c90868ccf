package chat

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConn struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

var errConnClosed = errors.New("connection closed")

func (c *testConn) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *testConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *testConn) recorded() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *testConn) ofType(t string) []Event {
	var out []Event
	for _, ev := range c.recorded() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func TestRegistry_MultipleConnectionsPerIdentity(t *testing.T) {
	reg := NewRegistry()

	c1, c2 := &testConn{}, &testConn{}
	h1 := reg.Register("alice", c1)
	h2 := reg.Register("alice", c2)
	require.NotEqual(t, h1, h2)

	require.Len(t, reg.Lookup("alice"), 2)

	// Representative is the most recently registered connection.
	rep, ok := reg.Representative("alice")
	require.True(t, ok)
	require.Equal(t, h2, rep)

	identity, remaining, ok := reg.Unregister(h2)
	require.True(t, ok)
	require.Equal(t, "alice", identity)
	require.Equal(t, 1, remaining)

	rep, ok = reg.Representative("alice")
	require.True(t, ok)
	require.Equal(t, h1, rep)

	_, remaining, ok = reg.Unregister(h1)
	require.True(t, ok)
	require.Zero(t, remaining)
	require.Empty(t, reg.Lookup("alice"))
}

func TestRegistry_UnregisterUnknownHandleIsNoop(t *testing.T) {
	reg := NewRegistry()
	_, _, ok := reg.Unregister("no-such-handle")
	require.False(t, ok)

	h := reg.Register("bob", &testConn{})
	_, _, ok = reg.Unregister(h)
	require.True(t, ok)

	// A second unregister of the same handle must stay idempotent.
	_, _, ok = reg.Unregister(h)
	require.False(t, ok)
}

func TestRegistry_IdentityByHandle(t *testing.T) {
	reg := NewRegistry()
	h := reg.Register("carol", &testConn{})

	identity, ok := reg.Identity(h)
	require.True(t, ok)
	require.Equal(t, "carol", identity)

	_, ok = reg.Identity("missing")
	require.False(t, ok)
}
