package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// Store persists committed messages and reactions. Calls are fire-and-forget
// and never block or fail live delivery.
type Store interface {
	SaveMessage(ctx context.Context, m domain.Message) error
	SaveReaction(ctx context.Context, r domain.Reaction) error
}

// Dispatcher owns all mutable chat state: the room table, per-room typing
// sets, message logs, readBy sets and reactions. Each room carries its own
// lock, so operations on different rooms never block each other; the
// dispatcher-level lock only guards the room table and the identity→rooms
// index and is held for map access only.
type Dispatcher struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	joined map[string]map[string]struct{} // identity -> rooms it is a member of

	registry *Registry
	store    Store
	log      *slog.Logger

	maxBody    int
	typingTTL  time.Duration
	persistTTL time.Duration
}

func NewDispatcher(registry *Registry, store Store, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		rooms:      make(map[string]*room),
		joined:     make(map[string]map[string]struct{}),
		registry:   registry,
		store:      store,
		log:        log,
		maxBody:    4000,
		typingTTL:  10 * time.Second,
		persistTTL: 5 * time.Second,
	}
}

func (d *Dispatcher) SetTypingTTL(ttl time.Duration) {
	if ttl > 0 {
		d.typingTTL = ttl
	}
}

func (d *Dispatcher) SetMaxBody(n int) {
	if n > 0 {
		d.maxBody = n
	}
}

// Connect registers an authenticated connection and returns its handle id.
func (d *Dispatcher) Connect(identity string, conn Conn) string {
	return d.registry.Register(identity, conn)
}

// Disconnect unregisters the connection. When it was the identity's last
// live connection, the identity leaves every room it was a member of, with a
// presence broadcast per room. Safe to call more than once per handle.
func (d *Dispatcher) Disconnect(handleID string) {
	identity, remaining, ok := d.registry.Unregister(handleID)
	if !ok || remaining > 0 {
		return
	}

	d.mu.RLock()
	roomNames := lo.Keys(d.joined[identity])
	d.mu.RUnlock()

	for _, name := range roomNames {
		d.leave(name, identity)
	}
}

// Join adds identity to the room, creating it on first join. Rejoining is a
// no-op on the member set but still broadcasts presence, matching the
// client's expectation of a fresh member list on every join. Returns the
// member list as broadcast.
func (d *Dispatcher) Join(roomName, identity string) []domain.Member {
	var members []domain.Member
	for {
		rm := d.getOrCreateRoom(roomName)

		rm.mu.Lock()
		if rm.closed {
			rm.mu.Unlock()
			continue // lost a race with empty-room removal, re-create
		}
		rm.addMember(identity)
		members = d.membersLocked(rm)
		d.broadcastLocked(rm, "", Event{
			Type: EventPresenceChanged,
			Payload: PresencePayload{
				Room:     roomName,
				Action:   domain.PresenceJoined,
				Identity: identity,
				Members:  members,
			},
		})
		rm.mu.Unlock()
		break
	}

	d.mu.Lock()
	set := d.joined[identity]
	if set == nil {
		set = make(map[string]struct{})
		d.joined[identity] = set
	}
	set[roomName] = struct{}{}
	d.mu.Unlock()

	return members
}

// leave removes identity from the room and broadcasts the new member list to
// whoever remains. Empty rooms are removed from the table immediately.
func (d *Dispatcher) leave(roomName, identity string) {
	rm := d.lookupRoom(roomName)
	if rm == nil {
		return
	}

	rm.mu.Lock()
	if !rm.removeMember(identity) {
		rm.mu.Unlock()
		return
	}
	empty := rm.empty()
	if !empty {
		d.broadcastLocked(rm, "", Event{
			Type: EventPresenceChanged,
			Payload: PresencePayload{
				Room:     roomName,
				Action:   domain.PresenceLeft,
				Identity: identity,
				Members:  d.membersLocked(rm),
			},
		})
	}
	rm.mu.Unlock()

	d.mu.Lock()
	if set := d.joined[identity]; set != nil {
		delete(set, roomName)
		if len(set) == 0 {
			delete(d.joined, identity)
		}
	}
	if empty {
		if cur, ok := d.rooms[roomName]; ok && cur == rm {
			cur.mu.Lock()
			if cur.empty() {
				cur.closed = true
				delete(d.rooms, roomName)
			}
			cur.mu.Unlock()
		}
	}
	d.mu.Unlock()
}

// SendMessage validates, commits and fans out a chat message. The client's
// message id is honored when it has not been seen in this room yet;
// otherwise the server assigns a fresh uuid. Every member connection
// receives the message, including the sender's other tabs.
func (d *Dispatcher) SendMessage(roomName, author, body, clientMessageID string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.ErrEmptyBody
	}
	if len(body) > d.maxBody {
		return nil, domain.ErrBodyTooLong
	}

	rm := d.lookupRoom(roomName)
	if rm == nil {
		return nil, domain.ErrNotMember
	}

	rm.mu.Lock()
	if rm.closed || !rm.isMember(author) {
		rm.mu.Unlock()
		return nil, domain.ErrNotMember
	}

	id := clientMessageID
	if id == "" {
		id = uuid.NewString()
	} else if _, seen := rm.message(id); seen {
		id = uuid.NewString()
	}

	msg := &domain.Message{
		ID:        id,
		Room:      roomName,
		Author:    author,
		Body:      body,
		CreatedAt: time.Now().UTC(),
		ReadBy:    []string{},
	}
	rm.appendMessage(msg)

	out := *msg // broadcast a snapshot; readBy mutates later
	d.broadcastLocked(rm, "", Event{Type: EventMessageReceived, Payload: out})
	rm.mu.Unlock()

	d.persistAsync("message", func(ctx context.Context) error {
		return d.store.SaveMessage(ctx, out)
	})

	return &out, nil
}

// Typing marks identity as typing in the room and broadcasts the typing set
// to everyone else. The mark expires on its own after the typing TTL so a
// vanished client cannot stay "typing" forever.
func (d *Dispatcher) Typing(roomName, identity string) error {
	rm := d.lookupRoom(roomName)
	if rm == nil {
		return domain.ErrNotMember
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed || !rm.isMember(identity) {
		return domain.ErrNotMember
	}

	rm.setTyping(identity, time.AfterFunc(d.typingTTL, func() {
		d.expireTyping(roomName, identity)
	}))
	d.broadcastLocked(rm, identity, Event{
		Type:    EventTypingChanged,
		Payload: TypingPayload{Room: roomName, Typing: rm.typingSnapshot()},
	})
	return nil
}

func (d *Dispatcher) StopTyping(roomName, identity string) error {
	rm := d.lookupRoom(roomName)
	if rm == nil {
		return domain.ErrNotMember
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed || !rm.isMember(identity) {
		return domain.ErrNotMember
	}

	if rm.clearTyping(identity) {
		d.broadcastLocked(rm, identity, Event{
			Type:    EventTypingChanged,
			Payload: TypingPayload{Room: roomName, Typing: rm.typingSnapshot()},
		})
	}
	return nil
}

func (d *Dispatcher) expireTyping(roomName, identity string) {
	rm := d.lookupRoom(roomName)
	if rm == nil {
		return
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if !rm.clearTyping(identity) {
		return
	}
	// Server-initiated expiry: nobody triggered it, so nobody is excluded.
	d.broadcastLocked(rm, "", Event{
		Type:    EventTypingChanged,
		Payload: TypingPayload{Room: roomName, Typing: rm.typingSnapshot()},
	})
}

// React appends a reaction to a known message and broadcasts it to all
// members, the reactor included. Duplicates are not deduplicated: the
// reference client renders every reaction event it receives.
func (d *Dispatcher) React(roomName, messageID, emoji, reactor string) (*domain.Reaction, error) {
	rm := d.lookupRoom(roomName)
	if rm == nil {
		return nil, domain.ErrNotMember
	}

	rm.mu.Lock()
	if rm.closed || !rm.isMember(reactor) {
		rm.mu.Unlock()
		return nil, domain.ErrNotMember
	}
	if _, ok := rm.message(messageID); !ok {
		rm.mu.Unlock()
		return nil, domain.ErrUnknownMessage
	}

	reaction := domain.Reaction{
		ID:        uuid.NewString(),
		MessageID: messageID,
		Room:      roomName,
		Emoji:     emoji,
		Reactor:   reactor,
		CreatedAt: time.Now().UTC(),
	}
	rm.reactions[messageID] = append(rm.reactions[messageID], reaction)
	d.broadcastLocked(rm, "", Event{Type: EventReactionAdded, Payload: reaction})
	rm.mu.Unlock()

	d.persistAsync("reaction", func(ctx context.Context) error {
		return d.store.SaveReaction(ctx, reaction)
	})

	return &reaction, nil
}

// MarkRead records that reader has seen the message. Re-reading is a silent
// no-op; the first read is broadcast to everyone except the reader.
func (d *Dispatcher) MarkRead(roomName, messageID, reader string) error {
	rm := d.lookupRoom(roomName)
	if rm == nil {
		return domain.ErrNotMember
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed || !rm.isMember(reader) {
		return domain.ErrNotMember
	}
	msg, ok := rm.message(messageID)
	if !ok {
		return domain.ErrUnknownMessage
	}

	if lo.Contains(msg.ReadBy, reader) {
		return nil
	}
	msg.ReadBy = append(msg.ReadBy, reader)

	d.broadcastLocked(rm, reader, Event{
		Type:    EventReadReceiptUpdated,
		Payload: ReadReceiptPayload{MessageID: messageID, Reader: reader},
	})
	return nil
}

// Members returns the room's presence snapshot in join order.
func (d *Dispatcher) Members(roomName string) ([]domain.Member, error) {
	rm := d.lookupRoom(roomName)
	if rm == nil {
		return nil, domain.ErrRoomNotFound
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed {
		return nil, domain.ErrRoomNotFound
	}
	return d.membersLocked(rm), nil
}

// --- internals ---

func (d *Dispatcher) lookupRoom(name string) *room {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rooms[name]
}

func (d *Dispatcher) getOrCreateRoom(name string) *room {
	d.mu.Lock()
	defer d.mu.Unlock()
	rm, ok := d.rooms[name]
	if !ok {
		rm = newRoom(name)
		d.rooms[name] = rm
	}
	return rm
}

// membersLocked builds the presence list; caller holds rm.mu.
func (d *Dispatcher) membersLocked(rm *room) []domain.Member {
	return lo.Map(rm.order, func(identity string, _ int) domain.Member {
		connID, _ := d.registry.Representative(identity)
		return domain.Member{Identity: identity, ConnID: connID}
	})
}

// broadcastLocked fans ev out to every connection of every member, skipping
// the except identity. Send errors mean a dying connection and are
// swallowed; its own read loop handles the cleanup. Caller holds rm.mu, and
// Conn.Send only enqueues, so the critical section stays fast and the
// enqueue order gives all members the same per-room event order.
func (d *Dispatcher) broadcastLocked(rm *room, except string, ev Event) {
	for _, identity := range rm.order {
		if identity == except {
			continue
		}
		for _, c := range d.registry.Lookup(identity) {
			if err := c.Send(ev); err != nil {
				d.log.Debug("drop event for dead connection",
					"room", rm.name, "identity", identity, "event", ev.Type, "err", err)
			}
		}
	}
}

func (d *Dispatcher) persistAsync(what string, fn func(ctx context.Context) error) {
	if d.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.persistTTL)
		defer cancel()
		if err := fn(ctx); err != nil {
			d.log.Warn("persist failed", "what", what, "err", err)
		}
	}()
}
