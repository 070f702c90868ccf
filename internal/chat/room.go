package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// room is the unit of mutual exclusion: every mutation of members, typing
// state, the message log, readBy sets and reactions happens under mu, so all
// members observe events for one room in the same order. Rooms never take
// each other's locks.
type room struct {
	mu     sync.Mutex
	name   string
	closed bool // set when removed from the table; joiners must re-create

	order   []string            // member identities, insertion order
	members map[string]struct{}

	typing    map[string]*time.Timer
	messages  map[string]*domain.Message
	reactions map[string][]domain.Reaction // messageID -> appended reactions
}

func newRoom(name string) *room {
	return &room{
		name:      name,
		members:   make(map[string]struct{}),
		typing:    make(map[string]*time.Timer),
		messages:  make(map[string]*domain.Message),
		reactions: make(map[string][]domain.Reaction),
	}
}

// addMember inserts identity preserving insertion order. Reports whether the
// identity was newly added.
func (r *room) addMember(identity string) bool {
	if _, ok := r.members[identity]; ok {
		return false
	}
	r.members[identity] = struct{}{}
	r.order = append(r.order, identity)
	return true
}

// removeMember drops identity and its typing state. Reports whether it was a
// member.
func (r *room) removeMember(identity string) bool {
	if _, ok := r.members[identity]; !ok {
		return false
	}
	delete(r.members, identity)
	for i, id := range r.order {
		if id == identity {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.clearTyping(identity)
	return true
}

func (r *room) isMember(identity string) bool {
	_, ok := r.members[identity]
	return ok
}

func (r *room) empty() bool { return len(r.members) == 0 }

func (r *room) setTyping(identity string, expire *time.Timer) {
	r.clearTyping(identity)
	r.typing[identity] = expire
}

func (r *room) clearTyping(identity string) bool {
	t, ok := r.typing[identity]
	if !ok {
		return false
	}
	if t != nil {
		t.Stop()
	}
	delete(r.typing, identity)
	return true
}

// typingSnapshot returns the current typing set, sorted for a stable wire
// representation.
func (r *room) typingSnapshot() []string {
	out := make([]string, 0, len(r.typing))
	for id := range r.typing {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *room) appendMessage(m *domain.Message) {
	r.messages[m.ID] = m
}

func (r *room) message(id string) (*domain.Message, bool) {
	m, ok := r.messages[id]
	return m, ok
}
