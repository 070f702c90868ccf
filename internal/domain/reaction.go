package domain

import "time"

// Reaction is appended as-is; duplicate (message, reactor, emoji) triples
// are allowed and rebroadcast each time.
type Reaction struct {
	ID        string    `json:"-" db:"id"`
	MessageID string    `json:"messageId" db:"message_id"`
	Room      string    `json:"room" db:"room"`
	Emoji     string    `json:"emoji" db:"emoji"`
	Reactor   string    `json:"reactor" db:"reactor"`
	CreatedAt time.Time `json:"-" db:"created_at"`
}
