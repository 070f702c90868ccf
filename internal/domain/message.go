package domain

import "time"

// Message is a chat message committed to a room's log. ReadBy grows
// monotonically in first-read order and never contains duplicates.
type Message struct {
	ID        string    `json:"messageId" db:"id"`
	Room      string    `json:"room" db:"room"`
	Author    string    `json:"author" db:"author"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	ReadBy    []string  `json:"readBy" db:"-"`
}
