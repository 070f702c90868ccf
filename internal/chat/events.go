package chat

import "github.com/cwrk-planet/chat-service/internal/domain"

// Server→client event types.
const (
	EventPresenceChanged    = "presence_changed"
	EventMessageReceived    = "message_received"
	EventTypingChanged      = "typing_changed"
	EventReactionAdded      = "reaction_added"
	EventReadReceiptUpdated = "read_receipt_updated"
	EventStatus             = "status"
)

const StatusUnauthorized = "unauthorized"

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type PresencePayload struct {
	Room     string                `json:"room"`
	Action   domain.PresenceAction `json:"action"`
	Identity string                `json:"identity"`
	Members  []domain.Member       `json:"members"`
}

type TypingPayload struct {
	Room   string   `json:"room"`
	Typing []string `json:"typingIdentities"`
}

type ReadReceiptPayload struct {
	MessageID string `json:"messageId"`
	Reader    string `json:"reader"`
}

type StatusPayload struct {
	Status string `json:"status"`
}
