package ws

import "encoding/json"

// Client→server event types.
const (
	TypeJoinRoom    = "join_room"
	TypeSendMessage = "send_message"
	TypeTyping      = "typing"
	TypeStopTyping  = "stop_typing"
	TypeReactMsg    = "react_message"
	TypeMessageRead = "message_read"
)

// inboundEvent defers payload decoding until the type is known.
type inboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type JoinRoomPayload struct {
	Room     string `json:"room"`
	Identity string `json:"identity"`
}

type SendMessagePayload struct {
	Room            string `json:"room"`
	Body            string `json:"body"`
	ClientMessageID string `json:"clientMessageId,omitempty"`
}

type TypingPayload struct {
	Room     string `json:"room"`
	Identity string `json:"identity"`
}

type ReactPayload struct {
	Room      string `json:"room"`
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	Identity  string `json:"identity"`
}

type MessageReadPayload struct {
	Room      string `json:"room"`
	MessageID string `json:"messageId"`
	Identity  string `json:"identity"`
}

// Statuses echoed to the offending connection only.
const (
	statusNotMember      = "not_member"
	statusUnknownMessage = "unknown_message"
	statusMalformedEvent = "malformed_event"
	statusRejected       = "rejected"
)
