package http

import (
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MembersResponse struct {
	Room    string          `json:"room"`
	Members []domain.Member `json:"members"`
}

type MessageItem struct {
	MessageID string    `json:"messageId"`
	Room      string    `json:"room"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type HistoryResponse struct {
	Items      []MessageItem `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type ReactionItem struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	Reactor   string `json:"reactor"`
}

type ReactionsResponse struct {
	Items []ReactionItem `json:"items"`
}
