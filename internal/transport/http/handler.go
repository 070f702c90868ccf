package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/chat-service/internal/chat"
	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/service"
)

type Handler struct {
	dispatcher *chat.Dispatcher
	historySvc *service.HistoryService // nil when persistence is disabled
}

func NewHandler(dispatcher *chat.Dispatcher, historySvc *service.HistoryService) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		historySvc: historySvc,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /rooms/{room}/members
func (h *Handler) GetMembers(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")

	members, err := h.dispatcher.Members(room)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		slog.Error("handler.GetMembers:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, MembersResponse{Room: room, Members: members})
}

// GET /rooms/{room}/messages?limit=&cursor=
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.historySvc == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "history disabled"})
		return
	}
	room := chi.URLParam(r, "room")

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	cursor := r.URL.Query().Get("cursor")

	items, next, err := h.historySvc.History(r.Context(), room, cursor, limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.GetHistory:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := HistoryResponse{Items: make([]MessageItem, 0, len(items)), NextCursor: next}
	for _, m := range items {
		resp.Items = append(resp.Items, MessageItem{
			MessageID: m.ID,
			Room:      m.Room,
			Author:    m.Author,
			Body:      m.Body,
			CreatedAt: m.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /messages/{id}/reactions
func (h *Handler) GetReactions(w http.ResponseWriter, r *http.Request) {
	if h.historySvc == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "history disabled"})
		return
	}
	messageID := chi.URLParam(r, "id")

	items, err := h.historySvc.Reactions(r.Context(), messageID)
	if err != nil {
		slog.Error("handler.GetReactions:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := ReactionsResponse{Items: make([]ReactionItem, 0, len(items))}
	for _, rc := range items {
		resp.Items = append(resp.Items, ReactionItem{
			MessageID: rc.MessageID,
			Emoji:     rc.Emoji,
			Reactor:   rc.Reactor,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
