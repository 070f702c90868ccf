package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/chat-service/internal/chat"
	"github.com/cwrk-planet/chat-service/internal/domain"
)

// TokenVerifier resolves an access token to the identity it was issued for.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

type Server struct {
	upgrader   websocket.Upgrader
	dispatcher *chat.Dispatcher
	verifier   TokenVerifier

	pingEvery  time.Duration
	writeWait  time.Duration
	readLimit  int64
	sendBuffer int
}

func NewServer(dispatcher *chat.Dispatcher, verifier TokenVerifier) *Server {
	return &Server{
		dispatcher: dispatcher,
		verifier:   verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery:  15 * time.Second,
		writeWait:  5 * time.Second,
		readLimit:  1 << 20,
		sendBuffer: 256,
	}
}

func (s *Server) SetPingInterval(d time.Duration) {
	if d > 0 {
		s.pingEvery = d
	}
}

func (s *Server) SetSendBuffer(n int) {
	if n > 0 {
		s.sendBuffer = n
	}
}

func (s *Server) SetReadLimit(n int64) {
	if n > 0 {
		s.readLimit = n
	}
}

// WS endpoint: GET /ws?access_token=...
//
// The token is checked after the upgrade so a rejected client receives a
// status event it can react to; a plain 401 surfaces as an opaque handshake
// failure in the browser.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if token == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimSpace(h[len("Bearer "):])
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}
	c := newWsConn(conn, s.sendBuffer, s.writeWait)

	identity, err := s.verifier.VerifyToken(token)
	if err != nil {
		slog.Info("ws rejected", "reason", "bad token", "err", err)
		_ = c.writeJSONNow(chat.Event{
			Type:    chat.EventStatus,
			Payload: chat.StatusPayload{Status: chat.StatusUnauthorized},
		})
		_ = c.Close()
		return
	}

	handleID := s.dispatcher.Connect(identity, c)
	slog.Info("ws connected", "identity", identity, "conn", handleID)

	go c.writeLoop(s.pingEvery)
	s.readLoop(c, identity)

	s.dispatcher.Disconnect(handleID)
	_ = c.Close()
	slog.Info("ws disconnected", "identity", identity, "conn", handleID)
}

func (s *Server) readLoop(c *wsConn, identity string) {
	c.conn.SetReadLimit(s.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var ev inboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("ws malformed frame", "identity", identity, "err", err)
			s.reject(c, statusMalformedEvent)
			continue
		}
		s.handleEvent(c, identity, ev)
	}
}

// handleEvent dispatches one decoded inbound event. Errors never tear the
// connection down: the offending event is dropped and, where it makes
// sense, the sender alone is told via a status event.
func (s *Server) handleEvent(c *wsConn, identity string, ev inboundEvent) {
	switch ev.Type {
	case TypeJoinRoom:
		var p JoinRoomPayload
		if !s.decode(c, identity, ev, &p) {
			return
		}
		if p.Room == "" {
			slog.Warn("ws join_room without room", "identity", identity)
			s.reject(c, statusMalformedEvent)
			return
		}
		// The token is authoritative; the payload identity is legacy.
		if p.Identity != "" && p.Identity != identity {
			slog.Warn("ws identity mismatch ignored",
				"identity", identity, "claimed", p.Identity)
		}
		s.dispatcher.Join(p.Room, identity)

	case TypeSendMessage:
		var p SendMessagePayload
		if !s.decode(c, identity, ev, &p) {
			return
		}
		if _, err := s.dispatcher.SendMessage(p.Room, identity, p.Body, p.ClientMessageID); err != nil {
			s.dropped(c, identity, ev.Type, err)
		}

	case TypeTyping:
		var p TypingPayload
		if !s.decode(c, identity, ev, &p) {
			return
		}
		if err := s.dispatcher.Typing(p.Room, identity); err != nil {
			s.dropped(c, identity, ev.Type, err)
		}

	case TypeStopTyping:
		var p TypingPayload
		if !s.decode(c, identity, ev, &p) {
			return
		}
		if err := s.dispatcher.StopTyping(p.Room, identity); err != nil {
			s.dropped(c, identity, ev.Type, err)
		}

	case TypeReactMsg:
		var p ReactPayload
		if !s.decode(c, identity, ev, &p) {
			return
		}
		if _, err := s.dispatcher.React(p.Room, p.MessageID, p.Emoji, identity); err != nil {
			s.dropped(c, identity, ev.Type, err)
		}

	case TypeMessageRead:
		var p MessageReadPayload
		if !s.decode(c, identity, ev, &p) {
			return
		}
		if err := s.dispatcher.MarkRead(p.Room, p.MessageID, identity); err != nil {
			s.dropped(c, identity, ev.Type, err)
		}

	default:
		slog.Warn("ws unknown event dropped", "identity", identity, "type", ev.Type)
	}
}

func (s *Server) decode(c *wsConn, identity string, ev inboundEvent, dst any) bool {
	if err := json.Unmarshal(ev.Payload, dst); err != nil {
		slog.Warn("ws malformed payload", "identity", identity, "type", ev.Type, "err", err)
		s.reject(c, statusMalformedEvent)
		return false
	}
	return true
}

// dropped logs a rejected event and tells the sender only.
func (s *Server) dropped(c *wsConn, identity, evType string, err error) {
	slog.Warn("ws event dropped", "identity", identity, "type", evType, "err", err)

	status := statusRejected
	switch {
	case errors.Is(err, domain.ErrNotMember):
		status = statusNotMember
	case errors.Is(err, domain.ErrUnknownMessage):
		status = statusUnknownMessage
	}
	s.reject(c, status)
}

func (s *Server) reject(c *wsConn, status string) {
	_ = c.Send(chat.Event{Type: chat.EventStatus, Payload: chat.StatusPayload{Status: status}})
}
