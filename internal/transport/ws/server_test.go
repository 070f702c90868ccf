package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/chat-service/internal/chat"
)

type staticVerifier map[string]string

func (v staticVerifier) VerifyToken(token string) (string, error) {
	identity, ok := v[token]
	if !ok {
		return "", errors.New("bad token")
	}
	return identity, nil
}

type receivedEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dispatcher := chat.NewDispatcher(chat.NewRegistry(), nil, nil)
	verifier := staticVerifier{"t1": "U1", "t2": "U2"}
	srv := NewServer(dispatcher, verifier)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.HandleWS)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// waitFor reads frames until one of the wanted type arrives.
func waitFor(t *testing.T, conn *websocket.Conn, evType string) receivedEvent {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var ev receivedEvent
		require.NoError(t, conn.ReadJSON(&ev), "waiting for %s", evType)
		if ev.Type == evType {
			return ev
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, evType string, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": evType, "payload": payload}))
}

func TestHandleWS_UnauthorizedStatusThenClose(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts, "nope")

	ev := waitFor(t, conn, chat.EventStatus)
	var p chat.StatusPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	require.Equal(t, chat.StatusUnauthorized, p.Status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "server must close after the status event")
}

func TestHandleWS_JoinMessageReadReceiptFlow(t *testing.T) {
	ts := newTestServer(t)

	u1 := dial(t, ts, "t1")
	send(t, u1, TypeJoinRoom, JoinRoomPayload{Room: "r1", Identity: "U1"})
	ev := waitFor(t, u1, chat.EventPresenceChanged)
	var p1 chat.PresencePayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p1))
	require.Equal(t, "U1", p1.Identity)
	require.Len(t, p1.Members, 1)

	u2 := dial(t, ts, "t2")
	send(t, u2, TypeJoinRoom, JoinRoomPayload{Room: "r1", Identity: "U2"})
	ev = waitFor(t, u1, chat.EventPresenceChanged)
	require.NoError(t, json.Unmarshal(ev.Payload, &p1))
	require.Equal(t, "U2", p1.Identity)
	require.Len(t, p1.Members, 2)
	waitFor(t, u2, chat.EventPresenceChanged)

	send(t, u1, TypeSendMessage, SendMessagePayload{Room: "r1", Body: "hi", ClientMessageID: "m1"})

	for _, conn := range []*websocket.Conn{u1, u2} {
		ev = waitFor(t, conn, chat.EventMessageReceived)
		var m struct {
			MessageID string   `json:"messageId"`
			Body      string   `json:"body"`
			Author    string   `json:"author"`
			ReadBy    []string `json:"readBy"`
		}
		require.NoError(t, json.Unmarshal(ev.Payload, &m))
		require.Equal(t, "m1", m.MessageID)
		require.Equal(t, "hi", m.Body)
		require.Equal(t, "U1", m.Author)
		require.Empty(t, m.ReadBy)
	}

	send(t, u2, TypeMessageRead, MessageReadPayload{Room: "r1", MessageID: "m1", Identity: "U2"})
	ev = waitFor(t, u1, chat.EventReadReceiptUpdated)
	var rr chat.ReadReceiptPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &rr))
	require.Equal(t, "m1", rr.MessageID)
	require.Equal(t, "U2", rr.Reader)
}

func TestHandleWS_TypingAndReactions(t *testing.T) {
	ts := newTestServer(t)

	u1 := dial(t, ts, "t1")
	send(t, u1, TypeJoinRoom, JoinRoomPayload{Room: "r1"})
	waitFor(t, u1, chat.EventPresenceChanged)

	u2 := dial(t, ts, "t2")
	send(t, u2, TypeJoinRoom, JoinRoomPayload{Room: "r1"})
	waitFor(t, u2, chat.EventPresenceChanged)

	send(t, u1, TypeTyping, TypingPayload{Room: "r1", Identity: "U1"})
	ev := waitFor(t, u2, chat.EventTypingChanged)
	var tp chat.TypingPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &tp))
	require.Equal(t, []string{"U1"}, tp.Typing)

	send(t, u1, TypeSendMessage, SendMessagePayload{Room: "r1", Body: "hello", ClientMessageID: "m1"})
	waitFor(t, u2, chat.EventMessageReceived)

	send(t, u2, TypeReactMsg, ReactPayload{Room: "r1", MessageID: "m1", Emoji: "👍", Identity: "U2"})
	ev = waitFor(t, u1, chat.EventReactionAdded)
	var re struct {
		MessageID string `json:"messageId"`
		Emoji     string `json:"emoji"`
		Reactor   string `json:"reactor"`
	}
	require.NoError(t, json.Unmarshal(ev.Payload, &re))
	require.Equal(t, "m1", re.MessageID)
	require.Equal(t, "👍", re.Emoji)
	require.Equal(t, "U2", re.Reactor)
}

func TestHandleWS_EventsOutsideRoomAreDropped(t *testing.T) {
	ts := newTestServer(t)

	u1 := dial(t, ts, "t1")

	// No join yet: the event is dropped and only the sender is told.
	send(t, u1, TypeSendMessage, SendMessagePayload{Room: "r1", Body: "hi"})
	ev := waitFor(t, u1, chat.EventStatus)
	var p chat.StatusPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	require.Equal(t, "not_member", p.Status)

	// Malformed payload must not kill the connection either.
	require.NoError(t, u1.WriteMessage(websocket.TextMessage, []byte(`{"type":"send_message","payload":"not-an-object"}`)))
	ev = waitFor(t, u1, chat.EventStatus)
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	require.Equal(t, "malformed_event", p.Status)

	// The connection still works afterwards.
	send(t, u1, TypeJoinRoom, JoinRoomPayload{Room: "r1"})
	waitFor(t, u1, chat.EventPresenceChanged)
}
