package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/chat-service/internal/chat"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
)

type staticVerifier map[string]string

func (v staticVerifier) VerifyToken(token string) (string, error) {
	identity, ok := v[token]
	if !ok {
		return "", errors.New("bad token")
	}
	return identity, nil
}

func newTestRouter(t *testing.T) (http.Handler, *chat.Dispatcher) {
	t.Helper()

	dispatcher := chat.NewDispatcher(chat.NewRegistry(), nil, nil)
	verifier := staticVerifier{"t1": "U1"}
	handler := NewHandler(dispatcher, nil)
	wsServer := ws.NewServer(dispatcher, verifier)
	return NewRouter(handler, verifier, wsServer), dispatcher
}

func get(t *testing.T, router http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Healthz(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := get(t, router, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := get(t, router, "/rooms/r1/members", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(t, router, "/rooms/r1/members", "wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetMembers(t *testing.T) {
	router, dispatcher := newTestRouter(t)

	rec := get(t, router, "/rooms/r1/members", "t1")
	require.Equal(t, http.StatusNotFound, rec.Code)

	c := &fakeConn{}
	dispatcher.Connect("U1", c)
	dispatcher.Join("r1", "U1")

	rec = get(t, router, "/rooms/r1/members", "t1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MembersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "r1", resp.Room)
	require.Len(t, resp.Members, 1)
	require.Equal(t, "U1", resp.Members[0].Identity)
	require.NotEmpty(t, resp.Members[0].ConnID)
}

func TestHistoryDisabledWithoutPersistence(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := get(t, router, "/rooms/r1/messages", "t1")
	require.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = get(t, router, "/messages/m1/reactions", "t1")
	require.Equal(t, http.StatusNotImplemented, rec.Code)
}

type fakeConn struct{}

func (fakeConn) Send(chat.Event) error { return nil }
func (fakeConn) Close() error          { return nil }
