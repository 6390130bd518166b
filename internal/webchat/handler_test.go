package webchat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/sisarm/sisarm-search/internal/chat"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	controller := chat.NewController(
		chat.NewMatcher(chat.DefaultRules()),
		chat.NewMemoryStore(time.Minute),
		nil, nil, nil, nil, chat.Options{},
	)
	return NewHandler(controller, []byte("// widget"), nil)
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	return conn
}

func TestWebSocketSessionHandshake(t *testing.T) {
	h := newTestHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn := dialWS(t, srv, "")
	defer conn.Close()

	var session OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &session))
	assert.Equal(t, "session", session.Type)
	assert.NotEmpty(t, session.SessionID)
}

func TestWebSocketMessageRoundTrip(t *testing.T) {
	h := newTestHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn := dialWS(t, srv, "?session=prueba-1")
	defer conn.Close()

	var session OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &session))
	assert.Equal(t, "prueba-1", session.SessionID)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "hola"}))

	var typing OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &typing))
	assert.Equal(t, "typing", typing.Type)

	var reply OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &reply))
	assert.Equal(t, "message", reply.Type)
	assert.Equal(t, "assistant", reply.Role)
	assert.Contains(t, reply.Text, "Asistente Virtual de SISARM Search")
}

func TestWebSocketPing(t *testing.T) {
	h := newTestHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn := dialWS(t, srv, "")
	defer conn.Close()

	var session OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &session))

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	var pong OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &pong))
	assert.Equal(t, "pong", pong.Type)
}

func TestWidgetJS(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.HandleWidgetJS(rec, httptest.NewRequest(http.MethodGet, "/widget.js", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/javascript", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "widget")
}
