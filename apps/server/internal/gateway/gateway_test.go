package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdem-rooms/apps/server/internal/config"
	"holdem-rooms/apps/server/internal/lobby"
	"holdem-rooms/apps/server/internal/room"
	"holdem-rooms/holdem"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*httptest.Server, *lobby.Lobby) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	lby := lobby.New(config.RoomsConfig{DefaultSettings: holdem.DefaultSettings()}, room.Deps{}, holdem.WithSeed(3))
	t.Cleanup(lby.Close)
	gw := New(lby, config.ServerConfig{CORSOrigins: []string{"*"}}, nil)
	t.Cleanup(gw.Close)

	engine := gin.New()
	gw.RegisterRoutes(engine)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv, lby
}

func dial(t *testing.T, srv *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + roomID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": typ, "data": data}))
}

// next reads frames until one of type typ arrives.
func next(t *testing.T, conn *websocket.Conn, typ string) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f), "waiting for %s", typ)
		if f.Type == typ {
			return f
		}
	}
}

func errorText(t *testing.T, f frame) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(f.Data, &body))
	return body.Message
}

func TestGateway_UnknownRoom(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "nope")

	f := next(t, conn, room.MsgError)
	assert.Equal(t, "room not found", errorText(t, f))
}

func TestGateway_SpectateAndJoin(t *testing.T) {
	srv, lby := newTestServer(t)
	r, err := lby.Create(lby.DefaultSettings())
	require.NoError(t, err)
	conn := dial(t, srv, r.ID)

	send(t, conn, MsgSpectate, map[string]any{"player_name": "alice"})
	next(t, conn, room.MsgSpectating)
	var state room.StateData
	require.NoError(t, json.Unmarshal(next(t, conn, room.MsgGameState).Data, &state))
	assert.Equal(t, "alice", state.SpectatorName)
	assert.Equal(t, r.ID, state.RoomID)

	send(t, conn, MsgJoin, map[string]any{"player_name": "alice"})
	assert.Equal(t, room.ErrSeatRequired.Error(), errorText(t, next(t, conn, room.MsgError)))

	send(t, conn, MsgJoin, map[string]any{"seat": 4})
	var joined struct {
		PlayerName string `json:"player_name"`
		Seat       int    `json:"seat"`
	}
	require.NoError(t, json.Unmarshal(next(t, conn, room.MsgJoined).Data, &joined))
	assert.Equal(t, "alice", joined.PlayerName)
	assert.Equal(t, 4, joined.Seat)

	p, ok := findPlayer(r.View(), "alice")
	require.True(t, ok)
	assert.EqualValues(t, 100, p.Stack, "stack defaults to 100")
}

func TestGateway_BadFrames(t *testing.T) {
	srv, lby := newTestServer(t)
	r, err := lby.Create(lby.DefaultSettings())
	require.NoError(t, err)
	conn := dial(t, srv, r.ID)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, errBadFrame.Error(), errorText(t, next(t, conn, room.MsgError)))

	send(t, conn, "dance", nil)
	assert.Contains(t, errorText(t, next(t, conn, room.MsgError)), "unknown message type")

	send(t, conn, MsgAction, map[string]any{"action": "check"})
	assert.Equal(t, room.ErrNotJoined.Error(), errorText(t, next(t, conn, room.MsgError)))
}

func TestGateway_PlayHandAndDisconnect(t *testing.T) {
	srv, lby := newTestServer(t)
	r, err := lby.Create(lby.DefaultSettings())
	require.NoError(t, err)

	alice := dial(t, srv, r.ID)
	bob := dial(t, srv, r.ID)
	send(t, alice, MsgJoin, map[string]any{"player_name": "alice", "seat": 0, "stack": 100})
	next(t, alice, room.MsgJoined)
	send(t, bob, MsgJoin, map[string]any{"player_name": "bob", "seat": 1, "stack": 100})
	next(t, bob, room.MsgJoined)
	next(t, alice, room.MsgPlayerJoined)

	send(t, bob, MsgStartGame, nil)
	var started struct {
		HandNumber int `json:"hand_number"`
	}
	require.NoError(t, json.Unmarshal(next(t, alice, room.MsgHandStarted).Data, &started))
	assert.Equal(t, 1, started.HandNumber)

	// heads-up: the dealer (alice) posts the small blind and acts first
	send(t, alice, MsgAction, map[string]any{"action": "fold"})
	var act struct {
		PlayerName string `json:"player_name"`
		Action     string `json:"action"`
	}
	require.NoError(t, json.Unmarshal(next(t, bob, room.MsgPlayerAction).Data, &act))
	assert.Equal(t, "alice", act.PlayerName)
	assert.Equal(t, "fold", act.Action)

	var result holdem.HandResult
	require.NoError(t, json.Unmarshal(next(t, bob, room.MsgHandEnded).Data, &result))
	assert.Equal(t, []string{"bob"}, result.Winners)

	send(t, alice, MsgChat, map[string]any{"message": "nh"})
	next(t, bob, room.MsgChat)

	require.NoError(t, alice.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	var gone struct {
		PlayerName string `json:"player_name"`
	}
	require.NoError(t, json.Unmarshal(next(t, bob, room.MsgPlayerDisconnected).Data, &gone))
	assert.Equal(t, "alice", gone.PlayerName)

	_, stillSeated := findPlayer(r.View(), "alice")
	assert.True(t, stillSeated)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker(config.ServerConfig{CORSOrigins: []string{"https://poker.example/"}})

	req := httptest.NewRequest(http.MethodGet, "/ws/x", nil)
	assert.True(t, check(req), "no origin header")
	req.Header.Set("Origin", "https://poker.example")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker(config.ServerConfig{CORSOrigins: []string{"*"}})(req))
}

func findPlayer(v holdem.GameView, name string) (holdem.PlayerState, bool) {
	for _, p := range v.Players {
		if p.Name == name {
			return p, true
		}
	}
	return holdem.PlayerState{}, false
}
