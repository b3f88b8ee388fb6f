package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"holdem-rooms/apps/server/internal/config"
	"holdem-rooms/apps/server/internal/lobby"
	"holdem-rooms/apps/server/internal/room"
)

const (
	sendBuffer   = 256
	readLimit    = 65536
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Inbound message types.
const (
	MsgSpectate       = "spectate"
	MsgJoin           = "join"
	MsgLeave          = "leave"
	MsgStartGame      = "start_game"
	MsgAction         = "action"
	MsgChat           = "chat"
	MsgSitOut         = "sit_out"
	MsgAddChips       = "add_chips"
	MsgRunTwiceChoice = "run_twice_choice"
)

var (
	errBadFrame    = errors.New("invalid message format")
	errUnknownType = errors.New("unknown message type")
)

// inbound is a client frame. Data fields are the union of every request.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type inboundData struct {
	PlayerName string `json:"player_name"`
	Stack      int64  `json:"stack"`
	Seat       *int   `json:"seat"`
	Action     string `json:"action"`
	Amount     int64  `json:"amount"`
	Message    string `json:"message"`
	RunTwice   bool   `json:"run_twice"`
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID     string
	Conn   *websocket.Conn
	Client *room.Client
	Room   *room.Room

	gateway   *Gateway
	done      chan struct{}
	closeOnce sync.Once
}

// Gateway manages WebSocket connections
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	nextConnID  uint64

	lobby    *lobby.Lobby
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// New creates a new Gateway instance
func New(lby *lobby.Lobby, cfg config.ServerConfig, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Gateway{
		connections: make(map[string]*Connection),
		lobby:       lby,
		log:         log.Named("gateway"),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg),
	}
	return g
}

func originChecker(cfg config.ServerConfig) func(*http.Request) bool {
	if cfg.AllowAllOrigins() {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]bool, len(cfg.CORSOrigins))
	for _, o := range cfg.CORSOrigins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

func (g *Gateway) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws/:room", g.HandleWebSocket)
}

// ConnectionCount is the number of open sockets.
func (g *Gateway) ConnectionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}

// HandleWebSocket upgrades the request and attaches the socket to the room
// named in the path. An unknown room gets an error frame and is closed.
func (g *Gateway) HandleWebSocket(c *gin.Context) {
	roomID := c.Param("room")
	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn("upgrade failed", zap.String("room", roomID), zap.Error(err))
		return
	}

	rm, ok := g.lobby.Get(roomID)
	if !ok {
		g.rejectAndClose(conn, lobby.ErrRoomNotFound)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	connID := fmt.Sprintf("conn_%d", g.nextConnID)
	cc := &Connection{
		ID:      connID,
		Conn:    conn,
		Client:  room.NewClient(connID, sendBuffer),
		Room:    rm,
		gateway: g,
		done:    make(chan struct{}),
	}
	g.connections[connID] = cc
	total := len(g.connections)
	g.mu.Unlock()

	g.log.Info("client connected", zap.String("conn", connID), zap.String("room", roomID), zap.Int("total", total))

	go cc.writePump()
	go cc.readPump()
}

func (g *Gateway) rejectAndClose(conn *websocket.Conn, err error) {
	data, _ := json.Marshal(room.ErrorMessage(err))
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteMessage(websocket.TextMessage, data)
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
	_ = conn.Close()
}

func (c *Connection) readPump() {
	defer func() {
		c.gateway.removeConnection(c)
		if err := c.Room.Detach(c.Client); err != nil && !errors.Is(err, room.ErrRoomClosed) {
			c.gateway.log.Warn("detach failed", zap.String("conn", c.ID), zap.Error(err))
		}
		c.close()
	}()

	c.Conn.SetReadLimit(readLimit)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.gateway.log.Info("read error", zap.String("conn", c.ID), zap.Error(err))
			}
			return
		}
		if err := c.handleMessage(message); err != nil {
			c.sendError(err)
			if errors.Is(err, room.ErrRoomClosed) {
				return
			}
		}
	}
}

func (c *Connection) handleMessage(raw []byte) error {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return errBadFrame
	}
	var d inboundData
	if len(msg.Data) > 0 && string(msg.Data) != "null" {
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return errBadFrame
		}
	}

	c.gateway.log.Debug("received", zap.String("conn", c.ID), zap.String("type", msg.Type))

	rm, cl := c.Room, c.Client
	switch msg.Type {
	case MsgSpectate:
		return rm.Spectate(cl, d.PlayerName)
	case MsgJoin:
		return rm.Join(cl, d.PlayerName, d.Stack, d.Seat)
	case MsgLeave:
		return rm.Leave(cl)
	case MsgStartGame:
		return rm.Start()
	case MsgAction:
		return rm.Act(cl, d.Action, d.Amount)
	case MsgChat:
		return rm.Chat(cl, d.Message)
	case MsgSitOut:
		return rm.ToggleSitOut(cl)
	case MsgAddChips:
		return rm.AddChips(cl, d.Amount)
	case MsgRunTwiceChoice:
		return rm.ChooseRunTwice(cl, d.RunTwice)
	default:
		return fmt.Errorf("%w: %q", errUnknownType, msg.Type)
	}
}

func (c *Connection) sendError(err error) {
	room.Deliver(c.Client, room.ErrorMessage(err), c.gateway.log)
}

// writePump drains Client.Send. The room never closes Send, so the pump
// stops on done instead.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.Client.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.Conn.Close()
	})
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.connections, c.ID)
	g.log.Info("client disconnected", zap.String("conn", c.ID), zap.Int("total", len(g.connections)))
}

// Close drops every open socket.
func (g *Gateway) Close() {
	g.mu.RLock()
	conns := make([]*Connection, 0, len(g.connections))
	for _, c := range g.connections {
		conns = append(conns, c)
	}
	g.mu.RUnlock()
	for _, c := range conns {
		c.close()
	}
}
