package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"fightcore/internal/lobby"
	"fightcore/internal/protocol"
	"fightcore/internal/room"
)

const (
	// MaxWSConnectionsTotal bounds total concurrent sockets server-wide.
	MaxWSConnectionsTotal = 2000
	// MaxWSConnectionsPerIP bounds concurrent sockets from one address.
	MaxWSConnectionsPerIP = 8
	// socketMessageRate is spec.md §4.8/§5's 180 msg/s per-socket cap.
	socketMessageRate = 180
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("websocket: rejected connection from origin %q", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// socketClient adapts one WebSocket connection to room.Conn and tracks the
// lobby/room/player-slot it has been matched into.
type socketClient struct {
	conn *websocket.Conn
	ip   string

	writeMu sync.Mutex
	limiter *SocketMessageLimiter

	mu       sync.Mutex
	username string
	wallet   string
	entry    *lobby.Entry
	playerID int
}

// info returns the client's current username/wallet under lock, for
// threading into room.Room.SetPlayerInfo at seat time.
func (c *socketClient) info() (username, wallet string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username, c.wallet
}

// Send implements room.Conn; gorilla's Conn forbids concurrent writers.
func (c *socketClient) Send(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *socketClient) sendEnvelope(msgType string, payload any) {
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		log.Printf("websocket: encode %s: %v", msgType, err)
		return
	}
	if err := c.Send(data); err != nil {
		log.Printf("websocket: send %s to %s: %v", msgType, c.ip, err)
	}
}

// WebSocketHub accepts connections and dispatches their frames into the
// lobby/room layer. Grounded on the teacher's WebSocketHub register/
// unregister/broadcast shape, generalized from one global broadcast
// channel to per-client dispatch against a matched Room.
type WebSocketHub struct {
	lobby *lobby.Lobby

	mu      sync.Mutex
	clients map[*websocket.Conn]*socketClient

	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub constructs a hub bound to l.
func NewWebSocketHub(l *lobby.Lobby) *WebSocketHub {
	return &WebSocketHub{
		lobby:     l,
		clients:   make(map[*websocket.Conn]*socketClient),
		wsLimiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// HandleWebSocket upgrades the request and serves the connection until it
// closes.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	h.mu.Lock()
	total := len(h.clients)
	h.mu.Unlock()
	if total >= MaxWSConnectionsTotal {
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.wsLimiter.Allow(ip) {
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "too many connections from your address", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.wsLimiter.Release(ip)
		log.Printf("websocket: upgrade error: %v", err)
		return
	}

	client := &socketClient{conn: conn, ip: ip, limiter: NewSocketMessageLimiter(socketMessageRate)}

	h.mu.Lock()
	h.clients[conn] = client
	count := len(h.clients)
	h.mu.Unlock()
	UpdateWSConnections(count)

	h.readLoop(client)
}

func (h *WebSocketHub) readLoop(c *socketClient) {
	defer h.unregister(c)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if !c.limiter.Allow() {
			IncrementWSThrottled()
			continue
		}
		IncrementWSMessages()

		var env protocol.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.sendEnvelope("error", protocol.ErrorMsg{Message: "malformed envelope"})
			continue
		}
		h.dispatch(c, env)
	}
}

func (h *WebSocketHub) unregister(c *socketClient) {
	h.mu.Lock()
	delete(h.clients, c.conn)
	count := len(h.clients)
	h.mu.Unlock()

	h.wsLimiter.Release(c.ip)
	UpdateWSConnections(count)
	c.conn.Close()
}

func (h *WebSocketHub) dispatch(c *socketClient, env protocol.Envelope) {
	switch env.Type {
	case "set_username":
		var msg protocol.SetUsername
		if json.Unmarshal(env.Data, &msg) == nil {
			c.mu.Lock()
			c.username = msg.Name
			c.mu.Unlock()
		}

	case "set_wallet":
		var msg protocol.SetWallet
		if json.Unmarshal(env.Data, &msg) == nil {
			c.mu.Lock()
			c.wallet = msg.Address
			c.mu.Unlock()
		}

	case "list_rooms":
		c.sendEnvelope("lobby", protocol.Lobby{Rooms: h.lobby.ListRooms()})

	case "create":
		var msg protocol.CreateRoom
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			c.sendEnvelope("error", protocol.ErrorMsg{Message: "malformed create"})
			return
		}
		entry, err := h.lobby.Create(msg.Mode, msg.IsPrivate)
		if err != nil {
			c.sendEnvelope("error", protocol.ErrorMsg{Message: err.Error()})
			return
		}
		h.seat(c, entry, 0, msg.Character)
		c.sendEnvelope("waiting", protocol.Waiting{RoomID: entry.Room.ID(), Name: entry.Name, JoinCode: entry.JoinCode})

	case "quickplay":
		var msg protocol.Quickplay
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			c.sendEnvelope("error", protocol.ErrorMsg{Message: "malformed quickplay"})
			return
		}
		entry, matched, err := h.lobby.Quickplay(msg.Mode)
		if err != nil {
			c.sendEnvelope("error", protocol.ErrorMsg{Message: err.Error()})
			return
		}
		if matched {
			h.seatAndMaybeStart(c, entry, 1, msg.Character)
		} else {
			h.seat(c, entry, 0, msg.Character)
			c.sendEnvelope("waiting", protocol.Waiting{RoomID: entry.Room.ID(), Name: entry.Name})
		}

	case "join_room":
		var msg protocol.JoinRoom
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			c.sendEnvelope("error", protocol.ErrorMsg{Message: "malformed join_room"})
			return
		}
		entry, err := h.lobby.JoinRoom(msg.ID)
		if err != nil {
			c.sendEnvelope("error", protocol.ErrorMsg{Message: err.Error()})
			return
		}
		h.seatAndMaybeStart(c, entry, 1, msg.Character)

	case "join_code":
		var msg protocol.JoinCode
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			c.sendEnvelope("error", protocol.ErrorMsg{Message: "malformed join_code"})
			return
		}
		entry, err := h.lobby.JoinCode(msg.Code)
		if err != nil {
			c.sendEnvelope("error", protocol.ErrorMsg{Message: err.Error()})
			return
		}
		h.seatAndMaybeStart(c, entry, 1, msg.Character)

	case "input":
		var msg protocol.InputMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return
		}
		c.mu.Lock()
		entry, playerID := c.entry, c.playerID
		c.mu.Unlock()
		if entry != nil {
			entry.Room.HandleInput(playerID, msg)
		}

	default:
		c.sendEnvelope("error", protocol.ErrorMsg{Message: "unknown message type"})
	}
}

// seat attaches c to entry at playerID without starting the match,
// recording the username/wallet/character the player brings with them.
func (h *WebSocketHub) seat(c *socketClient, entry *lobby.Entry, playerID int, character string) {
	c.mu.Lock()
	c.entry, c.playerID = entry, playerID
	c.mu.Unlock()
	entry.Room.Attach(playerID, c)
	username, wallet := c.info()
	entry.Room.SetPlayerInfo(playerID, username, character, wallet)
}

// seatAndMaybeStart attaches c and, once both slots are filled, launches
// the match via the lobby. A room whose two slots are already filled is
// left untouched and c receives an error.
func (h *WebSocketHub) seatAndMaybeStart(c *socketClient, entry *lobby.Entry, playerID int, character string) {
	if entry.Room.AttachedCount() >= 2 {
		c.sendEnvelope("error", protocol.ErrorMsg{Message: "room is full"})
		return
	}
	h.seat(c, entry, playerID, character)

	c.sendEnvelope("matched", protocol.Matched{
		PlayerID: playerID,
		RoomID:   entry.Room.ID(),
		Mode:     entry.Mode,
	})

	if entry.Room.AttachedCount() == 2 {
		h.lobby.StartMatch(entry)
	}
}

// ensure room.Conn is satisfied at compile time.
var _ room.Conn = (*socketClient)(nil)
