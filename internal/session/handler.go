// Package session implements one WebSocket connection's lifecycle: upgrade,
// reconnect resolution, command parsing, and the per-command auth-state
// dispatch table.
package session

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/mafia-night/backend/internal/game"
	"github.com/mafia-night/backend/internal/protocol"
	"github.com/mafia-night/backend/internal/universe"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // controlled by the CORS middleware in front of this handler
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// GamePlayHandler delegates an opaque game_play operation to whatever
// concrete game variant is in use. The session core never interprets op
// itself, matching the capability contract's "opaque to the core" rule for
// everything that isn't one of gamestate.State's own operations.
type GamePlayHandler interface {
	HandleGamePlay(g *game.Actor, userID protocol.UserId, op json.RawMessage) error
}

// Handler upgrades incoming requests and runs each connection's lifecycle
// against one shared universe.
type Handler struct {
	universe *universe.Universe
	gamePlay GamePlayHandler
}

// New builds a Handler. gamePlay may be nil, in which case game_play
// commands are rejected with BadState, since the bundled mafia variant has no
// real-time play phase of its own to delegate to.
func New(u *universe.Universe, gamePlay GamePlayHandler) *Handler {
	return &Handler{universe: u, gamePlay: gamePlay}
}

// ServeHTTP upgrades the request to a WebSocket and runs the connection
// until it closes. Mount at a route carrying a "id" URL parameter, e.g.
// "/ws/{id}".
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[session] upgrade failed: %v", err)
		return
	}

	c := &client{
		handler:  h,
		conn:     conn,
		outbound: make(chan protocol.Message, sendBufferSize),
	}
	c.run(sessionID)
}

// client is one live connection's state: the socket, its outbound queue, and
// the user identity the universe assigned it.
type client struct {
	handler  *Handler
	conn     *websocket.Conn
	outbound chan protocol.Message
	userID   protocol.UserId
}

func (c *client) run(sessionID string) {
	defer c.conn.Close()

	go c.writePump()

	claimedGameID, claimedUserID, claimed := protocol.ParseSessionID(sessionID)
	c.send(protocol.Connected())

	info, gameID := c.handler.universe.AddUser(c.outbound, claimedGameID, claimedUserID, claimed)
	c.userID = info.ID

	if info.Authenticated {
		c.send(protocol.Authenticated(info.ID, info.Nickname))
	}
	if gameID != nil {
		if g, ok := c.handler.universe.GetGame(*gameID); ok {
			c.send(protocol.GameJoined(g.ID(), g.JoinCode()))
			g.BroadcastCurrentState()
		}
	}

	c.readPump()
	c.onDisconnect()
	close(c.outbound)
}

// send enqueues msg without blocking the caller; a connection whose
// outbound queue is already full is already in trouble and about to be
// torn down by writePump's own write-deadline failure.
func (c *client) send(msg protocol.Message) {
	select {
	case c.outbound <- msg:
	default:
	}
}

func (c *client) writePump() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[session] write pump panic (user=%s): %v", c.userID, r)
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.outbound:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump is the connection's single reader. A transport-level ping frame
// is answered like a protocol-level Ping regardless of authentication state;
// a protocol-level ping command, by contrast, goes through dispatch and is
// rejected until the connection authenticates. A panic
// anywhere in command handling is confined to this connection: it is
// recovered here and the session unwinds through the normal disconnect
// path.
func (c *client) readPump() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[session] read pump panic (user=%s): %v", c.userID, r)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	c.conn.SetPingHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.send(protocol.Pong())
		return c.conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(writeWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[session] unexpected close (user=%s): %v", c.userID, err)
			}
			return
		}

		cmd, err := protocol.ParseCommand(data)
		if err != nil {
			c.send(protocol.Error(asProtocolError(err)))
			continue
		}
		if err := c.dispatch(cmd); err != nil {
			c.send(protocol.Error(asProtocolError(err)))
		}
	}
}

// onDisconnect mirrors the universe's own disconnect rule: the game is torn
// down only if fewer than two players (including the one disconnecting)
// remain connected, otherwise the game-state's player entry survives so a
// reconnect can recover it. The universe's User entry is always dropped.
func (c *client) onDisconnect() {
	u := c.handler.universe
	if g, ok := u.GetUserGame(c.userID); ok {
		if len(g.ConnectedPlayers()) < 2 {
			u.RemoveGame(g.ID())
		}
	}
	u.RemoveUser(c.userID)
}

func asProtocolError(err error) *protocol.ProtocolError {
	if perr, ok := err.(*protocol.ProtocolError); ok {
		return perr
	}
	return protocol.NewProtocolError(protocol.InternalError, err.Error())
}
