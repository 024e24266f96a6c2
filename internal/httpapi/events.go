// events.go streams launcher state changes over a WebSocket.
//
// Separated from handlers.go because the stream is long-lived and pushes,
// while every other endpoint is a single request and response.
//
// Design: each connection subscribes to the plugin, navigation, action,
// command and query feeds. Listeners never block the publisher: messages
// go through a buffered channel and are dropped for a client that cannot
// keep up. The read side only exists to notice the peer going away.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpl-au/vela/extension"
	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/command"
	"github.com/jpl-au/vela/internal/nav"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Message types sent on /events.
const (
	MsgState    = "state"
	MsgEvent    = "event"
	MsgViews    = "views"
	MsgActions  = "actions"
	MsgCommands = "commands"
	MsgQuery    = "query"
)

// Message is the envelope of every frame on /events.
type Message struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// StateData is the snapshot sent when a client connects.
type StateData struct {
	Query   string          `json:"query"`
	Views   []nav.Frame     `json:"views"`
	Actions []action.Action `json:"actions"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	s    *Server
}

// push queues m without blocking. A full buffer drops the message.
func (c *client) push(m Message) {
	b, err := json.Marshal(m)
	if err != nil {
		c.s.logger.Error("encode event", "type", m.Type, "error", err)
		return
	}
	select {
	case c.send <- b:
	case <-c.done:
	default:
		c.s.logger.Warn("events client too slow, dropping message", "type", m.Type)
	}
}

// events handles GET /events.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		s:    s,
	}

	c.push(Message{Type: MsgState, Data: StateData{
		Query:   s.app.Query.Query(),
		Views:   s.app.Manager.Stack().Frames(),
		Actions: s.app.Actions.Visible(),
	}})

	unsubs := []func(){
		s.app.Manager.Subscribe(func(e extension.Event) {
			c.push(Message{Type: MsgEvent, Event: string(e.EventType()), Data: e})
		}),
		s.app.Manager.Stack().Subscribe(func(fs []nav.Frame) {
			c.push(Message{Type: MsgViews, Data: fs})
		}),
		s.app.Actions.Subscribe(func(as []action.Action) {
			c.push(Message{Type: MsgActions, Data: as})
		}),
		s.app.Commands.Subscribe(func(cs []command.Command) {
			c.push(Message{Type: MsgCommands, Data: cs})
		}),
		s.app.Query.Subscribe(func(q string) {
			c.push(Message{Type: MsgQuery, Data: q})
		}),
	}
	s.logger.Debug("events client connected", "remote", r.RemoteAddr)

	go c.writePump()
	c.readPump()

	for _, unsub := range unsubs {
		unsub()
	}
	close(c.done)
	s.logger.Debug("events client disconnected", "remote", r.RemoteAddr)
}

// readPump discards inbound frames until the connection fails.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.s.logger.Debug("events read error", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
