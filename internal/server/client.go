package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/bookitnow/chat-server/internal/stats"
	"github.com/bookitnow/chat-server/internal/types"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one push-channel session for an authenticated user. A user may
// hold several sessions (multiple tabs); the hub routes to all of them.
type Client struct {
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	stats      stats.StatsProvider
	user       types.User
	send       chan types.Envelope
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewClient(user types.User, conn *websocket.Conn, cs *ChatServer, l *log.Logger, sp stats.StatsProvider) *Client {
	return &Client{
		conn:       conn,
		chatServer: cs,
		log:        l,
		stats:      sp,
		user:       user,
		send:       make(chan types.Envelope, 256),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(env)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.writeMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var env types.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Println("error parsing event:", err)
			c.queueEvent(ErrInvalidEvent())
			continue
		}

		c.handleEvent(env)
	}
}

func (c *Client) handleEvent(env types.Envelope) {
	switch env.Type {
	case types.EventChatMessage:
		msg, err := env.DecodeChatMessage()
		if err != nil {
			c.log.Printf("decode chat.message from %q: %v", c.user.Username, err)
			c.queueEvent(ErrInvalidEvent())
			return
		}

		// a session may only announce messages it sent itself
		if msg.SenderId != c.user.Id {
			c.queueEvent(ErrSenderMismatch())
			return
		}

		c.chatServer.route(&routedEvent{env: env, msg: msg, origin: c})
	default:
		c.queueEvent(ErrUnsupportedEvent(env.Type))
	}
}

func (c *Client) queueEvent(env types.Envelope) bool {
	select {
	case c.send <- env:
	default:
		c.stats.Incr(MetricEventsDropped)
		c.log.Printf("dropping event for %q, send queue full", c.user.Username)
		return false
	}

	return true
}

func (c *Client) writeMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.chatServer.DeregisterClient(c)
	c.stopClient()
}
