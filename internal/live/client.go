package live

import (
	"encoding/json"
	"errors"
	"log"
	"time"
	"trip-console/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Console is the part of the trip orchestrator a browser may drive.
type Console interface {
	UpdateField(key, raw string) error
	Recalculate() (uint64, error)
}

// Client is one websocket connection.
type Client struct {
	ID      string
	conn    *websocket.Conn
	hub     *Hub
	console Console
	send    chan []byte

	// closed is guarded by hub.mu.
	closed bool
}

// closeSend must be called with hub.mu held for writing.
func (c *Client) closeSend() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// IncomingMessage is a frame received from the browser.
type IncomingMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type fieldUpdate struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type errorPayload struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (c *Client) reply(msgType string, data any) {
	b, err := json.Marshal(Envelope{Type: msgType, Data: data})
	if err != nil {
		log.Printf("op=ws_reply client=%s type=%s marshal: %v", c.ID, msgType, err)
		return
	}
	c.hub.deliver(c, b)
}

func (c *Client) replyError(err error) {
	p := errorPayload{Error: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		p.Fields = make(map[string]string, len(verr.Fields))
		for k, msg := range verr.ByField() {
			p.Fields[string(k)] = msg
		}
	}
	c.reply("error", p)
}

// ReadPump handles frames from the browser until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("op=ws_read client=%s err=%v", c.ID, err)
			}
			return
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("op=ws_read client=%s invalid frame: %v", c.ID, err)
			continue
		}

		switch msg.Type {
		case "ping":
			c.reply("pong", map[string]string{"timestamp": time.Now().UTC().Format(time.RFC3339)})

		case "update_field":
			var u fieldUpdate
			if err := json.Unmarshal(msg.Data, &u); err != nil {
				c.replyError(err)
				continue
			}
			if err := c.console.UpdateField(u.Field, u.Value); err != nil {
				c.replyError(err)
			}

		case "recalculate":
			gen, err := c.console.Recalculate()
			if err != nil {
				c.replyError(err)
				continue
			}
			c.reply("recalculating", map[string]uint64{"generation": gen})

		default:
			log.Printf("op=ws_read client=%s unknown type=%q", c.ID, msg.Type)
		}
	}
}

// WritePump writes queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
