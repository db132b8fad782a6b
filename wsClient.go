package main

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 30 * time.Second    // Time allowed to read the next pong message from the peer
	pingPeriod = (pongWait * 9) / 10 // Ping period must be less than pongWait
	writeWait  = 10 * time.Second
)

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	done chan struct{}
	once sync.Once

	// gorilla connections support a single concurrent writer
	writeMux sync.Mutex
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		done: make(chan struct{}),
	}
}

func (c *Client) WriteJSON(v interface{}) error {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	})
}

// readPump discards what the client sends, reading is what runs the pong handler
func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) pingClient() {
	defer c.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMux.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMux.Unlock()
			if err != nil {
				return // Connection is broken, close it
			}
		}
	}
}
