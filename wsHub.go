package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Hub struct {
	logger     *logrus.Entry
	clients    map[*Client]bool
	broadcast  chan interface{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	sync.Mutex
}

func NewHub(logger *logrus.Entry) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan interface{}, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.Lock()
			for client := range h.clients {
				h.removeClient(client)
			}
			h.Unlock()
			return

		case client := <-h.register:
			h.Lock()
			h.clients[client] = true
			h.Unlock()
			h.logger.Debug("Client registered: ", client.conn.RemoteAddr())

		case client := <-h.unregister:
			h.Lock()
			h.removeClient(client)
			h.Unlock()

		case message := <-h.broadcast:
			h.Lock()
			for client := range h.clients {
				if err := client.WriteJSON(message); err != nil {
					h.logger.Debugf("Error sending message to client %s: %v", client.conn.RemoteAddr(), err)
					h.removeClient(client)
				}
			}
			h.Unlock()
		}
	}
}

// removeClient must be called with the hub locked
func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.conn.Close()
		h.logger.Debug("Client unregistered: ", client.conn.RemoteAddr())
	}
}

// BroadcastMessage queues a message for every client, it is dropped when
// the hub falls behind
func (h *Hub) BroadcastMessage(message interface{}) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("Broadcast queue is full, dropping message")
	}
}

func (h *Hub) ClientCount() int {
	h.Lock()
	defer h.Unlock()
	return len(h.clients)
}

func (h *Hub) HandleConnections(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(err)
		return
	}

	client := NewClient(h, conn)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.readPump()
	go client.pingClient()
}
