// Package hub fans run events out to WebSocket subscribers of a thread.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var (
	// ErrBufferFull is returned when a connection's send buffer is full.
	ErrBufferFull = errors.New("send buffer full")
	// ErrConnectionClosed is returned when sending to a connection the hub
	// no longer tracks.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrHubStopped is returned by Register once Run has returned.
	ErrHubStopped = errors.New("hub stopped")
)

const sendBufferSize = 256

// Connection represents a single WebSocket subscriber.
type Connection struct {
	ID       string
	ThreadID string
	Conn     *websocket.Conn
	Send     chan []byte
	mu       sync.Mutex
}

// Hub manages subscriber connections keyed by thread.
type Hub struct {
	connections map[string]*Connection
	// threads maps thread_id to the set of subscribed connection IDs
	threads map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *threadMessage
	done       chan struct{}

	mu sync.RWMutex
}

type threadMessage struct {
	ThreadID string
	Data     []byte
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		threads:     make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *threadMessage, sendBufferSize),
		done:        make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if h.threads[conn.ThreadID] == nil {
				h.threads[conn.ThreadID] = make(map[string]bool)
			}
			h.threads[conn.ThreadID][conn.ID] = true
			h.mu.Unlock()
			logrus.WithFields(logrus.Fields{"conn_id": conn.ID, "thread_id": conn.ThreadID}).Debug("subscriber registered")

		case conn := <-h.unregister:
			h.remove(conn)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for connID := range h.threads[msg.ThreadID] {
				conn, ok := h.connections[connID]
				if !ok {
					continue
				}
				select {
				case conn.Send <- msg.Data:
				default:
					logrus.WithField("conn_id", connID).Warn("subscriber buffer full, closing")
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) remove(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if ids := h.threads[conn.ThreadID]; ids != nil {
		delete(ids, conn.ID)
		if len(ids) == 0 {
			delete(h.threads, conn.ThreadID)
		}
	}
	close(conn.Send)
	logrus.WithField("conn_id", conn.ID).Debug("subscriber unregistered")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		close(conn.Send)
		delete(h.connections, id)
	}
	h.threads = make(map[string]map[string]bool)
}

// NewConnection creates a connection subscribed to threadID. It still has
// to be registered.
func (h *Hub) NewConnection(ws *websocket.Conn, threadID string) *Connection {
	return &Connection{
		ID:       uuid.New().String(),
		ThreadID: threadID,
		Conn:     ws,
		Send:     make(chan []byte, sendBufferSize),
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) error {
	select {
	case h.register <- conn:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Subscribe creates a connection for threadID, queues greeting as its first
// frame and registers it. The greeting is queued while only the caller holds
// the connection, so it cannot race with the hub closing Send.
func (h *Hub) Subscribe(ws *websocket.Conn, threadID string, greeting any) (*Connection, error) {
	conn := h.NewConnection(ws, threadID)
	if greeting != nil {
		data, err := json.Marshal(greeting)
		if err != nil {
			return nil, err
		}
		conn.Send <- data
	}
	if err := h.Register(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Unregister unregisters a connection from the hub. It returns immediately
// once the hub has stopped.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Publish sends v as JSON to every subscriber of threadID. It never blocks;
// when the broadcast queue is full the message is dropped.
func (h *Hub) Publish(threadID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- &threadMessage{ThreadID: threadID, Data: data}:
		return nil
	default:
		return ErrBufferFull
	}
}

// SendJSONToConnection sends a JSON message to a registered connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	// Send is only closed under the write lock, after the connection has
	// left the map.
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.connections[conn.ID] != conn {
		return ErrConnectionClosed
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HasSubscribers reports whether a thread has any active subscriber.
func (h *Hub) HasSubscribers(threadID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.threads[threadID]) > 0
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
