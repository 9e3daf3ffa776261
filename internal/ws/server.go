// Package ws serves the live run event stream of a thread over WebSocket.
package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/hub"
)

const (
	maxMessageSize = 4096
	readTimeout    = 60 * time.Second
	writeTimeout   = 10 * time.Second
	pingInterval   = (readTimeout * 9) / 10
)

// SubscribedMessage is the first frame a subscriber receives.
type SubscribedMessage struct {
	Type     string `json:"type"`
	ThreadID string `json:"thread_id"`
	Ts       int64  `json:"ts"`
}

// Server handles WebSocket subscriptions.
type Server struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(h *hub.Hub) *Server {
	return &Server{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleStream upgrades the request and subscribes it to the thread_id path parameter.
func (s *Server) HandleStream(c echo.Context) error {
	threadID := c.Param("thread_id")
	if threadID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "thread_id is required"})
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logrus.WithError(err).Warn("failed to upgrade websocket")
		return err
	}
	ws.SetReadLimit(maxMessageSize)

	conn, err := s.hub.Subscribe(ws, threadID, SubscribedMessage{
		Type:     "subscribed",
		ThreadID: threadID,
		Ts:       time.Now().UnixMilli(),
	})
	if err != nil {
		logrus.WithError(err).Warn("failed to subscribe")
		ws.Close()
		return nil
	}

	go s.writePump(conn)
	go s.readPump(conn)
	return nil
}

// readPump drains the client side so close frames and pongs are processed.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Debug("websocket closed")
			}
			return
		}
	}
}

func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithError(err).Debug("failed to write message")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
