package handlers

import (
	"log"

	"github.com/gofiber/websocket/v2"

	"food-delivery/panel/models"
)

type wsEvent struct {
	Type      string          `json:"type"`
	ChatID    int             `json:"chatId,omitempty"`
	Message   *models.Message `json:"message,omitempty"`
	Connected *bool           `json:"connected,omitempty"`
}

// HandleWebSocket keeps a dashboard client registered for push until its
// connection drops.
func (s *Server) HandleWebSocket(c *websocket.Conn) {
	s.wsMu.Lock()
	s.wsClients[c] = struct{}{}
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsClients, c)
		s.wsMu.Unlock()
		c.Close()
	}()

	// Drain the connection; the read error is our close signal.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

// NotifyMessage fans a chat message out to every connected dashboard
// client. Wired as the chat engine's notify hook.
func (s *Server) NotifyMessage(chatID int, msg models.Message) {
	s.broadcast(wsEvent{Type: "message", ChatID: chatID, Message: &msg})
}

// NotifyConnectionState fans real-time connection changes out to the
// dashboard's status indicator.
func (s *Server) NotifyConnectionState(connected bool) {
	s.broadcast(wsEvent{Type: "connection", Connected: &connected})
}

func (s *Server) broadcast(event wsEvent) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for conn := range s.wsClients {
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("handlers: dropping websocket client: %v", err)
			conn.Close()
			delete(s.wsClients, conn)
		}
	}
}
