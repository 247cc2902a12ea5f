package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		groups: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (h *wsHub) Add(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomID]
	if group == nil {
		group = make(map[*websocket.Conn]struct{})
		h.groups[roomID] = group
	}
	group[conn] = struct{}{}
}

func (h *wsHub) Remove(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomID]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.groups, roomID)
	}
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *wsHub) Broadcast(roomID string, payload any) {
	h.mu.Lock()
	group := h.groups[roomID]
	conns := make([]*websocket.Conn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(roomID, conn)
		}
	}
}

func (s *Server) handleRoomWebsocket(c *gin.Context) {
	roomID := c.Param("roomID")
	if !s.store.RoomExists(roomID) {
		c.Status(http.StatusNotFound)
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	log.Infof("ws connected room_id=%s remote=%s", roomID, c.Request.RemoteAddr)
	s.ws.Add(roomID, conn)
	if snapshot, ok := s.roomPayload(roomID); ok {
		s.ws.Send(conn, snapshot)
	}
	go s.readWS(roomID, conn)
}

func (s *Server) readWS(roomID string, conn *websocket.Conn) {
	defer s.ws.Remove(roomID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Infof("ws disconnected room_id=%s error=%v", roomID, err)
			return
		}
	}
}

// broadcastRoomUpdate pushes a fresh snapshot to every subscriber of the room.
// Pollers of the GET endpoints see the same payload.
func (s *Server) broadcastRoomUpdate(roomID string) {
	if s.ws == nil {
		return
	}
	if snapshot, ok := s.roomPayload(roomID); ok {
		s.ws.Broadcast(roomID, snapshot)
	}
}
