package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type createRoomRequest struct {
	Name               string `json:"name" binding:"required,roomname"`
	VotingCategorized  *bool  `json:"voting_categorized"`
	AutoCompleteVoting *bool  `json:"auto_complete_voting"`
}

type joinRoomRequest struct {
	Name        string `json:"name" binding:"required,username"`
	IsSpectator bool   `json:"is_spectator"`
}

type editUserRequest struct {
	Name        *string `json:"name" binding:"omitempty,username"`
	IsSpectator *bool   `json:"is_spectator"`
}

type pickCardRequest struct {
	UserID    string  `json:"user_id" binding:"required"`
	CardLabel string  `json:"card_label" binding:"required,cardlabel"`
	CardValue float64 `json:"card_value"`
	CardIcon  *string `json:"card_icon"`
}

type nodePositionRequest struct {
	UserID   string   `json:"user_id" binding:"required"`
	Position Position `json:"position"`
}

type nodeLockRequest struct {
	Locked *bool `json:"locked" binding:"required"`
}

type timerActionRequest struct {
	UserID string `json:"user_id" binding:"required"`
	NodeID string `json:"node_id"`
}

type viewportRequest struct {
	UserID string  `json:"user_id" binding:"required"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Zoom   float64 `json:"zoom" binding:"required"`
}

type presenceRequest struct {
	UserID   string    `json:"user_id" binding:"required"`
	Cursor   *Position `json:"cursor"`
	IsActive *bool     `json:"is_active"`
}

type sweepRequest struct {
	InactiveDays int `json:"inactive_days"`
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if !bindJSON(c, &req, bindMessages{
		"Name": {
			"required": "room name is required",
			"roomname": "room name is invalid",
		},
	}, "invalid room request") {
		return
	}
	name, err := validateRoomName(req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts := DefaultRoomOptions()
	if req.VotingCategorized != nil {
		opts.VotingCategorized = *req.VotingCategorized
	}
	if req.AutoCompleteVoting != nil {
		opts.AutoCompleteVoting = *req.AutoCompleteVoting
	}
	room := s.CreateRoom(name, opts)
	c.JSON(http.StatusCreated, gin.H{"room_id": room.ID})
}

func (s *Server) handleGetRoom(c *gin.Context) {
	payload, ok := s.roomPayload(c.Param("roomID"))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if !bindJSON(c, &req, bindMessages{
		"Name": {
			"required": "name is required",
			"username": "name is invalid",
		},
	}, "invalid join request") {
		return
	}
	name, err := validateUserName(req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := s.JoinRoom(c.Param("roomID"), name, req.IsSpectator)
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": user.ID})
}

func (s *Server) handleEditUser(c *gin.Context) {
	var req editUserRequest
	if !bindJSON(c, &req, bindMessages{
		"Name": {"username": "name is invalid"},
	}, "invalid edit request") {
		return
	}
	if req.Name != nil {
		name, err := validateUserName(*req.Name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.Name = &name
	}
	user, err := s.EditUser(c.Param("userID"), req.Name, req.IsSpectator)
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":      user.ID,
		"name":         user.Name,
		"is_spectator": user.IsSpectator,
	})
}

func (s *Server) handleLeaveRoom(c *gin.Context) {
	if err := s.LeaveRoom(c.Param("userID")); err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"left": true})
}

func (s *Server) handlePickCard(c *gin.Context) {
	var req pickCardRequest
	if !bindJSON(c, &req, bindMessages{
		"UserID":    {"required": "user_id is required"},
		"CardLabel": {"required": "card_label is required", "cardlabel": "card_label is invalid"},
	}, "invalid vote request") {
		return
	}
	if err := s.PickCard(c.Param("roomID"), req.UserID, req.CardLabel, req.CardValue, req.CardIcon); err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voted": true})
}

func (s *Server) handleRemoveCard(c *gin.Context) {
	if err := s.RemoveCard(c.Param("roomID"), c.Param("userID")); err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

func (s *Server) handleShowCards(c *gin.Context) {
	if err := s.ShowCards(c.Param("roomID")); err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_game_over": true})
}

func (s *Server) handleResetGame(c *gin.Context) {
	if err := s.ResetGame(c.Param("roomID")); err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_game_over": false})
}

func (s *Server) handleAnalysis(c *gin.Context) {
	snapshot, ok := s.GetRoomWithRelatedData(c.Param("roomID"))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	if !snapshot.Room.IsGameOver {
		c.JSON(http.StatusConflict, gin.H{"error": ErrNotRevealed.Error()})
		return
	}
	c.JSON(http.StatusOK, AnalyzeVotes(snapshot.Votes, snapshot.Users))
}

func (s *Server) handleGetNodes(c *gin.Context) {
	nodes, err := s.GetCanvasNodes(c.Param("roomID"))
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodePayloads(nodes)})
}

func (s *Server) handleNodePosition(c *gin.Context) {
	var req nodePositionRequest
	if !bindJSON(c, &req, bindMessages{
		"UserID": {"required": "user_id is required"},
	}, "invalid position request") {
		return
	}
	node, err := s.UpdateNodePosition(c.Param("roomID"), c.Param("nodeID"), req.Position, req.UserID)
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, nodePayload(node))
}

func (s *Server) handleNodeLock(c *gin.Context) {
	var req nodeLockRequest
	if !bindJSON(c, &req, bindMessages{
		"Locked": {"required": "locked is required"},
	}, "invalid lock request") {
		return
	}
	node, err := s.ToggleNodeLock(c.Param("roomID"), c.Param("nodeID"), *req.Locked)
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, nodePayload(node))
}

func (s *Server) handleTimerAction(c *gin.Context) {
	action := c.Param("action")
	if action != timerActionStart && action != timerActionPause && action != timerActionReset {
		c.Status(http.StatusNotFound)
		return
	}
	var req timerActionRequest
	if !bindJSON(c, &req, bindMessages{
		"UserID": {"required": "user_id is required"},
	}, "invalid timer request") {
		return
	}
	nodeID := req.NodeID
	if nodeID == "" {
		nodeID = nodeIDTimer
	}
	state, err := s.UpdateTimer(c.Param("roomID"), nodeID, action, req.UserID)
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleTimerState(c *gin.Context) {
	nodeID := c.DefaultQuery("node_id", nodeIDTimer)
	state, err := s.GetTimerState(c.Param("roomID"), nodeID)
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleViewport(c *gin.Context) {
	var req viewportRequest
	if !bindJSON(c, &req, bindMessages{
		"UserID": {"required": "user_id is required"},
		"Zoom":   {"required": "zoom is required"},
	}, "invalid viewport request") {
		return
	}
	state, err := s.UpdateViewport(c.Param("roomID"), req.UserID, req.X, req.Y, req.Zoom)
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleGetViewports(c *gin.Context) {
	viewports, err := s.GetViewports(c.Param("roomID"))
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewports": viewports})
}

func (s *Server) handlePresence(c *gin.Context) {
	var req presenceRequest
	if !bindJSON(c, &req, bindMessages{
		"UserID": {"required": "user_id is required"},
	}, "invalid presence request") {
		return
	}
	record, err := s.UpdatePresence(c.Param("roomID"), req.UserID, req.Cursor, req.IsActive)
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleGetPresence(c *gin.Context) {
	presence, err := s.GetPresence(c.Param("roomID"))
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presence": presence})
}

func (s *Server) handleSweep(c *gin.Context) {
	var req sweepRequest
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req, nil, "invalid sweep request") {
			return
		}
	}
	c.JSON(http.StatusOK, s.RemoveInactiveRooms(req.InactiveDays))
}

func (s *Server) handleOrphans(c *gin.Context) {
	c.JSON(http.StatusOK, s.CleanupOrphanedData())
}

func (s *Server) writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNodeLocked), errors.Is(err, ErrTimerRunning), errors.Is(err, ErrTimerNotRunning), errors.Is(err, ErrNotRevealed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
